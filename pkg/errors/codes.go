package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are grouped by module prefix: COMMON, SRC (remote data sources),
// LKP (lookup/resolution), ANL (analysis) and SES (sessions).
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Short aliases used at call sites.
const (
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeTimeout      = ErrCodeTimeout
)

// Data Source Error Codes
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceRateLimited ErrorCode = "SRC_002"
	ErrCodeDataSourceNotFound    ErrorCode = "SRC_003"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_004"
)

// Lookup Error Codes
const (
	ErrCodeLookupKindUnsupported ErrorCode = "LKP_001"
	ErrCodeSuggestionOutOfRange  ErrorCode = "LKP_002"
	ErrCodeResolverClosed        ErrorCode = "LKP_003"
)

// Analysis Error Codes
const (
	ErrCodeAnalysisNotReady       ErrorCode = "ANL_001"
	ErrCodeAnalysisFailed         ErrorCode = "ANL_002"
	ErrCodeAnalysisAlreadyRunning ErrorCode = "ANL_003"
	ErrCodeScorerUnsupported      ErrorCode = "ANL_004"
)

// Session Error Codes
const (
	ErrCodeSessionNotFound      ErrorCode = "SES_001"
	ErrCodeSessionLimitExceeded ErrorCode = "SES_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,

	ErrCodeDataSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeDataSourceRateLimited: http.StatusTooManyRequests,
	ErrCodeDataSourceNotFound:    http.StatusNotFound,
	ErrCodeDataSourceParseError:  http.StatusBadGateway,

	ErrCodeLookupKindUnsupported: http.StatusBadRequest,
	ErrCodeSuggestionOutOfRange:  http.StatusBadRequest,
	ErrCodeResolverClosed:        http.StatusGone,

	ErrCodeAnalysisNotReady:       http.StatusPreconditionFailed,
	ErrCodeAnalysisFailed:         http.StatusBadGateway,
	ErrCodeAnalysisAlreadyRunning: http.StatusConflict,
	ErrCodeScorerUnsupported:      http.StatusBadRequest,

	ErrCodeSessionNotFound:      http.StatusNotFound,
	ErrCodeSessionLimitExceeded: http.StatusTooManyRequests,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodeDataSourceUnavailable: "data source unavailable",
	ErrCodeDataSourceRateLimited: "data source rate limited",
	ErrCodeDataSourceNotFound:    "data source returned no record",
	ErrCodeDataSourceParseError:  "failed to parse data source response",

	ErrCodeLookupKindUnsupported: "unsupported entity kind",
	ErrCodeSuggestionOutOfRange:  "suggestion index out of range",
	ErrCodeResolverClosed:        "resolver closed",

	ErrCodeAnalysisNotReady:       "drug and protein must both be selected",
	ErrCodeAnalysisFailed:         "analysis failed",
	ErrCodeAnalysisAlreadyRunning: "analysis already running",
	ErrCodeScorerUnsupported:      "unsupported scorer",

	ErrCodeSessionNotFound:      "session not found",
	ErrCodeSessionLimitExceeded: "session limit exceeded",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	prefix, _, found := strings.Cut(string(code), "_")
	if found && prefix != "" {
		return prefix
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
