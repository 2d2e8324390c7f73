// Package handlers implements the HTTP and websocket endpoints of the
// session API.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/turtacn/dtiscope/pkg/errors"
)

// maxRequestBody bounds JSON request bodies when the server does not set
// its own limit.
const maxRequestBody = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// errorBody converts err to the wire shape.  Errors without a code are
// masked as internal.
func errorBody(err error) (int, ErrorResponse) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorResponse{
			Code:    string(errors.ErrCodeInternal),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		}
	}
	return errors.HTTPStatusForCode(appErr.Code), ErrorResponse{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}
}

// writeAppError maps application errors to HTTP status codes.
func writeAppError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON body into dst.  An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid JSON body")
	}
	return nil
}

//Personal.AI order the ending
