package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

func newTestLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buf, zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core), level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}, buf
}

func TestNewLogger_JSONFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo, Format: "json", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelDebug, Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_EmptyOutputPaths(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("x"))
	assert.Equal(t, l, l.WithContext(context.Background()))
	assert.Equal(t, l, l.WithError(errors.New("e")))
	assert.NoError(t, l.Sync())
}

func TestZapLogger_Levels(t *testing.T) {
	cases := []struct {
		level string
		log   func(Logger)
	}{
		{"debug", func(l Logger) { l.Debug("m") }},
		{"info", func(l Logger) { l.Info("m") }},
		{"warn", func(l Logger) { l.Warn("m") }},
		{"error", func(l Logger) { l.Error("m") }},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			l, buf := newTestLogger(t)
			tc.log(l)
			assert.Contains(t, buf.String(), `"level":"`+tc.level+`"`)
		})
	}
}

func TestZapLogger_FieldTypes(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Info("fields",
		String("s", "v"),
		Int("i", 3),
		Bool("b", true),
		Float64("f", 1.5),
		Strings("ss", []string{"a", "b"}),
		Duration("d", time.Second),
	)
	out := buf.String()
	assert.Contains(t, out, `"s":"v"`)
	assert.Contains(t, out, `"i":3`)
	assert.Contains(t, out, `"b":true`)
	assert.Contains(t, out, `"f":1.5`)
	assert.Contains(t, out, `"ss":["a","b"]`)
}

func TestZapLogger_WithContext_ExtractsRequestID(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithContext(WithRequestID(context.Background(), "req-123")).Info("msg")
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}

func TestZapLogger_WithError_AppError(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithError(apperrors.New(apperrors.ErrCodeAnalysisFailed, "scorer failed")).Error("msg")
	assert.Contains(t, buf.String(), `"error_code":"ANL_002"`)
	assert.Contains(t, buf.String(), `"error":"[ANL_002] scorer failed"`)
}

func TestZapLogger_WithError_Nil(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithError(nil).Info("msg")
	assert.NotContains(t, buf.String(), `"error"`)
}

func TestSetLevel_FiltersBelowThreshold(t *testing.T) {
	buf := &zaptest.Buffer{}
	atom := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), buf, atom)
	l := &zapLogger{z: zap.New(core), level: atom}

	child := l.Named("child")
	require.True(t, SetLevel(l, LevelWarn))
	child.Info("hidden")
	child.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.False(t, SetLevel(NewNopLogger(), LevelDebug))
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, l)

	l, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelInfo, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestLogRemoteCall(t *testing.T) {
	l, buf := newTestLogger(t)
	LogRemoteCall(l, "pubchem", "autocomplete", time.Now(), nil)
	assert.Contains(t, buf.String(), "remote call completed")

	LogRemoteCall(l, "uniprot", "fasta", time.Now(), errors.New("boom"))
	assert.Contains(t, buf.String(), "remote call failed")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"source":"uniprot"`)
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l := NewNopLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())

	SetDefault(nil)
	assert.Equal(t, l, Default())
}

//Personal.AI order the ending
