package log

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OuterFoldKey, 3)
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", errors.New("disk full"), TaskKey, "OuterFold_Predictions.txt")

	require.NotEmpty(t, buffer.String())
	assert.True(t, testLogger.ContainsMessage("debug message"))
	assert.True(t, testLogger.ContainsMessage("info message"))
	assert.True(t, testLogger.ContainsMessage("warning message"))
	assert.True(t, testLogger.ContainsMessage("error message"))

	assert.True(t, testLogger.ContainsField("key1", "value1"))
	assert.True(t, testLogger.ContainsField("number", 42.0))
	assert.True(t, testLogger.ContainsField(OuterFoldKey, 3.0))
	assert.True(t, testLogger.ContainsField(ErrAttrKey, "disk full"))
	assert.Equal(t, 1, testLogger.CountLevel("error"))
}

func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	foldLogger := testLogger.With(ProcessorKey, "expression", ClassifierKey, "svm")
	foldLogger.Info("predictions verified", PredsKey, 12)

	assert.True(t, testLogger.ContainsField(ProcessorKey, "expression"))
	assert.True(t, testLogger.ContainsField(ClassifierKey, "svm"))
	assert.True(t, testLogger.ContainsField(PredsKey, 12.0))
}

func TestLoggerLevels(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelWarn)

	testLogger.Debug("hidden debug")
	testLogger.Info("hidden info")
	testLogger.Warn("shown warning")

	assert.NotContains(t, buffer.String(), "hidden")
	assert.Contains(t, buffer.String(), "shown warning")

	ctx := context.Background()
	assert.False(t, testLogger.Enabled(ctx, LevelInfo))
	assert.True(t, testLogger.Enabled(ctx, LevelWarn))
	assert.True(t, testLogger.Enabled(ctx, LevelError))
}

func TestErrorFieldsCarryStacktrace(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	testLogger.Error("commit failed", errors.Wrap(errors.New("short write"), "write predictions"))

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "write predictions: short write", entries[0][ErrAttrKey])
	assert.NotEmpty(t, entries[0][StacktraceAttrKey])
}

func TestOddFieldsAreKept(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	testLogger.Info("odd", "dangling")
	assert.True(t, testLogger.ContainsField(badKey, "dangling"))
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProvider(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelInfo)

	provider.GetLoggerWithName("runner").Info("started")
	assert.Contains(t, buffer.String(), `"cv.component":"runner"`)

	provider.SetLevel(LevelError)
	provider.GetLogger().Info("suppressed")
	assert.NotContains(t, buffer.String(), "suppressed")
}
