package log

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pdk"
	"github.com/reglet-dev/pdk/hostfuncs"
	"github.com/reglet-dev/pdk/pdktest"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{name: "string", attr: slog.String("key", "value"), want: `key=value`},
		{name: "string with space", attr: slog.String("key", "two words"), want: `key="two words"`},
		{name: "empty string", attr: slog.String("key", ""), want: `key=""`},
		{name: "int64", attr: slog.Int64("key", -123), want: `key=-123`},
		{name: "uint64", attr: slog.Uint64("key", 7), want: `key=7`},
		{name: "bool", attr: slog.Bool("key", true), want: `key=true`},
		{name: "float64", attr: slog.Float64("key", 1.25), want: `key=1.25`},
		{name: "time", attr: slog.Time("key", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), want: `key=2024-01-01T00:00:00Z`},
		{name: "duration", attr: slog.Duration("key", time.Hour), want: `key=1h0m0s`},
		{name: "error", attr: slog.Any("key", errors.New("boom")), want: `key=boom`},
		{name: "nil", attr: slog.Any("key", nil), want: `key=<nil>`},
		{name: "struct", attr: slog.Any("key", struct {
			Field string `json:"field"`
		}{Field: "data"}), want: `key="{\"field\":\"data\"}"`},
		{name: "log valuer", attr: slog.Any("key", logValuer{val: "resolved"}), want: `key=resolved`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, renderAttr("", tt.attr))
		})
	}
}

func TestRenderAttr_Groups(t *testing.T) {
	attr := slog.Group("req", slog.String("method", "GET"), slog.Group("url", slog.String("host", "a")))

	assert.Equal(t, []string{"req.method=GET", "req.url.host=a"}, renderAttr("", attr))
	assert.Empty(t, renderAttr("", slog.Group("empty")))
	assert.Empty(t, renderAttr("", slog.Attr{}))
}

type logValuer struct {
	val string
}

func (l logValuer) LogValue() slog.Value {
	return slog.StringValue(l.val)
}

func newRecordingHandler(t *testing.T, opts ...HandlerOption) (*Handler, *pdktest.LogRecorder) {
	t.Helper()
	rec := &pdktest.LogRecorder{}
	k := pdktest.NewKernel(t, nil, hostfuncs.WithLogSink(rec.Sink()))
	return NewHandler(pdk.New(k), opts...), rec
}

func TestNewHandler_Defaults(t *testing.T) {
	h, _ := newRecordingHandler(t)

	assert.True(t, h.Enabled(context.TODO(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.TODO(), slog.LevelDebug))
}

func TestNewHandler_Options(t *testing.T) {
	h, rec := newRecordingHandler(t, WithLevel(slog.LevelDebug), WithSource(true))
	assert.True(t, h.Enabled(context.TODO(), slog.LevelDebug))

	slog.New(h).Debug("here")

	lines := rec.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Message, "source=")
	assert.Contains(t, lines[0].Message, "log_test.go:")
}

func TestHandler_RoutesLevels(t *testing.T) {
	h, rec := newRecordingHandler(t, WithLevel(slog.LevelDebug))
	logger := slog.New(h)

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")
	logger.Log(context.Background(), slog.LevelError+4, "fatal")
	logger.Log(context.Background(), slog.LevelDebug-4, "trace")

	assert.Equal(t, []pdktest.LogLine{
		{Level: slog.LevelDebug, Message: "d"},
		{Level: slog.LevelInfo, Message: "i"},
		{Level: slog.LevelWarn, Message: "w"},
		{Level: slog.LevelError, Message: "e"},
		{Level: slog.LevelError, Message: "fatal"},
		{Level: slog.LevelDebug, Message: "trace"},
	}, rec.Lines())
}

func TestHandler_AttrsAndGroups(t *testing.T) {
	h, rec := newRecordingHandler(t)
	logger := slog.New(h).With("plugin", "upper").WithGroup("call")

	logger.Info("done", "bytes", 5, slog.Group("out", "ok", true))

	lines := rec.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "done plugin=upper call.bytes=5 call.out.ok=true", lines[0].Message)
}

func TestHandler_FilteredRecordsNeverReachHost(t *testing.T) {
	host := pdktest.NewFaultyHost(pdktest.NewKernel(t, nil))
	logger := slog.New(NewHandler(pdk.New(host), WithLevel(slog.LevelWarn)))

	logger.Info("dropped")

	assert.Zero(t, host.Allocs())
}

func TestHandler_SinkFailureIsSwallowed(t *testing.T) {
	host := pdktest.NewFaultyHost(pdktest.NewKernel(t, nil))
	host.FailLog = true
	h := NewHandler(pdk.New(host))

	var err error
	assert.NotPanics(t, func() {
		err = h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0))
	})
	assert.NoError(t, err)
	assert.Empty(t, host.Leaked())
}
