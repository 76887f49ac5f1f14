package pdk_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/pdk"
	"github.com/reglet-dev/pdk/hostfuncs"
	"github.com/reglet-dev/pdk/memory"
	"github.com/reglet-dev/pdk/pdktest"
)

func TestEndToEnd_UppercaseCall(t *testing.T) {
	k := pdktest.NewKernel(t, []byte("hello"))
	p := pdk.New(k)

	in, err := p.InputString()
	require.NoError(t, err)
	assert.Equal(t, "hello", in)

	require.NoError(t, p.SetOutputString(strings.ToUpper(in)))
	assert.Equal(t, []byte{'H', 'E', 'L', 'L', 'O'}, k.Output())

	_, hasErr := k.Error()
	assert.False(t, hasErr)
}

func TestInput_NeverReleased(t *testing.T) {
	k := pdktest.NewKernel(t, []byte("borrowed input"))
	host := pdktest.NewFaultyHost(k)
	p := pdk.New(host)

	b, err := p.Input()
	require.NoError(t, err)
	assert.Equal(t, "borrowed input", string(b))

	offset := k.InputOffset()
	assert.Zero(t, host.Frees(offset))
	assert.Equal(t, uint64(len("borrowed input")), k.Length(offset))

	// Reading twice sees the same bytes.
	again, err := p.Input()
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestInput_Empty(t *testing.T) {
	p := pdk.New(pdktest.NewKernel(t, nil))

	b, err := p.Input()
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestInputJSON(t *testing.T) {
	p := pdk.New(pdktest.NewKernel(t, []byte(`{"name":"pdk","count":3}`)))

	var in struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, p.InputJSON(&in))
	assert.Equal(t, "pdk", in.Name)
	assert.Equal(t, 3, in.Count)

	bad := pdk.New(pdktest.NewKernel(t, []byte("not json")))
	assert.Error(t, bad.InputJSON(&in))
}

func TestSetOutput_Region(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	p := pdk.New(k)

	r, err := memory.AllocateString(k, "from region")
	require.NoError(t, err)

	p.SetOutput(r)
	assert.False(t, r.Released(), "output region must stay valid until the host reads it")
	assert.Equal(t, "from region", string(k.Output()))
}

func TestSetOutputJSON(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	p := pdk.New(k)

	require.NoError(t, p.SetOutputJSON(map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, string(k.Output()))
}

func TestSetOutputBytes_Empty(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	p := pdk.New(k)

	require.NoError(t, p.SetOutputBytes(nil))
	assert.Empty(t, k.Output())
}

func TestSetError(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	p := pdk.New(k)

	p.SetError("bad input")

	msg, ok := k.Error()
	require.True(t, ok)
	assert.Equal(t, "bad input", msg)
}

func TestSetError_NeverPanics(t *testing.T) {
	t.Run("allocation fails", func(t *testing.T) {
		host := pdktest.NewFaultyHost(pdktest.NewKernel(t, nil))
		host.FailAlloc = true
		p := pdk.New(host)

		assert.NotPanics(t, func() { p.SetError("bad input") })
	})

	t.Run("error_set traps", func(t *testing.T) {
		host := pdktest.NewFaultyHost(pdktest.NewKernel(t, nil))
		host.FailOutput = true
		p := pdk.New(host)

		assert.NotPanics(t, func() { p.SetError("bad input") })
	})

	t.Run("recovers after earlier failure", func(t *testing.T) {
		k := pdktest.NewKernel(t, nil)
		host := pdktest.NewFaultyHost(k)
		p := pdk.New(host)

		host.FailAlloc = true
		p.SetError("first")
		host.FailAlloc = false
		p.SetError("bad input")

		msg, ok := k.Error()
		require.True(t, ok)
		assert.Equal(t, "bad input", msg)
	})
}

func TestLog_Levels(t *testing.T) {
	rec := &pdktest.LogRecorder{}
	k := pdktest.NewKernel(t, nil, hostfuncs.WithLogSink(rec.Sink()))
	p := pdk.New(k)

	p.Log(pdk.LogError, "e")
	p.Log(pdk.LogWarn, "w")
	p.Log(pdk.LogInfo, "i")
	p.Logf(pdk.LogDebug, "d=%d", 4)
	p.Log(pdk.LogInfo, "")

	assert.Equal(t, []pdktest.LogLine{
		{Level: slog.LevelError, Message: "e"},
		{Level: slog.LevelWarn, Message: "w"},
		{Level: slog.LevelInfo, Message: "i"},
		{Level: slog.LevelDebug, Message: "d=4"},
	}, rec.Lines())
}

func TestLog_ReleasesRegionWhenSinkFails(t *testing.T) {
	for _, level := range []pdk.LogLevel{pdk.LogError, pdk.LogWarn, pdk.LogInfo, pdk.LogDebug} {
		t.Run(level.String(), func(t *testing.T) {
			rec := &pdktest.LogRecorder{}
			host := pdktest.NewFaultyHost(pdktest.NewKernel(t, nil, hostfuncs.WithLogSink(rec.Sink())))
			host.FailLog = true
			p := pdk.New(host)

			assert.NotPanics(t, func() { p.Log(level, "message") })

			require.Len(t, rec.Lines(), 1, "sink is reached before it fails")
			assert.Equal(t, 1, host.Allocs())
			assert.Empty(t, host.Leaked(), "message region must be freed exactly once")
		})
	}
}

func TestLog_AllocationFailureIsSwallowed(t *testing.T) {
	host := pdktest.NewFaultyHost(pdktest.NewKernel(t, nil))
	host.FailAlloc = true
	p := pdk.New(host)

	assert.NotPanics(t, func() { p.Log(pdk.LogInfo, "message") })
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want pdk.LogLevel
		err  bool
	}{
		{in: "error", want: pdk.LogError},
		{in: "WARN", want: pdk.LogWarn},
		{in: "warning", want: pdk.LogWarn},
		{in: " info ", want: pdk.LogInfo},
		{in: "Debug", want: pdk.LogDebug},
		{in: "trace", want: pdk.LogInfo, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := pdk.ParseLogLevel(tt.in)
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetConfig(t *testing.T) {
	k := pdktest.NewKernel(t, nil, hostfuncs.WithConfig(map[string]string{"greeting": "hi"}))
	host := pdktest.NewFaultyHost(k)
	p := pdk.New(host)

	v, ok := p.GetConfig("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi", v)

	_, ok = p.GetConfig("missing")
	assert.False(t, ok)

	_, ok = p.GetConfig("")
	assert.False(t, ok)

	host.FailAlloc = true
	_, ok = p.GetConfig("greeting")
	assert.False(t, ok)
}

func TestFailAndSucceed(t *testing.T) {
	k := pdktest.NewKernel(t, nil)
	p := pdk.New(k)

	assert.Equal(t, pdk.CodeSuccess, p.Succeed(nil))
	_, hasErr := k.Error()
	assert.False(t, hasErr)

	assert.Equal(t, pdk.CodeFailure, p.Succeed(errors.New("exploded")))
	msg, _ := k.Error()
	assert.Equal(t, "exploded", msg)

	assert.Equal(t, pdk.CodeFailure, p.Fail(nil))
	msg, _ = k.Error()
	assert.Equal(t, "plugin call failed", msg)
}

func TestKernelState_SurvivesBetweenCalls(t *testing.T) {
	k := pdktest.NewKernel(t, []byte("first"))
	p := pdk.New(k)

	require.NoError(t, p.SetVariableString("count", "1"))
	require.NoError(t, p.SetOutputString("one"))

	require.NoError(t, k.BeginCall(context.Background(), []byte("second")))
	assert.Empty(t, k.Output(), "output is per call")

	in, err := p.InputString()
	require.NoError(t, err)
	assert.Equal(t, "second", in)

	v, ok := p.GetVariableString("count")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}
