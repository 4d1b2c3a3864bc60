package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_Outputs(t *testing.T) {
	var console, file, gelf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "info", Console: &console, File: &file, Graylog: &gelf})

	m.Logger().Info("revision opened", "revision", "r1")

	assert.Contains(t, console.String(), "revision=r1")
	assert.Contains(t, file.String(), "revision=r1")
	assert.Contains(t, gelf.String(), `"msg":"revision opened"`)
	assert.Contains(t, gelf.String(), `"revision":"r1"`)
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(Options{Level: tt.level, Console: &buf})

			m.Logger().Debug("fetching profile")
			m.Logger().Info("logged in")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("fetching profile")))
			assert.Contains(t, buf.String(), "logged in")
		})
	}
}

func TestSetup_AgainSwitchesWriters(t *testing.T) {
	var before, after bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "info", Console: &before})
	m.Setup(Options{Level: "info", Console: &after})

	m.Logger().Info("after setup")

	assert.Empty(t, before.String())
	assert.Contains(t, after.String(), "after setup")
}

func TestSetup_ContextAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{
		Level:   "info",
		Console: &buf,
		Context: func() []slog.Attr {
			return []slog.Attr{slog.String("server", "api.test"), slog.Bool("guest", true)}
		},
	})

	m.Logger().Info("opening shared revision", "accessCode", "guest-42")

	out := buf.String()
	assert.Contains(t, out, "server=api.test")
	assert.Contains(t, out, "guest=true")
	assert.Contains(t, out, "accessCode=***")
	assert.NotContains(t, out, "guest-42")
}

func TestSetup_OTelBridge(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{Level: "info", Console: &buf, Provider: provider})
	m.Logger().Info("bridged")

	assert.Contains(t, buf.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLogger_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestNewGraylogWriter(t *testing.T) {
	w, err := NewGraylogWriter("127.0.0.1:12201")
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	assert.Equal(t, InstrumentationName, w.Facility)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "DEBUG": slog.LevelDebug,
		"warn": slog.LevelWarn, "Error": slog.LevelError,
		"info": slog.LevelInfo, "": slog.LevelInfo, "verbose": slog.LevelInfo,
	} {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

type failingSink struct{ slog.Handler }

func (failingSink) Enabled(context.Context, slog.Level) bool { return true }

func (failingSink) Handle(context.Context, slog.Record) error { return errors.New("sink down") }

func TestMultiHandler(t *testing.T) {
	var info, debug bytes.Buffer
	infoSink := slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugSink := slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug})
	ctx := context.Background()

	t.Run("drops nil sinks", func(t *testing.T) {
		assert.Len(t, NewMultiHandler(nil, infoSink, nil).sinks, 1)
	})

	t.Run("enabled if any sink is", func(t *testing.T) {
		assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelInfo))
		assert.False(t, NewMultiHandler(infoSink).Enabled(ctx, slog.LevelDebug))
		assert.True(t, NewMultiHandler(infoSink, debugSink).Enabled(ctx, slog.LevelDebug))
	})

	t.Run("attrs and groups reach every sink", func(t *testing.T) {
		info.Reset()
		debug.Reset()
		h := NewMultiHandler(infoSink, debugSink).WithAttrs([]slog.Attr{slog.String("cmd", "submit")}).WithGroup("req")
		slog.New(h).Info("sent", "path", "/revision/submit")

		for _, out := range []string{info.String(), debug.String()} {
			assert.Contains(t, out, "cmd=submit")
			assert.Contains(t, out, "req.path=/revision/submit")
		}
	})

	t.Run("empty group is a no-op", func(t *testing.T) {
		m := NewMultiHandler(infoSink)
		assert.Same(t, m, m.WithGroup(""))
	})

	t.Run("failing sink does not block others", func(t *testing.T) {
		info.Reset()
		m := NewMultiHandler(failingSink{}, infoSink)

		err := m.Handle(ctx, slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0))

		assert.EqualError(t, err, "sink down")
		assert.Contains(t, info.String(), "still delivered")
	})
}

func TestRedactHandler_MasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	h := NewRedactHandler(slog.NewTextHandler(&buf, nil), nil, SecretKeys...)
	logger := slog.New(h).With("accessCode", "guest-42")

	logger.Info("login", "Password", "hunter2", "user", "ann", slog.Group("req", "token", "abc", "path", "/x"))

	out := buf.String()
	assert.NotContains(t, out, "guest-42")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "abc")
	assert.Contains(t, out, "accessCode=***")
	assert.Contains(t, out, "Password=***")
	assert.Contains(t, out, "req.token=***")
	assert.Contains(t, out, "req.path=/x")
	assert.Contains(t, out, "user=ann")
}
