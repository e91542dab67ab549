package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/uplift/internal/domain/step"
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
}

func TestConsoleLogger_TextOutput(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewConsoleLogger(
		WithOutput(&buf),
		WithLevel(ports.LevelDebug),
		WithClock(fixedClock),
	)

	logger.Info(context.Background(), "project selected",
		ports.F("project", "App"),
		ports.F("step", step.MustNewID("upgrade:project")),
		ports.F("risk", step.RiskMedium),
		ports.Err(errors.New("exit status 1")),
		ports.F("path", "/src/My App/App.csproj"))

	assert.Equal(t,
		`12:30:00 [INFO] project selected project=App step=upgrade:project risk=medium error="exit status 1" path="/src/My App/App.csproj"`+"\n",
		buf.String())
}

func TestConsoleLogger_TextWithoutDecorations(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false), WithLevelLabel(false))

	logger.Warn(context.Background(), "restore failed")

	assert.Equal(t, "restore failed\n", buf.String())
}

func TestConsoleLogger_JSONOutput(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithJSONFormat(true), WithClock(fixedClock))

	logger.Error(context.Background(), "step failed",
		ports.F("step", step.MustNewID("upgrade:convert")),
		ports.F("error", errors.New("try-convert exited with 1")),
		ports.F("iterations", 2))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "2024-05-01T12:30:00Z", entry["time"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "step failed", entry["msg"])
	assert.Equal(t, "upgrade:convert", entry["step"])
	assert.Equal(t, "try-convert exited with 1", entry["error"], "errors are written as text, not {}")
	assert.Equal(t, float64(2), entry["iterations"])
}

func TestConsoleLogger_JSONMarshalFailure(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithJSONFormat(true), WithTimestamp(false))

	logger.Info(context.Background(), "odd", ports.F("ch", make(chan int)))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "odd", entry["msg"])
	assert.Contains(t, entry["log_error"], "unsupported type")
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithLevel(ports.LevelWarn), WithTimestamp(false))
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	assert.Equal(t, "[WARN] warn\n[ERROR] error\n", buf.String())
}

func TestConsoleLogger_With(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false), WithLevelLabel(false))

	run := logger.With(ports.F("run", "r1"))
	run.With(ports.F("project", "Lib")).Info(context.Background(), "backed up")
	logger.Info(context.Background(), "done")

	assert.Equal(t, "backed up run=r1 project=Lib\ndone\n", buf.String())
}

func TestConsoleLogger_SetLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false))

	logger.Debug(context.Background(), "hidden")
	logger.SetLevel(ports.LevelDebug)
	logger.Debug(context.Background(), "shown")

	assert.Equal(t, ports.LevelDebug, logger.Level())
	assert.Equal(t, "[DEBUG] shown\n", buf.String())
}

func TestConsoleLogger_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false))
	child := logger.With(ports.F("project", "App"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			logger.Info(context.Background(), "parent")
		}()
		go func() {
			defer wg.Done()
			child.Info(context.Background(), "child")
		}()
	}
	wg.Wait()

	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 40)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    ports.Level
		wantErr bool
	}{
		{"debug", ports.LevelDebug, false},
		{"", ports.LevelInfo, false},
		{"INFO", ports.LevelInfo, false},
		{"warning", ports.LevelWarn, false},
		{" error ", ports.LevelError, false},
		{"loud", ports.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
		} else {
			assert.NoError(t, err, tt.name)
		}
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestTee(t *testing.T) {
	t.Parallel()
	var console, file bytes.Buffer
	tee := Tee(
		NewConsoleLogger(WithOutput(&console), WithLevel(ports.LevelWarn), WithTimestamp(false)),
		nil,
		NewConsoleLogger(WithOutput(&file), WithLevel(ports.LevelDebug), WithJSONFormat(true), WithTimestamp(false)),
	)
	ctx := context.Background()

	assert.Equal(t, ports.LevelDebug, tee.Level())

	log := tee.With(ports.F("run", "r1"))
	log.Debug(ctx, "scanning")
	log.Warn(ctx, "restore failed")

	assert.Equal(t, "[WARN] restore failed run=r1\n", console.String())
	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"scanning"`)
	assert.Contains(t, lines[0], `"run":"r1"`)

	tee.SetLevel(ports.LevelError)
	assert.Equal(t, ports.LevelError, tee.Level())
}

func TestTee_Collapses(t *testing.T) {
	t.Parallel()
	single := NewConsoleLogger()

	assert.Same(t, single, Tee(nil, single))
	assert.Equal(t, ports.Discard, Tee())
}
