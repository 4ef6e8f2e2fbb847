package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("component", "test"))

	log.Info("hello", Int("n", 3), Err(errors.New("boom")), Duration("took", time.Second), Err(nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "test", line["component"])
	assert.EqualValues(t, 3, line["n"])
	assert.Equal(t, "boom", line["err"])
	assert.True(t, strings.HasPrefix(line["caller"].(string), "logging_test.go:"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")
	log.Info("dropped")
	assert.Zero(t, buf.Len())
	assert.False(t, log.Enabled(LevelInfo))
	assert.True(t, log.Enabled(LevelError))
}

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	assert.True(t, l.IsZero())
	assert.NotPanics(t, func() { l.Error("nothing") })
	assert.False(t, Nop().IsZero())
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel(" Warning ")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, lvl)
	_, ok = ParseLevel("loud")
	assert.False(t, ok)
}

func TestServiceApplySwitchesFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.log")
	second := filepath.Join(dir, "b.log")

	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: first}})
	t.Cleanup(func() { _ = svc.Close() })
	log.Info("one")

	svc.Apply(Config{Level: "info", File: FileConfig{Enabled: true, Path: second}})
	log.Info("two")
	log.Debug("hidden")

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(a), `"one"`)
	assert.NotContains(t, string(a), `"two"`)
	assert.Contains(t, string(b), `"two"`)
	assert.NotContains(t, string(b), "hidden")
	assert.Equal(t, second, svc.Config().File.Path)
}
