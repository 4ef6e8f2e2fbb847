package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
logging:
  level: debug
  console: true
scheduler:
  enabled: true
  timezone: UTC
  days: ["1-5", "sat"]
  times: ["06:00", "12:00", "18:30"]
task_engine:
  queue_size: 4
  max_queue_delay: 10m
reminder:
  weekly_cap: 2
  concurrency: 8
storage:
  driver: sqlite
  path: ./nudger.db
http:
  enabled: true
  addr: 127.0.0.1:9999
seed:
  path: ./fixture.yaml
`

func TestParseBytesYAML(t *testing.T) {
	t.Parallel()
	cfg, err := ParseBytes("nudger.yaml", []byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, []string{"1-5", "sat"}, cfg.Scheduler.Days)
	assert.Equal(t, []string{"06:00", "12:00", "18:30"}, cfg.Scheduler.Times)
	require.NotNil(t, cfg.TaskEngine)
	assert.Equal(t, 4, cfg.TaskEngine.QueueSize)
	require.NotNil(t, cfg.Reminder)
	assert.Equal(t, 2, cfg.Reminder.WeeklyCap)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)
	assert.Equal(t, "./fixture.yaml", cfg.Seed.Path)
}

func TestParseBytesStrict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file string
		data string
	}{
		{name: "unknown json key", file: "c.json", data: `{"logging":{"level":"info"},"telegram":{}}`},
		{name: "unknown yaml key", file: "c.yml", data: "scheduler:\n  workers: 2\n"},
		{name: "trailing json", file: "c.json", data: `{} {}`},
		{name: "broken yaml", file: "c.yaml", data: "scheduler: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes(tt.file, []byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty is fine", cfg: Config{}},
		{name: "bad level", cfg: Config{Logging: LoggingConfig{Level: "loud"}}, wantErr: "logging.level"},
		{name: "bad timezone", cfg: Config{Scheduler: SchedulerConfig{Timezone: "Mars/Olympus"}}, wantErr: "scheduler.timezone"},
		{name: "empty day", cfg: Config{Scheduler: SchedulerConfig{Days: []string{"1-5", " "}}}, wantErr: "scheduler.days[1]"},
		{name: "bad day", cfg: Config{Scheduler: SchedulerConfig{Days: []string{"funday"}}}, wantErr: "scheduler.days[0]"},
		{name: "bad time", cfg: Config{Scheduler: SchedulerConfig{Times: []string{"25:00"}}}, wantErr: "scheduler.times[0]"},
		{name: "bad window", cfg: Config{Reminder: &ReminderConfig{DailyWindow: "soon"}}, wantErr: "reminder.daily_window"},
		{name: "negative cap", cfg: Config{Reminder: &ReminderConfig{WeeklyCap: -1}}, wantErr: "reminder.weekly_cap"},
		{name: "bad driver", cfg: Config{Storage: &StorageConfig{Driver: "postgres"}}, wantErr: "storage.driver"},
		{name: "bad queue delay", cfg: Config{TaskEngine: &TaskEngineConfig{MaxQueueDelay: "-1s"}}, wantErr: "task_engine.max_queue_delay"},
		{name: "bad http timeout", cfg: Config{HTTP: &HTTPConfig{ReadTimeout: "x"}}, wantErr: "http.read_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	t.Parallel()
	err := Validate(&Config{
		Logging:   LoggingConfig{Level: "loud"},
		Scheduler: SchedulerConfig{Times: []string{"noon"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "scheduler.times[0]")
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	c, err := ParseClock(" 06:05 ")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 6, Minute: 5}, c)
	assert.Equal(t, "06:05", c.String())

	c, err = ParseClock("18:00:30")
	require.NoError(t, err)
	assert.Equal(t, "18:00:30", c.String())

	for _, bad := range []string{"", "6", "24:00", "12:60", "noon"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
	d, err = ParseDurationOrDefault("x", "90s", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
	_, err = ParseDurationField("x", "-5s")
	assert.Error(t, err)
	_, err = ParseDurationField("reminder.daily_window", "1d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `reminder.daily_window: invalid duration "1d"`)
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	base := &Config{
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{Enabled: true, Times: []string{"06:00"}},
	}
	same := *base
	changed, _ := SummarizeConfigChange(base, &same)
	assert.Empty(t, changed)

	next := *base
	next.Scheduler.Times = []string{"06:00", "12:00"}
	next.Reminder = &ReminderConfig{WeeklyCap: 5}
	next.HTTP = &HTTPConfig{Enabled: true}
	changed, attrs := SummarizeConfigChange(base, &next)
	assert.Equal(t, []string{"http", "reminder", "scheduler"}, changed)
	assert.NotEmpty(t, attrs)

	changed, _ = SummarizeConfigChange(nil, base)
	assert.Equal(t, []string{"logging", "scheduler"}, changed)
}

func TestManagerLoadAndSubscribe(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nudger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	m := NewConfigManager(path)
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Same(t, cfg, m.Get())

	ch := m.Subscribe(1)
	m.publish(&Config{Logging: LoggingConfig{Level: "warn"}})
	m.publish(&Config{Logging: LoggingConfig{Level: "error"}})
	got := <-ch
	assert.Equal(t, "error", got.Logging.Level, "a slow subscriber keeps the newest config")

	m.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestManagerLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nudger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scheduler":{"times":["99:00"]}}`), 0o644))
	_, err := NewConfigManager(path).Load()
	assert.Error(t, err)
}

func TestManagerWatchPublishesValidChanges(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nudger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	m := NewConfigManager(path)
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  times: [\"99:99\"]\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644))

	select {
	case cfg := <-ch:
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Same(t, cfg, m.Get())
	case <-time.After(5 * time.Second):
		t.Fatal("no config published")
	}
}
