package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuomaz/stationkeeper/internal/sim"
	"github.com/tuomaz/stationkeeper/internal/telemetry"
	"github.com/tuomaz/stationkeeper/internal/tui"
)

func TestReadSettings_Defaults(t *testing.T) {
	s, err := readSettings(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", s.logLevel)
	assert.Equal(t, time.Minute, s.reportInterval)
	assert.True(t, s.autostart)
	assert.Equal(t, uint64(30), s.alarmTicks)
	assert.False(t, s.dashboard)
	assert.Empty(t, s.logFile)
}

func TestReadSettings_Env(t *testing.T) {
	t.Setenv("STATIONKEEPER_CONFIG", "mission.yaml")
	t.Setenv("STATIONKEEPER_LOG_LEVEL", "debug")
	t.Setenv("STATIONKEEPER_METRICS_ADDR", ":9100")
	t.Setenv("STATIONKEEPER_DASHBOARD", "true")
	t.Setenv("STATIONKEEPER_PLOT_FILE", "out/telemetry.png")
	t.Setenv("STATIONKEEPER_CORRECTIONS_PLOT_FILE", "out/corrections.svg")
	t.Setenv("STATIONKEEPER_REPORT_INTERVAL", "15s")
	t.Setenv("STATIONKEEPER_DURATION", "2m")
	t.Setenv("STATIONKEEPER_AUTOSTART", "false")
	t.Setenv("STATIONKEEPER_ALARM_TICKS", "5")

	s, err := readSettings(viper.New())
	require.NoError(t, err)

	assert.Equal(t, settings{
		configPath:          "mission.yaml",
		logLevel:            "debug",
		logFile:             "stationkeeper.log",
		metricsAddr:         ":9100",
		dashboard:           true,
		plotFile:            "out/telemetry.png",
		correctionsPlotFile: "out/corrections.svg",
		reportInterval:      15 * time.Second,
		duration:            2 * time.Minute,
		autostart:           false,
		alarmTicks:          5,
	}, s)
}

func TestReadSettings_Invalid(t *testing.T) {
	t.Setenv("STATIONKEEPER_LOG_LEVEL", "chatty")
	t.Setenv("STATIONKEEPER_DURATION", "-1s")

	_, err := readSettings(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATIONKEEPER_LOG_LEVEL")
	assert.Contains(t, err.Error(), "STATIONKEEPER_DURATION")
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sk.log")
	logger, out, err := newLogger(settings{logLevel: "warn", logFile: path})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "tick", 3)
	require.NoError(t, out.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "msg=shown tick=3")
}

type fakeClock struct {
	running   bool
	recording bool
	calls     []string
	err       error
}

func (c *fakeClock) Start() error {
	c.calls = append(c.calls, "start")
	c.running = true
	return c.err
}

func (c *fakeClock) Stop() {
	c.calls = append(c.calls, "stop")
	c.running = false
}

func (c *fakeClock) Running() bool { return c.running }

func (c *fakeClock) ForceTick() (sim.Snapshot, error) {
	c.calls = append(c.calls, "force")
	return sim.Snapshot{}, c.err
}

func (c *fakeClock) Reset() (sim.Snapshot, error) {
	c.calls = append(c.calls, "reset")
	return sim.Snapshot{}, c.err
}

func (c *fakeClock) ClearEvents() (sim.Snapshot, error) {
	c.calls = append(c.calls, "clear")
	return sim.Snapshot{}, c.err
}

func (c *fakeClock) SetRecording(on bool) (sim.Snapshot, error) {
	if on {
		c.calls = append(c.calls, "record on")
	} else {
		c.calls = append(c.calls, "record off")
	}
	c.recording = on
	return c.CurrentSnapshot(), c.err
}

func (c *fakeClock) CurrentSnapshot() sim.Snapshot {
	return sim.Snapshot{Recording: c.recording}
}

func TestHandleCommand(t *testing.T) {
	c := &fakeClock{recording: true}
	for _, cmd := range []tui.Command{
		tui.CommandToggleClock,
		tui.CommandToggleClock,
		tui.CommandForceTick,
		tui.CommandReset,
		tui.CommandClearEvents,
		tui.CommandToggleRecording,
		tui.CommandToggleRecording,
		tui.CommandNone,
	} {
		require.NoError(t, handleCommand(c, cmd))
	}
	assert.Equal(t, []string{"start", "stop", "force", "reset", "clear", "record off", "record on"}, c.calls)
}

func TestHandleCommand_Error(t *testing.T) {
	c := &fakeClock{err: sim.ErrClosed}
	assert.True(t, errors.Is(handleCommand(c, tui.CommandForceTick), sim.ErrClosed))
}

func TestExportPlots(t *testing.T) {
	dir := t.TempDir()
	s := settings{
		plotFile:            filepath.Join(dir, "telemetry.png"),
		correctionsPlotFile: filepath.Join(dir, "corrections.svg"),
	}
	samples := []telemetry.Sample{
		{Tick: 1, Time: 1, ErrorMagnitude: 2, ThrustMagnitude: 1, CommandMagnitude: 2, Corrections: 1},
		{Tick: 2, Time: 2, ErrorMagnitude: 1, ThrustMagnitude: 1, CommandMagnitude: 1, Corrections: 2},
	}

	exportPlots(s, samples, testLogger)

	assert.FileExists(t, s.plotFile)
	assert.FileExists(t, s.correctionsPlotFile)
}

func TestExportPlots_OnlyConfigured(t *testing.T) {
	dir := t.TempDir()
	s := settings{correctionsPlotFile: filepath.Join(dir, "corrections.png")}

	exportPlots(s, []telemetry.Sample{{Tick: 1, Time: 1, ErrorMagnitude: 1}}, testLogger)

	assert.FileExists(t, s.correctionsPlotFile)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
