package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"

	"github.com/tuomaz/stationkeeper/internal/config"
	"github.com/tuomaz/stationkeeper/internal/metrics"
	"github.com/tuomaz/stationkeeper/internal/plot"
	"github.com/tuomaz/stationkeeper/internal/sim"
	"github.com/tuomaz/stationkeeper/internal/telemetry"
	"github.com/tuomaz/stationkeeper/internal/tui"
)

func signalHandler(cancel context.CancelFunc, sigs chan os.Signal) {
	<-sigs
	cancel()
}

func main() {
	baseCtx := context.Background()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go signalHandler(cancel, sigs)

	s, err := readSettings(viper.New())
	if err != nil {
		log.Fatalf("invalid settings: %v", err)
	}

	logger, logOut, err := newLogger(s)
	if err != nil {
		log.Fatalf("error setting up logging: %v", err)
	}
	defer logOut.Close()

	cfg := config.Default()
	if s.configPath != "" {
		cfg, err = config.Load(s.configPath)
		if err != nil {
			logger.Error("invalid configuration", "path", s.configPath, "error", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	driver, err := sim.NewDriver(ctx, cfg, logger, sim.WithObserver(m))
	if err != nil {
		logger.Error("could not create simulation", "error", err)
		os.Exit(1)
	}

	var srv *http.Server
	if s.metricsAddr != "" {
		srv = serveMetrics(s.metricsAddr, metrics.Handler(reg), logger)
	}

	events := make(chan *event)
	_ = newMonitorService(ctx, events, driver, s.alarmTicks, logger)

	reportService := newReportService(driver, logger)
	if err := reportService.start(s.reportInterval); err != nil {
		logger.Error("error setting up cron", "error", err)
		os.Exit(1)
	}

	if s.autostart {
		if err := driver.Start(); err != nil {
			logger.Error("could not start clock", "error", err)
			os.Exit(1)
		}
	}
	if s.duration > 0 {
		time.AfterFunc(s.duration, cancel)
	}

	commands := make(chan tui.Command)
	if s.dashboard {
		screen, err := tcell.NewScreen()
		if err == nil {
			err = screen.Init()
		}
		if err != nil {
			logger.Error("could not open terminal", "error", err)
			os.Exit(1)
		}
		defer screen.Fini()
		go tui.New(screen, driver, commands).Run(ctx)
	}

	logger.Info("start main loop")

MainLoop:
	for {
		select {
		case <-ctx.Done():
			break MainLoop
		case event, ok := <-events:
			if !ok {
				break MainLoop
			}
			if event.alarmEvent != nil && !event.alarmEvent.cleared {
				reportService.report()
			}
		case cmd := <-commands:
			if cmd == tui.CommandQuit {
				break MainLoop
			}
			if err := handleCommand(driver, cmd); err != nil {
				logger.Warn("command failed", "command", cmd.String(), "error", err)
			}
		}
	}
	logger.Info("end main loop")

	cancel()
	<-driver.Done()
	reportService.stop()
	final := reportService.report()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
		shutdownCancel()
	}

	if final.samples > 0 {
		exportPlots(s, driver.TelemetrySnapshot(), logger)
	}
}

// exportPlots writes the telemetry and corrections charts to the files set in
// s. A chart without a file is skipped.
func exportPlots(s settings, samples []telemetry.Sample, logger *slog.Logger) {
	charts := []struct {
		name  string
		path  string
		write func(string, []telemetry.Sample) error
	}{
		{"telemetry", s.plotFile, plot.WriteTelemetry},
		{"corrections", s.correctionsPlotFile, plot.WriteCorrections},
	}
	for _, c := range charts {
		if c.path == "" {
			continue
		}
		if err := c.write(c.path, samples); err != nil {
			logger.Error("could not export plot", "plot", c.name, "path", c.path, "error", err)
			continue
		}
		logger.Info("plot written", "plot", c.name, "path", c.path, "samples", len(samples))
	}
}

// clock is the part of the driver the dashboard commands act on.
type clock interface {
	Start() error
	Stop()
	Running() bool
	ForceTick() (sim.Snapshot, error)
	Reset() (sim.Snapshot, error)
	ClearEvents() (sim.Snapshot, error)
	SetRecording(on bool) (sim.Snapshot, error)
	CurrentSnapshot() sim.Snapshot
}

func handleCommand(c clock, cmd tui.Command) error {
	var err error
	switch cmd {
	case tui.CommandToggleClock:
		if c.Running() {
			c.Stop()
		} else {
			err = c.Start()
		}
	case tui.CommandForceTick:
		_, err = c.ForceTick()
	case tui.CommandReset:
		_, err = c.Reset()
	case tui.CommandClearEvents:
		_, err = c.ClearEvents()
	case tui.CommandToggleRecording:
		_, err = c.SetRecording(!c.CurrentSnapshot().Recording)
	}
	return err
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server listen error", "error", err)
		}
	}()
	return srv
}

// readSettings reads process settings from STATIONKEEPER_* environment
// variables.
func readSettings(v *viper.Viper) (settings, error) {
	v.SetEnvPrefix("stationkeeper")
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")
	v.SetDefault("report_interval", time.Minute)
	v.SetDefault("autostart", true)
	v.SetDefault("alarm_ticks", 30)

	s := settings{
		configPath:          v.GetString("config"),
		logLevel:            v.GetString("log_level"),
		logFile:             v.GetString("log_file"),
		metricsAddr:         v.GetString("metrics_addr"),
		dashboard:           v.GetBool("dashboard"),
		plotFile:            v.GetString("plot_file"),
		correctionsPlotFile: v.GetString("corrections_plot_file"),
		reportInterval:      v.GetDuration("report_interval"),
		duration:            v.GetDuration("duration"),
		autostart:           v.GetBool("autostart"),
		alarmTicks:          v.GetUint64("alarm_ticks"),
	}

	var errs []error
	if _, err := parseLevel(s.logLevel); err != nil {
		errs = append(errs, err)
	}
	if s.reportInterval < 0 {
		errs = append(errs, errors.New("STATIONKEEPER_REPORT_INTERVAL: must not be negative"))
	}
	if s.duration < 0 {
		errs = append(errs, errors.New("STATIONKEEPER_DURATION: must not be negative"))
	}
	if s.dashboard && s.logFile == "" {
		s.logFile = "stationkeeper.log"
	}
	return s, errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("STATIONKEEPER_LOG_LEVEL: %w", err)
	}
	return level, nil
}

// newLogger logs JSON to stdout, or text to the log file when one is set.
func newLogger(s settings) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(s.logLevel)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	if s.logFile == "" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(s.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), f, nil
}
