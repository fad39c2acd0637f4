package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/tuomaz/stationkeeper/internal/config"
	"github.com/tuomaz/stationkeeper/internal/history"
	"github.com/tuomaz/stationkeeper/internal/telemetry"
	"github.com/tuomaz/stationkeeper/internal/vecmath"
)

// ErrClosed is returned by commands issued after the driver context ended.
var ErrClosed = errors.New("sim: driver closed")

// Observer is notified of tick outcomes and clock changes. TickCompleted and
// TickFailed come from the request loop, TickDropped from the clock job and
// ClockRunning from callers of Start, StartRate and Stop, so implementations
// must be safe for concurrent use.
type Observer interface {
	TickCompleted(d time.Duration, errorMagnitude, thrustMagnitude float64, events []history.Event)
	TickFailed()
	TickDropped()
	ClockRunning(running bool)
}

type nopObserver struct{}

func (nopObserver) TickCompleted(time.Duration, float64, float64, []history.Event) {}
func (nopObserver) TickFailed()                                                   {}
func (nopObserver) TickDropped()                                                  {}
func (nopObserver) ClockRunning(bool)                                             {}

type requestKind int

const (
	requestTick requestKind = iota
	requestReset
	requestSetTarget
	requestClearEvents
	requestSetRecording
)

type request struct {
	kind      requestKind
	dt        float64
	target    vecmath.Vector3
	recording bool
	source    string
	reply     chan result
}

type result struct {
	snapshot Snapshot
	err      error
}

// Driver owns a Simulation and feeds it from a single request queue, so timer
// ticks and manual commands never run in parallel.
type Driver struct {
	ctx      context.Context
	sim      *Simulation
	logger   *slog.Logger
	observer Observer

	requests chan request
	done     chan struct{}
	latest   atomic.Pointer[Snapshot]
	session  uuid.UUID // owned by the run loop

	mu        sync.Mutex
	scheduler *gocron.Scheduler
	subs      []chan<- Snapshot
}

// NewDriver validates cfg, builds the simulation and starts the request loop.
// The loop and any running clock stop when ctx is cancelled.
func NewDriver(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Driver, error) {
	sim, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	o := buildOptions(cfg, opts)

	d := &Driver{
		ctx:      ctx,
		sim:      sim,
		logger:   logger.With("service", "driver"),
		observer: o.observer,
		requests: make(chan request, o.queueSize),
		done:     make(chan struct{}),
		session:  uuid.New(),
	}
	d.publish(sim.Snapshot())
	d.logger.Info("session created",
		"session", d.session,
		"tick_rate_hz", cfg.TickRateHz,
		"target", cfg.TargetPosition.String(),
		"noise_model", string(sim.sensor.Model()),
		"record_history", cfg.RecordHistory,
	)

	go d.run()

	return d, nil
}

func (d *Driver) run() {
	defer close(d.done)
Loop:
	for {
		select {
		case <-d.ctx.Done():
			break Loop
		case req := <-d.requests:
			res := d.handle(req)
			if req.reply != nil {
				req.reply <- res
			}
		}
	}
	d.Stop()
	d.logger.Info("driver stopped", "session", d.session)
}

func (d *Driver) handle(req request) result {
	switch req.kind {
	case requestTick:
		start := time.Now()
		snap, err := d.sim.Tick(req.dt)
		if err != nil {
			d.observer.TickFailed()
			d.logger.Warn("tick rejected", "source", req.source, "error", err)
			return result{err: err}
		}
		thrust := snap.Applied.Norm()
		d.observer.TickCompleted(time.Since(start), snap.Output.ErrorMagnitude, thrust, snap.NewEvents)
		d.logger.Debug("tick",
			"source", req.source,
			"tick", snap.Tick,
			"error", snap.Output.ErrorMagnitude,
			"thrust", thrust,
			"mode", snap.Mode.String(),
		)
		for _, e := range snap.NewEvents {
			d.logger.Info("drift event",
				"kind", e.Kind.String(),
				"tick", e.Tick,
				"error", e.ErrorMagnitude,
				"thrust", e.ThrustMagnitude,
			)
		}
		return result{snapshot: d.publish(snap)}
	case requestReset:
		d.sim.Reset()
		d.session = uuid.New()
		d.logger.Info("session reset", "session", d.session)
	case requestSetTarget:
		d.sim.SetTarget(req.target)
		d.logger.Info("target changed", "target", req.target.String())
	case requestClearEvents:
		d.sim.ClearEvents()
		d.logger.Info("drift history cleared")
	case requestSetRecording:
		d.sim.SetRecording(req.recording)
		d.logger.Info("history recording", "on", req.recording)
	}
	return result{snapshot: d.publish(d.sim.Snapshot())}
}

// publish stores snap as the current snapshot and hands a copy to every
// subscriber that is ready to receive.
func (d *Driver) publish(snap Snapshot) Snapshot {
	snap.Session = d.session
	d.latest.Store(&snap)

	d.mu.Lock()
	for _, ch := range d.subs {
		select {
		case ch <- snap.clone():
		default:
		}
	}
	d.mu.Unlock()
	return snap.clone()
}

func (d *Driver) call(req request) (Snapshot, error) {
	req.reply = make(chan result, 1)
	select {
	case d.requests <- req:
	case <-d.done:
		return Snapshot{}, ErrClosed
	}
	select {
	case res := <-req.reply:
		return res.snapshot, res.err
	case <-d.done:
		select {
		case res := <-req.reply:
			return res.snapshot, res.err
		default:
			return Snapshot{}, ErrClosed
		}
	}
}

// enqueueTick is the clock job. It never blocks: a tick that cannot be queued
// is dropped.
func (d *Driver) enqueueTick(dt float64) {
	select {
	case d.requests <- request{kind: requestTick, dt: dt, source: "timer"}:
	default:
		d.observer.TickDropped()
		d.logger.Debug("timer tick dropped, queue full")
	}
}

// Start drives ticks automatically at the configured rate.
func (d *Driver) Start() error {
	return d.StartRate(d.sim.Config().TickRateHz)
}

// StartRate drives ticks automatically at hz ticks per second, each with
// dt = 1/hz. A running clock is restarted at the new rate.
func (d *Driver) StartRate(hz float64) error {
	if !(hz > 0) || !vecmath.IsFinite(hz) {
		return &config.ValidationError{Field: "tick_rate_hz", Reason: "must be positive"}
	}
	if d.ctx.Err() != nil {
		return ErrClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scheduler != nil {
		d.stopLocked()
	}

	interval := time.Duration(float64(time.Second) / hz)
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(interval).WaitForSchedule().Do(d.enqueueTick, 1/hz); err != nil {
		return fmt.Errorf("schedule ticks: %w", err)
	}
	s.StartAsync()
	d.scheduler = s

	d.observer.ClockRunning(true)
	d.logger.Info("clock started", "tick_rate_hz", hz, "interval", interval)
	return nil
}

// Stop halts automatic ticking. It does not wait for the next deadline; a
// tick already queued still runs.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scheduler == nil {
		return
	}
	d.stopLocked()
	d.logger.Info("clock stopped")
}

func (d *Driver) stopLocked() {
	d.scheduler.Stop()
	d.scheduler = nil
	d.observer.ClockRunning(false)
}

func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheduler != nil
}

// ForceTick runs one tick of the configured duration now, queued behind any
// pending timer tick.
func (d *Driver) ForceTick() (Snapshot, error) {
	return d.call(request{kind: requestTick, dt: 1 / d.sim.Config().TickRateHz, source: "manual"})
}

// Tick runs one tick with an explicit duration.
func (d *Driver) Tick(dt float64) (Snapshot, error) {
	return d.call(request{kind: requestTick, dt: dt, source: "manual"})
}

// Reset reinitialises satellite and controller from configuration, clears
// both buffers and starts a new session id. The clock keeps its state.
func (d *Driver) Reset() (Snapshot, error) {
	return d.call(request{kind: requestReset})
}

func (d *Driver) SetTarget(target vecmath.Vector3) (Snapshot, error) {
	if !target.IsFinite() {
		return Snapshot{}, &config.ValidationError{Field: "target_position", Reason: "must be finite"}
	}
	return d.call(request{kind: requestSetTarget, target: target})
}

func (d *Driver) ClearEvents() (Snapshot, error) {
	return d.call(request{kind: requestClearEvents})
}

// SetRecording starts or stops appending drift events to the history. The
// drift mode is tracked either way.
func (d *Driver) SetRecording(on bool) (Snapshot, error) {
	return d.call(request{kind: requestSetRecording, recording: on})
}

// Subscribe registers ch to receive every published snapshot. Delivery is
// non-blocking: a subscriber that is not ready misses that snapshot.
func (d *Driver) Subscribe(ch chan<- Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, ch)
}

// Unsubscribe stops delivery to ch. No snapshot is sent to ch once it returns.
func (d *Driver) Unsubscribe(ch chan<- Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = slices.DeleteFunc(d.subs, func(c chan<- Snapshot) bool { return c == ch })
}

// CurrentSnapshot returns a copy of the latest published snapshot.
func (d *Driver) CurrentSnapshot() Snapshot {
	return d.latest.Load().clone()
}

func (d *Driver) TelemetrySnapshot() []telemetry.Sample {
	return slices.Clone(d.latest.Load().Telemetry)
}

func (d *Driver) EventSnapshot() []history.Event {
	return slices.Clone(d.latest.Load().History)
}

func (d *Driver) Session() uuid.UUID {
	return d.latest.Load().Session
}

func (d *Driver) Config() config.Config { return d.sim.Config() }

// Done is closed once the request loop has exited.
func (d *Driver) Done() <-chan struct{} { return d.done }
