package main

import (
	"context"
	"log/slog"

	"github.com/tuomaz/stationkeeper/internal/history"
	"github.com/tuomaz/stationkeeper/internal/sim"
)

// monitorService watches published snapshots and raises an alarm when the
// satellite stays off station for too many consecutive ticks.
type monitorService struct {
	ctx        context.Context
	logger     *slog.Logger
	alarmTicks uint64

	driver       *sim.Driver
	snapshots    chan sim.Snapshot
	eventChannel chan *event
	done         chan struct{}

	lastTick      uint64
	driftingTicks uint64
	alarmed       bool
}

func newMonitorService(ctx context.Context, eventChannel chan *event, driver *sim.Driver, alarmTicks uint64, logger *slog.Logger) *monitorService {
	snapshots := make(chan sim.Snapshot, 16)
	driver.Subscribe(snapshots)

	monitorService := &monitorService{
		ctx:          ctx,
		logger:       logger.With("service", "monitor"),
		alarmTicks:   alarmTicks,
		driver:       driver,
		snapshots:    snapshots,
		eventChannel: eventChannel,
		done:         make(chan struct{}),
	}

	go monitorService.run()

	return monitorService
}

func (ms *monitorService) run() {
	defer close(ms.done)
	defer ms.driver.Unsubscribe(ms.snapshots)
Loop:
	for {
		select {
		case <-ms.ctx.Done():
			break Loop
		case snap := <-ms.snapshots:
			alarm := ms.observe(snap)
			if alarm == nil {
				continue
			}
			if alarm.cleared {
				ms.logger.Info("drift alarm cleared", "tick", alarm.tick, "error", alarm.errorMagnitude)
			} else {
				ms.logger.Warn("drift alarm", "tick", alarm.tick, "drifting_ticks", alarm.driftingTicks, "error", alarm.errorMagnitude)
			}
			select {
			case ms.eventChannel <- &event{alarmEvent: alarm}:
			case <-ms.ctx.Done():
				break Loop
			}
		}
	}
}

// observe counts consecutive drifting ticks. Snapshots may be missed, so the
// count advances by the tick distance rather than by one.
func (ms *monitorService) observe(snap sim.Snapshot) *alarmEvent {
	if snap.Tick < ms.lastTick || snap.Tick == 0 {
		// session was reset
		ms.lastTick = snap.Tick
		ms.driftingTicks = 0
		ms.alarmed = false
		return nil
	}
	elapsed := snap.Tick - ms.lastTick
	ms.lastTick = snap.Tick

	if snap.Mode != history.Drifting {
		ms.driftingTicks = 0
		if ms.alarmed {
			ms.alarmed = false
			return &alarmEvent{
				session:        snap.Session,
				tick:           snap.Tick,
				errorMagnitude: snap.Output.ErrorMagnitude,
				cleared:        true,
			}
		}
		return nil
	}

	ms.driftingTicks += elapsed
	if ms.alarmTicks == 0 || ms.alarmed || ms.driftingTicks < ms.alarmTicks {
		return nil
	}
	ms.alarmed = true
	return &alarmEvent{
		session:        snap.Session,
		tick:           snap.Tick,
		driftingTicks:  ms.driftingTicks,
		errorMagnitude: snap.Output.ErrorMagnitude,
	}
}
