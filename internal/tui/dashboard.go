// Package tui is a terminal dashboard for a running session. It reads
// snapshots and turns key presses into commands; it never touches the
// simulation itself.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/tuomaz/stationkeeper/internal/history"
	"github.com/tuomaz/stationkeeper/internal/sim"
	"github.com/tuomaz/stationkeeper/internal/telemetry"
)

type Command int

const (
	CommandNone Command = iota
	CommandToggleClock
	CommandForceTick
	CommandReset
	CommandClearEvents
	CommandToggleRecording
	CommandQuit
)

func (c Command) String() string {
	switch c {
	case CommandToggleClock:
		return "toggle_clock"
	case CommandForceTick:
		return "force_tick"
	case CommandReset:
		return "reset"
	case CommandClearEvents:
		return "clear_events"
	case CommandToggleRecording:
		return "toggle_recording"
	case CommandQuit:
		return "quit"
	}
	return "none"
}

// Source is what the dashboard renders.
type Source interface {
	CurrentSnapshot() sim.Snapshot
	Running() bool
}

const (
	refreshInterval = 100 * time.Millisecond
	recentEvents    = 8
	helpLine        = "s start/stop  f force tick  r reset  c clear history  h history on/off  q quit"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

var (
	titleStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	textStyle     = tcell.StyleDefault
	dimStyle      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	onCourseStyle = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	driftingStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

type line struct {
	text  string
	style tcell.Style
}

type Dashboard struct {
	screen   tcell.Screen
	source   Source
	commands chan<- Command
}

// New returns a dashboard drawing on an initialised screen. Commands are sent
// to commands; the caller owns the screen and finalises it.
func New(screen tcell.Screen, source Source, commands chan<- Command) *Dashboard {
	return &Dashboard{
		screen:   screen,
		source:   source,
		commands: commands,
	}
}

// KeyCommand maps a key press to a command.
func KeyCommand(ev *tcell.EventKey) Command {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return CommandQuit
	case tcell.KeyEnter:
		return CommandForceTick
	case tcell.KeyRune:
		switch ev.Rune() {
		case 's', ' ':
			return CommandToggleClock
		case 'f':
			return CommandForceTick
		case 'r':
			return CommandReset
		case 'c':
			return CommandClearEvents
		case 'h':
			return CommandToggleRecording
		case 'q':
			return CommandQuit
		}
	}
	return CommandNone
}

// Run redraws on a fixed interval and forwards key commands until ctx ends
// or a quit key is pressed.
func (d *Dashboard) Run(ctx context.Context) {
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := d.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	d.Draw()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				cmd := KeyCommand(ev)
				if cmd == CommandNone {
					continue
				}
				select {
				case d.commands <- cmd:
				case <-ctx.Done():
					return
				}
				if cmd == CommandQuit {
					return
				}
			case *tcell.EventResize:
				d.screen.Sync()
				d.Draw()
			}
		case <-ticker.C:
			d.Draw()
		}
	}
}

// Draw renders the current snapshot.
func (d *Dashboard) Draw() {
	width, height := d.screen.Size()
	d.screen.Clear()
	for y, l := range render(d.source.CurrentSnapshot(), d.source.Running(), width) {
		if y >= height {
			break
		}
		putString(d.screen, 0, y, l.text, l.style)
	}
	d.screen.Show()
}

func putString(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func render(snap sim.Snapshot, running bool, width int) []line {
	clock := "stopped"
	if running {
		clock = "running"
	}
	modeStyle := onCourseStyle
	if snap.Mode == history.Drifting {
		modeStyle = driftingStyle
	}
	session := snap.Session.String()
	if len(session) > 8 {
		session = session[:8]
	}
	recording := "off"
	if snap.Recording {
		recording = "on"
	}

	lines := []line{
		{fmt.Sprintf("STATIONKEEPER  session %s  clock %s", session, clock), titleStyle},
		{fmt.Sprintf("tick %d  t=%.2fs  corrections %d", snap.Tick, snap.Time, snap.Corrections), textStyle},
		{"mode " + snap.Mode.String(), modeStyle},
		{"position " + snap.State.Position.String(), textStyle},
		{"target   " + snap.State.Target.String(), textStyle},
		{"velocity " + snap.State.Velocity.String(), textStyle},
		readout(snap),
		{"error " + sparkline(errorSeries(snap.Recent), width-6), dimStyle},
		{"", textStyle},
		{"recent events  history recording " + recording, titleStyle},
	}

	events := snap.History
	if len(events) > recentEvents {
		events = events[len(events)-recentEvents:]
	}
	if len(events) == 0 {
		lines = append(lines, line{"  none", dimStyle})
	}
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		style := textStyle
		switch e.Kind {
		case history.DriftDetected:
			style = driftingStyle
		case history.OnCourseRestored:
			style = onCourseStyle
		}
		lines = append(lines, line{
			fmt.Sprintf("  tick %-6d %-18s error %.4f thrust %.4f", e.Tick, e.Kind, e.ErrorMagnitude, e.ThrustMagnitude),
			style,
		})
	}

	return append(lines, line{"", textStyle}, line{helpLine, dimStyle})
}

// readout shows the newest telemetry sample, or the controller output when no
// sample is retained.
func readout(snap sim.Snapshot) line {
	errorMagnitude, thrust, command := snap.Output.ErrorMagnitude, snap.Applied.Norm(), snap.Output.Command.Norm()
	if latest := snap.Latest; latest.Tick != 0 {
		errorMagnitude, thrust, command = latest.ErrorMagnitude, latest.ThrustMagnitude, latest.CommandMagnitude
	}
	return line{fmt.Sprintf("error %.4f  thrust %.4f  command %.4f", errorMagnitude, thrust, command), textStyle}
}

func errorSeries(samples []telemetry.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.ErrorMagnitude
	}
	return out
}

// sparkline draws the last width values scaled to their own maximum.
func sparkline(values []float64, width int) string {
	if width <= 0 || len(values) == 0 {
		return ""
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		level := 0
		if peak > 0 {
			level = int(v / peak * float64(len(sparkRunes)-1))
		}
		out[i] = sparkRunes[level]
	}
	return string(out)
}
