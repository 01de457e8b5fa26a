// Package progress renders a best-effort percentage bar while a long call runs.
// The percentage follows a timer over an estimated duration, not real completion, and must not
// drive any logic.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Mode controls whether the indicator renders.
type Mode string

const (
	// ModeAuto renders only when the writer is a terminal.
	ModeAuto Mode = "auto"
	// ModeAlways renders regardless of the writer.
	ModeAlways Mode = "always"
	// ModeNever disables rendering.
	ModeNever Mode = "never"
)

const (
	defaultEstimatedDuration = 60 * time.Second
	defaultTickInterval      = 200 * time.Millisecond
	defaultBarWidth          = 30
	maximumRunningPercent    = 99
	completePercent          = 100
	filledCell               = "#"
	emptyCell                = "-"
	lineFormat               = "\r%s [%s] %3d%%"
)

// ParseMode resolves a mode name, defaulting to ModeAuto for an empty value.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeAlways:
		return ModeAlways, nil
	case ModeNever:
		return ModeNever, nil
	default:
		return "", fmt.Errorf("unsupported progress mode %q", value)
	}
}

// Options configures an Indicator.
type Options struct {
	Label             string
	Mode              Mode
	EstimatedDuration time.Duration
	TickInterval      time.Duration
	Width             int
}

// Indicator animates a single progress line. The zero value is not usable; call New.
type Indicator struct {
	writer            io.Writer
	label             string
	enabled           bool
	estimatedDuration time.Duration
	tickInterval      time.Duration
	width             int

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
	finished  chan struct{}
	startedAt time.Time
}

// New builds an indicator that writes to writer.
func New(writer io.Writer, options Options) *Indicator {
	indicator := &Indicator{
		writer:            writer,
		label:             options.Label,
		estimatedDuration: options.EstimatedDuration,
		tickInterval:      options.TickInterval,
		width:             options.Width,
		stopped:           make(chan struct{}),
		finished:          make(chan struct{}),
	}
	if indicator.estimatedDuration <= 0 {
		indicator.estimatedDuration = defaultEstimatedDuration
	}
	if indicator.tickInterval <= 0 {
		indicator.tickInterval = defaultTickInterval
	}
	if indicator.width <= 0 {
		indicator.width = defaultBarWidth
	}
	switch options.Mode {
	case ModeAlways:
		indicator.enabled = writer != nil
	case ModeNever:
		indicator.enabled = false
	default:
		indicator.enabled = IsTerminal(writer)
	}
	return indicator
}

// Enabled reports whether the indicator draws anything.
func (indicator *Indicator) Enabled() bool {
	return indicator.enabled
}

// Start begins animating in a background goroutine. Subsequent calls do nothing.
func (indicator *Indicator) Start() {
	indicator.startOnce.Do(func() {
		indicator.startedAt = time.Now()
		if !indicator.enabled {
			close(indicator.finished)
			return
		}
		indicator.draw(0)
		go indicator.run()
	})
}

// Stop ends the animation. On success the bar is completed to 100%; the line is always terminated.
func (indicator *Indicator) Stop(success bool) {
	indicator.Start()
	indicator.stopOnce.Do(func() {
		close(indicator.stopped)
		<-indicator.finished
		if !indicator.enabled {
			return
		}
		if success {
			indicator.draw(completePercent)
		}
		fmt.Fprintln(indicator.writer)
	})
}

func (indicator *Indicator) run() {
	defer close(indicator.finished)
	ticker := time.NewTicker(indicator.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-indicator.stopped:
			return
		case <-ticker.C:
			indicator.draw(Percent(time.Since(indicator.startedAt), indicator.estimatedDuration))
		}
	}
}

func (indicator *Indicator) draw(percent int) {
	fmt.Fprint(indicator.writer, RenderLine(indicator.label, percent, indicator.width))
}

// Percent maps elapsed time onto 0..99 over the estimated duration. It never reports completion.
func Percent(elapsed, estimated time.Duration) int {
	if elapsed <= 0 || estimated <= 0 {
		return 0
	}
	percent := int(elapsed * completePercent / estimated)
	if percent > maximumRunningPercent {
		return maximumRunningPercent
	}
	return percent
}

// RenderLine draws one carriage-return-prefixed progress line.
func RenderLine(label string, percent int, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > completePercent {
		percent = completePercent
	}
	filledWidth := width * percent / completePercent
	bar := strings.Repeat(filledCell, filledWidth) + strings.Repeat(emptyCell, width-filledWidth)
	return fmt.Sprintf(lineFormat, label, bar, percent)
}

// IsTerminal reports whether writer is an *os.File attached to a terminal.
func IsTerminal(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile || file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
