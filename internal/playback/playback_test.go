package playback

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"golang.org/x/oauth2"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeEngine is a [LocalEngine] that records commands and keeps its callbacks.
type fakeEngine struct {
	mu        sync.Mutex
	calls     []string
	err       error
	initErr   error
	callbacks LocalCallbacks
	tokens    oauth2.TokenSource
}

func (e *fakeEngine) Initialize(ctx context.Context, tokens oauth2.TokenSource, callbacks LocalCallbacks) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tokens = tokens
	e.callbacks = callbacks
	return e.initErr
}

func (e *fakeEngine) record(call string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
	return e.err
}

func (e *fakeEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *fakeEngine) Play(ctx context.Context) error     { return e.record("play") }
func (e *fakeEngine) Pause(ctx context.Context) error    { return e.record("pause") }
func (e *fakeEngine) Next(ctx context.Context) error     { return e.record("next") }
func (e *fakeEngine) Previous(ctx context.Context) error { return e.record("previous") }

func (e *fakeEngine) Seek(ctx context.Context, positionMS int) error {
	return e.record(fmt.Sprintf("seek:%d", positionMS))
}

func (e *fakeEngine) SetVolume(ctx context.Context, percent int) error {
	return e.record(fmt.Sprintf("volume:%d", percent))
}

// staticLocality pins routing for dispatcher tests.
type staticLocality struct {
	local  bool
	engine LocalEngine
}

func (s staticLocality) IsLocal() bool       { return s.local }
func (s staticLocality) Engine() LocalEngine { return s.engine }

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func snapshotFixture(deviceID string, playing bool) models.Snapshot {
	return models.Snapshot{
		Device:     models.Device{ID: deviceID, Name: "Device " + deviceID, VolumePercent: 70},
		IsPlaying:  playing,
		ProgressMS: 1000,
		Item:       &models.Item{ID: "t1", Name: "Track", DurationMS: 180000},
	}
}

// drain collects every event currently buffered on ch.
func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}
