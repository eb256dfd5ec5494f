// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/spindle/internal/models"
)

// FakePlayer is a test double for [services.PlayerAPI] and [services.LibraryAPI].
//
// Every call is recorded in Calls. Player commands fail with CommandErr when set.
type FakePlayer struct {
	mu sync.Mutex

	State      *models.Snapshot
	StateErr   error
	CommandErr error
	DeviceList []models.Device

	Library  []models.SavedTrack
	PageErr  error
	ErrAfter int // pages served before PageErr is returned
	Country  string

	Calls      []string
	StateCalls int
	PageCalls  int
}

func (f *FakePlayer) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

func (f *FakePlayer) command(call string) error {
	f.record(call)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CommandErr
}

// SetState replaces the snapshot returned by PlaybackState.
func (f *FakePlayer) SetState(s *models.Snapshot) {
	f.mu.Lock()
	f.State = s
	f.mu.Unlock()
}

// CallLog returns a copy of the recorded calls.
func (f *FakePlayer) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// StatePolls returns how many times PlaybackState was called.
func (f *FakePlayer) StatePolls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.StateCalls
}

// Pages returns how many SavedTracks pages were requested.
func (f *FakePlayer) Pages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PageCalls
}

func (f *FakePlayer) PlaybackState(ctx context.Context) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StateCalls++
	if f.StateErr != nil {
		return nil, f.StateErr
	}
	if f.State == nil {
		return nil, nil
	}
	s := f.State.Clone()
	return &s, nil
}

func (f *FakePlayer) Devices(ctx context.Context) ([]models.Device, error) {
	if err := f.command("devices"); err != nil {
		return nil, err
	}
	return f.DeviceList, nil
}

func (f *FakePlayer) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	return f.command(fmt.Sprintf("transfer:%s:%t", deviceID, play))
}

func (f *FakePlayer) Play(ctx context.Context) error     { return f.command("play") }
func (f *FakePlayer) Pause(ctx context.Context) error    { return f.command("pause") }
func (f *FakePlayer) Next(ctx context.Context) error     { return f.command("next") }
func (f *FakePlayer) Previous(ctx context.Context) error { return f.command("previous") }

func (f *FakePlayer) PlayContext(ctx context.Context, contextURI, offsetURI string) error {
	return f.command(fmt.Sprintf("play_context:%s:%s", contextURI, offsetURI))
}

func (f *FakePlayer) PlayTracks(ctx context.Context, uris []string) error {
	return f.command(fmt.Sprintf("play_tracks:%d", len(uris)))
}

func (f *FakePlayer) Seek(ctx context.Context, positionMS int) error {
	return f.command(fmt.Sprintf("seek:%d", positionMS))
}

func (f *FakePlayer) SetShuffle(ctx context.Context, state bool) error {
	return f.command(fmt.Sprintf("shuffle:%t", state))
}

func (f *FakePlayer) SetRepeat(ctx context.Context, mode models.RepeatMode) error {
	return f.command("repeat:" + mode.String())
}

func (f *FakePlayer) SetVolume(ctx context.Context, percent int) error {
	return f.command(fmt.Sprintf("volume:%d", percent))
}

// SavedTracks serves pages of Library. HasNext is set while items remain.
func (f *FakePlayer) SavedTracks(ctx context.Context, offset, limit int, market string) (*models.Page[models.SavedTrack], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.PageCalls++
	if f.PageErr != nil && f.PageCalls > f.ErrAfter {
		return nil, f.PageErr
	}

	total := len(f.Library)
	start := min(offset, total)
	end := min(offset+limit, total)
	items := append([]models.SavedTrack(nil), f.Library[start:end]...)

	return &models.Page[models.SavedTrack]{
		Items:   items,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		HasNext: end < total,
	}, nil
}

func (f *FakePlayer) UserProfile(ctx context.Context) (*models.Profile, error) {
	f.record("profile")
	return &models.Profile{ID: "user", Country: f.Country}, nil
}

func (f *FakePlayer) Market(ctx context.Context) (string, error) {
	return f.Country, nil
}

// SavedTrackFixtures returns n saved tracks with ids t0..t(n-1).
func SavedTrackFixtures(n int) []models.SavedTrack {
	tracks := make([]models.SavedTrack, n)
	for i := range tracks {
		tracks[i] = models.SavedTrack{
			Track: models.Item{
				ID:         fmt.Sprintf("t%d", i),
				URI:        fmt.Sprintf("spotify:track:t%d", i),
				Name:       fmt.Sprintf("Track %d", i),
				Artists:    []string{fmt.Sprintf("Artist %d", i%7)},
				Album:      fmt.Sprintf("Album %d", i%11),
				DurationMS: 180000 + i,
			},
		}
	}
	return tracks
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
