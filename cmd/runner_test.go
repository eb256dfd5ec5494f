package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	tu "github.com/desertthunder/spindle/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func testConfig(t *testing.T, driver string) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Driver = driver
	config.Database.Path = filepath.Join(t.TempDir(), "spindle.db")
	config.Playback.SettleDelay = shared.Duration{}
	config.Library.PageDelay = shared.Duration{}
	return config
}

func playingSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Device:     models.Device{ID: "dev-1", Name: "Desk Speaker", Type: "Speaker", IsActive: true, VolumePercent: 40},
		IsPlaying:  true,
		ProgressMS: 61000,
		Repeat:     models.RepeatContext,
		Item:       &models.Item{ID: "t1", Name: "Windowlicker", Artists: []string{"Aphex Twin"}, Album: "Windowlicker", DurationMS: 200000},
	}
}

// runCLI runs args through the registered commands and returns the output.
func runCLI(t *testing.T, runner *Runner, args ...string) (string, error) {
	t.Helper()
	output := &bytes.Buffer{}
	runner.output = output

	app := &cli.Command{
		Name:     "spindle",
		Writer:   io.Discard,
		Commands: runner.register(),
	}
	err := app.Run(context.Background(), append([]string{"spindle"}, args...))
	return output.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(io.Discard)
			output := &bytes.Buffer{}
			spotify := &tu.FakePlayer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "config.toml",
				Spotify:    spotify,
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.spotify != spotify {
				t.Error("expected spotify to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		var names []string
		for _, cmd := range runner.register() {
			names = append(names, cmd.Name)
		}

		expected := "setup auth player library tui"
		if got := strings.Join(names, " "); got != expected {
			t.Errorf("expected commands %q, got %q", expected, got)
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")

			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "test_id"
			config.Credentials.Spotify.ClientSecret = "test_secret"
			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})

			token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}
			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loadedConfig, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loadedConfig.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loadedConfig.Credentials.Spotify.AccessToken)
			}
			if loadedConfig.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loadedConfig.Credentials.Spotify.RefreshToken)
			}
		})

		t.Run("handles nil config error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})
			runner.config = nil

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected missing config error, got %v", err)
			}
		})

		t.Run("handles empty configPath", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "new_token", RefreshToken: "new_refresh"}); err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}
			if config.Credentials.Spotify.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("handles SaveConfig failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config:     shared.DefaultConfig(),
				ConfigPath: filepath.Join(t.TempDir(), "missing", "config.toml"),
			})

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("handles Update error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveTokens(nil)
			if err == nil || !strings.Contains(err.Error(), "failed to update spotify configuration") {
				t.Errorf("expected update error, got %v", err)
			}
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected missing credentials in chain, got %v", err)
			}
		})
	})
}

func TestPlayerCommands(t *testing.T) {
	newRunner := func(t *testing.T) (*Runner, *tu.FakePlayer) {
		api := &tu.FakePlayer{State: playingSnapshot()}
		return NewRunner(RunnerOpts{
			Config:  testConfig(t, "sqlite"),
			Spotify: api,
			Logger:  shared.NewLogger(io.Discard),
		}), api
	}

	t.Run("status prints the current track", func(t *testing.T) {
		runner, _ := newRunner(t)

		out, err := runCLI(t, runner, "player", "status", "--json=false")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"▶ Windowlicker", "Aphex Twin", "1:01 / 3:20", "Desk Speaker", "repeat context"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}
	})

	t.Run("status with nothing playing", func(t *testing.T) {
		runner, api := newRunner(t)
		api.SetState(nil)

		out, err := runCLI(t, runner, "player", "status")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out != "Nothing playing\n" {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("status as JSON", func(t *testing.T) {
		runner, _ := newRunner(t)

		out, err := runCLI(t, runner, "player", "status", "--json", "--pretty=false")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, `"is_playing":true`) {
			t.Errorf("expected snapshot JSON, got %q", out)
		}
	})

	cases := []struct {
		name string
		args []string
		call string
	}{
		{"play", []string{"play"}, "play"},
		{"play context", []string{"play", "--offset", "spotify:track:t3", "spotify:album:a1"}, "play_context:spotify:album:a1:spotify:track:t3"},
		{"play track", []string{"play", "spotify:track:t3"}, "play_tracks:1"},
		{"pause", []string{"pause"}, "pause"},
		{"next", []string{"next"}, "next"},
		{"previous", []string{"prev"}, "previous"},
		{"seek", []string{"seek", "1:30"}, "seek:90000"},
		{"shuffle", []string{"shuffle", "on"}, "shuffle:true"},
		{"repeat", []string{"repeat", "track"}, "repeat:track"},
		{"volume", []string{"volume", "65%"}, "volume:65"},
		{"transfer", []string{"transfer", "--play", "dev-2"}, "transfer:dev-2:true"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner, api := newRunner(t)

			out, err := runCLI(t, runner, append([]string{"player"}, tc.args...)...)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			calls := api.CallLog()
			if len(calls) != 1 || calls[0] != tc.call {
				t.Errorf("expected call %q, got %v", tc.call, calls)
			}
			if !strings.Contains(out, "Windowlicker") {
				t.Errorf("expected reconciled state in output, got %q", out)
			}
		})
	}

	t.Run("invalid volume", func(t *testing.T) {
		runner, api := newRunner(t)

		_, err := runCLI(t, runner, "player", "volume", "loud")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
		if len(api.CallLog()) != 0 {
			t.Errorf("expected no remote calls, got %v", api.CallLog())
		}
	})

	t.Run("out of range volume", func(t *testing.T) {
		runner, _ := newRunner(t)

		_, err := runCLI(t, runner, "player", "volume", "150")
		if !errors.Is(err, shared.ErrCommandFailed) {
			t.Errorf("expected command failure, got %v", err)
		}
	})

	t.Run("remote failure", func(t *testing.T) {
		runner, api := newRunner(t)
		api.CommandErr = shared.ErrNoActiveDevice

		_, err := runCLI(t, runner, "player", "next")
		if !errors.Is(err, shared.ErrCommandFailed) || !errors.Is(err, shared.ErrNoActiveDevice) {
			t.Errorf("expected wrapped no active device error, got %v", err)
		}
	})

	t.Run("devices", func(t *testing.T) {
		runner, api := newRunner(t)
		api.DeviceList = []models.Device{
			{ID: "dev-1", Name: "Desk Speaker", Type: "Speaker", IsActive: true, SupportsVolume: true, VolumePercent: 40},
			{ID: "dev-2", Name: "Phone", Type: "Smartphone"},
		}

		out, err := runCLI(t, runner, "player", "devices")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "* 1. Desk Speaker (Speaker)") || !strings.Contains(out, "  2. Phone (Smartphone)") {
			t.Errorf("unexpected device listing %q", out)
		}
	})

	t.Run("without spotify", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: testConfig(t, "sqlite"), Logger: shared.NewLogger(io.Discard)})

		_, err := runCLI(t, runner, "player", "pause")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected service unavailable, got %v", err)
		}
	})
}

func TestLibraryCommands(t *testing.T) {
	for _, driver := range []string{"sqlite", "bolt"} {
		t.Run(driver, func(t *testing.T) {
			api := &tu.FakePlayer{Library: tu.SavedTrackFixtures(75), Country: "US"}
			runner := NewRunner(RunnerOpts{
				Config:  testConfig(t, driver),
				Spotify: api,
				Logger:  shared.NewLogger(io.Discard),
			})

			out, err := runCLI(t, runner, "library", "sync")
			if err != nil {
				t.Fatalf("sync failed: %v", err)
			}
			if !strings.Contains(out, "✓ 75 saved tracks (remote") {
				t.Errorf("expected remote sync summary, got %q", out)
			}

			out, err = runCLI(t, runner, "library", "sync")
			if err != nil {
				t.Fatalf("second sync failed: %v", err)
			}
			if !strings.Contains(out, "✓ 75 saved tracks (storage") {
				t.Errorf("expected storage tier on a new engine, got %q", out)
			}

			out, err = runCLI(t, runner, "library", "count")
			if err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if !strings.Contains(out, "Remote: 75") || !strings.Contains(out, "Stored: 75") || !strings.Contains(out, "up to date") {
				t.Errorf("unexpected count output %q", out)
			}

			out, err = runCLI(t, runner, "library", "search", "--limit", "1", "track 42")
			if err != nil {
				t.Fatalf("search failed: %v", err)
			}
			if !strings.Contains(out, "1. Artist 0 - Track 42") {
				t.Errorf("expected best match first, got %q", out)
			}

			path := filepath.Join(t.TempDir(), "tracks.csv")
			if _, err := runCLI(t, runner, "library", "export", "--format", "csv", "--output", path); err != nil {
				t.Fatalf("export failed: %v", err)
			}
			content := tu.MustReadFile(t, path)
			if got := strings.Count(content, "\n"); got != 76 {
				t.Errorf("expected header plus 75 rows, got %d lines", got)
			}
		})
	}

	t.Run("invalid export format", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config:  testConfig(t, "sqlite"),
			Spotify: &tu.FakePlayer{},
			Logger:  shared.NewLogger(io.Discard),
		})

		_, err := runCLI(t, runner, "library", "export", "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("sync failure", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config:  testConfig(t, "sqlite"),
			Spotify: &tu.FakePlayer{Library: tu.SavedTrackFixtures(10), PageErr: shared.ErrAPIRequest},
			Logger:  shared.NewLogger(io.Discard),
		})

		_, err := runCLI(t, runner, "library", "sync")
		if !errors.Is(err, shared.ErrSyncFailed) {
			t.Errorf("expected sync failure, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
	out, err := runCLI(t, runner, "setup", "--config", "spindle.toml")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "spindle.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "spindle.db"))
	if !strings.Contains(out, "Storage ready") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestAuth(t *testing.T) {
	t.Run("requires client credentials", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = ""
		runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath, Logger: shared.NewLogger(io.Discard)})

		_, err := runCLI(t, runner, "auth", "--config", configPath)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})

	t.Run("times out without a callback", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := shared.DefaultConfig()
		config.Credentials.Spotify.RedirectURI = "http://127.0.0.1:0/callback"
		runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath, Logger: shared.NewLogger(io.Discard)})

		var opened string
		openBrowser = func(url string) error {
			opened = url
			return errors.New("no display")
		}
		t.Cleanup(func() { openBrowser = shared.OpenBrowser })

		out, err := runCLI(t, runner, "auth", "--config", configPath, "--timeout", "50ms")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected timeout error, got %v", err)
		}
		if !strings.Contains(opened, "accounts.spotify.com") {
			t.Errorf("expected authorization URL to be opened, got %q", opened)
		}
		if !strings.Contains(out, opened) {
			t.Errorf("expected URL fallback in output, got %q", out)
		}
	})
}

func TestParsers(t *testing.T) {
	t.Run("parsePosition", func(t *testing.T) {
		valid := map[string]int{"1:30": 90000, "0:05": 5000, "45": 45000, "2m": 120000, "1500ms": 1500}
		for arg, want := range valid {
			got, err := parsePosition(arg)
			if err != nil || got != want {
				t.Errorf("parsePosition(%q) = %d, %v; want %d", arg, got, err, want)
			}
		}
		for _, arg := range []string{"", "1:75", "soon", "-10"} {
			if _, err := parsePosition(arg); err == nil {
				t.Errorf("parsePosition(%q) expected error", arg)
			}
		}
	})

	t.Run("parseToggle", func(t *testing.T) {
		if on, err := parseToggle("ON"); err != nil || !on {
			t.Errorf("expected on, got %v %v", on, err)
		}
		if on, err := parseToggle("off"); err != nil || on {
			t.Errorf("expected off, got %v %v", on, err)
		}
		if _, err := parseToggle("maybe"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("callbackAddr", func(t *testing.T) {
		cases := map[string]string{
			"http://127.0.0.1:3000/callback": "127.0.0.1:3000",
			"http://localhost/callback":      "localhost:80",
		}
		for uri, want := range cases {
			if got, err := callbackAddr(uri); err != nil || got != want {
				t.Errorf("callbackAddr(%q) = %q, %v; want %q", uri, got, err, want)
			}
		}
		if _, err := callbackAddr("/callback"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected invalid config, got %v", err)
		}
	})
}
