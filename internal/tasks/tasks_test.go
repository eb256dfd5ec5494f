package tasks

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/cache"
	"github.com/desertthunder/spindle/internal/formatter"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/repositories"
	"github.com/desertthunder/spindle/internal/shared"
	th "github.com/desertthunder/spindle/internal/testing"
)

type engineFixture struct {
	api     *th.FakePlayer
	storage *repositories.RecordStore[models.SavedTrack]
	runs    *repositories.SyncRunRepository
	engine  *LibraryEngine
}

func newEngineFixture(t *testing.T, library []models.SavedTrack) *engineFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := log.New(io.Discard)
	api := &th.FakePlayer{Library: library, Country: "US"}
	storage := repositories.NewRecordStore[models.SavedTrack](db, models.SavedTrack.Key)
	runs := repositories.NewSyncRunRepository(db)

	cfg := shared.LibraryConfig{PageSize: 50}
	sync := cache.NewSynchronizer[models.SavedTrack](cfg.PageSize, 0)
	source := cache.NewSavedTracks(api, storage, sync, logger)
	provider := cache.NewProvider[models.SavedTrack](source, logger)

	return &engineFixture{
		api:     api,
		storage: storage,
		runs:    runs,
		engine:  NewLibraryEngine(provider, source, runs, logger),
	}
}

func musicLibrary() []models.SavedTrack {
	return []models.SavedTrack{
		{Track: models.Item{ID: "a", URI: "spotify:track:a", Name: "Harvest Moon", Artists: []string{"Neil Young"}, Album: "Harvest Moon", DurationMS: 303000}},
		{Track: models.Item{ID: "b", URI: "spotify:track:b", Name: "Heart of Gold", Artists: []string{"Neil Young"}, Album: "Harvest", DurationMS: 187000}},
		{Track: models.Item{ID: "c", URI: "spotify:track:c", Name: "Moonage Daydream", Artists: []string{"David Bowie"}, Album: "Ziggy Stardust", DurationMS: 280000}},
	}
}

func drain(progress chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case u := <-progress:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}

func TestLibraryEngineSync(t *testing.T) {
	ctx := context.Background()

	t.Run("DownloadsThenServesFromMemory", func(t *testing.T) {
		f := newEngineFixture(t, th.SavedTrackFixtures(120))
		progress := make(chan ProgressUpdate, 16)

		result, err := f.engine.Sync(ctx, progress)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if result.Tier != cache.TierRemote || len(result.Tracks) != 120 {
			t.Fatalf("expected 120 tracks from remote, got %d from %s", len(result.Tracks), result.Tier)
		}

		updates := drain(progress)
		if len(updates) != 4 {
			t.Fatalf("expected 3 page updates and 1 summary, got %d", len(updates))
		}
		if updates[0].Step != 50 || updates[0].Total != 120 {
			t.Errorf("unexpected first update: %+v", updates[0])
		}
		last := updates[len(updates)-1]
		if last.Phase != LoadLibrary || last.Data != cache.TierRemote {
			t.Errorf("unexpected summary update: %+v", last)
		}

		result, err = f.engine.Sync(ctx, nil)
		if err != nil {
			t.Fatalf("second Sync failed: %v", err)
		}
		if result.Tier != cache.TierMemory {
			t.Errorf("expected memory tier, got %s", result.Tier)
		}

		runs, err := f.runs.List(ctx, cache.SavedTracksStore, 10)
		if err != nil {
			t.Fatalf("failed to list sync runs: %v", err)
		}
		if len(runs) != 1 || runs[0].Tier != cache.TierRemote.String() {
			t.Errorf("expected only the remote load to be recorded, got %+v", runs)
		}
	})

	t.Run("RecordsStorageLoads", func(t *testing.T) {
		f := newEngineFixture(t, th.SavedTrackFixtures(30))
		if _, err := f.engine.Sync(ctx, nil); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}

		logger := log.New(io.Discard)
		source := cache.NewSavedTracks(f.api, f.storage, cache.NewSynchronizer[models.SavedTrack](50, 0), logger)
		fresh := NewLibraryEngine(cache.NewProvider[models.SavedTrack](source, logger), source, f.runs, logger)

		for range 3 {
			if _, err := fresh.Sync(ctx, nil); err != nil {
				t.Fatalf("Sync failed: %v", err)
			}
		}

		runs, err := f.runs.List(ctx, cache.SavedTracksStore, 10)
		if err != nil {
			t.Fatalf("failed to list sync runs: %v", err)
		}

		tiers := map[string]int{}
		for _, run := range runs {
			tiers[run.Tier]++
		}
		if len(runs) != 2 || tiers["remote"] != 1 || tiers["storage"] != 1 {
			t.Errorf("expected one remote and one storage run, got %v", tiers)
		}
	})

	t.Run("FullChannelDoesNotBlock", func(t *testing.T) {
		f := newEngineFixture(t, th.SavedTrackFixtures(200))
		progress := make(chan ProgressUpdate)

		if _, err := f.engine.Sync(ctx, progress); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
	})

	t.Run("RemoteFailure", func(t *testing.T) {
		f := newEngineFixture(t, th.SavedTrackFixtures(10))
		f.api.PageErr = errors.New("rate limited")

		_, err := f.engine.Sync(ctx, nil)
		if err == nil || !strings.Contains(err.Error(), "failed to load saved tracks") {
			t.Fatalf("expected wrapped load error, got %v", err)
		}
	})
}

func TestLibraryEngineCount(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, th.SavedTrackFixtures(30))

	count, err := f.engine.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count.Remote != 30 || count.Stored != 0 || count.InSync() {
		t.Errorf("unexpected count before sync: %+v", count)
	}

	if _, err := f.engine.Sync(ctx, nil); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	count, err = f.engine.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if !count.InSync() {
		t.Errorf("expected storage in sync after download: %+v", count)
	}
}

func TestLibraryEngineSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("FuzzyMatch", func(t *testing.T) {
		f := newEngineFixture(t, musicLibrary())

		results, err := f.engine.Search(ctx, "moon", 0, nil)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(results))
		}
		for _, r := range results {
			if r.Track.ID == "b" {
				t.Errorf("Heart of Gold should not match moon")
			}
			if len(r.MatchedIndexes) != 4 {
				t.Errorf("expected 4 matched indexes, got %v", r.MatchedIndexes)
			}
		}
	})

	t.Run("MatchesArtists", func(t *testing.T) {
		f := newEngineFixture(t, musicLibrary())

		results, err := f.engine.Search(ctx, "Bowie", 0, nil)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].Track.ID != "c" {
			t.Errorf("expected only Moonage Daydream, got %+v", results)
		}
	})

	t.Run("EmptyQueryWithLimit", func(t *testing.T) {
		f := newEngineFixture(t, musicLibrary())

		results, err := f.engine.Search(ctx, "  ", 2, nil)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 2 || results[0].Track.ID != "a" || results[1].Track.ID != "b" {
			t.Errorf("expected first two tracks in order, got %+v", results)
		}
	})

	t.Run("NoMatches", func(t *testing.T) {
		f := newEngineFixture(t, musicLibrary())

		results, err := f.engine.Search(ctx, "zzzz", 0, nil)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no matches, got %d", len(results))
		}
	})
}

func TestLibraryEngineExport(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, musicLibrary())
	path := filepath.Join(t.TempDir(), "library.csv")
	progress := make(chan ProgressUpdate, 16)

	written, err := f.engine.Export(ctx, path, formatter.FormatCSV, progress)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if written != path {
		t.Errorf("expected %s, got %s", path, written)
	}

	content := th.MustReadFile(t, path)
	if !strings.Contains(content, "a,Harvest Moon,Neil Young,Harvest Moon,303000,,spotify:track:a") {
		t.Errorf("export missing first track, got:\n%s", content)
	}

	updates := drain(progress)
	last := updates[len(updates)-1]
	if last.Phase != ExportLibrary || last.Data != path {
		t.Errorf("unexpected final update: %+v", last)
	}
}

func TestPhaseString(t *testing.T) {
	phases := map[Phase]string{
		LoadLibrary:   "load_library",
		SearchLibrary: "search_library",
		ExportLibrary: "export_library",
		Phase(99):     "",
	}
	for phase, expected := range phases {
		if phase.String() != expected {
			t.Errorf("expected %q, got %q", expected, phase.String())
		}
	}
}
