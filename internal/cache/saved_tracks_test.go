package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	th "github.com/desertthunder/spindle/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSavedTracksFixture(n int) (*th.FakePlayer, *memStorage[models.SavedTrack], *SavedTracks) {
	api := &th.FakePlayer{Library: th.SavedTrackFixtures(n), Country: "SE"}
	storage := newMemStorage[models.SavedTrack]()
	source := NewSavedTracks(api, storage, NewSynchronizer[models.SavedTrack](50, 0), discardLogger())
	return api, storage, source
}

func TestSavedTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("remote count", func(t *testing.T) {
		api, _, source := newSavedTracksFixture(130)

		count, err := source.RemoteCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 130, count)
		assert.Equal(t, 1, api.Pages())
	})

	t.Run("storage validity follows counts", func(t *testing.T) {
		_, storage, source := newSavedTracksFixture(3)

		valid, err := source.StorageValid(ctx)
		require.NoError(t, err)
		assert.False(t, valid)

		require.NoError(t, storage.Save(ctx, SavedTracksStore, th.SavedTrackFixtures(3)))
		valid, err = source.StorageValid(ctx)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("memory validity follows counts", func(t *testing.T) {
		_, _, source := newSavedTracksFixture(3)

		valid, err := source.MemoryValid(ctx, th.SavedTrackFixtures(2))
		require.NoError(t, err)
		assert.False(t, valid)

		valid, err = source.MemoryValid(ctx, th.SavedTrackFixtures(3))
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("remote failure propagates", func(t *testing.T) {
		api, _, source := newSavedTracksFixture(3)
		api.PageErr = errors.New("boom")

		_, err := source.StorageValid(ctx)
		assert.ErrorContains(t, err, "failed to count saved tracks")
	})
}

func TestSavedTrackProvider(t *testing.T) {
	ctx := context.Background()
	cfg := shared.LibraryConfig{PageSize: 50}

	t.Run("stale storage is replaced from remote", func(t *testing.T) {
		api := &th.FakePlayer{Library: th.SavedTrackFixtures(130), Country: "SE"}
		storage := newMemStorage[models.SavedTrack]()
		require.NoError(t, storage.Save(ctx, SavedTracksStore, th.SavedTrackFixtures(10)))

		provider, _ := NewSavedTrackProvider(api, storage, cfg, discardLogger())

		var last progressCall
		items, tier, err := provider.Load(ctx, func(done, total int) { last = progressCall{done, total} })
		require.NoError(t, err)
		assert.Equal(t, TierRemote, tier)
		assert.Len(t, items, 130)
		assert.Equal(t, progressCall{130, 130}, last)
		assert.Equal(t, 1, storage.clears)

		stored, err := storage.Count(ctx, SavedTracksStore)
		require.NoError(t, err)
		assert.Equal(t, 130, stored)

		fresh, _ := NewSavedTrackProvider(api, storage, cfg, discardLogger())
		items, tier, err = fresh.Load(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, TierStorage, tier)
		assert.Len(t, items, 130)
		assert.Equal(t, "t0", items[0].Key())
		assert.Equal(t, "t129", items[129].Key())
	})

	t.Run("memory tier after download", func(t *testing.T) {
		api := &th.FakePlayer{Library: th.SavedTrackFixtures(20), Country: "SE"}
		provider, _ := NewSavedTrackProvider(api, newMemStorage[models.SavedTrack](), cfg, discardLogger())

		_, err := provider.GetData(ctx, nil)
		require.NoError(t, err)
		pages := api.Pages()

		_, tier, err := provider.Load(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, TierMemory, tier)
		assert.Equal(t, pages+1, api.Pages(), "memory validation costs one count request")
	})

	t.Run("new remote items invalidate memory", func(t *testing.T) {
		api := &th.FakePlayer{Library: th.SavedTrackFixtures(20), Country: "SE"}
		storage := newMemStorage[models.SavedTrack]()
		provider, _ := NewSavedTrackProvider(api, storage, cfg, discardLogger())

		_, err := provider.GetData(ctx, nil)
		require.NoError(t, err)

		api.Library = th.SavedTrackFixtures(25)
		items, tier, err := provider.Load(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, TierRemote, tier)
		assert.Len(t, items, 25)

		stored, _ := storage.Count(ctx, SavedTracksStore)
		assert.Equal(t, 25, stored)
	})
}
