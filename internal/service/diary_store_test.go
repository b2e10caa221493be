package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/filmdiary/internal/model"
	"github.com/user/filmdiary/internal/repository"
)

const storeKey = "yourDirectoryUserData"

var fixedNow = time.Date(2025, 12, 10, 21, 15, 0, 0, time.UTC)

func newTestStore(t *testing.T, storage repository.Storage) *DiaryStore {
	t.Helper()
	store := NewDiaryStore(
		repository.NewDocumentRepository(storage, storeKey),
		NewNotifier(8),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, store.Load(context.Background()))
	return store
}

func storedDocument(t *testing.T, storage repository.Storage) map[string]json.RawMessage {
	t.Helper()
	raw, err := storage.Get(context.Background(), storeKey)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestLoadAbsentKeyUsesDefaultDocument(t *testing.T) {
	storage := repository.NewMemoryStorage()
	store := newTestStore(t, storage)

	doc := store.Snapshot()
	assert.Empty(t, doc.Watchlist)
	assert.Empty(t, doc.Ratings)
	require.Contains(t, doc.CustomLists, model.DefaultListName)
	assert.Empty(t, doc.CustomLists[model.DefaultListName].Movies)

	stored := storedDocument(t, storage)
	assert.JSONEq(t, `[]`, string(stored["watchlist"]))
	assert.JSONEq(t, `{}`, string(stored["ratings"]))
	assert.Contains(t, string(stored["customLists"]), model.DefaultListName)
}

func TestLoadExistingDocument(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, storeKey, []byte(`{"watchlist":[],"ratings":{"550":{"rating":4.5,"movieTitle":"Fight Club","review":"","watchDate":"2025-12-10"}},"customLists":{}}`)))

	store := newTestStore(t, storage)
	doc := store.Snapshot()
	assert.Equal(t, 4.5, doc.Ratings["550"].Rating)
	assert.NotContains(t, doc.CustomLists, model.DefaultListName)
}

func TestLoadCorruptDocumentFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, storeKey, []byte(`not json`)))

	store := newTestStore(t, storage)
	assert.True(t, store.Loaded())
	assert.Contains(t, store.Snapshot().CustomLists, model.DefaultListName)

	backup, err := storage.Get(ctx, storeKey+repository.CorruptSuffix)
	require.NoError(t, err)
	assert.Equal(t, "not json", string(backup))

	seeded, err := store.Seed(ctx, DemoDocument(fixedNow))
	require.NoError(t, err)
	assert.False(t, seeded, "corrupt data is not the same as no data")
}

type unreadableStorage struct {
	*repository.MemoryStorage
	writes atomic.Int32
}

func (u *unreadableStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("storage temporarily unreadable")
}

func (u *unreadableStorage) Set(ctx context.Context, key string, value []byte) error {
	u.writes.Add(1)
	return u.MemoryStorage.Set(ctx, key, value)
}

func TestLoadReadFailureRefusesWrites(t *testing.T) {
	ctx := context.Background()
	storage := &unreadableStorage{MemoryStorage: repository.NewMemoryStorage()}
	store := NewDiaryStore(repository.NewDocumentRepository(storage, storeKey), NewNotifier(1))

	require.Error(t, store.Load(ctx))
	assert.False(t, store.Loaded())

	assert.ErrorIs(t, store.Rate(ctx, "550", 4, "Fight Club", ""), ErrNotLoaded)
	assert.ErrorIs(t, store.CreateList(ctx, "Nueva", ""), ErrNotLoaded)
	assert.Zero(t, storage.writes.Load())
}

func TestLoadRunsOnce(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemoryStorage()
	store := newTestStore(t, storage)
	require.NoError(t, store.Rate(ctx, "1", 3, "A", ""))

	require.NoError(t, storage.Set(ctx, storeKey, []byte(`{"watchlist":[],"ratings":{},"customLists":{}}`)))
	require.NoError(t, store.Load(ctx))
	assert.Contains(t, store.Snapshot().Ratings, "1")
}

func TestRateStampsTodayAndPersists(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemoryStorage()
	store := newTestStore(t, storage)

	require.NoError(t, store.Rate(ctx, "550", 4.5, "Fight Club", "Una obra maestra"))

	rec := store.Snapshot().Ratings["550"]
	assert.Equal(t, 4.5, rec.Rating)
	assert.Equal(t, "Fight Club", rec.MovieTitle)
	assert.Equal(t, "Una obra maestra", rec.Review)
	assert.Equal(t, "2025-12-10", rec.WatchDate.String())

	assert.Contains(t, string(storedDocument(t, storage)["ratings"]), `"550"`)
}

func TestRateRejectsOutOfRangeRatings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	for _, r := range []float64{-0.5, 5.5, 3.3, 4.25} {
		assert.ErrorIs(t, store.Rate(ctx, "1", r, "", ""), ErrInvalidRating, "rating %v", r)
	}
	assert.ErrorIs(t, store.Rate(ctx, "  ", 3, "", ""), ErrEmptyMovieID)
	assert.Empty(t, store.Snapshot().Ratings)
}

func TestRateUnrateParity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	ops := []struct {
		rate   bool
		id     string
		rating float64
	}{
		{true, "a", 1}, {true, "b", 2}, {false, "a", 0}, {true, "c", 3},
		{true, "a", 4.5}, {false, "b", 0}, {true, "c", 0.5}, {false, "zzz", 0},
	}
	for _, op := range ops {
		if op.rate {
			require.NoError(t, store.Rate(ctx, op.id, op.rating, op.id, ""))
		} else {
			require.NoError(t, store.Unrate(ctx, op.id))
		}
	}

	ratings := store.Snapshot().Ratings
	require.Len(t, ratings, 2)
	assert.Equal(t, 4.5, ratings["a"].Rating)
	assert.Equal(t, 0.5, ratings["c"].Rating)
	assert.NotContains(t, ratings, "b")
}

func TestUnrateMissingDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{MemoryStorage: repository.NewMemoryStorage()}
	store := newTestStore(t, storage)
	storage.attempts.Store(0)

	require.NoError(t, store.Unrate(ctx, "nope"))
	assert.Zero(t, storage.attempts.Load())
}

func TestRateUnrateParityWithPaddedID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	require.NoError(t, store.Rate(ctx, " 550", 4, "Fight Club", ""))
	require.Contains(t, store.Ratings(), "550")

	require.NoError(t, store.Unrate(ctx, " 550 "))
	assert.Empty(t, store.Ratings())
}

func TestCreateListIgnoresBlankNames(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())
	before := len(store.Snapshot().CustomLists)

	require.NoError(t, store.CreateList(ctx, "", "x"))
	require.NoError(t, store.CreateList(ctx, "   ", "x"))

	assert.Len(t, store.Snapshot().CustomLists, before)
}

func TestCreateListOverwritesExisting(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	require.NoError(t, store.CreateList(ctx, "Lluvia", "primera"))
	require.NoError(t, store.AddToList(ctx, "Lluvia", model.Movie{ID: 1, Title: "A"}))
	require.NoError(t, store.CreateList(ctx, "Lluvia", "segunda"))

	list := store.Snapshot().CustomLists["Lluvia"]
	assert.Equal(t, "segunda", list.Description)
	assert.Empty(t, list.Movies)
	assert.Equal(t, fixedNow, list.CreatedAt)
}

func TestListNamesAreCaseSensitive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	require.NoError(t, store.CreateList(ctx, "noir", ""))
	require.NoError(t, store.CreateList(ctx, "Noir", ""))

	lists := store.Snapshot().CustomLists
	assert.Contains(t, lists, "noir")
	assert.Contains(t, lists, "Noir")
}

func TestAddToListIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())
	movie := model.Movie{ID: 603, Title: "The Matrix", PosterPath: "/f89.jpg", ReleaseDate: "1999-03-31", VoteAverage: 8.2}

	require.NoError(t, store.AddToList(ctx, model.DefaultListName, movie))
	require.NoError(t, store.AddToList(ctx, model.DefaultListName, movie))

	movies := store.Snapshot().CustomLists[model.DefaultListName].Movies
	require.Len(t, movies, 1)
	assert.Equal(t, model.ListMovieRef{
		ID:          603,
		Title:       "The Matrix",
		PosterPath:  "/f89.jpg",
		ReleaseDate: "1999-03-31",
		VoteAverage: 8.2,
		AddedAt:     fixedNow,
	}, movies[0])
}

func TestAddToListIgnoresBlankNames(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())
	before := store.Lists()

	require.NoError(t, store.AddToList(ctx, "", model.Movie{ID: 1}))
	require.NoError(t, store.AddToList(ctx, "   ", model.Movie{ID: 1}))

	assert.Equal(t, before, store.Lists())
}

func TestAddToListCreatesMissingList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	require.NoError(t, store.AddToList(ctx, "Nueva", model.Movie{ID: 5}))

	list := store.Snapshot().CustomLists["Nueva"]
	require.Len(t, list.Movies, 1)
	assert.Equal(t, fixedNow, list.CreatedAt)
}

func TestRemoveFromList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())
	require.NoError(t, store.AddToList(ctx, model.DefaultListName, model.Movie{ID: 1}))
	require.NoError(t, store.AddToList(ctx, model.DefaultListName, model.Movie{ID: 2}))

	require.NoError(t, store.RemoveFromList(ctx, model.DefaultListName, 1))
	require.NoError(t, store.RemoveFromList(ctx, model.DefaultListName, 42))
	require.NoError(t, store.RemoveFromList(ctx, "does not exist", 2))

	lists := store.Snapshot().CustomLists
	require.Len(t, lists[model.DefaultListName].Movies, 1)
	assert.Equal(t, 2, lists[model.DefaultListName].Movies[0].ID)
	assert.NotContains(t, lists, "does not exist")
}

func TestDeleteList(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	require.NoError(t, store.DeleteList(ctx, model.DefaultListName))
	require.NoError(t, store.DeleteList(ctx, model.DefaultListName))

	assert.Empty(t, store.Snapshot().CustomLists)
}

func TestLegacyListIsReadableAndNormalizedOnWrite(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemoryStorage()
	legacy := `{"watchlist":[],"ratings":{},"customLists":{
		"Mis Favoritas":[{"id":550,"title":"Fight Club","posterPath":"/fc.jpg"}],
		"Vacía":[]
	}}`
	require.NoError(t, storage.Set(ctx, storeKey, []byte(legacy)))
	store := newTestStore(t, storage)

	require.NoError(t, store.AddToList(ctx, "Mis Favoritas", model.Movie{ID: 550}))
	require.NoError(t, store.AddToList(ctx, "Mis Favoritas", model.Movie{ID: 13, Title: "Forrest Gump"}))
	require.NoError(t, store.RemoveFromList(ctx, "Vacía", 1))

	var lists map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(storedDocument(t, storage)["customLists"], &lists))
	for name, raw := range lists {
		var wrapper struct {
			Movies    []model.ListMovieRef `json:"movies"`
			CreatedAt time.Time            `json:"createdAt"`
		}
		require.Equal(t, byte('{'), raw[0], "list %q must be written as wrapper", name)
		require.NoError(t, json.Unmarshal(raw, &wrapper))
		assert.Equal(t, fixedNow, wrapper.CreatedAt)
	}

	movies := store.Snapshot().CustomLists["Mis Favoritas"].Movies
	require.Len(t, movies, 2)
	assert.Equal(t, 550, movies[0].ID)
	assert.Equal(t, 13, movies[1].ID)
}

func TestLogEntryAndRemoveEntry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	entry := model.DiaryEntry{ID: 603, Title: "The Matrix", Rating: 4.5, WatchedDate: model.MustDate("2025-12-09")}
	require.NoError(t, store.LogEntry(ctx, entry))
	entry.Liked = true
	require.NoError(t, store.LogEntry(ctx, entry))

	watchlist := store.Snapshot().Watchlist
	require.Len(t, watchlist, 1)
	assert.True(t, watchlist[0].Liked)

	assert.ErrorIs(t, store.LogEntry(ctx, model.DiaryEntry{ID: 1}), ErrMissingWatchDate)
	assert.ErrorIs(t, store.LogEntry(ctx, model.DiaryEntry{ID: 1, WatchedDate: model.MustDate("2025-01-01"), Rating: 7}), ErrInvalidRating)
	assert.ErrorIs(t, store.LogEntry(ctx, model.DiaryEntry{WatchedDate: model.MustDate("2025-01-01")}), ErrEmptyMovieID)

	require.NoError(t, store.RemoveEntry(ctx, 603))
	require.NoError(t, store.RemoveEntry(ctx, 603))
	assert.Empty(t, store.Snapshot().Watchlist)
}

func TestSeedOnlyWhenNoStoredDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())

	seeded, err := store.Seed(ctx, DemoDocument(fixedNow))
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Len(t, store.Snapshot().Ratings, 5)

	seeded, err = store.Seed(ctx, DemoDocument(fixedNow))
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())
	require.NoError(t, store.Rate(ctx, "1", 3, "A", ""))

	snap := store.Snapshot()
	snap.Ratings["2"] = model.RatingRecord{}
	delete(snap.Ratings, "1")

	assert.Contains(t, store.Snapshot().Ratings, "1")
	assert.NotContains(t, store.Snapshot().Ratings, "2")
}

func TestReadViewsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())
	require.NoError(t, store.Rate(ctx, "1", 3, "A", ""))
	require.NoError(t, store.AddToList(ctx, model.DefaultListName, model.Movie{ID: 7, Title: "Seven"}))

	ratings := store.Ratings()
	delete(ratings, "1")
	lists := store.Lists()
	fav := lists[model.DefaultListName]
	fav.Movies[0].Title = "changed"
	delete(lists, model.DefaultListName)

	assert.Contains(t, store.Ratings(), "1")
	require.Contains(t, store.Lists(), model.DefaultListName)
	assert.Equal(t, "Seven", store.Lists()[model.DefaultListName].Movies[0].Title)
}

type flakyStorage struct {
	*repository.MemoryStorage
	failures atomic.Int32
	attempts atomic.Int32
}

func (f *flakyStorage) Set(ctx context.Context, key string, value []byte) error {
	f.attempts.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return errors.New("quota exceeded")
	}
	return f.MemoryStorage.Set(ctx, key, value)
}

func TestPersistRetriesOnce(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{MemoryStorage: repository.NewMemoryStorage()}
	store := newTestStore(t, storage)
	storage.attempts.Store(0)
	storage.failures.Store(1)

	require.NoError(t, store.Rate(ctx, "1", 3, "A", ""))
	assert.EqualValues(t, 2, storage.attempts.Load())
	assert.Contains(t, string(storedDocument(t, storage)["ratings"]), `"1"`)
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{MemoryStorage: repository.NewMemoryStorage()}
	store := newTestStore(t, storage)
	storage.attempts.Store(0)
	storage.failures.Store(2)

	require.NoError(t, store.Rate(ctx, "1", 3, "A", ""))
	assert.EqualValues(t, 2, storage.attempts.Load())
	assert.Contains(t, store.Snapshot().Ratings, "1")
	assert.NotContains(t, string(storedDocument(t, storage)["ratings"]), `"1"`)
}

type brokenWrites struct {
	*repository.MemoryStorage
}

func (brokenWrites) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestPersistErrorsAreReturnedWhenRequested(t *testing.T) {
	ctx := context.Background()
	store := NewDiaryStore(
		repository.NewDocumentRepository(brokenWrites{repository.NewMemoryStorage()}, storeKey),
		NewNotifier(1),
		WithClock(func() time.Time { return fixedNow }),
		WithPersistErrors(),
	)
	require.NoError(t, store.Load(ctx))

	err := store.Rate(ctx, "1", 3, "A", "")
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Contains(t, store.Ratings(), "1")

	seeded, err := store.Seed(ctx, DemoDocument(fixedNow))
	assert.False(t, seeded)
	assert.NoError(t, err)

	assert.ErrorIs(t, store.Replace(ctx, DemoDocument(fixedNow)), ErrPersistFailed)
}

func TestMutationsPublishDocumentChanged(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, repository.NewMemoryStorage())
	events, cancel := store.Notifier().Subscribe()
	defer cancel()

	require.NoError(t, store.CreateList(ctx, "Noir", ""))
	require.NoError(t, store.DeleteList(ctx, "missing"))

	select {
	case e := <-events:
		assert.Equal(t, EventDocumentChanged, e.Type)
	default:
		t.Fatal("expected a document.changed event")
	}
	select {
	case e := <-events:
		t.Fatalf("no-op mutation must not publish, got %v", e.Type)
	default:
	}
}

func TestRequestListModal(t *testing.T) {
	store := newTestStore(t, repository.NewMemoryStorage())
	events, cancel := store.Notifier().Subscribe()
	defer cancel()

	delivered := store.RequestListModal(model.Movie{ID: 603, Title: "The Matrix"})
	assert.Equal(t, 1, delivered)

	e := <-events
	assert.Equal(t, EventOpenListModal, e.Type)
	require.NotNil(t, e.Movie)
	assert.Equal(t, 603, e.Movie.ID)
}

func TestValidRating(t *testing.T) {
	for _, r := range []float64{0, 0.5, 1, 2.5, 5} {
		assert.True(t, ValidRating(r), "%v", r)
	}
	for _, r := range []float64{-1, 5.5, 0.25, 4.75} {
		assert.False(t, ValidRating(r), "%v", r)
	}
}

func TestReplaceNormalizesImportedDocument(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemoryStorage()
	store := newTestStore(t, storage)

	imported, err := repository.Decode([]byte(`{"customLists":{"Noir":[{"id":1,"title":"Laura"}]}}`))
	require.NoError(t, err)
	require.NoError(t, store.Replace(ctx, imported))

	doc := store.Snapshot()
	assert.NotNil(t, doc.Watchlist)
	assert.NotNil(t, doc.Ratings)
	assert.Equal(t, fixedNow, doc.CustomLists["Noir"].CreatedAt)
	assert.NotContains(t, doc.CustomLists, model.DefaultListName)

	var lists map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(storedDocument(t, storage)["customLists"], &lists))
	assert.Equal(t, byte('{'), lists["Noir"][0])
}
