package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/filmdiary/internal/config"
)

func newTestTMDB(t *testing.T, handler http.HandlerFunc) *TMDBClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTMDBClient(&config.Config{
		TMDBAPIKey:   "test-key",
		TMDBLanguage: "es-ES",
		TMDBBaseURL:  srv.URL + "/",
		TMDBTimeout:  5 * time.Second,
	})
}

func TestTMDBListingSendsKeyLanguageAndPage(t *testing.T) {
	var got *http.Request
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"page":2,"results":[{"id":603,"title":"Matrix","release_date":"1999-03-31"}],"total_pages":10,"total_results":200}`))
	})

	page, err := client.TopRated(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, "/movie/top_rated", got.URL.Path)
	assert.Equal(t, "test-key", got.URL.Query().Get("api_key"))
	assert.Equal(t, "es-ES", got.URL.Query().Get("language"))
	assert.Equal(t, "2", got.URL.Query().Get("page"))
	assert.Equal(t, 10, page.TotalPages)
	require.Len(t, page.Results, 1)
	assert.Equal(t, 1999, page.Results[0].Year())
}

func TestTMDBPageDefaultsToOne(t *testing.T) {
	var page string
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		page = r.URL.Query().Get("page")
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	_, err := client.Popular(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "1", page)
}

func TestTMDBSearchAndGenre(t *testing.T) {
	var paths []string
	var queries []string
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		queries = append(queries, r.URL.Query().Get("query")+r.URL.Query().Get("with_genres"))
		_, _ = w.Write([]byte(`{"results":[]}`))
	})

	_, err := client.Search(context.Background(), "la la land", 1)
	require.NoError(t, err)
	_, err = client.ByGenre(context.Background(), GenreSciFi, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"/search/movie", "/discover/movie"}, paths)
	assert.Equal(t, []string{"la la land", "878"}, queries)
}

func TestTMDBMovieDetails(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/603", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","runtime":136,"genres":[{"id":28,"name":"Acción"},{"id":878,"name":"Ciencia ficción"}]}`))
	})

	d, err := client.MovieDetails(context.Background(), 603)
	require.NoError(t, err)
	assert.Equal(t, 603, d.ID)
	assert.Equal(t, 136, d.Runtime)
	assert.Equal(t, []string{"Acción", "Ciencia ficción"}, d.GenreNames())
}

func TestTMDBNon2xxIsAPIError(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_message":"Invalid API key"}`))
	})

	_, err := client.Popular(context.Background(), 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.EqualError(t, err, "TMDB API Error: 401")
}

func TestTMDBUnknownListing(t *testing.T) {
	client := newTestTMDB(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.Listing(context.Background(), "trending", 1)
	assert.Error(t, err)
}

func TestTMDBConfigured(t *testing.T) {
	assert.False(t, NewTMDBClient(&config.Config{}).Configured())
	assert.True(t, NewTMDBClient(&config.Config{TMDBAPIKey: "k"}).Configured())
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, PlaceholderImage, ImageURL("", "w500"))
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", ImageURL("/abc.jpg", "w500"))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/abc.jpg", ImageURL("abc.jpg", "original"))
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", ImageURL("/abc.jpg", "w9999"))
	assert.Equal(t, "https://cdn.example.com/x.jpg", ImageURL("https://cdn.example.com/x.jpg", "w92"))
}

func TestPosterURLEmpty(t *testing.T) {
	assert.Empty(t, PosterURL("", "w92"))
}
