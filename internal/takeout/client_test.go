package takeout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tako-tv/tako/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	session := NewSession(srv.URL, testTokens(), log.Null())
	return NewClient(session), srv
}

func TestClientPaths(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeJSON(w, map[string]any{})
	})

	ctx := context.Background()

	_, err := client.Movie(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "/api/movies/42", gotPath)

	_, err = client.TVEpisode(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "/api/tv/episodes/7", gotPath)

	_, err = client.Profile(ctx, 19)
	require.NoError(t, err)
	assert.Equal(t, "/api/profiles/19", gotPath)

	_, err = client.TVList(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/api/tv", gotPath)
}

func TestClientSearchEscapesQuery(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		writeJSON(w, SearchView{})
	})

	_, err := client.Search(context.Background(), `blade runner & "more"`)
	require.NoError(t, err)
	assert.Equal(t, `blade runner & "more"`, gotQuery)
}

func TestClientMovieDecodesEtag(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"Movie": map[string]any{
				"ID":    42,
				"Title": "Alien",
				"ETag":  `"abc123"`,
			},
			"Location": "/api/movies/42/location",
		})
	})

	view, err := client.Movie(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Alien", view.Movie.Title)
	assert.Equal(t, "abc123", view.Movie.Key(), "etag quotes are stripped")
	assert.Equal(t, "/api/movies/42/location", view.Location)
}

func TestClientUpdateProgressReturnsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"accepted", http.StatusOK},
		{"no content", http.StatusNoContent},
		{"rejected", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/progress", r.URL.Path)
				w.WriteHeader(tt.status)
			})

			status, err := client.UpdateProgress(context.Background(), Offsets{
				Offsets: []Offset{{ETag: "abc", Offset: 120}},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestClientUpdateProgressTransportError(t *testing.T) {
	session := NewSession("http://127.0.0.1:1", testTokens(), log.Null())
	client := NewClient(session)

	status, err := client.UpdateProgress(context.Background(), Offsets{})
	assert.Error(t, err)
	assert.Zero(t, status)
}
