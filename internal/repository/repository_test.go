package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tako-tv/tako/internal/domain"
	"github.com/tako-tv/tako/internal/log"
	"github.com/tako-tv/tako/internal/takeout"
)

// fixture is a mutable in-memory Takeout server for repository tests.
type fixture struct {
	movies   takeout.MoviesView
	tv       takeout.TVListView
	home     takeout.HomeView
	progress takeout.ProgressView

	failAll    atomic.Bool // every endpoint returns 500
	rejectAuth atomic.Bool // every endpoint returns 401, refresh included

	movieFetches    atomic.Int32
	progressFetches atomic.Int32
	pushes          atomic.Int32
	pushStatus      atomic.Int32
	lastPush        atomic.Pointer[takeout.Offsets]
}

func voteAvg(f float64) *float64 { return &f }

func newFixture() *fixture {
	alien := takeout.Movie{
		ID: 1, Title: "Alien", SortTitle: "Alien",
		Date: "1979-05-25T00:00:00Z", Rating: "R", Runtime: 117,
		VoteAverage: voteAvg(7.5), ETag: `"e-alien"`,
		PosterPath: "/alien.jpg", BackdropPath: "/alien-bg.jpg",
	}
	orwell := takeout.Movie{
		ID: 2, Title: "1984", SortTitle: "1984",
		Date: "1984-10-10T00:00:00Z", Runtime: 113, ETag: `"e-1984"`,
	}
	unknown := takeout.Movie{ID: 99, Title: "Phantom", ETag: `"e-phantom"`}

	f := &fixture{
		movies: takeout.MoviesView{Movies: []takeout.Movie{alien, orwell}},
		tv: takeout.TVListView{
			Series: []takeout.TVSeries{{
				ID: 10, TVID: 100, Name: "Severance", SortName: "Severance",
				SeasonCount: 1, EpisodeCount: 2, Rating: "TV-MA",
			}},
			Episodes: []takeout.TVEpisode{
				{ID: 201, TVID: 100, Name: "Good News About Hell", Season: 1, Episode: 1, Runtime: 57, ETag: `"e-s1e1"`},
				{ID: 202, TVID: 100, Name: "Half Loop", Season: 1, Episode: 2, Runtime: 52, ETag: `"e-s1e2"`},
				{ID: 999, TVID: 999, Name: "Orphan", Season: 1, Episode: 1, ETag: `"e-orphan"`},
			},
		},
		home: takeout.HomeView{
			AddedMovies: []takeout.Movie{alien},
			NewMovies:   []takeout.Movie{orwell},
			AddedTVEpisodes: []takeout.TVEpisode{
				{ID: 202, TVID: 100, Name: "Half Loop", Season: 1, Episode: 2, ETag: `"e-s1e2"`},
				{ID: 999, TVID: 999, Name: "Orphan", Season: 1, Episode: 1, ETag: `"e-orphan"`},
			},
			RecommendMovies: []takeout.Recommend{
				{Name: "Staff Picks", Movies: []takeout.Movie{alien, unknown}},
				{Name: "Ghost Shelf", Movies: []takeout.Movie{unknown}},
			},
		},
		progress: takeout.ProgressView{Offsets: []takeout.Offset{
			{ETag: "e-alien", Offset: 120, Duration: 7020, Date: "2024-05-01T10:00:00.123Z"},
			{ETag: "e-s1e1", Offset: 30, Date: "2024-05-02T10:00:00Z"},
			{ETag: "e-nowhere", Offset: 10, Date: "2024-05-03T10:00:00Z"},
		}},
	}
	f.pushStatus.Store(http.StatusOK)
	return f
}

func (f *fixture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.rejectAuth.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.failAll.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		switch r.URL.Path {
		case "/api/movies/1":
			json.NewEncoder(w).Encode(takeout.MovieView{
				Movie:    f.movies.Movies[0],
				Location: "/api/movies/1/location",
				Other:    []takeout.Movie{f.movies.Movies[1]},
				Genres:   []string{"Horror", "Sci-Fi"},
				Cast: []takeout.Cast{{
					ID: 1, PEID: 19, Character: "Ripley",
					Person: takeout.Person{ID: 1, PEID: 19, Name: "Sigourney Weaver"},
				}},
			})
		case "/api/tv/episodes/201":
			json.NewEncoder(w).Encode(takeout.TVEpisodeView{
				Series:   f.tv.Series[0],
				Episode:  f.tv.Episodes[0],
				Location: "/api/tv/episodes/201/location",
			})
		case "/api/profiles/19":
			json.NewEncoder(w).Encode(takeout.ProfileView{
				Person: takeout.Person{ID: 1, PEID: 19, Name: "Sigourney Weaver"},
				Movies: takeout.MovieCredits{
					Starring:  []takeout.Movie{f.movies.Movies[0]},
					Directing: []takeout.Movie{f.movies.Movies[0]},
				},
			})
		case "/api/search":
			json.NewEncoder(w).Encode(takeout.SearchView{
				Movies: []takeout.Movie{f.movies.Movies[0]},
				Query:  r.URL.Query().Get("q"),
			})
		case "/api/movies":
			f.movieFetches.Add(1)
			json.NewEncoder(w).Encode(f.movies)
		case "/api/tv":
			json.NewEncoder(w).Encode(f.tv)
		case "/api/home":
			json.NewEncoder(w).Encode(f.home)
		case "/api/progress":
			if r.Method == http.MethodPost {
				f.pushes.Add(1)
				var body takeout.Offsets
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				f.lastPush.Store(&body)
				w.WriteHeader(int(f.pushStatus.Load()))
				return
			}
			f.progressFetches.Add(1)
			json.NewEncoder(w).Encode(f.progress)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestRepo(t *testing.T) (*Repository, *fixture, *takeout.Session) {
	t.Helper()
	f := newFixture()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	session := takeout.NewSession(srv.URL, &takeout.Tokens{
		AccessToken:  "access-1",
		MediaToken:   "media-1",
		RefreshToken: "refresh-1",
	}, log.Null())
	repo := New(takeout.NewClient(session), log.Null())
	return repo, f, session
}

func TestLoadIsIdempotent(t *testing.T) {
	repo, f, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.AllVideos(ctx, false)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	_, err = repo.AllVideos(ctx, false)
	require.NoError(t, err)
	_, err = repo.HomeGroups(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.movieFetches.Load(), "warm cache must not refetch")
}

func TestExplicitRefreshRefetches(t *testing.T) {
	repo, f, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AllVideos(ctx, false)
	require.NoError(t, err)
	_, err = repo.AllVideos(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.movieFetches.Load())
}

func TestLoadNotSignedIn(t *testing.T) {
	repo, f, session := newTestRepo(t)
	session.SignOut()

	groups, err := repo.HomeGroups(context.Background())
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Zero(t, f.movieFetches.Load())
}

func TestLoadTransientFailureKeepsSession(t *testing.T) {
	repo, f, session := newTestRepo(t)
	ctx := context.Background()

	f.failAll.Store(true)
	_, err := repo.AllVideos(ctx, false)
	require.Error(t, err)
	assert.True(t, session.LoggedIn(), "a 500 must not sign out")

	// Recovers on the next read.
	f.failAll.Store(false)
	videos, err := repo.AllVideos(ctx, false)
	require.NoError(t, err)
	assert.Len(t, videos, 2)
}

func TestLoadAuthFailureSignsOut(t *testing.T) {
	repo, f, session := newTestRepo(t)
	ctx := context.Background()

	f.rejectAuth.Store(true)
	_, err := repo.AllVideos(ctx, false)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.False(t, session.LoggedIn())
}

func TestHomeGroups(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	groups, err := repo.HomeGroups(context.Background())
	require.NoError(t, err)

	var names []string
	for _, g := range groups {
		names = append(names, g.Category)
	}
	// The all-unknown "Ghost Shelf" is dropped entirely.
	assert.Equal(t, []string{"Staff Picks", "New Releases", "Recently Added", "New Episodes"}, names)

	// Unknown recommendation entries are dropped, known ones resolve.
	require.Len(t, groups[0].Videos, 1)
	assert.Equal(t, "Alien", groups[0].Videos[0].Name)
	assert.Equal(t, "takeout://movies/1", groups[0].Videos[0].ID)

	// Added episodes resolve through the catalog; the orphan episode
	// belongs to no series and is dropped.
	episodes := groups[3]
	require.Len(t, episodes.Videos, 1)
	assert.Equal(t, "takeout://tv/episodes/202", episodes.Videos[0].ID)
	assert.Equal(t, "S01E02", episodes.Videos[0].EpisodeCode())
}

func TestAllSeriesGroupsEpisodes(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	series, err := repo.AllSeries(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, series, 1)

	s := series[0]
	assert.Equal(t, "takeout://tv/series/10", s.ID)
	require.Len(t, s.Episodes, 2, "orphan episodes belong to no series")
	assert.Equal(t, "S01E01", s.Episodes[0].EpisodeCode())
	assert.Equal(t, domain.VideoTypeEpisode, s.Episodes[0].Type)
	require.NotNil(t, s.Episodes[0].Episode)
	assert.Equal(t, s.ID, s.Episodes[0].Episode.SeriesURI)
}

func TestVideoByID(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	_, err := repo.AllVideos(context.Background(), false)
	require.NoError(t, err)

	v := repo.VideoByID("takeout://movies/1")
	require.NotNil(t, v)
	assert.Equal(t, "Alien", v.Name)
	assert.Equal(t, "e-alien", v.ETag, "wire etag quotes are stripped")

	ep := repo.VideoByID("takeout://tv/episodes/202")
	require.NotNil(t, ep)
	assert.Equal(t, "Half Loop", ep.Name)

	// Etag fallback resolves bare progress keys.
	byEtag := repo.VideoByID("e-s1e1")
	require.NotNil(t, byEtag)
	assert.Equal(t, "takeout://tv/episodes/201", byEtag.ID)

	assert.Nil(t, repo.VideoByID("takeout://movies/12345"))
}

func TestSeriesVideos(t *testing.T) {
	repo, _, _ := newTestRepo(t)
	_, err := repo.AllSeries(context.Background(), false)
	require.NoError(t, err)

	episodes := repo.SeriesVideos("takeout://tv/series/10")
	assert.Len(t, episodes, 2)
	assert.Empty(t, repo.SeriesVideos("takeout://tv/series/999"))
}

func TestVideoDetail(t *testing.T) {
	repo, _, session := newTestRepo(t)
	ctx := context.Background()

	d, err := repo.VideoDetail(ctx, "takeout://movies/1")
	require.NoError(t, err)
	assert.Equal(t, session.Endpoint()+"/api/movies/1/location", d.URI)
	assert.Equal(t, "Bearer media-1", d.Headers["Authorization"], "streams use the media token")
	assert.Equal(t, []string{"Horror", "Sci-Fi"}, d.Genres)
	require.Len(t, d.Cast, 1)
	assert.Equal(t, "Ripley", d.Cast[0].Character)
	require.Len(t, d.Related, 1)
	assert.Equal(t, "1984", d.Related[0].Name)

	ep, err := repo.VideoDetail(ctx, "takeout://tv/episodes/201")
	require.NoError(t, err)
	assert.Equal(t, "S01E01", ep.Video.EpisodeCode())
	assert.Equal(t, session.Endpoint()+"/api/tv/episodes/201/location", ep.URI)

	_, err = repo.VideoDetail(ctx, "takeout://people/19")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestVideoDetailNotSignedIn(t *testing.T) {
	repo, _, session := newTestRepo(t)
	session.SignOut()

	_, err := repo.VideoDetail(context.Background(), "takeout://movies/1")
	assert.ErrorIs(t, err, domain.ErrNotSignedIn)
}

func TestPersonProfile(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	p, err := repo.PersonProfile(context.Background(), "takeout://people/19")
	require.NoError(t, err)
	assert.Equal(t, "Sigourney Weaver", p.Person.Name)
	assert.Len(t, p.Videos, 1, "starring and directing credits deduplicate")
}

func TestSearch(t *testing.T) {
	repo, _, _ := newTestRepo(t)

	results, err := repo.Search(context.Background(), "alien")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Alien", results[0].Name)
}

func TestVideoMapping(t *testing.T) {
	repo, _, session := newTestRepo(t)
	_, err := repo.AllVideos(context.Background(), false)
	require.NoError(t, err)

	v := repo.VideoByID("takeout://movies/1")
	require.NotNil(t, v)
	assert.Equal(t, 1979, v.Year)
	assert.Equal(t, "PT01H57M", v.Duration)
	assert.Equal(t, 75, v.Vote)
	assert.Equal(t, "A", v.Category)
	assert.Equal(t, session.Endpoint()+"/img/tm/w342/alien.jpg", v.ThumbnailURI)
	assert.Equal(t, session.Endpoint()+"/img/tm/w1280/alien-bg.jpg", v.BackgroundImageURI)

	numeric := repo.VideoByID("takeout://movies/2")
	require.NotNil(t, numeric)
	assert.Equal(t, "#", numeric.Category, "leading digit collapses to #")
}
