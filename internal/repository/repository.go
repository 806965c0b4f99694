package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/tako-tv/tako/internal/domain"
	"github.com/tako-tv/tako/internal/takeout"
)

const (
	groupNewReleases   = "New Releases"
	groupRecentlyAdded = "Recently Added"
	groupNewEpisodes   = "New Episodes"
)

// Repository holds the in-memory catalog for one signed-in user. The
// catalog is loaded once per process (or per explicit refresh) from the
// movie, TV, home and progress endpoints, then served from cache.
type Repository struct {
	session *takeout.Session
	client  *takeout.Client
	logger  *slog.Logger

	loadMu sync.Mutex // serializes load cycles

	mu            sync.RWMutex // guards the caches below
	movies        []domain.Video
	episodes      []domain.Video
	series        []domain.Series
	newMovies     []domain.Video
	addedMovies   []domain.Video
	addedEpisodes []domain.Video
	recommend     []domain.VideoGroup
	etagIndex     map[string]domain.Video
	offsets       map[string]takeout.Offset // keyed by etag
}

// New creates a repository over an authenticated client.
func New(client *takeout.Client, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		session:   client.Session(),
		client:    client,
		logger:    logger,
		etagIndex: make(map[string]domain.Video),
		offsets:   make(map[string]takeout.Offset),
	}
}

// Clear discards the entire catalog cache. The next read reloads.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movies = nil
	r.episodes = nil
	r.series = nil
	r.newMovies = nil
	r.addedMovies = nil
	r.addedEpisodes = nil
	r.recommend = nil
	r.etagIndex = make(map[string]domain.Video)
	r.offsets = make(map[string]takeout.Offset)
}

func (r *Repository) loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.etagIndex) > 0
}

// load performs one full catalog fetch if the cache is cold. Concurrent
// callers block on the same cycle and see its result. The caches are
// only committed after every fetch succeeded, so a mid-cycle failure
// leaves the repository empty rather than partially populated.
func (r *Repository) load(ctx context.Context) error {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	if !r.session.LoggedIn() {
		return nil
	}
	if r.loaded() {
		return nil
	}

	moviesView, err := r.client.Movies(ctx)
	if err != nil {
		return r.failLoad(err)
	}
	tvView, err := r.client.TVList(ctx)
	if err != nil {
		return r.failLoad(err)
	}
	homeView, err := r.client.Home(ctx)
	if err != nil {
		return r.failLoad(err)
	}
	progressView, err := r.client.Progress(ctx)
	if err != nil {
		return r.failLoad(err)
	}

	etagIndex := make(map[string]domain.Video)

	movies := make([]domain.Video, 0, len(moviesView.Movies))
	for _, m := range moviesView.Movies {
		v := r.toVideo(m)
		movies = append(movies, v)
		etagIndex[v.ETag] = v
	}

	var episodes []domain.Video
	series := make([]domain.Series, 0, len(tvView.Series))
	for _, s := range tvView.Series {
		var seriesEpisodes []domain.Video
		for _, e := range tvView.Episodes {
			if e.TVID != s.TVID {
				continue
			}
			v := r.toEpisodeVideo(s, e)
			seriesEpisodes = append(seriesEpisodes, v)
			episodes = append(episodes, v)
			etagIndex[v.ETag] = v
		}
		series = append(series, r.toSeries(s, seriesEpisodes))
	}

	newMovies := make([]domain.Video, 0, len(homeView.NewMovies))
	for _, m := range homeView.NewMovies {
		newMovies = append(newMovies, r.toVideo(m))
	}
	addedMovies := make([]domain.Video, 0, len(homeView.AddedMovies))
	for _, m := range homeView.AddedMovies {
		addedMovies = append(addedMovies, r.toVideo(m))
	}

	// Added episodes arrive bare, without their series; resolve them
	// through the etag index built from the TV list above.
	var addedEpisodes []domain.Video
	for _, e := range homeView.AddedTVEpisodes {
		v, ok := etagIndex[e.Key()]
		if !ok {
			r.logger.Debug("added episode not in catalog", "name", e.Name)
			continue
		}
		addedEpisodes = append(addedEpisodes, v)
	}

	// Recommendation shelves reference catalog entries by etag; anything
	// the catalog fetch did not return is dropped.
	var recommend []domain.VideoGroup
	for _, rec := range homeView.RecommendMovies {
		var videos []domain.Video
		for _, m := range rec.Movies {
			v, ok := etagIndex[m.Key()]
			if !ok {
				r.logger.Debug("recommendation not in catalog", "shelf", rec.Name, "title", m.Title)
				continue
			}
			videos = append(videos, v)
		}
		if len(videos) > 0 {
			recommend = append(recommend, domain.VideoGroup{Category: rec.Name, Videos: videos})
		}
	}

	offsets := make(map[string]takeout.Offset, len(progressView.Offsets))
	for _, o := range progressView.Offsets {
		offsets[o.ETag] = o
	}

	r.mu.Lock()
	r.movies = movies
	r.episodes = episodes
	r.series = series
	r.newMovies = newMovies
	r.addedMovies = addedMovies
	r.addedEpisodes = addedEpisodes
	r.recommend = recommend
	r.etagIndex = etagIndex
	r.offsets = offsets
	r.mu.Unlock()

	r.logger.Info("catalog loaded",
		"movies", len(movies),
		"series", len(series),
		"episodes", len(episodes),
		"offsets", len(offsets))
	return nil
}

// failLoad maps a load failure to its recovery policy: an auth failure
// ends the session, anything else is transient and keeps the session so
// the next read can retry.
func (r *Repository) failLoad(err error) error {
	if errors.Is(err, domain.ErrAuthFailed) {
		r.logger.Warn("catalog load failed: not authorized, signing out")
		r.Clear()
		r.session.SignOut()
		return err
	}
	r.logger.Warn("catalog load failed", "error", err)
	return err
}

// HomeGroups returns the home-feed shelves: recommendation rows first,
// then "New Releases", "Recently Added" and "New Episodes". Empty
// shelves are omitted.
func (r *Repository) HomeGroups(ctx context.Context) ([]domain.VideoGroup, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]domain.VideoGroup, 0, len(r.recommend)+3)
	groups = append(groups, r.recommend...)
	if len(r.newMovies) > 0 {
		groups = append(groups, domain.VideoGroup{Category: groupNewReleases, Videos: r.newMovies})
	}
	if len(r.addedMovies) > 0 {
		groups = append(groups, domain.VideoGroup{Category: groupRecentlyAdded, Videos: r.addedMovies})
	}
	if len(r.addedEpisodes) > 0 {
		groups = append(groups, domain.VideoGroup{Category: groupNewEpisodes, Videos: r.addedEpisodes})
	}
	return groups, nil
}

// AllVideos returns every movie in the catalog. When refresh is true
// the cache is cleared first and a full fetch is issued.
func (r *Repository) AllVideos(ctx context.Context, refresh bool) ([]domain.Video, error) {
	if refresh {
		r.Clear()
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Video, len(r.movies))
	copy(out, r.movies)
	return out, nil
}

// AllSeries returns every TV series with its episodes.
func (r *Repository) AllSeries(ctx context.Context, refresh bool) ([]domain.Series, error) {
	if refresh {
		r.Clear()
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Series, len(r.series))
	copy(out, r.series)
	return out, nil
}

// VideoDetail fetches the extended detail for a video by its stable ID.
func (r *Repository) VideoDetail(ctx context.Context, id string) (*domain.Detail, error) {
	if !r.session.LoggedIn() {
		return nil, domain.ErrNotSignedIn
	}

	switch {
	case strings.HasPrefix(id, "takeout://movies/"):
		view, err := r.client.Movie(ctx, numericID(id))
		if err != nil {
			return nil, err
		}
		return r.toMovieDetail(view), nil
	case strings.HasPrefix(id, "takeout://tv/episodes/"):
		view, err := r.client.TVEpisode(ctx, numericID(id))
		if err != nil {
			return nil, err
		}
		return r.toEpisodeDetail(view), nil
	default:
		return nil, domain.ErrItemNotFound
	}
}

// PersonProfile fetches a person's bio and filmography, resolved against
// the loaded catalog so only owned titles appear.
func (r *Repository) PersonProfile(ctx context.Context, id string) (*domain.Profile, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	view, err := r.client.Profile(ctx, numericID(id))
	if err != nil {
		return nil, err
	}

	person := r.toPerson(view.Person)
	profile := &domain.Profile{
		ID:     person.ID,
		Person: person,
	}

	seen := make(map[string]bool)
	addMovies := func(movies []takeout.Movie) {
		for _, m := range movies {
			v := r.toVideo(m)
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			profile.Videos = append(profile.Videos, v)
		}
	}
	addMovies(view.Movies.Starring)
	addMovies(view.Movies.Directing)
	addMovies(view.Movies.Writing)

	addShows := func(shows []takeout.TVSeries) {
		for _, s := range shows {
			id := seriesURI(s.ID)
			if seen[id] {
				continue
			}
			seen[id] = true
			if cached := r.seriesByID(id); cached != nil {
				profile.Series = append(profile.Series, *cached)
			} else {
				profile.Series = append(profile.Series, r.toSeries(s, nil))
			}
		}
	}
	addShows(view.Shows.Starring)
	addShows(view.Shows.Directing)
	addShows(view.Shows.Writing)

	return profile, nil
}

// Search performs a server-side free-text search.
func (r *Repository) Search(ctx context.Context, query string) ([]domain.Video, error) {
	if !r.session.LoggedIn() {
		return nil, domain.ErrNotSignedIn
	}

	view, err := r.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Video, 0, len(view.Movies))
	for _, m := range view.Movies {
		results = append(results, r.toVideo(m))
	}
	return results, nil
}

// VideoByID looks up a cached video by stable ID, falling back to the
// etag index so a bare progress key still resolves.
func (r *Repository) VideoByID(id string) *domain.Video {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.movies {
		if r.movies[i].ID == id {
			v := r.movies[i]
			return &v
		}
	}
	for i := range r.episodes {
		if r.episodes[i].ID == id {
			v := r.episodes[i]
			return &v
		}
	}
	if v, ok := r.etagIndex[id]; ok {
		return &v
	}
	return nil
}

// SeriesVideos returns the cached episodes belonging to a series URI.
func (r *Repository) SeriesVideos(seriesURI string) []domain.Video {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Video
	for _, v := range r.episodes {
		if v.Episode != nil && v.Episode.SeriesURI == seriesURI {
			out = append(out, v)
		}
	}
	return out
}

func (r *Repository) seriesByID(id string) *domain.Series {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.series {
		if r.series[i].ID == id {
			s := r.series[i]
			return &s
		}
	}
	return nil
}
