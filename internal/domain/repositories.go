package domain

import "context"

// VideoRepository provides domain-level access to the loaded catalog.
type VideoRepository interface {
	// HomeGroups returns the home-feed shelves: recommendation rows,
	// "New Releases" and "Recently Added". Loads the catalog if cold.
	HomeGroups(ctx context.Context) ([]VideoGroup, error)

	// AllVideos returns every movie in the catalog. When refresh is true
	// the cache is cleared first and a full fetch is issued.
	AllVideos(ctx context.Context, refresh bool) ([]Video, error)

	// AllSeries returns every TV series with its episodes.
	AllSeries(ctx context.Context, refresh bool) ([]Series, error)

	// VideoDetail fetches the extended detail for a video by its stable ID.
	VideoDetail(ctx context.Context, id string) (*Detail, error)

	// PersonProfile fetches a person's bio and filmography.
	PersonProfile(ctx context.Context, id string) (*Profile, error)

	// Search performs a server-side free-text search.
	Search(ctx context.Context, query string) ([]Video, error)

	// VideoByID looks up a cached video by stable ID, falling back to the
	// etag index so a bare progress key still resolves.
	VideoByID(id string) *Video

	// SeriesVideos returns the cached episodes belonging to a series URI.
	SeriesVideos(seriesURI string) []Video

	// VideoProgress returns the remote watch position for a video, if any.
	VideoProgress(v Video) *Progress

	// UpdateProgress pushes a batch of local positions to the server.
	// Returns the number of records that resolved to a known etag and
	// were included in the push; a failed push still counts zero.
	UpdateProgress(ctx context.Context, records []Progress) (int, error)

	// RemoteProgress re-fetches the authoritative remote offset list and
	// returns it resolved to known videos. Unknown etags are dropped.
	RemoteProgress(ctx context.Context) ([]Progress, error)
}

// ProgressStore persists per-video watch positions locally.
type ProgressStore interface {
	GetProgress(videoID string) (WatchProgress, bool)
	PutProgress(p WatchProgress) error
	AllProgress() ([]WatchProgress, error)
	DeleteProgress(videoID string) error
	ClearProgress() error
}

// CredentialStore persists the token set between runs.
type CredentialStore interface {
	Credentials() (Credentials, bool)
	SaveCredentials(c Credentials) error
	ClearCredentials() error
}
