package takeout

import "strings"

// Wire types for the Takeout server API. Field names follow the
// server's CapCase JSON keys.

type userRequest struct {
	User string `json:"User"`
	Pass string `json:"Pass"`
}

// Tokens is the credential triple returned by login. The session is
// valid only while all three are non-empty.
type Tokens struct {
	AccessToken  string `json:"AccessToken"`
	MediaToken   string `json:"MediaToken"`
	RefreshToken string `json:"RefreshToken"`
}

// Valid reports whether all three tokens are present.
func (t Tokens) Valid() bool {
	return t.AccessToken != "" && t.MediaToken != "" && t.RefreshToken != ""
}

// refreshTokens is the access/refresh pair returned by a token refresh.
// The media token is not rotated and is carried over from the old set.
type refreshTokens struct {
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken"`
}

func (t refreshTokens) valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// Movie is a catalog movie entry.
type Movie struct {
	ID           int      `json:"ID"`
	TMID         int      `json:"TMID"`
	IMID         string   `json:"IMID"`
	Title        string   `json:"Title"`
	SortTitle    string   `json:"SortTitle"`
	Date         string   `json:"Date"`
	Rating       string   `json:"Rating"`
	Tagline      string   `json:"Tagline"`
	Overview     string   `json:"Overview"`
	Runtime      int      `json:"Runtime"`
	VoteAverage  *float64 `json:"VoteAverage"`
	VoteCount    *int     `json:"VoteCount"`
	BackdropPath string   `json:"BackdropPath"`
	PosterPath   string   `json:"PosterPath"`
	ETag         string   `json:"ETag"`
}

// Key returns the movie's etag with the surrounding quotes stripped.
func (m Movie) Key() string {
	return strings.ReplaceAll(m.ETag, `"`, "")
}

// TVSeries is a catalog TV series entry.
type TVSeries struct {
	ID           int      `json:"ID"`
	TVID         int      `json:"TVID"`
	Name         string   `json:"Name"`
	SortName     string   `json:"SortName"`
	Overview     string   `json:"Overview"`
	Date         string   `json:"Date"`
	EndDate      string   `json:"EndDate"`
	Tagline      string   `json:"Tagline"`
	SeasonCount  int      `json:"SeasonCount"`
	EpisodeCount int      `json:"EpisodeCount"`
	VoteAverage  *float64 `json:"VoteAverage"`
	VoteCount    *int     `json:"VoteCount"`
	PosterPath   string   `json:"PosterPath"`
	BackdropPath string   `json:"BackdropPath"`
	Rating       string   `json:"Rating"`
}

// TVEpisode is a catalog TV episode entry.
type TVEpisode struct {
	ID          int      `json:"ID"`
	TVID        int      `json:"TVID"`
	Name        string   `json:"Name"`
	Overview    string   `json:"Overview"`
	Date        string   `json:"Date"`
	StillPath   string   `json:"StillPath"`
	Runtime     int      `json:"Runtime"`
	Season      int      `json:"Season"`
	Episode     int      `json:"Episode"`
	VoteAverage *float64 `json:"VoteAverage"`
	VoteCount   *int     `json:"VoteCount"`
	ETag        string   `json:"ETag"`
	Size        int64    `json:"Size"`
}

// Key returns the episode's etag with the surrounding quotes stripped.
func (e TVEpisode) Key() string {
	return strings.ReplaceAll(e.ETag, `"`, "")
}

// Person is a cast or crew member.
type Person struct {
	ID          int     `json:"ID"`
	PEID        int     `json:"PEID"`
	Name        string  `json:"Name"`
	ProfilePath *string `json:"ProfilePath"`
	Bio         *string `json:"Bio"`
	Birthplace  *string `json:"Birthplace"`
	Birthday    *string `json:"Birthday"`
	Deathday    *string `json:"Deathday"`
}

// Cast binds a person to a character in a movie or episode.
type Cast struct {
	ID        int    `json:"ID"`
	PEID      int    `json:"PEID"`
	Character string `json:"Character"`
	Person    Person `json:"Person"`
}

// Recommend is a server-named recommendation shelf.
type Recommend struct {
	Name   string  `json:"Name"`
	Movies []Movie `json:"Movies"`
}

/// HomeView is the home feed: recently added movies and episodes, newly
// released movies, plus optional recommendation shelves.
type HomeView struct {
	AddedMovies     []Movie     `json:"AddedMovies"`
	NewMovies       []Movie     `json:"NewMovies"`
	RecommendMovies []Recommend `json:"RecommendMovies"`
	AddedTVEpisodes []TVEpisode `json:"AddedTVEpisodes"`
}

// MoviesView is the full movie catalog.
type MoviesView struct {
	Movies []Movie `json:"Movies"`
}

// MovieView is a single movie's detail, including its playable location.
type MovieView struct {
	Movie     Movie    `json:"Movie"`
	Location  string   `json:"Location"`
	Other     []Movie  `json:"Other"`
	Cast      []Cast   `json:"Cast"`
	Genres    []string `json:"Genres"`
	Vote      *int     `json:"Vote"`
	VoteCount *int     `json:"VoteCount"`
}

// TVListView is the full TV catalog: all series and all episodes.
type TVListView struct {
	Series   []TVSeries  `json:"Series"`
	Episodes []TVEpisode `json:"Episodes"`
}

// TVEpisodeView is a single episode's detail, including its playable
// location and the owning series.
type TVEpisodeView struct {
	Series    TVSeries  `json:"Series"`
	Episode   TVEpisode `json:"Episode"`
	Location  string    `json:"Location"`
	Cast      []Cast    `json:"Cast"`
	Vote      *int      `json:"Vote"`
	VoteCount *int      `json:"VoteCount"`
}

// MovieCredits is a person's movie filmography.
type MovieCredits struct {
	Starring  []Movie `json:"Starring"`
	Directing []Movie `json:"Directing"`
	Writing   []Movie `json:"Writing"`
}

// TVCredits is a person's TV filmography.
type TVCredits struct {
	Starring  []TVSeries `json:"Starring"`
	Directing []TVSeries `json:"Directing"`
	Writing   []TVSeries `json:"Writing"`
}

// ProfileView is a person's bio plus filmography.
type ProfileView struct {
	Person Person       `json:"Person"`
	Movies MovieCredits `json:"Movies"`
	Shows  TVCredits    `json:"Shows"`
}

// SearchView is the result of a free-text search.
type SearchView struct {
	Movies []Movie `json:"Movies"`
	Query  string  `json:"Query"`
	Hits   string  `json:"Hits"`
}

// Offset is a remote watch position keyed by content etag, not by ID.
type Offset struct {
	ID       *int   `json:"ID,omitempty"`
	ETag     string `json:"ETag"`
	Duration int    `json:"Duration,omitempty"` // whole seconds
	Offset   int    `json:"Offset"`             // whole seconds
	Date     string `json:"Date"`               // UTC, with or without fractional seconds
}

// Offsets is the batch body for a progress push.
type Offsets struct {
	Offsets []Offset `json:"Offsets"`
}

// ProgressView is the full remote progress list.
type ProgressView struct {
	Offsets []Offset `json:"Offsets"`
}
