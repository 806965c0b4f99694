package domain

import (
	"fmt"
	"time"
)

// VideoType distinguishes movies from TV episodes.
type VideoType int

const (
	VideoTypeMovie VideoType = iota
	VideoTypeEpisode
)

// String returns a human-readable representation of the video type.
func (t VideoType) String() string {
	switch t {
	case VideoTypeMovie:
		return "movie"
	case VideoTypeEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// EpisodeInfo carries the fields that only exist for TV episodes.
// A Video representing a movie has a nil EpisodeInfo.
type EpisodeInfo struct {
	Season    int    // Season number (0 = specials)
	Episode   int    // Episode number within season
	SeriesURI string // takeout://tv/series/{id}
	SeasonURI string // takeout://tv/series/{id}/season/{n}
}

// Video is the unified playable item: a movie or a TV episode.
type Video struct {
	ID                 string    // Stable scheme-qualified identifier, e.g. takeout://movies/42
	Name               string    // Display title
	Description        string    // Plot synopsis
	ThumbnailURI       string    // Poster image URL
	BackgroundImageURI string    // Backdrop image URL
	Category           string    // Single-letter browse bucket derived from the sort title
	Type               VideoType // Movie or Episode
	Year               int       // Release year (0 if unknown)
	Rating             string    // Content rating ("PG-13", "TV-MA")
	Tagline            string
	Duration           string // ISO-8601 duration, e.g. "PT01H42M"
	Vote               int    // Community score 0-100
	ETag               string // Content checksum; the join key for progress sync

	Episode *EpisodeInfo // nil for movies
}

// DurationValue parses the ISO-8601 duration string into a
// time.Duration, zero when absent or malformed.
func (v Video) DurationValue() time.Duration {
	var h, m int
	if _, err := fmt.Sscanf(v.Duration, "PT%dH%dM", &h, &m); err != nil {
		return 0
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}

// EpisodeCode returns the formatted episode code (e.g. "S01E05").
func (v Video) EpisodeCode() string {
	if v.Episode == nil {
		return ""
	}
	return fmt.Sprintf("S%02dE%02d", v.Episode.Season, v.Episode.Episode)
}

// VideoGroup is a named, ordered shelf of videos ("New Releases",
// a recommendation row, or a browse-by-letter bucket).
type VideoGroup struct {
	Category string
	Videos   []Video
}

// Series is a TV series with its episodes in server order.
type Series struct {
	ID                 string
	Name               string
	ThumbnailURI       string
	BackgroundImageURI string
	Tagline            string
	Rating             string
	Year               int
	Vote               int
	SeasonCount        int
	EpisodeCount       int
	Episodes           []Video
}

// Person is a cast or crew member.
type Person struct {
	ID           string
	Name         string
	Bio          string
	Birthplace   string
	Birthday     int // Birth year (0 if unknown)
	ThumbnailURI string
}

// Cast binds a person to the character they play.
type Cast struct {
	ID        string
	Person    Person
	Character string
}

// Detail is the lazily fetched extended view of a single video,
// including the playable location and the headers required to stream it.
type Detail struct {
	ID      string
	URI     string            // Direct playable URI
	Headers map[string]string // Bearer media token + user agent for streaming
	Video   Video
	Genres  []string
	Cast    []Cast
	Related []Video
}

// Profile is a person's bio plus their filmography resolved against
// the loaded catalog.
type Profile struct {
	ID     string
	Person Person
	Videos []Video
	Series []Series
}

// Progress is a resolved watch position for a video. Positions are
// millisecond precision locally; the server stores whole seconds.
type Progress struct {
	VideoID   string
	Position  int64 // milliseconds
	Duration  int64 // milliseconds, 0 if unknown
	Timestamp time.Time
}

// WatchProgress is a locally persisted watch position row. One row per
// video, upsert semantics, ordered by ModifiedAt descending for the
// continue-watching shelf.
type WatchProgress struct {
	VideoID    string    `json:"video_id"`
	Position   int64     `json:"position"` // milliseconds
	Duration   int64     `json:"duration"` // milliseconds, 0 if unknown
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Dirty      bool      `json:"dirty"` // local change not yet pushed to the server
}

// Credentials is the persisted token set plus the profile fields the
// client needs to rebuild a session at startup.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	MediaToken   string `json:"media_token"`
	RefreshToken string `json:"refresh_token"`
	Endpoint     string `json:"endpoint"`
	DisplayName  string `json:"display_name"`
}

// Valid reports whether all three tokens are present.
func (c Credentials) Valid() bool {
	return c.AccessToken != "" && c.MediaToken != "" && c.RefreshToken != ""
}
