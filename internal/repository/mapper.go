package repository

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/tako-tv/tako/internal/domain"
	"github.com/tako-tv/tako/internal/takeout"
)

// URI schemes for stable identifiers. IDs are stable across catalog
// reloads; etags are not IDs and only join progress records.

func movieURI(id int) string {
	return fmt.Sprintf("takeout://movies/%d", id)
}

func episodeURI(id int) string {
	return fmt.Sprintf("takeout://tv/episodes/%d", id)
}

func seriesURI(id int) string {
	return fmt.Sprintf("takeout://tv/series/%d", id)
}

func seasonURI(id, season int) string {
	return fmt.Sprintf("takeout://tv/series/%d/season/%d", id, season)
}

func personURI(peid int) string {
	return fmt.Sprintf("takeout://people/%d", peid)
}

var idPattern = regexp.MustCompile(`/([0-9]+)/?`)

// numericID extracts the numeric identifier from a scheme-qualified URI.
func numericID(uri string) int {
	m := idPattern.FindStringSubmatch(uri)
	if len(m) < 2 {
		return -1
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return id
}

// category derives the browse bucket from a sort title: the upper-cased
// first rune, with a leading digit collapsed to "#" so all-numeric
// titles share one bucket.
func category(title string) string {
	for _, r := range title {
		if unicode.IsDigit(r) {
			return "#"
		}
		return strings.ToUpper(string(r))
	}
	return "#"
}

// year extracts the year from an ISO instant date string, 0 if absent
// or unparseable.
func year(date string) int {
	if date == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return 0
	}
	return t.Year()
}

// isoDuration formats a runtime in minutes as an ISO-8601 duration.
func isoDuration(runtime int) string {
	return fmt.Sprintf("PT%02dH%02dM", runtime/60, runtime%60)
}

// voteScore scales the server's 0-10 float average to 0-100.
func voteScore(avg *float64) int {
	if avg == nil {
		return 0
	}
	return int(*avg * 10)
}

func (r *Repository) toVideo(m takeout.Movie) domain.Video {
	endpoint := r.session.Endpoint()
	uri := movieURI(m.ID)
	return domain.Video{
		ID:                 uri,
		Name:               m.Title,
		Description:        m.Overview,
		ThumbnailURI:       endpoint + "/img/tm/w342" + m.PosterPath,
		BackgroundImageURI: endpoint + "/img/tm/w1280" + m.BackdropPath,
		Category:           category(m.SortTitle),
		Type:               domain.VideoTypeMovie,
		Year:               year(m.Date),
		Rating:             m.Rating,
		Tagline:            m.Tagline,
		Duration:           isoDuration(m.Runtime),
		Vote:               voteScore(m.VoteAverage),
		ETag:               m.Key(),
	}
}

func (r *Repository) toEpisodeVideo(s takeout.TVSeries, e takeout.TVEpisode) domain.Video {
	endpoint := r.session.Endpoint()
	return domain.Video{
		ID:                 episodeURI(e.ID),
		Name:               e.Name,
		Description:        e.Overview,
		ThumbnailURI:       endpoint + "/img/tm/w300" + e.StillPath,
		BackgroundImageURI: endpoint + "/img/tm/w1280" + s.BackdropPath,
		Category:           category(s.SortName),
		Type:               domain.VideoTypeEpisode,
		Year:               year(e.Date),
		Rating:             s.Rating,
		Tagline:            s.Tagline,
		Duration:           isoDuration(e.Runtime),
		Vote:               voteScore(e.VoteAverage),
		ETag:               e.Key(),
		Episode: &domain.EpisodeInfo{
			Season:    e.Season,
			Episode:   e.Episode,
			SeriesURI: seriesURI(s.ID),
			SeasonURI: seasonURI(s.ID, e.Season),
		},
	}
}

func (r *Repository) toSeries(s takeout.TVSeries, episodes []domain.Video) domain.Series {
	endpoint := r.session.Endpoint()
	return domain.Series{
		ID:                 seriesURI(s.ID),
		Name:               s.Name,
		ThumbnailURI:       endpoint + "/img/tm/w342" + s.PosterPath,
		BackgroundImageURI: endpoint + "/img/tm/w1280" + s.BackdropPath,
		Tagline:            s.Tagline,
		Rating:             s.Rating,
		Year:               year(s.Date),
		Vote:               voteScore(s.VoteAverage),
		SeasonCount:        s.SeasonCount,
		EpisodeCount:       s.EpisodeCount,
		Episodes:           episodes,
	}
}

func (r *Repository) toPerson(p takeout.Person) domain.Person {
	endpoint := r.session.Endpoint()
	person := domain.Person{
		ID:   personURI(p.PEID),
		Name: p.Name,
	}
	if p.Bio != nil {
		person.Bio = *p.Bio
	}
	if p.Birthplace != nil {
		person.Birthplace = *p.Birthplace
	}
	if p.Birthday != nil {
		person.Birthday = year(*p.Birthday)
	}
	if p.ProfilePath != nil {
		person.ThumbnailURI = endpoint + "/img/tm/w185" + *p.ProfilePath
	}
	return person
}

func (r *Repository) toCast(c takeout.Cast) domain.Cast {
	return domain.Cast{
		ID:        fmt.Sprintf("takeout://cast/%d", c.ID),
		Person:    r.toPerson(c.Person),
		Character: c.Character,
	}
}

// streamHeaders builds the headers a player must send to stream a
// playable URI: the media token, not the access token.
func (r *Repository) streamHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + r.session.MediaToken(),
		"User-Agent":    r.session.UserAgent(),
	}
}

func (r *Repository) toMovieDetail(view *takeout.MovieView) *domain.Detail {
	related := make([]domain.Video, 0, len(view.Other))
	for _, m := range view.Other {
		related = append(related, r.toVideo(m))
	}
	cast := make([]domain.Cast, 0, len(view.Cast))
	for _, c := range view.Cast {
		cast = append(cast, r.toCast(c))
	}
	return &domain.Detail{
		ID:      movieURI(view.Movie.ID) + "/detail",
		URI:     r.session.Endpoint() + view.Location,
		Headers: r.streamHeaders(),
		Video:   r.toVideo(view.Movie),
		Genres:  view.Genres,
		Cast:    cast,
		Related: related,
	}
}

func (r *Repository) toEpisodeDetail(view *takeout.TVEpisodeView) *domain.Detail {
	cast := make([]domain.Cast, 0, len(view.Cast))
	for _, c := range view.Cast {
		cast = append(cast, r.toCast(c))
	}
	return &domain.Detail{
		ID:      episodeURI(view.Episode.ID) + "/detail",
		URI:     r.session.Endpoint() + view.Location,
		Headers: r.streamHeaders(),
		Video:   r.toEpisodeVideo(view.Series, view.Episode),
		Cast:    cast,
	}
}
