package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tako-tv/tako/internal/domain"
	"github.com/tako-tv/tako/internal/player"
	"github.com/tako-tv/tako/internal/progress"
	"github.com/tako-tv/tako/internal/search"
)

// Command factories for async operations

// LoadHomeCmd loads the home shelves and the continue-watching row
func LoadHomeCmd(repo domain.VideoRepository, rec *progress.Reconciler) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		groups, err := repo.HomeGroups(ctx)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading home"}
		}
		return HomeLoadedMsg{
			Groups:           groups,
			ContinueWatching: rec.ContinueWatching(20),
		}
	}
}

// LoadMoviesCmd loads the full movie catalog
func LoadMoviesCmd(repo domain.VideoRepository, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		videos, err := repo.AllVideos(ctx, refresh)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading movies"}
		}
		return MoviesLoadedMsg{Videos: videos}
	}
}

// LoadSeriesCmd loads the full TV catalog
func LoadSeriesCmd(repo domain.VideoRepository, refresh bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		series, err := repo.AllSeries(ctx, refresh)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading series"}
		}
		return SeriesLoadedMsg{Series: series}
	}
}

// LoadDetailCmd loads one video's extended detail
func LoadDetailCmd(repo domain.VideoRepository, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		detail, err := repo.VideoDetail(ctx, id)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading detail"}
		}
		return DetailLoadedMsg{Detail: detail}
	}
}

// LoadProfileCmd loads a person's bio and filmography
func LoadProfileCmd(repo domain.VideoRepository, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		profile, err := repo.PersonProfile(ctx, id)
		if err != nil {
			return ErrMsg{Err: err, Context: "loading profile"}
		}
		return ProfileLoadedMsg{Profile: profile}
	}
}

// SearchCmd runs a free-text search
func SearchCmd(svc *search.Service, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		videos, err := svc.Search(ctx, query)
		if err != nil {
			return ErrMsg{Err: err, Context: "searching"}
		}
		return SearchResultsMsg{Query: query, Videos: videos}
	}
}

// PlayCmd fetches the detail for a video, launches the player at the
// resume position, and waits for it to exit. The exit position is
// estimated from the offset plus the time the player ran, then recorded
// so the periodic sync pushes it.
func PlayCmd(repo domain.VideoRepository, rec *progress.Reconciler, launcher *player.Launcher, v domain.Video, resume bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		detail, err := repo.VideoDetail(ctx, v.ID)
		if err != nil {
			return ErrMsg{Err: err, Context: "starting playback"}
		}

		var offset time.Duration
		if resume {
			offset = rec.Resume(v.ID)
			if offset == 0 {
				// Fall back to the server's position for videos watched
				// on another device.
				if p := repo.VideoProgress(v); p != nil {
					offset = time.Duration(p.Position) * time.Millisecond
				}
			}
		}

		began := time.Now()
		if err := launcher.Launch(detail.URI, detail.Headers, offset); err != nil {
			return ErrMsg{Err: err, Context: "starting playback"}
		}

		position := progress.PlaybackPosition(offset, time.Since(began), v.DurationValue())
		if err := rec.Record(v.ID, position, v.DurationValue()); err != nil {
			return ErrMsg{Err: err, Context: "recording progress"}
		}
		return PlaybackFinishedMsg{Video: v}
	}
}

// SyncCmd runs one progress reconciliation cycle
func SyncCmd(rec *progress.Reconciler) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		return SyncDoneMsg{Err: rec.Sync(ctx)}
	}
}

// SyncTickCmd schedules the next periodic reconciliation cycle
func SyncTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return SyncTickMsg{}
	})
}
