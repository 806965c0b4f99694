package tui

import (
	"github.com/tako-tv/tako/internal/domain"
)

// Messages produced by async commands

// ErrMsg reports a failed async operation
type ErrMsg struct {
	Err     error
	Context string
}

// HomeLoadedMsg carries the home-feed shelves
type HomeLoadedMsg struct {
	Groups           []domain.VideoGroup
	ContinueWatching []domain.Video
}

// MoviesLoadedMsg carries the full movie catalog
type MoviesLoadedMsg struct {
	Videos []domain.Video
}

// SeriesLoadedMsg carries the full TV catalog
type SeriesLoadedMsg struct {
	Series []domain.Series
}

// DetailLoadedMsg carries one video's extended detail
type DetailLoadedMsg struct {
	Detail *domain.Detail
}

// ProfileLoadedMsg carries a person's bio and filmography
type ProfileLoadedMsg struct {
	Profile *domain.Profile
}

// SearchResultsMsg carries search results
type SearchResultsMsg struct {
	Query  string
	Videos []domain.Video
}

// PlaybackFinishedMsg reports the external player exited and the exit
// position was recorded
type PlaybackFinishedMsg struct {
	Video domain.Video
}

// SyncDoneMsg reports one progress reconciliation cycle finished
type SyncDoneMsg struct {
	Err error
}

// SyncTickMsg fires the periodic reconciliation cycle
type SyncTickMsg struct{}

// SignedOutMsg reports the session ended
type SignedOutMsg struct{}
