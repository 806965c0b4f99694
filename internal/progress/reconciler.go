package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/tako-tv/tako/internal/domain"
)

// Positions below this are noise from immediately-abandoned playback
// and are not recorded.
const minPosition = 10 * time.Second

// A position past this fraction of the duration counts as finished.
const finishedFraction = 0.95

// Reconciler keeps the local progress store and the server's offset
// list converged. Local rows are keyed by stable video ID, remote
// offsets by content etag; the repository's catalog joins the two.
// Last writer wins: a pull overwrites local rows wholesale.
type Reconciler struct {
	repo   domain.VideoRepository
	store  domain.ProgressStore
	logger *slog.Logger
}

// New creates a reconciler over a repository and a local store.
func New(repo domain.VideoRepository, store domain.ProgressStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{repo: repo, store: store, logger: logger}
}

// Record upserts a local watch position, typically on player exit.
// Trivial positions are dropped; a finished video clears its row so it
// leaves the continue-watching shelf.
func (r *Reconciler) Record(videoID string, position, duration time.Duration) error {
	if position < minPosition {
		return nil
	}
	if duration > 0 && float64(position) >= float64(duration)*finishedFraction {
		r.logger.Debug("video finished, clearing progress", "id", videoID)
		return r.store.DeleteProgress(videoID)
	}

	now := time.Now().UTC()
	return r.store.PutProgress(domain.WatchProgress{
		VideoID:    videoID,
		Position:   position.Milliseconds(),
		Duration:   duration.Milliseconds(),
		ModifiedAt: now,
		Dirty:      true,
	})
}

// PlaybackPosition estimates where an external player stopped: the
// start offset plus the wall-clock play time, capped at the total
// duration. Players launched out of process report nothing back, so
// elapsed time is the best signal available.
func PlaybackPosition(offset, played, total time.Duration) time.Duration {
	pos := offset + played
	if total > 0 && pos > total {
		return total
	}
	return pos
}

// Resume returns the locally stored resume position for a video, zero
// when none exists.
func (r *Reconciler) Resume(videoID string) time.Duration {
	p, ok := r.store.GetProgress(videoID)
	if !ok {
		return 0
	}
	return time.Duration(p.Position) * time.Millisecond
}

// Sync runs one full reconciliation cycle: push the local rows changed
// since the last successful push, then pull the authoritative remote
// list and overwrite local rows with it. A failed push leaves the rows
// marked for the next cycle; a failed pull stops the cycle without
// touching the store.
func (r *Reconciler) Sync(ctx context.Context) error {
	rows, err := r.store.AllProgress()
	if err != nil {
		return err
	}

	var dirty []domain.WatchProgress
	for _, row := range rows {
		if row.Dirty {
			dirty = append(dirty, row)
		}
	}

	if len(dirty) > 0 {
		records := make([]domain.Progress, 0, len(dirty))
		for _, row := range dirty {
			records = append(records, domain.Progress{
				VideoID:   row.VideoID,
				Position:  row.Position,
				Duration:  row.Duration,
				Timestamp: row.ModifiedAt,
			})
		}
		pushed, err := r.repo.UpdateProgress(ctx, records)
		if err != nil {
			return err
		}
		if pushed == len(records) {
			// Clear the marker only on rows untouched since the read, so
			// a position recorded mid-push stays queued.
			for _, row := range dirty {
				cur, ok := r.store.GetProgress(row.VideoID)
				if !ok || !cur.ModifiedAt.Equal(row.ModifiedAt) {
					continue
				}
				cur.Dirty = false
				if err := r.store.PutProgress(cur); err != nil {
					return err
				}
			}
		}
		r.logger.Debug("progress pushed", "records", len(records), "accepted", pushed)
	}

	remote, err := r.repo.RemoteProgress(ctx)
	if err != nil {
		return err
	}

	// Pulled rows reflect the server and land clean.
	for _, p := range remote {
		err := r.store.PutProgress(domain.WatchProgress{
			VideoID:    p.VideoID,
			Position:   p.Position,
			Duration:   p.Duration,
			ModifiedAt: p.Timestamp,
		})
		if err != nil {
			return err
		}
	}
	r.logger.Debug("progress pulled", "records", len(remote))
	return nil
}

// ContinueWatching returns the videos with unfinished local progress,
// most recently watched first, resolved against the loaded catalog.
func (r *Reconciler) ContinueWatching(limit int) []domain.Video {
	rows, err := r.store.AllProgress()
	if err != nil {
		r.logger.Warn("failed to read progress", "error", err)
		return nil
	}

	var out []domain.Video
	for _, row := range rows {
		if limit > 0 && len(out) >= limit {
			break
		}
		v := r.repo.VideoByID(row.VideoID)
		if v == nil {
			continue
		}
		out = append(out, *v)
	}
	return out
}
