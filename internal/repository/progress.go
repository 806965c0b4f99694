package repository

import (
	"context"
	"net/http"
	"time"

	"github.com/tako-tv/tako/internal/domain"
	"github.com/tako-tv/tako/internal/takeout"
)

// The server emits offset dates with or without fractional seconds.
const (
	offsetDateLayout       = "2006-01-02T15:04:05Z"
	offsetDateMillisLayout = "2006-01-02T15:04:05.000Z"
)

func parseOffsetDate(s string) (time.Time, error) {
	t, err := time.Parse(offsetDateMillisLayout, s)
	if err != nil {
		t, err = time.Parse(offsetDateLayout, s)
	}
	return t, err
}

func formatOffsetDate(t time.Time) string {
	return t.UTC().Format(offsetDateLayout)
}

func (r *Repository) toProgress(v domain.Video, o takeout.Offset) domain.Progress {
	p := domain.Progress{
		VideoID:  v.ID,
		Position: int64(o.Offset) * 1000,
		Duration: int64(o.Duration) * 1000,
	}
	if ts, err := parseOffsetDate(o.Date); err == nil {
		p.Timestamp = ts
	} else {
		r.logger.Debug("unparseable offset date", "etag", o.ETag, "date", o.Date)
	}
	return p
}

// VideoProgress returns the cached remote watch position for a video,
// or nil when the server has none.
func (r *Repository) VideoProgress(v domain.Video) *domain.Progress {
	r.mu.RLock()
	o, ok := r.offsets[v.ETag]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	p := r.toProgress(v, o)
	return &p
}

// UpdateProgress pushes a batch of local positions to the server.
// Records whose video is unknown to the catalog are skipped. The offset
// cache is updated optimistically before the push; a failed push does
// not roll it back and surfaces as a zero count rather than an error,
// so callers retry on the next cycle. Millisecond positions truncate to
// whole seconds on the wire.
func (r *Repository) UpdateProgress(ctx context.Context, records []domain.Progress) (int, error) {
	if !r.session.LoggedIn() {
		return 0, domain.ErrNotSignedIn
	}

	var batch []takeout.Offset
	for _, rec := range records {
		v := r.VideoByID(rec.VideoID)
		if v == nil || v.ETag == "" {
			r.logger.Debug("progress for unknown video", "id", rec.VideoID)
			continue
		}
		o := takeout.Offset{
			ETag:     v.ETag,
			Offset:   int(rec.Position / 1000),
			Duration: int(rec.Duration / 1000),
			Date:     formatOffsetDate(rec.Timestamp),
		}
		batch = append(batch, o)

		r.mu.Lock()
		r.offsets[o.ETag] = o
		r.mu.Unlock()
	}
	if len(batch) == 0 {
		return 0, nil
	}

	status, err := r.client.UpdateProgress(ctx, takeout.Offsets{Offsets: batch})
	if err != nil {
		return 0, err
	}
	if status < 200 || status >= 300 {
		if status == http.StatusUnauthorized {
			return 0, r.failLoad(domain.ErrAuthFailed)
		}
		r.logger.Warn("progress push rejected", "status", status)
		return 0, nil
	}
	return len(batch), nil
}

// RemoteProgress re-fetches the authoritative remote offset list,
// replaces the cache, and returns it resolved to known videos. Offsets
// whose etag matches nothing in the catalog are dropped.
func (r *Repository) RemoteProgress(ctx context.Context) ([]domain.Progress, error) {
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	view, err := r.client.Progress(ctx)
	if err != nil {
		return nil, err
	}

	offsets := make(map[string]takeout.Offset, len(view.Offsets))
	var out []domain.Progress
	for _, o := range view.Offsets {
		offsets[o.ETag] = o

		r.mu.RLock()
		v, ok := r.etagIndex[o.ETag]
		r.mu.RUnlock()
		if !ok {
			r.logger.Debug("remote progress for unknown etag", "etag", o.ETag)
			continue
		}
		out = append(out, r.toProgress(v, o))
	}

	r.mu.Lock()
	r.offsets = offsets
	r.mu.Unlock()

	return out, nil
}
