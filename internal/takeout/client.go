package takeout

import (
	"context"
	"fmt"
	"net/url"
)

// Client provides typed bindings for the Takeout API endpoints. It adds
// nothing beyond path construction and response typing; authentication
// and retry live in the Session.
type Client struct {
	session *Session
}

// NewClient creates a client over an existing session.
func NewClient(session *Session) *Client {
	return &Client{session: session}
}

// Session returns the underlying session.
func (c *Client) Session() *Session {
	return c.session
}

// Home returns the home feed shelves.
func (c *Client) Home(ctx context.Context) (*HomeView, error) {
	var view HomeView
	if err := c.session.Get(ctx, "/api/home", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Movies returns the full movie catalog.
func (c *Client) Movies(ctx context.Context) (*MoviesView, error) {
	var view MoviesView
	if err := c.session.Get(ctx, "/api/movies", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Movie returns a single movie's detail, including its playable location.
func (c *Client) Movie(ctx context.Context, id int) (*MovieView, error) {
	var view MovieView
	if err := c.session.Get(ctx, fmt.Sprintf("/api/movies/%d", id), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// TVList returns the full TV catalog: all series and all episodes.
func (c *Client) TVList(ctx context.Context) (*TVListView, error) {
	var view TVListView
	if err := c.session.Get(ctx, "/api/tv", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// TVEpisode returns a single episode's detail, including its playable
// location.
func (c *Client) TVEpisode(ctx context.Context, id int) (*TVEpisodeView, error) {
	var view TVEpisodeView
	if err := c.session.Get(ctx, fmt.Sprintf("/api/tv/episodes/%d", id), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Profile returns a person's bio and filmography.
func (c *Client) Profile(ctx context.Context, peid int) (*ProfileView, error) {
	var view ProfileView
	if err := c.session.Get(ctx, fmt.Sprintf("/api/profiles/%d", peid), &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Search performs a free-text search.
func (c *Client) Search(ctx context.Context, query string) (*SearchView, error) {
	var view SearchView
	path := "/api/search?q=" + url.QueryEscape(query)
	if err := c.session.Get(ctx, path, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Progress returns the full remote progress list.
func (c *Client) Progress(ctx context.Context) (*ProgressView, error) {
	var view ProgressView
	if err := c.session.Get(ctx, "/api/progress", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateProgress pushes a batch of offsets. The HTTP status code is the
// only signal: callers treat anything other than success as a no-op.
// Transport failures are returned as errors with a zero status.
func (c *Client) UpdateProgress(ctx context.Context, offsets Offsets) (int, error) {
	status, err := c.session.Post(ctx, "/api/progress", offsets, nil)
	if err != nil && status == 0 {
		return 0, err
	}
	return status, nil
}
