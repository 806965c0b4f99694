package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tako-tv/tako/internal/domain"
	"github.com/tako-tv/tako/internal/log"
)

type stubRepo struct {
	results []domain.Video
	err     error
	queries []string
}

func (s *stubRepo) Search(_ context.Context, query string) ([]domain.Video, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func (s *stubRepo) HomeGroups(context.Context) ([]domain.VideoGroup, error)  { return nil, nil }
func (s *stubRepo) AllVideos(context.Context, bool) ([]domain.Video, error)  { return nil, nil }
func (s *stubRepo) AllSeries(context.Context, bool) ([]domain.Series, error) { return nil, nil }
func (s *stubRepo) VideoDetail(context.Context, string) (*domain.Detail, error) {
	return nil, domain.ErrItemNotFound
}
func (s *stubRepo) PersonProfile(context.Context, string) (*domain.Profile, error) {
	return nil, domain.ErrItemNotFound
}
func (s *stubRepo) VideoByID(string) *domain.Video              { return nil }
func (s *stubRepo) SeriesVideos(string) []domain.Video          { return nil }
func (s *stubRepo) VideoProgress(domain.Video) *domain.Progress { return nil }
func (s *stubRepo) UpdateProgress(context.Context, []domain.Progress) (int, error) {
	return 0, nil
}
func (s *stubRepo) RemoteProgress(context.Context) ([]domain.Progress, error) { return nil, nil }

func video(id, name string) domain.Video {
	return domain.Video{ID: id, Name: name}
}

func TestSearchRanksServerResults(t *testing.T) {
	repo := &stubRepo{results: []domain.Video{
		video("1", "Aliens vs Predator"),
		video("2", "Alien"),
		video("3", "Alien Resurrection"),
	}}
	svc := New(repo, log.Null())

	results, err := svc.Search(context.Background(), "alien")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Alien", results[0].Name, "exact match ranks first")
	assert.Equal(t, "Alien Resurrection", results[1].Name, "prefix match beats substring")
}

func TestSearchEmptyQuery(t *testing.T) {
	repo := &stubRepo{}
	svc := New(repo, log.Null())

	results, err := svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Empty(t, repo.queries, "blank queries never hit the server")
}

func TestSearchFallsBackToLocalIndex(t *testing.T) {
	repo := &stubRepo{err: errors.New("offline")}
	svc := New(repo, log.Null())
	svc.Index([]domain.Video{
		video("1", "Blade Runner"),
		video("2", "Blade Runner 2049"),
		video("3", "The Shining"),
	})

	results, err := svc.Search(context.Background(), "blade")
	require.NoError(t, err, "server failure falls back, it does not surface")
	require.NotEmpty(t, results)
	for _, v := range results {
		assert.Contains(t, v.Name, "Blade")
	}
}

func TestIndexDeduplicates(t *testing.T) {
	svc := New(&stubRepo{}, log.Null())
	svc.Index([]domain.Video{video("1", "Alien")})
	svc.Index([]domain.Video{video("1", "Alien"), video("2", "Aliens")})

	results := svc.Local("alien")
	assert.Len(t, results, 2)
}

func TestClearIndex(t *testing.T) {
	svc := New(&stubRepo{}, log.Null())
	svc.Index([]domain.Video{video("1", "Alien")})
	svc.ClearIndex()
	assert.Empty(t, svc.Local("alien"))
}

func TestFilterReturnsMatchPositions(t *testing.T) {
	svc := New(&stubRepo{}, log.Null())
	svc.Index([]domain.Video{
		video("1", "Alien"),
		video("2", "The Shining"),
	})

	results := svc.Filter("shin")
	require.Len(t, results, 1)
	assert.Equal(t, "The Shining", results[0].Video.Name)
	assert.NotEmpty(t, results[0].MatchedIndexes)
}
