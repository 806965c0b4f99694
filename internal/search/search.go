package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	sahilm "github.com/sahilm/fuzzy"

	"github.com/tako-tv/tako/internal/domain"
)

// filterIndex implements sahilm/fuzzy.Source over the loaded catalog
// for allocation-free interactive filtering.
type filterIndex struct {
	videos      []domain.Video
	lowerTitles []string
}

func (idx *filterIndex) String(i int) string { return idx.lowerTitles[i] }
func (idx *filterIndex) Len() int            { return len(idx.videos) }

// FilterResult is a local filter match with positions for highlighting.
type FilterResult struct {
	Video          domain.Video
	MatchedIndexes []int
	Score          int
}

// Service answers search queries: server-side first, ranked locally,
// with a local fuzzy fallback over the loaded catalog when the server
// is unreachable.
type Service struct {
	repo   domain.VideoRepository
	logger *slog.Logger

	mu      sync.RWMutex
	index   *filterIndex
	indexed map[string]bool // video IDs already in the index
}

// New creates a search service over a repository.
func New(repo domain.VideoRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		logger:  logger,
		index:   &filterIndex{},
		indexed: make(map[string]bool),
	}
}

// Index adds videos to the local index, deduplicating by ID.
func (s *Service) Index(videos []domain.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, v := range videos {
		if s.indexed[v.ID] {
			continue
		}
		s.indexed[v.ID] = true
		s.index.videos = append(s.index.videos, v)
		s.index.lowerTitles = append(s.index.lowerTitles, strings.ToLower(v.Name))
		added++
	}
	s.logger.Debug("indexed videos", "added", added, "total", s.index.Len())
}

// ClearIndex removes everything from the local index.
func (s *Service) ClearIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = &filterIndex{}
	s.indexed = make(map[string]bool)
}

// Search queries the server and ranks its results against the query.
// When the server is unreachable the local index answers instead.
func (s *Service) Search(ctx context.Context, query string) ([]domain.Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	s.logger.Debug("searching", "query", query)

	results, err := s.repo.Search(ctx, query)
	if err != nil {
		s.logger.Warn("server search failed, falling back to local", "error", err)
		return s.Local(query), nil
	}
	return rank(results, query), nil
}

// Local performs fuzzy matching against the local index only.
func (s *Service) Local(query string) []domain.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.index.Len() == 0 {
		return nil
	}

	matches := fuzzy.RankFindFold(query, s.index.lowerTitles)
	sort.Sort(matches)

	byTitle := make(map[string][]domain.Video, s.index.Len())
	for i, t := range s.index.lowerTitles {
		byTitle[t] = append(byTitle[t], s.index.videos[i])
	}

	seen := make(map[string]bool)
	var results []domain.Video
	for _, m := range matches {
		for _, v := range byTitle[m.Target] {
			if seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			results = append(results, v)
		}
	}
	return results
}

// Filter performs interactive substring-style filtering with match
// positions, for the browse views.
func (s *Service) Filter(query string) []FilterResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" || s.index.Len() == 0 {
		return nil
	}

	matches := sahilm.FindFrom(strings.ToLower(query), s.index)
	results := make([]FilterResult, len(matches))
	for i, m := range matches {
		results[i] = FilterResult{
			Video:          s.index.videos[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}

// rank orders server results by how well their titles match the query.
func rank(videos []domain.Video, query string) []domain.Video {
	if len(videos) == 0 {
		return videos
	}

	query = strings.ToLower(query)

	type ranked struct {
		video domain.Video
		score int
	}
	out := make([]ranked, 0, len(videos))
	for _, v := range videos {
		out = append(out, ranked{video: v, score: matchScore(strings.ToLower(v.Name), query)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score < out[j].score
	})

	results := make([]domain.Video, len(out))
	for i, r := range out {
		results[i] = r.video
	}
	return results
}

// matchScore ranks a title against a query. Lower is better.
func matchScore(title, query string) int {
	if title == query {
		return 0
	}
	if strings.HasPrefix(title, query) {
		return 10
	}
	if strings.Contains(title, query) {
		return 50
	}
	return 100 + fuzzy.LevenshteinDistance(query, title)
}
