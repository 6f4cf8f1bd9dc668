// Package service contains domain logic built on top of the repositories.
package service

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"civicboard/internal/cache"
	"civicboard/internal/featureflags"
	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/repository"
)

// TrendingScope selects which item kinds participate in the ranking.
type TrendingScope string

const (
	ScopeIssues      TrendingScope = "issues"
	ScopeSuggestions TrendingScope = "suggestions"
	ScopeAll         TrendingScope = "all"
)

// ParseTrendingScope validates a scope query value. An empty value means all.
func ParseTrendingScope(raw string) (TrendingScope, bool) {
	switch TrendingScope(raw) {
	case ScopeIssues, ScopeSuggestions, ScopeAll:
		return TrendingScope(raw), true
	case "":
		return ScopeAll, true
	}
	return "", false
}

func (s TrendingScope) kinds() []models.ItemKind {
	switch s {
	case ScopeIssues:
		return []models.ItemKind{models.KindIssue}
	case ScopeSuggestions:
		return []models.ItemKind{models.KindSuggestion}
	default:
		return []models.ItemKind{models.KindIssue, models.KindSuggestion}
	}
}

// TrendingItem is the summary row returned for a ranked item.
type TrendingItem struct {
	ID             uint              `json:"id"`
	Kind           models.ItemKind   `json:"kind"`
	County         string            `json:"county"`
	Title          string            `json:"title"`
	Status         models.ItemStatus `json:"status"`
	AppraisalCount int               `json:"appraisal_count"`
	Score          float64           `json:"score"`
	CreatedAt      time.Time         `json:"created_at"`
}

// TrendingService derives ranked item lists from appraisal activity and
// recency. The ranking is recomputed from the live rows on every call; the
// only cached artifact is a short-lived Redis snapshot, so staleness stays in
// the seconds range.
type TrendingService struct {
	itemRepo repository.ItemRepository
	flags    *featureflags.Manager
	decay    float64
	limit    int
	cacheTTL time.Duration
	now      func() time.Time
}

// NewTrendingService returns a new TrendingService. decay is the age
// exponent in score = count / max(1, ageHours)^decay; limit is the combined
// cap applied after interleaving kinds.
func NewTrendingService(itemRepo repository.ItemRepository, flags *featureflags.Manager, decay float64, limit int, cacheTTL time.Duration) *TrendingService {
	if limit <= 0 {
		limit = 6
	}
	if cacheTTL <= 0 {
		cacheTTL = cache.TrendingTTL
	}
	return &TrendingService{
		itemRepo: itemRepo,
		flags:    flags,
		decay:    decay,
		limit:    limit,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *TrendingService) WithClock(now func() time.Time) *TrendingService {
	s.now = now
	return s
}

// ComputeTrending returns the bounded ranked list for the scope.
func (s *TrendingService) ComputeTrending(ctx context.Context, scope TrendingScope) ([]TrendingItem, error) {
	key := cache.TrendingKey(string(scope))
	useCache := s.flags.Enabled("trending_cache", 0)

	if useCache {
		var cached []TrendingItem
		if found, err := cache.GetJSON(ctx, key, &cached); err == nil && found {
			observability.TrendingComputations.WithLabelValues(string(scope), "cache").Inc()
			return cached, nil
		}
	}

	candidates, err := s.itemRepo.TrendingCandidates(ctx, scope.kinds())
	if err != nil {
		return nil, err
	}

	ranked := s.rank(candidates)
	observability.TrendingComputations.WithLabelValues(string(scope), "db").Inc()

	if useCache {
		if err := cache.SetJSON(ctx, key, ranked, s.cacheTTL); err != nil {
			slog.WarnContext(ctx, "failed to cache trending snapshot", "scope", scope, "err", err)
		}
	}
	return ranked, nil
}

// rank scores and orders the candidate rows, then applies the combined cap.
// Kinds interleave naturally because the cap comes after the global sort.
func (s *TrendingService) rank(candidates []*models.Item) []TrendingItem {
	now := s.now()

	ranked := make([]TrendingItem, 0, len(candidates))
	for _, item := range candidates {
		ranked = append(ranked, TrendingItem{
			ID:             item.ID,
			Kind:           item.Kind,
			County:         item.County,
			Title:          item.Title,
			Status:         item.Status,
			AppraisalCount: item.AppraisalCount,
			Score:          s.score(item.AppraisalCount, now.Sub(item.CreatedAt)),
			CreatedAt:      item.CreatedAt,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		// Ties break toward the newer item.
		return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
	})

	if len(ranked) > s.limit {
		ranked = ranked[:s.limit]
	}
	return ranked
}

// score implements count / max(1, ageHours)^decay. The one-hour floor keeps
// brand-new items from dividing by a near-zero age.
func (s *TrendingService) score(count int, age time.Duration) float64 {
	ageHours := age.Hours()
	if ageHours < 1 {
		ageHours = 1
	}
	return float64(count) / math.Pow(ageHours, s.decay)
}
