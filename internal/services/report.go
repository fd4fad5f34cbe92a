package services

import (
	"context"
	"fmt"
	"time"

	"finanzapp/internal/apperror"
	"finanzapp/internal/cache"
	"finanzapp/internal/core"
	"finanzapp/internal/log"
	"finanzapp/internal/storage"
)

const (
	summaryCacheSize = 128
	summaryCacheTTL  = 5 * time.Minute
)

// ReportService computes the balance view from the authoritative
// budget rows. Summaries are cached per user; budget writes invalidate
// through the ReportInvalidator hook.
type ReportService struct {
	store  storage.Store
	cache  *cache.LRUCache[core.BalanceSummary]
	logger *log.Logger
	now    func() time.Time
}

var _ ReportInvalidator = (*ReportService)(nil)

func NewReportService(store storage.Store, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportService{
		store:  store,
		cache:  cache.NewLRUCache[core.BalanceSummary](summaryCacheSize, summaryCacheTTL),
		logger: logger.WithComponent(log.ComponentReport),
		now:    time.Now,
	}
}

// Summary returns the user's balance summary, from cache when fresh.
func (s *ReportService) Summary(ctx context.Context, userID int64) (core.BalanceSummary, error) {
	key := cacheKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	incomes, err := s.store.ListIncomes(ctx, userID)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("list incomes: %w", err)
	}
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("list expenses: %w", err)
	}

	summary := core.Summarize(incomes, expenses)
	s.cache.Set(key, summary)
	return summary, nil
}

// Invalidate drops the user's cached summary.
func (s *ReportService) Invalidate(userID int64) {
	s.cache.Delete(cacheKey(userID))
}

// GoalPlan computes the savings suggestion for one of the user's
// goals.
func (s *ReportService) GoalPlan(ctx context.Context, userID, goalID int64) (core.SavingsPlan, error) {
	g, err := s.store.GoalByID(ctx, goalID)
	if err != nil {
		return core.SavingsPlan{}, err
	}
	if g == nil {
		return core.SavingsPlan{}, apperror.NotFound("goal", goalID)
	}
	wl, err := s.store.WishlistByID(ctx, g.WishlistID)
	if err != nil {
		return core.SavingsPlan{}, err
	}
	if wl == nil || wl.UserID != userID {
		return core.SavingsPlan{}, apperror.NotFound("goal", goalID)
	}
	return core.PlanForGoal(*g, s.now()), nil
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("summary:%d", userID)
}
