package services

import (
	"context"
	"fmt"

	"finanzapp/internal/apperror"
	"finanzapp/internal/core"
	"finanzapp/internal/log"
	"finanzapp/internal/storage"
)

// WishlistService manages a user's savings goals. The wishlist row is
// created lazily on first access, and its Total is recomputed from
// scratch after every goal write so it always equals the sum of the
// goals' target amounts.
type WishlistService struct {
	store  storage.Store
	logger *log.Logger
}

func NewWishlistService(store storage.Store, logger *log.Logger) *WishlistService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &WishlistService{
		store:  store,
		logger: logger.WithComponent(log.ComponentWishlist),
	}
}

// EnsureWishlist returns the user's wishlist, creating it when absent.
func (s *WishlistService) EnsureWishlist(ctx context.Context, userID int64) (*core.Wishlist, error) {
	wl, err := s.store.WishlistByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wl != nil {
		return wl, nil
	}

	id, err := s.store.CreateWishlist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}
	s.logger.InfoContext(ctx, "Created wishlist",
		log.FieldUserID, userID,
		log.FieldWishlistID, id)
	return &core.Wishlist{ID: id, UserID: userID}, nil
}

// Goals lists the user's goals, newest first.
func (s *WishlistService) Goals(ctx context.Context, userID int64) ([]core.Goal, error) {
	wl, err := s.store.WishlistByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wl == nil {
		return nil, nil
	}
	return s.store.ListGoals(ctx, wl.ID)
}

func (s *WishlistService) AddGoal(ctx context.Context, userID int64, g core.Goal) (*core.Goal, error) {
	if err := g.Validate(); err != nil {
		return nil, apperror.ValidationFailed("goal", err.Error())
	}

	wl, err := s.EnsureWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	g.WishlistID = wl.ID
	if g.Saved.Cents >= g.Target.Cents {
		g.Completed = true
	}
	id, err := s.store.InsertGoal(ctx, &g)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	g.ID = id

	if err := s.recomputeTotal(ctx, wl.ID); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Added goal",
		log.FieldUserID, userID,
		log.FieldGoalID, id,
		log.FieldAmountCents, g.Target.Cents)
	return &g, nil
}

// UpdateGoal rewrites a goal's base fields (name, target, deadline,
// description); the saved amount is untouched. Lowering the target to
// or below the saved amount marks the goal completed, same as a
// progress update would. The wishlist total is recomputed afterwards.
func (s *WishlistService) UpdateGoal(ctx context.Context, userID int64, g core.Goal) (*core.Goal, error) {
	if err := g.Validate(); err != nil {
		return nil, apperror.ValidationFailed("goal", err.Error())
	}
	owned, err := s.ownedGoal(ctx, userID, g.ID)
	if err != nil {
		return nil, err
	}

	g.WishlistID = owned.WishlistID
	if err := s.store.UpdateGoal(ctx, &g); err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}

	g.Saved = owned.Saved
	g.Completed = owned.Completed
	if !g.Completed && g.Saved.Cents >= g.Target.Cents {
		if err := s.store.UpdateGoalProgress(ctx, g.ID, g.Saved, true); err != nil {
			return nil, fmt.Errorf("update goal progress: %w", err)
		}
		g.Completed = true
	}

	if err := s.recomputeTotal(ctx, owned.WishlistID); err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateProgress sets the saved amount and the completed flag. The
// persisted flag is the source of truth, with one exception: a goal
// whose saved amount has reached the target is always completed.
func (s *WishlistService) UpdateProgress(ctx context.Context, userID, goalID int64, saved core.Money, completed bool) (*core.Goal, error) {
	if saved.Cents < 0 {
		return nil, apperror.ValidationFailed("saved", core.ErrNegativeSaved.Error())
	}
	owned, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if saved.Cents >= owned.Target.Cents {
		completed = true
	}
	if err := s.store.UpdateGoalProgress(ctx, goalID, saved, completed); err != nil {
		return nil, fmt.Errorf("update goal progress: %w", err)
	}

	owned.Saved = saved
	owned.Completed = completed
	return owned, nil
}

func (s *WishlistService) DeleteGoal(ctx context.Context, userID, goalID int64) error {
	owned, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGoal(ctx, goalID); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if err := s.recomputeTotal(ctx, owned.WishlistID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Deleted goal",
		log.FieldUserID, userID,
		log.FieldGoalID, goalID)
	return nil
}

// Total returns the denormalized sum of the user's goal targets.
func (s *WishlistService) Total(ctx context.Context, userID int64) (core.Money, error) {
	wl, err := s.store.WishlistByUser(ctx, userID)
	if err != nil || wl == nil {
		return core.Money{}, err
	}
	return wl.Total, nil
}

func (s *WishlistService) ownedGoal(ctx context.Context, userID, goalID int64) (*core.Goal, error) {
	g, err := s.store.GoalByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperror.NotFound("goal", goalID)
	}
	wl, err := s.store.WishlistByID(ctx, g.WishlistID)
	if err != nil {
		return nil, err
	}
	if wl == nil || wl.UserID != userID {
		return nil, apperror.NotFound("goal", goalID)
	}
	return g, nil
}

// recomputeTotal rereads the sum of goal targets and stores it as the
// wishlist total. Summing from scratch instead of applying deltas
// keeps the denormalized value immune to drift.
func (s *WishlistService) recomputeTotal(ctx context.Context, wishlistID int64) error {
	total, err := s.store.SumGoalTargets(ctx, wishlistID)
	if err != nil {
		return fmt.Errorf("sum goal targets: %w", err)
	}
	if err := s.store.SetWishlistTotal(ctx, wishlistID, total); err != nil {
		return fmt.Errorf("set wishlist total: %w", err)
	}
	s.logger.DebugContext(ctx, "Recomputed wishlist total",
		log.FieldWishlistID, wishlistID,
		log.FieldTotalCents, total.Cents)
	return nil
}
