package services

import (
	"context"
	"fmt"

	"finanzapp/internal/apperror"
	"finanzapp/internal/core"
	"finanzapp/internal/export"
	"finanzapp/internal/log"
	"finanzapp/internal/storage"
)

// SyncPublisher enqueues a budget line for the backup sheet. Nil means
// sync is disabled (kv backend, or AMQP not configured).
type SyncPublisher interface {
	PublishBudgetSync(ctx context.Context, kind string, id int64) error
}

// ReportInvalidator drops a user's cached balance summary after a
// budget write.
type ReportInvalidator interface {
	Invalidate(userID int64)
}

// BudgetService handles income and expense lines for one user at a
// time. Every operation is scoped to the given user: touching another
// user's line reports not-found, never the foreign line.
type BudgetService struct {
	store   storage.Store
	queue   SyncPublisher
	reports ReportInvalidator
	logger  *log.Logger
}

func NewBudgetService(store storage.Store, queue SyncPublisher, reports ReportInvalidator, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &BudgetService{
		store:   store,
		queue:   queue,
		reports: reports,
		logger:  logger.WithComponent(log.ComponentBudget),
	}
}

/* ---------- incomes ---------- */

func (s *BudgetService) ListIncomes(ctx context.Context, userID int64) ([]core.Income, error) {
	return s.store.ListIncomes(ctx, userID)
}

func (s *BudgetService) AddIncome(ctx context.Context, in core.Income) (*core.Income, error) {
	if err := in.Validate(); err != nil {
		return nil, apperror.ValidationFailed("income", err.Error())
	}

	id, err := s.store.InsertIncome(ctx, &in)
	if err != nil {
		return nil, fmt.Errorf("insert income: %w", err)
	}
	in.ID = id

	s.afterWrite(ctx, in.UserID, export.KindIncome, id)
	s.logger.InfoContext(ctx, "Added income",
		log.FieldUserID, in.UserID,
		log.FieldLineID, id,
		log.FieldAmountCents, in.Amount.Cents)
	return &in, nil
}

func (s *BudgetService) UpdateIncome(ctx context.Context, userID int64, in core.Income) (*core.Income, error) {
	if err := in.Validate(); err != nil {
		return nil, apperror.ValidationFailed("income", err.Error())
	}
	if _, err := s.ownedIncome(ctx, userID, in.ID); err != nil {
		return nil, err
	}

	in.UserID = userID
	if err := s.store.UpdateIncome(ctx, &in); err != nil {
		return nil, fmt.Errorf("update income: %w", err)
	}

	s.afterWrite(ctx, userID, export.KindIncome, in.ID)
	return &in, nil
}

func (s *BudgetService) DeleteIncome(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedIncome(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if s.reports != nil {
		s.reports.Invalidate(userID)
	}
	s.logger.InfoContext(ctx, "Deleted income",
		log.FieldUserID, userID,
		log.FieldLineID, id)
	return nil
}

func (s *BudgetService) ownedIncome(ctx context.Context, userID, id int64) (*core.Income, error) {
	in, err := s.store.IncomeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in == nil || in.UserID != userID {
		return nil, apperror.NotFound("income", id)
	}
	return in, nil
}

/* ---------- expenses ---------- */

func (s *BudgetService) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx, userID)
}

func (s *BudgetService) AddExpense(ctx context.Context, ex core.Expense) (*core.Expense, error) {
	ex.Day = core.ClampDay(ex.Day)
	if err := ex.Validate(); err != nil {
		return nil, apperror.ValidationFailed("expense", err.Error())
	}

	id, err := s.store.InsertExpense(ctx, &ex)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	ex.ID = id

	s.afterWrite(ctx, ex.UserID, export.KindExpense, id)
	s.logger.InfoContext(ctx, "Added expense",
		log.FieldUserID, ex.UserID,
		log.FieldLineID, id,
		log.FieldAmountCents, ex.Amount.Cents)
	return &ex, nil
}

func (s *BudgetService) UpdateExpense(ctx context.Context, userID int64, ex core.Expense) (*core.Expense, error) {
	ex.Day = core.ClampDay(ex.Day)
	if err := ex.Validate(); err != nil {
		return nil, apperror.ValidationFailed("expense", err.Error())
	}
	if _, err := s.ownedExpense(ctx, userID, ex.ID); err != nil {
		return nil, err
	}

	ex.UserID = userID
	if err := s.store.UpdateExpense(ctx, &ex); err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}

	s.afterWrite(ctx, userID, export.KindExpense, ex.ID)
	return &ex, nil
}

func (s *BudgetService) DeleteExpense(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedExpense(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if s.reports != nil {
		s.reports.Invalidate(userID)
	}
	s.logger.InfoContext(ctx, "Deleted expense",
		log.FieldUserID, userID,
		log.FieldLineID, id)
	return nil
}

func (s *BudgetService) ownedExpense(ctx context.Context, userID, id int64) (*core.Expense, error) {
	ex, err := s.store.ExpenseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ex == nil || ex.UserID != userID {
		return nil, apperror.NotFound("expense", id)
	}
	return ex, nil
}

// afterWrite invalidates the user's cached summary and, when the sync
// queue is up, enqueues the line for the backup sheet. A publish
// failure is logged and swallowed: the line stays flagged unsynced and
// the worker's catch-up scan picks it up later.
func (s *BudgetService) afterWrite(ctx context.Context, userID int64, kind string, id int64) {
	if s.reports != nil {
		s.reports.Invalidate(userID)
	}
	if s.queue == nil {
		return
	}
	if err := s.queue.PublishBudgetSync(ctx, kind, id); err != nil {
		s.logger.WarnContext(ctx, "Failed to enqueue budget sync",
			log.FieldError, err,
			log.FieldLineKind, kind,
			log.FieldLineID, id)
	}
}
