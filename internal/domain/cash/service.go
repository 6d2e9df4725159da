package cash

import (
	"context"
	"time"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/pkg/logger"
)

// Service is the cash ledger.
type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

// NewService creates a cash ledger. It fails on an invalid config.
func NewService(repo Repository, cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		repo: repo,
		cfg:  cfg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Config returns the equity parameters in use.
func (s *Service) Config() Config {
	return s.cfg
}

// Create records a transaction.
func (s *Service) Create(ctx context.Context, in Input) (*Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:          id.New(),
		Amount:      in.Amount,
		Description: in.Description,
		Type:        in.Type,
		Account:     in.Account,
		Date:        s.now(),
	}
	if in.Date != nil {
		t.Date = in.Date.UTC()
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	logger.Info(ctx, "cash transaction created",
		"transaction_id", t.ID,
		"type", t.Type,
		"account", t.Account,
		"amount", t.Amount.String(),
	)
	return t, nil
}

// Update replaces the editable fields of a transaction.
func (s *Service) Update(ctx context.Context, txID id.ID, in Input) (*Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	t, err := s.repo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	t.Amount = in.Amount
	t.Description = in.Description
	t.Type = in.Type
	t.Account = in.Account
	if in.Date != nil {
		t.Date = in.Date.UTC()
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	logger.Info(ctx, "cash transaction updated", "transaction_id", t.ID)
	return t, nil
}

// Delete removes a transaction.
func (s *Service) Delete(ctx context.Context, txID id.ID) error {
	if err := s.repo.Delete(ctx, txID); err != nil {
		return err
	}
	logger.Info(ctx, "cash transaction deleted", "transaction_id", txID)
	return nil
}

// List returns all transactions newest first.
// Failures are reported as LOAD_FAILED so callers can tell an empty cash
// book from an unreadable one.
func (s *Service) List(ctx context.Context) ([]Transaction, error) {
	txs, err := s.repo.List(ctx)
	if err != nil {
		return nil, loadFailed(err)
	}
	return txs, nil
}

// Summary recomputes balances from the full cash book.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	txs, err := s.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(txs, s.cfg), nil
}

func loadFailed(err error) error {
	if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeLoadFailed {
		return err
	}
	return apperror.NewLoadFailed("cash transactions", err)
}
