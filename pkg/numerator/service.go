// Package numerator provides human-readable sequential numbering
// (e.g. ORD-2026-00001) backed by the sys_sequences table.
package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgx used for sequence updates.
// The postgres TxManager satisfies it and routes the query to the
// transaction carried by ctx, so a rolled back caller releases its number.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service hands out sequence values.
type Service struct {
	querier Querier
	now     func() time.Time
}

// New creates a numerator service.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		now:     time.Now,
	}
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g. "ORD")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// DefaultConfig returns yearly numbering with five digits.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// GetNextNumber generates the next number for period with
// UPSERT ... RETURNING. Numbers have no gaps as long as the caller's
// transaction commits.
func (s *Service) GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error) {
	if s == nil || s.querier == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	var num int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, Key(cfg, period)).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next number: %w", err)
	}

	return Format(cfg, period, num), nil
}

// Sequence binds a config to the service so callers only ask for Next.
func (s *Service) Sequence(cfg Config) *Sequence {
	return &Sequence{svc: s, cfg: cfg}
}

// Sequence is a named number stream.
type Sequence struct {
	svc *Service
	cfg Config
}

// Next returns the next formatted number.
func (q *Sequence) Next(ctx context.Context) (string, error) {
	return q.svc.GetNextNumber(ctx, q.cfg, q.svc.now())
}

// Key creates the sequence key for config and period.
func Key(cfg Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case "month":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006_01"))
	case "year":
		return fmt.Sprintf("%s_%s", cfg.Prefix, period.Format("2006"))
	default:
		return cfg.Prefix
	}
}

// Format renders num as a number string.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}

	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

// ParseNumber extracts the numeric part from a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 || i == len(formatted)-1 {
		return -1
	}
	num, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil || num < 0 {
		return -1
	}
	return num
}
