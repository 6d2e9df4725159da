package cash

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pheezes/internal/core/apperror"
	"pheezes/internal/core/id"
	"pheezes/internal/core/types"
)

// stubRepo is a minimal in-package Repository.
type stubRepo struct {
	items   map[id.ID]Transaction
	listErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{items: make(map[id.ID]Transaction)}
}

func (r *stubRepo) Create(_ context.Context, t *Transaction) error {
	r.items[t.ID] = *t
	return nil
}

func (r *stubRepo) GetByID(_ context.Context, txID id.ID) (*Transaction, error) {
	t, ok := r.items[txID]
	if !ok {
		return nil, apperror.NewNotFound("transaction", txID)
	}
	return &t, nil
}

func (r *stubRepo) Update(_ context.Context, t *Transaction) error {
	if _, ok := r.items[t.ID]; !ok {
		return apperror.NewNotFound("transaction", t.ID)
	}
	r.items[t.ID] = *t
	return nil
}

func (r *stubRepo) Delete(_ context.Context, txID id.ID) error {
	if _, ok := r.items[txID]; !ok {
		return apperror.NewNotFound("transaction", txID)
	}
	delete(r.items, txID)
	return nil
}

func (r *stubRepo) List(context.Context) ([]Transaction, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]Transaction, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, t)
	}
	return out, nil
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		txs   []Transaction
		cfg   Config
		bkash string
		misc  string
		grand string
		share string
	}{
		{
			name:  "empty book",
			cfg:   DefaultConfig(),
			bkash: "0", misc: "8000", grand: "8000", share: "2000",
		},
		{
			name: "income and expense",
			txs: []Transaction{
				{Amount: types.MustMoney("500"), Type: TypeIncome, Account: AccountBkash},
				{Amount: types.MustMoney("200"), Type: TypeExpense, Account: AccountMisc},
			},
			cfg:   DefaultConfig(),
			bkash: "500", misc: "7800", grand: "8300", share: "2075",
		},
		{
			name: "negative bkash",
			txs: []Transaction{
				{Amount: types.MustMoney("120.40"), Type: TypeExpense, Account: AccountBkash},
			},
			cfg:   DefaultConfig(),
			bkash: "-120.4", misc: "8000", grand: "7879.6", share: "1969.9",
		},
		{
			name: "share rounding",
			txs: []Transaction{
				{Amount: types.MustMoney("100"), Type: TypeIncome, Account: AccountMisc},
			},
			cfg:   Config{InitialCapital: types.Zero(), ShareholderCount: 3},
			bkash: "0", misc: "100", grand: "100", share: "33.33",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.txs, tt.cfg)
			assert.True(t, s.BkashBalance.Equal(types.MustMoney(tt.bkash)), "bkash %s", s.BkashBalance)
			assert.True(t, s.MiscBalance.Equal(types.MustMoney(tt.misc)), "misc %s", s.MiscBalance)
			assert.True(t, s.GrandTotal.Equal(types.MustMoney(tt.grand)), "grand %s", s.GrandTotal)
			assert.True(t, s.SharePerPerson.Equal(types.MustMoney(tt.share)), "share %s", s.SharePerPerson)
			assert.Equal(t, tt.cfg.ShareholderCount, s.ShareholderCount)
		})
	}
}

func TestNewService_InvalidConfig(t *testing.T) {
	_, err := NewService(newStubRepo(), Config{InitialCapital: types.Zero(), ShareholderCount: 0})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = NewService(newStubRepo(), Config{InitialCapital: types.MustMoney("-1"), ShareholderCount: 2})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestInput_Validate(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{name: "zero amount", in: Input{Amount: types.Zero(), Description: "x", Type: TypeIncome}, field: "amount"},
		{name: "negative amount", in: Input{Amount: types.MustMoney("-3"), Description: "x", Type: TypeIncome}, field: "amount"},
		{name: "sub-cent amount", in: Input{Amount: types.MustMoney("0.001"), Description: "x", Type: TypeIncome}, field: "amount"},
		{name: "blank description", in: Input{Amount: types.MustMoney("3"), Description: "  ", Type: TypeIncome}, field: "description"},
		{name: "bad type", in: Input{Amount: types.MustMoney("3"), Description: "x", Type: "GIFT"}, field: "type"},
		{name: "bad account", in: Input{Amount: types.MustMoney("3"), Description: "x", Type: TypeIncome, Account: "BANK"}, field: "account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}

	in := Input{Amount: types.MustMoney("3"), Description: "tea", Type: TypeExpense}
	require.NoError(t, in.Validate())
	assert.Equal(t, AccountMisc, in.Account)
}

func TestService_CRUD(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, DefaultConfig())
	require.NoError(t, err)
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Amount: types.MustMoney("500"), Description: "sale", Type: TypeIncome, Account: AccountBkash})
	require.NoError(t, err)
	assert.Equal(t, fixed, created.Date)

	backdated := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Update(ctx, created.ID, Input{Amount: types.MustMoney("450"), Description: "sale (fixed)", Type: TypeIncome, Account: AccountBkash, Date: &backdated})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(types.MustMoney("450")))
	assert.Equal(t, backdated, updated.Date)

	kept, err := svc.Update(ctx, created.ID, Input{Amount: types.MustMoney("450"), Description: "sale", Type: TypeIncome})
	require.NoError(t, err)
	assert.Equal(t, backdated, kept.Date, "date is kept when not given")
	assert.Equal(t, AccountMisc, kept.Account)

	_, err = svc.Update(ctx, id.New(), Input{Amount: types.MustMoney("1"), Description: "x", Type: TypeIncome})
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.True(t, apperror.IsNotFound(svc.Delete(ctx, created.ID)))
}

func TestService_Summary(t *testing.T) {
	repo := newStubRepo()
	svc, err := NewService(repo, DefaultConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Create(ctx, Input{Amount: types.MustMoney("500"), Description: "sale", Type: TypeIncome, Account: AccountBkash})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Amount: types.MustMoney("200"), Description: "packaging", Type: TypeExpense, Account: AccountMisc})
	require.NoError(t, err)

	s, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, s.GrandTotal.Equal(types.MustMoney("8300")))
	assert.True(t, s.SharePerPerson.Equal(types.MustMoney("2075")))
}

func TestService_List_LoadFailed(t *testing.T) {
	repo := newStubRepo()
	repo.listErr = apperror.NewDatabase("list transactions", errors.New("connection refused"))
	svc, err := NewService(repo, DefaultConfig())
	require.NoError(t, err)

	_, err = svc.List(context.Background())
	assert.True(t, apperror.IsCode(err, apperror.CodeLoadFailed))
	assert.Equal(t, 503, apperror.GetHTTPStatus(err))

	_, err = svc.Summary(context.Background())
	assert.True(t, apperror.IsCode(err, apperror.CodeLoadFailed))
}
