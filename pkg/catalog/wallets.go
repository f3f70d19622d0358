package catalog

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// MaxWalletBalance caps balances and single adjustments, in minor units, far
// below the int64 range so arithmetic in SQL cannot overflow.
const MaxWalletBalance int64 = 1_000_000_000_000_000

// Wallet holds a user's balance in minor units. Each user has at most one
// wallet and the balance never goes below zero.
type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Owner returns the wallet holder.
func (w *Wallet) Owner() string { return w.UserID }

// CreateWallet is the input for Wallets.Create.
type CreateWallet struct {
	UserID   string `json:"userId"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

func (in *CreateWallet) setOwner(id string) { in.UserID = id }
func (in *CreateWallet) owner() string { return in.UserID }

// Validate requires a holder, a non-negative balance and an ISO currency.
func (in CreateWallet) Validate() error {
	if in.UserID == "" {
		return invalid("userId is required")
	}
	if in.Balance < 0 {
		return invalid("balance must not be negative")
	}
	if in.Balance > MaxWalletBalance {
		return invalid("balance must be at most %d", MaxWalletBalance)
	}
	if in.Currency != "" && !currencyPattern.MatchString(in.Currency) {
		return invalid("currency must be a 3-letter ISO code")
	}
	return nil
}

// UpdateWallet changes the currency. Balances only move through Adjust.
type UpdateWallet struct {
	Currency *string `json:"currency"`
}

// Validate requires an ISO currency.
func (in UpdateWallet) Validate() error {
	if in.Currency != nil && !currencyPattern.MatchString(*in.Currency) {
		return invalid("currency must be a 3-letter ISO code")
	}
	return nil
}

const walletColumns = `id, user_id, balance, currency, created_at, updated_at`

func scanWallet(row scanner) (*Wallet, error) {
	var w Wallet
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// Wallets manages the wallets table.
type Wallets struct {
	*store
}

// Create opens a wallet. A second wallet for the same user is ErrConflict.
func (ws *Wallets) Create(ctx context.Context, in CreateWallet) (*Wallet, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = "VND"
	}
	now := ws.now()
	return one(ctx, ws.store, "wallets", "Create", `
		INSERT INTO wallets (`+walletColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+walletColumns,
		[]interface{}{ws.newID(), in.UserID, in.Balance, currency, now, now},
		scanWallet)
}

// Get loads a wallet by id.
func (ws *Wallets) Get(ctx context.Context, id string) (*Wallet, error) {
	return one(ctx, ws.store, "wallets", "Get",
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, []interface{}{id}, scanWallet)
}

// List returns wallets. OwnerID filters by holder.
func (ws *Wallets) List(ctx context.Context, p ListParams) ([]*Wallet, error) {
	f := &filter{}
	f.eq("user_id", p.OwnerID)
	return list(ctx, ws.store, "wallets", walletColumns, "created_at, id", f, p, scanWallet)
}

// Update changes the currency.
func (ws *Wallets) Update(ctx context.Context, id string, in UpdateWallet) (*Wallet, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return one(ctx, ws.store, "wallets", "Update", `
		UPDATE wallets SET currency = COALESCE($1, currency), updated_at = $2
		WHERE id = $3
		RETURNING `+walletColumns,
		[]interface{}{sqlstore.NullString(in.Currency), ws.now(), id},
		scanWallet)
}

// Adjust adds delta (which may be negative) to the balance in one statement.
// A result below zero is ErrInsufficientFunds and one above MaxWalletBalance
// is ErrInvalid; either way the balance is left as it was.
func (ws *Wallets) Adjust(ctx context.Context, id string, delta int64) (*Wallet, error) {
	if delta == 0 {
		return nil, invalid("amount must not be zero")
	}
	if delta > MaxWalletBalance || delta < -MaxWalletBalance {
		return nil, invalid("amount must be within %d", MaxWalletBalance)
	}
	w, err := one(ctx, ws.store, "wallets", "Adjust", `
		UPDATE wallets SET balance = balance + $1, updated_at = $2
		WHERE id = $3 AND balance <= $4
		RETURNING `+walletColumns,
		[]interface{}{delta, ws.now(), id, MaxWalletBalance - delta},
		scanWallet)
	switch {
	case err != nil && delta < 0 && isOutOfRange(err):
		return nil, ErrInsufficientFunds
	case errors.Is(err, ErrNotFound) && delta > 0:
		// The row may exist but sit too close to the cap.
		if _, getErr := ws.Get(ctx, id); getErr == nil {
			return nil, invalid("balance must stay at most %d", MaxWalletBalance)
		}
	}
	return w, err
}

// Delete closes a wallet.
func (ws *Wallets) Delete(ctx context.Context, id string) error {
	return ws.delete(ctx, "wallets", id)
}
