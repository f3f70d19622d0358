package catalog

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elearnhq/elearn/pkg/auth"
)

func TestWallets_CreateDefaults(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	user := seedUser(t, conn, auth.RoleLearner)

	w, err := c.Wallets.Create(ctx, CreateWallet{UserID: user})
	require.NoError(t, err)
	assert.Equal(t, "VND", w.Currency)
	assert.Zero(t, w.Balance)

	_, err = c.Wallets.Create(ctx, CreateWallet{UserID: user, Currency: "USD"})
	assert.ErrorIs(t, err, ErrConflict, "one wallet per user")

	_, err = c.Wallets.Create(ctx, CreateWallet{UserID: "no-such-user"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = c.Wallets.Create(ctx, CreateWallet{UserID: user, Currency: "dollars"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestWallets_Adjust(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	user := seedUser(t, conn, auth.RoleLearner)
	w, err := c.Wallets.Create(ctx, CreateWallet{UserID: user, Balance: 100})
	require.NoError(t, err)

	w, err = c.Wallets.Adjust(ctx, w.ID, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 150, w.Balance)

	w, err = c.Wallets.Adjust(ctx, w.ID, -150)
	require.NoError(t, err)
	assert.Zero(t, w.Balance)

	_, err = c.Wallets.Adjust(ctx, w.ID, -1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.ErrorIs(t, err, ErrInvalid)

	got, err := c.Wallets.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance, "failed debit leaves the balance alone")

	_, err = c.Wallets.Adjust(ctx, w.ID, 0)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = c.Wallets.Adjust(ctx, "missing", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWallets_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	user := seedUser(t, conn, auth.RoleLearner)
	w, err := c.Wallets.Create(ctx, CreateWallet{UserID: user, Balance: 10})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Wallets.Adjust(ctx, w.ID, -1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, ErrInsufficientFunds)
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, fail)
	got, err := c.Wallets.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
}

func TestWallets_UpdateCurrencyOnly(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	user := seedUser(t, conn, auth.RoleLearner)
	w, err := c.Wallets.Create(ctx, CreateWallet{UserID: user, Balance: 5})
	require.NoError(t, err)

	w, err = c.Wallets.Update(ctx, w.ID, UpdateWallet{Currency: strp("USD")})
	require.NoError(t, err)
	assert.Equal(t, "USD", w.Currency)
	assert.EqualValues(t, 5, w.Balance)

	_, err = c.Wallets.Update(ctx, w.ID, UpdateWallet{Currency: strp("usd")})
	assert.ErrorIs(t, err, ErrInvalid)

	mine, err := c.Wallets.List(ctx, ListParams{OwnerID: user})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, w.ID, mine[0].ID)
}

func TestWallets_AdjustBounds(t *testing.T) {
	c, conn := newTestCatalog(t)
	ctx := context.Background()
	user := seedUser(t, conn, auth.RoleLearner)
	w, err := c.Wallets.Create(ctx, CreateWallet{UserID: user, Balance: 100})
	require.NoError(t, err)

	_, err = c.Wallets.Adjust(ctx, w.ID, math.MaxInt64)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = c.Wallets.Adjust(ctx, w.ID, math.MinInt64)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = c.Wallets.Adjust(ctx, w.ID, MaxWalletBalance)
	assert.ErrorIs(t, err, ErrInvalid, "would pass the cap")

	w, err = c.Wallets.Adjust(ctx, w.ID, MaxWalletBalance-100)
	require.NoError(t, err)
	assert.Equal(t, MaxWalletBalance, w.Balance)

	_, err = c.Wallets.Adjust(ctx, w.ID, 1)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.NotErrorIs(t, err, ErrNotFound)

	got, err := c.Wallets.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxWalletBalance, got.Balance)

	_, err = c.Wallets.Adjust(ctx, "missing", MaxWalletBalance)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Wallets.Create(ctx, CreateWallet{UserID: seedUser(t, conn, auth.RoleLearner), Balance: MaxWalletBalance + 1})
	assert.ErrorIs(t, err, ErrInvalid)
}
