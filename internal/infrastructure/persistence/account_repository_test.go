package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/portal/backend/internal/domain/account"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// CustomerAccountModelSQLite is a SQLite-compatible version of
// CustomerAccountModel for testing (no partial indexes)
type CustomerAccountModelSQLite struct {
	ID             string `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time `gorm:"index"`
	OnecID         string    `gorm:"index"`
	OnecGUID       string    `gorm:"index"`
	TaxID          string    `gorm:"index"`
	Email          string    `gorm:"index"`
	FirstName      string
	LastName       string
	Phone          string
	Company        string
	PasswordHash   string
	IsVerified     bool
	LastSyncFrom1C *time.Time
}

func (CustomerAccountModelSQLite) TableName() string {
	return "customer_accounts"
}

func setupAccountTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&CustomerAccountModelSQLite{})
	require.NoError(t, err)

	return db
}

func newTestAccount(t *testing.T, email string) *account.CustomerAccount {
	a, err := account.NewCustomerAccount(email)
	require.NoError(t, err)
	return a
}

func TestGormAccountRepository_SaveAndFind(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	t.Run("saves and finds by email", func(t *testing.T) {
		a := newTestAccount(t, "ivanov@example.com")
		require.NoError(t, repo.Save(ctx, a))

		found, err := repo.FindByEmail(ctx, "ivanov@example.com")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
		assert.Equal(t, "ivanov@example.com", found.Email)
	})

	t.Run("finds by onec id", func(t *testing.T) {
		a := newTestAccount(t, "petrov@example.com")
		a.OnecID = "K-00042"
		require.NoError(t, repo.Save(ctx, a))

		found, err := repo.FindByOnecID(ctx, "K-00042")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
	})

	t.Run("finds by onec guid", func(t *testing.T) {
		a := newTestAccount(t, "sidorov@example.com")
		a.OnecGUID = "9f8e1f4a-0000-4000-8000-000000000001"
		require.NoError(t, repo.Save(ctx, a))

		found, err := repo.FindByOnecGUID(ctx, "9f8e1f4a-0000-4000-8000-000000000001")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
	})

	t.Run("finds by tax id", func(t *testing.T) {
		a := newTestAccount(t, "org@example.com")
		a.TaxID = "7701234567"
		require.NoError(t, repo.Save(ctx, a))

		found, err := repo.FindByTaxID(ctx, "7701234567")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
	})

	t.Run("returns ErrNotFound for unknown values", func(t *testing.T) {
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByOnecID(ctx, "K-99999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("returns ErrNotFound for empty lookup value", func(t *testing.T) {
		// An empty identity value must never match rows with empty columns
		a := newTestAccount(t, "")
		require.NoError(t, repo.Save(ctx, a))

		_, err := repo.FindByOnecID(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = repo.FindByEmail(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save updates existing account", func(t *testing.T) {
		a := newTestAccount(t, "update@example.com")
		require.NoError(t, repo.Save(ctx, a))

		a.FirstName = "Anna"
		a.MarkVerified()
		require.NoError(t, repo.Save(ctx, a))

		found, err := repo.FindByEmail(ctx, "update@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Anna", found.FirstName)
		assert.True(t, found.IsVerified)
	})
}

func TestGormAccountRepository_TxRunner(t *testing.T) {
	db := setupAccountTestDB(t)
	repo := NewGormAccountRepository(db)
	runner := NewGormTxRunner(db)
	ctx := context.Background()

	t.Run("rolls back everything when the callback errors", func(t *testing.T) {
		err := runner.InTx(ctx, func(txCtx context.Context) error {
			a := newTestAccount(t, "rollback@example.com")
			if err := repo.Save(txCtx, a); err != nil {
				return err
			}
			return assert.AnError
		})
		require.Error(t, err)

		_, err = repo.FindByEmail(ctx, "rollback@example.com")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("commits when the callback succeeds", func(t *testing.T) {
		err := runner.InTx(ctx, func(txCtx context.Context) error {
			return repo.Save(txCtx, newTestAccount(t, "commit@example.com"))
		})
		require.NoError(t, err)

		found, err := repo.FindByEmail(ctx, "commit@example.com")
		require.NoError(t, err)
		assert.Equal(t, "commit@example.com", found.Email)
	})
}
