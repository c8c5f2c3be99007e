package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/coursemeet/backend/internal/models"
	"github.com/coursemeet/backend/pkg/database"
)

// ErrNoAccount is returned when no service account is in use.
var ErrNoAccount = errors.New("no service account in use")

const accountColumns = `id, name, client_access_token, client_refresh_token, token_created, in_use, created_at`

// Repository handles service account persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a service account repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanAccount(row pgx.Row) (*models.ServiceAccount, error) {
	var a models.ServiceAccount
	err := row.Scan(&a.ID, &a.Name, &a.ClientAccessToken, &a.ClientRefreshToken, &a.TokenCreated, &a.InUse, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoAccount
		}
		return nil, err
	}
	return &a, nil
}

// InUse returns the account currently used for recordings.
func (r *Repository) InUse(ctx context.Context) (*models.ServiceAccount, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM service_accounts WHERE in_use`))
}

// Get returns an account by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*models.ServiceAccount, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM service_accounts WHERE id = $1`, id))
}

// List returns all accounts, oldest first.
func (r *Repository) List(ctx context.Context) ([]models.ServiceAccount, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM service_accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ServiceAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// Create inserts a new account, not in use.
func (r *Repository) Create(ctx context.Context, a *models.ServiceAccount) error {
	const q = `INSERT INTO service_accounts (name, client_access_token, client_refresh_token, token_created)
		VALUES ($1, $2, $3, $4)
		RETURNING id, in_use, created_at`
	err := r.db.QueryRow(ctx, q, a.Name, a.ClientAccessToken, a.ClientRefreshToken, a.TokenCreated).
		Scan(&a.ID, &a.InUse, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert service account: %w", err)
	}
	return nil
}

// SetInUse makes id the only account in use.
func (r *Repository) SetInUse(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE service_accounts SET in_use = FALSE WHERE in_use`); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE service_accounts SET in_use = TRUE WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNoAccount
		}
		return nil
	})
}

// UpdateTokens stores a refreshed token pair.
func (r *Repository) UpdateTokens(ctx context.Context, id int64, access, refresh string, created int64) error {
	const q = `UPDATE service_accounts SET client_access_token = $2, client_refresh_token = $3, token_created = $4
		WHERE id = $1`
	if _, err := r.db.Exec(ctx, q, id, access, refresh, created); err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	return nil
}
