package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/domain"
	"github.com/WebiksInc/cultural-agents-micro-services/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// accountRepo implements the account credential store
type accountRepo struct {
	db *sql.DB
}

// NewAccountRepo creates a new SQLite-backed account repository
func NewAccountRepo(dbPath string) (repo.AccountRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			phone TEXT PRIMARY KEY,
			api_id INTEGER NOT NULL,
			api_hash TEXT NOT NULL,
			session_data BLOB,
			verified INTEGER NOT NULL DEFAULT 0,
			last_auth_at INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &accountRepo{db: db}, nil
}

// Get loads an account by phone
func (r *accountRepo) Get(ctx context.Context, phone string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT phone, api_id, api_hash, session_data, verified, last_auth_at
		FROM accounts
		WHERE phone = ?
	`, phone)

	var account domain.Account
	var verified int
	var lastAuthAt int64
	err := row.Scan(&account.Phone, &account.APIID, &account.APIHash, &account.SessionData, &verified, &lastAuthAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	account.Verified = verified != 0
	if lastAuthAt > 0 {
		account.LastAuthAt = time.Unix(lastAuthAt, 0)
	}
	return &account, nil
}

// Save creates or replaces an account record
func (r *accountRepo) Save(ctx context.Context, account *domain.Account) error {
	verified := 0
	if account.Verified {
		verified = 1
	}
	var lastAuthAt int64
	if !account.LastAuthAt.IsZero() {
		lastAuthAt = account.LastAuthAt.Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (phone, api_id, api_hash, session_data, verified, last_auth_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		account.Phone,
		account.APIID,
		account.APIHash,
		account.SessionData,
		verified,
		lastAuthAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Update applies a partial update to an existing record
func (r *accountRepo) Update(ctx context.Context, phone string, update domain.AccountUpdate) error {
	set := ""
	var args []interface{}

	if update.SessionData != nil {
		set += "session_data = ?"
		args = append(args, *update.SessionData)
	}
	if update.Verified != nil {
		if set != "" {
			set += ", "
		}
		set += "verified = ?"
		v := 0
		if *update.Verified {
			v = 1
		}
		args = append(args, v)
	}
	if update.LastAuthAt != nil {
		if set != "" {
			set += ", "
		}
		set += "last_auth_at = ?"
		args = append(args, update.LastAuthAt.Unix())
	}
	if set == "" {
		return nil
	}

	args = append(args, phone)
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET `+set+` WHERE phone = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// Delete removes an account record
func (r *accountRepo) Delete(ctx context.Context, phone string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE phone = ?`, phone)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// ListPhones lists all stored account phones
func (r *accountRepo) ListPhones(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT phone FROM accounts ORDER BY phone`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		phones = append(phones, phone)
	}
	return phones, rows.Err()
}

// Close closes the database connection
func (r *accountRepo) Close() error {
	return r.db.Close()
}
