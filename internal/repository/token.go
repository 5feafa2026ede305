package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/pkg/crypto"
)

// SQLiteTokenRepository implements TokenRepository backed by SQLite.
// When a seal key is configured the token is sealed at rest with
// Argon2id + AES-256-GCM.
type SQLiteTokenRepository struct {
	db      *sql.DB
	sealKey string
}

// NewSQLiteTokenRepository creates a new token repository.
func NewSQLiteTokenRepository(db *sql.DB, sealKey string) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db, sealKey: sealKey}
}

// Get returns the stored override token, unsealing it if needed.
func (r *SQLiteTokenRepository) Get(ctx context.Context) (*domain.BearerTokenConfig, error) {
	var raw []byte
	var sealed bool
	var updatedAt time.Time
	var updatedBy sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT token, sealed, updated_at, updated_by FROM bearer_token WHERE id = 1`,
	).Scan(&raw, &sealed, &updatedAt, &updatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("query bearer token: %w", err)
	}

	token := string(raw)
	if sealed {
		if r.sealKey == "" {
			return nil, fmt.Errorf("stored token is sealed but no seal key is configured")
		}
		plain, err := crypto.Unseal(raw, r.sealKey)
		if err != nil {
			return nil, fmt.Errorf("unseal bearer token: %w", err)
		}
		token = string(plain)
	}

	if token == "" {
		return nil, domain.ErrTokenNotConfigured
	}

	return &domain.BearerTokenConfig{
		Token:     token,
		UpdatedAt: updatedAt,
		UpdatedBy: updatedBy.String,
	}, nil
}

// Set stores or replaces the override token.
func (r *SQLiteTokenRepository) Set(ctx context.Context, token, updatedBy string) error {
	if token == "" {
		return fmt.Errorf("token is empty")
	}

	raw := []byte(token)
	sealed := false
	if r.sealKey != "" {
		sealedRaw, err := crypto.Seal(raw, r.sealKey)
		if err != nil {
			return fmt.Errorf("seal bearer token: %w", err)
		}
		raw = sealedRaw
		sealed = true
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bearer_token (id, token, sealed, updated_at, updated_by)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			token = excluded.token,
			sealed = excluded.sealed,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by
	`, raw, sealed, time.Now().UTC(), nullable(updatedBy))
	if err != nil {
		return fmt.Errorf("write bearer token: %w", err)
	}
	return nil
}

// Delete removes the override token. Idempotent.
func (r *SQLiteTokenRepository) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bearer_token WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("delete bearer token: %w", err)
	}
	return nil
}
