package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iconidentify/facepass/internal/domain"
)

// SQLiteIdentityRepository implements IdentityRepository backed by SQLite.
type SQLiteIdentityRepository struct {
	db *sql.DB
}

// NewSQLiteIdentityRepository creates a new identity repository.
func NewSQLiteIdentityRepository(db *sql.DB) *SQLiteIdentityRepository {
	return &SQLiteIdentityRepository{db: db}
}

// Get returns the identity linked to an admin id.
func (r *SQLiteIdentityRepository) Get(ctx context.Context, adminID string) (*domain.AdminIdentity, error) {
	var ident domain.AdminIdentity
	var twitterUserID, displayName, avatarURL sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT admin_id, username, twitter_user_id, display_name, avatar_url, linked_at
		FROM admin_identities WHERE admin_id = ?
	`, adminID).Scan(&ident.AdminID, &ident.Username, &twitterUserID, &displayName, &avatarURL, &ident.LinkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query identity: %w", err)
	}

	ident.TwitterUserID = twitterUserID.String
	ident.DisplayName = displayName.String
	ident.AvatarURL = avatarURL.String
	return &ident, nil
}

// Put creates or replaces the identity link.
func (r *SQLiteIdentityRepository) Put(ctx context.Context, identity *domain.AdminIdentity) error {
	if identity.AdminID == "" || identity.Username == "" {
		return fmt.Errorf("identity requires admin_id and username")
	}
	if identity.LinkedAt.IsZero() {
		identity.LinkedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_identities (admin_id, username, twitter_user_id, display_name, avatar_url, linked_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (admin_id) DO UPDATE SET
			username = excluded.username,
			twitter_user_id = excluded.twitter_user_id,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			linked_at = excluded.linked_at
	`, identity.AdminID, identity.Username, nullable(identity.TwitterUserID),
		nullable(identity.DisplayName), nullable(identity.AvatarURL), identity.LinkedAt)
	if err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

// SetTwitterUserID caches the discovered numeric platform id. The value
// is idempotent once discovered, so no transaction guards the
// read-then-write in the caller.
func (r *SQLiteIdentityRepository) SetTwitterUserID(ctx context.Context, adminID, twitterUserID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE admin_identities SET twitter_user_id = ? WHERE admin_id = ?`,
		twitterUserID, adminID)
	if err != nil {
		return fmt.Errorf("update twitter user id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// Delete removes the identity link. Idempotent.
func (r *SQLiteIdentityRepository) Delete(ctx context.Context, adminID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM admin_identities WHERE admin_id = ?`, adminID)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
