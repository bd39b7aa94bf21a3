package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manthysbr/labforge/internal/core/domain"
)

func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	profileJSON, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	query := `
	INSERT INTO users (id, name, email, password_hash, profile, api_key_encrypted, reports_generated, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err = r.db.ExecContext(ctx, query,
		string(u.ID), u.Name, u.Email, u.PasswordHash,
		string(profileJSON), u.APIKeyEncrypted, u.ReportsGenerated,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") ||
			strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return domain.ErrEmailTaken
		}
		return err
	}
	return nil
}

const userColumns = `id, name, email, password_hash, CAST(profile AS TEXT), api_key_encrypted, reports_generated, created_at, updated_at`

func (r *Repository) GetUser(ctx context.Context, id domain.UserID) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, string(id))
	return scanUser(row)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *Repository) UpdateUser(ctx context.Context, u domain.User) error {
	profileJSON, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
	UPDATE users SET
		name = ?, email = ?, password_hash = ?, profile = ?,
		api_key_encrypted = ?, reports_generated = ?, updated_at = ?
	WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, string(profileJSON),
		u.APIKeyEncrypted, u.ReportsGenerated, u.UpdatedAt, string(u.ID),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var idStr, profileJSON string

	err := row.Scan(&idStr, &u.Name, &u.Email, &u.PasswordHash,
		&profileJSON, &u.APIKeyEncrypted, &u.ReportsGenerated,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}

	u.ID = domain.UserID(idStr)
	if err := json.Unmarshal([]byte(profileJSON), &u.Profile); err != nil {
		return domain.User{}, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return u, nil
}
