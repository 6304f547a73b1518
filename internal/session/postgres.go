package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps sessions in the sessions table next to the users they
// belong to.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save inserts s and prunes the user's expired sessions.
func (p *PostgresStore) Save(ctx context.Context, s Session) error {
	_, err := p.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES (:id, :user_id, :created_at, :expires_at)
	`, s)
	if err != nil {
		return fmt.Errorf("PostgresStore.Save: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1 AND expires_at <= now()`, s.UserID); err != nil {
		return fmt.Errorf("PostgresStore.Save prune: %w", err)
	}
	return nil
}

func (p *PostgresStore) Find(ctx context.Context, id string) (Session, error) {
	var s Session
	err := p.db.GetContext(ctx, &s, `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > now()
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("PostgresStore.Find: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("PostgresStore.Delete: %w", err)
	}
	return nil
}

func (p *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("PostgresStore.DeleteUser: %w", err)
	}
	return nil
}
