package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
)

const threadColumns = `id, listing_id, lister_id, seeker_id, created_at, last_message_at`

type ThreadRepository struct {
	db *sqlx.DB
}

func NewThreadRepository(db *sqlx.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// Open returns the thread for (listingID, seekerID), creating it if needed.
// The listing row is share-locked while check runs, so a concurrent status
// change cannot slip between the check and the insert. The bool reports
// whether a new thread was created.
func (r *ThreadRepository) Open(ctx context.Context, listingID, seekerID string, check func(model.Listing) error) (_ model.Thread, _ bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Thread{}, false, fmt.Errorf("ThreadRepository.Open begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row listingRow
	err = tx.GetContext(ctx, &row, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR SHARE`, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Thread{}, false, apperr.New(apperr.NotFound, "listing not found")
	}
	if err != nil {
		return model.Thread{}, false, fmt.Errorf("ThreadRepository.Open listing: %w", err)
	}
	listing := row.toModel()
	if err = check(listing); err != nil {
		return model.Thread{}, false, err
	}

	// The no-op update makes RETURNING yield the existing row on conflict;
	// xmax is zero only for a freshly inserted tuple.
	var out struct {
		model.Thread
		Created bool `db:"created"`
	}
	err = tx.GetContext(ctx, &out, `
		INSERT INTO message_threads (id, listing_id, lister_id, seeker_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (listing_id, seeker_id) DO UPDATE SET listing_id = EXCLUDED.listing_id
		RETURNING `+threadColumns+`, (xmax = 0) AS created
	`, uuid.NewString(), listing.ID, listing.OwnerID, seekerID)
	if err != nil {
		return model.Thread{}, false, fmt.Errorf("ThreadRepository.Open insert: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return model.Thread{}, false, fmt.Errorf("ThreadRepository.Open commit: %w", err)
	}
	return out.Thread, out.Created, nil
}

func (r *ThreadRepository) Get(ctx context.Context, id string) (model.Thread, error) {
	var t model.Thread
	err := r.db.GetContext(ctx, &t, `SELECT `+threadColumns+` FROM message_threads WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Thread{}, apperr.New(apperr.NotFound, "thread not found")
	}
	if err != nil {
		return model.Thread{}, fmt.Errorf("ThreadRepository.Get: %w", err)
	}
	return t, nil
}

// ListByUser returns the threads userID takes part in, most recent activity first.
func (r *ThreadRepository) ListByUser(ctx context.Context, userID string) ([]model.Thread, error) {
	threads := []model.Thread{}
	err := r.db.SelectContext(ctx, &threads, `
		SELECT `+threadColumns+`
		FROM message_threads
		WHERE lister_id = $1 OR seeker_id = $1
		ORDER BY COALESCE(last_message_at, created_at) DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ThreadRepository.ListByUser: %w", err)
	}
	return threads, nil
}

// Append locks the thread, lets authorize inspect it, and appends m. The
// stored timestamp never precedes the previous message in the thread, so
// (created_at, seq) order is send order.
func (r *ThreadRepository) Append(ctx context.Context, m *model.Message, authorize func(model.Thread) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ThreadRepository.Append begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var t model.Thread
	err = tx.GetContext(ctx, &t, `SELECT `+threadColumns+` FROM message_threads WHERE id = $1 FOR UPDATE`, m.ThreadID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.NotFound, "thread not found")
	}
	if err != nil {
		return fmt.Errorf("ThreadRepository.Append lock: %w", err)
	}
	if err = authorize(t); err != nil {
		return err
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO messages (id, thread_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, GREATEST(clock_timestamp(), $5::timestamptz))
		RETURNING seq, created_at
	`, m.ID, m.ThreadID, m.SenderID, m.Body, t.LastMessageAt).Scan(&m.Seq, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("ThreadRepository.Append insert: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE message_threads SET last_message_at = $1 WHERE id = $2`, m.CreatedAt, m.ThreadID); err != nil {
		return fmt.Errorf("ThreadRepository.Append watermark: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ThreadRepository.Append commit: %w", err)
	}
	return nil
}

// Messages returns the thread's messages in send order.
func (r *ThreadRepository) Messages(ctx context.Context, threadID string) ([]model.Message, error) {
	msgs := []model.Message{}
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT id, seq, thread_id, sender_id, body, created_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at ASC, seq ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("ThreadRepository.Messages: %w", err)
	}
	return msgs, nil
}
