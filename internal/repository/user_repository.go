package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u. The unique email constraint decides concurrent registrations.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users
			(id, email, password_hash, name, role, verification_status, verified_at, created_at)
		VALUES
			(:id, :email, :password_hash, :name, :role, :verification_status, :verified_at, :created_at)
	`, u)
	if isUniqueViolation(err, "users_email_key") {
		return apperr.New(apperr.AlreadyRegistered, "email is already registered")
	}
	if err != nil {
		return fmt.Errorf("UserRepository.Create: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, "UserRepository.GetByID", `SELECT * FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "UserRepository.GetByEmail", `SELECT * FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, op, query string, arg any) (model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Delete removes the user. Listings, threads, messages and sessions cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("UserRepository.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UserRepository.Delete: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}
