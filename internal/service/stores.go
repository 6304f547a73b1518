package service

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/session"
)

// UserStore is the persistence the Account Directory needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Delete(ctx context.Context, id string) error
}

// ListingStore is the persistence the listing and search services need.
type ListingStore interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id string) (model.Listing, error)
	Mutate(ctx context.Context, id string, fn func(*model.Listing) error) (model.Listing, error)
	List(ctx context.Context, f model.ListingFilter) iter.Seq2[model.Listing, error]
}

// ThreadStore is the persistence the Messaging Service needs.
type ThreadStore interface {
	Open(ctx context.Context, listingID, seekerID string, check func(model.Listing) error) (model.Thread, bool, error)
	Get(ctx context.Context, id string) (model.Thread, error)
	ListByUser(ctx context.Context, userID string) ([]model.Thread, error)
	Append(ctx context.Context, m *model.Message, authorize func(model.Thread) error) error
	Messages(ctx context.Context, threadID string) ([]model.Message, error)
}

// SessionIssuer hands out and revokes bearer sessions.
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (session.Token, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAll(ctx context.Context, userID string) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput checks struct tags and reports every failing field as one
// InvalidInput error.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.InvalidInput, err, "invalid input")
	}
	var all error
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		all = multierr.Append(all, fe)
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return apperr.Wrap(apperr.InvalidInput, all, "invalid fields: "+strings.Join(fields, ", "))
}

// validID reports whether id can name a stored row. Malformed ids cannot
// exist, so callers treat them as NotFound.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}
