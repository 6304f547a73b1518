package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/service"
	"github.com/siddhant-rajhans/ducknest/internal/session"
	"github.com/siddhant-rajhans/ducknest/internal/testutil/memstore"
)

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		in      service.RegisterInput
		wantErr *apperr.Error
	}{
		{
			name: "institutional email",
			in:   service.RegisterInput{Email: "alice@stevens.edu", Password: "long enough pw", Role: "lister"},
		},
		{
			name: "subdomain and mixed case",
			in:   service.RegisterInput{Email: "Bob@Alumni.Stevens.EDU", Password: "long enough pw", Role: "seeker"},
		},
		{
			name:    "other institution",
			in:      service.RegisterInput{Email: "carol@gmail.com", Password: "long enough pw", Role: "seeker"},
			wantErr: apperr.ErrNotEligible,
		},
		{
			name:    "other institution with invalid fields",
			in:      service.RegisterInput{Email: "c@gmail.com", Password: "x"},
			wantErr: apperr.ErrNotEligible,
		},
		{
			name:    "other institution with unknown role",
			in:      service.RegisterInput{Email: "carol@gmail.com", Password: "long enough pw", Role: "admin"},
			wantErr: apperr.ErrNotEligible,
		},
		{
			name:    "lookalike domain",
			in:      service.RegisterInput{Email: "dave@notstevens.edu", Password: "long enough pw", Role: "seeker"},
			wantErr: apperr.ErrNotEligible,
		},
		{
			name:    "malformed email",
			in:      service.RegisterInput{Email: "not-an-email", Password: "long enough pw", Role: "seeker"},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "short password",
			in:      service.RegisterInput{Email: "erin@stevens.edu", Password: "short", Role: "seeker"},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:    "unknown role",
			in:      service.RegisterInput{Email: "frank@stevens.edu", Password: "long enough pw", Role: "admin"},
			wantErr: apperr.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			res, err := e.accounts.Register(context.Background(), tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, e.db.Users().Count(), "no user record on failure")
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, res.Token)
			assert.True(t, res.User.Verified())
			assert.NotNil(t, res.User.VerifiedAt)
			assert.Equal(t, 1, e.db.Users().Count())
		})
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	e := newEnv(t)
	u := e.register(t, "  Alice@Stevens.EDU ")
	assert.Equal(t, "alice@stevens.edu", u.Email)
}

func TestRegisterTwiceFailsWithAlreadyRegistered(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice@stevens.edu")

	_, err := e.accounts.Register(context.Background(), service.RegisterInput{
		Email: "ALICE@stevens.edu", Password: "another password", Role: "lister",
	})
	assert.ErrorIs(t, err, apperr.ErrAlreadyRegistered)
	assert.Equal(t, 1, e.db.Users().Count())
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.register(t, "alice@stevens.edu")

	res, err := e.accounts.Authenticate(ctx, "Alice@stevens.edu", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, u.ID, res.User.ID)

	s, err := e.sessions.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)

	_, err = e.accounts.Authenticate(ctx, "alice@stevens.edu", "wrong password")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = e.accounts.Authenticate(ctx, "nobody@stevens.edu", "correct horse battery")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Equal(t, apperr.MessageOf(err), "invalid email or password")
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.register(t, "alice@stevens.edu")
	res, err := e.accounts.Authenticate(ctx, "alice@stevens.edu", "correct horse battery")
	require.NoError(t, err)
	s, err := e.sessions.Authenticate(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, e.accounts.Logout(ctx, s.ID))

	_, err = e.sessions.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")
	b := e.register(t, "bob@stevens.edu")
	l := e.createListing(t, a.ID, 900)
	th, _, err := e.messaging.OpenThread(ctx, l.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, e.accounts.DeleteAccount(ctx, a.ID))

	_, err = e.accounts.Profile(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.listings.Get(ctx, l.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.messaging.Messages(ctx, th.ID, b.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.accounts.Authenticate(ctx, "alice@stevens.edu", "correct horse battery")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

type failingDelete struct {
	*memstore.Users
}

func (failingDelete) Delete(context.Context, string) error {
	return errors.New("connection reset by peer")
}

func TestDeleteAccountFailureKeepsSessions(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	sessions := session.NewManager(db.Sessions(), []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	accounts := service.NewAccountService(failingDelete{db.Users()}, sessions, domain, zap.NewNop()).
		WithHashCost(bcrypt.MinCost)

	res, err := accounts.Register(ctx, service.RegisterInput{Email: "alice@stevens.edu", Password: "long enough pw", Role: "seeker"})
	require.NoError(t, err)

	err = accounts.DeleteAccount(ctx, res.User.ID)
	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)

	_, err = sessions.Authenticate(ctx, res.Token)
	assert.NoError(t, err, "a failed delete must not sign the user out")
	_, err = accounts.Profile(ctx, res.User.ID)
	assert.NoError(t, err)
}

func TestDeleteAccountRevokesSessionsHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	// Sessions in a separate store do not cascade with the user row.
	sessions := session.NewManager(memstore.New().Sessions(), []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	accounts := service.NewAccountService(db.Users(), sessions, domain, zap.NewNop()).WithHashCost(bcrypt.MinCost)

	res, err := accounts.Register(ctx, service.RegisterInput{Email: "alice@stevens.edu", Password: "long enough pw", Role: "seeker"})
	require.NoError(t, err)

	require.NoError(t, accounts.DeleteAccount(ctx, res.User.ID))
	_, err = sessions.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	err = accounts.DeleteAccount(ctx, res.User.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAccountStoreFailureIsServiceUnavailable(t *testing.T) {
	e := newEnv(t)
	e.db.FailWith(errors.New("connection reset by peer"))

	_, err := e.accounts.Register(context.Background(), service.RegisterInput{
		Email: "alice@stevens.edu", Password: "long enough pw", Role: "seeker",
	})
	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)

	_, err = e.accounts.Authenticate(context.Background(), "alice@stevens.edu", "long enough pw")
	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)
}

func TestProfile(t *testing.T) {
	e := newEnv(t)
	u := e.register(t, "alice@stevens.edu")

	got, err := e.accounts.Profile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleSeeker, got.Role)

	_, err = e.accounts.Profile(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
