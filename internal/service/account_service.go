package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcnijman/go-emailaddress"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/session"
)

type RegisterInput struct {
	Email    string `validate:"required,max=254"`
	Password string `validate:"required,min=8,max=72"`
	Name     string `validate:"max=120"`
	Role     string `validate:"required,oneof=lister seeker"`
}

// AuthResult is what register and login hand back to the client.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.User
}

// AccountService is the Account Directory: it admits only students of the
// configured institution and issues sessions.
type AccountService struct {
	users    UserStore
	sessions SessionIssuer
	domain   string
	cost     int
	log      *zap.Logger
}

func NewAccountService(users UserStore, sessions SessionIssuer, institutionDomain string, log *zap.Logger) *AccountService {
	return &AccountService{
		users:    users,
		sessions: sessions,
		domain:   strings.ToLower(institutionDomain),
		cost:     bcrypt.DefaultCost,
		log:      log,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *AccountService) WithHashCost(cost int) *AccountService {
	s.cost = cost
	return s
}

// eligible reports whether domain is the institution domain or one of its subdomains.
func (s *AccountService) eligible(domain string) bool {
	domain = strings.ToLower(domain)
	return domain == s.domain || strings.HasSuffix(domain, "."+s.domain)
}

// Register creates a verified user and signs them in. Eligibility is decided
// before any other field is looked at.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	addr, err := emailaddress.Parse(in.Email)
	if err != nil {
		return AuthResult{}, apperr.New(apperr.InvalidInput, "email address is malformed")
	}
	if !s.eligible(addr.Domain) {
		return AuthResult{}, apperr.Newf(apperr.NotEligible, "only @%s addresses may register", s.domain)
	}
	if err := validateInput(in); err != nil {
		return AuthResult{}, err
	}
	email := strings.ToLower(addr.LocalPart + "@" + addr.Domain)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, apperr.New(apperr.AlreadyRegistered, "email is already registered")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return AuthResult{}, apperr.FromStore(err, "AccountService.Register")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return AuthResult{}, apperr.Wrap(apperr.InvalidInput, err, "password cannot be used")
	}
	role, _ := model.ParseRole(in.Role)
	now := time.Now().UTC()

	user := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		Verification: model.VerificationVerified,
		VerifiedAt:   &now,
		CreatedAt:    now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return AuthResult{}, apperr.FromStore(err, "AccountService.Register")
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", user.Role.String()))

	return s.issue(ctx, user)
}

// Authenticate checks credentials and opens a session. Unknown emails and
// wrong passwords fail the same way.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return AuthResult{}, apperr.New(apperr.InvalidCredentials, "invalid email or password")
	}
	if err != nil {
		return AuthResult{}, apperr.FromStore(err, "AccountService.Authenticate")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, apperr.New(apperr.InvalidCredentials, "invalid email or password")
	}
	return s.issue(ctx, user)
}

func (s *AccountService) issue(ctx context.Context, user model.User) (AuthResult, error) {
	tok, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return AuthResult{}, apperr.FromStore(err, "AccountService.issue")
	}
	return AuthResult{Token: tok.Value, ExpiresAt: tok.Session.ExpiresAt, User: user}, nil
}

func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	return apperr.FromStore(s.sessions.Revoke(ctx, sessionID), "AccountService.Logout")
}

func (s *AccountService) Profile(ctx context.Context, userID string) (model.User, error) {
	if !validID(userID) {
		return model.User{}, apperr.New(apperr.NotFound, "user not found")
	}
	u, err := s.users.GetByID(ctx, userID)
	return u, apperr.FromStore(err, "AccountService.Profile")
}

// DeleteAccount removes the user with everything they own and ends their sessions.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if !validID(userID) {
		return apperr.New(apperr.NotFound, "user not found")
	}
	// The user row goes first so a failed delete leaves the account usable.
	// A retry after a failed revoke finds no user but still clears sessions
	// kept outside Postgres.
	delErr := s.users.Delete(ctx, userID)
	if delErr != nil && !errors.Is(delErr, apperr.ErrNotFound) {
		return apperr.FromStore(delErr, "AccountService.DeleteAccount")
	}
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return apperr.FromStore(err, "AccountService.DeleteAccount")
	}
	if delErr != nil {
		return delErr
	}
	s.log.Info("user deleted", zap.String("user_id", userID))
	return nil
}

var _ SessionIssuer = (*session.Manager)(nil)
