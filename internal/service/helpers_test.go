package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/service"
	"github.com/siddhant-rajhans/ducknest/internal/session"
	"github.com/siddhant-rajhans/ducknest/internal/testutil/memstore"
)

const domain = "stevens.edu"

type env struct {
	db        *memstore.Store
	sessions  *session.Manager
	accounts  *service.AccountService
	listings  *service.ListingService
	search    *service.SearchService
	messaging *service.MessagingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memstore.New()
	log := zap.NewNop()
	sessions := session.NewManager(db.Sessions(), []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	listings := service.NewListingService(db.Users(), db.Listings(), log)
	return &env{
		db:        db,
		sessions:  sessions,
		accounts:  service.NewAccountService(db.Users(), sessions, domain, log).WithHashCost(bcrypt.MinCost),
		listings:  listings,
		search:    service.NewSearchService(listings, log),
		messaging: service.NewMessagingService(db.Threads(), log),
	}
}

func (e *env) register(t *testing.T, email string) model.User {
	t.Helper()
	res, err := e.accounts.Register(context.Background(), service.RegisterInput{
		Email:    email,
		Password: "correct horse battery",
		Role:     "seeker",
	})
	require.NoError(t, err)
	return res.User
}

func (e *env) createListing(t *testing.T, owner string, price float64, amenities ...string) model.Listing {
	t.Helper()
	l, err := e.listings.Create(context.Background(), owner, listingInput(price, amenities...))
	require.NoError(t, err)
	return l
}

func listingInput(price float64, amenities ...string) service.ListingInput {
	return service.ListingInput{
		Title:          "Room near campus",
		Price:          price,
		City:           "Hoboken",
		StreetAddress:  "1 Castle Point Ter",
		HouseType:      "apartment",
		Bedrooms:       2,
		Bathrooms:      1,
		LeaseMonths:    12,
		Amenities:      amenities,
		AvailableFrom:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		AvailableUntil: time.Date(2027, 5, 31, 0, 0, 0, 0, time.UTC),
	}
}

func ptr[T any](v T) *T { return &v }
