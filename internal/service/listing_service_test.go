package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/service"
)

func TestCreateListing(t *testing.T) {
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")

	l := e.createListing(t, a.ID, 1200, "Laundry", "furnished", "laundry")

	assert.Equal(t, model.StatusActive, l.Status)
	assert.Equal(t, a.ID, l.OwnerID)
	assert.Equal(t, []string{"furnished", "laundry"}, l.Amenities)
	assert.False(t, l.CreatedAt.IsZero())
}

func TestCreateListingRequiresVerifiedOwner(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	pending := model.User{
		ID:           uuid.NewString(),
		Email:        "pending@stevens.edu",
		Role:         model.RoleLister,
		Verification: model.VerificationPending,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, e.db.Users().Create(ctx, &pending))

	_, err := e.listings.Create(ctx, pending.ID, listingInput(800))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = e.listings.Create(ctx, uuid.NewString(), listingInput(800))
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestCreateListingValidation(t *testing.T) {
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")

	tests := []struct {
		name   string
		mutate func(*service.ListingInput)
	}{
		{"negative price", func(in *service.ListingInput) { in.Price = -1 }},
		{"price beyond column precision", func(in *service.ListingInput) { in.Price = 1e12 }},
		{"not a number price", func(in *service.ListingInput) { in.Price = math.NaN() }},
		{"distance beyond column precision", func(in *service.ListingInput) { in.DistanceMiles = ptr(123456.0) }},
		{"negative distance", func(in *service.ListingInput) { in.DistanceMiles = ptr(-0.5) }},
		{"missing title", func(in *service.ListingInput) { in.Title = "   " }},
		{"missing city", func(in *service.ListingInput) { in.City = "" }},
		{"window ends before it starts", func(in *service.ListingInput) {
			in.AvailableUntil = in.AvailableFrom.AddDate(0, 0, -1)
		}},
		{"missing start", func(in *service.ListingInput) { in.AvailableFrom = time.Time{} }},
		{"negative bedrooms", func(in *service.ListingInput) { in.Bedrooms = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := listingInput(1000)
			tt.mutate(&in)
			_, err := e.listings.Create(context.Background(), a.ID, in)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestUpdateListing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")
	b := e.register(t, "bob@stevens.edu")
	l := e.createListing(t, a.ID, 1200, "laundry")

	updated, err := e.listings.Update(ctx, l.ID, a.ID, service.ListingPatch{
		Price:     ptr(1100.0),
		Amenities: &[]string{"Parking", "laundry"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1100.0, updated.Price)
	assert.Equal(t, []string{"laundry", "parking"}, updated.Amenities)
	assert.Equal(t, l.Title, updated.Title)

	_, err = e.listings.Update(ctx, l.ID, b.ID, service.ListingPatch{Price: ptr(1.0)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = e.listings.Update(ctx, l.ID, a.ID, service.ListingPatch{Price: ptr(1e12)})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = e.listings.Update(ctx, uuid.NewString(), a.ID, service.ListingPatch{Price: ptr(1.0)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.listings.Update(ctx, "42", a.ID, service.ListingPatch{Price: ptr(1.0)})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.listings.Update(ctx, l.ID, a.ID, service.ListingPatch{Price: ptr(-5.0)})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := e.listings.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 1100.0, got.Price, "rejected updates leave the listing untouched")
}

func TestUpdateTerminalListingIsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")
	l := e.createListing(t, a.ID, 1200)
	_, err := e.listings.SetStatus(ctx, l.ID, a.ID, model.StatusWithdrawn)
	require.NoError(t, err)

	_, err = e.listings.Update(ctx, l.ID, a.ID, service.ListingPatch{Price: ptr(1.0)})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestSetStatusTransitions(t *testing.T) {
	all := []model.ListingStatus{model.StatusActive, model.StatusFilled, model.StatusWithdrawn}

	for _, first := range []model.ListingStatus{model.StatusFilled, model.StatusWithdrawn} {
		for _, second := range all {
			t.Run(first.String()+"->"+second.String(), func(t *testing.T) {
				ctx := context.Background()
				e := newEnv(t)
				a := e.register(t, "alice@stevens.edu")
				l := e.createListing(t, a.ID, 1200)

				got, err := e.listings.SetStatus(ctx, l.ID, a.ID, first)
				require.NoError(t, err)
				assert.Equal(t, first, got.Status)

				_, err = e.listings.SetStatus(ctx, l.ID, a.ID, second)
				assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

				after, err := e.listings.Get(ctx, l.ID)
				require.NoError(t, err)
				assert.Equal(t, first, after.Status)
			})
		}
	}
}

func TestSetStatusActiveToActiveIsInvalid(t *testing.T) {
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")
	l := e.createListing(t, a.ID, 1200)

	_, err := e.listings.SetStatus(context.Background(), l.ID, a.ID, model.StatusActive)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestSetStatusChecksOrder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")
	b := e.register(t, "bob@stevens.edu")
	l := e.createListing(t, a.ID, 1200)
	_, err := e.listings.SetStatus(ctx, l.ID, a.ID, model.StatusFilled)
	require.NoError(t, err)

	_, err = e.listings.SetStatus(ctx, uuid.NewString(), b.ID, model.StatusFilled)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = e.listings.SetStatus(ctx, l.ID, b.ID, model.StatusActive)
	assert.ErrorIs(t, err, apperr.ErrForbidden, "ownership is checked before the transition")
}

func TestListIsLazyAndRestartable(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")
	first := e.createListing(t, a.ID, 700)
	e.createListing(t, a.ID, 800)
	filled := e.createListing(t, a.ID, 900)
	_, err := e.listings.SetStatus(ctx, filled.ID, a.ID, model.StatusFilled)
	require.NoError(t, err)

	seq := e.listings.List(ctx, model.ListingFilter{})

	collect := func() []string {
		var ids []string
		for l, err := range seq {
			require.NoError(t, err)
			ids = append(ids, l.ID)
		}
		return ids
	}
	firstPass := collect()
	assert.Len(t, firstPass, 2)
	assert.Equal(t, firstPass, collect(), "ranging again yields the same sequence")

	late := e.createListing(t, a.ID, 1000)
	assert.Equal(t, append(firstPass, late.ID), collect(), "each pass reflects current state")

	for l, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, first.ID, l.ID)
		break
	}
}

func TestListByOwnerIncludesAllStatuses(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")
	b := e.register(t, "bob@stevens.edu")
	l := e.createListing(t, a.ID, 700)
	e.createListing(t, b.ID, 800)
	_, err := e.listings.SetStatus(ctx, l.ID, a.ID, model.StatusWithdrawn)
	require.NoError(t, err)

	mine, err := e.listings.ListByOwner(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.StatusWithdrawn, mine[0].Status)
}

func TestListingStoreFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")
	l := e.createListing(t, a.ID, 700)
	e.db.FailWith(errors.New("pq: the database system is shutting down"))

	_, err := e.listings.SetStatus(ctx, l.ID, a.ID, model.StatusFilled)
	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)
	_, err = e.listings.ListByOwner(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrServiceUnavailable)
}
