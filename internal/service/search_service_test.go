package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/service"
)

func ids(ls []model.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.register(t, "alice@stevens.edu")

	cheap := e.createListing(t, a.ID, 800, "wifi")
	mid := e.createListing(t, a.ID, 1200, "laundry", "furnished")

	in := listingInput(1600, "laundry", "parking")
	in.City = "Jersey City"
	in.StreetAddress = "30 Newark Ave"
	in.Bedrooms = 3
	in.HouseType = "House"
	in.AvailableFrom = time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	in.AvailableUntil = time.Date(2027, 8, 31, 0, 0, 0, 0, time.UTC)
	far, err := e.listings.Create(ctx, a.ID, in)
	require.NoError(t, err)

	gone := e.createListing(t, a.ID, 1000, "laundry")
	_, err = e.listings.SetStatus(ctx, gone.ID, a.ID, model.StatusFilled)
	require.NoError(t, err)

	tests := []struct {
		name string
		c    service.SearchCriteria
		want []string
	}{
		{"empty returns all active", service.SearchCriteria{}, []string{cheap.ID, mid.ID, far.ID}},
		{"price max", service.SearchCriteria{PriceMax: ptr(1500.0)}, []string{cheap.ID, mid.ID}},
		{"price range", service.SearchCriteria{PriceMin: ptr(1000.0), PriceMax: ptr(1500.0)}, []string{mid.ID}},
		{"amenities subset", service.SearchCriteria{Amenities: []string{"LAUNDRY"}}, []string{mid.ID, far.ID}},
		{"amenities all required", service.SearchCriteria{Amenities: []string{"laundry", "wifi"}}, []string{}},
		{"location", service.SearchCriteria{Location: "jersey"}, []string{far.ID}},
		{"date overlap", service.SearchCriteria{
			From: ptr(time.Date(2027, 7, 1, 0, 0, 0, 0, time.UTC)),
			To:   ptr(time.Date(2027, 7, 15, 0, 0, 0, 0, time.UTC)),
		}, []string{far.ID}},
		{"open-ended date", service.SearchCriteria{To: ptr(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))}, []string{cheap.ID, mid.ID}},
		{"bedrooms", service.SearchCriteria{BedroomsMin: ptr(3)}, []string{far.ID}},
		{"house type", service.SearchCriteria{HouseType: "house"}, []string{far.ID}},
		{"conjunctive", service.SearchCriteria{PriceMax: ptr(1500.0), Amenities: []string{"laundry"}, Location: "hoboken"}, []string{mid.ID}},
		{"paged", service.SearchCriteria{Limit: 1, Offset: 1}, []string{mid.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.search.Search(ctx, tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))

			again, err := e.search.Search(ctx, tt.c)
			require.NoError(t, err)
			assert.Equal(t, ids(got), ids(again), "identical input gives identical order")
		})
	}
}

func TestSearchRejectsInconsistentCriteria(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		c    service.SearchCriteria
	}{
		{"negative price", service.SearchCriteria{PriceMin: ptr(-1.0)}},
		{"not a number minimum", service.SearchCriteria{PriceMin: ptr(math.NaN())}},
		{"not a number maximum", service.SearchCriteria{PriceMax: ptr(math.NaN())}},
		{"infinite maximum", service.SearchCriteria{PriceMax: ptr(math.Inf(1))}},
		{"negative infinite minimum", service.SearchCriteria{PriceMin: ptr(math.Inf(-1))}},
		{"min above max", service.SearchCriteria{PriceMin: ptr(2000.0), PriceMax: ptr(1000.0)}},
		{"reversed dates", service.SearchCriteria{
			From: ptr(time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)),
			To:   ptr(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)),
		}},
		{"limit too large", service.SearchCriteria{Limit: service.MaxSearchLimit + 1}},
		{"negative offset", service.SearchCriteria{Offset: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.search.Search(context.Background(), tt.c)
			assert.ErrorIs(t, err, apperr.ErrInvalidInput)
		})
	}
}

func TestSearchReportsEveryProblem(t *testing.T) {
	e := newEnv(t)
	_, err := e.search.Search(context.Background(), service.SearchCriteria{PriceMin: ptr(-1.0), Offset: -1})
	require.Error(t, err)
	assert.Contains(t, apperr.MessageOf(err), "price_min")
	assert.Contains(t, apperr.MessageOf(err), "offset")
}
