package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
)

// MaxSearchLimit caps one page of search results.
const MaxSearchLimit = 200

// SearchCriteria are the optional filters a seeker can combine.
type SearchCriteria struct {
	PriceMin    *float64
	PriceMax    *float64
	Location    string
	Amenities   []string
	From        *time.Time
	To          *time.Time
	BedroomsMin *int
	HouseType   string
	Limit       int
	Offset      int
}

func (c SearchCriteria) filter() (model.ListingFilter, error) {
	var errs error
	price := func(name string, v *float64) {
		switch {
		case v == nil:
		case math.IsNaN(*v) || math.IsInf(*v, 0):
			errs = multierr.Append(errs, apperr.Newf(apperr.InvalidInput, "%s must be a finite number", name))
		case *v < 0:
			errs = multierr.Append(errs, apperr.Newf(apperr.InvalidInput, "%s must not be negative", name))
		}
	}
	price("price_min", c.PriceMin)
	price("price_max", c.PriceMax)
	if c.PriceMin != nil && c.PriceMax != nil && *c.PriceMin > *c.PriceMax {
		errs = multierr.Append(errs, apperr.New(apperr.InvalidInput, "price_min must not exceed price_max"))
	}
	if c.From != nil && c.To != nil && c.From.After(*c.To) {
		errs = multierr.Append(errs, apperr.New(apperr.InvalidInput, "available_from must not be after available_to"))
	}
	if c.BedroomsMin != nil && *c.BedroomsMin < 0 {
		errs = multierr.Append(errs, apperr.New(apperr.InvalidInput, "bedrooms_min must not be negative"))
	}
	if c.Limit < 0 || c.Limit > MaxSearchLimit {
		errs = multierr.Append(errs, apperr.Newf(apperr.InvalidInput, "limit must be between 0 and %d", MaxSearchLimit))
	}
	if c.Offset < 0 {
		errs = multierr.Append(errs, apperr.New(apperr.InvalidInput, "offset must not be negative"))
	}
	if errs != nil {
		msgs := make([]string, 0)
		for _, e := range multierr.Errors(errs) {
			msgs = append(msgs, apperr.MessageOf(e))
		}
		return model.ListingFilter{}, apperr.Wrap(apperr.InvalidInput, errs, strings.Join(msgs, "; "))
	}

	return model.ListingFilter{
		PriceMin:    c.PriceMin,
		PriceMax:    c.PriceMax,
		Location:    strings.TrimSpace(c.Location),
		Amenities:   model.NormalizeAmenities(c.Amenities),
		From:        c.From,
		To:          c.To,
		BedroomsMin: c.BedroomsMin,
		HouseType:   strings.TrimSpace(c.HouseType),
		Limit:       c.Limit,
		Offset:      c.Offset,
	}, nil
}

// SearchService translates criteria into Listing Store queries.
type SearchService struct {
	listings *ListingService
	log      *zap.Logger
}

func NewSearchService(listings *ListingService, log *zap.Logger) *SearchService {
	return &SearchService{listings: listings, log: log}
}

// Search returns the active listings matching every given criterion, oldest
// first with the id as tie-breaker. No criteria returns every active listing.
func (s *SearchService) Search(ctx context.Context, c SearchCriteria) ([]model.Listing, error) {
	f, err := c.filter()
	if err != nil {
		return nil, err
	}

	out := []model.Listing{}
	for l, err := range s.listings.List(ctx, f) {
		if err != nil {
			return nil, apperr.FromStore(err, "SearchService.Search")
		}
		out = append(out, l)
	}
	s.log.Debug("search", zap.Int("results", len(out)), zap.Int("amenities", len(f.Amenities)))
	return out, nil
}
