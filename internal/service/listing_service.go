package service

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
)

// ListingInput carries the fields of a new listing.
type ListingInput struct {
	Title          string    `validate:"required,max=200"`
	Description    string    `validate:"max=5000"`
	Price          float64   `validate:"gte=0,lte=99999999.99"`
	City           string    `validate:"required,max=120"`
	StreetAddress  string    `validate:"max=200"`
	DistanceMiles  *float64  `validate:"omitnil,gte=0,lte=9999.99"`
	HouseType      string    `validate:"max=60"`
	Bedrooms       int       `validate:"gte=0,lte=50"`
	Bathrooms      int       `validate:"gte=0,lte=50"`
	LeaseMonths    int       `validate:"gte=0,lte=120"`
	Amenities      []string  `validate:"max=50,dive,max=60"`
	AvailableFrom  time.Time `validate:"required"`
	AvailableUntil time.Time `validate:"required,gtefield=AvailableFrom"`
}

// ListingPatch carries a partial update. Nil fields are left alone.
type ListingPatch struct {
	Title          *string
	Description    *string
	Price          *float64
	City           *string
	StreetAddress  *string
	DistanceMiles  *float64
	HouseType      *string
	Bedrooms       *int
	Bathrooms      *int
	LeaseMonths    *int
	Amenities      *[]string
	AvailableFrom  *time.Time
	AvailableUntil *time.Time
}

func (p ListingPatch) apply(l *model.Listing) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&l.Title, p.Title)
	set(&l.Description, p.Description)
	set(&l.City, p.City)
	set(&l.StreetAddress, p.StreetAddress)
	set(&l.HouseType, p.HouseType)
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.DistanceMiles != nil {
		l.DistanceMiles = p.DistanceMiles
	}
	if p.Bedrooms != nil {
		l.Bedrooms = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		l.Bathrooms = *p.Bathrooms
	}
	if p.LeaseMonths != nil {
		l.LeaseMonths = *p.LeaseMonths
	}
	if p.Amenities != nil {
		l.Amenities = model.NormalizeAmenities(*p.Amenities)
	}
	if p.AvailableFrom != nil {
		l.AvailableFrom = p.AvailableFrom.UTC()
	}
	if p.AvailableUntil != nil {
		l.AvailableUntil = p.AvailableUntil.UTC()
	}
}

func inputOf(l model.Listing) ListingInput {
	return ListingInput{
		Title:          l.Title,
		Description:    l.Description,
		Price:          l.Price,
		City:           l.City,
		StreetAddress:  l.StreetAddress,
		DistanceMiles:  l.DistanceMiles,
		HouseType:      l.HouseType,
		Bedrooms:       l.Bedrooms,
		Bathrooms:      l.Bathrooms,
		LeaseMonths:    l.LeaseMonths,
		Amenities:      l.Amenities,
		AvailableFrom:  l.AvailableFrom,
		AvailableUntil: l.AvailableUntil,
	}
}

// ListingService is the Listing Store.
type ListingService struct {
	users    UserStore
	listings ListingStore
	log      *zap.Logger
}

func NewListingService(users UserStore, listings ListingStore, log *zap.Logger) *ListingService {
	return &ListingService{users: users, listings: listings, log: log}
}

// Create publishes a new active listing owned by ownerID, who must be verified.
func (s *ListingService) Create(ctx context.Context, ownerID string, in ListingInput) (model.Listing, error) {
	if !validID(ownerID) {
		return model.Listing{}, apperr.New(apperr.Unauthorized, "only verified students can create listings")
	}
	owner, err := s.users.GetByID(ctx, ownerID)
	if apperr.KindOf(err) == apperr.NotFound {
		return model.Listing{}, apperr.New(apperr.Unauthorized, "only verified students can create listings")
	}
	if err != nil {
		return model.Listing{}, apperr.FromStore(err, "ListingService.Create")
	}
	if !owner.Verified() {
		return model.Listing{}, apperr.New(apperr.Unauthorized, "only verified students can create listings")
	}

	l := model.Listing{
		ID:             uuid.NewString(),
		OwnerID:        owner.ID,
		Status:         model.StatusActive,
		DistanceMiles:  in.DistanceMiles,
		Price:          in.Price,
		Bedrooms:       in.Bedrooms,
		Bathrooms:      in.Bathrooms,
		LeaseMonths:    in.LeaseMonths,
		Amenities:      model.NormalizeAmenities(in.Amenities),
		AvailableFrom:  in.AvailableFrom.UTC(),
		AvailableUntil: in.AvailableUntil.UTC(),
	}
	ListingPatch{
		Title:         &in.Title,
		Description:   &in.Description,
		City:          &in.City,
		StreetAddress: &in.StreetAddress,
		HouseType:     &in.HouseType,
	}.apply(&l)
	if err := validateInput(inputOf(l)); err != nil {
		return model.Listing{}, err
	}

	if err := s.listings.Create(ctx, &l); err != nil {
		return model.Listing{}, apperr.FromStore(err, "ListingService.Create")
	}
	s.log.Info("listing created", zap.String("listing_id", l.ID), zap.String("owner_id", l.OwnerID))
	return l, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (model.Listing, error) {
	if !validID(id) {
		return model.Listing{}, apperr.New(apperr.NotFound, "listing not found")
	}
	l, err := s.listings.GetByID(ctx, id)
	return l, apperr.FromStore(err, "ListingService.Get")
}

// Update applies patch to an active listing owned by actorID.
func (s *ListingService) Update(ctx context.Context, id, actorID string, patch ListingPatch) (model.Listing, error) {
	if !validID(id) {
		return model.Listing{}, apperr.New(apperr.NotFound, "listing not found")
	}
	l, err := s.listings.Mutate(ctx, id, func(l *model.Listing) error {
		if l.OwnerID != actorID {
			return apperr.New(apperr.Forbidden, "only the owner can edit this listing")
		}
		if l.Status.Terminal() {
			return apperr.Newf(apperr.InvalidTransition, "listing is %s and can no longer be edited", l.Status)
		}
		patch.apply(l)
		return validateInput(inputOf(*l))
	})
	if err != nil {
		return model.Listing{}, apperr.FromStore(err, "ListingService.Update")
	}
	s.log.Info("listing updated", zap.String("listing_id", id))
	return l, nil
}

// SetStatus moves a listing along its lifecycle. The check and the write
// happen under one row lock.
func (s *ListingService) SetStatus(ctx context.Context, id, actorID string, next model.ListingStatus) (model.Listing, error) {
	if !validID(id) {
		return model.Listing{}, apperr.New(apperr.NotFound, "listing not found")
	}
	l, err := s.listings.Mutate(ctx, id, func(l *model.Listing) error {
		if l.OwnerID != actorID {
			return apperr.New(apperr.Forbidden, "only the owner can change this listing's status")
		}
		if !l.Status.CanTransitionTo(next) {
			return apperr.Newf(apperr.InvalidTransition, "cannot move listing from %s to %s", l.Status, next)
		}
		l.Status = next
		return nil
	})
	if err != nil {
		return model.Listing{}, apperr.FromStore(err, "ListingService.SetStatus")
	}
	s.log.Info("listing status changed", zap.String("listing_id", id), zap.Stringer("status", next))
	return l, nil
}

// List returns a lazy sequence of active listings matching f. Each range
// over the sequence queries the store again.
func (s *ListingService) List(ctx context.Context, f model.ListingFilter) iter.Seq2[model.Listing, error] {
	active := model.StatusActive
	f.Status = &active
	return s.listings.List(ctx, f)
}

// ListByOwner returns every listing ownerID has created, in any status.
func (s *ListingService) ListByOwner(ctx context.Context, ownerID string) ([]model.Listing, error) {
	out := []model.Listing{}
	for l, err := range s.listings.List(ctx, model.ListingFilter{OwnerID: ownerID}) {
		if err != nil {
			return nil, apperr.FromStore(err, "ListingService.ListByOwner")
		}
		out = append(out, l)
	}
	return out, nil
}
