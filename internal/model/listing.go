package model

import (
	"slices"
	"strings"
	"time"
)

// Listing is a housing unit offered by a verified student.
type Listing struct {
	ID             string        `json:"id"`
	OwnerID        string        `json:"owner_id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Price          float64       `json:"price"`
	City           string        `json:"city"`
	StreetAddress  string        `json:"street_address,omitempty"`
	DistanceMiles  *float64      `json:"distance_miles,omitempty"`
	HouseType      string        `json:"house_type,omitempty"`
	Bedrooms       int           `json:"bedrooms"`
	Bathrooms      int           `json:"bathrooms"`
	LeaseMonths    int           `json:"lease_months"`
	Amenities      []string      `json:"amenities"`
	AvailableFrom  time.Time     `json:"available_from"`
	AvailableUntil time.Time     `json:"available_until"`
	Status         ListingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// HasAmenities reports whether every wanted tag is present on the listing.
func (l Listing) HasAmenities(wanted []string) bool {
	for _, w := range wanted {
		if !slices.Contains(l.Amenities, w) {
			return false
		}
	}
	return true
}

// NormalizeAmenities lower-cases, trims, drops blanks and sorts tags so the
// set has one canonical representation.
func NormalizeAmenities(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ListingFilter selects listings. Nil and zero fields are ignored.
type ListingFilter struct {
	OwnerID     string
	Status      *ListingStatus
	PriceMin    *float64
	PriceMax    *float64
	Location    string
	Amenities   []string
	From        *time.Time
	To          *time.Time
	BedroomsMin *int
	HouseType   string
	// Limit 0 means no limit.
	Limit  int
	Offset int
}

// Matches evaluates the filter against a single listing in memory. It mirrors
// the SQL the repository builds.
func (f ListingFilter) Matches(l Listing) bool {
	if f.OwnerID != "" && l.OwnerID != f.OwnerID {
		return false
	}
	if f.Status != nil && l.Status != *f.Status {
		return false
	}
	if f.PriceMin != nil && l.Price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && l.Price > *f.PriceMax {
		return false
	}
	if f.Location != "" {
		q := strings.ToLower(f.Location)
		if !strings.Contains(strings.ToLower(l.City), q) && !strings.Contains(strings.ToLower(l.StreetAddress), q) {
			return false
		}
	}
	if !l.HasAmenities(f.Amenities) {
		return false
	}
	if f.From != nil && l.AvailableUntil.Before(*f.From) {
		return false
	}
	if f.To != nil && l.AvailableFrom.After(*f.To) {
		return false
	}
	if f.BedroomsMin != nil && l.Bedrooms < *f.BedroomsMin {
		return false
	}
	if f.HouseType != "" && !strings.EqualFold(l.HouseType, f.HouseType) {
		return false
	}
	return true
}
