package model

import (
	"database/sql/driver"
	"fmt"
)

// ListingStatus is the lifecycle state of a listing.
type ListingStatus uint8

const (
	StatusActive ListingStatus = iota + 1
	StatusFilled
	StatusWithdrawn
)

// ParseListingStatus maps the wire/database name to a status.
func ParseListingStatus(s string) (ListingStatus, error) {
	switch s {
	case "active":
		return StatusActive, nil
	case "filled":
		return StatusFilled, nil
	case "withdrawn":
		return StatusWithdrawn, nil
	}
	return 0, fmt.Errorf("unknown listing status %q", s)
}

func (s ListingStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFilled:
		return "filled"
	case StatusWithdrawn:
		return "withdrawn"
	}
	return fmt.Sprintf("ListingStatus(%d)", uint8(s))
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Only active listings move, and only to a terminal state.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusFilled || next == StatusWithdrawn
	case StatusFilled, StatusWithdrawn:
		return false
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s ListingStatus) Terminal() bool {
	return s == StatusFilled || s == StatusWithdrawn
}

func (s ListingStatus) MarshalText() ([]byte, error) {
	if s < StatusActive || s > StatusWithdrawn {
		return nil, fmt.Errorf("invalid listing status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *ListingStatus) UnmarshalText(b []byte) error {
	v, err := ParseListingStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s ListingStatus) Value() (driver.Value, error) {
	b, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *ListingStatus) Scan(src any) error {
	return scanText(src, s.UnmarshalText)
}

// Role is what a user registered as.
type Role uint8

const (
	RoleSeeker Role = iota + 1
	RoleLister
)

func ParseRole(s string) (Role, error) {
	switch s {
	case "seeker":
		return RoleSeeker, nil
	case "lister":
		return RoleLister, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleSeeker:
		return "seeker"
	case RoleLister:
		return "lister"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) MarshalText() ([]byte, error) {
	if r != RoleSeeker && r != RoleLister {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (r Role) Value() (driver.Value, error) {
	b, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *Role) Scan(src any) error {
	return scanText(src, r.UnmarshalText)
}

// VerificationStatus tracks whether a user's institutional email was confirmed.
type VerificationStatus uint8

const (
	VerificationPending VerificationStatus = iota + 1
	VerificationVerified
)

func (v VerificationStatus) String() string {
	switch v {
	case VerificationPending:
		return "pending"
	case VerificationVerified:
		return "verified"
	}
	return fmt.Sprintf("VerificationStatus(%d)", uint8(v))
}

func (v VerificationStatus) MarshalText() ([]byte, error) {
	if v != VerificationPending && v != VerificationVerified {
		return nil, fmt.Errorf("invalid verification status %d", uint8(v))
	}
	return []byte(v.String()), nil
}

func (v *VerificationStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*v = VerificationPending
	case "verified":
		*v = VerificationVerified
	default:
		return fmt.Errorf("unknown verification status %q", string(b))
	}
	return nil
}

func (v VerificationStatus) Value() (driver.Value, error) {
	b, err := v.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *VerificationStatus) Scan(src any) error {
	return scanText(src, v.UnmarshalText)
}

func scanText(src any, fn func([]byte) error) error {
	switch t := src.(type) {
	case string:
		return fn([]byte(t))
	case []byte:
		return fn(t)
	}
	return fmt.Errorf("cannot scan %T into enum", src)
}
