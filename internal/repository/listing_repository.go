package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
)

const listingColumns = `id, owner_id, title, description, price, city, street_address, distance_miles,
	house_type, bedrooms, bathrooms, lease_months, amenities, available_from, available_until,
	status, created_at, updated_at`

type listingRow struct {
	ID             string              `db:"id"`
	OwnerID        string              `db:"owner_id"`
	Title          string              `db:"title"`
	Description    string              `db:"description"`
	Price          float64             `db:"price"`
	City           string              `db:"city"`
	StreetAddress  string              `db:"street_address"`
	DistanceMiles  *float64            `db:"distance_miles"`
	HouseType      string              `db:"house_type"`
	Bedrooms       int                 `db:"bedrooms"`
	Bathrooms      int                 `db:"bathrooms"`
	LeaseMonths    int                 `db:"lease_months"`
	Amenities      pq.StringArray      `db:"amenities"`
	AvailableFrom  time.Time           `db:"available_from"`
	AvailableUntil time.Time           `db:"available_until"`
	Status         model.ListingStatus `db:"status"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}

func (r listingRow) toModel() model.Listing {
	amenities := []string(r.Amenities)
	if amenities == nil {
		amenities = []string{}
	}
	return model.Listing{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Title:          r.Title,
		Description:    r.Description,
		Price:          r.Price,
		City:           r.City,
		StreetAddress:  r.StreetAddress,
		DistanceMiles:  r.DistanceMiles,
		HouseType:      r.HouseType,
		Bedrooms:       r.Bedrooms,
		Bathrooms:      r.Bathrooms,
		LeaseMonths:    r.LeaseMonths,
		Amenities:      amenities,
		AvailableFrom:  r.AvailableFrom,
		AvailableUntil: r.AvailableUntil,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type ListingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// Create inserts l. CreatedAt and UpdatedAt are filled from the database.
func (r *ListingRepository) Create(ctx context.Context, l *model.Listing) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO listings
			(id, owner_id, title, description, price, city, street_address, distance_miles,
			 house_type, bedrooms, bathrooms, lease_months, amenities, available_from, available_until, status)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`,
		l.ID, l.OwnerID, l.Title, l.Description, l.Price, l.City, l.StreetAddress, l.DistanceMiles,
		l.HouseType, l.Bedrooms, l.Bathrooms, l.LeaseMonths, pq.StringArray(l.Amenities),
		l.AvailableFrom, l.AvailableUntil, l.Status,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ListingRepository.Create: %w", err)
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (model.Listing, error) {
	var row listingRow
	err := r.db.GetContext(ctx, &row, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, apperr.New(apperr.NotFound, "listing not found")
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("ListingRepository.GetByID: %w", err)
	}
	return row.toModel(), nil
}

// Mutate locks the listing row, lets fn change it, and writes the result in
// the same transaction. An error from fn aborts without writing.
func (r *ListingRepository) Mutate(ctx context.Context, id string, fn func(*model.Listing) error) (_ model.Listing, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Listing{}, fmt.Errorf("ListingRepository.Mutate begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row listingRow
	err = tx.GetContext(ctx, &row, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, apperr.New(apperr.NotFound, "listing not found")
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("ListingRepository.Mutate lock: %w", err)
	}

	l := row.toModel()
	if err = fn(&l); err != nil {
		return model.Listing{}, err
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE listings SET
			title           = $2,
			description     = $3,
			price           = $4,
			city            = $5,
			street_address  = $6,
			distance_miles  = $7,
			house_type      = $8,
			bedrooms        = $9,
			bathrooms       = $10,
			lease_months    = $11,
			amenities       = $12,
			available_from  = $13,
			available_until = $14,
			status          = $15,
			updated_at      = now()
		WHERE id = $1
		RETURNING updated_at
	`,
		l.ID, l.Title, l.Description, l.Price, l.City, l.StreetAddress, l.DistanceMiles,
		l.HouseType, l.Bedrooms, l.Bathrooms, l.LeaseMonths, pq.StringArray(l.Amenities),
		l.AvailableFrom, l.AvailableUntil, l.Status,
	).Scan(&l.UpdatedAt)
	if err != nil {
		return model.Listing{}, fmt.Errorf("ListingRepository.Mutate update: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return model.Listing{}, fmt.Errorf("ListingRepository.Mutate commit: %w", err)
	}
	return l, nil
}

// List streams the listings matching f. The query runs each time the
// sequence is ranged over, and breaking out early closes the cursor.
func (r *ListingRepository) List(ctx context.Context, f model.ListingFilter) iter.Seq2[model.Listing, error] {
	return func(yield func(model.Listing, error) bool) {
		query, args := buildListQuery(f)
		rows, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			yield(model.Listing{}, fmt.Errorf("ListingRepository.List: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row listingRow
			if err := rows.StructScan(&row); err != nil {
				yield(model.Listing{}, fmt.Errorf("ListingRepository.List scan: %w", err))
				return
			}
			if !yield(row.toModel(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Listing{}, fmt.Errorf("ListingRepository.List: %w", err))
		}
	}
}

func buildListQuery(f model.ListingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.PriceMin != nil {
		add("price >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("price <= $%d", *f.PriceMax)
	}
	if f.Location != "" {
		args = append(args, "%"+escapeLike(f.Location)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(city ILIKE $%d OR street_address ILIKE $%d)", n, n))
	}
	if len(f.Amenities) > 0 {
		add("amenities @> $%d", pq.StringArray(f.Amenities))
	}
	if f.From != nil {
		add("available_until >= $%d", *f.From)
	}
	if f.To != nil {
		add("available_from <= $%d", *f.To)
	}
	if f.BedroomsMin != nil {
		add("bedrooms >= $%d", *f.BedroomsMin)
	}
	if f.HouseType != "" {
		add("lower(house_type) = lower($%d)", f.HouseType)
	}

	var b strings.Builder
	b.WriteString("SELECT " + listingColumns + " FROM listings")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at ASC, id ASC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
