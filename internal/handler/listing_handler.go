package handler

import (
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/service"
)

// ListingHandler serves listing CRUD and search.
type ListingHandler struct {
	listings *service.ListingService
	search   *service.SearchService
}

func NewListingHandler(listings *service.ListingService, search *service.SearchService) *ListingHandler {
	return &ListingHandler{listings: listings, search: search}
}

// RegisterRoutes registers the listing routes. All of them need a session.
func (h *ListingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/listings", h.SearchListings)
	rg.GET("/listings/:id", h.GetListingByID)
	rg.POST("/listings", h.CreateListing)
	rg.PUT("/listings/:id", h.UpdateListing)
	rg.PATCH("/listings/:id/status", h.SetStatus)
}

// GET /api/listings?price_min=&price_max=&location=&amenities=a,b&available_from=&available_to=&bedrooms_min=&house_type=&limit=&offset=
func (h *ListingHandler) SearchListings(c *gin.Context) {
	crit, err := searchCriteria(c)
	if err != nil {
		fail(c, err)
		return
	}
	list, err := h.search.Search(c.Request.Context(), crit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func searchCriteria(c *gin.Context) (service.SearchCriteria, error) {
	var crit service.SearchCriteria
	var bad []string

	float := func(key string) *float64 {
		v := c.Query(key)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			bad = append(bad, key)
			return nil
		}
		return &f
	}
	integer := func(key string) (int, bool) {
		v := c.Query(key)
		if v == "" {
			return 0, false
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			bad = append(bad, key)
			return 0, false
		}
		return n, true
	}

	crit.PriceMin = float("price_min")
	crit.PriceMax = float("price_max")
	crit.Location = c.Query("location")
	if crit.Location == "" {
		crit.Location = c.Query("city")
	}
	crit.HouseType = c.Query("house_type")
	for _, v := range c.QueryArray("amenities") {
		crit.Amenities = append(crit.Amenities, strings.Split(v, ",")...)
	}
	for key, dst := range map[string]**time.Time{"available_from": &crit.From, "available_to": &crit.To} {
		if v := c.Query(key); v != "" {
			t, err := parseTime(v)
			if err != nil {
				bad = append(bad, key)
				continue
			}
			*dst = &t
		}
	}
	if n, ok := integer("bedrooms_min"); ok {
		crit.BedroomsMin = &n
	}
	crit.Limit, _ = integer("limit")
	crit.Offset, _ = integer("offset")

	if len(bad) > 0 {
		slices.Sort(bad)
		return crit, apperr.New(apperr.InvalidInput, "malformed query parameters: "+strings.Join(bad, ", "))
	}
	return crit, nil
}

// GET /api/listings/:id
func (h *ListingHandler) GetListingByID(c *gin.Context) {
	l, err := h.listings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// CreateListingRequestDTO is the body of POST /api/listings. The owner is
// always the caller.
type CreateListingRequestDTO struct {
	Title          string    `json:"title" binding:"required"`
	Description    string    `json:"description"`
	Price          *float64  `json:"price" binding:"required"`
	City           string    `json:"city" binding:"required"`
	StreetAddress  string    `json:"street_address"`
	DistanceMiles  *float64  `json:"distance_miles"`
	HouseType      string    `json:"house_type"`
	Bedrooms       int       `json:"bedrooms"`
	Bathrooms      int       `json:"bathrooms"`
	LeaseMonths    int       `json:"lease_months"`
	Amenities      []string  `json:"amenities"`
	AvailableFrom  *flexTime `json:"available_from" binding:"required"`
	AvailableUntil *flexTime `json:"available_until" binding:"required"`
}

func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req CreateListingRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	l, err := h.listings.Create(c.Request.Context(), callerID(c), service.ListingInput{
		Title:          req.Title,
		Description:    req.Description,
		Price:          *req.Price,
		City:           req.City,
		StreetAddress:  req.StreetAddress,
		DistanceMiles:  req.DistanceMiles,
		HouseType:      req.HouseType,
		Bedrooms:       req.Bedrooms,
		Bathrooms:      req.Bathrooms,
		LeaseMonths:    req.LeaseMonths,
		Amenities:      req.Amenities,
		AvailableFrom:  req.AvailableFrom.Time,
		AvailableUntil: req.AvailableUntil.Time,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

// UpdateListingRequestDTO is the body of PUT /api/listings/:id. Omitted
// fields keep their current value.
type UpdateListingRequestDTO struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Price          *float64  `json:"price"`
	City           *string   `json:"city"`
	StreetAddress  *string   `json:"street_address"`
	DistanceMiles  *float64  `json:"distance_miles"`
	HouseType      *string   `json:"house_type"`
	Bedrooms       *int      `json:"bedrooms"`
	Bathrooms      *int      `json:"bathrooms"`
	LeaseMonths    *int      `json:"lease_months"`
	Amenities      *[]string `json:"amenities"`
	AvailableFrom  *flexTime `json:"available_from"`
	AvailableUntil *flexTime `json:"available_until"`
}

func (h *ListingHandler) UpdateListing(c *gin.Context) {
	var req UpdateListingRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	l, err := h.listings.Update(c.Request.Context(), c.Param("id"), callerID(c), service.ListingPatch{
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		City:           req.City,
		StreetAddress:  req.StreetAddress,
		DistanceMiles:  req.DistanceMiles,
		HouseType:      req.HouseType,
		Bedrooms:       req.Bedrooms,
		Bathrooms:      req.Bathrooms,
		LeaseMonths:    req.LeaseMonths,
		Amenities:      req.Amenities,
		AvailableFrom:  req.AvailableFrom.ptr(),
		AvailableUntil: req.AvailableUntil.ptr(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

type SetStatusRequestDTO struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /api/listings/:id/status
func (h *ListingHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	next, err := model.ParseListingStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		fail(c, apperr.Wrap(apperr.InvalidInput, err, "status must be active, filled or withdrawn"))
		return
	}

	l, err := h.listings.SetStatus(c.Request.Context(), c.Param("id"), callerID(c), next)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}
