package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/siddhant-rajhans/ducknest/internal/middleware"
	"github.com/siddhant-rajhans/ducknest/internal/model"
	"github.com/siddhant-rajhans/ducknest/internal/service"
)

// RegisterRequestDTO only requires the email here; the account service checks
// the domain before the remaining fields.
type RegisterRequestDTO struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type LoginRequestDTO struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
}

// AccountHandler exposes the Account Directory.
type AccountHandler struct {
	accounts *service.AccountService
	listings *service.ListingService
}

func NewAccountHandler(accounts *service.AccountService, listings *service.ListingService) *AccountHandler {
	return &AccountHandler{accounts: accounts, listings: listings}
}

// RegisterRoutes registers:
//
//	POST   /register
//	POST   /login
//	POST   /logout      (session)
//	GET    /me          (session)
//	DELETE /me          (session)
//	GET    /me/listings (session)
func (h *AccountHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)

	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.Me)
	protected.DELETE("/me", h.DeleteMe)
	protected.GET("/me/listings", h.MyListings)
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, AuthResponseDTO{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, AuthResponseDTO{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

func (h *AccountHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), c.GetString(middleware.SessionIDKey)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) Me(c *gin.Context) {
	u, err := h.accounts.Profile(c.Request.Context(), callerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *AccountHandler) DeleteMe(c *gin.Context) {
	if err := h.accounts.DeleteAccount(c.Request.Context(), callerID(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) MyListings(c *gin.Context) {
	list, err := h.listings.ListByOwner(c.Request.Context(), callerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
