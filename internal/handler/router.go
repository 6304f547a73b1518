package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/siddhant-rajhans/ducknest/internal/middleware"
	"github.com/siddhant-rajhans/ducknest/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the services the API Gateway routes to.
type Deps struct {
	Accounts  *service.AccountService
	Listings  *service.ListingService
	Search    *service.SearchService
	Messaging *service.MessagingService
	Sessions  middleware.Authenticator
	DB        Pinger
}

// NewRouter builds the gin engine. Every route under /api except register
// and login requires a valid session.
func NewRouter(log *zap.Logger, timeout time.Duration, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if d.DB != nil {
			if err := d.DB.PingContext(c.Request.Context()); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	protected := api.Group("/")
	protected.Use(middleware.SessionAuth(d.Sessions))

	NewAccountHandler(d.Accounts, d.Listings).RegisterRoutes(api, protected)
	NewListingHandler(d.Listings, d.Search).RegisterRoutes(protected)
	NewThreadHandler(d.Messaging).RegisterRoutes(protected)

	return r
}
