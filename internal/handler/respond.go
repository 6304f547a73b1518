package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/middleware"
)

// statusOf maps each error kind to the HTTP status clients observe.
func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.NotEligible:
		return http.StatusForbidden
	case apperr.AlreadyRegistered:
		return http.StatusConflict
	case apperr.InvalidCredentials:
		return http.StatusUnauthorized
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidTransition:
		return http.StatusConflict
	case apperr.ServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusServiceUnavailable
}

// fail writes err as {"error", "code"}. Causes of 503s are attached to the
// gin context for the request logger and never sent to the client.
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.ServiceUnavailable {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(statusOf(kind), gin.H{"error": apperr.MessageOf(err), "code": kind.Code()})
}

// badRequest reports a body or query that could not be decoded.
func badRequest(c *gin.Context, err error) {
	msg := "invalid payload"
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		msg = "malformed JSON"
	case errors.As(err, &typeErr):
		msg = fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	case err != nil:
		msg = err.Error()
	}
	fail(c, apperr.Wrap(apperr.InvalidInput, err, msg))
}

func callerID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

// timeLayouts are the formats accepted for dates in bodies and queries.
var timeLayouts = []string{time.RFC3339, "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date (want YYYY-MM-DD or RFC 3339)", s)
}

// flexTime decodes either a plain date or an RFC 3339 timestamp.
type flexTime struct{ time.Time }

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := parseTime(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	f.Time = t
	return nil
}

func (f *flexTime) ptr() *time.Time {
	if f == nil {
		return nil
	}
	return &f.Time
}
