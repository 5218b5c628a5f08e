package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spigell/finn-ranker/internal/jobs"
	"github.com/spigell/finn-ranker/internal/profile"
	"github.com/spigell/finn-ranker/internal/ranking"
)

var (
	// errBadRequest marks request validation failures raised by the handlers.
	errBadRequest = errors.New("bad request")
	errTooLarge   = errors.New("upload is too large")
)

// statusFor maps an error to the HTTP status the UI sees. Anything not listed
// failed upstream, on the job site or at the model provider.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, profile.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ranking.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, errBadRequest),
		errors.Is(err, profile.ErrEmptyDocument),
		errors.Is(err, jobs.ErrNoSuchOption),
		errors.Is(err, ranking.ErrNoCV),
		errors.Is(err, ranking.ErrNoListings),
		errors.Is(err, ranking.ErrTooManyListings):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusFor(err), gin.H{"detail": err.Error()})
}
