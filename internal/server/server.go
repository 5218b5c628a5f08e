package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	_ "embed"

	"github.com/gin-gonic/gin"
	"github.com/spigell/finn-ranker/internal/filtering"
	"github.com/spigell/finn-ranker/internal/jobs"
	"github.com/spigell/finn-ranker/internal/profile"
	"go.uber.org/zap"
)

//go:embed static/index.html
var indexHTML []byte

const (
	defaultMaxUploadSize = 10 << 20
	shutdownTimeout      = 10 * time.Second
)

// Ranker scores listings against the current profile.
type Ranker interface {
	Validate(p profile.Profile, listings int) error
	Rank(ctx context.Context, p profile.Profile, listings []jobs.Listing) ([]jobs.RankedListing, error)
	Model() string
}

type Options struct {
	Source   jobs.Source
	Profiles *profile.Store

	// Ranker may be nil, then analyze answers 503.
	Ranker Ranker

	// Exclude configures the listing filters run after every search.
	Exclude *filtering.Config

	// MaxUploadSize caps CV and cover letter uploads in bytes.
	MaxUploadSize int64
}

type Server struct {
	opts   Options
	logger *zap.Logger
	engine *gin.Engine
}

func New(logger *zap.Logger, opts Options) *Server {
	if opts.Profiles == nil {
		opts.Profiles = profile.NewStore()
	}
	if opts.Exclude == nil {
		opts.Exclude = &filtering.Config{}
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUploadSize
	}

	s := &Server{opts: opts, logger: logger}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.MaxMultipartMemory = s.opts.MaxUploadSize

	r.GET("/", s.index)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/filters", s.filters)
	api.POST("/search", s.search)
	api.GET("/profile", s.profileStatus)
	api.POST("/upload-cv", s.limitBody(), s.uploadCV)
	api.DELETE("/upload-cv", s.deleteCV)
	api.POST("/upload-cover-letter", s.limitBody(), s.uploadCoverLetter)
	api.DELETE("/upload-cover-letter", s.deleteCoverLetter)
	api.POST("/analyze", s.analyze)

	return r
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", fields...)
			return
		}
		s.logger.Debug("request", fields...)
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	// Multipart framing adds a little on top of the file itself.
	limit := s.opts.MaxUploadSize + 64<<10
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			s.fail(c, errTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
