package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/spigell/finn-ranker/internal/filtering"
	"github.com/spigell/finn-ranker/internal/jobs"
	"github.com/spigell/finn-ranker/internal/profile"
	"github.com/spigell/finn-ranker/internal/ranking"
	"go.uber.org/zap"
)

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) filters(c *gin.Context) {
	set, err := s.opts.Source.Filters(c.Request.Context())
	if err != nil {
		s.fail(c, fmt.Errorf("load filters: %w", err))
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) search(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var filters jobs.SearchFilters
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &filters); err != nil {
			s.fail(c, fmt.Errorf("%w: invalid filters: %v", errBadRequest, err))
			return
		}
	}

	filters, err = s.resolveLabels(ctx, filters)
	if err != nil {
		s.fail(c, err)
		return
	}

	listings, err := s.opts.Source.Search(ctx, filters)
	if err != nil {
		s.fail(c, fmt.Errorf("search: %w", err))
		return
	}

	listings, err = filtering.Run(ctx, s.opts.Exclude, filtering.Deps{Logger: s.logger}, filtering.Default(), listings)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, listings.Items)
}

// resolveLabels lets clients send option labels ("Oslo") as well as values.
// The filter vocabulary may need a browser, so it is only loaded for labels.
func (s *Server) resolveLabels(ctx context.Context, filters jobs.SearchFilters) (jobs.SearchFilters, error) {
	if !filters.HasLabels() {
		return filters, nil
	}
	set, err := s.opts.Source.Filters(ctx)
	if err != nil {
		s.logger.Warn("filters unavailable, searching with values as given", zap.Error(err))
		return filters, nil
	}
	return set.ResolveLabels(filters)
}

func (s *Server) profileStatus(c *gin.Context) {
	ranker := gin.H{"enabled": s.opts.Ranker != nil}
	if s.opts.Ranker != nil {
		ranker["model"] = s.opts.Ranker.Model()
	}

	status := s.opts.Profiles.Snapshot().Status()
	c.JSON(http.StatusOK, gin.H{
		"cv":           status.CV,
		"cover_letter": status.CoverLetter,
		"ranking":      ranker,
	})
}

func (s *Server) uploadCV(c *gin.Context) {
	filename, text, err := s.readUpload(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.opts.Profiles.SetCV(filename, text)
	s.logger.Info("cv uploaded", zap.String("filename", filename), zap.Int("chars", utf8.RuneCountInString(text)))
	c.JSON(http.StatusOK, gin.H{"ok": true, "filename": filename, "chars": utf8.RuneCountInString(text)})
}

func (s *Server) uploadCoverLetter(c *gin.Context) {
	filename, text, err := s.readUpload(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.opts.Profiles.SetCoverLetter(filename, text)
	s.logger.Info("cover letter uploaded", zap.String("filename", filename), zap.Int("chars", utf8.RuneCountInString(text)))
	c.JSON(http.StatusOK, gin.H{"ok": true, "filename": filename, "chars": utf8.RuneCountInString(text)})
}

func (s *Server) deleteCV(c *gin.Context) {
	s.opts.Profiles.ClearCV()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) deleteCoverLetter(c *gin.Context) {
	s.opts.Profiles.ClearCoverLetter()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) readUpload(c *gin.Context) (string, string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", "", fmt.Errorf("%w: multipart field \"file\" is required: %v", errBadRequest, err)
	}
	if header.Size > s.opts.MaxUploadSize {
		return "", "", fmt.Errorf("%w: %d bytes, limit is %d", errTooLarge, header.Size, s.opts.MaxUploadSize)
	}

	file, err := header.Open()
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", "", err
	}

	text, err := profile.Extract(header.Filename, content)
	if err != nil {
		return "", "", err
	}

	return header.Filename, text, nil
}

func (s *Server) analyze(c *gin.Context) {
	ctx := c.Request.Context()

	var listings []jobs.Listing
	if err := c.ShouldBindJSON(&listings); err != nil {
		s.fail(c, fmt.Errorf("%w: expected a JSON array of listings: %v", errBadRequest, err))
		return
	}

	if s.opts.Ranker == nil {
		s.fail(c, ranking.ErrNotConfigured)
		return
	}

	p := s.opts.Profiles.Snapshot()
	if err := s.opts.Ranker.Validate(p, len(listings)); err != nil {
		s.fail(c, err)
		return
	}

	described := s.opts.Source.Describe(ctx, listings)

	ranked, err := s.opts.Ranker.Rank(ctx, p, described)
	if err != nil {
		s.fail(c, fmt.Errorf("rank: %w", err))
		return
	}

	c.JSON(http.StatusOK, ranked)
}
