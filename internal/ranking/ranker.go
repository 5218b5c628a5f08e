package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/spigell/finn-ranker/internal/ai"
	"github.com/spigell/finn-ranker/internal/jobs"
	"github.com/spigell/finn-ranker/internal/profile"
	"github.com/spigell/finn-ranker/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoCV            = errors.New("upload a CV before ranking")
	ErrNoListings      = errors.New("no listings to rank")
	ErrTooManyListings = errors.New("too many listings to rank")
	ErrUnparseable     = errors.New("model response is not a JSON array")
	ErrNotConfigured   = errors.New("ranking is not configured, set an API key for the model provider")
)

const (
	DefaultMaxListings      = 150
	DefaultBatchSize        = 50
	DefaultDescriptionLimit = 800
	DefaultConcurrency      = 4
	DefaultTimeout          = 5 * time.Minute
	DefaultLanguage         = "Norwegian"
	defaultMaxLogLength     = 200
)

type Config struct {
	MaxListings      int
	BatchSize        int
	DescriptionLimit int
	// Concurrency is the number of batches sent to the model at once.
	Concurrency  int
	Timeout      time.Duration
	Language     string
	Instructions string
	MaxLogLength int
}

func (c Config) withDefaults() Config {
	if c.MaxListings <= 0 {
		c.MaxListings = DefaultMaxListings
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.DescriptionLimit <= 0 {
		c.DescriptionLimit = DefaultDescriptionLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.MaxLogLength <= 0 {
		c.MaxLogLength = defaultMaxLogLength
	}
	return c
}

// Ranker scores listings against a profile with a language model.
type Ranker struct {
	generator ai.Generator
	cfg       Config
	logger    *zap.Logger
}

func New(generator ai.Generator, cfg Config, logger *zap.Logger) *Ranker {
	return &Ranker{
		generator: generator,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Model returns the model identifier of the underlying generator.
func (r *Ranker) Model() string {
	return r.generator.Model()
}

// Rank scores every listing and returns them sorted by descending score, ties
// in input order. A failed or unreadable model call fails the whole ranking.
// Listings the model leaves out are not part of the result.
func (r *Ranker) Rank(ctx context.Context, p profile.Profile, listings []jobs.Listing) ([]jobs.RankedListing, error) {
	if err := r.Validate(p, len(listings)); err != nil {
		return nil, err
	}

	batches := split(len(listings), r.cfg.BatchSize)
	results := make([][]score, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, b := range batches {
		g.Go(func() error {
			scores, err := r.rankBatch(gctx, p, listings[b.start:b.end], i)
			if err != nil {
				return fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
			}
			results[i] = scores
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := make(map[int]score, len(listings))
	for i, b := range batches {
		for _, s := range results[i] {
			if s.Index < 0 || s.Index >= b.end-b.start {
				r.logger.Debug("model returned unknown index", zap.Int("batch", i), zap.Int("index", s.Index))
				continue
			}
			global := b.start + s.Index
			if _, seen := scored[global]; seen {
				continue
			}
			scored[global] = s
		}
	}

	ranked := make([]jobs.RankedListing, 0, len(scored))
	var omitted []string
	for i, listing := range listings {
		s, ok := scored[i]
		if !ok {
			omitted = append(omitted, listing.URL)
			continue
		}
		ranked = append(ranked, jobs.RankedListing{
			Listing: listing,
			Score:   clampScore(s.Score),
			Summary: s.Summary,
		})
	}

	if len(omitted) > 0 {
		r.logger.Warn("model left listings unscored", zap.Int("omitted", len(omitted)), zap.Strings("urls", omitted))
	}

	jobs.SortRanked(ranked)

	r.logger.Info("listings ranked",
		zap.Int("listings", len(listings)),
		zap.Int("ranked", len(ranked)),
		zap.Int("batches", len(batches)),
	)

	return ranked, nil
}

func (r *Ranker) rankBatch(ctx context.Context, p profile.Profile, listings []jobs.Listing, batch int) ([]score, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	prompt := buildPrompt(p, listings, r.cfg.Language, r.cfg.Instructions, r.cfg.DescriptionLimit)

	r.logger.Debug("generate content request",
		zap.Int("batch", batch),
		zap.Int("listings", len(listings)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.cfg.MaxLogLength)),
	)

	raw, err := r.generator.GenerateContent(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("generate content response",
		zap.Int("batch", batch),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.cfg.MaxLogLength)),
	)

	return parseResponse(raw)
}

// Validate checks that a profile and a number of listings can be ranked.
func (r *Ranker) Validate(p profile.Profile, listings int) error {
	switch {
	case !p.HasCV():
		return ErrNoCV
	case listings == 0:
		return ErrNoListings
	case listings > r.cfg.MaxListings:
		return fmt.Errorf("%w: got %d, at most %d are allowed", ErrTooManyListings, listings, r.cfg.MaxListings)
	}
	return nil
}

// clampScore bounds the score before converting it, so huge values cannot
// overflow int.
func clampScore(score float64) int {
	score = math.Max(jobs.MinScore, math.Min(jobs.MaxScore, score))
	return jobs.ClampScore(int(math.Round(score)))
}

type span struct {
	start, end int
}

func split(n, size int) []span {
	spans := make([]span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		spans = append(spans, span{start: start, end: min(start+size, n)})
	}
	return spans
}
