package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/finn-ranker/internal/ai"
	"github.com/spigell/finn-ranker/internal/ai/anthropic"
	"github.com/spigell/finn-ranker/internal/ai/gemini"
	"github.com/spigell/finn-ranker/internal/cache"
	"github.com/spigell/finn-ranker/internal/filtering"
	"github.com/spigell/finn-ranker/internal/finn"
	"github.com/spigell/finn-ranker/internal/logger"
	"github.com/spigell/finn-ranker/internal/ranking"
	"github.com/spigell/finn-ranker/internal/secrets"
)

// setup loads the config and the logger every command starts with.
func setup() (*Config, *zap.Logger) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil || config.Site == nil || config.Cache == nil || config.Ranking == nil || config.AI == nil {
		logger.Fatal("config is incomplete")
	}

	return config, logger
}

// newSource builds the finn.no client. The returned func releases the cache.
func newSource(ctx context.Context, config *Config, log *zap.Logger) (*finn.Client, func()) {
	browser, err := newBrowser(config.Site, log)
	if err != nil {
		log.Fatal("choosing a browser", zap.Error(err))
	}

	store := cache.New(ctx, config.Cache.RedisURL, log)

	client := finn.New(logger.WithFields(logger.Named(log, "finn"), zap.String(logger.FieldDriver, browser.Name())), browser)
	client.Cache = store
	client.CacheTTL = config.Cache.TTL
	client.MaxPages = config.Site.MaxPages
	if config.Site.BaseURL != "" {
		client.BaseURL = config.Site.BaseURL
	}
	if config.Site.UserAgent != "" {
		client.UserAgent = config.Site.UserAgent
	}
	if config.Site.DescribeWorkers > 0 {
		client.DescribeWorkers = config.Site.DescribeWorkers
	}
	if config.Site.DescribeTimeout > 0 {
		client.DescribeTimeout = config.Site.DescribeTimeout
	}

	log.Info("listing source ready",
		zap.String("base_url", client.BaseURL),
		zap.String(logger.FieldDriver, browser.Name()),
	)

	return client, func() {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Warn("closing cache", zap.Error(err))
			}
		}
	}
}

func newBrowser(cfg *SiteConfig, log *zap.Logger) (finn.Browser, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Browser)) {
	case "", "playwright":
		b := finn.NewPlaywrightBrowser(logger.Named(log, "playwright"))
		b.ChromiumPath = cfg.ChromiumPath
		b.Headless = cfg.Headless
		if cfg.UserAgent != "" {
			b.UserAgent = cfg.UserAgent
		}
		if cfg.PageTimeout > 0 {
			b.PageTimeout = cfg.PageTimeout
		}
		if cfg.SettleDelay > 0 {
			b.SettleDelay = cfg.SettleDelay
		}
		return b, nil
	case "http":
		b := finn.NewHTTPBrowser(logger.Named(log, "http"))
		if cfg.UserAgent != "" {
			b.UserAgent = cfg.UserAgent
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported browser %q, use playwright or http", cfg.Browser)
	}
}

func newExclude(config *Config) *filtering.Config {
	if config.Exclude == nil {
		return &filtering.Config{}
	}
	return &filtering.Config{
		Employers: config.Exclude.Employers,
		Keywords:  config.Exclude.Keywords,
	}
}

// newRanker returns ranking.ErrNotConfigured when the provider has no api key.
func newRanker(ctx context.Context, config *Config, log *zap.Logger) (*ranking.Ranker, error) {
	generator, err := newGenerator(ctx, config.AI, log)
	if err != nil {
		return nil, err
	}

	r := config.Ranking
	return ranking.New(generator, ranking.Config{
		MaxListings:      r.MaxListings,
		BatchSize:        r.BatchSize,
		DescriptionLimit: r.DescriptionLimit,
		Concurrency:      r.Concurrency,
		Timeout:          r.Timeout,
		Language:         r.Language,
		Instructions:     r.Instructions,
		MaxLogLength:     r.MaxLogLength,
	}, logger.Named(log, "ranking")), nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", ai.ProviderAnthropic:
		p := providerConfig(cfg.Anthropic)
		apiKey, err := loadKey(ai.ProviderAnthropic, p, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return anthropic.NewGenerator(apiKey, p.Model, p.MaxTokens, p.MaxRetries, log)
	case ai.ProviderGemini:
		p := providerConfig(cfg.Gemini)
		apiKey, err := loadKey(ai.ProviderGemini, p, "GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		return gemini.NewGenerator(ctx, apiKey, p.Model, p.MaxRetries, log)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func providerConfig(p *ProviderConfig) *ProviderConfig {
	if p == nil {
		return &ProviderConfig{}
	}
	return p
}

func loadKey(provider string, p *ProviderConfig, env string) (string, error) {
	key, err := secrets.Load(secrets.Source{
		Name:  provider + " api key",
		Value: p.APIKey,
		File:  p.APIKeyFile,
		Env:   env,
	})
	if errors.Is(err, secrets.ErrNotConfigured) {
		return "", fmt.Errorf("%w: %v (set %s or ai.%s.api-key-file)", ranking.ErrNotConfigured, err, env, provider)
	}
	return key, err
}
