package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "finn-ranker"
	envPrefix = "FINN_RANKER"
)

type Config struct {
	Listen        string         `mapstructure:"listen"`
	MaxUploadSize int64          `mapstructure:"max-upload-size"`
	Site          *SiteConfig    `mapstructure:"site"`
	Cache         *CacheConfig   `mapstructure:"cache"`
	Exclude       *ExcludeConfig `mapstructure:"exclude"`
	Ranking       *RankingConfig `mapstructure:"ranking"`
	AI            *AIConfig      `mapstructure:"ai"`
}

type SiteConfig struct {
	BaseURL string `mapstructure:"base-url"`
	// Browser is either playwright or http.
	Browser         string        `mapstructure:"browser"`
	ChromiumPath    string        `mapstructure:"chromium-path"`
	Headless        bool          `mapstructure:"headless"`
	UserAgent       string        `mapstructure:"user-agent"`
	PageTimeout     time.Duration `mapstructure:"page-timeout"`
	SettleDelay     time.Duration `mapstructure:"settle-delay"`
	MaxPages        int           `mapstructure:"max-pages"`
	DescribeWorkers int           `mapstructure:"describe-workers"`
	DescribeTimeout time.Duration `mapstructure:"describe-timeout"`
}

type CacheConfig struct {
	RedisURL string        `mapstructure:"redis-url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ExcludeConfig struct {
	Employers []string `mapstructure:"employers"`
	Keywords  []string `mapstructure:"keywords"`
}

type RankingConfig struct {
	MaxListings      int           `mapstructure:"max-listings"`
	BatchSize        int           `mapstructure:"batch-size"`
	DescriptionLimit int           `mapstructure:"description-limit"`
	Concurrency      int           `mapstructure:"concurrency"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Language         string        `mapstructure:"language"`
	Instructions     string        `mapstructure:"instructions"`
	MaxLogLength     int           `mapstructure:"max-log-length"`
}

type AIConfig struct {
	Provider  string          `mapstructure:"provider"`
	Anthropic *ProviderConfig `mapstructure:"anthropic"`
	Gemini    *ProviderConfig `mapstructure:"gemini"`
}

type ProviderConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
	// MaxTokens only applies to anthropic.
	MaxTokens int64 `mapstructure:"max-tokens"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "finn-ranker searches job listings on finn.no and ranks them against your CV",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is finn-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "127.0.0.1:8000")
	v.SetDefault("max-upload-size", 10<<20)

	v.SetDefault("site.base-url", "https://www.finn.no")
	v.SetDefault("site.browser", "playwright")
	v.SetDefault("site.chromium-path", "")
	v.SetDefault("site.headless", true)
	v.SetDefault("site.user-agent", "")
	v.SetDefault("site.page-timeout", 30*time.Second)
	v.SetDefault("site.settle-delay", 3*time.Second)
	v.SetDefault("site.max-pages", 0)
	v.SetDefault("site.describe-workers", 8)
	v.SetDefault("site.describe-timeout", 10*time.Second)

	v.SetDefault("cache.redis-url", "")
	v.SetDefault("cache.ttl", 6*time.Hour)

	v.SetDefault("exclude.employers", []string{})
	v.SetDefault("exclude.keywords", []string{})

	v.SetDefault("ranking.max-listings", 150)
	v.SetDefault("ranking.batch-size", 50)
	v.SetDefault("ranking.description-limit", 800)
	v.SetDefault("ranking.concurrency", 4)
	v.SetDefault("ranking.timeout", 5*time.Minute)
	v.SetDefault("ranking.language", "Norwegian")
	v.SetDefault("ranking.instructions", "")
	v.SetDefault("ranking.max-log-length", 200)

	v.SetDefault("ai.provider", "anthropic")
	v.SetDefault("ai.anthropic.api-key", "")
	v.SetDefault("ai.anthropic.api-key-file", "")
	v.SetDefault("ai.anthropic.model", "claude-sonnet-4-6")
	v.SetDefault("ai.anthropic.max-retries", 2)
	v.SetDefault("ai.anthropic.max-tokens", 16000)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	v.SetDefault("ai.gemini.max-retries", 3)
}

func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The config file is optional unless it was asked for explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
