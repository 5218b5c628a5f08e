package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/finn-ranker/internal/logger"
	"github.com/spigell/finn-ranker/internal/profile"
	"github.com/spigell/finn-ranker/internal/ranking"
	"github.com/spigell/finn-ranker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web UI",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default 127.0.0.1:8000)")
	serveCmd.Flags().String("browser", "", "page driver: playwright or http")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("site.browser", serveCmd.Flags().Lookup("browser"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, log := setup()
	log.Info("starting the finn-ranker", zap.String("version", version))

	source, closeSource := newSource(ctx, config, log)
	defer closeSource()

	opts := server.Options{
		Source:        source,
		Profiles:      profile.NewStore(),
		Exclude:       newExclude(config),
		MaxUploadSize: config.MaxUploadSize,
	}

	ranker, err := newRanker(ctx, config, log)
	switch {
	case errors.Is(err, ranking.ErrNotConfigured):
		log.Warn("ranking disabled, analyze requests will fail", zap.Error(err))
	case err != nil:
		log.Fatal("building the ranker", zap.Error(err))
	default:
		opts.Ranker = ranker
		log.Info("ranking enabled", zap.String("provider", config.AI.Provider), zap.String("model", ranker.Model()))
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(logger.Named(log, "server"), opts)
	if err := srv.Run(ctx, config.Listen); err != nil {
		log.Fatal("serving", zap.Error(err))
	}
}
