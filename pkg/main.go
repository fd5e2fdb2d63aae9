package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	pkg "github.com/voxlink/voxlink/pkg/internal"
	"github.com/voxlink/voxlink/pkg/internal/database"
	"github.com/voxlink/voxlink/pkg/internal/http"
	"github.com/voxlink/voxlink/pkg/internal/services"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	services.SetupRefResolvers()

	// Seed PBX servers from settings and open their manager sessions.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.BootstrapServers(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when bootstrapping servers.")
	}
	if err := services.StartServers(ctx); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting manager sessions.")
	}

	// Server
	http.NewServer()
	go http.Listen()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 10m", services.DoRetentionSweep)
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.Start()

	log.Info().Msgf("%s v%s is started...", color.New(color.FgHiCyan).Sprint(pkg.AppName), pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("%s v%s is quitting...", pkg.AppName, pkg.AppVersion)

	quartz.Stop()
	cancel()
}
