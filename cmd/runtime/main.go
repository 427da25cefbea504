package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/omni-route/internal/config"
	"github.com/hxuan190/omni-route/internal/engine"
	"github.com/hxuan190/omni-route/internal/http"
)

func main() {
	// load env
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.ChainsConfig{},
		&config.StorageConfig{},
	)

	// di container
	dic, err := container.New(
		conf,

		&engine.Service{},
		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run() waits for SIGINT/SIGTERM but doesn't call Stop()
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
