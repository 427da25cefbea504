package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

type ServerEnv = string

var (
	DevEnv     ServerEnv = "dev"
	StagingEnv ServerEnv = "staging"
	ProdEnv    ServerEnv = "prod"
)

const (
	GENERAL_CONFIG_KEY = "general-config"
	CHAINS_CONFIG_KEY  = "chains-config"
	STORAGE_CONFIG_KEY = "storage-config"
)

type GeneralConfig struct {
	HTTPPort string
	HTTPHost string
	Env      string
	LogLevel string

	// SlippageCentiBps is the default slippage tolerance in units of
	// 0.001%; plan requests may override it.
	SlippageCentiBps uint64

	// DeadlineSeconds is the default plan deadline horizon.
	DeadlineSeconds uint64

	// Per-client HTTP rate limit: sustained requests per second and burst.
	RateLimitRPS   int
	RateLimitBurst int
}

func (gc *GeneralConfig) Key() string {
	return GENERAL_CONFIG_KEY
}

func (gc *GeneralConfig) Load() error {
	gc.HTTPPort = common.GetEnvOrDefault("HTTP_PORT", "8080")
	gc.HTTPHost = common.GetEnvOrDefault("HTTP_HOST", "localhost")
	gc.Env = common.GetEnvOrDefault("ENV", "dev")
	gc.LogLevel = common.GetEnvOrDefault("LOG_LEVEL", "INFO")
	gc.SlippageCentiBps = uint64(common.GetEnvOrDefaultInt("SLIPPAGE_CENTI_BPS", 1000))
	gc.DeadlineSeconds = uint64(common.GetEnvOrDefaultInt("PLAN_DEADLINE_SECONDS", 600))
	gc.RateLimitRPS = common.GetEnvOrDefaultInt("RATE_LIMIT_RPS", 10)
	gc.RateLimitBurst = common.GetEnvOrDefaultInt("RATE_LIMIT_BURST", 20)
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.HTTPPort == "" || gc.HTTPHost == "" || gc.Env == "" {
		return errors.New("invalid server config")
	}
	if gc.SlippageCentiBps >= 100_000 {
		return errors.New("slippage tolerance must be below 100%")
	}
	if gc.RateLimitRPS <= 0 || gc.RateLimitBurst < gc.RateLimitRPS {
		return errors.New("rate limit burst must be at least the sustained rate")
	}
	return nil
}
