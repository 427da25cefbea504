package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type StorageConfig struct {
	// DBPath is the path to the BoltDB file for registry snapshots.
	// Default: "./data/omni-route.db"
	DBPath string

	// PersistenceEnabled controls whether the registry is snapshotted to
	// disk. Default: true
	PersistenceEnabled bool
}

func (c *StorageConfig) Key() string {
	return STORAGE_CONFIG_KEY
}

func (c *StorageConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("STORAGE_DB_PATH", "./data/omni-route.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("STORAGE_PERSISTENCE_ENABLED", "true") == "true"
	return nil
}

func (c *StorageConfig) Validate() error {
	return nil
}
