package config

import (
	"github.com/caarlos0/env/v11"
)

// envOverrides mirrors the subset of Config that deployments tune without
// editing the config file.
type envOverrides struct {
	Addr         string `env:"QUESTHALL_ADDR"`
	Backend      string `env:"QUESTHALL_STORAGE_BACKEND"`
	DataDir      string `env:"QUESTHALL_DATA_DIR"`
	SQLitePath   string `env:"QUESTHALL_SQLITE_PATH"`
	FlushDelayMS int    `env:"QUESTHALL_FLUSH_DELAY_MS"`
	BatchSize    int    `env:"QUESTHALL_TURNIN_BATCH"`
}

// ApplyEnv overlays environment variables onto the config. Unset variables
// leave the existing values alone.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}
	if o.Addr != "" {
		c.Server.Addr = o.Addr
	}
	if o.Backend != "" {
		c.Storage.Backend = o.Backend
	}
	if o.DataDir != "" {
		c.Storage.DataDir = o.DataDir
	}
	if o.SQLitePath != "" {
		c.Storage.SQLitePath = o.SQLitePath
	}
	if o.FlushDelayMS > 0 {
		c.Display.FlushDelayMS = o.FlushDelayMS
	}
	if o.BatchSize > 0 {
		c.TurnIns.BatchSize = o.BatchSize
	}
	return nil
}
