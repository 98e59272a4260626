package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version string       `yaml:"version" json:"version"`
	Server  ServerConfig `yaml:"server" json:"server"`
	Storage Storage      `yaml:"storage" json:"storage"`
	Display Display      `yaml:"display" json:"display"`
	TurnIns TurnIns      `yaml:"turn_ins" json:"turn_ins"`
	Quests  Quests       `yaml:"quests" json:"quests"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type Storage struct {
	// Backend selects where quest and ledger documents live: "sqlite" or "file".
	Backend    string `yaml:"backend" json:"backend"`
	DataDir    string `yaml:"data_dir" json:"data_dir"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

type Display struct {
	// FlushDelayMS bounds how long a queued update may wait behind a stuck render.
	FlushDelayMS int    `yaml:"flush_delay_ms" json:"flush_delay_ms"`
	ArtifactDir  string `yaml:"artifact_dir" json:"artifact_dir"`
}

type TurnIns struct {
	// BatchSize is the number of turn-ins consumed per redemption.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

type Quests struct {
	Rules RuleSet `yaml:"rules" json:"rules"`
}

type RuleSet struct {
	// RPRequiresVillage gates RP quest joins on the actor's current village.
	RPRequiresVillage bool `yaml:"rp_requires_village" json:"rp_requires_village"`
	// MemberCapTypes lists quest types allowed to carry a participant cap.
	MemberCapTypes []string `yaml:"member_cap_types" json:"member_cap_types"`
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8480"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "file"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/questhall.db"
	}
	if c.Display.FlushDelayMS <= 0 {
		c.Display.FlushDelayMS = 2000
	}
	if c.Display.ArtifactDir == "" {
		c.Display.ArtifactDir = "data/artifacts"
	}
	if c.TurnIns.BatchSize <= 0 {
		c.TurnIns.BatchSize = 10
	}
	if len(c.Quests.Rules.MemberCapTypes) == 0 {
		c.Quests.Rules.MemberCapTypes = []string{"Art", "Writing", "ArtWriting"}
	}
}

func (c *Config) FlushDelay() time.Duration {
	return time.Duration(c.Display.FlushDelayMS) * time.Millisecond
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Config
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	r.ApplyDefaults()
	return &r, nil
}

// Default returns a config with every default applied, for callers that run
// without a config file.
func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}
