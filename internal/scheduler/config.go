package scheduler

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls the periodic sweep and the recheck worker.
type Config struct {
	// SweepInterval is the period between full-fleet checks.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// RecheckDelay is how long after a completed service visit the
	// vehicle is re-examined.
	RecheckDelay time.Duration `yaml:"recheck_delay"`
	// RecheckPoll is the polling period of the recheck worker.
	RecheckPoll time.Duration `yaml:"recheck_poll"`
	// RecheckMaxAttempts bounds retries of a failing recheck task.
	RecheckMaxAttempts int `yaml:"recheck_max_attempts"`
	// RecheckBackoff is the delay added before each retry.
	RecheckBackoff time.Duration `yaml:"recheck_backoff"`
}

// DefaultConfig returns the configuration used when no file overrides
// it.
func DefaultConfig() Config {
	return Config{
		SweepInterval:      30 * time.Minute,
		RecheckDelay:       2 * time.Second,
		RecheckPoll:        time.Second,
		RecheckMaxAttempts: 3,
		RecheckBackoff:     5 * time.Second,
	}
}

// LoadConfig reads a YAML config file and fills unset fields with
// defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("scheduler config: %w", err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("scheduler config: %w", err)
	}
	if fileCfg.SweepInterval > 0 {
		cfg.SweepInterval = fileCfg.SweepInterval
	}
	if fileCfg.RecheckDelay > 0 {
		cfg.RecheckDelay = fileCfg.RecheckDelay
	}
	if fileCfg.RecheckPoll > 0 {
		cfg.RecheckPoll = fileCfg.RecheckPoll
	}
	if fileCfg.RecheckMaxAttempts > 0 {
		cfg.RecheckMaxAttempts = fileCfg.RecheckMaxAttempts
	}
	if fileCfg.RecheckBackoff > 0 {
		cfg.RecheckBackoff = fileCfg.RecheckBackoff
	}
	return cfg, nil
}
