package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/range-sharding/chunkr/pkg/chunklog"
	"github.com/range-sharding/chunkr/pkg/models/cherror"
)

const (
	// DefaultMaxChunkSizeBytes applies when neither the config file nor the
	// catalog's cluster-wide setting provides a ceiling.
	DefaultMaxChunkSizeBytes = 64 << 20

	defaultSplitThresholdRatio = 0.9
	defaultSamplingFraction    = 1.0
	defaultEstimationMode      = "estimate-verify"
	defaultParallelism         = 4
	defaultOperationTimeout    = 30 * time.Second
)

type Node struct {
	ID         string `json:"id" toml:"id" yaml:"id"`
	ConnString string `json:"conn_string" toml:"conn_string" yaml:"conn_string"`
}

type Splitter struct {
	LogLevel string `json:"log_level" toml:"log_level" yaml:"log_level"`

	CatalogType       string `json:"catalog_type" toml:"catalog_type" yaml:"catalog_type"`
	CatalogAddr       string `json:"catalog_addr" toml:"catalog_addr" yaml:"catalog_addr"`
	CatalogBackupPath string `json:"catalog_backup_path" toml:"catalog_backup_path" yaml:"catalog_backup_path"`

	MaxChunkSizeBytes   int64   `json:"max_chunk_size_bytes" toml:"max_chunk_size_bytes" yaml:"max_chunk_size_bytes"`
	SplitThresholdRatio float64 `json:"split_threshold_ratio" toml:"split_threshold_ratio" yaml:"split_threshold_ratio"`
	SamplingFraction    float64 `json:"sampling_fraction" toml:"sampling_fraction" yaml:"sampling_fraction"`
	EstimationMode      string  `json:"estimation_mode" toml:"estimation_mode" yaml:"estimation_mode"`
	ApplySplits         bool    `json:"apply_splits" toml:"apply_splits" yaml:"apply_splits"`

	Parallelism      int    `json:"parallelism" toml:"parallelism" yaml:"parallelism"`
	OperationTimeout string `json:"operation_timeout" toml:"operation_timeout" yaml:"operation_timeout"`

	Nodes []Node `json:"nodes" toml:"nodes" yaml:"nodes"`
}

// Timeout is the per-remote-call deadline. Unparsable or empty values fall
// back to the default.
func (s *Splitter) Timeout() time.Duration {
	if s.OperationTimeout == "" {
		return defaultOperationTimeout
	}
	d, err := time.ParseDuration(s.OperationTimeout)
	if err != nil || d <= 0 {
		return defaultOperationTimeout
	}
	return d
}

var cfgSplitter Splitter

func LoadSplitterCfg(cfgPath string) error {
	file, err := os.Open(cfgPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := initSplitterConfig(file, cfgPath); err != nil {
		return err
	}
	ApplyDefaults(&cfgSplitter)
	if err := ValidateSplitterCfg(&cfgSplitter); err != nil {
		return err
	}

	configBytes, err := json.MarshalIndent(cfgSplitter, "", "  ")
	if err != nil {
		return err
	}

	chunklog.Zero.Info().Msg("Running config: " + string(configBytes))
	return nil
}

func initSplitterConfig(file *os.File, filepath string) error {
	if strings.HasSuffix(filepath, ".toml") {
		_, err := toml.NewDecoder(file).Decode(&cfgSplitter)
		return err
	}
	if strings.HasSuffix(filepath, ".yaml") {
		return yaml.NewDecoder(file).Decode(&cfgSplitter)
	}
	if strings.HasSuffix(filepath, ".json") {
		return json.NewDecoder(file).Decode(&cfgSplitter)
	}
	return fmt.Errorf("unknown config format type: %s. Use .toml, .yaml or .json suffix in filename", filepath)
}

func ApplyDefaults(cfg *Splitter) {
	if cfg.CatalogType == "" {
		cfg.CatalogType = "mem"
	}
	if cfg.SplitThresholdRatio == 0 {
		cfg.SplitThresholdRatio = defaultSplitThresholdRatio
	}
	if cfg.SamplingFraction == 0 {
		cfg.SamplingFraction = defaultSamplingFraction
	}
	if cfg.EstimationMode == "" {
		cfg.EstimationMode = defaultEstimationMode
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = defaultParallelism
	}
}

func ValidateSplitterCfg(cfg *Splitter) error {
	if cfg.MaxChunkSizeBytes < 0 {
		return cherror.Newf(cherror.CHNK_CONFIG_ERROR, "max chunk size must be non-negative, got %d", cfg.MaxChunkSizeBytes)
	}
	if cfg.SplitThresholdRatio <= 0 || cfg.SplitThresholdRatio > 1 {
		return cherror.Newf(cherror.CHNK_CONFIG_ERROR, "split threshold ratio must be in (0, 1], got %v", cfg.SplitThresholdRatio)
	}
	if cfg.SamplingFraction <= 0 || cfg.SamplingFraction > 1 {
		return cherror.Newf(cherror.CHNK_CONFIG_ERROR, "sampling fraction must be in (0, 1], got %v", cfg.SamplingFraction)
	}
	if cfg.Parallelism < 1 {
		return cherror.Newf(cherror.CHNK_CONFIG_ERROR, "parallelism must be at least 1, got %d", cfg.Parallelism)
	}
	return nil
}

func SplitterConfig() *Splitter {
	return &cfgSplitter
}
