package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/range-sharding/chunkr/pkg/config"
)

func TestValidateSplitterCfg(t *testing.T) {
	assert := assert.New(t)

	for i, c := range []struct {
		cfg     config.Splitter
		wantErr bool
	}{
		{config.Splitter{SplitThresholdRatio: 0.9, SamplingFraction: 1, Parallelism: 4}, false},
		{config.Splitter{SplitThresholdRatio: 1, SamplingFraction: 0.25, Parallelism: 1}, false},
		{config.Splitter{SplitThresholdRatio: 0, SamplingFraction: 1, Parallelism: 4}, true},
		{config.Splitter{SplitThresholdRatio: 1.5, SamplingFraction: 1, Parallelism: 4}, true},
		{config.Splitter{SplitThresholdRatio: 0.9, SamplingFraction: 0, Parallelism: 4}, true},
		{config.Splitter{SplitThresholdRatio: 0.9, SamplingFraction: 1.1, Parallelism: 4}, true},
		{config.Splitter{SplitThresholdRatio: 0.9, SamplingFraction: 1, Parallelism: 0}, true},
		{config.Splitter{MaxChunkSizeBytes: -1, SplitThresholdRatio: 0.9, SamplingFraction: 1, Parallelism: 4}, true},
	} {
		err := config.ValidateSplitterCfg(&c.cfg)
		if c.wantErr {
			assert.Error(err, "case %d", i)
		} else {
			assert.NoError(err, "case %d", i)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	assert := assert.New(t)

	cfg := config.Splitter{}
	config.ApplyDefaults(&cfg)

	assert.Equal("mem", cfg.CatalogType)
	assert.Equal(0.9, cfg.SplitThresholdRatio)
	assert.Equal(1.0, cfg.SamplingFraction)
	assert.Equal("estimate-verify", cfg.EstimationMode)
	assert.Equal(4, cfg.Parallelism)
	assert.NoError(config.ValidateSplitterCfg(&cfg))
}

func TestTimeout(t *testing.T) {
	assert := assert.New(t)

	cfg := config.Splitter{}
	assert.Equal(30*time.Second, cfg.Timeout())

	cfg.OperationTimeout = "5s"
	assert.Equal(5*time.Second, cfg.Timeout())

	cfg.OperationTimeout = "not-a-duration"
	assert.Equal(30*time.Second, cfg.Timeout())

	cfg.OperationTimeout = "-1s"
	assert.Equal(30*time.Second, cfg.Timeout())
}
