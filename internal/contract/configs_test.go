package contract_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

func TestProcessConfigDefaults(t *testing.T) {
	cfg := &contract.Config{}
	require.NoError(t, contract.ProcessConfig(cfg, &contract.ConfigRawInput{}))

	assert.True(t, filepath.IsAbs(cfg.CacheRoot))
	assert.Equal(t, contract.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, contract.DefaultWorkers, cfg.Workers)
	assert.Equal(t, contract.DefaultPageLimit, cfg.PageLimit)
	assert.Equal(t, contract.DefaultRatePerSecond, cfg.RateLimit)
	assert.Equal(t, contract.DefaultFreshFor, cfg.FreshFor)
	assert.Equal(t, schema.FileBackend, cfg.MetadataBackend)
}

func TestProcessConfigFreshForParsing(t *testing.T) {
	cfg := &contract.Config{}
	require.NoError(t, contract.ProcessConfig(cfg, &contract.ConfigRawInput{FreshFor: "48h"}))
	assert.Equal(t, 48*time.Hour, cfg.FreshFor)

	err := contract.ProcessConfig(&contract.Config{}, &contract.ConfigRawInput{FreshFor: "soon"})
	assert.Error(t, err)
}

func TestValidateMetadataBackend(t *testing.T) {
	assert.NoError(t, contract.ValidateMetadataBackend(schema.FileBackend, ""))
	assert.NoError(t, contract.ValidateMetadataBackend(schema.SQLiteBackend, ""))
	assert.Error(t, contract.ValidateMetadataBackend(schema.MySQLBackend, ""))
	assert.NoError(t, contract.ValidateMetadataBackend(schema.MySQLBackend, "root:pw@tcp(localhost:3306)/db"))
	assert.Error(t, contract.ValidateMetadataBackend("redis", ""))
}

func TestGetMetadataDBFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("/data/cache", ".metadata.db"), contract.GetMetadataDBFilePath("/data/cache"))
}
