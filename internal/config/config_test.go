package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ociswap/registry/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
registry:
  owner: "0x1111111111111111111111111111111111111111"
  fee_protocol_share: "0.1"
  sync_period: 10080
  sync_slots: 20
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 300, cfg.Auth.SignatureWindowSeconds)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "feereg", cfg.Redis.KeyPrefix)

	owner, err := cfg.OwnerAddress()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), owner)

	params, err := cfg.RegistryParams()
	require.NoError(t, err)
	assert.Equal(t, "0.1", params.FeeProtocolShare.String())
	assert.Equal(t, uint64(10080), params.SyncPeriod)
	assert.Equal(t, uint64(20), params.SyncSlots)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("FEEREG_SERVER_PORT", "9090")
	t.Setenv("FEEREG_REGISTRY_SYNC_SLOTS", "7")
	path := writeConfig(t, "server:\n  port: \"8081\"\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, uint64(7), cfg.Registry.SyncSlots)
}

func TestRegistryParamsRejectsInvalid(t *testing.T) {
	cfg := &Config{Registry: RegistryConfig{FeeProtocolShare: "0.5", SyncPeriod: 10, SyncSlots: 1}}
	_, err := cfg.RegistryParams()
	assert.ErrorIs(t, err, registry.ErrFeeShareOutOfBounds)

	cfg.Registry.FeeProtocolShare = "abc"
	_, err = cfg.RegistryParams()
	assert.Error(t, err)
}

func TestOwnerAddressRejectsGarbage(t *testing.T) {
	cfg := &Config{Registry: RegistryConfig{Owner: "owner"}}
	_, err := cfg.OwnerAddress()
	assert.Error(t, err)
}

func TestOwnerAddressRejectsZero(t *testing.T) {
	cfg := &Config{Registry: RegistryConfig{Owner: "0x0000000000000000000000000000000000000000"}}
	_, err := cfg.OwnerAddress()
	assert.Error(t, err)
}
