package config_test

import (
	"testing"
	"time"

	"github.com/arkade-os/subsign/internal/config"
	"github.com/arkade-os/subsign/pkg/sub-lib/extension"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const (
	testSnapshot = "../infrastructure/chain/file/testdata/snapshot.yaml"
	testKey      = "0101010101010101010101010101010101010101010101010101010101010101"
)

// loadConfig runs a cli app with the given args and returns the loaded config.
func loadConfig(t *testing.T, args ...string) (*config.Config, error) {
	var cfg *config.Config
	var loadErr error
	app := cli.NewApp()
	app.Flags = config.Flags
	app.Action = func(c *cli.Context) error {
		cfg, loadErr = config.LoadConfig(c)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"subsign"}, args...)))
	return cfg, loadErr
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig(
			t, "--datadir", t.TempDir(), "--chain-snapshot", testSnapshot,
		)
		require.NoError(t, err)
		require.Equal(t, "badger", cfg.DbType)
		require.Equal(t, "file", cfg.ChainType)
		require.Equal(t, "inmemory", cfg.DigestCacheType)
		require.Equal(t, 24*time.Hour, cfg.DigestCacheTTL)
		require.Equal(t, "ecdsa", cfg.SignerType)
		require.Equal(t, 4, cfg.LogLevel)
		require.Equal(t, extension.DefaultLayout, cfg.Extensions)
		require.Equal(t, uint8(5), cfg.TransferPalletIndex)
		require.Zero(t, cfg.TransferCallIndex)
	})

	t.Run("config file", func(t *testing.T) {
		cfg, err := loadConfig(
			t, "--datadir", t.TempDir(), "--config", "testdata/config.yaml", "--log-level", "6",
		)
		require.NoError(t, err)
		// flags take precedence over the file
		require.Equal(t, 6, cfg.LogLevel)
		require.Equal(t, testSnapshot, cfg.ChainSnapshot)
		require.Equal(
			t, []string{"CheckSpecVersion", "CheckMetadataHash"}, cfg.Extensions,
		)
		require.NotEmpty(t, cfg.SignerPrivateKey)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name          string
			args          []string
			expectedError string
		}{
			{
				name:          "missing snapshot",
				args:          []string{},
				expectedError: "chain snapshot is missing",
			},
			{
				name:          "missing redis url",
				args:          []string{"--chain-snapshot", testSnapshot, "--digest-cache-type", "redis"},
				expectedError: "redis url is missing",
			},
			{
				name:          "missing pg url",
				args:          []string{"--chain-snapshot", testSnapshot, "--db-type", "postgres"},
				expectedError: "db url is missing",
			},
			{
				name:          "missing config file",
				args:          []string{"--config", "testdata/missing.yaml"},
				expectedError: "failed to read config file",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				args := append([]string{"--datadir", t.TempDir()}, tt.args...)
				_, err := loadConfig(t, args...)
				require.ErrorContains(t, err, tt.expectedError)
			})
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *config.Config {
		cfg, err := loadConfig(
			t, "--datadir", t.TempDir(), "--chain-snapshot", testSnapshot,
			"--signer-prvkey", testKey,
		)
		require.NoError(t, err)
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := valid(t)
		require.NoError(t, cfg.Validate())
		svc := cfg.AppService()
		require.NotNil(t, svc)
		svc.Close()

		require.NotContains(t, cfg.String(), testKey)
	})

	t.Run("valid with sqlite", func(t *testing.T) {
		cfg := valid(t)
		cfg.DbType = "sqlite"
		require.NoError(t, cfg.Validate())
		cfg.AppService().Close()
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name          string
			edit          func(cfg *config.Config)
			expectedError string
		}{
			{
				name:          "db type",
				edit:          func(cfg *config.Config) { cfg.DbType = "mysql" },
				expectedError: "db type not supported",
			},
			{
				name:          "chain type",
				edit:          func(cfg *config.Config) { cfg.ChainType = "rpc" },
				expectedError: "chain type not supported",
			},
			{
				name:          "digest cache type",
				edit:          func(cfg *config.Config) { cfg.DigestCacheType = "memcached" },
				expectedError: "digest cache type not supported",
			},
			{
				name:          "signer type",
				edit:          func(cfg *config.Config) { cfg.SignerType = "sr25519" },
				expectedError: "signer type not supported",
			},
			{
				name:          "missing private key",
				edit:          func(cfg *config.Config) { cfg.SignerPrivateKey = "" },
				expectedError: "missing signer private key",
			},
			{
				name:          "missing extensions",
				edit:          func(cfg *config.Config) { cfg.Extensions = nil },
				expectedError: "missing signed extensions",
			},
			{
				name: "duplicate extensions",
				edit: func(cfg *config.Config) {
					cfg.Extensions = []string{"CheckNonce", "CheckNonce"}
				},
				expectedError: "configured more than once",
			},
			{
				name:          "redis retries",
				edit:          func(cfg *config.Config) { cfg.RedisTxNumOfRetries = 0 },
				expectedError: "invalid redis num of retries",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := valid(t)
				tt.edit(cfg)
				require.ErrorContains(t, cfg.Validate(), tt.expectedError)
			})
		}
	})
}
