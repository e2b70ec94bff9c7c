package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadConfig(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	cfg.App.NativeDecimals = 6
	cfg.App.PortTimeout = 3 * time.Second
	path := filepath.Join(home, "config", "config.toml")
	require.NoError(t, WriteConfigFile(path, cfg))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	loaded := DefaultConfig(home)
	require.NoError(t, v.Unmarshal(loaded))
	loaded.App.Home = home

	require.Equal(t, int32(6), loaded.App.NativeDecimals)
	require.Equal(t, 3*time.Second, loaded.App.PortTimeout)
	require.Equal(t, "HAC", loaded.App.Native().Symbol)
	require.Equal(t, filepath.Join(home, "data/space.db"), loaded.App.SpaceDBPath())
	require.NoError(t, loaded.App.ValidateBasic())
}

func TestAppValidateBasic(t *testing.T) {
	cfg := NewAppConfig("/tmp/hac")
	require.NoError(t, cfg.ValidateBasic())

	bad := *cfg
	bad.NativeSymbol = ""
	require.ErrorIs(t, bad.ValidateBasic(), ErrNoNativeSymbol)
	bad = *cfg
	bad.NativeDecimals = 40
	require.ErrorIs(t, bad.ValidateBasic(), ErrNativeDecimals)
	bad = *cfg
	bad.PortTimeout = 0
	require.ErrorIs(t, bad.ValidateBasic(), ErrPortTimeout)

	abs := *cfg
	abs.IndexerDB = "/var/lib/hac/idx.db"
	require.Equal(t, "/var/lib/hac/idx.db", abs.IndexerDBPath())
}

func TestInitializeIdentity(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	owner, err := InitializeIdentity(cfg)
	require.NoError(t, err)
	require.NotEmpty(t, owner)
	again, err := InitializeIdentity(cfg)
	require.NoError(t, err)
	require.Equal(t, owner, again)
}
