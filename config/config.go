package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/contract"
	hcrypto "github.com/calehh/hac-gov/crypto"
	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

const (
	DefaultNativeSymbol   = "HAC"
	DefaultNativeDecimals = 8
	DefaultQueryListen    = "127.0.0.1:8088"

	IdentitySecretFile = "identity_secret"
)

var (
	ErrNoNativeSymbol   = errors.New("native_symbol is empty")
	ErrNativeDecimals   = errors.New("native_decimals out of range")
	ErrPortTimeout      = errors.New("port_timeout must be positive")
	ErrNoQueryListen    = errors.New("query_listen is empty")
	ErrIdentityNotFound = errors.New("identity secret not found")
)

// AppConfig is the [app] section of config.toml. Relative paths are resolved
// against Home.
type AppConfig struct {
	Home           string        `mapstructure:"-"`
	TimeoutCommit  uint64        `mapstructure:"-"`
	SpaceDB        string        `mapstructure:"space_db"`
	IndexerDB      string        `mapstructure:"indexer_db"`
	QueryListen    string        `mapstructure:"query_listen"`
	NativeSymbol   string        `mapstructure:"native_symbol"`
	NativeDecimals int32         `mapstructure:"native_decimals"`
	PortTimeout    time.Duration `mapstructure:"port_timeout"`
}

func NewAppConfig(home string) *AppConfig {
	return &AppConfig{
		Home:           home,
		SpaceDB:        "data/space.db",
		IndexerDB:      "data/indexer.db",
		QueryListen:    DefaultQueryListen,
		NativeSymbol:   DefaultNativeSymbol,
		NativeDecimals: DefaultNativeDecimals,
		PortTimeout:    contract.DefaultPortTimeout,
	}
}

func (c *AppConfig) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Home, p)
}

func (c *AppConfig) DataDir() string {
	return filepath.Join(c.Home, "data")
}

func (c *AppConfig) SpaceDBPath() string {
	return c.path(c.SpaceDB)
}

func (c *AppConfig) IndexerDBPath() string {
	return c.path(c.IndexerDB)
}

// Native is the asset fees and stakes are paid in.
func (c *AppConfig) Native() coin.Asset {
	return coin.Asset{Symbol: c.NativeSymbol, Decimals: c.NativeDecimals}
}

func (c *AppConfig) ContractOptions() contract.Options {
	return contract.Options{Native: c.Native(), Timeout: c.PortTimeout}
}

func (c *AppConfig) ValidateBasic() error {
	if c.NativeSymbol == "" {
		return ErrNoNativeSymbol
	}
	if c.NativeDecimals < 0 || c.NativeDecimals > contract.MaxDecimals {
		return fmt.Errorf("%w: %d", ErrNativeDecimals, c.NativeDecimals)
	}
	if c.PortTimeout <= 0 {
		return ErrPortTimeout
	}
	if c.QueryListen == "" {
		return ErrNoQueryListen
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *AppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.hac")
	}
	config := &Config{
		DefaultHACCometConfig(),
		NewAppConfig(home),
	}
	config.RootDir = home
	_ = os.MkdirAll(home+"/config", 0755)
	return config
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

func (c *Config) IdentitySecretFile() string {
	return filepath.Join(c.RootDir, "config", IdentitySecretFile)
}

// InitializeIdentity writes a fresh identity secret unless one exists and
// returns the address it signs for.
func InitializeIdentity(c *Config) (owner string, err error) {
	file := c.IdentitySecretFile()
	if _, err = os.Stat(file); err == nil {
		pv, lerr := hcrypto.LoadSecretPV(file)
		if lerr != nil {
			return "", lerr
		}
		return pv.Address(), nil
	}
	seed := make([]byte, 32)
	if _, err = rand.Read(seed); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(seed)
	if err = os.WriteFile(file, []byte(secret), 0o600); err != nil {
		return "", fmt.Errorf("write identity secret: %w", err)
	}
	return hcrypto.NewSecretPV(secret).Address(), nil
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultHACCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 10
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
