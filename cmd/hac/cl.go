package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/calehh/hac-gov/agent"
	"github.com/calehh/hac-gov/app"
	app_config "github.com/calehh/hac-gov/config"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	nodeStartWait   = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

var homeDir string

var clCmd = &cobra.Command{
	Use:   "hac-cl",
	Short: "HAC governance chain",
	Long: `A chain of governance contracts: organizations, proposals and
staked votes settled on chain.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if homeDir == "" {
			homeDir = os.ExpandEnv("$HOME/.hac")
		}
		return runNode(homeDir)
	},
}

func init() {
	clCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func loadConfig(home string) (*app_config.Config, error) {
	cfg := app_config.DefaultConfig(home)
	cfg.SetRoot(home)
	viper.SetConfigFile(filepath.Join(home, "config", "config.toml"))
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.App.Home = home
	cfg.App.TimeoutCommit = uint64(cfg.Consensus.TimeoutCommit.Seconds())
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return cfg, nil
}

func nodeLogger(level string) (cmtlog.Logger, error) {
	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	return cmtflags.ParseLogLevel(level, logger, cmtconfig.DefaultLogLevel)
}

func newNode(cfg *app_config.Config, gov *app.GovApp, logger cmtlog.Logger) (*nm.Node, error) {
	nodeKey, err := p2p.LoadNodeKey(cfg.NodeKeyFile())
	if err != nil {
		return nil, fmt.Errorf("load node key: %w", err)
	}
	pv := privval.LoadFilePV(cfg.PrivValidatorKeyFile(), cfg.PrivValidatorStateFile())
	return nm.NewNode(
		cfg.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(gov),
		nm.DefaultGenesisDocProviderFunc(cfg.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(cfg.Instrumentation),
		logger,
	)
}

// startQueryAPI follows the local node over RPC and serves the indexed data.
func startQueryAPI(ctx context.Context, cfg *app_config.Config, gov *app.GovApp, logger cmtlog.Logger) (*agent.ChainIndexer, error) {
	rpcUrl, err := url.Parse(cfg.RPC.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("parse rpc address: %w", err)
	}
	rpcUrl.Scheme = "http"
	indexer, err := agent.NewChainIndexer(logger, cfg.App.IndexerDBPath(), rpcUrl.String())
	if err != nil {
		return nil, err
	}
	go indexer.Start(ctx)

	service := agent.NewService(cfg.App.QueryListen, indexer, gov.Space())
	go func() {
		if err := service.Start(); err != nil {
			logger.Error("query service stopped", "err", err)
		}
	}()
	return indexer, nil
}

func runNode(home string) error {
	cfg, err := loadConfig(home)
	if err != nil {
		return err
	}
	logger, err := nodeLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	gov, err := app.NewGovApp(cfg.App, logger)
	if err != nil {
		return fmt.Errorf("new app: %w", err)
	}
	node, err := newNode(cfg, gov, logger)
	if err != nil {
		gov.Stop()
		return fmt.Errorf("create node: %w", err)
	}

	gov.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		gov.Stop()
		return fmt.Errorf("start node: %w", err)
	}
	time.Sleep(nodeStartWait)
	if !node.IsRunning() {
		return fmt.Errorf("comet node unable to run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	indexer, err := startQueryAPI(ctx, cfg, gov, logger)
	if err != nil {
		cancel()
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Println("shutting down...")
	cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := node.Stop(); err != nil {
			logger.Error("stop node fail", "err", err)
		}
		node.Wait()
		gov.Stop()
		if err := indexer.Close(); err != nil {
			logger.Error("close indexer fail", "err", err)
		}
	}()
	select {
	case <-done:
		return nil
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("shutdown timed out after %s", shutdownTimeout)
	}
}
