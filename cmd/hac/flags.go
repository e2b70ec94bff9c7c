package main

import (
	"os"
	"path/filepath"

	"github.com/calehh/hac-gov/config"
	"github.com/spf13/cobra"
)

const (
	FlagOverwrite = "overwrite"
	FlagChainID   = "chain-id"
	FlagHome      = "home"
	FlagAlloc     = "alloc"
)

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "hac-cl service url")
}

func defaultSecretPath() string {
	return filepath.Join(os.ExpandEnv("$HOME/.hac"), "config", config.IdentitySecretFile)
}

// signerFlags binds the flags selecting the key a command signs with.
func signerFlags(cmd *cobra.Command, secret, skey *string) {
	cmd.Flags().StringVarP(secret, "secret", "s", defaultSecretPath(), "identity secret path")
	cmd.Flags().StringVarP(skey, "skeyPath", "", "", "sign with a private validator key file instead")
}
