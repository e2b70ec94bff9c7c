package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

type pubkeyArguments struct {
	Secret string
	Skey   string
}

var pubkeyArgs pubkeyArguments

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Print the public key and address of a signing key",
	RunE:  pubkeyRun,
}

func init() {
	signerFlags(pubkeyCmd, &pubkeyArgs.Secret, &pubkeyArgs.Skey)
}

func pubkeyRun(cmd *cobra.Command, args []string) error {
	pv, err := loadSigner(pubkeyArgs.Secret, pubkeyArgs.Skey)
	if err != nil {
		return err
	}
	fmt.Println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	fmt.Println("address:", pv.Address())
	return nil
}
