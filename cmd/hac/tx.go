package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/crypto"
	"github.com/calehh/hac-gov/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type txArguments struct {
	Url      string
	Contract string
	Form     string
	Inputs   []string
	Secret   string
	Skey     string
	ChainId  string
	NoSend   bool
}

var txArgs txArguments

var txCmd = &cobra.Command{
	Use:   "tx <action>",
	Short: "Sign and broadcast a governance action",
	Long: `Sign and broadcast a governance action, e.g.
  hac tx createOrg --contract gov-1 --form '{"name":"builders","symbol":"BLD","decimals":2}' --input <txhash>:0`,
	Args: cobra.ExactArgs(1),
	RunE: txRun,
}

func init() {
	urlFlag(txCmd, &txArgs.Url)
	signerFlags(txCmd, &txArgs.Secret, &txArgs.Skey)
	txCmd.Flags().StringVarP(&txArgs.Contract, "contract", "c", "", "governance contract id")
	txCmd.Flags().StringVarP(&txArgs.Form, "form", "f", "{}", "action form as json")
	txCmd.Flags().StringSliceVarP(&txArgs.Inputs, "input", "i", nil, "output ids consumed by the action, in order")
	txCmd.Flags().StringVarP(&txArgs.ChainId, "chain-id", "", "", "chain id, read from the node when empty")
	txCmd.Flags().BoolVarP(&txArgs.NoSend, "nosend", "", false, "not send transaction but print it")
}

func loadSigner(secret, skey string) (*crypto.PV, error) {
	if skey != "" {
		return crypto.LoadFilePV(skey)
	}
	return crypto.LoadSecretPV(secret)
}

// buildTx decodes form through the typed form of the action so the signed
// bytes are the ones the node will recompute.
func buildTx(typ tx.GovTxType, contract string, form json.RawMessage, inputs []string) (*tx.GovTx, error) {
	raw := tx.GovTx{
		Version:   tx.GovTxVersion0,
		Type:      typ,
		Contract:  contract,
		Timestamp: time.Now().UnixMilli(),
		Form:      form,
	}
	for _, id := range inputs {
		raw.Inputs = append(raw.Inputs, coin.Input{ID: strings.TrimSpace(id)})
	}
	dat, err := tx.MarshalGovTx(&raw)
	if err != nil {
		return nil, err
	}
	return tx.UnmarshalGovTx(dat)
}

func chainID(ctx context.Context, cli *http.HTTP, chainId string) (string, error) {
	if chainId != "" {
		return chainId, nil
	}
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return "", fmt.Errorf("get chain genesis err:%w", err)
	}
	return gres.Genesis.ChainID, nil
}

// signAndSend signs btx and broadcasts it unless noSend is set.
func signAndSend(url, chainId, secret, skey string, noSend bool, btx *tx.GovTx) error {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client err:%w", err)
	}
	ctx := context.Background()
	if chainId, err = chainID(ctx, cli, chainId); err != nil {
		return err
	}
	pv, err := loadSigner(secret, skey)
	if err != nil {
		return err
	}
	if err = btx.Sign(pv, chainId); err != nil {
		return fmt.Errorf("sign tx err:%w", err)
	}
	fmt.Println("address:", pv.Address())
	dat, err := tx.MarshalGovTx(btx)
	if err != nil {
		return err
	}
	if noSend {
		fmt.Println(string(dat))
		return nil
	}
	res, err := cli.BroadcastTxCommit(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx err:%w", err)
	}
	dat, _ = json.MarshalIndent(res, "", "  ")
	fmt.Println(string(dat))
	if res.CheckTx.Code != 0 {
		return fmt.Errorf("check tx failed with code %d: %s", res.CheckTx.Code, res.CheckTx.Log)
	}
	if res.TxResult.Code != 0 {
		return fmt.Errorf("tx failed with code %d: %s", res.TxResult.Code, res.TxResult.Log)
	}
	return nil
}

func txRun(cmd *cobra.Command, args []string) error {
	btx, err := buildTx(tx.GovTxType(args[0]), txArgs.Contract, json.RawMessage(txArgs.Form), txArgs.Inputs)
	if err != nil {
		return fmt.Errorf("build tx err:%w", err)
	}
	return signAndSend(txArgs.Url, txArgs.ChainId, txArgs.Secret, txArgs.Skey, txArgs.NoSend, btx)
}
