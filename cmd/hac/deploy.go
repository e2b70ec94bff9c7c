package main

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	"github.com/spf13/cobra"
)

type deployArguments struct {
	Url     string
	Name    string
	Version string
	Network string
	Secret  string
	Skey    string
	ChainId string
	NoSend  bool
}

var deployArgs deployArguments

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Publish the governance contract template under the signer address",
	RunE:  deployRun,
}

func init() {
	urlFlag(deployCmd, &deployArgs.Url)
	signerFlags(deployCmd, &deployArgs.Secret, &deployArgs.Skey)
	deployCmd.Flags().StringVarP(&deployArgs.Name, "name", "n", "governance", "template name")
	deployCmd.Flags().StringVarP(&deployArgs.Version, "version", "v", Version, "template semantic version")
	deployCmd.Flags().StringVarP(&deployArgs.Network, "network", "", tx.NetworkLocal, "local, testnet or mainnet")
	deployCmd.Flags().StringVarP(&deployArgs.ChainId, "chain-id", "", "", "chain id, read from the node when empty")
	deployCmd.Flags().BoolVarP(&deployArgs.NoSend, "nosend", "", false, "not send transaction but print it")
}

// templateForm builds the publishTemplate form of the contract in this
// binary.
func templateForm(name, version, network string) (*tx.PublishTemplateForm, error) {
	if !tx.ValidNetwork(network) {
		return nil, fmt.Errorf("%w: %s", tx.ErrTemplateNetwork, network)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, fmt.Errorf("template version %q: %w", version, err)
	}
	tmpl := tx.NewTemplate(name, v.String(), types.Schema())
	if err = tmpl.Validate(); err != nil {
		return nil, err
	}
	data, err := tx.EncodeTemplate(tmpl)
	if err != nil {
		return nil, err
	}
	return &tx.PublishTemplateForm{
		Network:  network,
		Template: data,
		Digest:   tx.TemplateDigest(data),
	}, nil
}

func deployRun(cmd *cobra.Command, args []string) error {
	form, err := templateForm(deployArgs.Name, deployArgs.Version, deployArgs.Network)
	if err != nil {
		return err
	}
	fmt.Println("template digest:", form.Digest)
	btx := &tx.GovTx{
		Version:   tx.GovTxVersion0,
		Type:      tx.GovTxTypePublishTemplate,
		Timestamp: time.Now().UnixMilli(),
		Form:      form,
	}
	return signAndSend(deployArgs.Url, deployArgs.ChainId, deployArgs.Secret, deployArgs.Skey, deployArgs.NoSend, btx)
}
