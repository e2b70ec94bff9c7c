package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url string
}

var queryArgs queryArguments

var queryCmd = &cobra.Command{
	Use:   "query <governance|outputs|documents|templates> <data>",
	Short: "Query committed chain state",
	Long: `Query committed chain state. data is a contract id for governance,
an address for outputs and templates and a json query for documents, e.g.
  hac query documents '{"space":"dao-space","equals":{"docType":"org"},"limit":10}'`,
	Args: cobra.ExactArgs(2),
	RunE: queryRun,
}

func init() {
	urlFlag(queryCmd, &queryArgs.Url)
}

func queryRun(cmd *cobra.Command, args []string) error {
	cli, err := http.New(queryArgs.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client err:%w", err)
	}
	res, err := cli.ABCIQuery(context.Background(), "/"+args[0]+"/", []byte(args[1]))
	if err != nil {
		return fmt.Errorf("query err:%w", err)
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query failed with code %d: %s", res.Response.Code, res.Response.Log)
	}
	var out bytes.Buffer
	if err = json.Indent(&out, res.Response.Value, "", "  "); err != nil {
		return err
	}
	fmt.Printf("height: %d\n%s\n", res.Response.Height, out.String())
	return nil
}
