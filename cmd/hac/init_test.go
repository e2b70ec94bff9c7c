package main

import (
	"testing"

	"github.com/calehh/hac-gov/tx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAllocs(t *testing.T) {
	allocs, err := parseAllocs([]string{"1000", "bob=2.5"}, "self")
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	require.Equal(t, "self", allocs[0].Owner)
	require.True(t, decimal.NewFromInt(1000).Equal(allocs[0].Amount))
	require.Equal(t, "bob", allocs[1].Owner)
	require.Equal(t, "2.5", allocs[1].Amount.String())

	_, err = parseAllocs([]string{"bob=lots"}, "self")
	require.Error(t, err)
}

func TestTemplateForm(t *testing.T) {
	form, err := templateForm("governance", "v1.2.0", "testnet")
	require.NoError(t, err)
	tmpl, err := form.Open()
	require.NoError(t, err)
	require.Equal(t, "1.2.0", tmpl.Version)

	_, err = templateForm("governance", "one", "local")
	require.Error(t, err)
	_, err = templateForm("governance", "1.0.0", "moon")
	require.Error(t, err)
}

func TestBuildTx(t *testing.T) {
	btx, err := buildTx("createOrg", "gov-1", []byte(`{"name":"builders","symbol":"BLD","decimals":2,"joinTokens":"100"}`), []string{" aa:0 "})
	require.NoError(t, err)
	require.Equal(t, "aa:0", btx.Inputs[0].ID)
	require.Equal(t, "builders", btx.Form.(*tx.CreateOrgForm).Name)

	_, err = buildTx("mintEverything", "gov-1", []byte(`{}`), nil)
	require.Error(t, err)
	_, err = buildTx("createOrg", "", []byte(`{}`), nil)
	require.Error(t, err)
}
