package tx

import (
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"

	"github.com/Masterminds/semver"
	"github.com/calehh/hac-gov/space"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

const (
	NetworkLocal   = "local"
	NetworkTestnet = "testnet"
	NetworkMainnet = "mainnet"
)

var (
	ErrTemplateName    = errors.New("template has no name")
	ErrTemplateNetwork = errors.New("unknown network")
	ErrTemplateAction  = errors.New("unknown template action")
	ErrTemplateDigest  = errors.New("template digest mismatch")
)

// Template is the deployable description of a governance contract: the
// actions it answers to and the schema of its document space.
type Template struct {
	Name    string       `cbor:"name" json:"name"`
	Version string       `cbor:"version" json:"version"`
	Actions []GovTxType  `cbor:"actions" json:"actions"`
	Schema  space.Schema `cbor:"schema" json:"schema"`
}

var (
	tmplEnc cbor.EncMode
	tmplDec cbor.DecMode
)

func init() {
	var err error
	tmplEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("tx: CBOR encoder initialization failed: " + err.Error())
	}
	tmplDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("tx: CBOR decoder initialization failed: " + err.Error())
	}
}

func ValidNetwork(network string) bool {
	switch network {
	case NetworkLocal, NetworkTestnet, NetworkMainnet:
		return true
	}
	return false
}

func (t *Template) Validate() error {
	if t.Name == "" {
		return ErrTemplateName
	}
	if _, err := semver.NewVersion(t.Version); err != nil {
		return fmt.Errorf("template version %q: %w", t.Version, err)
	}
	known := make(map[GovTxType]bool, len(ContractActions))
	for _, a := range ContractActions {
		known[a] = true
	}
	for _, a := range t.Actions {
		if !known[a] {
			return fmt.Errorf("%w: %s", ErrTemplateAction, a)
		}
	}
	return nil
}

// NewTemplate describes the governance contract built into this binary.
func NewTemplate(name, version string, schema space.Schema) *Template {
	actions := make([]GovTxType, len(ContractActions))
	copy(actions, ContractActions)
	return &Template{Name: name, Version: version, Actions: actions, Schema: schema}
}

// EncodeTemplate serializes t with core deterministic CBOR so equal
// templates always hash the same.
func EncodeTemplate(t *Template) ([]byte, error) {
	return tmplEnc.Marshal(t)
}

func DecodeTemplate(data []byte) (*Template, error) {
	t := new(Template)
	if err := tmplDec.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}

func TemplateDigest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Open checks the form digest and decodes the template it carries.
func (f *PublishTemplateForm) Open() (*Template, error) {
	if !ValidNetwork(f.Network) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNetwork, f.Network)
	}
	if TemplateDigest(f.Template) != f.Digest {
		return nil, ErrTemplateDigest
	}
	t, err := DecodeTemplate(f.Template)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
