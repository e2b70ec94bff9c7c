package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/hac-gov/contract"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// TemplateTxHandler publishes deployable contract templates under the address
// of the deployer.
type TemplateTxHandler struct {
	logger cmtlog.Logger
}

func NewTemplateTxHandler(logger cmtlog.Logger) (h *TemplateTxHandler) {
	h = &TemplateTxHandler{
		logger: logger.With("module", "templateTx"),
	}
	return
}

func (h *TemplateTxHandler) Check(ctx context.Context, st *state.State, ex *Exec, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h, st, ex, btx)
}

func (h *TemplateTxHandler) NewContext(ctx context.Context) {}

func (h *TemplateTxHandler) Process(ctx context.Context, st *state.State, ex *Exec, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	form, ok := btx.Form.(*tx.PublishTemplateForm)
	if !ok {
		return failed(contract.Validationf("unexpected form %T", btx.Form)), nil
	}
	tmpl, err := form.Open()
	if err != nil {
		return failed(&contract.Error{Kind: contract.KindValidation, Msg: "open template", Err: err}), nil
	}
	caller := btx.Caller()
	rec := &state.TemplateRecord{
		Deployer: caller,
		Ref:      tmpl.Name + "@" + tmpl.Version,
		Network:  form.Network,
		Digest:   form.Digest,
		Data:     form.Template,
	}
	if err = st.AddTemplate(rec); err != nil {
		return failed(contract.Preconditionf(err, "publish %s", rec.Ref)), nil
	}
	payload, err := json.Marshal(tmpl)
	if err != nil {
		return nil, err
	}
	h.logger.Info("template published", "deployer", caller, "ref", rec.Ref, "network", rec.Network)
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{
		Code: CodeOK,
		Data: data,
		Events: []abcitypes.Event{types.EncodeEventReceipt(&types.EventReceipt{
			ID:       fmt.Sprintf("%s:0", ex.TxHash),
			Action:   string(btx.Type),
			Contract: rec.Ref,
			Caller:   caller,
			Owner:    caller,
			Title:    string(btx.Type),
			Subtitle: rec.Ref,
			Payload:  payload,
		})},
	}
	return
}
