package handler

import (
	"context"
	"encoding/json"

	"github.com/calehh/hac-gov/coin"
	"github.com/calehh/hac-gov/contract"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/state"
	"github.com/calehh/hac-gov/tx"
	"github.com/calehh/hac-gov/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// ActionData is the Data of a successful action tx.
type ActionData struct {
	Outputs []coin.Output    `json:"outputs"`
	View    []space.Document `json:"view,omitempty"`
}

// ActionTxHandler delivers governance contract actions. Every action runs on
// its own overlay and reaches the block only when it succeeds.
type ActionTxHandler struct {
	logger cmtlog.Logger
	ledger coin.Ledger
	opts   contract.Options
}

func NewActionTxHandler(ledger coin.Ledger, opts contract.Options, logger cmtlog.Logger) (h *ActionTxHandler) {
	h = &ActionTxHandler{
		logger: logger.With("module", "actionTx"),
		ledger: ledger,
		opts:   opts,
	}
	return
}

func (h *ActionTxHandler) Check(ctx context.Context, st *state.State, ex *Exec, btx *tx.GovTx) (res *abcitypes.ResponseCheckTx, err error) {
	return check(ctx, h, st, ex, btx)
}

func (h *ActionTxHandler) NewContext(ctx context.Context) {}

func (h *ActionTxHandler) Process(ctx context.Context, st *state.State, ex *Exec, btx *tx.GovTx) (res *abcitypes.ExecTxResult, err error) {
	caller := btx.Caller()
	gov, err := st.GetGovernance(btx.Contract)
	if err != nil {
		h.logger.Error("load governance fail", "contract", btx.Contract, "err", err)
		return failed(contract.PortErr(err, "load governance")), nil
	}
	inputs, err := st.ResolveInputs(caller, btx.Inputs)
	if err != nil {
		return failed(contract.Preconditionf(err, "resolve inputs")), nil
	}

	ov := space.NewOverlay(ex.Space)
	c := contract.New(ov, h.ledger, h.opts, h.logger)
	out, err := c.Apply(ctx, gov, contract.Action{
		Type:   btx.Type,
		Form:   btx.Form,
		Inputs: inputs,
	}, contract.ActionContext{
		Contract: btx.Contract,
		Caller:   caller,
		Now:      st.BlockTime(),
		Tags:     map[string]string{"tx": ex.TxHash},
	})
	if err != nil {
		h.logger.Info("action fail", "type", btx.Type, "contract", btx.Contract, "err", err)
		return failed(err), nil
	}

	snapshot := st.Clone()
	res, err = h.apply(ctx, st, ov, ex, btx, caller, out)
	if err != nil {
		st.Restore(snapshot)
		ov.Discard()
		h.logger.Error("apply action result fail", "type", btx.Type, "err", err)
		return failed(err), nil
	}
	return res, nil
}

func (h *ActionTxHandler) apply(ctx context.Context, st *state.State, ov *space.Overlay, ex *Exec, btx *tx.GovTx, caller string, out *contract.Result) (res *abcitypes.ExecTxResult, err error) {
	if out.Changed {
		if err = st.SetGovernance(out.State); err != nil {
			return nil, contract.PortErr(err, "save governance")
		}
	}
	if err = st.Spend(out.Spent); err != nil {
		return nil, contract.Preconditionf(err, "spend inputs")
	}
	all := make([]coin.Output, 0, len(out.Outputs)+len(out.Minted))
	all = append(all, out.Outputs...)
	all = append(all, out.Minted...)
	outs, err := st.AddOutputs(ex.TxHash, all)
	if err != nil {
		return nil, contract.Preconditionf(err, "add outputs")
	}
	if err = st.RecordDocuments(ov.Pending()); err != nil {
		return nil, contract.PortErr(err, "record documents")
	}
	if err = ov.Merge(ctx); err != nil {
		return nil, contract.PortErr(err, "merge documents")
	}

	events := make([]abcitypes.Event, 0, 2*len(outs)+len(out.Spent)+1)
	for i, o := range outs {
		receipt := &types.EventReceipt{
			ID:       o.ID,
			Action:   string(btx.Type),
			Contract: btx.Contract,
			Caller:   caller,
			Owner:    o.Owner,
			Title:    o.Title,
			Subtitle: o.Subtitle,
		}
		if o.Payload != nil {
			receipt.Payload, err = json.Marshal(o.Payload)
			if err != nil {
				return nil, contract.PortErr(err, "encode payload")
			}
		}
		events = append(events, types.EncodeEventReceipt(receipt))
		if o.IsCoin() && o.Value != nil {
			events = append(events, types.EncodeEventOutput(&types.EventOutput{
				ID:       o.ID,
				Contract: btx.Contract,
				Owner:    o.Owner,
				Symbol:   o.Value.Symbol,
				Issuer:   o.Value.Issuer,
				Decimals: o.Value.Decimals,
				Amount:   o.Value.Amount,
				Minted:   i >= len(out.Outputs),
			}))
		}
	}
	for _, in := range out.Spent {
		events = append(events, types.EncodeEventSpend(&types.EventSpend{ID: in.ID, Owner: in.Owner}))
	}
	if out.Changed {
		events = append(events, types.EncodeEventGovernance(&types.EventGovernance{
			Contract: btx.Contract,
			Counters: out.State.Counters,
		}))
	}
	data, err := json.Marshal(ActionData{Outputs: outs, View: out.View})
	if err != nil {
		return nil, contract.PortErr(err, "encode result")
	}
	res = &abcitypes.ExecTxResult{Code: CodeOK, Data: data, Events: events}
	return
}
