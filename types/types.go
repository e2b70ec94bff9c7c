package types

import (
	"fmt"
	"math/big"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventReceiptType    = "receipt"
	EventOutputType     = "output"
	EventSpendType      = "spend"
	EventGovernanceType = "governance"
)

type EventReceipt struct {
	ID       string `json:"id"`
	Action   string `json:"action"`
	Contract string `json:"contract"`
	Caller   string `json:"caller"`
	Owner    string `json:"owner"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Payload  []byte `json:"payload"`
}

func EncodeEventReceipt(event *EventReceipt) abci.Event {
	return abci.Event{
		Type: EventReceiptType,
		Attributes: []abci.EventAttribute{
			{Key: "id", Value: event.ID, Index: true},
			{Key: "action", Value: event.Action, Index: true},
			{Key: "contract", Value: event.Contract, Index: true},
			{Key: "caller", Value: event.Caller, Index: true},
			{Key: "owner", Value: event.Owner, Index: false},
			{Key: "title", Value: event.Title, Index: false},
			{Key: "subtitle", Value: event.Subtitle, Index: false},
			{Key: "payload", Value: string(event.Payload), Index: false},
		},
	}
}

func DecodeEventReceipt(originEvent abci.Event) *EventReceipt {
	if originEvent.Type != EventReceiptType {
		return nil
	}
	event := &EventReceipt{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "id":
			event.ID = v.Value
		case "action":
			event.Action = v.Value
		case "contract":
			event.Contract = v.Value
		case "caller":
			event.Caller = v.Value
		case "owner":
			event.Owner = v.Value
		case "title":
			event.Title = v.Value
		case "subtitle":
			event.Subtitle = v.Value
		case "payload":
			event.Payload = []byte(v.Value)
		}
	}
	return event
}

type EventOutput struct {
	ID       string   `json:"id"`
	Contract string   `json:"contract"`
	Owner    string   `json:"owner"`
	Symbol   string   `json:"symbol"`
	Issuer   string   `json:"issuer"`
	Decimals int32    `json:"decimals"`
	Amount   *big.Int `json:"amount"`
	Minted   bool     `json:"minted"`
}

func EncodeEventOutput(event *EventOutput) abci.Event {
	return abci.Event{
		Type: EventOutputType,
		Attributes: []abci.EventAttribute{
			{Key: "id", Value: event.ID, Index: true},
			{Key: "contract", Value: event.Contract, Index: false},
			{Key: "owner", Value: event.Owner, Index: true},
			{Key: "symbol", Value: event.Symbol, Index: false},
			{Key: "issuer", Value: event.Issuer, Index: false},
			{Key: "decimals", Value: fmt.Sprintf("%v", event.Decimals), Index: false},
			{Key: "amount", Value: event.Amount.String(), Index: false},
			{Key: "minted", Value: strconv.FormatBool(event.Minted), Index: false},
		},
	}
}

func DecodeEventOutput(originEvent abci.Event) *EventOutput {
	if originEvent.Type != EventOutputType {
		return nil
	}
	event := &EventOutput{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "id":
			event.ID = v.Value
		case "contract":
			event.Contract = v.Value
		case "owner":
			event.Owner = v.Value
		case "symbol":
			event.Symbol = v.Value
		case "issuer":
			event.Issuer = v.Value
		case "decimals":
			decimals, err := strconv.ParseInt(v.Value, 10, 32)
			if err != nil {
				return nil
			}
			event.Decimals = int32(decimals)
		case "amount":
			amount, ok := new(big.Int).SetString(v.Value, 10)
			if !ok {
				return nil
			}
			event.Amount = amount
		case "minted":
			minted, err := strconv.ParseBool(v.Value)
			if err != nil {
				return nil
			}
			event.Minted = minted
		}
	}
	if event.Amount == nil {
		return nil
	}
	return event
}

type EventSpend struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

func EncodeEventSpend(event *EventSpend) abci.Event {
	return abci.Event{
		Type: EventSpendType,
		Attributes: []abci.EventAttribute{
			{Key: "id", Value: event.ID, Index: true},
			{Key: "owner", Value: event.Owner, Index: true},
		},
	}
}

func DecodeEventSpend(originEvent abci.Event) *EventSpend {
	if originEvent.Type != EventSpendType {
		return nil
	}
	event := &EventSpend{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "id":
			event.ID = v.Value
		case "owner":
			event.Owner = v.Value
		}
	}
	return event
}

type EventGovernance struct {
	Contract string   `json:"contract"`
	Counters Counters `json:"counters"`
}

func EncodeEventGovernance(event *EventGovernance) abci.Event {
	return abci.Event{
		Type: EventGovernanceType,
		Attributes: []abci.EventAttribute{
			{Key: "contract", Value: event.Contract, Index: true},
			{Key: "orgs", Value: fmt.Sprintf("%v", event.Counters.Orgs), Index: false},
			{Key: "votes", Value: fmt.Sprintf("%v", event.Counters.Votes), Index: false},
			{Key: "proposals", Value: fmt.Sprintf("%v", event.Counters.Proposals), Index: false},
			{Key: "members", Value: fmt.Sprintf("%v", event.Counters.Members), Index: false},
		},
	}
}

func DecodeEventGovernance(originEvent abci.Event) *EventGovernance {
	if originEvent.Type != EventGovernanceType {
		return nil
	}
	event := &EventGovernance{}
	for _, v := range originEvent.Attributes {
		var dst *uint64
		switch v.Key {
		case "contract":
			event.Contract = v.Value
			continue
		case "orgs":
			dst = &event.Counters.Orgs
		case "votes":
			dst = &event.Counters.Votes
		case "proposals":
			dst = &event.Counters.Proposals
		case "members":
			dst = &event.Counters.Members
		default:
			continue
		}
		n, err := strconv.ParseUint(v.Value, 10, 64)
		if err != nil {
			return nil
		}
		*dst = n
	}
	return event
}
