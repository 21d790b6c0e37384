package token

import (
	"math/big"

	"sellerchain/core/events"
	"sellerchain/core/types"
)

const (
	// EventTypeTransfer is emitted for every balance movement.
	EventTypeTransfer = "token.transfer"
	// EventTypeDeployed is emitted when a token is created.
	EventTypeDeployed = "token.deployed"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// TransferEvent records a token transfer.
func TransferEvent(token, from, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"token":  hexAddr(token),
			"from":   hexAddr(from),
			"to":     hexAddr(to),
			"amount": amount.String(),
		},
	}
}

// DeployedEvent records a token creation.
func DeployedEvent(token, owner [20]byte, meta *Metadata) *types.Event {
	return &types.Event{
		Type: EventTypeDeployed,
		Attributes: map[string]string{
			"token":  hexAddr(token),
			"owner":  hexAddr(owner),
			"name":   meta.Name,
			"symbol": meta.Symbol,
			"supply": meta.TotalSupply.String(),
		},
	}
}
