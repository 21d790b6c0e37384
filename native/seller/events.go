package seller

import (
	"math/big"
	"strconv"

	"sellerchain/core/events"
	"sellerchain/core/types"
)

const (
	// EventTypePurchase is emitted after a successful purchase.
	EventTypePurchase = "seller.purchase"
	// EventTypeRankGranted is emitted when an account's rank changes.
	EventTypeRankGranted = "seller.rank.granted"
	// EventTypePriceUpdated is emitted when the unit price changes.
	EventTypePriceUpdated = "seller.price.updated"
	// EventTypeRewardUpdated is emitted when the reward fraction changes.
	EventTypeRewardUpdated = "seller.reward.updated"
	// EventTypeCustodyUpdated is emitted when the custody token reference changes.
	EventTypeCustodyUpdated = "seller.custody.updated"
	// EventTypeWithdrawn is emitted when the native balance is withdrawn.
	EventTypeWithdrawn = "seller.withdrawn"
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

// PurchaseEvent describes a completed purchase. The referrer attribute is only
// present when the referral earned a bonus.
func PurchaseEvent(seller [20]byte, result *PurchaseResult) *types.Event {
	attrs := map[string]string{
		"seller":      hexAddr(seller),
		"buyer":       hexAddr(result.Buyer),
		"payment":     copyBig(result.Payment).String(),
		"tokens":      copyBig(result.BuyerTokens).String(),
		"bonus":       copyBig(result.BonusTokens).String(),
		"remainder":   copyBig(result.Remainder).String(),
		"referralHit": strconv.FormatBool(result.ReferralValid),
	}
	if result.ReferralValid {
		attrs["referrer"] = hexAddr(result.Referrer)
	}
	return &types.Event{Type: EventTypePurchase, Attributes: attrs}
}

// RankGrantedEvent records a rank assignment.
func RankGrantedEvent(seller, caller, target [20]byte, rank Rank) *types.Event {
	return &types.Event{
		Type: EventTypeRankGranted,
		Attributes: map[string]string{
			"seller": hexAddr(seller),
			"caller": hexAddr(caller),
			"target": hexAddr(target),
			"rank":   strconv.Itoa(int(rank)),
		},
	}
}

// PriceUpdatedEvent records a price change.
func PriceUpdatedEvent(seller, caller [20]byte, price *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypePriceUpdated,
		Attributes: map[string]string{
			"seller": hexAddr(seller),
			"caller": hexAddr(caller),
			"price":  copyBig(price).String(),
		},
	}
}

// RewardUpdatedEvent records a reward fraction change.
func RewardUpdatedEvent(seller, caller [20]byte, numerator, denominator *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRewardUpdated,
		Attributes: map[string]string{
			"seller":      hexAddr(seller),
			"caller":      hexAddr(caller),
			"numerator":   copyBig(numerator).String(),
			"denominator": copyBig(denominator).String(),
		},
	}
}

// CustodyUpdatedEvent records a custody token change.
func CustodyUpdatedEvent(seller, caller, previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeCustodyUpdated,
		Attributes: map[string]string{
			"seller":   hexAddr(seller),
			"caller":   hexAddr(caller),
			"previous": hexAddr(previous),
			"token":    hexAddr(next),
		},
	}
}

// WithdrawnEvent records a treasury withdrawal.
func WithdrawnEvent(seller, caller [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"seller": hexAddr(seller),
			"to":     hexAddr(caller),
			"amount": copyBig(amount).String(),
		},
	}
}
