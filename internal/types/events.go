package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// EventKind identifies a vault notification emitted for external observers.
// Events are a side channel only; nothing in the vault consumes them.
type EventKind string

const (
	EventDepositCompleted  EventKind = "DEPOSIT_COMPLETED"
	EventWithdrawCompleted EventKind = "WITHDRAW_COMPLETED"
	EventRateUpdated       EventKind = "RATE_UPDATED"
	EventCapUpdated        EventKind = "CAP_UPDATED"
)

// Event carries the literal amounts and addresses of a completed operation.
type Event struct {
	Kind      EventKind         `json:"kind"`
	Sequence  uint64            `json:"sequence"`
	Caller    string            `json:"caller,omitempty"`
	Owner     string            `json:"owner,omitempty"`
	Receiver  string            `json:"receiver,omitempty"`
	Assets    sdkmath.Int       `json:"assets,omitempty"`
	Shares    sdkmath.Int       `json:"shares,omitempty"`
	Rate      sdkmath.LegacyDec `json:"rate,omitempty"`
	Cap       sdkmath.Int       `json:"cap,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
