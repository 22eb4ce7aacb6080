/*

This file contains the types describing vault operations: the receipts written
after every committed or rejected operation, and the per-source allocation
records the deposit/withdraw paths produce.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
)

// OperationKind identifies the mutating entry point that produced a receipt.
type OperationKind string

const (
	OpDeposit  OperationKind = "DEPOSIT"
	OpMint     OperationKind = "MINT"
	OpWithdraw OperationKind = "WITHDRAW"
	OpRedeem   OperationKind = "REDEEM"
	OpSetCap   OperationKind = "SET_CAP"
)

// SourceAllocation records how much of an operation's asset amount was
// routed to or from a single underlying source.
type SourceAllocation struct {
	SourceID string      `json:"source_id"`
	Assets   sdkmath.Int `json:"assets"`
}

// OperationReceipt is the audit record of one vault operation. A receipt is
// written for every committed operation and for every rejection; rejected
// receipts carry Success=false and a cause message, and imply zero state change.
type OperationReceipt struct {
	ID          uuid.UUID          `json:"id"`
	Sequence    uint64             `json:"sequence"`
	Kind        OperationKind      `json:"kind"`
	Caller      string             `json:"caller"`
	Owner       string             `json:"owner,omitempty"`    // position owner (withdraw/redeem)
	Receiver    string             `json:"receiver,omitempty"` // share or asset receiver
	Assets      sdkmath.Int        `json:"assets"`
	Shares      sdkmath.Int        `json:"shares"`
	Rate        sdkmath.LegacyDec  `json:"rate"` // assetsPerShare after commit
	Allocations []SourceAllocation `json:"allocations,omitempty"`
	Success     bool               `json:"success"`
	Message     string             `json:"message,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// RateSnapshot captures the exchange rate and the totals it was derived from
// at one operation boundary. The rate is only meaningful at the boundary it
// was computed in; consumers must treat it as a cached value, never live.
type RateSnapshot struct {
	Sequence       uint64            `json:"sequence"`
	AssetsPerShare sdkmath.LegacyDec `json:"assets_per_share"`
	TotalAssets    sdkmath.Int       `json:"total_assets"`
	TotalShares    sdkmath.Int       `json:"total_shares"`
	Timestamp      time.Time         `json:"timestamp"`
}

// CapChange records an administrative update of the assets cap.
type CapChange struct {
	Actor     string      `json:"actor"`
	OldCap    sdkmath.Int `json:"old_cap"`
	NewCap    sdkmath.Int `json:"new_cap"`
	Timestamp time.Time   `json:"timestamp"`
}
