package state

import (
	"github.com/elys-network/mvault/internal/types"
)

// Sink adapts the state package to the vault's receipt sink interface. Every
// persisted receipt also advances the durable operation counter.
type Sink struct{}

func (Sink) SaveReceipt(receipt types.OperationReceipt) error {
	if err := SaveOperationReceipt(receipt); err != nil {
		return err
	}
	if receipt.Success {
		return RecordOperationSequence(receipt.Sequence)
	}
	return nil
}

func (Sink) SaveRateSnapshot(snapshot types.RateSnapshot) error {
	return SaveRateSnapshot(snapshot)
}

func (Sink) SaveCapChange(change types.CapChange) error {
	return SaveCapChange(change)
}
