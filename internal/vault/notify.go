package vault

import (
	"github.com/elys-network/mvault/internal/logger"
	"github.com/elys-network/mvault/internal/types"
)

// Notifier receives vault events. Delivery is fire-and-forget; a notifier
// must never block or fail an operation.
type Notifier interface {
	Notify(event types.Event)
}

// LogNotifier writes every event to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(event types.Event) {
	notifyLogger := logger.GetForComponent("notifier")
	evt := notifyLogger.Info().
		Str("kind", string(event.Kind)).
		Uint64("sequence", event.Sequence)
	if event.Caller != "" {
		evt = evt.Str("caller", event.Caller)
	}
	if event.Receiver != "" {
		evt = evt.Str("receiver", event.Receiver)
	}
	if !event.Assets.IsNil() {
		evt = evt.Str("assets", event.Assets.String())
	}
	if !event.Shares.IsNil() {
		evt = evt.Str("shares", event.Shares.String())
	}
	if !event.Rate.IsNil() {
		evt = evt.Str("rate", event.Rate.String())
	}
	evt.Msg("Vault event")
}

// FanoutNotifier delivers each event to every wrapped notifier in order.
type FanoutNotifier struct {
	targets []Notifier
}

func NewFanoutNotifier(targets ...Notifier) *FanoutNotifier {
	return &FanoutNotifier{targets: targets}
}

func (f *FanoutNotifier) Notify(event types.Event) {
	for _, t := range f.targets {
		if t != nil {
			t.Notify(event)
		}
	}
}

// ReceiptSink persists operation receipts, rate snapshots, and cap changes
// for audit. Persistence is best-effort: a sink error is logged by the vault
// but never fails an already-committed operation.
type ReceiptSink interface {
	SaveReceipt(receipt types.OperationReceipt) error
	SaveRateSnapshot(snapshot types.RateSnapshot) error
	SaveCapChange(change types.CapChange) error
}
