package document

import (
	"strings"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
)

// DispositionInTransit is the CBV disposition used when a filtered event
// carries none and no override is configured.
const DispositionInTransit = "urn:epcglobal:cbv:disp:in_transit"

// TransactionTransform rewrites business transactions of one type into
// another. The trading partner only accepts despatch-advice transactions for
// shipping business steps, so rules rewrite the inbound type/value pair on
// the way out.
type TransactionTransform struct {
	Enabled         bool
	SourceType      string
	DestinationType string
	Prefix          string
	Strip           string
}

// Apply rewrites every business transaction on the event whose type equals
// the configured source type: the type becomes the destination type and the
// value becomes prefix + the trimmed value with the strip substring removed.
// Transactions of other types pass through untouched and list order is
// preserved. No-op unless enabled.
func (t TransactionTransform) Apply(ev *epcis.Event) {
	if !t.Enabled {
		return
	}
	for i := range ev.BusinessTransactions {
		bt := &ev.BusinessTransactions[i]
		if bt.Type != t.SourceType {
			continue
		}
		bt.Type = t.DestinationType
		value := strings.TrimSpace(bt.Value)
		if t.Strip != "" {
			value = strings.ReplaceAll(value, t.Strip, "")
		}
		bt.Value = t.Prefix + value
	}
}

// FillDisposition sets a default disposition on an event that has none.
func FillDisposition(ev *epcis.Event, disposition string) {
	if ev.Disposition == "" {
		ev.Disposition = disposition
	}
}
