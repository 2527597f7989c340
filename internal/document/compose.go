// =============================================================================
// TraceLink EPCIS Steps - Document Composer
// =============================================================================
//
// Merges the object, aggregation and filtered event sets into one ordered
// sequence, runs the per-event finishing pass (date normalization, GTIN-14
// re-derivation), and attaches the envelope and per-partner master-data
// context. The resulting Document renders to XML or JSON from the same
// merged, annotated sequence; nothing is re-derived between the two forms.
//
// =============================================================================

package document

import (
	"github.com/ginjaninja78/epcis-tracelink/internal/datetime"
	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/gs1"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
	"github.com/ginjaninja78/epcis-tracelink/internal/sbdh"
)

// Order is the configurable merge policy for filtered events.
type Order struct {
	// AppendFiltered includes the filtered events in the document.
	AppendFiltered bool

	// PrependFiltered places them before the object/aggregation events
	// instead of after. Ignored when AppendFiltered is false.
	PrependFiltered bool
}

// Extra is the per-partner master-data context attached to a document.
type Extra struct {
	Masterdata      []*masterdata.Location
	OutboundMapping *masterdata.OutboundMapping
	SenderGLN       string
	ReceiverGLN     string
	TransactionDate string
}

// Options configures a composition pass.
type Options struct {
	Order Order

	// ConvertDates runs the date normalizer over each merged event.
	ConvertDates bool

	// IncrementDates adds the event's merge index in seconds to its
	// timestamps, forcing strict chronological ordering among events that
	// share a source timestamp. Requires ConvertDates.
	IncrementDates bool

	Normalizer *datetime.Normalizer
	Header     *sbdh.Header
	Extra      Extra
}

// Document is the merged, annotated event sequence ready for serialization.
type Document struct {
	Header *sbdh.Header
	Events []*epcis.Event
	Extra  Extra
}

// Merge builds the ordered event sequence from the three sets.
func Merge(objectEvents, aggregationEvents, filteredEvents []*epcis.Event, order Order) []*epcis.Event {
	size := len(objectEvents) + len(aggregationEvents) + len(filteredEvents)
	merged := make([]*epcis.Event, 0, size)
	if order.AppendFiltered && order.PrependFiltered {
		merged = append(merged, filteredEvents...)
	}
	merged = append(merged, objectEvents...)
	merged = append(merged, aggregationEvents...)
	if order.AppendFiltered && !order.PrependFiltered {
		merged = append(merged, filteredEvents...)
	}
	return merged
}

// Compose merges the event sets and applies the finishing pass in merged
// order: optional date normalization (with the per-event increment) and
// GTIN-14 re-derivation for object events that are missing it.
func Compose(objectEvents, aggregationEvents, filteredEvents []*epcis.Event, opts Options) *Document {
	merged := Merge(objectEvents, aggregationEvents, filteredEvents, opts.Order)
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = datetime.New()
	}
	for i, ev := range merged {
		if opts.ConvertDates {
			normalizer.NormalizeEvent(ev, opts.IncrementDates, i)
		}
		if ev.IsObject() && ev.GTIN14 == "" {
			ev.GTIN14 = firstGTIN14(ev)
		}
	}
	return &Document{Header: opts.Header, Events: merged, Extra: opts.Extra}
}

// firstGTIN14 derives the GTIN-14 from the first SGTIN in the event's
// identifier list, if any.
func firstGTIN14(ev *epcis.Event) string {
	for _, epc := range ev.EPCs {
		if gs1.IsSGTIN(epc) {
			return gs1.GTIN14(epc)
		}
	}
	return ""
}
