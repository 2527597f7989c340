// =============================================================================
// TraceLink EPCIS Steps - Event Model
// =============================================================================
//
// Typed EPCIS event records as they flow through a rule execution. Events are
// created by the parsing step, mutated in place by the attribute resolver and
// the date normalizer, and read-only from the document composer onward.
//
// The vendor-specific enrichment values (lot, expiry, packaging UOM, NDC and
// so on) are explicit optional fields rather than a free-form attribute bag;
// an empty string means "not resolved".
//
// =============================================================================

package epcis

// EventType discriminates the two event shapes this integration handles.
type EventType string

const (
	ObjectEventType      EventType = "ObjectEvent"
	AggregationEventType EventType = "AggregationEvent"
)

// Action values from the EPCIS 1.2 core.
const (
	ActionAdd     = "ADD"
	ActionObserve = "OBSERVE"
	ActionDelete  = "DELETE"
)

// Source is a source party or location entry from an event's extension.
type Source struct {
	Type   string
	Source string
}

// Destination is a destination party or location entry.
type Destination struct {
	Type        string
	Destination string
}

// BusinessTransaction is a (type URI, value) pair attached to an event.
type BusinessTransaction struct {
	Type  string
	Value string
}

// ILMD is a single instance/lot master-data attribute, such as a lot number
// or an expiration date.
type ILMD struct {
	Name  string
	Value string
}

// QuantityElement describes a class-level quantity observation.
type QuantityElement struct {
	EPCClass string
	Quantity float64
	UOM      string
}

// Event is a parsed object or aggregation event plus the enrichment fields
// the output templates render. All enrichment fields default to absent.
type Event struct {
	Type EventType

	EventTime           string
	EventTimezoneOffset string
	RecordTime          string

	Action      string
	BizStep     string
	Disposition string
	ReadPoint   string
	BizLocation string

	// EPCs carries the epcList of an object event or the childEPCs of an
	// aggregation event. ParentID is set for aggregation events only.
	EPCs     []string
	ParentID string

	Sources              []Source
	Destinations         []Destination
	BusinessTransactions []BusinessTransaction
	ILMD                 []ILMD
	Quantities           []QuantityElement

	// Template names the rendering template the output step should use for
	// this event. Steps may override it per configuration.
	Template string

	// Enrichment fields attached by the attribute resolver.
	Lot           string
	Expiry        string
	PackagingUOM  string
	NDC           string
	NDCPattern    string
	GTIN14        string
	CompanyPrefix string
	PackagingLine string
	IsGTIN        bool
}

// IsObject reports whether the event is an object event.
func (e *Event) IsObject() bool { return e.Type == ObjectEventType }
