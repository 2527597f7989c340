// =============================================================================
// TraceLink EPCIS Steps - Inbound EPCIS Parser
// =============================================================================
//
// Parses an inbound EPCIS 1.2 XML document into typed event records and
// splits them against the configured output criteria: events matching the
// criteria become the "filtered" set the envelope builder scans, everything
// else lands in the object/aggregation sets.
//
// TraceLink messages carry a vendor extension element (transferredToId)
// naming the receiving party's GLN; the parser captures it via the
// unexpected-element hook so the output step can reuse it.
//
// =============================================================================

package parser

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
)

// Criteria selects which parsed events are routed to the filtered set. Empty
// fields match everything.
type Criteria struct {
	EventType   epcis.EventType
	Action      string
	BizStep     string
	Disposition string
	BizLocation string
	ReadPoint   string
}

// Hooks are the override points exposed to steps. Nil funcs are skipped.
type Hooks struct {
	// OnObjectEvent runs after an object event is assembled, before routing.
	OnObjectEvent func(ev *epcis.Event)

	// OnUnexpectedElement runs for each element the event grammar does not
	// recognize, with the element's local name and trimmed text.
	OnUnexpectedElement func(ev *epcis.Event, name, text string)
}

// Result is the outcome of parsing one inbound document.
type Result struct {
	ObjectEvents      []*epcis.Event
	AggregationEvents []*epcis.Event
	FilteredEvents    []*epcis.Event

	// ReceiverGLN is the GLN declared by a transferredToId element, if any.
	ReceiverGLN string
}

// Parser walks an EPCIS document and produces typed events.
type Parser struct {
	criteria        Criteria
	hooks           Hooks
	defaultTemplate string
	logger          *zap.Logger
}

// New returns a parser routing events against the given criteria.
func New(criteria Criteria, hooks Hooks, defaultTemplate string, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{criteria: criteria, hooks: hooks, defaultTemplate: defaultTemplate, logger: logger}
}

// Parse decodes the document and routes its events.
func (p *Parser) Parse(data []byte) (*Result, error) {
	var doc xmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse EPCIS document: %w", err)
	}

	result := &Result{}
	for _, raw := range doc.Body.EventList.ObjectEvents {
		ev := p.buildObjectEvent(raw, result)
		if p.hooks.OnObjectEvent != nil {
			p.hooks.OnObjectEvent(ev)
		}
		if p.matches(ev) {
			result.FilteredEvents = append(result.FilteredEvents, ev)
		} else {
			result.ObjectEvents = append(result.ObjectEvents, ev)
		}
	}
	for _, raw := range doc.Body.EventList.AggregationEvents {
		ev := p.buildAggregationEvent(raw)
		if p.matches(ev) {
			result.FilteredEvents = append(result.FilteredEvents, ev)
		} else {
			result.AggregationEvents = append(result.AggregationEvents, ev)
		}
	}

	p.logger.Debug("parsed inbound document",
		zap.Int("object_events", len(result.ObjectEvents)),
		zap.Int("aggregation_events", len(result.AggregationEvents)),
		zap.Int("filtered_events", len(result.FilteredEvents)))
	return result, nil
}

func (p *Parser) matches(ev *epcis.Event) bool {
	c := p.criteria
	if c == (Criteria{}) {
		return false
	}
	if c.EventType != "" && ev.Type != c.EventType {
		return false
	}
	if c.Action != "" && ev.Action != c.Action {
		return false
	}
	if c.BizStep != "" && ev.BizStep != c.BizStep {
		return false
	}
	if c.Disposition != "" && ev.Disposition != c.Disposition {
		return false
	}
	if c.BizLocation != "" && ev.BizLocation != c.BizLocation {
		return false
	}
	if c.ReadPoint != "" && ev.ReadPoint != c.ReadPoint {
		return false
	}
	return true
}

func (p *Parser) buildObjectEvent(raw xmlObjectEvent, result *Result) *epcis.Event {
	ev := &epcis.Event{
		Type:                 epcis.ObjectEventType,
		EventTime:            raw.EventTime,
		EventTimezoneOffset:  raw.EventTimeZoneOffset,
		RecordTime:           raw.RecordTime,
		Action:               raw.Action,
		BizStep:              raw.BizStep,
		Disposition:          raw.Disposition,
		ReadPoint:            raw.ReadPoint.ID,
		BizLocation:          raw.BizLocation.ID,
		EPCs:                 convertEPCs(raw.EPCList.EPCs),
		Template:             p.defaultTemplate,
		BusinessTransactions: convertBizTransactions(raw.BizTransactionList),
		Sources:              convertSources(raw.Extension.Sources),
		Destinations:         convertDestinations(raw.Extension.Destinations),
		ILMD:                 convertILMD(raw.Extension.ILMD),
		Quantities:           convertQuantities(raw.Extension.Quantities),
	}
	for _, extra := range raw.Extra {
		name := extra.XMLName.Local
		text := strings.TrimSpace(extra.Content)
		if strings.Contains(name, "transferredToId") {
			p.logger.Debug("found a receiver GLN in the message", zap.String("gln", text))
			result.ReceiverGLN = text
		}
		if p.hooks.OnUnexpectedElement != nil {
			p.hooks.OnUnexpectedElement(ev, name, text)
		}
	}
	return ev
}

func (p *Parser) buildAggregationEvent(raw xmlAggregationEvent) *epcis.Event {
	return &epcis.Event{
		Type:                 epcis.AggregationEventType,
		EventTime:            raw.EventTime,
		EventTimezoneOffset:  raw.EventTimeZoneOffset,
		RecordTime:           raw.RecordTime,
		Action:               raw.Action,
		BizStep:              raw.BizStep,
		Disposition:          raw.Disposition,
		ReadPoint:            raw.ReadPoint.ID,
		BizLocation:          raw.BizLocation.ID,
		ParentID:             strings.TrimSpace(raw.ParentID),
		EPCs:                 convertEPCs(raw.ChildEPCs.EPCs),
		BusinessTransactions: convertBizTransactions(raw.BizTransactionList),
		Sources:              convertSources(raw.Extension.Sources),
		Destinations:         convertDestinations(raw.Extension.Destinations),
	}
}

// =============================================================================
// WIRE STRUCTURES
// =============================================================================

type xmlDocument struct {
	XMLName xml.Name `xml:"EPCISDocument"`
	Body    struct {
		EventList struct {
			ObjectEvents      []xmlObjectEvent      `xml:"ObjectEvent"`
			AggregationEvents []xmlAggregationEvent `xml:"AggregationEvent"`
		} `xml:"EventList"`
	} `xml:"EPCISBody"`
}

type xmlIDRef struct {
	ID string `xml:"id"`
}

type xmlEPCList struct {
	EPCs []string `xml:"epc"`
}

type xmlBizTransaction struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type xmlSource struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type xmlQuantity struct {
	EPCClass string `xml:"epcClass"`
	Quantity string `xml:"quantity"`
	UOM      string `xml:"uom"`
}

type xmlAnyElement struct {
	XMLName xml.Name
	Content string `xml:",chardata"`
}

type xmlILMD struct {
	Entries []xmlAnyElement `xml:",any"`
}

type xmlExtension struct {
	Sources      []xmlSource   `xml:"sourceList>source"`
	Destinations []xmlSource   `xml:"destinationList>destination"`
	ILMD         xmlILMD       `xml:"ilmd"`
	Quantities   []xmlQuantity `xml:"quantityList>quantityElement"`
}

type xmlObjectEvent struct {
	EventTime           string              `xml:"eventTime"`
	RecordTime          string              `xml:"recordTime"`
	EventTimeZoneOffset string              `xml:"eventTimeZoneOffset"`
	EPCList             xmlEPCList          `xml:"epcList"`
	Action              string              `xml:"action"`
	BizStep             string              `xml:"bizStep"`
	Disposition         string              `xml:"disposition"`
	ReadPoint           xmlIDRef            `xml:"readPoint"`
	BizLocation         xmlIDRef            `xml:"bizLocation"`
	BizTransactionList  []xmlBizTransaction `xml:"bizTransactionList>bizTransaction"`
	Extension           xmlExtension        `xml:"extension"`
	Extra               []xmlAnyElement     `xml:",any"`
}

type xmlAggregationEvent struct {
	EventTime           string              `xml:"eventTime"`
	RecordTime          string              `xml:"recordTime"`
	EventTimeZoneOffset string              `xml:"eventTimeZoneOffset"`
	ParentID            string              `xml:"parentID"`
	ChildEPCs           xmlEPCList          `xml:"childEPCs"`
	Action              string              `xml:"action"`
	BizStep             string              `xml:"bizStep"`
	Disposition         string              `xml:"disposition"`
	ReadPoint           xmlIDRef            `xml:"readPoint"`
	BizLocation         xmlIDRef            `xml:"bizLocation"`
	BizTransactionList  []xmlBizTransaction `xml:"bizTransactionList>bizTransaction"`
	Extension           xmlExtension        `xml:"extension"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func convertEPCs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, epc := range raw {
		out = append(out, strings.TrimSpace(epc))
	}
	return out
}

func convertBizTransactions(raw []xmlBizTransaction) []epcis.BusinessTransaction {
	out := make([]epcis.BusinessTransaction, 0, len(raw))
	for _, bt := range raw {
		out = append(out, epcis.BusinessTransaction{
			Type:  bt.Type,
			Value: strings.TrimSpace(bt.Value),
		})
	}
	return out
}

func convertSources(raw []xmlSource) []epcis.Source {
	out := make([]epcis.Source, 0, len(raw))
	for _, s := range raw {
		out = append(out, epcis.Source{Type: s.Type, Source: strings.TrimSpace(s.Value)})
	}
	return out
}

func convertDestinations(raw []xmlSource) []epcis.Destination {
	out := make([]epcis.Destination, 0, len(raw))
	for _, d := range raw {
		out = append(out, epcis.Destination{Type: d.Type, Destination: strings.TrimSpace(d.Value)})
	}
	return out
}

func convertILMD(raw xmlILMD) []epcis.ILMD {
	out := make([]epcis.ILMD, 0, len(raw.Entries))
	for _, entry := range raw.Entries {
		out = append(out, epcis.ILMD{
			Name:  entry.XMLName.Local,
			Value: strings.TrimSpace(entry.Content),
		})
	}
	return out
}

func convertQuantities(raw []xmlQuantity) []epcis.QuantityElement {
	out := make([]epcis.QuantityElement, 0, len(raw))
	for _, q := range raw {
		quantity, err := strconv.ParseFloat(strings.TrimSpace(q.Quantity), 64)
		if err != nil {
			continue
		}
		out = append(out, epcis.QuantityElement{
			EPCClass: q.EPCClass,
			Quantity: quantity,
			UOM:      q.UOM,
		})
	}
	return out
}
