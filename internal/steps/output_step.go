// =============================================================================
// TraceLink EPCIS Steps - Output Step
// =============================================================================
//
// The rendering step of a TraceLink output rule. One policy-driven step
// covers the historical variants: attribute enrichment on or off, three
// envelope header sources (owning-party SGLNs, explicit context GLNs, or a
// configured trading-partner mapping), the business-transaction rewrite,
// date conversion, the default-disposition fill, and a filtered-only
// composition mode.
//
// The step reads the event sets the parsing step left in the context,
// finishes them, and writes the rendered document back under the
// outbound-message key.
//
// =============================================================================

package steps

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-tracelink/internal/document"
	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
	"github.com/ginjaninja78/epcis-tracelink/internal/resolver"
	"github.com/ginjaninja78/epcis-tracelink/internal/rules"

	dt "github.com/ginjaninja78/epcis-tracelink/internal/datetime"
	"github.com/ginjaninja78/epcis-tracelink/internal/sbdh"
)

// Parameter names understood by the output step.
const (
	paramAppendFiltered        = "Append Filtered Events"
	paramPrependFiltered       = "Prepend Filtered Events"
	paramFilteredOnly          = "Filtered Events Only"
	paramConvertDates          = "Convert Dates"
	paramIncrementDates        = "Increment Dates"
	paramParseUTCDates         = "Parse UTC Dates"
	paramJSON                  = "JSON"
	paramResolveAttributes     = "Resolve Common Attributes"
	paramCompanyCheckMandatory = "Company Check Mandatory"
	paramSenderGLN             = "Sender GLN"
	paramDefaultDisposition    = "Default Disposition"
	paramHeaderSource          = "Header Source"
	paramIncludeMasterData     = "Include Partner Master Data"

	paramTransformTransaction = "Transform Business Transaction"
	paramTransactionSource    = "Transaction Source Type"
	paramTransactionDest      = "Transaction Destination Type"
	paramTransactionPrefix    = "Transaction Value Prefix"
	paramTransactionStrip     = "Transaction Value Strip"
)

// Header source selectors for the envelope.
const (
	HeaderSourceSGLN    = "sgln"
	HeaderSourceContext = "context"
	HeaderSourceMapping = "mapping"
)

// OutputStep renders the outbound TraceLink EPCIS document.
type OutputStep struct {
	repo   masterdata.Repository
	logger *zap.Logger

	order              document.Order
	filteredOnly       bool
	convertDates       bool
	incrementDates     bool
	renderJSON         bool
	resolveAttributes  bool
	companyMandatory   bool
	includeMasterData  bool
	senderGLN          string
	defaultDisposition string
	headerSource       string
	transform          document.TransactionTransform
	normalizer         *dt.Normalizer
}

// NewOutputStep builds the step from its configured parameters. The header
// source defaults to the owning-party SGLN scan. A Sender GLN parameter is
// mandatory when attribute resolution is enabled.
func NewOutputStep(params rules.Params, repo masterdata.Repository, logger *zap.Logger) (*OutputStep, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	headerSource := params.Get(paramHeaderSource, HeaderSourceSGLN)
	switch headerSource {
	case HeaderSourceSGLN, HeaderSourceContext, HeaderSourceMapping:
	default:
		return nil, fmt.Errorf("unknown %s %q", paramHeaderSource, headerSource)
	}
	resolveAttributes := params.GetBool(paramResolveAttributes, false)
	senderGLN := params.Get(paramSenderGLN, "")
	if resolveAttributes {
		var err error
		if senderGLN, err = params.GetRequired(paramSenderGLN); err != nil {
			return nil, err
		}
	}
	return &OutputStep{
		repo:   repo,
		logger: logger,
		order: document.Order{
			AppendFiltered:  params.GetBool(paramAppendFiltered, true),
			PrependFiltered: params.GetBool(paramPrependFiltered, false),
		},
		filteredOnly:       params.GetBool(paramFilteredOnly, false),
		convertDates:       params.GetBool(paramConvertDates, true),
		incrementDates:     params.GetBool(paramIncrementDates, false),
		renderJSON:         params.GetBool(paramJSON, false),
		resolveAttributes:  resolveAttributes,
		companyMandatory:   params.GetBool(paramCompanyCheckMandatory, false),
		includeMasterData:  params.GetBool(paramIncludeMasterData, false),
		senderGLN:          senderGLN,
		defaultDisposition: params.Get(paramDefaultDisposition, document.DispositionInTransit),
		headerSource:       headerSource,
		transform: document.TransactionTransform{
			Enabled:         params.GetBool(paramTransformTransaction, false),
			SourceType:      params.Get(paramTransactionSource, ""),
			DestinationType: params.Get(paramTransactionDest, ""),
			Prefix:          params.Get(paramTransactionPrefix, ""),
			Strip:           params.Get(paramTransactionStrip, ""),
		},
		normalizer: &dt.Normalizer{ParseUTC: params.GetBool(paramParseUTCDates, true)},
	}, nil
}

// Execute finishes the parsed events and stores the rendered document in the
// context.
func (s *OutputStep) Execute(data []byte, rc *rules.Context) error {
	objectEvents := rc.Events(rules.ObjectEventsKey)
	aggregationEvents := rc.Events(rules.AggregationEventsKey)
	filteredEvents := rc.Events(rules.FilteredEventsKey)

	for _, ev := range filteredEvents {
		document.FillDisposition(ev, s.defaultDisposition)
		s.transform.Apply(ev)
	}

	order := s.order
	if s.filteredOnly {
		objectEvents, aggregationEvents = nil, nil
		order.AppendFiltered = true
	}
	merged := document.Merge(objectEvents, aggregationEvents, filteredEvents, order)

	receiverFromMasterData := ""
	if s.resolveAttributes {
		res := resolver.New(s.repo, resolver.Policy{CompanyCheckMandatory: s.companyMandatory}, s.logger)
		for _, ev := range merged {
			if err := res.Enrich(ev); err != nil {
				return err
			}
		}
		receiverFromMasterData = res.ReceiverGLN()
	}

	extra := document.Extra{}
	header, err := s.buildHeader(rc, merged, filteredEvents, receiverFromMasterData, &extra)
	if err != nil {
		return err
	}

	if s.includeMasterData && len(filteredEvents) > 0 {
		locations, err := s.partnerLocations(filteredEvents[0])
		if err != nil {
			return err
		}
		extra.Masterdata = locations
	}
	if len(filteredEvents) > 0 {
		extra.TransactionDate = s.normalizer.NormalizeWithOffset(
			filteredEvents[0].EventTime, filteredEvents[0].EventTimezoneOffset, false, 0)
	}

	doc := document.Compose(objectEvents, aggregationEvents, filteredEvents, document.Options{
		Order:          order,
		ConvertDates:   s.convertDates,
		IncrementDates: s.incrementDates,
		Normalizer:     s.normalizer,
		Header:         header,
		Extra:          extra,
	})

	var rendered string
	if s.renderJSON {
		rendered, err = doc.RenderJSON()
		if err != nil {
			return fmt.Errorf("failed to render JSON document: %w", err)
		}
	} else {
		rendered = doc.RenderXML()
	}
	rc.Keys[rules.OutboundMessageKey] = rendered

	s.logger.Info("rendered outbound message",
		zap.Int("events", len(doc.Events)),
		zap.Bool("header", header != nil),
		zap.Bool("json", s.renderJSON))
	return nil
}

// buildHeader resolves both envelope identities per the configured header
// source and the override chain: an explicit sender parameter wins over a
// context sender, and a receiver GLN declared inside the message wins over
// everything resolved from master data.
func (s *OutputStep) buildHeader(rc *rules.Context, merged, filteredEvents []*epcis.Event, receiverFromMasterData string, extra *document.Extra) (*sbdh.Header, error) {
	var sender, receiver sbdh.Identity

	switch s.headerSource {
	case HeaderSourceContext:
		sender.GLN = rc.String(rules.SenderGLNKey)
		receiver.GLN = rc.String(rules.ReceiverGLNKey)
	case HeaderSourceMapping:
		mapping, err := findOutboundMapping(s.repo, merged)
		if err != nil {
			return nil, err
		}
		extra.OutboundMapping = mapping
		sender = sbdh.Identity{GLN: mapping.ShipFrom.GLN13, SGLN: mapping.ShipFrom.SGLN}
		receiver = sbdh.Identity{GLN: mapping.ShipTo.GLN13, SGLN: mapping.ShipTo.SGLN}
	default:
		if senderSGLN, receiverSGLN, found := sbdh.FindOwningParties(filteredEvents); found {
			sender.SGLN = senderSGLN
			receiver.SGLN = receiverSGLN
		}
	}

	if s.senderGLN != "" {
		sender = sbdh.Identity{GLN: s.senderGLN}
	}
	if receiver.GLN == "" && receiver.SGLN == "" && receiverFromMasterData != "" {
		receiver = sbdh.Identity{GLN: receiverFromMasterData}
	}
	if declared := rc.String(rules.DeclaredReceiverGLNKey); declared != "" {
		receiver = sbdh.Identity{GLN: declared}
	}

	builder := sbdh.NewBuilder(s.repo, s.normalizer, s.logger)
	header := builder.Build(sender, receiver)
	if header != nil {
		rc.Keys[rules.SenderGLNKey] = header.Sender.Identification.Value
		rc.Keys[rules.ReceiverGLNKey] = header.Receiver.Identification.Value
		extra.SenderGLN = header.Sender.Identification.Value
		extra.ReceiverGLN = header.Receiver.Identification.Value
	}
	return header, nil
}

// partnerLocations resolves the location records for every source and
// destination SGLN on the event.
func (s *OutputStep) partnerLocations(ev *epcis.Event) ([]*masterdata.Location, error) {
	sglns := make([]string, 0, len(ev.Sources)+len(ev.Destinations))
	for _, source := range ev.Sources {
		sglns = append(sglns, source.Source)
	}
	for _, destination := range ev.Destinations {
		sglns = append(sglns, destination.Destination)
	}
	locations, err := s.repo.LocationsBySGLN(sglns)
	if err != nil {
		return nil, fmt.Errorf("partner location lookup failed: %w", err)
	}
	return locations, nil
}
