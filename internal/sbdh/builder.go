package sbdh

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-tracelink/internal/datetime"
	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/gs1"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
)

// Defaults for the document identification block.
const (
	headerVersion     = "1.0"
	docStandard       = "EPCGlobal"
	docType           = "Events"
	docTypeVersion    = "1.0"
	glnAuthority      = "GLN"
	owningPartyMarker = "owning_party"
)

// Identity names one side of the envelope. An explicit GLN wins over an
// SGLN; an SGLN is resolved through the company lookup and, failing that,
// synthesized via the check-digit algorithm.
type Identity struct {
	GLN  string
	SGLN string
}

// Builder constructs envelope headers from resolved party identities.
type Builder struct {
	companies  masterdata.Repository
	normalizer *datetime.Normalizer
	logger     *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewBuilder returns a Builder backed by the given master data.
func NewBuilder(companies masterdata.Repository, normalizer *datetime.Normalizer, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = datetime.New()
	}
	return &Builder{
		companies:  companies,
		normalizer: normalizer,
		logger:     logger,
		now:        time.Now,
	}
}

// Build resolves both identities and assembles a header. When either side
// cannot be resolved the header is omitted (nil) rather than failing the
// execution.
func (b *Builder) Build(sender, receiver Identity) *Header {
	senderGLN := b.resolve(sender)
	receiverGLN := b.resolve(receiver)
	if senderGLN == "" || receiverGLN == "" {
		b.logger.Debug("omitting header; party resolution incomplete",
			zap.String("sender_gln", senderGLN),
			zap.String("receiver_gln", receiverGLN))
		return nil
	}
	return &Header{
		Version: headerVersion,
		Sender: Partner{
			Type:           SenderPartner,
			Identification: PartnerIdentification{Authority: glnAuthority, Value: senderGLN},
		},
		Receiver: Partner{
			Type:           ReceiverPartner,
			Identification: PartnerIdentification{Authority: glnAuthority, Value: receiverGLN},
		},
		DocumentIdentification: DocumentIdentification{
			Standard:            docStandard,
			TypeVersion:         docTypeVersion,
			InstanceIdentifier:  uuid.New().String(),
			Type:                docType,
			CreationDateAndTime: b.normalizer.Normalize(b.now().UTC().Format(time.RFC3339), false, 0),
		},
	}
}

func (b *Builder) resolve(id Identity) string {
	if id.GLN != "" {
		return id.GLN
	}
	if id.SGLN != "" {
		return b.GLNForSGLN(id.SGLN)
	}
	return ""
}

// GLNForSGLN resolves an SGLN to a GLN-13: a company record keyed by the
// SGLN wins; otherwise the GLN is synthesized from the URN's prefix and
// reference. Returns "" when neither path produces a value.
func (b *Builder) GLNForSGLN(sgln string) string {
	if b.companies != nil {
		company, err := b.companies.CompanyBySGLN(sgln)
		if err != nil {
			b.logger.Warn("company lookup failed", zap.String("sgln", sgln), zap.Error(err))
		} else if company != nil && company.GLN13 != "" {
			return company.GLN13
		}
	}
	parsed, err := gs1.ParseSGLN(sgln)
	if err != nil {
		return ""
	}
	gln, err := gs1.GLNFromSGLN(parsed.CompanyPrefix, parsed.LocationReference)
	if err != nil {
		return ""
	}
	return gln
}

// FindOwningParties scans filtered events in original order and returns the
// owning-party sender/receiver SGLNs from the first event carrying both a
// source and a destination list. Scanning stops at that event.
func FindOwningParties(events []*epcis.Event) (senderSGLN, receiverSGLN string, found bool) {
	for _, ev := range events {
		if len(ev.Sources) == 0 || len(ev.Destinations) == 0 {
			continue
		}
		for _, source := range ev.Sources {
			if strings.Contains(source.Type, owningPartyMarker) {
				senderSGLN = source.Source
			}
		}
		for _, destination := range ev.Destinations {
			if strings.Contains(destination.Type, owningPartyMarker) {
				receiverSGLN = destination.Destination
			}
		}
		return senderSGLN, receiverSGLN, true
	}
	return "", "", false
}
