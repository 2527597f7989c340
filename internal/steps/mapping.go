package steps

import (
	"fmt"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/gs1"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
)

// CompanyConfigurationError signals that the outbound-mapping header source
// is selected but the mapping for the batch's company prefix is missing or
// underivable.
type CompanyConfigurationError struct {
	Prefix string
	Reason string
}

func (e *CompanyConfigurationError) Error() string {
	if e.Prefix == "" {
		return fmt.Sprintf("outbound mapping unavailable: %s", e.Reason)
	}
	return fmt.Sprintf("outbound mapping unavailable for company prefix %s: %s", e.Prefix, e.Reason)
}

// findOutboundMapping derives the batch's company prefix from the first
// identifier of the first event carrying one, then resolves the configured
// trading-partner mapping for it.
func findOutboundMapping(repo masterdata.Repository, events []*epcis.Event) (*masterdata.OutboundMapping, error) {
	var prefix string
	for _, ev := range events {
		if len(ev.EPCs) == 0 {
			continue
		}
		p, err := gs1.CompanyPrefix(ev.EPCs[0])
		if err != nil {
			continue
		}
		prefix = p
		break
	}
	if prefix == "" {
		return nil, &CompanyConfigurationError{Reason: "no event identifier yields a company prefix"}
	}

	mapping, err := repo.OutboundMappingByPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("outbound mapping lookup failed for prefix %s: %w", prefix, err)
	}
	if mapping == nil {
		return nil, &CompanyConfigurationError{Prefix: prefix, Reason: "no mapping configured"}
	}
	return mapping, nil
}
