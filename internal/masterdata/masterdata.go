// =============================================================================
// TraceLink EPCIS Steps - Master Data
// =============================================================================
//
// Read-only master-data lookups the enrichment pipeline depends on: trade
// items keyed by GTIN-bearing URN, companies keyed by prefix or SGLN,
// location records, trading-partner outbound mappings, and containment
// parents for SSCC packaging-level inference.
//
// The storage layer behind the Repository interface is an external concern;
// the implementations in this package (XLSX workbook, in-memory) exist so the
// CLI and the tests have something concrete to run against.
//
// =============================================================================

package masterdata

// TradeItem holds the packaging attributes looked up for a GTIN.
type TradeItem struct {
	URN        string
	GTIN14     string
	PackageUOM string
	NDC        string
	NDCPattern string
}

// Company is a trading-party master-data record.
type Company struct {
	Name             string
	GS1CompanyPrefix string
	GLN13            string
	SGLN             string
	Address1         string
	Address2         string
	City             string
	StateProvince    string
	PostalCode       string
	CountryCode      string
}

// Location is an EPCIS location vocabulary record keyed by SGLN.
type Location struct {
	Name          string
	SGLN          string
	GLN13         string
	Address1      string
	Address2      string
	City          string
	StateProvince string
	PostalCode    string
	CountryCode   string
}

// Party is one side of an outbound mapping: a company plus the location it
// ships from or to.
type Party struct {
	Name          string
	GLN13         string
	SGLN          string
	Address1      string
	Address2      string
	City          string
	StateProvince string
	PostalCode    string
	CountryCode   string
}

// OutboundMapping ties a source company to a fixed ship-from/ship-to party
// pair. When present it supersedes ad-hoc SGLN resolution for the envelope.
type OutboundMapping struct {
	CompanyPrefix string
	ShipFrom      Party
	ShipTo        Party
}

// Repository is the key-lookup capability consumed by the steps. Lookups
// return (nil, nil) or ("", nil) when no record exists; errors are reserved
// for storage faults.
type Repository interface {
	// TradeItemByURN resolves a trade item for a GTIN-bearing URN. The
	// serial segment of the URN is ignored by implementations.
	TradeItemByURN(urn string) (*TradeItem, error)

	// CompanyByPrefix resolves a company by GS1 company prefix.
	CompanyByPrefix(prefix string) (*Company, error)

	// CompanyBySGLN resolves a company by its SGLN.
	CompanyBySGLN(sgln string) (*Company, error)

	// LocationsBySGLN returns the location records for the given SGLNs,
	// skipping identifiers with no record.
	LocationsBySGLN(sglns []string) ([]*Location, error)

	// OutboundMappingByPrefix resolves a trading-partner mapping by the
	// source company's prefix.
	OutboundMappingByPrefix(prefix string) (*OutboundMapping, error)

	// ParentOf returns the containment parent of an identifier, or "" when
	// the identifier is not contained in anything.
	ParentOf(identifier string) (string, error)
}
