package masterdata

import "strings"

// MemoryRepository is a map-backed Repository used by tests and fixtures.
type MemoryRepository struct {
	tradeItems map[string]*TradeItem
	byPrefix   map[string]*Company
	bySGLN     map[string]*Company
	locations  map[string]*Location
	mappings   map[string]*OutboundMapping
	parents    map[string]string
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tradeItems: make(map[string]*TradeItem),
		byPrefix:   make(map[string]*Company),
		bySGLN:     make(map[string]*Company),
		locations:  make(map[string]*Location),
		mappings:   make(map[string]*OutboundMapping),
		parents:    make(map[string]string),
	}
}

// classURN strips the serial segment and normalizes the idpat scheme so a
// pattern record and a serialized lookup share one key.
func classURN(urn string) string {
	urn = strings.Replace(urn, ":idpat:", ":id:", 1)
	if i := strings.LastIndex(urn, "."); i > 0 {
		return urn[:i]
	}
	return urn
}

// AddTradeItem registers a trade item under its class-level URN.
func (r *MemoryRepository) AddTradeItem(item *TradeItem) {
	r.tradeItems[classURN(item.URN)] = item
}

// AddCompany registers a company under its prefix and SGLN.
func (r *MemoryRepository) AddCompany(company *Company) {
	if company.GS1CompanyPrefix != "" {
		r.byPrefix[company.GS1CompanyPrefix] = company
	}
	if company.SGLN != "" {
		r.bySGLN[company.SGLN] = company
	}
}

// AddLocation registers a location under its SGLN.
func (r *MemoryRepository) AddLocation(location *Location) {
	r.locations[location.SGLN] = location
}

// AddOutboundMapping registers a trading-partner mapping.
func (r *MemoryRepository) AddOutboundMapping(mapping *OutboundMapping) {
	r.mappings[mapping.CompanyPrefix] = mapping
}

// SetParent records a containment relationship.
func (r *MemoryRepository) SetParent(child, parent string) {
	r.parents[child] = parent
}

func (r *MemoryRepository) TradeItemByURN(urn string) (*TradeItem, error) {
	return r.tradeItems[classURN(urn)], nil
}

func (r *MemoryRepository) CompanyByPrefix(prefix string) (*Company, error) {
	return r.byPrefix[prefix], nil
}

func (r *MemoryRepository) CompanyBySGLN(sgln string) (*Company, error) {
	return r.bySGLN[sgln], nil
}

func (r *MemoryRepository) LocationsBySGLN(sglns []string) ([]*Location, error) {
	var found []*Location
	for _, sgln := range sglns {
		if loc, ok := r.locations[sgln]; ok {
			found = append(found, loc)
		}
	}
	return found, nil
}

func (r *MemoryRepository) OutboundMappingByPrefix(prefix string) (*OutboundMapping, error) {
	return r.mappings[prefix], nil
}

func (r *MemoryRepository) ParentOf(identifier string) (string, error) {
	return r.parents[identifier], nil
}
