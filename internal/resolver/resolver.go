// =============================================================================
// TraceLink EPCIS Steps - Attribute Resolver
// =============================================================================
//
// Per-event enrichment for the common-attributes document variant. For each
// event in a batch the resolver attaches lot/expiry, the packaging line name,
// trade-item packaging attributes (UOM, NDC, NDC pattern), SSCC packaging
// levels, and performs a one-shot receiver-company check.
//
// A resolver instance lives for exactly one rule execution. The lot/expiry,
// packaging line, NDC pattern and trade-item caches are batch-scoped: once a
// value resolves it is reused for every subsequent event in the same batch,
// and discarded with the resolver.
//
// =============================================================================

package resolver

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/gs1"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
)

// TradeItemNotFoundError signals a master-data gap: a GTIN-bearing identifier
// has no matching trade item.
type TradeItemNotFoundError struct {
	URN string
}

func (e *TradeItemNotFoundError) Error() string {
	return fmt.Sprintf("could not find a corresponding trade item for URN %s", e.URN)
}

// UOMNotFoundError signals a configuration gap: a trade item's packaging UOM
// code has no mapping-table entry.
type UOMNotFoundError struct {
	UOM string
}

func (e *UOMNotFoundError) Error() string {
	return fmt.Sprintf("could not find a UOM mapping for %s", e.UOM)
}

// CompanyNotFoundError signals that mandatory receiver-company resolution
// failed for a company prefix.
type CompanyNotFoundError struct {
	Prefix string
}

func (e *CompanyNotFoundError) Error() string {
	return fmt.Sprintf("could not find a company for prefix %s", e.Prefix)
}

// Packaging UOM codes for SSCC containment levels.
const (
	uomPallet = "PL"
	uomCase   = "CA"
	uomPack   = "PK"
)

// uomChoices maps raw trade-item packaging codes to the partner's vocabulary.
var uomChoices = map[string]string{
	"Bdl": "PK",
	"Cs":  "CA",
	"Ea":  "EA",
	"Bx":  "EA",
	"EA":  "EA",
}

// Policy configures resolver behavior for the active step.
type Policy struct {
	// CompanyCheckMandatory raises CompanyNotFoundError when the receiver
	// company cannot be resolved; otherwise the failure is logged and
	// enrichment continues.
	CompanyCheckMandatory bool
}

// Resolver enriches events in place. Not safe for concurrent use; construct
// one per rule execution.
type Resolver struct {
	repo   masterdata.Repository
	policy Policy
	logger *zap.Logger

	lot           string
	expiry        string
	packagingLine string
	ndcPattern    string

	tradeItems    map[string]*masterdata.TradeItem
	lastTradeItem *masterdata.TradeItem

	checkedCompany bool
	receiverGLN    string
}

// New returns a resolver backed by the given master-data repository.
func New(repo masterdata.Repository, policy Policy, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		repo:       repo,
		policy:     policy,
		logger:     logger,
		tradeItems: make(map[string]*masterdata.TradeItem),
	}
}

// ReceiverGLN returns the GLN of the receiver company resolved during
// enrichment, or "" when no event triggered the check or it failed softly.
func (r *Resolver) ReceiverGLN() string { return r.receiverGLN }

// Enrich mutates ev in place. Missing optional data never fails; the
// declared error kinds propagate when a required lookup misses.
func (r *Resolver) Enrich(ev *epcis.Event) error {
	if err := r.checkReceiverCompany(ev); err != nil {
		return err
	}
	r.resolveLotExpiry(ev)
	ev.PackagingLine = r.resolvePackagingLine(ev)

	if len(ev.EPCs) == 0 {
		return nil
	}
	urn := ev.EPCs[0]
	if strings.Contains(urn, "gtin") {
		if err := r.enrichFromTradeItem(ev, urn); err != nil {
			return err
		}
	}
	if strings.Contains(urn, "sscc") {
		if err := r.enrichFromContainment(ev, urn); err != nil {
			return err
		}
	}
	return nil
}

// resolveLotExpiry scans the event's ILMD attributes for lot and expiration
// values. Each value is cached on its first batch hit; the scan keeps running
// on later events until both are resolved.
func (r *Resolver) resolveLotExpiry(ev *epcis.Event) {
	if r.lot == "" || r.expiry == "" {
		for _, ilmd := range ev.ILMD {
			if r.lot == "" && strings.Contains(ilmd.Name, "lot") {
				r.lot = ilmd.Value
				r.logger.Debug("using lot", zap.String("lot", r.lot))
			}
			if r.expiry == "" && strings.Contains(strings.ToLower(ilmd.Name), "expir") {
				r.expiry = ilmd.Value
				r.logger.Debug("using expiry", zap.String("expiry", r.expiry))
			}
		}
	}
	ev.Lot = r.lot
	ev.Expiry = r.expiry
}

// resolvePackagingLine derives the line name from the serial segment of the
// first event's read-point SGLN; cached for the batch.
func (r *Resolver) resolvePackagingLine(ev *epcis.Event) string {
	if r.packagingLine != "" {
		return r.packagingLine
	}
	urn := ev.ReadPoint
	i := strings.LastIndex(urn, ".")
	if i < 0 || i == len(urn)-1 {
		return ""
	}
	r.packagingLine = "Line" + urn[i+1:]
	return r.packagingLine
}

// tradeItem performs a cache-first trade-item lookup keyed by the
// class-level URN (serial stripped).
func (r *Resolver) tradeItem(urn string) (*masterdata.TradeItem, error) {
	key := urn
	if i := strings.LastIndex(urn, "."); i > 0 {
		key = urn[:i]
	}
	if item, ok := r.tradeItems[key]; ok {
		return item, nil
	}
	item, err := r.repo.TradeItemByURN(urn)
	if err != nil {
		return nil, fmt.Errorf("trade item lookup failed for %s: %w", urn, err)
	}
	if item != nil {
		r.tradeItems[key] = item
	}
	return item, nil
}

func (r *Resolver) enrichFromTradeItem(ev *epcis.Event, urn string) error {
	item, err := r.tradeItem(urn)
	if err != nil {
		return err
	}
	if item == nil {
		return &TradeItemNotFoundError{URN: urn}
	}
	ev.IsGTIN = true
	uom, ok := uomChoices[item.PackageUOM]
	if !ok {
		return &UOMNotFoundError{UOM: item.PackageUOM}
	}
	ev.PackagingUOM = uom
	ev.NDC = item.NDC
	ev.NDCPattern = r.ndcString(item.NDCPattern)
	r.lastTradeItem = item
	return nil
}

// enrichFromContainment derives the packaging level of an SSCC from its
// containment depth: no parent is a pallet, a parent without a further parent
// is a case, anything deeper is a pack.
func (r *Resolver) enrichFromContainment(ev *epcis.Event, urn string) error {
	prefix, err := gs1.CompanyPrefix(urn)
	if err != nil {
		return err
	}
	ev.CompanyPrefix = prefix

	parent, err := r.repo.ParentOf(urn)
	if err != nil {
		return fmt.Errorf("containment lookup failed for %s: %w", urn, err)
	}
	switch {
	case parent == "":
		ev.PackagingUOM = uomPallet
	default:
		grandparent, err := r.repo.ParentOf(parent)
		if err != nil {
			return fmt.Errorf("containment lookup failed for %s: %w", parent, err)
		}
		if grandparent == "" {
			ev.PackagingUOM = uomCase
		} else {
			ev.PackagingUOM = uomPack
		}
	}
	if r.lastTradeItem != nil {
		ev.NDCPattern = r.ndcPattern
		ev.NDC = r.lastTradeItem.NDC
	}
	ev.IsGTIN = parent != ""
	return nil
}

// ndcString normalizes the NDC dash pattern once per batch; the first trade
// item resolved fixes the pattern for every event that follows.
func (r *Resolver) ndcString(pattern string) string {
	if r.ndcPattern == "" {
		r.ndcPattern = "US_NDC" + strings.ReplaceAll(pattern, "-", "")
	}
	return r.ndcPattern
}

// checkReceiverCompany resolves the receiver company from the company prefix
// of the first event's primary identifier. Runs once per batch.
func (r *Resolver) checkReceiverCompany(ev *epcis.Event) error {
	if r.checkedCompany || len(ev.EPCs) == 0 {
		return nil
	}
	r.checkedCompany = true
	prefix, err := gs1.CompanyPrefix(ev.EPCs[0])
	if err != nil {
		return err
	}
	company, err := r.repo.CompanyByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("company lookup failed for prefix %s: %w", prefix, err)
	}
	if company == nil {
		if r.policy.CompanyCheckMandatory {
			return &CompanyNotFoundError{Prefix: prefix}
		}
		r.logger.Warn("no company found for prefix; continuing", zap.String("prefix", prefix))
		return nil
	}
	r.receiverGLN = company.GLN13
	return nil
}
