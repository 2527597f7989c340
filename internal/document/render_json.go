package document

import (
	"encoding/json"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
	"github.com/ginjaninja78/epcis-tracelink/internal/sbdh"
)

// jsonDocument is the wire shape of the JSON rendering. The same merged,
// annotated event sequence backs both renderers; only the field naming
// differs.
type jsonDocument struct {
	Header *sbdh.Header `json:"header,omitempty"`
	Events []jsonEvent  `json:"events"`
	Extra  *jsonExtra   `json:"masterData,omitempty"`
}

type jsonExtra struct {
	SenderGLN       string         `json:"senderGln,omitempty"`
	ReceiverGLN     string         `json:"receiverGln,omitempty"`
	TransactionDate string         `json:"transactionDate,omitempty"`
	Locations       []jsonLocation `json:"locations,omitempty"`
	ShipFrom        *jsonParty     `json:"shipFrom,omitempty"`
	ShipTo          *jsonParty     `json:"shipTo,omitempty"`
}

type jsonLocation struct {
	SGLN          string `json:"sgln"`
	Name          string `json:"name,omitempty"`
	Address1      string `json:"address1,omitempty"`
	Address2      string `json:"address2,omitempty"`
	City          string `json:"city,omitempty"`
	StateProvince string `json:"stateProvince,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	CountryCode   string `json:"countryCode,omitempty"`
}

type jsonParty struct {
	GLN13         string `json:"gln13,omitempty"`
	Name          string `json:"name,omitempty"`
	Address1      string `json:"address1,omitempty"`
	Address2      string `json:"address2,omitempty"`
	City          string `json:"city,omitempty"`
	StateProvince string `json:"stateProvince,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	CountryCode   string `json:"countryCode,omitempty"`
}

type jsonEvent struct {
	Type                 string                      `json:"type"`
	EventTime            string                      `json:"eventTime"`
	EventTimezoneOffset  string                      `json:"eventTimeZoneOffset,omitempty"`
	RecordTime           string                      `json:"recordTime,omitempty"`
	Action               string                      `json:"action,omitempty"`
	BizStep              string                      `json:"bizStep,omitempty"`
	Disposition          string                      `json:"disposition,omitempty"`
	ReadPoint            string                      `json:"readPoint,omitempty"`
	BizLocation          string                      `json:"bizLocation,omitempty"`
	EPCs                 []string                    `json:"epcList,omitempty"`
	ParentID             string                      `json:"parentId,omitempty"`
	Sources              []epcis.Source              `json:"sourceList,omitempty"`
	Destinations         []epcis.Destination         `json:"destinationList,omitempty"`
	BusinessTransactions []epcis.BusinessTransaction `json:"bizTransactionList,omitempty"`
	Lot                  string                      `json:"lotNumber,omitempty"`
	Expiry               string                      `json:"itemExpirationDate,omitempty"`
	PackagingUOM         string                      `json:"packagingUom,omitempty"`
	NDC                  string                      `json:"ndc,omitempty"`
	NDCPattern           string                      `json:"ndcPattern,omitempty"`
	GTIN14               string                      `json:"gtin14,omitempty"`
	CompanyPrefix        string                      `json:"companyPrefix,omitempty"`
	PackagingLine        string                      `json:"packagingLineName,omitempty"`
	IsGTIN               bool                        `json:"isGtin,omitempty"`
}

// RenderJSON serializes the document as indented JSON.
func (d *Document) RenderJSON() (string, error) {
	out := jsonDocument{Header: d.Header, Events: make([]jsonEvent, 0, len(d.Events))}
	for _, ev := range d.Events {
		out.Events = append(out.Events, jsonEvent{
			Type:                 string(ev.Type),
			EventTime:            ev.EventTime,
			EventTimezoneOffset:  ev.EventTimezoneOffset,
			RecordTime:           ev.RecordTime,
			Action:               ev.Action,
			BizStep:              ev.BizStep,
			Disposition:          ev.Disposition,
			ReadPoint:            ev.ReadPoint,
			BizLocation:          ev.BizLocation,
			EPCs:                 ev.EPCs,
			ParentID:             ev.ParentID,
			Sources:              ev.Sources,
			Destinations:         ev.Destinations,
			BusinessTransactions: ev.BusinessTransactions,
			Lot:                  ev.Lot,
			Expiry:               ev.Expiry,
			PackagingUOM:         ev.PackagingUOM,
			NDC:                  ev.NDC,
			NDCPattern:           ev.NDCPattern,
			GTIN14:               ev.GTIN14,
			CompanyPrefix:        ev.CompanyPrefix,
			PackagingLine:        ev.PackagingLine,
			IsGTIN:               ev.IsGTIN,
		})
	}
	if extra := d.jsonExtra(); extra != nil {
		out.Extra = extra
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d *Document) jsonExtra() *jsonExtra {
	e := d.Extra
	if len(e.Masterdata) == 0 && e.OutboundMapping == nil &&
		e.SenderGLN == "" && e.ReceiverGLN == "" && e.TransactionDate == "" {
		return nil
	}
	out := &jsonExtra{
		SenderGLN:       e.SenderGLN,
		ReceiverGLN:     e.ReceiverGLN,
		TransactionDate: e.TransactionDate,
	}
	for _, location := range e.Masterdata {
		out.Locations = append(out.Locations, jsonLocation{
			SGLN:          location.SGLN,
			Name:          location.Name,
			Address1:      location.Address1,
			Address2:      location.Address2,
			City:          location.City,
			StateProvince: location.StateProvince,
			PostalCode:    location.PostalCode,
			CountryCode:   location.CountryCode,
		})
	}
	if mapping := e.OutboundMapping; mapping != nil {
		out.ShipFrom = jsonPartyFrom(mapping.ShipFrom)
		out.ShipTo = jsonPartyFrom(mapping.ShipTo)
	}
	return out
}

func jsonPartyFrom(p masterdata.Party) *jsonParty {
	return &jsonParty{
		GLN13:         p.GLN13,
		Name:          p.Name,
		Address1:      p.Address1,
		Address2:      p.Address2,
		City:          p.City,
		StateProvince: p.StateProvince,
		PostalCode:    p.PostalCode,
		CountryCode:   p.CountryCode,
	}
}
