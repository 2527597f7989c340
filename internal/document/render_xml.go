// =============================================================================
// TraceLink EPCIS Steps - XML Renderer
// =============================================================================
//
// Renders a composed Document as a TraceLink-flavored EPCIS 1.2 XML message:
// SBDH envelope, location master-data vocabulary, the merged event list with
// the vendor extension fields attached by the attribute resolver, and the
// trading-partner ship-from/ship-to address block when an outbound mapping
// is present.
//
// The writer builds an in-memory element tree and serializes it with
// two-space indentation; elements with neither children nor text collapse to
// self-closing tags.
//
// =============================================================================

package document

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
	"github.com/ginjaninja78/epcis-tracelink/internal/sbdh"
)

const (
	epcisNamespace = "urn:epcglobal:epcis:xsd:1"
	sbdhNamespace  = "http://www.unece.org/cefact/namespaces/StandardBusinessDocumentHeader"
	cbvmdaNS       = "urn:epcglobal:cbv:mda"
	tracelinkNS    = "http://epcis.tracelink.com/ns"

	locationVocabulary = "urn:epcglobal:epcis:vtype:Location"
)

// RenderXML serializes the document as indented XML with a declaration.
func (d *Document) RenderXML() string {
	root := element{name: "epcis:EPCISDocument"}
	root.attr("xmlns:epcis", epcisNamespace)
	root.attr("xmlns:sbdh", sbdhNamespace)
	root.attr("xmlns:cbvmda", cbvmdaNS)
	root.attr("xmlns:tl", tracelinkNS)
	root.attr("schemaVersion", "1.2")
	root.attr("creationDate", time.Now().UTC().Format("2006-01-02T15:04:05Z"))

	if header := d.headerElement(); header != nil {
		root.children = append(root.children, *header)
	}

	body := element{name: "EPCISBody"}
	events := element{name: "EventList"}
	for _, ev := range d.Events {
		events.children = append(events.children, eventElement(ev))
	}
	body.children = append(body.children, events)
	root.children = append(root.children, body)

	var buffer bytes.Buffer
	buffer.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	writeElement(&buffer, root, 0)
	return buffer.String()
}

// headerElement builds EPCISHeader with the SBDH and the master-data block.
// Returns nil when the document has neither.
func (d *Document) headerElement() *element {
	hasMasterData := len(d.Extra.Masterdata) > 0 || d.Extra.OutboundMapping != nil
	if d.Header == nil && !hasMasterData {
		return nil
	}
	header := element{name: "EPCISHeader"}
	if d.Header != nil {
		header.children = append(header.children, sbdhElement(d.Header))
	}
	if hasMasterData {
		header.children = append(header.children, d.masterDataElement())
	}
	return &header
}

func sbdhElement(h *sbdh.Header) element {
	out := element{name: "sbdh:StandardBusinessDocumentHeader"}
	out.child("sbdh:HeaderVersion", h.Version)

	sender := element{name: "sbdh:Sender"}
	sender.children = append(sender.children,
		textElementWithAttr("sbdh:Identifier", h.Sender.Identification.Value,
			"Authority", h.Sender.Identification.Authority))
	out.children = append(out.children, sender)

	receiver := element{name: "sbdh:Receiver"}
	receiver.children = append(receiver.children,
		textElementWithAttr("sbdh:Identifier", h.Receiver.Identification.Value,
			"Authority", h.Receiver.Identification.Authority))
	out.children = append(out.children, receiver)

	docID := element{name: "sbdh:DocumentIdentification"}
	docID.child("sbdh:Standard", h.DocumentIdentification.Standard)
	docID.child("sbdh:TypeVersion", h.DocumentIdentification.TypeVersion)
	docID.child("sbdh:InstanceIdentifier", h.DocumentIdentification.InstanceIdentifier)
	docID.child("sbdh:Type", h.DocumentIdentification.Type)
	docID.child("sbdh:CreationDateAndTime", h.DocumentIdentification.CreationDateAndTime)
	out.children = append(out.children, docID)
	return out
}

func (d *Document) masterDataElement() element {
	ext := element{name: "extension"}
	masterData := element{name: "EPCISMasterData"}
	list := element{name: "VocabularyList"}

	if len(d.Extra.Masterdata) > 0 {
		vocabulary := element{name: "Vocabulary"}
		vocabulary.attr("type", locationVocabulary)
		elements := element{name: "VocabularyElementList"}
		for _, location := range d.Extra.Masterdata {
			elements.children = append(elements.children, locationElement(location))
		}
		vocabulary.children = append(vocabulary.children, elements)
		list.children = append(list.children, vocabulary)
	}
	masterData.children = append(masterData.children, list)

	if mapping := d.Extra.OutboundMapping; mapping != nil {
		masterData.children = append(masterData.children,
			partyElement("tl:shipFromBusinessPartner", mapping.ShipFrom),
			partyElement("tl:shipToBusinessPartner", mapping.ShipTo))
	}
	ext.children = append(ext.children, masterData)
	return ext
}

func locationElement(location *masterdata.Location) element {
	out := element{name: "VocabularyElement"}
	out.attr("id", location.SGLN)
	attributes := []struct{ id, value string }{
		{"urn:epcglobal:cbv:mda#name", location.Name},
		{"urn:epcglobal:cbv:mda#streetAddressOne", location.Address1},
		{"urn:epcglobal:cbv:mda#streetAddressTwo", location.Address2},
		{"urn:epcglobal:cbv:mda#city", location.City},
		{"urn:epcglobal:cbv:mda#state", location.StateProvince},
		{"urn:epcglobal:cbv:mda#postalCode", location.PostalCode},
		{"urn:epcglobal:cbv:mda#countryCode", location.CountryCode},
	}
	for _, attribute := range attributes {
		if attribute.value == "" {
			continue
		}
		out.children = append(out.children,
			textElementWithAttr("attribute", attribute.value, "id", attribute.id))
	}
	return out
}

func partyElement(name string, party masterdata.Party) element {
	out := element{name: name}
	out.children = append(out.children,
		textElementWithAttr("tl:businessId", party.GLN13, "type", "GLN"))
	address := element{name: "tl:addressInfo"}
	address.child("tl:name", party.Name)
	address.child("tl:address1", party.Address1)
	address.child("tl:address2", party.Address2)
	address.child("tl:city", party.City)
	address.child("tl:stateOrRegion", party.StateProvince)
	address.child("tl:postalCode", party.PostalCode)
	address.child("tl:country", party.CountryCode)
	out.children = append(out.children, address)
	return out
}

func eventElement(ev *epcis.Event) element {
	out := element{name: string(ev.Type)}
	out.child("eventTime", ev.EventTime)
	out.child("recordTime", ev.RecordTime)
	out.child("eventTimeZoneOffset", ev.EventTimezoneOffset)

	if ev.Type == epcis.AggregationEventType {
		out.child("parentID", ev.ParentID)
		out.children = append(out.children, epcListElement("childEPCs", ev.EPCs))
	} else {
		out.children = append(out.children, epcListElement("epcList", ev.EPCs))
	}

	out.child("action", ev.Action)
	out.child("bizStep", ev.BizStep)
	out.child("disposition", ev.Disposition)
	if ev.ReadPoint != "" {
		rp := element{name: "readPoint"}
		rp.child("id", ev.ReadPoint)
		out.children = append(out.children, rp)
	}
	if ev.BizLocation != "" {
		bl := element{name: "bizLocation"}
		bl.child("id", ev.BizLocation)
		out.children = append(out.children, bl)
	}
	if len(ev.BusinessTransactions) > 0 {
		list := element{name: "bizTransactionList"}
		for _, bt := range ev.BusinessTransactions {
			list.children = append(list.children,
				textElementWithAttr("bizTransaction", bt.Value, "type", bt.Type))
		}
		out.children = append(out.children, list)
	}

	if ext := eventExtensionElement(ev); ext != nil {
		out.children = append(out.children, *ext)
	}
	return out
}

// eventExtensionElement carries the source/destination lists, the ILMD block
// and the vendor attributes the resolver attached.
func eventExtensionElement(ev *epcis.Event) *element {
	ext := element{name: "extension"}

	if len(ev.Sources) > 0 {
		list := element{name: "sourceList"}
		for _, source := range ev.Sources {
			list.children = append(list.children,
				textElementWithAttr("source", source.Source, "type", source.Type))
		}
		ext.children = append(ext.children, list)
	}
	if len(ev.Destinations) > 0 {
		list := element{name: "destinationList"}
		for _, destination := range ev.Destinations {
			list.children = append(list.children,
				textElementWithAttr("destination", destination.Destination, "type", destination.Type))
		}
		ext.children = append(ext.children, list)
	}
	if ev.Lot != "" || ev.Expiry != "" {
		ilmd := element{name: "ilmd"}
		ilmd.child("cbvmda:lotNumber", ev.Lot)
		ilmd.child("cbvmda:itemExpirationDate", ev.Expiry)
		ext.children = append(ext.children, ilmd)
	}
	if vendor := vendorAttributesElement(ev); vendor != nil {
		ext.children = append(ext.children, *vendor)
	}

	if len(ext.children) == 0 {
		return nil
	}
	return &ext
}

func vendorAttributesElement(ev *epcis.Event) *element {
	hasVendorData := ev.PackagingUOM != "" || ev.NDC != "" || ev.NDCPattern != "" ||
		ev.GTIN14 != "" || ev.PackagingLine != "" || ev.CompanyPrefix != ""
	if !hasVendorData {
		return nil
	}
	vendor := element{name: "tl:eventAttributes"}
	vendor.child("tl:packagingUom", ev.PackagingUOM)
	vendor.child("tl:ndc", ev.NDC)
	vendor.child("tl:ndcPattern", ev.NDCPattern)
	vendor.child("tl:gtin14", ev.GTIN14)
	vendor.child("tl:companyPrefix", ev.CompanyPrefix)
	vendor.child("tl:packagingLineName", ev.PackagingLine)
	if ev.PackagingUOM != "" {
		vendor.child("tl:isGtin", strconv.FormatBool(ev.IsGTIN))
	}
	return &vendor
}

func epcListElement(name string, epcs []string) element {
	list := element{name: name}
	for _, epc := range epcs {
		list.child("epc", epc)
	}
	return list
}

// =============================================================================
// ELEMENT TREE WRITER
// =============================================================================

type attribute struct {
	name  string
	value string
}

type element struct {
	name       string
	attributes []attribute
	text       string
	children   []element
}

func (e *element) attr(name, value string) {
	e.attributes = append(e.attributes, attribute{name: name, value: value})
}

// child appends a simple text element, skipping empty values.
func (e *element) child(name, text string) {
	if text == "" {
		return
	}
	e.children = append(e.children, element{name: name, text: text})
}

func textElementWithAttr(name, text, attrName, attrValue string) element {
	out := element{name: name, text: text}
	out.attr(attrName, attrValue)
	return out
}

func writeElement(buffer *bytes.Buffer, e element, level int) {
	indent := bytes.Repeat([]byte("  "), level)
	buffer.Write(indent)
	buffer.WriteString("<")
	buffer.WriteString(e.name)
	for _, attr := range e.attributes {
		fmt.Fprintf(buffer, " %s=%q", attr.name, escapeXML(attr.value))
	}
	if len(e.children) == 0 && e.text == "" {
		buffer.WriteString("/>\n")
		return
	}
	buffer.WriteString(">")
	if e.text != "" {
		buffer.WriteString(escapeXML(e.text))
	} else {
		buffer.WriteString("\n")
		for _, c := range e.children {
			writeElement(buffer, c, level+1)
		}
		buffer.Write(indent)
	}
	buffer.WriteString("</")
	buffer.WriteString(e.name)
	buffer.WriteString(">\n")
}

func escapeXML(s string) string {
	var buffer bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}
	return buffer.String()
}
