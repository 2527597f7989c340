package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
	"github.com/ginjaninja78/epcis-tracelink/internal/sbdh"
)

func namedEvent(name string) *epcis.Event {
	return &epcis.Event{Type: epcis.ObjectEventType, BizStep: name}
}

func eventNames(events []*epcis.Event) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.BizStep)
	}
	return names
}

func TestMergeOrdering(t *testing.T) {
	object := []*epcis.Event{namedEvent("o1"), namedEvent("o2")}
	agg := []*epcis.Event{namedEvent("a1")}
	filtered := []*epcis.Event{namedEvent("f1")}

	merged := Merge(object, agg, filtered, Order{AppendFiltered: true})
	assert.Equal(t, []string{"o1", "o2", "a1", "f1"}, eventNames(merged))

	merged = Merge(object, agg, filtered, Order{AppendFiltered: true, PrependFiltered: true})
	assert.Equal(t, []string{"f1", "o1", "o2", "a1"}, eventNames(merged))

	merged = Merge(object, agg, filtered, Order{})
	assert.Equal(t, []string{"o1", "o2"}, eventNames(merged))
}

func TestComposeNormalizesDatesInMergedOrder(t *testing.T) {
	object := []*epcis.Event{
		{Type: epcis.ObjectEventType, EventTime: "2020-01-01T10:00:00Z"},
		{Type: epcis.ObjectEventType, EventTime: "2020-01-01T10:00:00Z"},
	}
	filtered := []*epcis.Event{
		{Type: epcis.ObjectEventType, EventTime: "2020-01-01T10:00:00Z"},
	}

	doc := Compose(object, nil, filtered, Options{
		Order:          Order{AppendFiltered: true},
		ConvertDates:   true,
		IncrementDates: true,
	})

	require.Len(t, doc.Events, 3)
	assert.Equal(t, "2020-01-01T10:00:00Z", doc.Events[0].EventTime)
	assert.Equal(t, "2020-01-01T10:00:01Z", doc.Events[1].EventTime)
	assert.Equal(t, "2020-01-01T10:00:02Z", doc.Events[2].EventTime)
}

func TestComposeSkipsDatesWhenDisabled(t *testing.T) {
	object := []*epcis.Event{{Type: epcis.ObjectEventType, EventTime: "2020-01-01T10:00:00+00:00"}}
	doc := Compose(object, nil, nil, Options{})
	assert.Equal(t, "2020-01-01T10:00:00+00:00", doc.Events[0].EventTime)
}

func TestComposeDerivesGTIN14(t *testing.T) {
	object := []*epcis.Event{{
		Type: epcis.ObjectEventType,
		EPCs: []string{"urn:epc:id:sgtin:305555.0555555.1"},
	}}
	doc := Compose(object, nil, nil, Options{})
	assert.Equal(t, "03055555555557", doc.Events[0].GTIN14)

	// Already-resolved events keep their value.
	object = []*epcis.Event{{
		Type:   epcis.ObjectEventType,
		EPCs:   []string{"urn:epc:id:sgtin:305555.0555555.1"},
		GTIN14: "99999999999999",
	}}
	doc = Compose(object, nil, nil, Options{})
	assert.Equal(t, "99999999999999", doc.Events[0].GTIN14)
}

func TestRenderXML(t *testing.T) {
	header := &sbdh.Header{
		Version: "1.0",
		Sender: sbdh.Partner{
			Type:           sbdh.SenderPartner,
			Identification: sbdh.PartnerIdentification{Authority: "GLN", Value: "3055551234562"},
		},
		Receiver: sbdh.Partner{
			Type:           sbdh.ReceiverPartner,
			Identification: sbdh.PartnerIdentification{Authority: "GLN", Value: "3099991111113"},
		},
		DocumentIdentification: sbdh.DocumentIdentification{
			Standard:            "EPCGlobal",
			TypeVersion:         "1.0",
			InstanceIdentifier:  "test-instance",
			Type:                "Events",
			CreationDateAndTime: "2020-01-01T10:00:00Z",
		},
	}
	object := []*epcis.Event{{
		Type:         epcis.ObjectEventType,
		EventTime:    "2020-01-01T10:00:00Z",
		Action:       epcis.ActionAdd,
		BizStep:      "urn:epcglobal:cbv:bizstep:commissioning",
		EPCs:         []string{"urn:epc:id:sgtin:305555.0555555.1"},
		Lot:          "LOT555",
		Expiry:       "2021-12-31",
		PackagingUOM: "EA",
		NDC:          "55555-555-55",
	}}
	agg := []*epcis.Event{{
		Type:     epcis.AggregationEventType,
		ParentID: "urn:epc:id:sscc:305555.0111111111",
		EPCs:     []string{"urn:epc:id:sgtin:305555.0555555.1"},
		Action:   epcis.ActionAdd,
	}}

	doc := &Document{
		Header: header,
		Events: append(object, agg...),
		Extra: Extra{
			Masterdata: []*masterdata.Location{{
				SGLN: "urn:epc:id:sgln:305555.123456.0",
				Name: "Main DC & Warehouse",
				City: "Springfield",
			}},
		},
	}
	out := doc.RenderXML()

	assert.True(t, strings.HasPrefix(out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>"))
	assert.Contains(t, out, "<epcis:EPCISDocument")
	assert.Contains(t, out, "<sbdh:StandardBusinessDocumentHeader>")
	assert.Contains(t, out, ">3055551234562</sbdh:Identifier>")
	assert.Contains(t, out, ">3099991111113</sbdh:Identifier>")
	assert.Contains(t, out, "<sbdh:InstanceIdentifier>test-instance</sbdh:InstanceIdentifier>")
	assert.Contains(t, out, "<epc>urn:epc:id:sgtin:305555.0555555.1</epc>")
	assert.Contains(t, out, "<parentID>urn:epc:id:sscc:305555.0111111111</parentID>")
	assert.Contains(t, out, "<cbvmda:lotNumber>LOT555</cbvmda:lotNumber>")
	assert.Contains(t, out, "<tl:packagingUom>EA</tl:packagingUom>")

	// XML escaping in attribute values.
	assert.Contains(t, out, "Main DC &amp; Warehouse")
}

func TestRenderXMLWithoutHeader(t *testing.T) {
	doc := &Document{Events: []*epcis.Event{{Type: epcis.ObjectEventType, EventTime: "2020-01-01T10:00:00Z"}}}
	out := doc.RenderXML()
	assert.NotContains(t, out, "EPCISHeader")
	assert.Contains(t, out, "<EventList>")
}

func TestRenderJSON(t *testing.T) {
	doc := &Document{
		Events: []*epcis.Event{{
			Type:      epcis.ObjectEventType,
			EventTime: "2020-01-01T10:00:00Z",
			EPCs:      []string{"urn:epc:id:sgtin:305555.0555555.1"},
			Lot:       "LOT555",
		}},
		Extra: Extra{SenderGLN: "3055551234562"},
	}
	out, err := doc.RenderJSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "ObjectEvent"`)
	assert.Contains(t, out, `"lotNumber": "LOT555"`)
	assert.Contains(t, out, `"senderGln": "3055551234562"`)
}
