package steps

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
	"github.com/ginjaninja78/epcis-tracelink/internal/rules"
)

const inboundDocument = `<?xml version="1.0" encoding="UTF-8"?>
<epcis:EPCISDocument xmlns:epcis="urn:epcglobal:epcis:xsd:1" schemaVersion="1.2">
  <EPCISBody>
    <EventList>
      <ObjectEvent>
        <eventTime>2020-01-01T10:00:00+00:00</eventTime>
        <eventTimeZoneOffset>+00:00</eventTimeZoneOffset>
        <epcList>
          <epc>urn:epc:id:sgtin:305555.0555555.1</epc>
        </epcList>
        <action>ADD</action>
        <bizStep>urn:epcglobal:cbv:bizstep:commissioning</bizStep>
        <disposition>urn:epcglobal:cbv:disp:active</disposition>
        <readPoint><id>urn:epc:id:sgln:305555.123456.10</id></readPoint>
        <extension>
          <ilmd>
            <cbvmda:lotNumber xmlns:cbvmda="urn:epcglobal:cbv:mda">LOT555</cbvmda:lotNumber>
            <cbvmda:itemExpirationDate xmlns:cbvmda="urn:epcglobal:cbv:mda">2021-12-31</cbvmda:itemExpirationDate>
          </ilmd>
        </extension>
      </ObjectEvent>
      <AggregationEvent>
        <eventTime>2020-01-01T11:00:00+00:00</eventTime>
        <eventTimeZoneOffset>+00:00</eventTimeZoneOffset>
        <parentID>urn:epc:id:sscc:305555.0111111111</parentID>
        <childEPCs>
          <epc>urn:epc:id:sgtin:305555.0555555.1</epc>
        </childEPCs>
        <action>ADD</action>
        <bizStep>urn:epcglobal:cbv:bizstep:packing</bizStep>
      </AggregationEvent>
      <ObjectEvent>
        <eventTime>2020-01-01T12:00:00+00:00</eventTime>
        <eventTimeZoneOffset>+00:00</eventTimeZoneOffset>
        <epcList>
          <epc>urn:epc:id:sscc:305555.0111111111</epc>
        </epcList>
        <action>OBSERVE</action>
        <bizStep>urn:epcglobal:cbv:bizstep:shipping</bizStep>
        <bizTransactionList>
          <bizTransaction type="urn:epcglobal:cbv:btt:bol">urn:epcglobal:cbv:bt:0355555555555:12345</bizTransaction>
        </bizTransactionList>
        <extension>
          <sourceList>
            <source type="urn:epcglobal:cbv:sdt:owning_party">urn:epc:id:sgln:305555.123456.0</source>
          </sourceList>
          <destinationList>
            <destination type="urn:epcglobal:cbv:sdt:owning_party">urn:epc:id:sgln:309999.111111.0</destination>
          </destinationList>
        </extension>
      </ObjectEvent>
    </EventList>
  </EPCISBody>
</epcis:EPCISDocument>`

func testRepo() *masterdata.MemoryRepository {
	repo := masterdata.NewMemoryRepository()
	repo.AddCompany(&masterdata.Company{
		Name:             "Test Pharma",
		GS1CompanyPrefix: "305555",
		GLN13:            "3055551234562",
		SGLN:             "urn:epc:id:sgln:305555.123456.0",
	})
	repo.AddTradeItem(&masterdata.TradeItem{
		URN:        "urn:epc:idpat:sgtin:305555.0555555.*",
		PackageUOM: "Ea",
		NDC:        "55555-555-55",
		NDCPattern: "5-3-2",
	})
	repo.AddLocation(&masterdata.Location{
		Name: "Main DC",
		SGLN: "urn:epc:id:sgln:305555.123456.0",
		City: "Springfield",
	})
	repo.AddLocation(&masterdata.Location{
		Name: "Partner DC",
		SGLN: "urn:epc:id:sgln:309999.111111.0",
		City: "Shelbyville",
	})
	return repo
}

func parsingParams() rules.Params {
	return rules.Params{
		"Filter Biz Step": "urn:epcglobal:cbv:bizstep:shipping",
	}
}

func runRule(t *testing.T, repo masterdata.Repository, outputParams rules.Params) (*rules.Context, error) {
	t.Helper()
	parsing := NewOutputParsingStep(parsingParams(), nil)
	output, err := NewOutputStep(outputParams, repo, nil)
	require.NoError(t, err)

	rule := &rules.Rule{Name: "tracelink_output", Steps: []rules.Step{parsing, output}}
	return rule.Execute([]byte(inboundDocument))
}

func TestRuleProducesDocumentWithOwningPartyHeader(t *testing.T) {
	rc, err := runRule(t, testRepo(), rules.Params{
		"Resolve Common Attributes": "true",
		"Sender GLN":                "3055551234562",
	})
	require.NoError(t, err)

	message := rc.String(rules.OutboundMessageKey)
	require.NotEmpty(t, message)

	// Sender comes from the configured parameter; the receiver SGLN has no
	// company and falls back to the synthesized GLN.
	assert.Contains(t, message, ">3055551234562</sbdh:Identifier>")
	assert.Contains(t, message, ">3099991111113</sbdh:Identifier>")
	assert.Equal(t, "3055551234562", rc.String(rules.SenderGLNKey))
	assert.Equal(t, "3099991111113", rc.String(rules.ReceiverGLNKey))

	// Enrichment results show up on the rendered events.
	assert.Contains(t, message, "<cbvmda:lotNumber>LOT555</cbvmda:lotNumber>")
	assert.Contains(t, message, "<cbvmda:itemExpirationDate>2021-12-31</cbvmda:itemExpirationDate>")
	assert.Contains(t, message, "<tl:packagingUom>EA</tl:packagingUom>")
	assert.Contains(t, message, "<tl:packagingLineName>Line10</tl:packagingLineName>")

	// Dates are normalized and the filtered shipping event got the default
	// disposition.
	assert.Contains(t, message, "<eventTime>2020-01-01T10:00:00Z</eventTime>")
	assert.Contains(t, message, "<disposition>urn:epcglobal:cbv:disp:in_transit</disposition>")

	// All three events render, filtered appended last.
	assert.Contains(t, message, "urn:epcglobal:cbv:bizstep:commissioning")
	assert.Contains(t, message, "urn:epcglobal:cbv:bizstep:packing")
	assert.Contains(t, message, "urn:epcglobal:cbv:bizstep:shipping")
	shipping := strings.Index(message, "urn:epcglobal:cbv:bizstep:shipping")
	packing := strings.Index(message, "urn:epcglobal:cbv:bizstep:packing")
	assert.Greater(t, shipping, packing)
}

func TestRuleDeclaredReceiverOverride(t *testing.T) {
	declared := strings.Replace(inboundDocument,
		"</extension>\n      </ObjectEvent>\n    </EventList>",
		"</extension>\n        <tl:transferredToId xmlns:tl=\"http://epcis.tracelink.com/ns\">0349999999999</tl:transferredToId>\n      </ObjectEvent>\n    </EventList>",
		1)
	require.Contains(t, declared, "transferredToId")

	parsing := NewOutputParsingStep(parsingParams(), nil)
	output, err := NewOutputStep(rules.Params{}, testRepo(), nil)
	require.NoError(t, err)
	rule := &rules.Rule{Name: "tracelink_output", Steps: []rules.Step{parsing, output}}

	rc, err := rule.Execute([]byte(declared))
	require.NoError(t, err)
	assert.Equal(t, "0349999999999", rc.String(rules.ReceiverGLNKey))
}

func TestRuleJSONOutput(t *testing.T) {
	rc, err := runRule(t, testRepo(), rules.Params{"JSON": "true"})
	require.NoError(t, err)

	message := rc.String(rules.OutboundMessageKey)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(message), "{"))
	assert.Contains(t, message, `"senderGln": "3055551234562"`)
	assert.Contains(t, message, "urn:epc:id:sgtin:305555.0555555.1")
}

func TestRuleFilteredOnly(t *testing.T) {
	rc, err := runRule(t, testRepo(), rules.Params{"Filtered Events Only": "true"})
	require.NoError(t, err)

	message := rc.String(rules.OutboundMessageKey)
	assert.Contains(t, message, "urn:epcglobal:cbv:bizstep:shipping")
	assert.NotContains(t, message, "urn:epcglobal:cbv:bizstep:commissioning")
	assert.NotContains(t, message, "urn:epcglobal:cbv:bizstep:packing")
}

func TestRulePrependFiltered(t *testing.T) {
	rc, err := runRule(t, testRepo(), rules.Params{"Prepend Filtered Events": "true"})
	require.NoError(t, err)

	message := rc.String(rules.OutboundMessageKey)
	shipping := strings.Index(message, "urn:epcglobal:cbv:bizstep:shipping")
	commissioning := strings.Index(message, "urn:epcglobal:cbv:bizstep:commissioning")
	assert.Less(t, shipping, commissioning)
}

func TestRuleTransactionTransform(t *testing.T) {
	rc, err := runRule(t, testRepo(), rules.Params{
		"Transform Business Transaction": "true",
		"Transaction Source Type":        "urn:epcglobal:cbv:btt:bol",
		"Transaction Destination Type":   "urn:epcglobal:cbv:btt:desadv",
		"Transaction Value Prefix":       "urn:tracelink:bt:",
		"Transaction Value Strip":        "urn:epcglobal:cbv:bt:",
	})
	require.NoError(t, err)

	message := rc.String(rules.OutboundMessageKey)
	assert.Contains(t, message, "urn:tracelink:bt:0355555555555:12345")
	assert.Contains(t, message, "urn:epcglobal:cbv:btt:desadv")
	assert.NotContains(t, message, "urn:epcglobal:cbv:btt:bol")
}

func TestRuleSenderGLNParameter(t *testing.T) {
	rc, err := runRule(t, testRepo(), rules.Params{"Sender GLN": "1111111111116"})
	require.NoError(t, err)
	assert.Equal(t, "1111111111116", rc.String(rules.SenderGLNKey))
}

func TestRuleContextHeaderSource(t *testing.T) {
	output, err := NewOutputStep(rules.Params{"Header Source": "context"}, testRepo(), nil)
	require.NoError(t, err)

	rc := rules.NewContext()
	rc.SetEvents(rules.ObjectEventsKey, []*epcis.Event{{Type: epcis.ObjectEventType, EventTime: "2020-01-01T10:00:00Z"}})
	rc.Keys[rules.SenderGLNKey] = "3055551234562"
	rc.Keys[rules.ReceiverGLNKey] = "3099991111113"

	require.NoError(t, output.Execute(nil, rc))
	message := rc.String(rules.OutboundMessageKey)
	assert.Contains(t, message, ">3055551234562</sbdh:Identifier>")
	assert.Contains(t, message, ">3099991111113</sbdh:Identifier>")
}

func TestRuleMappingHeaderSource(t *testing.T) {
	repo := testRepo()
	repo.AddOutboundMapping(&masterdata.OutboundMapping{
		CompanyPrefix: "305555",
		ShipFrom:      masterdata.Party{Name: "Test Pharma", GLN13: "3055551234562"},
		ShipTo:        masterdata.Party{Name: "Partner Inc", GLN13: "3099991111113", City: "Shelbyville"},
	})

	rc, err := runRule(t, repo, rules.Params{"Header Source": "mapping"})
	require.NoError(t, err)

	message := rc.String(rules.OutboundMessageKey)
	assert.Contains(t, message, ">3055551234562</sbdh:Identifier>")
	assert.Contains(t, message, ">3099991111113</sbdh:Identifier>")
	// The mapping's ship-from/ship-to parties render into the master-data
	// block.
	assert.Contains(t, message, "<tl:shipToBusinessPartner>")
	assert.Contains(t, message, "<tl:name>Partner Inc</tl:name>")
}

func TestRuleMappingMissing(t *testing.T) {
	_, err := runRule(t, testRepo(), rules.Params{"Header Source": "mapping"})
	require.Error(t, err)

	var configErr *CompanyConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "305555", configErr.Prefix)
}

func TestRulePartnerMasterData(t *testing.T) {
	rc, err := runRule(t, testRepo(), rules.Params{"Include Partner Master Data": "true"})
	require.NoError(t, err)

	message := rc.String(rules.OutboundMessageKey)
	assert.Contains(t, message, `<VocabularyElement id="urn:epc:id:sgln:305555.123456.0">`)
	assert.Contains(t, message, `<VocabularyElement id="urn:epc:id:sgln:309999.111111.0">`)
	assert.Contains(t, message, "Shelbyville")
}

func TestRuleCompanyCheckMandatory(t *testing.T) {
	repo := masterdata.NewMemoryRepository()
	repo.AddTradeItem(&masterdata.TradeItem{
		URN:        "urn:epc:idpat:sgtin:305555.0555555.*",
		PackageUOM: "Ea",
	})

	_, err := runRule(t, repo, rules.Params{
		"Resolve Common Attributes": "true",
		"Company Check Mandatory":   "true",
		"Sender GLN":                "3055551234562",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not find a company")
}

func TestOutputStepRejectsUnknownHeaderSource(t *testing.T) {
	_, err := NewOutputStep(rules.Params{"Header Source": "magic"}, testRepo(), nil)
	require.Error(t, err)
}

func TestOutputStepRequiresSenderGLNForResolution(t *testing.T) {
	_, err := NewOutputStep(rules.Params{"Resolve Common Attributes": "true"}, testRepo(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sender GLN")

	// Without resolution the parameter stays optional.
	_, err = NewOutputStep(rules.Params{}, testRepo(), nil)
	require.NoError(t, err)
}

func TestRegistryBuild(t *testing.T) {
	deps := Deps{Repo: testRepo()}

	step, err := Build(ClassOutputParsingStep, rules.Params{}, deps)
	require.NoError(t, err)
	assert.IsType(t, &OutputParsingStep{}, step)

	step, err = Build(ClassOutputStep, rules.Params{}, deps)
	require.NoError(t, err)
	assert.IsType(t, &OutputStep{}, step)

	_, err = Build("unknown.Step", rules.Params{}, deps)
	require.Error(t, err)
}
