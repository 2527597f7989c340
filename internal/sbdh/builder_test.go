package sbdh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
)

const owningPartyType = "urn:epcglobal:cbv:sdt:owning_party"

func testBuilder(t *testing.T, repo masterdata.Repository) *Builder {
	t.Helper()
	b := NewBuilder(repo, nil, nil)
	b.now = func() time.Time { return time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC) }
	return b
}

func TestBuildWithExplicitGLNs(t *testing.T) {
	b := testBuilder(t, masterdata.NewMemoryRepository())
	header := b.Build(Identity{GLN: "3055551234562"}, Identity{GLN: "3099991111113"})

	require.NotNil(t, header)
	assert.Equal(t, "1.0", header.Version)
	assert.Equal(t, SenderPartner, header.Sender.Type)
	assert.Equal(t, "GLN", header.Sender.Identification.Authority)
	assert.Equal(t, "3055551234562", header.Sender.Identification.Value)
	assert.Equal(t, "3099991111113", header.Receiver.Identification.Value)
	assert.Equal(t, "EPCGlobal", header.DocumentIdentification.Standard)
	assert.Equal(t, "Events", header.DocumentIdentification.Type)
	assert.Equal(t, "2020-01-01T10:00:00Z", header.DocumentIdentification.CreationDateAndTime)
	assert.NotEmpty(t, header.DocumentIdentification.InstanceIdentifier)
}

func TestGLNForSGLNPrefersCompanyRecord(t *testing.T) {
	repo := masterdata.NewMemoryRepository()
	repo.AddCompany(&masterdata.Company{
		SGLN:  "urn:epc:id:sgln:305555.123456.0",
		GLN13: "9999999999994",
	})
	b := testBuilder(t, repo)

	assert.Equal(t, "9999999999994", b.GLNForSGLN("urn:epc:id:sgln:305555.123456.0"))
}

func TestGLNForSGLNSynthesizesWithoutCompany(t *testing.T) {
	b := testBuilder(t, masterdata.NewMemoryRepository())
	assert.Equal(t, "3055551234562", b.GLNForSGLN("urn:epc:id:sgln:305555.123456.0"))
}

func TestGLNForSGLNMalformed(t *testing.T) {
	b := testBuilder(t, masterdata.NewMemoryRepository())
	assert.Equal(t, "", b.GLNForSGLN("not-an-sgln"))
}

func TestExplicitGLNWinsOverSGLN(t *testing.T) {
	b := testBuilder(t, masterdata.NewMemoryRepository())
	header := b.Build(
		Identity{GLN: "1111111111116", SGLN: "urn:epc:id:sgln:305555.123456.0"},
		Identity{GLN: "3099991111113"},
	)
	require.NotNil(t, header)
	assert.Equal(t, "1111111111116", header.Sender.Identification.Value)
}

func TestBuildOmitsHeaderWhenUnresolved(t *testing.T) {
	b := testBuilder(t, masterdata.NewMemoryRepository())

	assert.Nil(t, b.Build(Identity{}, Identity{GLN: "3099991111113"}))
	assert.Nil(t, b.Build(Identity{GLN: "3055551234562"}, Identity{SGLN: "garbage"}))
}

func TestFindOwningParties(t *testing.T) {
	events := []*epcis.Event{
		// Skipped: missing destination list.
		{Sources: []epcis.Source{{Type: owningPartyType, Source: "urn:epc:id:sgln:1.1.0"}}},
		{
			Sources: []epcis.Source{
				{Type: "urn:epcglobal:cbv:sdt:location", Source: "urn:epc:id:sgln:2.2.0"},
				{Type: owningPartyType, Source: "urn:epc:id:sgln:3.3.0"},
				{Type: owningPartyType, Source: "urn:epc:id:sgln:4.4.0"},
			},
			Destinations: []epcis.Destination{
				{Type: owningPartyType, Destination: "urn:epc:id:sgln:5.5.0"},
			},
		},
		// Never reached: the scan stops at the first candidate event.
		{
			Sources:      []epcis.Source{{Type: owningPartyType, Source: "urn:epc:id:sgln:6.6.0"}},
			Destinations: []epcis.Destination{{Type: owningPartyType, Destination: "urn:epc:id:sgln:7.7.0"}},
		},
	}

	sender, receiver, found := FindOwningParties(events)
	require.True(t, found)
	// The last owning-party entry within the candidate event wins.
	assert.Equal(t, "urn:epc:id:sgln:4.4.0", sender)
	assert.Equal(t, "urn:epc:id:sgln:5.5.0", receiver)
}

func TestFindOwningPartiesNoCandidate(t *testing.T) {
	_, _, found := FindOwningParties([]*epcis.Event{
		{Sources: []epcis.Source{{Type: owningPartyType, Source: "urn:epc:id:sgln:1.1.0"}}},
	})
	assert.False(t, found)
}
