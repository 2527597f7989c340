// =============================================================================
// TraceLink EPCIS Steps - Standard Business Document Header
// =============================================================================
//
// Envelope metadata for outbound documents: sender/receiver party
// identifications plus document identification. Headers exist only
// transiently during document composition and are never persisted.
//
// =============================================================================

package sbdh

// PartnerType distinguishes the two sides of the envelope.
type PartnerType string

const (
	SenderPartner   PartnerType = "Sender"
	ReceiverPartner PartnerType = "Receiver"
)

// PartnerIdentification is an identifier plus the authority that issued it.
// This integration always tags identifications with the "GLN" authority.
type PartnerIdentification struct {
	Authority string `json:"authority"`
	Value     string `json:"value"`
}

// Partner is one side of the envelope.
type Partner struct {
	Type           PartnerType           `json:"type"`
	Identification PartnerIdentification `json:"identification"`
}

// DocumentIdentification describes the enclosed document.
type DocumentIdentification struct {
	Standard            string `json:"standard"`
	TypeVersion         string `json:"typeVersion"`
	InstanceIdentifier  string `json:"instanceIdentifier"`
	Type                string `json:"type"`
	CreationDateAndTime string `json:"creationDateAndTime"`
}

// Header is a Standard Business Document Header.
type Header struct {
	Version                string                 `json:"headerVersion"`
	Sender                 Partner                `json:"sender"`
	Receiver               Partner                `json:"receiver"`
	DocumentIdentification DocumentIdentification `json:"documentIdentification"`
}
