// =============================================================================
// TraceLink EPCIS Steps - GS1 Identifier Utilities
// =============================================================================
//
// This module contains the pure identifier arithmetic the rest of the pipeline
// depends on: company-prefix extraction from EPC URNs, GTIN-14 derivation from
// SGTIN URNs, and the GS1 mod-10 check-digit computation used to synthesize
// GLN-13 values from SGLN company prefix + location reference pairs.
//
// Everything in this package is deterministic and performs no I/O.
//
// =============================================================================

package gs1

import (
	"fmt"
	"regexp"
	"strings"
)

// MalformedIdentifierError indicates that an identifier does not match any
// supported URN grammar. Unrecoverable for the event carrying the identifier.
type MalformedIdentifierError struct {
	URN string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("identifier %q does not match any supported URN pattern", e.URN)
}

// Supported URN grammars. The capture groups are, in order: company prefix,
// item reference / serial reference / location reference, then the trailing
// serial or extension where the scheme carries one.
var (
	sgtinPattern = regexp.MustCompile(`^urn:epc:id:sgtin:(\d+)\.(\d+)\.(.+)$`)
	ssccPattern  = regexp.MustCompile(`^urn:epc:id:sscc:(\d+)\.(\d+)$`)
	sglnPattern  = regexp.MustCompile(`^urn:epc:id:sgln:(\d+)\.(\d+)(?:\.(.+))?$`)
)

// SGLN is the decomposed form of an SGLN URN.
type SGLN struct {
	CompanyPrefix     string
	LocationReference string
	Extension         string
}

// CompanyPrefix extracts the GS1 company prefix from an SGTIN, SSCC or SGLN
// URN. Returns a MalformedIdentifierError for anything else.
func CompanyPrefix(urn string) (string, error) {
	for _, pattern := range []*regexp.Regexp{sgtinPattern, ssccPattern, sglnPattern} {
		if match := pattern.FindStringSubmatch(urn); match != nil {
			return match[1], nil
		}
	}
	return "", &MalformedIdentifierError{URN: urn}
}

// ParseSGLN splits an SGLN URN into its company prefix, location reference
// and optional extension.
func ParseSGLN(urn string) (SGLN, error) {
	match := sglnPattern.FindStringSubmatch(urn)
	if match == nil {
		return SGLN{}, &MalformedIdentifierError{URN: urn}
	}
	return SGLN{
		CompanyPrefix:     match[1],
		LocationReference: match[2],
		Extension:         match[3],
	}, nil
}

// IsSGTIN reports whether the URN uses the SGTIN scheme.
func IsSGTIN(urn string) bool {
	return strings.HasPrefix(urn, "urn:epc:id:sgtin:")
}

// IsSSCC reports whether the URN uses the SSCC scheme.
func IsSSCC(urn string) bool {
	return strings.HasPrefix(urn, "urn:epc:id:sscc:")
}

// GTIN14 returns the 14-digit GTIN encoded in an SGTIN URN. The first digit
// of the item reference is the indicator digit, which leads the GTIN; the
// company prefix and the remaining item-reference digits follow, and a check
// digit is appended. Returns "" when the URN is not a well-formed SGTIN.
func GTIN14(urn string) string {
	match := sgtinPattern.FindStringSubmatch(urn)
	if match == nil {
		return ""
	}
	prefix, itemRef := match[1], match[2]
	if len(itemRef) == 0 || len(prefix)+len(itemRef) != 13 {
		return ""
	}
	body := itemRef[:1] + prefix + itemRef[1:]
	return AppendCheckDigit(body)
}

// CheckDigit computes the GS1 mod-10 check digit over a string of digits,
// using alternating weights 3 and 1 starting with 3 at the rightmost digit.
// Returns -1 if the input contains a non-digit character.
func CheckDigit(digits string) int {
	sum := 0
	weight := 3
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return -1
		}
		sum += int(c-'0') * weight
		weight = 4 - weight
	}
	return (10 - sum%10) % 10
}

// AppendCheckDigit returns the input digits with the computed check digit
// appended, or "" when the input is not all digits.
func AppendCheckDigit(digits string) string {
	cd := CheckDigit(digits)
	if cd < 0 {
		return ""
	}
	return fmt.Sprintf("%s%d", digits, cd)
}

// GLNFromSGLN synthesizes a GLN-13 from an SGLN company prefix and location
// reference. The reference is left-padded with zeros until prefix+reference
// reaches 12 digits; when the pair is already 12 digits or longer it is used
// as-is. The GS1 check digit is then appended.
func GLNFromSGLN(prefix, reference string) (string, error) {
	combined := prefix + reference
	if len(combined) < 12 {
		combined = prefix + strings.Repeat("0", 12-len(combined)) + reference
	}
	gln := AppendCheckDigit(combined)
	if gln == "" {
		return "", &MalformedIdentifierError{URN: fmt.Sprintf("sgln %s.%s", prefix, reference)}
	}
	return gln, nil
}
