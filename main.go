// =============================================================================
// TraceLink EPCIS Steps - Main Entry Point
// =============================================================================
//
// USAGE:
//   epcis-tracelink process  - Run a configured rule over inbound EPCIS files
//   epcis-tracelink version  - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Parsing, enrichment, envelope and rendering logic
//   - pkg/       : Shared utilities
//   - rules/     : Rule definition YAML files
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/epcis-tracelink/cmd"
)

func main() {
	cmd.Execute()
}
