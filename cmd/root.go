// =============================================================================
// TraceLink EPCIS Steps - Root Command
// =============================================================================
//
// The base Cobra command all subcommands attach to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (epcis-tracelink)
//   ├── processCmd (epcis-tracelink process)
//   └── versionCmd (epcis-tracelink version)
//
// The root command owns the global flags (--config, --verbose) and the zap
// logger the subcommands share.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cfgFile holds the path to the main configuration file.
// Overridden with the --config flag.
var cfgFile string

// verbose forces debug logging regardless of the configured level.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "epcis-tracelink",
	Short: "TraceLink EPCIS steps - render inbound EPCIS events as TraceLink documents",
	Long: `epcis-tracelink runs configured output rules over inbound EPCIS 1.2 XML
messages and renders TraceLink-flavored outbound documents.

A rule is an ordered step pipeline: a parsing step that routes events against
output criteria, and an output step that enriches events from master data,
builds the SBDH envelope and renders the document as XML or JSON.

Example Usage:
  epcis-tracelink process                     # Run the rule over the input directory
  epcis-tracelink process --file inbound.xml  # Process one file
  epcis-tracelink process --rule tracelink_output
  epcis-tracelink version`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// buildLogger constructs the zap logger for a command run. The configured
// level applies unless --verbose forces debug; a non-empty logFile is added
// to the output sinks alongside stderr.
func buildLogger(level, logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		parsed = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(parsed)

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}
	return cfg.Build()
}
