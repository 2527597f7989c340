// =============================================================================
// TraceLink EPCIS Steps - Process Command
// =============================================================================
//
// Runs a configured output rule over inbound EPCIS XML files.
//
// COMMAND USAGE:
//   epcis-tracelink process [flags]
//
// FLAGS:
//   --file : Process a single file instead of scanning the input directory
//   --rule : Name of the rule to run (required when multiple rules exist)
//
// PROCESSING PIPELINE:
//   1. Load the main configuration and the rule definitions
//   2. Open the master-data workbook
//   3. Build the rule's step pipeline
//   4. For each inbound file: execute the rule, write the rendered outbound
//      message, archive the input
//   5. Print a summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-tracelink/internal/config"
	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
	"github.com/ginjaninja78/epcis-tracelink/internal/rules"
	"github.com/ginjaninja78/epcis-tracelink/internal/steps"
	"github.com/ginjaninja78/epcis-tracelink/pkg/utils"
)

// inputFile is the path of a single file to process, bypassing discovery.
var inputFile string

// ruleName selects the rule to run.
var ruleName string

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run a configured rule over inbound EPCIS files",
	Long: `The process command loads the configured rule, scans the input directory
for EPCIS XML files (or takes one file via --file) and executes the rule's
step pipeline over each of them.

On successful processing:
  - The rendered outbound document is written to the output directory
  - The inbound file is moved to the input archive

On error:
  - The inbound file stays in the input directory
  - Processing continues with the remaining files when configured to`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess()
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(
		&inputFile,
		"file",
		"",
		"Path to a single EPCIS XML file to process",
	)
	processCmd.Flags().StringVar(
		&ruleName,
		"rule",
		"",
		"Name of the rule to run (defaults to the only configured rule)",
	)
}

// runProcess orchestrates the processing pipeline.
func runProcess() error {
	startTime := time.Now()

	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	logger, err := buildLogger(mainConfig.LogLevel, mainConfig.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ruleConfig, err := selectRule(mainConfig.RulesDir)
	if err != nil {
		return err
	}
	logger.Info("loaded rule", zap.String("rule", ruleConfig.Name), zap.Int("steps", len(ruleConfig.Steps)))

	repo, err := masterdata.LoadWorkbook(mainConfig.MasterDataWorkbook)
	if err != nil {
		return fmt.Errorf("failed to load master data: %w", err)
	}

	rule, err := buildRule(ruleConfig, repo, logger)
	if err != nil {
		return err
	}

	fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir)
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	files, err := collectInputs(fm)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No EPCIS XML files found to process.")
		return nil
	}

	var successCount, errorCount int
	for _, file := range files {
		outputPath, err := processFile(file, rule, ruleConfig, mainConfig, fm)
		if err != nil {
			errorCount++
			logger.Error("processing failed", zap.String("file", file), zap.Error(err))
			fmt.Printf("  ✗ %s: %v\n", filepath.Base(file), err)
			if !mainConfig.ContinueOnError {
				return err
			}
			continue
		}
		successCount++
		fmt.Printf("  ✓ %s -> %s\n", filepath.Base(file), filepath.Base(outputPath))
	}

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:  %d\n", len(files))
	fmt.Printf("Successful:   %d\n", successCount)
	fmt.Printf("Errors:       %d\n", errorCount)
	fmt.Printf("Time elapsed: %s\n", time.Since(startTime))
	return nil
}

// selectRule loads the rule definitions and picks the one to run: --rule by
// name, or the single configured rule when only one exists.
func selectRule(rulesDir string) (*config.RuleConfig, error) {
	ruleConfigs, err := config.LoadRuleConfigs(rulesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule configs: %w", err)
	}
	if len(ruleConfigs) == 0 {
		return nil, fmt.Errorf("no rules configured in %s", rulesDir)
	}

	if ruleName != "" {
		rc, ok := ruleConfigs[ruleName]
		if !ok {
			return nil, fmt.Errorf("rule %q not found in %s", ruleName, rulesDir)
		}
		return rc, nil
	}
	if len(ruleConfigs) > 1 {
		names := make([]string, 0, len(ruleConfigs))
		for name := range ruleConfigs {
			names = append(names, name)
		}
		return nil, fmt.Errorf("multiple rules configured (%s); select one with --rule", strings.Join(names, ", "))
	}
	for _, rc := range ruleConfigs {
		return rc, nil
	}
	return nil, nil
}

// buildRule instantiates the rule's step pipeline from its configuration.
func buildRule(rc *config.RuleConfig, repo masterdata.Repository, logger *zap.Logger) (*rules.Rule, error) {
	deps := steps.Deps{Repo: repo, Logger: logger}
	built := make([]rules.Step, 0, len(rc.Steps))
	for _, stepConfig := range rc.Steps {
		step, err := steps.Build(stepConfig.Class, rules.Params(stepConfig.Parameters), deps)
		if err != nil {
			return nil, fmt.Errorf("rule %s: step %s: %w", rc.Name, stepConfig.Name, err)
		}
		built = append(built, step)
	}
	return &rules.Rule{Name: rc.Name, Steps: built, Logger: logger}, nil
}

// collectInputs returns the files to process for this run.
func collectInputs(fm *utils.FileManager) ([]string, error) {
	if inputFile != "" {
		if !utils.FileExists(inputFile) {
			return nil, fmt.Errorf("input file %s does not exist", inputFile)
		}
		return []string{inputFile}, nil
	}
	return fm.DiscoverInputFiles("*.xml")
}

// processFile executes the rule over one inbound file and writes the rendered
// document.
func processFile(file string, rule *rules.Rule, rc *config.RuleConfig, mainConfig *config.MainConfig, fm *utils.FileManager) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}

	ctx, err := rule.Execute(data)
	if err != nil {
		return "", err
	}

	message := ctx.String(rules.OutboundMessageKey)
	if message == "" {
		return "", fmt.Errorf("rule %s produced no outbound message", rule.Name)
	}

	ext := "xml"
	if strings.HasPrefix(strings.TrimSpace(message), "{") {
		ext = "json"
	}
	name := utils.GenerateOutputFileName(mainConfig.OutputNameFormat, map[string]string{
		"rule":     rc.Name,
		"ext":      ext,
		"original": strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
	})

	outputPath, err := fm.WriteOutputFile(name, message)
	if err != nil {
		return "", err
	}
	if _, err := fm.ArchiveInputFile(file); err != nil {
		return "", err
	}
	return outputPath, nil
}
