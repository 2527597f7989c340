// =============================================================================
// TraceLink EPCIS Steps - Configuration Module
// =============================================================================
//
// Loads the application configuration and the rule definitions.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Rule Configs (rules/*.yaml): Step pipelines with their parameters
//
// A rule file mirrors the host framework's rule/step/parameter model: an
// ordered list of steps, each naming its registered class and carrying a flat
// string parameter map.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration, loaded from the main
// config.yaml file.
type MainConfig struct {
	// InputDir is scanned for inbound EPCIS XML files to process.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the rendered outbound documents.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir is where inbound files are moved after successful
	// processing. Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// RulesDir contains the rule definition files.
	// Default: "./rules"
	RulesDir string `yaml:"rules_dir"`

	// MasterDataWorkbook is the XLSX workbook holding trade items, companies,
	// locations, outbound mappings and containment rows.
	// Default: "./masterdata.xlsx"
	MasterDataWorkbook string `yaml:"master_data_workbook"`

	// LogFile is the path to the application log file.
	// Default: "./logs/epcis-tracelink.log"
	LogFile string `yaml:"log_file"`

	// LogLevel controls verbosity: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// OutputNameFormat defines output file names. Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {rule}      - Rule name
	//   {ext}       - "xml" or "json" per the rule's output step
	// Default: "{uuid}.{ext}"
	OutputNameFormat string `yaml:"output_name_format"`

	// ContinueOnError keeps the batch going when one file fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`
}

// =============================================================================
// RULE CONFIGURATION STRUCTURE
// =============================================================================

// RuleConfig is one rule definition: an ordered step pipeline.
type RuleConfig struct {
	// Name identifies the rule in logs and output file names.
	Name string `yaml:"name"`

	// Description is free-form operator documentation.
	Description string `yaml:"description,omitempty"`

	// Steps is the pipeline, executed in Order.
	Steps []StepConfig `yaml:"steps"`
}

// StepConfig is one configured step within a rule.
type StepConfig struct {
	// Name is the step's display name in logs.
	Name string `yaml:"name"`

	// Class selects the registered step implementation,
	// e.g. "tracelink.OutputParsingStep" or "tracelink.OutputStep".
	Class string `yaml:"class"`

	// Order positions the step in the pipeline. Lower runs first.
	Order int `yaml:"order"`

	// Parameters is the flat string parameter map handed to the step.
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file, applies
// defaults and ensures the working directories exist.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.RulesDir == "" {
		config.RulesDir = "./rules"
	}
	if config.MasterDataWorkbook == "" {
		config.MasterDataWorkbook = "./masterdata.xlsx"
	}
	if config.LogFile == "" {
		config.LogFile = "./logs/epcis-tracelink.log"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{uuid}.{ext}"
	}
}

// validateMainConfig creates any missing working directories.
func validateMainConfig(config *MainConfig) error {
	dirs := []string{
		config.InputDir,
		config.OutputDir,
		config.InputArchiveDir,
		config.RulesDir,
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// LoadRuleConfigs loads every rule definition from a directory, keyed by rule
// name.
func LoadRuleConfigs(rulesDir string) (map[string]*RuleConfig, error) {
	configs := make(map[string]*RuleConfig)

	files, err := filepath.Glob(filepath.Join(rulesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(rulesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		config, err := LoadRuleConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := config.Name
		if key == "" {
			key = filepath.Base(file)
		}
		configs[key] = config
	}

	return configs, nil
}

// LoadRuleConfig loads and validates a single rule definition file. Steps are
// sorted by their declared order.
func LoadRuleConfig(filePath string) (*RuleConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config RuleConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if len(config.Steps) == 0 {
		return nil, fmt.Errorf("rule %q defines no steps", config.Name)
	}
	for i, step := range config.Steps {
		if step.Class == "" {
			return nil, fmt.Errorf("rule %q: step %d has no class", config.Name, i+1)
		}
	}

	sort.SliceStable(config.Steps, func(i, j int) bool {
		return config.Steps[i].Order < config.Steps[j].Order
	})

	return &config, nil
}
