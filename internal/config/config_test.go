package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRule = `name: tracelink_output
description: Render inbound EPCIS as a TraceLink document
steps:
  - name: Output Determination
    class: tracelink.OutputStep
    order: 2
    parameters:
      Append Filtered Events: "true"
      Resolve Common Attributes: "true"
  - name: Parse EPCIS
    class: tracelink.OutputParsingStep
    order: 1
    parameters:
      Filter Biz Step: urn:epcglobal:cbv:bizstep:shipping
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRuleConfigSortsSteps(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rule.yaml", sampleRule)

	rc, err := LoadRuleConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tracelink_output", rc.Name)
	require.Len(t, rc.Steps, 2)

	// Steps come back ordered by their declared order, not file order.
	assert.Equal(t, "tracelink.OutputParsingStep", rc.Steps[0].Class)
	assert.Equal(t, "tracelink.OutputStep", rc.Steps[1].Class)
	assert.Equal(t, "urn:epcglobal:cbv:bizstep:shipping", rc.Steps[0].Parameters["Filter Biz Step"])
	assert.Equal(t, "true", rc.Steps[1].Parameters["Append Filtered Events"])
}

func TestLoadRuleConfigRejectsEmptyPipeline(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rule.yaml", "name: empty\nsteps: []\n")
	_, err := LoadRuleConfig(path)
	require.Error(t, err)
}

func TestLoadRuleConfigRejectsMissingClass(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rule.yaml", "name: broken\nsteps:\n  - name: x\n    order: 1\n")
	_, err := LoadRuleConfig(path)
	require.Error(t, err)
}

func TestLoadRuleConfigs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", sampleRule)
	writeFile(t, dir, "ignore.txt", "not yaml")

	configs, err := LoadRuleConfigs(dir)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Contains(t, configs, "tracelink_output")
}

func TestLoadMainConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := writeFile(t, dir, "config.yaml", "log_level: debug\n")
	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "./input", cfg.InputDir)
	assert.Equal(t, "./rules", cfg.RulesDir)
	assert.Equal(t, "{uuid}.{ext}", cfg.OutputNameFormat)

	// Working directories are created on load.
	assert.DirExists(t, filepath.Join(dir, "input"))
	assert.DirExists(t, filepath.Join(dir, "rules"))
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	_, err := LoadMainConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
