package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/pkg/strategy"
	"gopkg.in/yaml.v3"
)

const (
	backtestSchemaName = "backtest-engine-v1-config.json"
	backtestSampleName = "backtest-engine-v1-config.yaml"
	liveSchemaName     = "live-trading-engine-v1-config.json"
)

func main() {
	if err := generate("./config"); err != nil {
		log.Fatalf("Failed to generate config files: %v", err)
	}
}

// generate writes both engine schemas and, unless one exists, a sample backtest config.
func generate(dir string) error {
	backtestSchema, err := strategy.BacktestConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate backtest schema: %w", err)
	}

	liveSchema, err := strategy.LiveConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate live schema: %w", err)
	}

	schemaPath := filepath.Join(dir, backtestSchemaName)
	samplePath := filepath.Join(dir, backtestSampleName)

	if err := validatePaths(schemaPath, samplePath); err != nil {
		return err
	}

	if err := generateSchemaFile(backtestSchema, schemaPath); err != nil {
		return err
	}

	if err := generateSchemaFile(liveSchema, filepath.Join(dir, liveSchemaName)); err != nil {
		return err
	}

	if err := generateSampleConfig(engine.EmptyConfig(), samplePath, backtestSchemaName); err != nil {
		return err
	}

	log.Printf("Schemas successfully generated in %s", dir)

	return nil
}

func generateSchemaFile(schemaJSON string, schemaPath string) error {
	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig never overwrites an existing file.
func generateSampleConfig(config engine.BacktestEngineV1Config, samplePath string, schemaName string) error {
	if err := validateSchemaName(schemaName); err != nil {
		return err
	}

	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte(getSchemaReference(schemaName)), yamlBytes...)

	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	log.Printf("Sample config successfully generated at %s", samplePath)

	return nil
}

func validatePaths(schemaPath string, samplePath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if samplePath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func validateSchemaName(schemaName string) error {
	if schemaName == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if !strings.HasSuffix(schemaName, ".json") {
		return fmt.Errorf("schema name %q must have .json extension", schemaName)
	}

	return nil
}

func getSchemaReference(schemaName string) string {
	return "# yaml-language-server: $schema=" + schemaName + "\n"
}
