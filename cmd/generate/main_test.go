package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type GenerateCmdTestSuite struct {
	suite.Suite
	tempDir string
}

func (suite *GenerateCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *GenerateCmdTestSuite) TestSchemaGeneration() {
	dir := filepath.Join(suite.tempDir, "config")
	suite.Require().NoError(generate(dir))

	suite.True(dirExists(dir), "Config directory should exist")

	for _, name := range []string{backtestSchemaName, liveSchemaName} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		suite.Require().NoError(err)

		var schema map[string]any
		suite.Require().NoError(json.Unmarshal(content, &schema), name)
		suite.Contains(schema, "properties", name)
	}
}

func (suite *GenerateCmdTestSuite) TestSampleConfigGeneration() {
	dir := filepath.Join(suite.tempDir, "config")
	suite.Require().NoError(generate(dir))

	content, err := os.ReadFile(filepath.Join(dir, backtestSampleName))
	suite.Require().NoError(err)
	suite.Contains(string(content), "# yaml-language-server: $schema="+backtestSchemaName)

	var config engine.BacktestEngineV1Config
	suite.Require().NoError(yaml.Unmarshal(content, &config))
	suite.Equal(engine.EmptyConfig().CacheLocation, config.CacheLocation)
	suite.Equal(engine.EmptyConfig().FeeModel, config.FeeModel)
}

func (suite *GenerateCmdTestSuite) TestSampleConfigNotOverwritten() {
	dir := filepath.Join(suite.tempDir, "config")
	suite.Require().NoError(generate(dir))

	samplePath := filepath.Join(dir, backtestSampleName)
	originalContent, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)

	suite.Require().NoError(generate(dir))

	newContent, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal(string(originalContent), string(newContent), "Sample config should not be overwritten")
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFile() {
	schemaPath := filepath.Join(suite.tempDir, "test-schema", "schema.json")

	suite.Require().NoError(generateSchemaFile(`{"type":"object"}`, schemaPath))

	content, err := os.ReadFile(schemaPath)
	suite.Require().NoError(err)
	suite.Equal(`{"type":"object"}`, string(content))
}

func (suite *GenerateCmdTestSuite) TestGenerateSchemaFileInvalidPath() {
	blocker := filepath.Join(suite.tempDir, "file")
	suite.Require().NoError(os.WriteFile(blocker, []byte("x"), 0644))

	err := generateSchemaFile("{}", filepath.Join(blocker, "schema.json"))
	suite.Error(err, "Should return error when the parent is a file")
	suite.Contains(err.Error(), "failed to")
}

func (suite *GenerateCmdTestSuite) TestGenerateSampleConfigAlreadyExists() {
	samplePath := filepath.Join(suite.tempDir, "existing-config.yaml")
	originalContent := []byte("existing content")
	suite.Require().NoError(os.WriteFile(samplePath, originalContent, 0644))

	suite.Require().NoError(generateSampleConfig(engine.EmptyConfig(), samplePath, "test-schema.json"))

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal(string(originalContent), string(content), "Existing file should not be overwritten")
}

func (suite *GenerateCmdTestSuite) TestValidatePaths() {
	suite.NoError(validatePaths("/some/path/schema.json", "/some/path/config.yaml"))

	err := validatePaths("", "/some/path/config.yaml")
	suite.ErrorContains(err, "schema path cannot be empty")

	err = validatePaths("/some/path/schema.json", "")
	suite.ErrorContains(err, "sample config path cannot be empty")
}

func (suite *GenerateCmdTestSuite) TestValidateSchemaName() {
	suite.NoError(validateSchemaName("schema.json"))
	suite.NoError(validateSchemaName("my-schema-file.json"))

	suite.ErrorContains(validateSchemaName(""), "schema name cannot be empty")
	suite.ErrorContains(validateSchemaName("schema.txt"), "must have .json extension")
	suite.Error(validateSchemaName("schema"))
}

func (suite *GenerateCmdTestSuite) TestGetSchemaReference() {
	suite.Equal("# yaml-language-server: $schema=test-schema.json\n", getSchemaReference("test-schema.json"))
	suite.Equal("# yaml-language-server: $schema=\n", getSchemaReference(""))
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func TestGenerateCmdSuite(t *testing.T) {
	suite.Run(t, new(GenerateCmdTestSuite))
}
