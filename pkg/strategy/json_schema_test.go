package strategy

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type JSONSchemaTestSuite struct {
	suite.Suite
}

func TestJSONSchemaTestSuite(t *testing.T) {
	suite.Run(t, new(JSONSchemaTestSuite))
}

func (suite *JSONSchemaTestSuite) TestToJSONSchema() {
	type TestConfig struct {
		FastPeriod int    `yaml:"fastPeriod" jsonschema:"title=Fast Period,description=The period for the fast moving average,minimum=1,default=5"`
		SlowPeriod int    `yaml:"slowPeriod" jsonschema:"title=Slow Period,description=The period for the slow moving average,minimum=1,default=20"`
		Symbol     string `yaml:"symbol" jsonschema:"title=Symbol,description=The symbol to trade,default=AAPL"`
	}

	schema, err := ToJSONSchema(TestConfig{})
	suite.NoError(err)
	suite.Contains(schema, `"fastPeriod"`)
	suite.Contains(schema, `"default":"AAPL"`)
	suite.NotContains(schema, "$defs")
}
