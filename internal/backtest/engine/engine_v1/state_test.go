package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type BacktestStateTestSuite struct {
	suite.Suite
	state *BacktestState
	now   time.Time
}

func TestBacktestStateSuite(t *testing.T) {
	suite.Run(t, new(BacktestStateTestSuite))
}

func (suite *BacktestStateTestSuite) SetupTest() {
	state, err := NewBacktestState(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(state.Initialize())

	suite.state = state
	suite.now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *BacktestStateTestSuite) TearDownTest() {
	suite.Require().NoError(suite.state.Close())
}

func (suite *BacktestStateTestSuite) order(id string, status types.OrderStatus, fee float64, filledAt time.Time) types.Order {
	return types.Order{
		ID:        id,
		Symbol:    "BTC-USD",
		Side:      types.SideBuy,
		Type:      types.OrderTypeLimit,
		Status:    status,
		Size:      1,
		Funds:     0,
		Price:     100,
		Fee:       fee,
		CreatedAt: suite.now,
		FilledAt:  filledAt,
	}
}

func (suite *BacktestStateTestSuite) TestRecordOrderReplacesById() {
	suite.Require().NoError(suite.state.RecordOrder(suite.order("a", types.OrderStatusOpen, 0, time.Time{})))

	open, err := suite.state.GetOrderByID("a")
	suite.Require().NoError(err)
	suite.Require().True(open.IsSome())
	suite.Equal(types.OrderStatusOpen, open.Unwrap().Status)
	suite.True(open.Unwrap().FilledAt.IsZero())

	filledAt := suite.now.Add(time.Hour)
	suite.Require().NoError(suite.state.RecordOrder(suite.order("a", types.OrderStatusFilled, 0.1, filledAt)))

	filled, err := suite.state.GetOrderByID("a")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, filled.Unwrap().Status)
	suite.Equal(filledAt, filled.Unwrap().FilledAt)
	suite.Equal(suite.now, filled.Unwrap().CreatedAt)

	missing, err := suite.state.GetOrderByID("b")
	suite.Require().NoError(err)
	suite.True(missing.IsNone())
}

func (suite *BacktestStateTestSuite) TestFilledOrdersAndFees() {
	suite.Require().NoError(suite.state.RecordOrder(suite.order("late", types.OrderStatusFilled, 0.5, suite.now.Add(2*time.Hour))))
	suite.Require().NoError(suite.state.RecordOrder(suite.order("early", types.OrderStatusFilled, 0.25, suite.now.Add(time.Hour))))
	suite.Require().NoError(suite.state.RecordOrder(suite.order("open", types.OrderStatusOpen, 0, time.Time{})))

	trades, err := suite.state.GetFilledOrders()
	suite.Require().NoError(err)
	suite.Require().Len(trades, 2)
	suite.Equal("early", trades[0].ID)
	suite.Equal("late", trades[1].ID)

	fees, err := suite.state.TotalFees()
	suite.Require().NoError(err)
	suite.InDelta(0.75, fees, 1e-9)
}

func (suite *BacktestStateTestSuite) TestCleanup() {
	suite.Require().NoError(suite.state.RecordOrder(suite.order("a", types.OrderStatusFilled, 1, suite.now)))
	suite.Require().NoError(suite.state.RecordAccountValue(types.AccountValueSample{Time: suite.now, Value: 1, Holdings: nil}))
	suite.Require().NoError(suite.state.Cleanup())

	trades, err := suite.state.GetFilledOrders()
	suite.Require().NoError(err)
	suite.Empty(trades)

	fees, err := suite.state.TotalFees()
	suite.Require().NoError(err)
	suite.Zero(fees)

	values, err := suite.state.GetAccountValues()
	suite.Require().NoError(err)
	suite.Empty(values)
}

func (suite *BacktestStateTestSuite) TestAccountValuesInTimeOrder() {
	later := suite.now.Add(time.Hour)

	suite.Require().NoError(suite.state.RecordAccountValue(types.AccountValueSample{Time: later, Value: 2, Holdings: nil}))
	suite.Require().NoError(suite.state.RecordAccountValue(types.AccountValueSample{Time: suite.now, Value: 1, Holdings: nil}))

	values, err := suite.state.GetAccountValues()
	suite.Require().NoError(err)
	suite.Require().Len(values, 2)
	suite.True(suite.now.Equal(values[0].Time))
	suite.Equal(1.0, values[0].Value)
	suite.True(later.Equal(values[1].Time))
	suite.Equal(2.0, values[1].Value)
}

func (suite *BacktestStateTestSuite) TestWriteExportsParquet() {
	suite.Require().NoError(suite.state.RecordOrder(suite.order("a", types.OrderStatusFilled, 1, suite.now)))
	suite.Require().NoError(suite.state.RecordAccountValue(types.AccountValueSample{Time: suite.now, Value: 100, Holdings: nil}))

	folder := filepath.Join(suite.T().TempDir(), "run")
	suite.Require().NoError(suite.state.Write(folder))

	for _, name := range []string{TradesFileName, OrdersFileName, AccountValuesFileName} {
		info, err := os.Stat(filepath.Join(folder, name))
		suite.Require().NoError(err, name)
		suite.Positive(info.Size())
	}
}
