package mocks

//go:generate mockgen -destination=./mock_trading.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/trading TradingSystem
//go:generate mockgen -destination=./mock_exchange.go -package=mocks github.com/rxtech-lab/argo-backtest/pkg/exchange Exchange,HistorySource
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource Store
