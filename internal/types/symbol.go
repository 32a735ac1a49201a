package types

import (
	"strings"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SplitSymbol splits a BASE-QUOTE symbol such as "BTC-USD".
func SplitSymbol(symbol string) (base string, quote string, err error) {
	parts := strings.Split(symbol, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Newf(errors.ErrCodeInvalidParameter, "symbol %q is not in BASE-QUOTE form", symbol)
	}

	return parts[0], parts[1], nil
}

// JoinSymbol builds a BASE-QUOTE symbol.
func JoinSymbol(base, quote string) string {
	return base + "-" + quote
}
