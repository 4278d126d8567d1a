package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"ai-trader/internal/market"
	"ai-trader/internal/types"
)

const cryptoOpeningTemplate = `You are a dedicated %s discretionary trading assistant for %s.

Review the portfolio below and decide on actions for this session. Use the
available tools to check prices and to execute any trade; never just
describe an order.

Session date: %s
Current positions: %s
Yesterday open/close: %s
Today's indicative buy price: %s

Walk through your reasoning step by step. If no trade is warranted, say why.
When you are done, emit %s on its own line.`

// cryptoOpening builds the session opening message from the committed
// position and the price history.
func cryptoOpening(history *market.History, symbol string) func(date string, position types.Snapshot) (string, error) {
	return func(date string, position types.Snapshot) (string, error) {
		posJSON, err := json.Marshal(position.Positions)
		if err != nil {
			return "", err
		}

		day := date
		if i := strings.IndexByte(date, ' '); i > 0 {
			day = date[:i]
		}

		yesterday := "unavailable"
		if prev, ok := history.Previous(day); ok {
			yesterday = fmt.Sprintf("open %.2f / close %.2f", prev.Open, prev.Close)
		}
		today := "unavailable"
		if open, ok := history.OpenPrice(day); ok {
			today = fmt.Sprintf("%.2f", open)
		}

		return fmt.Sprintf(cryptoOpeningTemplate,
			symbol, date, date, string(posJSON), yesterday, today, types.StopSignal,
		), nil
	}
}
