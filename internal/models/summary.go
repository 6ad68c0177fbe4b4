package models

// Signal is a categorical recommendation
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Bollinger band states
const (
	BollingerOverbought = "overbought"
	BollingerOversold   = "oversold"
	BollingerNormal     = "normal"
)

// SummaryRow is the investment summary for one ticker.
// Sub-signals are nil when their inputs were absent and the signal was not evaluated.
type SummaryRow struct {
	Ticker            string   `json:"ticker"`
	PctTechnicalBuy   *float64 `json:"pct_technical_buy"`
	PctFundamentalBuy *float64 `json:"pct_fundamental_buy"`
	FinalDecision     Signal   `json:"final_decision"`
	BollingerState    *string  `json:"bollinger_state"`
	SMAVsEMASignal    *Signal  `json:"sma_vs_ema_signal"`
	MACDSignalLabel   *Signal  `json:"macd_signal_label"`
	RSISignalLabel    *Signal  `json:"rsi_signal_label"`
	PERSignal         *Signal  `json:"per_signal"`
	ROESignal         *Signal  `json:"roe_signal"`
	EPSGrowthSignal   *Signal  `json:"eps_growth_signal"`
	DebtEquitySignal  *Signal  `json:"debt_equity_signal"`
	FibState          *string  `json:"fib_state"`
}
