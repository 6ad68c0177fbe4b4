package alphavantage

// TimeSeriesDailyResponse represents the AlphaVantage TIME_SERIES_DAILY response
type TimeSeriesDailyResponse struct {
	apiMessage
	TimeSeries map[string]DailyOHLCV `json:"Time Series (Daily)"`
}

// DailyOHLCV is one day of a TIME_SERIES_DAILY response. AlphaVantage sends every number as a string.
type DailyOHLCV struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// OverviewResponse represents the AlphaVantage OVERVIEW response (company profile and ratios)
type OverviewResponse struct {
	apiMessage
	Symbol                     string `json:"Symbol"`
	Name                       string `json:"Name"`
	Sector                     string `json:"Sector"`
	Industry                   string `json:"Industry"`
	MarketCapitalization       string `json:"MarketCapitalization"`
	PERatio                    string `json:"PERatio"`
	ReturnOnEquityTTM          string `json:"ReturnOnEquityTTM"`
	QuarterlyEarningsGrowthYOY string `json:"QuarterlyEarningsGrowthYOY"`
	ProfitMargin               string `json:"ProfitMargin"`
	DividendYield              string `json:"DividendYield"`
}

// apiMessage holds the fields AlphaVantage uses instead of HTTP status codes
type apiMessage struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}
