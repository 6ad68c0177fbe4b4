package models

// WarningCode categorizes warnings by subsystem.
// W1xxx = ingest, W2xxx = indicators, W3xxx = validation, W4xxx = summary.
type WarningCode string

const (
	WarnMissingColumnValue WarningCode = "W1001" // optional column empty, stored as NULL
	WarnStaleData          WarningCode = "W1002" // newest price bar is older than the last trading day
	WarnSecurityFailed     WarningCode = "W2001" // indicator computation aborted for one security
	WarnMalformedRecord    WarningCode = "W3001" // record skipped because a required field is missing or mistyped
	WarnSummaryExcluded    WarningCode = "W4001" // ticker missing indicators, price or fundamentals; left out of the summary
)

// Warning represents a non-fatal issue encountered during processing.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}
