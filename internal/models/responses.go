package models

// ErrorResponse is returned for rejected path parameters and store failures
type ErrorResponse struct {
	Error string `json:"error"`
}

// HelpResponse is the body of the route catalog
type HelpResponse struct {
	Code int                 `json:"code"`
	Data []map[string]string `json:"data"`
}

type SeverityDistributionResponse struct {
	SeverityDistribution []map[string]int64 `json:"severity_distribution"`
}

// SeverityYearResponse reuses the severity_distribution key for the trend rows
type SeverityYearResponse struct {
	SeverityDistribution []SeverityYear `json:"severity_distribution"`
}

type WorstResponse struct {
	Type   AffectedKind    `json:"type"`
	Result []AffectedCount `json:"result"`
}

type TopVulnerabilitiesResponse struct {
	CVSSVersion CVSSVersion   `json:"cvss_ver"`
	ScoreType   ScoreType     `json:"score_type"`
	Result      []VectorScore `json:"result"`
}

type LookupResponse struct {
	Type   LookupKind `json:"type"`
	Result []Record   `json:"result"`
}
