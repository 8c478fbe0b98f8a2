package models

import "encoding/json"

// SeverityCount is one group of the severity distribution
type SeverityCount struct {
	Severity string
	Count    int64
}

// SeverityYear is the severity trend for a single publication year
type SeverityYear struct {
	Year            *string  `json:"year"`
	AvgBaseSeverity *float64 `json:"avg_base_severity"`
	Count           int64    `json:"n_cve"`
}

// AffectedCount is a vendor (platform) or vendor/product pair with the number
// of vulnerabilities affecting it. Product is ignored for platform rows.
type AffectedCount struct {
	Kind    AffectedKind
	Vendor  *string
	Product *string
	Count   int64
}

type productCount struct {
	Vendor  *string `json:"vendor"`
	Product *string `json:"product"`
	Count   int64   `json:"n_cve"`
}

type platformCount struct {
	Vendor *string `json:"vendor"`
	Count  int64   `json:"n_cve"`
}

// MarshalJSON always emits the product key on product rows, as null when the
// stored product is NULL, and never on platform rows
func (a AffectedCount) MarshalJSON() ([]byte, error) {
	if a.Kind == AffectedProduct {
		return json.Marshal(productCount{Vendor: a.Vendor, Product: a.Product, Count: a.Count})
	}
	return json.Marshal(platformCount{Vendor: a.Vendor, Count: a.Count})
}

// VectorScore aggregates a score over every record sharing a vector string
type VectorScore struct {
	VectorString *string  `json:"vector_string"`
	SumScore     *float64 `json:"sum_score"`
	AvgScore     *float64 `json:"avg_score"`
	Count        int64    `json:"n_cve"`
}

// Record is a stored row keyed by column name
type Record map[string]interface{}

// RouteInfo describes a registered endpoint
type RouteInfo struct {
	Name        string
	Path        string
	Methods     []string
	Description string
}
