package models

import (
	"strconv"

	"golang.org/x/xerrors"
)

// Validation errors. Their text is returned to the client as-is.
var (
	ErrInvalidAffectedKind = xerrors.New("prod_or_plat not in [product,platform]")
	ErrInvalidCVSSVersion  = xerrors.New("cvss_ver needs to be 2 or 3")
	ErrInvalidScoreType    = xerrors.New("score needs to be impact_score or exploitability_score")
	ErrInvalidLookupKind   = xerrors.New("cve_or_prod needs to be cve or product")
)

// IsValidationError reports whether err rejects a path parameter
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidAffectedKind,
		ErrInvalidCVSSVersion,
		ErrInvalidScoreType,
		ErrInvalidLookupKind,
	} {
		if xerrors.Is(err, target) {
			return true
		}
	}
	return false
}

// Severity is the base severity category of a CVE record
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every severity in ascending order. The index of a severity
// is its numeric rank (LOW=0 ... CRITICAL=3).
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the numeric mapping of the severity used for trend averages
func (s Severity) Rank() (int, bool) {
	for i, sev := range Severities {
		if sev == s {
			return i, true
		}
	}
	return 0, false
}

// AffectedKind selects how product associations are aggregated
type AffectedKind string

const (
	AffectedProduct  AffectedKind = "product"
	AffectedPlatform AffectedKind = "platform"
)

func ParseAffectedKind(s string) (AffectedKind, error) {
	switch k := AffectedKind(s); k {
	case AffectedProduct, AffectedPlatform:
		return k, nil
	}
	return "", ErrInvalidAffectedKind
}

// CVSSVersion is the CVSS major version a record was scored with
type CVSSVersion int

const (
	CVSSv2 CVSSVersion = 2
	CVSSv3 CVSSVersion = 3
)

// ParseCVSSVersion accepts the path segment form ("2" or "3")
func ParseCVSSVersion(s string) (CVSSVersion, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidCVSSVersion
	}
	if v := CVSSVersion(n); v.Valid() {
		return v, nil
	}
	return 0, ErrInvalidCVSSVersion
}

func (v CVSSVersion) Valid() bool {
	return v == CVSSv2 || v == CVSSv3
}

// VectorColumn is the cve column holding the vector string for this version
func (v CVSSVersion) VectorColumn() string {
	if v == CVSSv2 {
		return "vector_string_v2"
	}
	return "vector_string_v3"
}

// ScoreType is a CVSS sub-score. Its value is also the cve column name.
type ScoreType string

const (
	ImpactScore         ScoreType = "impact_score"
	ExploitabilityScore ScoreType = "exploitability_score"
)

func ParseScoreType(s string) (ScoreType, error) {
	if t := ScoreType(s); t.Valid() {
		return t, nil
	}
	return "", ErrInvalidScoreType
}

func (s ScoreType) Valid() bool {
	return s == ImpactScore || s == ExploitabilityScore
}

// LookupKind selects the table searched by an identifier lookup
type LookupKind string

const (
	LookupCVE     LookupKind = "cve"
	LookupProduct LookupKind = "product"
)

func ParseLookupKind(s string) (LookupKind, error) {
	if k := LookupKind(s); k.Valid() {
		return k, nil
	}
	return "", ErrInvalidLookupKind
}

func (k LookupKind) Valid() bool {
	return k == LookupCVE || k == LookupProduct
}

// Source returns the table and id column searched for this kind
func (k LookupKind) Source() (table, idColumn string) {
	if k == LookupProduct {
		return "cve_product", "criteria"
	}
	return "cve", "cve"
}
