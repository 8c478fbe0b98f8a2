package database

import (
	"context"

	"nvd-api/internal/models"
)

// DataStore defines the read-only queries served over the CVE dataset.
type DataStore interface {
	SeverityDistribution(ctx context.Context) ([]models.SeverityCount, error)
	SeverityByYear(ctx context.Context) ([]models.SeverityYear, error)
	WorstAffected(ctx context.Context, kind models.AffectedKind) ([]models.AffectedCount, error)
	TopVulnerabilities(ctx context.Context, ver models.CVSSVersion, score models.ScoreType) ([]models.VectorScore, error)
	Lookup(ctx context.Context, kind models.LookupKind, id string) ([]models.Record, error)
	Close() error
}
