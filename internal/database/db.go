package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"nvd-api/internal/models"
	"nvd-api/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// topN bounds every ranked result
const topN = 10

type Database struct {
	db     *sql.DB
	logger *logrus.Entry
}

var _ DataStore = &Database{}

// NewDatabase opens the SQLite file at path in read-only mode. The file must
// already exist; the schema and its data are maintained outside this service.
func NewDatabase(path string) (*Database, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, xerrors.Errorf("database file %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, xerrors.Errorf("failed to open database: %w", err)
	}

	// Connections are released as soon as a query has read its rows
	db.SetMaxIdleConns(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, xerrors.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, logger: utils.NewLogger("database")}, nil
}

// SeverityDistribution counts CVE records per base severity, ascending by count
func (d *Database) SeverityDistribution(ctx context.Context) ([]models.SeverityCount, error) {
	const query = `
		SELECT base_severity, count(id) AS n_cve
		FROM cve
		GROUP BY 1
		ORDER BY 2`

	rows, err := d.query(ctx, query)
	if err != nil {
		return nil, xerrors.Errorf("severity distribution: %w", err)
	}
	defer rows.Close()

	results := make([]models.SeverityCount, 0)
	for rows.Next() {
		var severity sql.NullString
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, xerrors.Errorf("severity distribution scan: %w", err)
		}
		label := "null"
		if severity.Valid {
			label = severity.String
		}
		results = append(results, models.SeverityCount{Severity: label, Count: count})
	}
	return results, rows.Err()
}

// SeverityByYear averages the severity rank of the records published each year
func (d *Database) SeverityByYear(ctx context.Context) ([]models.SeverityYear, error) {
	rank, args := severityRankExpr()
	query := `
		SELECT strftime('%Y', published) AS year,
			round(avg(` + rank + `), 2) AS avg_base_severity,
			count(id) AS n_cve
		FROM cve
		GROUP BY 1
		ORDER BY 1`

	rows, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Errorf("severity by year: %w", err)
	}
	defer rows.Close()

	results := make([]models.SeverityYear, 0)
	for rows.Next() {
		var year sql.NullString
		var avg sql.NullFloat64
		var row models.SeverityYear
		if err := rows.Scan(&year, &avg, &row.Count); err != nil {
			return nil, xerrors.Errorf("severity by year scan: %w", err)
		}
		row.Year = nullString(year)
		row.AvgBaseSeverity = nullFloat(avg)
		results = append(results, row)
	}
	return results, rows.Err()
}

// WorstAffected returns the vendors (platform) or vendor/product pairs with the
// most affirmative vulnerability associations
func (d *Database) WorstAffected(ctx context.Context, kind models.AffectedKind) ([]models.AffectedCount, error) {
	var query string
	switch kind {
	case models.AffectedProduct:
		query = `
		SELECT vendor, product, count(cve_id) AS n_cve
		FROM cve_product
		WHERE NOT negate AND vulnerable
		GROUP BY 1, 2
		ORDER BY 3 DESC
		LIMIT ?`
	case models.AffectedPlatform:
		query = `
		SELECT vendor, count(cve_id) AS n_cve
		FROM cve_product
		WHERE NOT negate AND vulnerable
		GROUP BY 1
		ORDER BY 2 DESC
		LIMIT ?`
	default:
		return nil, models.ErrInvalidAffectedKind
	}

	rows, err := d.query(ctx, query, topN)
	if err != nil {
		return nil, xerrors.Errorf("worst %s: %w", kind, err)
	}
	defer rows.Close()

	results := make([]models.AffectedCount, 0)
	for rows.Next() {
		var vendor, product sql.NullString
		var row models.AffectedCount
		if kind == models.AffectedProduct {
			err = rows.Scan(&vendor, &product, &row.Count)
		} else {
			err = rows.Scan(&vendor, &row.Count)
		}
		if err != nil {
			return nil, xerrors.Errorf("worst %s scan: %w", kind, err)
		}
		row.Kind = kind
		row.Vendor = nullString(vendor)
		row.Product = nullString(product)
		results = append(results, row)
	}
	return results, rows.Err()
}

// TopVulnerabilities ranks the vector strings of one CVSS version by the sum
// of the chosen score, then by record count
func (d *Database) TopVulnerabilities(ctx context.Context, ver models.CVSSVersion, score models.ScoreType) ([]models.VectorScore, error) {
	if !ver.Valid() {
		return nil, models.ErrInvalidCVSSVersion
	}
	if !score.Valid() {
		return nil, models.ErrInvalidScoreType
	}

	// column names come from the closed enumerations above, values are bound
	vector, col := ver.VectorColumn(), string(score)
	query := fmt.Sprintf(`
		SELECT %s AS vector_string,
			sum(%s) AS sum_score,
			round(avg(%s * 1.0), 1) AS avg_score,
			count(id) AS n_cve
		FROM cve
		WHERE cvss_ver = ?
		GROUP BY 1
		ORDER BY 2 DESC, 4 DESC
		LIMIT ?`, vector, col, col)

	rows, err := d.query(ctx, query, int(ver), topN)
	if err != nil {
		return nil, xerrors.Errorf("top vulnerabilities v%d %s: %w", ver, score, err)
	}
	defer rows.Close()

	results := make([]models.VectorScore, 0)
	for rows.Next() {
		var vector sql.NullString
		var sum, avg sql.NullFloat64
		var row models.VectorScore
		if err := rows.Scan(&vector, &sum, &avg, &row.Count); err != nil {
			return nil, xerrors.Errorf("top vulnerabilities scan: %w", err)
		}
		row.VectorString = nullString(vector)
		row.SumScore = nullFloat(sum)
		row.AvgScore = nullFloat(avg)
		results = append(results, row)
	}
	return results, rows.Err()
}

// Lookup returns every stored column of the rows whose identifier matches id
// exactly. CVE lookups match cve.cve, product lookups match cve_product.criteria.
func (d *Database) Lookup(ctx context.Context, kind models.LookupKind, id string) ([]models.Record, error) {
	if !kind.Valid() {
		return nil, models.ErrInvalidLookupKind
	}

	table, idColumn := kind.Source()
	cols, err := d.columns(ctx, table)
	if err != nil {
		return nil, xerrors.Errorf("lookup %s: %w", kind, err)
	}

	// coalesce(col, NULL) carries no declared type, so the driver hands back
	// the stored value instead of converting DATETIME or BOOLEAN columns
	exprs := make([]string, 0, len(cols))
	for _, c := range cols {
		q := quoteIdent(c)
		exprs = append(exprs, fmt.Sprintf("coalesce(%s, NULL) AS %s", q, q))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, strings.Join(exprs, ", "), table, idColumn)

	rows, err := d.query(ctx, query, id)
	if err != nil {
		return nil, xerrors.Errorf("lookup %s: %w", kind, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, xerrors.Errorf("lookup %s scan: %w", kind, err)
	}
	return records, nil
}

// columns lists the columns of table in declaration order
func (d *Database) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.query(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, xerrors.Errorf("no such table: %s", table)
	}
	return cols, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if d.logger != nil {
		d.logger.WithField("args", args).Debug(strings.Join(strings.Fields(query), " "))
	}
	return d.db.QueryContext(ctx, query, args...)
}

// severityRankExpr maps base_severity to its numeric rank. Unknown labels map
// to NULL and are ignored by avg().
func severityRankExpr() (string, []interface{}) {
	var b strings.Builder
	args := make([]interface{}, 0, 2*len(models.Severities))

	b.WriteString("CASE base_severity")
	for _, s := range models.Severities {
		rank, _ := s.Rank()
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, string(s), float64(rank))
	}
	b.WriteString(" END")
	return b.String(), args
}

// scanRecords reads every column of every row. TEXT values come back from the
// driver as []byte for untyped columns and are converted to strings.
func scanRecords(rows *sql.Rows) ([]models.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(models.Record, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[c] = string(b)
			} else {
				rec[c] = values[i]
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
