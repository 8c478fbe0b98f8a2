package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"nvd-api/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE cve (
	id INTEGER PRIMARY KEY,
	cve TEXT,
	published TEXT,
	base_severity TEXT,
	cvss_ver INTEGER,
	vector_string_v2 TEXT,
	vector_string_v3 TEXT,
	impact_score REAL,
	exploitability_score REAL
);

CREATE TABLE cve_product (
	cve_id TEXT,
	vendor TEXT,
	product TEXT,
	criteria TEXT,
	negate INTEGER,
	vulnerable INTEGER
);
`

const testData = `
INSERT INTO cve VALUES
	(1, 'CVE-2019-0001', '2019-03-01', 'LOW',      2, 'AV:N/AC:L/Au:N/C:P/I:N/A:N', NULL, 2.9, 10.0),
	(2, 'CVE-2019-0002', '2019-07-10', 'HIGH',     2, 'AV:N/AC:L/Au:N/C:P/I:N/A:N', NULL, 6.4, 10.0),
	(3, 'CVE-2019-0003', '2019-11-30', 'MEDIUM',   2, 'AV:N/AC:M/Au:N/C:P/I:N/A:N', NULL, 2.9, 8.6),
	(4, 'CVE-2020-0001', '2020-01-15', 'CRITICAL', 3, NULL, 'CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H', 5.9, 3.9),
	(5, 'CVE-2020-0002', '2020-05-05', 'HIGH',     3, NULL, 'CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H', 5.9, 3.9),
	(6, 'CVE-2020-0003', '2020-06-06', 'CRITICAL', 3, NULL, 'CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:N', 6.0, 3.9),
	(7, 'CVE-2021-0001', '2021-02-02', 'MEDIUM',   3, NULL, 'CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:N/A:N', 3.6, 2.8),
	(8, 'CVE-2021-0002', '2021-08-08', 'LOW',      3, NULL, 'CVSS:3.1/AV:N/AC:H/PR:N/UI:R/S:U/C:L/I:L/A:N', 3.0, 1.6),
	(9, 'CVE-2021-0003', '2021-09-09', 'LOW',      3, NULL, 'CVSS:3.1/AV:N/AC:H/PR:N/UI:R/S:U/C:L/I:L/A:N', 3.0, 1.6);

INSERT INTO cve_product VALUES
	('CVE-2019-0001', 'apache',    'http_server', 'cpe:2.3:a:apache:http_server:2.4.1:*:*:*:*:*:*:*', 0, 1),
	('CVE-2019-0002', 'apache',    'http_server', 'cpe:2.3:a:apache:http_server:2.4.2:*:*:*:*:*:*:*', 0, 1),
	('CVE-2019-0003', 'apache',    'http_server', 'cpe:2.3:a:apache:http_server:2.4.1:*:*:*:*:*:*:*', 0, 1),
	('CVE-2020-0001', 'apache',    'tomcat',      'cpe:2.3:a:apache:tomcat:9.0:*:*:*:*:*:*:*',        0, 1),
	('CVE-2020-0002', 'microsoft', 'windows',     'cpe:2.3:o:microsoft:windows:10:*:*:*:*:*:*:*',     0, 1),
	('CVE-2020-0003', 'microsoft', 'windows',     'cpe:2.3:o:microsoft:windows:10:*:*:*:*:*:*:*',     1, 1),
	('CVE-2021-0001', 'microsoft', 'windows',     'cpe:2.3:o:microsoft:windows:11:*:*:*:*:*:*:*',     0, 0),
	('CVE-2021-0001', 'linux',     'kernel',      'cpe:2.3:o:linux:kernel:5.0:*:*:*:*:*:*:*',         0, 1);
`

func newTestDatabase(t *testing.T) *Database {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every query must see the same in-memory database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	_, err = db.Exec(testData)
	require.NoError(t, err)

	return &Database{db: db}
}

func TestNewDatabase_MissingFile(t *testing.T) {
	_, err := NewDatabase(filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.db")
}

func TestNewDatabase_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvd_cve.db")
	seed, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = seed.Exec(testSchema)
	require.NoError(t, err)
	_, err = seed.Exec(testData)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	db, err := NewDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	dist, err := db.SeverityDistribution(context.Background())
	require.NoError(t, err)
	assert.Len(t, dist, 4)

	_, err = db.db.Exec(`DELETE FROM cve`)
	assert.Error(t, err, "store must be opened read-only")
}

func TestSeverityDistribution(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	dist, err := db.SeverityDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, dist, 4)

	var total int64
	for i, d := range dist {
		total += d.Count
		if i > 0 {
			assert.LessOrEqual(t, dist[i-1].Count, d.Count, "ascending by count")
		}
	}

	var stored int64
	require.NoError(t, db.db.QueryRow(`SELECT count(*) FROM cve`).Scan(&stored))
	assert.Equal(t, stored, total)

	assert.Equal(t, models.SeverityCount{Severity: "LOW", Count: 3}, dist[3])
}

func TestSeverityDistribution_NullSeverity(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	_, err := db.db.Exec(`INSERT INTO cve (id, cve, published) VALUES (10, 'CVE-2022-0001', '2022-01-01')`)
	require.NoError(t, err)

	dist, err := db.SeverityDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, dist, 5)
	assert.Equal(t, models.SeverityCount{Severity: "null", Count: 1}, dist[0])
}

func TestSeverityByYear(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	years, err := db.SeverityByYear(context.Background())
	require.NoError(t, err)
	require.Len(t, years, 3)

	expected := []struct {
		year  string
		avg   float64
		count int64
	}{
		{"2019", 1.0, 3},
		{"2020", 2.67, 3},
		{"2021", 0.33, 3},
	}

	for i, e := range expected {
		require.NotNil(t, years[i].Year)
		require.NotNil(t, years[i].AvgBaseSeverity)
		assert.Equal(t, e.year, *years[i].Year)
		assert.InDelta(t, e.avg, *years[i].AvgBaseSeverity, 1e-9)
		assert.Equal(t, e.count, years[i].Count)
		assert.GreaterOrEqual(t, *years[i].AvgBaseSeverity, 0.0)
		assert.LessOrEqual(t, *years[i].AvgBaseSeverity, 3.0)
	}
}

func TestWorstAffected_Product(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	rows, err := db.WorstAffected(context.Background(), models.AffectedProduct)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	require.NotNil(t, rows[0].Vendor)
	require.NotNil(t, rows[0].Product)
	assert.Equal(t, "apache", *rows[0].Vendor)
	assert.Equal(t, "http_server", *rows[0].Product)
	assert.Equal(t, int64(3), rows[0].Count)

	for _, r := range rows {
		if *r.Vendor == "microsoft" {
			// negated and non-vulnerable associations are excluded
			assert.Equal(t, int64(1), r.Count)
		}
	}
}

func TestWorstAffected_Platform(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	rows, err := db.WorstAffected(context.Background(), models.AffectedPlatform)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "apache", *rows[0].Vendor)
	assert.Equal(t, int64(4), rows[0].Count)
	for i, r := range rows {
		assert.Nil(t, r.Product)
		if i > 0 {
			assert.GreaterOrEqual(t, rows[i-1].Count, r.Count)
		}
	}
}

func TestWorstAffected_NullProduct(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	for i := 0; i < 5; i++ {
		_, err := db.db.Exec(`INSERT INTO cve_product VALUES (?, 'cisco', NULL, 'c', 0, 1)`, fmt.Sprintf("CVE-2022-%04d", i))
		require.NoError(t, err)
	}

	rows, err := db.WorstAffected(context.Background(), models.AffectedProduct)
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	assert.Equal(t, "cisco", *rows[0].Vendor)
	assert.Nil(t, rows[0].Product)
	assert.Equal(t, models.AffectedProduct, rows[0].Kind)

	out, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"vendor":"cisco","product":null,"n_cve":5}`, string(out))
}

func TestWorstAffected_Limit(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	for i := 0; i < 15; i++ {
		_, err := db.db.Exec(`INSERT INTO cve_product VALUES (?, ?, 'p', 'c', 0, 1)`,
			fmt.Sprintf("CVE-2022-%04d", i), fmt.Sprintf("vendor%02d", i))
		require.NoError(t, err)
	}

	rows, err := db.WorstAffected(context.Background(), models.AffectedPlatform)
	require.NoError(t, err)
	assert.Len(t, rows, 10)
}

func TestWorstAffected_InvalidKind(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	_, err := db.WorstAffected(context.Background(), models.AffectedKind("bogus"))
	assert.Equal(t, models.ErrInvalidAffectedKind, err)
}

func TestTopVulnerabilities_ImpactV3(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	rows, err := db.TopVulnerabilities(context.Background(), models.CVSSv3, models.ImpactScore)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	expected := []struct {
		vector string
		sum    float64
		avg    float64
		count  int64
	}{
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", 11.8, 5.9, 2},
		// equal sums are ordered by count
		{"CVSS:3.1/AV:N/AC:H/PR:N/UI:R/S:U/C:L/I:L/A:N", 6.0, 3.0, 2},
		{"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:N", 6.0, 6.0, 1},
		{"CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:N/A:N", 3.6, 3.6, 1},
	}
	for i, e := range expected {
		assert.Equal(t, e.vector, *rows[i].VectorString)
		assert.InDelta(t, e.sum, *rows[i].SumScore, 1e-9)
		assert.InDelta(t, e.avg, *rows[i].AvgScore, 1e-9)
		assert.Equal(t, e.count, rows[i].Count)
	}
}

func TestTopVulnerabilities_ExploitabilityV2(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	rows, err := db.TopVulnerabilities(context.Background(), models.CVSSv2, models.ExploitabilityScore)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "AV:N/AC:L/Au:N/C:P/I:N/A:N", *rows[0].VectorString)
	assert.InDelta(t, 20.0, *rows[0].SumScore, 1e-9)
	assert.InDelta(t, 10.0, *rows[0].AvgScore, 1e-9)
	assert.Equal(t, int64(2), rows[0].Count)
	assert.Equal(t, int64(1), rows[1].Count)
}

func TestTopVulnerabilities_Invalid(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	_, err := db.TopVulnerabilities(context.Background(), models.CVSSVersion(4), models.ImpactScore)
	assert.Equal(t, models.ErrInvalidCVSSVersion, err)

	_, err = db.TopVulnerabilities(context.Background(), models.CVSSv3, models.ScoreType("id"))
	assert.Equal(t, models.ErrInvalidScoreType, err)
}

func TestLookup_CVE(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	records, err := db.Lookup(context.Background(), models.LookupCVE, "CVE-2020-0001")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Len(t, rec, 9)
	assert.Equal(t, "CVE-2020-0001", rec["cve"])
	assert.Equal(t, "2020-01-15", rec["published"])
	assert.Equal(t, "CRITICAL", rec["base_severity"])
	assert.Equal(t, int64(3), rec["cvss_ver"])
	assert.Nil(t, rec["vector_string_v2"])
	assert.Equal(t, 5.9, rec["impact_score"])
}

func TestLookup_ProductMultipleRows(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	records, err := db.Lookup(context.Background(), models.LookupProduct, "cpe:2.3:a:apache:http_server:2.4.1:*:*:*:*:*:*:*")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "apache", rec["vendor"])
	}
}

func TestLookup_StoredValuesUnconverted(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	store := &Database{db: db}
	defer store.Close()

	_, err = db.Exec(`
		CREATE TABLE cve (id INTEGER PRIMARY KEY, cve TEXT, published DATETIME, reviewed TIMESTAMP, flag BOOLEAN);
		CREATE TABLE cve_product (cve_id TEXT, criteria TEXT, "last ""seen""" DATE, negate BOOLEAN, vulnerable BOOLEAN);
		INSERT INTO cve VALUES (1, 'CVE-2021-44228', '2021-12-10T10:15:09.143', '2021-12-14 00:00:00', 1);
		INSERT INTO cve_product VALUES ('CVE-2021-44228', 'cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*', '2022-01-01', 0, 1);
	`)
	require.NoError(t, err)

	records, err := store.Lookup(context.Background(), models.LookupCVE, "CVE-2021-44228")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.Record{
		"id":        int64(1),
		"cve":       "CVE-2021-44228",
		"published": "2021-12-10T10:15:09.143",
		"reviewed":  "2021-12-14 00:00:00",
		"flag":      int64(1),
	}, records[0])

	records, err = store.Lookup(context.Background(), models.LookupProduct, "cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2022-01-01", records[0]["last \"seen\""])
	assert.Equal(t, int64(0), records[0]["negate"])
	assert.Equal(t, int64(1), records[0]["vulnerable"])

	out, err := json.Marshal(records[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"negate":0`)
	assert.Contains(t, string(out), `"vulnerable":1`)
}

func TestLookup_MissingTable(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	store := &Database{db: db}
	defer store.Close()

	_, err = store.Lookup(context.Background(), models.LookupCVE, "CVE-2021-44228")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table: cve")
}

func TestLookup_NoMatch(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	records, err := db.Lookup(context.Background(), models.LookupCVE, "CVE-1999-9999")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Len(t, records, 0)
}

func TestLookup_IdentifierIsBound(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	records, err := db.Lookup(context.Background(), models.LookupCVE, "x' OR '1'='1")
	require.NoError(t, err)
	assert.Len(t, records, 0)

	var count int
	require.NoError(t, db.db.QueryRow(`SELECT count(*) FROM cve`).Scan(&count))
	assert.Equal(t, 9, count)
}

func TestQuery_CancelledContext(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.SeverityDistribution(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSeverityRankExpr(t *testing.T) {
	expr, args := severityRankExpr()
	assert.Equal(t, "CASE base_severity WHEN ? THEN ? WHEN ? THEN ? WHEN ? THEN ? WHEN ? THEN ? END", expr)
	assert.Equal(t, []interface{}{"LOW", 0.0, "MEDIUM", 1.0, "HIGH", 2.0, "CRITICAL", 3.0}, args)
}

func TestClose(t *testing.T) {
	db := newTestDatabase(t)
	err := db.Close()
	assert.NoError(t, err)
}
