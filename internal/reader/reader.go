// Package reader provides database access for reading warehouse usage telemetry.
package reader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/warehouselens/warehouse-sentinel/internal/config"
	"github.com/warehouselens/warehouse-sentinel/internal/model"
)

// MaxQueryRows limits the number of rows returned by the query-history scan.
const MaxQueryRows = 10000

// Reader reads usage telemetry from a PostgreSQL mirror of the warehouse
// account-usage views. It implements insight.TelemetrySource.
type Reader struct {
	db  *sql.DB
	cfg *config.DatabaseConfig

	// Optional mirror tables. Detected once on first use.
	hasLoadHistory    bool
	hasStorageHistory bool

	// catalogOnce ensures the table check runs only once
	catalogOnce sync.Once
	catalogErr  error

	// now is swappable in tests
	now func() time.Time
}

// New creates a new Reader with the given database configuration.
func New(cfg *config.DatabaseConfig) (*Reader, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Reader{
		db:  db,
		cfg: cfg,
		now: time.Now,
	}, nil
}

// Ping tests the database connection.
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *Reader) Close() error {
	return r.db.Close()
}

// checkCatalog verifies the mirror tables exist in the configured schema.
// The metering, query-history, and warehouse catalogs are required; the
// load-history and storage-history mirrors are optional and only disable
// the analyses built on them. Thread-safe: uses sync.Once.
func (r *Reader) checkCatalog(ctx context.Context) error {
	r.catalogOnce.Do(func() {
		rows, err := r.db.QueryContext(ctx, `
			SELECT table_name
			FROM information_schema.tables
			WHERE table_schema = $1
		`, r.cfg.Schema)
		if err != nil {
			r.catalogErr = fmt.Errorf("listing mirror tables: %w", err)
			return
		}
		defer rows.Close()

		present := make(map[string]bool)
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				r.catalogErr = fmt.Errorf("scanning table name: %w", err)
				return
			}
			present[name] = true
		}
		if err := rows.Err(); err != nil {
			r.catalogErr = fmt.Errorf("iterating table names: %w", err)
			return
		}

		var missing []string
		for _, required := range []string{"warehouse_metering_history", "metering_history", "query_history", "warehouses"} {
			if !present[required] {
				missing = append(missing, required)
			}
		}
		if len(missing) > 0 {
			r.catalogErr = fmt.Errorf("schema %s is missing required mirror tables: %v", r.cfg.Schema, missing)
			return
		}

		r.hasLoadHistory = present["warehouse_load_history"]
		if !r.hasLoadHistory {
			log.Printf("Warning: warehouse_load_history not mirrored; utilization-based sizing rules are disabled")
		}
		r.hasStorageHistory = present["database_storage_usage_history"]
		if !r.hasStorageHistory {
			log.Printf("Warning: database_storage_usage_history not mirrored; storage attribution is disabled")
		}

		log.Printf("Catalog check: schema=%s load_history=%v storage_history=%v",
			r.cfg.Schema, r.hasLoadHistory, r.hasStorageHistory)
	})

	return r.catalogErr
}

// HasLoadHistory returns whether the load-history mirror is available.
func (r *Reader) HasLoadHistory() bool {
	return r.hasLoadHistory
}

// table qualifies a mirror table name with the configured schema.
func (r *Reader) table(name string) string {
	return r.cfg.Schema + "." + name
}

func (r *Reader) windowStart(days int) time.Time {
	return r.now().AddDate(0, 0, -days)
}

// DailyCredits returns the account-wide daily credit series for the window.
// Days with no metered usage between the first and last observed day are
// filled with zero-cost points so the series has dense day indices.
func (r *Reader) DailyCredits(ctx context.Context, days int) ([]model.CostPoint, error) {
	if err := r.checkCatalog(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT date_trunc('day', start_time) AS day, SUM(credits_used) AS credits
		FROM %s
		WHERE start_time >= $1
		GROUP BY day
		ORDER BY day
	`, r.table("warehouse_metering_history"))

	rows, err := r.db.QueryContext(ctx, query, r.windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("querying warehouse_metering_history: %w", err)
	}
	defer rows.Close()

	var points []model.CostPoint
	for rows.Next() {
		var p model.CostPoint
		if err := rows.Scan(&p.Date, &p.Cost); err != nil {
			return nil, fmt.Errorf("scanning daily credits row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily credits rows: %w", err)
	}

	return fillDailyGaps(points), nil
}

// fillDailyGaps inserts zero-cost points for days absent between the first
// and last observed day. An idle day costs nothing; it must not silently
// shrink the window the anomaly baseline and trend fit are computed over.
func fillDailyGaps(points []model.CostPoint) []model.CostPoint {
	if len(points) < 2 {
		return points
	}

	filled := make([]model.CostPoint, 0, len(points))
	filled = append(filled, points[0])
	for i := 1; i < len(points); i++ {
		prev := filled[len(filled)-1].Date
		for d := prev.AddDate(0, 0, 1); d.Before(points[i].Date); d = d.AddDate(0, 0, 1) {
			filled = append(filled, model.CostPoint{Date: d, Cost: 0})
		}
		filled = append(filled, points[i])
	}
	return filled
}

// WarehouseSummaries returns one usage rollup per cataloged warehouse.
// Query counts come from the query-history mirror and are authoritative,
// so QueryCountKnown is always set; HasLoadData is set only for warehouses
// with load-history rows in the window.
func (r *Reader) WarehouseSummaries(ctx context.Context, days int) ([]model.ResourceUsageSummary, error) {
	if err := r.checkCatalog(ctx); err != nil {
		return nil, err
	}

	loadJoin := "SELECT NULL::text AS warehouse_name, NULL::float8 AS avg_running WHERE false"
	if r.hasLoadHistory {
		loadJoin = fmt.Sprintf(`
			SELECT warehouse_name, AVG(avg_running) AS avg_running
			FROM %s
			WHERE start_time >= $1
			GROUP BY warehouse_name
		`, r.table("warehouse_load_history"))
	}

	query := fmt.Sprintf(`
		SELECT
			w.name,
			w.size,
			COALESCE(m.total_credits, 0) AS total_credits,
			COALESCE(m.active_days, 0) AS active_days,
			l.avg_running,
			COALESCE(q.query_count, 0) AS query_count,
			COALESCE(q.avg_queued_seconds, 0) AS avg_queued_seconds
		FROM %s w
		LEFT JOIN (
			SELECT warehouse_name,
				SUM(credits_used) AS total_credits,
				COUNT(DISTINCT date_trunc('day', start_time)) AS active_days
			FROM %s
			WHERE start_time >= $1
			GROUP BY warehouse_name
		) m ON m.warehouse_name = w.name
		LEFT JOIN (%s) l ON l.warehouse_name = w.name
		LEFT JOIN (
			SELECT warehouse_name,
				COUNT(*) AS query_count,
				AVG(queued_overload_time) / 1000.0 AS avg_queued_seconds
			FROM %s
			WHERE start_time >= $1
			GROUP BY warehouse_name
		) q ON q.warehouse_name = w.name
		ORDER BY w.name
	`, r.table("warehouses"), r.table("warehouse_metering_history"), loadJoin, r.table("query_history"))

	rows, err := r.db.QueryContext(ctx, query, r.windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("querying warehouse summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.ResourceUsageSummary
	for rows.Next() {
		var (
			s          model.ResourceUsageSummary
			sizeName   string
			avgRunning sql.NullFloat64
		)
		if err := rows.Scan(
			&s.ResourceID,
			&sizeName,
			&s.TotalValue,
			&s.ActivePeriods,
			&avgRunning,
			&s.QueryCount,
			&s.AvgQueueDepth,
		); err != nil {
			return nil, fmt.Errorf("scanning warehouse summary row: %w", err)
		}

		size, err := model.ParseSizeClass(sizeName)
		if err != nil {
			return nil, fmt.Errorf("warehouse %s: %w", s.ResourceID, err)
		}
		s.SizeClass = size
		s.QueryCountKnown = true
		if avgRunning.Valid {
			s.AvgConcurrentLoad = avgRunning.Float64
			s.HasLoadData = true
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating warehouse summary rows: %w", err)
	}

	return summaries, nil
}

// QueryRecords returns the window's problem-candidate query executions.
// The WHERE clause is a superset of every issue predicate, so pre-filtering
// in SQL never hides a query the classifier would have tagged. Times are
// stored in milliseconds and converted to seconds here.
func (r *Reader) QueryRecords(ctx context.Context, days int) ([]model.QueryRecord, error) {
	if err := r.checkCatalog(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			query_id,
			warehouse_name,
			total_elapsed_time / 1000.0 AS elapsed_seconds,
			queued_overload_time / 1000.0 AS queued_seconds,
			compilation_time / 1000.0 AS compiled_seconds,
			bytes_scanned,
			bytes_spilled_to_local_storage,
			bytes_spilled_to_remote_storage,
			partitions_scanned,
			partitions_total,
			execution_status
		FROM %s
		WHERE start_time >= $1
			AND (
				total_elapsed_time > $2
				OR queued_overload_time > $3
				OR bytes_spilled_to_remote_storage > 0
				OR bytes_spilled_to_local_storage > $4
				OR compilation_time > 0
				OR execution_status <> 'SUCCESS'
				OR bytes_scanned > $5
				OR partitions_total > $6
			)
		ORDER BY total_elapsed_time DESC
		LIMIT %d
	`, r.table("query_history"), MaxQueryRows)

	rows, err := r.db.QueryContext(ctx, query,
		r.windowStart(days),
		int64(300*1000),
		int64(60*1000),
		int64(1<<30),
		int64(10<<30),
		int64(100),
	)
	if err != nil {
		return nil, fmt.Errorf("querying query_history: %w", err)
	}
	defer rows.Close()

	var records []model.QueryRecord
	for rows.Next() {
		var q model.QueryRecord
		if err := rows.Scan(
			&q.ID,
			&q.ResourceID,
			&q.ElapsedSeconds,
			&q.QueuedSeconds,
			&q.CompiledSeconds,
			&q.BytesScanned,
			&q.BytesSpilledLocal,
			&q.BytesSpilledRemote,
			&q.PartitionsScanned,
			&q.PartitionsTotal,
			&q.Status,
		); err != nil {
			return nil, fmt.Errorf("scanning query history row: %w", err)
		}
		records = append(records, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query history rows: %w", err)
	}

	return records, nil
}

// CostFacts returns per-group cost rows for one attribution dimension.
func (r *Reader) CostFacts(ctx context.Context, days int, dimension string) ([]model.MetricFact, error) {
	if err := r.checkCatalog(ctx); err != nil {
		return nil, err
	}

	var query string
	switch dimension {
	case "warehouse":
		query = fmt.Sprintf(`
			SELECT date_trunc('day', start_time) AS day, warehouse_name, '' AS dim, SUM(credits_used)
			FROM %s
			WHERE start_time >= $1
			GROUP BY day, warehouse_name
			ORDER BY day
		`, r.table("warehouse_metering_history"))
	case "service":
		query = fmt.Sprintf(`
			SELECT date_trunc('day', start_time) AS day, '' AS resource, service_type, SUM(credits_used)
			FROM %s
			WHERE start_time >= $1
			GROUP BY day, service_type
			ORDER BY day
		`, r.table("metering_history"))
	case "user":
		query = fmt.Sprintf(`
			SELECT date_trunc('day', start_time) AS day, '' AS resource, user_name, SUM(credits_used_cloud_services)
			FROM %s
			WHERE start_time >= $1
			GROUP BY day, user_name
			ORDER BY day
		`, r.table("query_history"))
	default:
		return nil, fmt.Errorf("unknown cost dimension %q", dimension)
	}

	rows, err := r.db.QueryContext(ctx, query, r.windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("querying %s cost facts: %w", dimension, err)
	}
	defer rows.Close()

	var facts []model.MetricFact
	for rows.Next() {
		var f model.MetricFact
		if err := rows.Scan(&f.Timestamp, &f.ResourceID, &f.Dimension, &f.Value); err != nil {
			return nil, fmt.Errorf("scanning %s cost fact: %w", dimension, err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s cost facts: %w", dimension, err)
	}

	return facts, nil
}

// StorageFacts returns the most recent storage footprint per database,
// active plus failsafe bytes. A missing or unreadable storage mirror
// disables the breakdown instead of failing the analysis.
func (r *Reader) StorageFacts(ctx context.Context) ([]model.MetricFact, error) {
	if err := r.checkCatalog(ctx); err != nil {
		return nil, err
	}
	if !r.hasStorageHistory {
		return nil, nil
	}

	table := r.table("database_storage_usage_history")
	query := fmt.Sprintf(`
		SELECT usage_date, database_name,
			average_database_bytes + average_failsafe_bytes AS total_bytes
		FROM %s
		WHERE usage_date = (SELECT MAX(usage_date) FROM %s)
		ORDER BY database_name
	`, table, table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		if isTableNotExistError(err) || isPermissionError(err) {
			log.Printf("Warning: cannot read %s (%v), skipping storage attribution", table, err)
			return nil, nil
		}
		return nil, fmt.Errorf("querying database_storage_usage_history: %w", err)
	}
	defer rows.Close()

	var facts []model.MetricFact
	for rows.Next() {
		var f model.MetricFact
		if err := rows.Scan(&f.Timestamp, &f.Dimension, &f.Value); err != nil {
			return nil, fmt.Errorf("scanning storage row: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating storage rows: %w", err)
	}

	return facts, nil
}

// isTableNotExistError checks if the error is due to a missing view/table.
func isTableNotExistError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 42P01 = undefined_table
		return pqErr.Code == "42P01"
	}
	return false
}

// isPermissionError checks if the error is due to permission denied.
func isPermissionError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 42501 = insufficient_privilege
		return pqErr.Code == "42501"
	}
	return false
}
