package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/climatescope/climatescope/internal/logger"
	"github.com/climatescope/climatescope/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReportWriteRepository handles report write operations. Writes pick up the
// per-request transaction from the context so that inserting a report and
// appending the user's back-reference commit or roll back together.
type ReportWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewReportWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *ReportWriteRepository {
	return &ReportWriteRepository{db: db, txGetter: txGetter}
}

func (r *ReportWriteRepository) executor(ctx context.Context) sqlx.ExtContext {
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return r.db
}

// Save inserts a new report row and fills in the generated identifier and
// timestamps on the passed report.
func (r *ReportWriteRepository) Save(ctx context.Context, report *models.ReportDB) error {
	const query = `
		INSERT INTO reports (
			report_id, user_id, location_name, search_city, search_country,
			latitude, longitude, requested_start_date, requested_end_date,
			api_latitude, api_longitude, elevation, generationtime_ms,
			timezone, timezone_abbreviation, utc_offset_seconds,
			daily_units, daily_data, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW())
		RETURNING report_id, created_at, updated_at
	`

	report.ReportID = uuid.New()
	args := []any{
		report.ReportID, report.UserID, report.LocationName, report.SearchCity, report.SearchCountry,
		report.Latitude, report.Longitude, report.RequestedStartDate, report.RequestedEndDate,
		report.APILatitude, report.APILongitude, report.Elevation, report.GenerationTimeMS,
		report.Timezone, report.TimezoneAbbreviation, report.UTCOffsetSeconds,
		report.DailyUnits, report.DailyData,
	}

	row := r.executor(ctx).QueryRowxContext(ctx, query, args...)
	err := row.Scan(&report.ReportID, &report.CreatedAt, &report.UpdatedAt)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{report.UserID, report.LocationName},
		"result", report.ReportID,
		"error", err,
	)

	return err
}

// AppendUserReport adds the report to the owner's report list.
func (r *ReportWriteRepository) AppendUserReport(ctx context.Context, userID, reportID uuid.UUID) error {
	const query = `
		INSERT INTO user_reports (user_id, report_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, report_id) DO NOTHING
	`

	res, err := r.executor(ctx).ExecContext(ctx, query, userID, reportID)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{userID, reportID},
		"result", rowsAffected,
		"error", err,
	)

	return err
}

// InsertMissingUserReports re-creates back-references for reports that are
// missing from user_reports. Returns the number of repaired rows.
func (r *ReportWriteRepository) InsertMissingUserReports(ctx context.Context) (int64, error) {
	const query = `
		INSERT INTO user_reports (user_id, report_id, created_at)
		SELECT rep.user_id, rep.report_id, NOW()
		FROM reports rep
		LEFT JOIN user_reports ur
		  ON ur.user_id = rep.user_id AND ur.report_id = rep.report_id
		WHERE ur.report_id IS NULL
	`

	res, err := r.db.ExecContext(ctx, query)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"result", rowsAffected,
		"error", err,
	)

	return rowsAffected, err
}

// DeleteOrphanUserReports removes back-references whose report no longer
// exists. Returns the number of deleted rows.
func (r *ReportWriteRepository) DeleteOrphanUserReports(ctx context.Context) (int64, error) {
	const query = `
		DELETE FROM user_reports ur
		WHERE NOT EXISTS (
			SELECT 1 FROM reports rep WHERE rep.report_id = ur.report_id
		)
	`

	res, err := r.db.ExecContext(ctx, query)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"result", rowsAffected,
		"error", err,
	)

	return rowsAffected, err
}

// ReportReadRepository handles report read operations.
type ReportReadRepository struct {
	db *sqlx.DB
}

func NewReportReadRepository(db *sqlx.DB) *ReportReadRepository {
	return &ReportReadRepository{db: db}
}

// GetByID returns the report with the given identifier, or (nil, nil) when
// no such report exists.
func (r *ReportReadRepository) GetByID(ctx context.Context, reportID uuid.UUID) (*models.ReportDB, error) {
	const query = `
		SELECT report_id, user_id, location_name, search_city, search_country,
		       latitude, longitude, requested_start_date, requested_end_date,
		       api_latitude, api_longitude, elevation, generationtime_ms,
		       timezone, timezone_abbreviation, utc_offset_seconds,
		       daily_units, daily_data, created_at, updated_at
		FROM reports
		WHERE report_id = $1
	`

	var report models.ReportDB
	err := r.db.GetContext(ctx, &report, query, reportID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{reportID},
		"error", err,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &report, nil
}

// GetIDsByUserID returns the identifiers of all reports owned by a user,
// newest first.
func (r *ReportReadRepository) GetIDsByUserID(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	const query = `
		SELECT report_id
		FROM user_reports
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, query, userID)

	logger.Log.Infow(
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{userID},
		"result", len(ids),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return ids, nil
}
