// Package attendance reads attendance records, daily statistics and the
// employee directory from the relational store.
package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"go.uber.org/zap"
)

// QueryService implements database.AttendanceReader and database.EmployeeReader
// on top of database/sql. It never writes.
type QueryService struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a QueryService.
type Option func(*QueryService)

// WithClock overrides the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(s *QueryService) {
		s.now = now
	}
}

// WithLogger sets the logger; the global zap logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(s *QueryService) {
		if l != nil {
			s.logger = l.Named("attendance.query")
		}
	}
}

// NewQueryService creates a query service for the given pool and dialect.
func NewQueryService(db *sql.DB, dialect database.Dialect, opts ...Option) *QueryService {
	s := &QueryService{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		logger:  zap.L().Named("attendance.query"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in DateLayout.
func (s *QueryService) Today() string {
	return s.now().Format(database.DateLayout)
}

// args collects bind arguments and renders dialect placeholders for them.
type args struct {
	dialect database.Dialect
	values  []any
}

func (a *args) bind(v any) string {
	a.values = append(a.values, v)
	return a.dialect.Placeholder(len(a.values))
}

const attendanceRowColumns = `
	a.attendance_id,
	a.employee_id,
	a.attendance_date,
	a.check_in_time,
	a.check_out_time,
	a.status,
	a.check_in_confidence,
	a.check_out_confidence,
	a.check_in_image_path,
	a.check_out_image_path,
	e.employee_code,
	e.full_name,
	e.department,
	e.position`

// normalizePage applies the default page size and the upper bound.
func normalizePage(page database.Page) (database.Page, error) {
	if page.Limit < 0 {
		return page, invalidFilter("negative limit %d", page.Limit)
	}
	if page.Offset < 0 {
		return page, invalidFilter("negative offset %d", page.Offset)
	}
	if page.Limit == 0 {
		page.Limit = constants.DefaultAttendanceLimit
	}
	page.Limit = min(page.Limit, constants.MaxAttendanceLimit)
	return page, nil
}

func validateFilter(filter database.AttendanceFilter) error {
	if filter.Date != "" {
		if _, err := time.Parse(database.DateLayout, filter.Date); err != nil {
			return invalidFilter("date %q is not YYYY-MM-DD", filter.Date)
		}
	}
	if filter.EmployeeID < 0 {
		return invalidFilter("employee id %d", filter.EmployeeID)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return invalidFilter("status %q", filter.Status)
	}
	return nil
}

// whereClause renders the filter conditions shared by the listing and its count.
func whereClause(filter database.AttendanceFilter, a *args) string {
	var sb strings.Builder
	sb.WriteString(" WHERE 1=1")
	if filter.Date != "" {
		sb.WriteString(" AND a.attendance_date = " + a.bind(filter.Date))
	}
	if filter.EmployeeID != 0 {
		sb.WriteString(" AND a.employee_id = " + a.bind(filter.EmployeeID))
	}
	if filter.Status != "" {
		sb.WriteString(" AND a.status = " + a.bind(string(filter.Status)))
	}
	return sb.String()
}

// List returns one page of attendance rows, newest date first and latest
// check-in first within a date, plus the number of rows matching the filter.
func (s *QueryService) List(ctx context.Context, filter database.AttendanceFilter, page database.Page) (*database.AttendancePage, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	page, err := normalizePage(page)
	if err != nil {
		return nil, err
	}

	listArgs := &args{dialect: s.dialect}
	query := "SELECT" + attendanceRowColumns + `
	FROM attendance_records a
	JOIN employees e ON a.employee_id = e.employee_id` +
		whereClause(filter, listArgs) +
		" ORDER BY a.attendance_date DESC, a.check_in_time DESC" +
		" LIMIT " + listArgs.bind(page.Limit) +
		" OFFSET " + listArgs.bind(page.Offset)

	rows, err := s.db.QueryContext(ctx, query, listArgs.values...)
	if err != nil {
		s.logger.Error("list attendance failed", zap.Error(err))
		return nil, fetchError("attendance records", err)
	}
	defer rows.Close()

	result := &database.AttendancePage{
		Rows:   []database.AttendanceRow{},
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for rows.Next() {
		row, err := scanAttendanceRow(rows)
		if err != nil {
			return nil, fetchError("attendance records", err)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchError("attendance records", err)
	}

	countArgs := &args{dialect: s.dialect}
	countQuery := "SELECT COUNT(*) FROM attendance_records a" + whereClause(filter, countArgs)
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs.values...).Scan(&result.Total); err != nil {
		s.logger.Error("count attendance failed", zap.Error(err))
		return nil, fetchError("attendance count", err)
	}

	return result, nil
}

// DailyStats summarizes the records of one date. Absent counts active
// employees with no record of any status that day.
func (s *QueryService) DailyStats(ctx context.Context, date string) (*database.DailyStats, error) {
	if _, err := time.Parse(database.DateLayout, date); err != nil {
		return nil, invalidFilter("date %q is not YYYY-MM-DD", date)
	}
	active, err := s.CountActiveEmployees(ctx)
	if err != nil {
		return nil, err
	}
	return s.dailyStats(ctx, date, active)
}

func (s *QueryService) dailyStats(ctx context.Context, date string, active int) (*database.DailyStats, error) {
	a := &args{dialect: s.dialect}
	query := `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'present' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'late' THEN 1 ELSE 0 END), 0)
	FROM attendance_records
	WHERE attendance_date = ` + a.bind(date)

	var stats database.DailyStats
	if err := s.db.QueryRowContext(ctx, query, a.values...).Scan(&stats.Total, &stats.Present, &stats.Late); err != nil {
		s.logger.Error("daily stats failed", zap.String("date", date), zap.Error(err))
		return nil, fetchError("daily stats", err)
	}
	stats.Absent = max(active-stats.Total, 0)
	return &stats, nil
}

// WeeklyTrend aggregates records per date over [today-days, today], oldest first.
// Dates without records are not returned.
func (s *QueryService) WeeklyTrend(ctx context.Context, days int) ([]database.TrendPoint, error) {
	if days <= 0 {
		days = constants.DefaultTrendDays
	}
	today := s.now()
	from := today.AddDate(0, 0, -days).Format(database.DateLayout)
	to := today.Format(database.DateLayout)

	a := &args{dialect: s.dialect}
	query := `SELECT
		attendance_date,
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'present' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'late' THEN 1 ELSE 0 END), 0)
	FROM attendance_records
	WHERE attendance_date >= ` + a.bind(from) + ` AND attendance_date <= ` + a.bind(to) + `
	GROUP BY attendance_date
	ORDER BY attendance_date ASC`

	rows, err := s.db.QueryContext(ctx, query, a.values...)
	if err != nil {
		s.logger.Error("weekly trend failed", zap.Error(err))
		return nil, fetchError("weekly trend", err)
	}
	defer rows.Close()

	trend := []database.TrendPoint{}
	for rows.Next() {
		var (
			p    database.TrendPoint
			date time.Time
		)
		if err := rows.Scan(&date, &p.Total, &p.Present, &p.Late); err != nil {
			return nil, fetchError("weekly trend", err)
		}
		p.Date = date.Format(database.DateLayout)
		trend = append(trend, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchError("weekly trend", err)
	}
	return trend, nil
}

// RecentCheckIns returns the latest check-ins of a date.
func (s *QueryService) RecentCheckIns(ctx context.Context, date string, limit int) ([]database.RecentCheckIn, error) {
	if limit <= 0 {
		limit = constants.RecentCheckInsLimit
	}
	a := &args{dialect: s.dialect}
	query := `SELECT
		a.check_in_time,
		a.status,
		a.check_in_confidence,
		e.employee_code,
		e.full_name,
		e.department
	FROM attendance_records a
	JOIN employees e ON a.employee_id = e.employee_id
	WHERE a.attendance_date = ` + a.bind(date) + ` AND a.check_in_time IS NOT NULL
	ORDER BY a.check_in_time DESC
	LIMIT ` + a.bind(limit)

	rows, err := s.db.QueryContext(ctx, query, a.values...)
	if err != nil {
		s.logger.Error("recent check-ins failed", zap.Error(err))
		return nil, fetchError("recent check-ins", err)
	}
	defer rows.Close()

	recent := []database.RecentCheckIn{}
	for rows.Next() {
		var (
			r          database.RecentCheckIn
			status     string
			confidence sql.NullFloat64
			department sql.NullString
		)
		if err := rows.Scan(&r.CheckInTime, &status, &confidence, &r.EmployeeCode, &r.FullName, &department); err != nil {
			return nil, fetchError("recent check-ins", err)
		}
		r.Status = database.AttendanceStatus(status)
		r.CheckInConfidence = floatPtr(confidence)
		r.Department = stringPtr(department)
		recent = append(recent, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchError("recent check-ins", err)
	}
	return recent, nil
}

// Stats assembles the dashboard summary for today.
func (s *QueryService) Stats(ctx context.Context) (*database.Stats, error) {
	today := s.Today()

	active, err := s.CountActiveEmployees(ctx)
	if err != nil {
		return nil, err
	}
	daily, err := s.dailyStats(ctx, today, active)
	if err != nil {
		return nil, err
	}
	recent, err := s.RecentCheckIns(ctx, today, constants.RecentCheckInsLimit)
	if err != nil {
		return nil, err
	}
	trend, err := s.WeeklyTrend(ctx, constants.DefaultTrendDays)
	if err != nil {
		return nil, err
	}

	return &database.Stats{
		TotalEmployees: active,
		Today:          *daily,
		RecentCheckIns: recent,
		WeeklyTrend:    trend,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttendanceRow(sc scanner) (database.AttendanceRow, error) {
	var (
		row        database.AttendanceRow
		date       time.Time
		status     string
		checkIn    sql.NullTime
		checkOut   sql.NullTime
		inConf     sql.NullFloat64
		outConf    sql.NullFloat64
		inPath     sql.NullString
		outPath    sql.NullString
		department sql.NullString
		position   sql.NullString
	)
	err := sc.Scan(
		&row.ID, &row.EmployeeID, &date, &checkIn, &checkOut, &status,
		&inConf, &outConf, &inPath, &outPath,
		&row.EmployeeCode, &row.FullName, &department, &position,
	)
	if err != nil {
		return row, fmt.Errorf("scanning attendance row: %w", err)
	}
	row.Date = date.Format(database.DateLayout)
	row.Status = database.AttendanceStatus(status)
	row.CheckInTime = timePtr(checkIn)
	row.CheckOutTime = timePtr(checkOut)
	row.CheckInConfidence = floatPtr(inConf)
	row.CheckOutConfidence = floatPtr(outConf)
	row.CheckInImagePath = stringPtr(inPath)
	row.CheckOutImagePath = stringPtr(outPath)
	row.Department = stringPtr(department)
	row.Position = stringPtr(position)
	return row, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	return &nf.Float64
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	return &nt.Time
}

// Compile-time interface checks
var (
	_ database.AttendanceReader = (*QueryService)(nil)
	_ database.EmployeeReader   = (*QueryService)(nil)
)
