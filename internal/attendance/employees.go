package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"go.uber.org/zap"
)

const employeeColumns = `
	e.employee_id,
	e.employee_code,
	e.full_name,
	e.email,
	e.phone,
	e.department,
	e.position,
	e.status,
	e.created_at`

// ListEmployees returns every employee with the number of enrollment photos, newest first.
func (s *QueryService) ListEmployees(ctx context.Context) ([]database.EmployeeSummary, error) {
	query := "SELECT" + employeeColumns + `,
	COUNT(fe.encoding_id)
	FROM employees e
	LEFT JOIN face_encodings fe ON e.employee_id = fe.employee_id
	GROUP BY` + employeeColumns + `
	ORDER BY e.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error("list employees failed", zap.Error(err))
		return nil, fetchError("employees", err)
	}
	defer rows.Close()

	employees := []database.EmployeeSummary{}
	for rows.Next() {
		var summary database.EmployeeSummary
		emp, err := scanEmployee(rows, &summary.PhotoCount)
		if err != nil {
			return nil, fetchError("employees", err)
		}
		summary.Employee = emp
		employees = append(employees, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchError("employees", err)
	}
	return employees, nil
}

// GetEmployeeDetail returns an employee with enrollment photos (primary first)
// and the most recent attendance records. It returns nil when the employee does not exist.
func (s *QueryService) GetEmployeeDetail(ctx context.Context, employeeID int64) (*database.EmployeeDetail, error) {
	a := &args{dialect: s.dialect}
	query := "SELECT" + employeeColumns + " FROM employees e WHERE e.employee_id = " + a.bind(employeeID)

	emp, err := scanEmployee(s.db.QueryRowContext(ctx, query, a.values...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("get employee failed", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fetchError("employee", err)
	}

	photos, err := s.employeePhotos(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	history, err := s.employeeAttendance(ctx, employeeID, constants.EmployeeHistoryLimit)
	if err != nil {
		return nil, err
	}

	return &database.EmployeeDetail{
		Employee:   emp,
		Photos:     photos,
		Attendance: history,
	}, nil
}

func (s *QueryService) employeePhotos(ctx context.Context, employeeID int64) ([]database.FaceEncoding, error) {
	a := &args{dialect: s.dialect}
	query := `SELECT encoding_id, employee_id, image_path, quality_score, is_primary, created_at
	FROM face_encodings
	WHERE employee_id = ` + a.bind(employeeID)

	rows, err := s.db.QueryContext(ctx, query, a.values...)
	if err != nil {
		s.logger.Error("list photos failed", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fetchError("employee photos", err)
	}
	defer rows.Close()

	photos := []database.FaceEncoding{}
	for rows.Next() {
		var (
			p       database.FaceEncoding
			quality sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.ImagePath, &quality, &p.IsPrimary, &p.CreatedAt); err != nil {
			return nil, fetchError("employee photos", err)
		}
		p.QualityScore = quality.Float64
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchError("employee photos", err)
	}

	database.SortPhotos(photos)
	return photos, nil
}

func (s *QueryService) employeeAttendance(ctx context.Context, employeeID int64, limit int) ([]database.AttendanceRecord, error) {
	a := &args{dialect: s.dialect}
	query := `SELECT attendance_id, employee_id, attendance_date, check_in_time, check_out_time,
		status, check_in_confidence, check_out_confidence
	FROM attendance_records
	WHERE employee_id = ` + a.bind(employeeID) + `
	ORDER BY attendance_date DESC
	LIMIT ` + a.bind(limit)

	rows, err := s.db.QueryContext(ctx, query, a.values...)
	if err != nil {
		s.logger.Error("employee attendance failed", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fetchError("employee attendance", err)
	}
	defer rows.Close()

	records := []database.AttendanceRecord{}
	for rows.Next() {
		var (
			r        database.AttendanceRecord
			date     time.Time
			status   string
			checkIn  sql.NullTime
			checkOut sql.NullTime
			inConf   sql.NullFloat64
			outConf  sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.EmployeeID, &date, &checkIn, &checkOut, &status, &inConf, &outConf); err != nil {
			return nil, fetchError("employee attendance", err)
		}
		r.Date = date.Format(database.DateLayout)
		r.Status = database.AttendanceStatus(status)
		r.CheckInTime = timePtr(checkIn)
		r.CheckOutTime = timePtr(checkOut)
		r.CheckInConfidence = floatPtr(inConf)
		r.CheckOutConfidence = floatPtr(outConf)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fetchError("employee attendance", err)
	}
	return records, nil
}

// CountActiveEmployees returns the number of employees with status active.
func (s *QueryService) CountActiveEmployees(ctx context.Context) (int, error) {
	a := &args{dialect: s.dialect}
	query := "SELECT COUNT(*) FROM employees WHERE status = " + a.bind(string(database.EmployeeActive))

	var n int
	if err := s.db.QueryRowContext(ctx, query, a.values...).Scan(&n); err != nil {
		s.logger.Error("count active employees failed", zap.Error(err))
		return 0, fetchError("active employees", err)
	}
	return n, nil
}

// scanEmployee scans the employeeColumns followed by any extra destinations.
func scanEmployee(sc scanner, extra ...any) (database.Employee, error) {
	var (
		emp                                database.Employee
		status                             string
		email, phone, department, position sql.NullString
	)
	dest := append([]any{
		&emp.ID, &emp.Code, &emp.FullName, &email, &phone, &department, &position, &status, &emp.CreatedAt,
	}, extra...)
	if err := sc.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emp, err
		}
		return emp, fmt.Errorf("scanning employee: %w", err)
	}
	emp.Status = database.EmployeeStatus(status)
	emp.Email = stringPtr(email)
	emp.Phone = stringPtr(phone)
	emp.Department = stringPtr(department)
	emp.Position = stringPtr(position)
	return emp, nil
}
