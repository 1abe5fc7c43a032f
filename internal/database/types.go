package database

import (
	"fmt"
	"time"
)

// EmployeeStatus is the employment state of an enrolled identity.
type EmployeeStatus string

const (
	EmployeeActive    EmployeeStatus = "active"
	EmployeeInactive  EmployeeStatus = "inactive"
	EmployeeSuspended EmployeeStatus = "suspended"
)

// AttendanceStatus is the status of one attendance record.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate    AttendanceStatus = "late"
	StatusAbsent  AttendanceStatus = "absent"
	StatusHalfDay AttendanceStatus = "half_day"
	StatusOnLeave AttendanceStatus = "on_leave"
)

// Valid reports whether s is a known attendance status.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusHalfDay, StatusOnLeave:
		return true
	}
	return false
}

// ParseAttendanceStatus validates a status coming from user input.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	status := AttendanceStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown attendance status %q", s)
	}
	return status, nil
}

// DateLayout is the calendar date format used for attendance_date.
const DateLayout = "2006-01-02"

// Employee is an enrolled identity
type Employee struct {
	ID         int64          `json:"employee_id"`
	Code       string         `json:"employee_code"`
	FullName   string         `json:"full_name"`
	Email      *string        `json:"email"`
	Phone      *string        `json:"phone"`
	Department *string        `json:"department"`
	Position   *string        `json:"position"`
	Status     EmployeeStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EmployeeSummary is an employee row of the directory listing
type EmployeeSummary struct {
	Employee
	PhotoCount int `json:"photo_count"`
}

// FaceEncoding is one enrollment photo of an employee
type FaceEncoding struct {
	ID           int64     `json:"encoding_id"`
	EmployeeID   int64     `json:"employee_id"`
	ImagePath    string    `json:"image_path"`
	QualityScore float64   `json:"quality_score"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
}

// AttendanceRecord is the attendance of one employee on one calendar date.
// Nullable columns are pointers.
type AttendanceRecord struct {
	ID                 int64            `json:"attendance_id"`
	EmployeeID         int64            `json:"employee_id"`
	Date               string           `json:"attendance_date"`
	CheckInTime        *time.Time       `json:"check_in_time"`
	CheckOutTime       *time.Time       `json:"check_out_time"`
	Status             AttendanceStatus `json:"status"`
	CheckInConfidence  *float64         `json:"check_in_confidence"`
	CheckOutConfidence *float64         `json:"check_out_confidence"`
	CheckInImagePath   *string          `json:"check_in_image_path,omitempty"`
	CheckOutImagePath  *string          `json:"check_out_image_path,omitempty"`
}

// AttendanceRow is an attendance record joined with the employee display fields
type AttendanceRow struct {
	AttendanceRecord
	EmployeeCode string  `json:"employee_code"`
	FullName     string  `json:"full_name"`
	Department   *string `json:"department"`
	Position     *string `json:"position"`
}

// AttendanceFilter narrows an attendance listing. Zero values mean "no filter".
type AttendanceFilter struct {
	Date       string
	EmployeeID int64
	Status     AttendanceStatus
}

// Page is a limit/offset window. A zero Limit means the default page size.
type Page struct {
	Limit  int
	Offset int
}

// AttendancePage is one page of attendance rows plus the total number of matches
type AttendancePage struct {
	Rows   []AttendanceRow `json:"data"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// DailyStats summarizes one calendar date.
// Absent is derived: active employees without any record that day.
type DailyStats struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
}

// TrendPoint aggregates the records of one date
type TrendPoint struct {
	Date    string `json:"attendance_date"`
	Total   int    `json:"total"`
	Present int    `json:"present"`
	Late    int    `json:"late"`
}

// RecentCheckIn is a check-in shown on the dashboard
type RecentCheckIn struct {
	CheckInTime       time.Time        `json:"check_in_time"`
	Status            AttendanceStatus `json:"status"`
	CheckInConfidence *float64         `json:"check_in_confidence"`
	EmployeeCode      string           `json:"employee_code"`
	FullName          string           `json:"full_name"`
	Department        *string          `json:"department"`
}

// Stats is the dashboard summary
type Stats struct {
	TotalEmployees int             `json:"totalEmployees"`
	Today          DailyStats      `json:"today"`
	RecentCheckIns []RecentCheckIn `json:"recentCheckIns"`
	WeeklyTrend    []TrendPoint    `json:"weeklyTrend"`
}

// EmployeeDetail is an employee with its enrollment photos and recent attendance
type EmployeeDetail struct {
	Employee   Employee           `json:"employee"`
	Photos     []FaceEncoding     `json:"photos"`
	Attendance []AttendanceRecord `json:"attendance"`
}
