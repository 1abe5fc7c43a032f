package database

import (
	"context"
)

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// List returns one page of attendance rows matching the filter, newest first,
	// together with the total number of matches.
	List(ctx context.Context, filter AttendanceFilter, page Page) (*AttendancePage, error)
	// DailyStats summarizes the records of a calendar date (YYYY-MM-DD).
	DailyStats(ctx context.Context, date string) (*DailyStats, error)
	// WeeklyTrend aggregates the trailing days; dates without records are omitted.
	WeeklyTrend(ctx context.Context, days int) ([]TrendPoint, error)
	// RecentCheckIns returns the latest check-ins of a date.
	RecentCheckIns(ctx context.Context, date string, limit int) ([]RecentCheckIn, error)
	// Stats assembles the dashboard summary for today.
	Stats(ctx context.Context) (*Stats, error)
}

// EmployeeReader provides read-only access to enrolled employees
type EmployeeReader interface {
	// ListEmployees returns all employees with their enrollment photo count, newest first.
	ListEmployees(ctx context.Context) ([]EmployeeSummary, error)
	// GetEmployeeDetail returns an employee with photos and recent attendance, nil if not found.
	GetEmployeeDetail(ctx context.Context, employeeID int64) (*EmployeeDetail, error)
	// CountActiveEmployees returns the number of employees with status active.
	CountActiveEmployees(ctx context.Context) (int, error)
}
