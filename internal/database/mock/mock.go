// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// MockAttendanceReader is a mock implementation of database.AttendanceReader.
// It returns canned results and records the arguments of the last calls.
type MockAttendanceReader struct {
	mu sync.RWMutex

	Rows      []database.AttendanceRow
	Daily     database.DailyStats
	Trend     []database.TrendPoint
	Recent    []database.RecentCheckIn
	Summary   *database.Stats
	StatsHits int

	LastFilter database.AttendanceFilter
	LastPage   database.Page

	// Error injection
	ListError   error
	DailyError  error
	TrendError  error
	RecentError error
	StatsError  error
}

// NewMockAttendanceReader creates a new mock attendance reader
func NewMockAttendanceReader() *MockAttendanceReader {
	return &MockAttendanceReader{}
}

// AddRow adds an attendance row to the mock store
func (m *MockAttendanceReader) AddRow(row database.AttendanceRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows = append(m.Rows, row)
}

// List filters the stored rows and applies the page window
func (m *MockAttendanceReader) List(ctx context.Context, filter database.AttendanceFilter, page database.Page) (*database.AttendancePage, error) {
	m.mu.Lock()
	m.LastFilter = filter
	m.LastPage = page
	m.mu.Unlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []database.AttendanceRow
	for _, r := range m.Rows {
		if filter.Date != "" && r.Date != filter.Date {
			continue
		}
		if filter.EmployeeID != 0 && r.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		matched = append(matched, r)
	}
	slices.SortStableFunc(matched, func(a, b database.AttendanceRow) int {
		return cmp.Compare(b.Date, a.Date)
	})

	limit := page.Limit
	if limit <= 0 {
		limit = len(matched)
	}
	start := min(page.Offset, len(matched))
	end := min(start+limit, len(matched))

	return &database.AttendancePage{
		Rows:   matched[start:end],
		Total:  len(matched),
		Limit:  page.Limit,
		Offset: page.Offset,
	}, nil
}

// DailyStats returns the canned daily stats
func (m *MockAttendanceReader) DailyStats(ctx context.Context, date string) (*database.DailyStats, error) {
	if m.DailyError != nil {
		return nil, m.DailyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d := m.Daily
	return &d, nil
}

// WeeklyTrend returns the canned trend
func (m *MockAttendanceReader) WeeklyTrend(ctx context.Context, days int) ([]database.TrendPoint, error) {
	if m.TrendError != nil {
		return nil, m.TrendError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.Trend), nil
}

// RecentCheckIns returns at most limit canned check-ins
func (m *MockAttendanceReader) RecentCheckIns(ctx context.Context, date string, limit int) ([]database.RecentCheckIn, error) {
	if m.RecentError != nil {
		return nil, m.RecentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.Recent[:min(limit, len(m.Recent))]), nil
}

// Stats returns Summary when set, otherwise assembles one from the canned parts
func (m *MockAttendanceReader) Stats(ctx context.Context) (*database.Stats, error) {
	m.mu.Lock()
	m.StatsHits++
	m.mu.Unlock()

	if m.StatsError != nil {
		return nil, m.StatsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Summary != nil {
		s := *m.Summary
		return &s, nil
	}
	return &database.Stats{
		Today:          m.Daily,
		RecentCheckIns: slices.Clone(m.Recent),
		WeeklyTrend:    slices.Clone(m.Trend),
	}, nil
}

// MockEmployeeReader is a mock implementation of database.EmployeeReader
type MockEmployeeReader struct {
	mu        sync.RWMutex
	employees []database.EmployeeSummary
	details   map[int64]*database.EmployeeDetail

	// Error injection
	ListError   error
	DetailError error
	CountError  error
}

// NewMockEmployeeReader creates a new mock employee reader
func NewMockEmployeeReader() *MockEmployeeReader {
	return &MockEmployeeReader{
		details: make(map[int64]*database.EmployeeDetail),
	}
}

// AddEmployee adds an employee to the mock store.
// The detail view is derived from the summary and the given photos.
func (m *MockEmployeeReader) AddEmployee(emp database.EmployeeSummary, photos ...database.FaceEncoding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp.PhotoCount = max(emp.PhotoCount, len(photos))
	m.employees = append(m.employees, emp)
	sorted := slices.Clone(photos)
	database.SortPhotos(sorted)
	m.details[emp.ID] = &database.EmployeeDetail{
		Employee: emp.Employee,
		Photos:   sorted,
	}
}

// AddAttendance attaches an attendance record to an employee's detail view
func (m *MockEmployeeReader) AddAttendance(rec database.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.details[rec.EmployeeID]; ok {
		d.Attendance = append(d.Attendance, rec)
	}
}

// ListEmployees returns all stored employees
func (m *MockEmployeeReader) ListEmployees(ctx context.Context) ([]database.EmployeeSummary, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.employees), nil
}

// GetEmployeeDetail returns the detail view, nil if the employee is unknown
func (m *MockEmployeeReader) GetEmployeeDetail(ctx context.Context, employeeID int64) (*database.EmployeeDetail, error) {
	if m.DetailError != nil {
		return nil, m.DetailError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.details[employeeID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

// CountActiveEmployees counts stored employees with status active
func (m *MockEmployeeReader) CountActiveEmployees(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.employees {
		if e.Status == database.EmployeeActive {
			n++
		}
	}
	return n, nil
}

// Compile-time interface checks
var (
	_ database.AttendanceReader = (*MockAttendanceReader)(nil)
	_ database.EmployeeReader   = (*MockEmployeeReader)(nil)
)
