package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotInitialized is returned when no backend has been registered.
var ErrNotInitialized = errors.New("database backend not initialized: DATABASE_URL is required")

var (
	backendMu        sync.RWMutex
	attendanceReader func() AttendanceReader
	employeeReader   func() EmployeeReader
	backendName      string
)

// RegisterBackend registers the repository constructors of the active SQL backend.
// This is called from the command wiring to avoid import cycles.
func RegisterBackend(name string, attendance func() AttendanceReader, employees func() EmployeeReader) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendName = name
	attendanceReader = attendance
	employeeReader = employees
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendName != ""
}

// BackendName returns the name of the registered backend, empty if none.
func BackendName() string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendName
}

// GetAttendanceReader returns an AttendanceReader from the registered backend
func GetAttendanceReader(ctx context.Context) (AttendanceReader, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if backendName == "" {
		return nil, ErrNotInitialized
	}
	if attendanceReader == nil {
		return nil, fmt.Errorf("%s attendance reader not registered", backendName)
	}
	return attendanceReader(), nil
}

// GetEmployeeReader returns an EmployeeReader from the registered backend
func GetEmployeeReader(ctx context.Context) (EmployeeReader, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if backendName == "" {
		return nil, ErrNotInitialized
	}
	if employeeReader == nil {
		return nil, fmt.Errorf("%s employee reader not registered", backendName)
	}
	return employeeReader(), nil
}
