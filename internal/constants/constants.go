// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Enrollment constants
const (
	// MinEnrollmentPhotos is the minimum number of face photos needed to enroll an employee
	MinEnrollmentPhotos = 3

	// MaxEnrollmentPhotos is the maximum number of face photos accepted per enrollment
	MaxEnrollmentPhotos = 5
)

// Capture constants
const (
	// CaptureWidth and CaptureHeight are the preferred camera resolution
	CaptureWidth  = 640
	CaptureHeight = 480

	// CaptureJPEGQuality is the JPEG quality of captured stills (0.95)
	CaptureJPEGQuality = 95
)

// Query constants
const (
	// DefaultAttendanceLimit is the page size for attendance listings when none is given
	DefaultAttendanceLimit = 50

	// MaxAttendanceLimit caps a single attendance page
	MaxAttendanceLimit = 1000

	// EmployeeHistoryLimit is the number of attendance rows shown on an employee detail
	EmployeeHistoryLimit = 30

	// RecentCheckInsLimit is the number of recent check-ins included in stats
	RecentCheckInsLimit = 10

	// DefaultTrendDays is the trailing window of the weekly attendance trend
	DefaultTrendDays = 7
)

// HTTP constants
const (
	// MaxUploadSize limits the multipart body of kiosk submissions (32 MB)
	MaxUploadSize = 32 << 20

	// ExportPageSize is the number of rows an export reads per query
	ExportPageSize = MaxAttendanceLimit

	// ExportMaxRows is the most data rows one XLSX sheet holds below its title and header
	ExportMaxRows = 1<<20 - 2
)

// Kiosk constants
const (
	// KioskIdleTimeout drops the state kept for a kiosk that has not submitted for this long
	KioskIdleTimeout = 30 * time.Minute

	// KioskIDHeader names the kiosk a submission comes from; the client address is used without it
	KioskIDHeader = "X-Kiosk-ID"
)
