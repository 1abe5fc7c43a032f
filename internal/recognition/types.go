package recognition

import "time"

// Identity holds the employee fields sent with an enrollment.
type Identity struct {
	EmployeeCode string `json:"employee_code" validate:"required,max=50"`
	FullName     string `json:"full_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"omitempty,email,max=100"`
	Phone        string `json:"phone" validate:"omitempty,max=20"`
	Department   string `json:"department" validate:"omitempty,max=100"`
	Position     string `json:"position" validate:"omitempty,max=100"`
}

// Employee is the identity matched by the recognition service.
type Employee struct {
	ID         int64    `json:"employee_id"`
	Code       string   `json:"employee_code"`
	FullName   string   `json:"full_name"`
	Department *string  `json:"department,omitempty"`
	Position   *string  `json:"position,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Verification is a successful check-in or check-out.
// Confidence is exactly what the service reported.
type Verification struct {
	Kind       Kind      `json:"kind"`
	Employee   Employee  `json:"employee"`
	Confidence float64   `json:"confidence"`
	Message    string    `json:"message"`
	VerifiedAt time.Time `json:"verified_at"`
}

// EnrollResult is a successful enrollment.
type EnrollResult struct {
	EmployeeID int64  `json:"employee_id"`
	Message    string `json:"message"`
}

// Health is the status reported by the recognition service.
type Health struct {
	Status         string `json:"status"`
	Database       string `json:"database"`
	FaceRecognizer string `json:"face_recognizer"`
}

// envelope is the common shape of every response of the recognition service.
// Failures carry detail (explanation), message or reason.
type envelope struct {
	Success    *bool     `json:"success"`
	Employee   *Employee `json:"employee"`
	EmployeeID *int64    `json:"employee_id"`
	Confidence *float64  `json:"confidence"`
	Message    string    `json:"message"`
	Detail     any       `json:"detail"`
	Reason     string    `json:"reason"`
}
