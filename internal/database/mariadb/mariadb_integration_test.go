//go:build integration

package mariadb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Statements are executed one by one; the driver rejects multi-statement Exec by default.
var statements = []string{
	`CREATE TABLE employees (
		employee_id   INT AUTO_INCREMENT PRIMARY KEY,
		employee_code VARCHAR(50) NOT NULL UNIQUE,
		full_name     VARCHAR(200) NOT NULL,
		email         VARCHAR(200),
		phone         VARCHAR(50),
		department    VARCHAR(100),
		position      VARCHAR(100),
		status        VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE face_encodings (
		encoding_id   INT AUTO_INCREMENT PRIMARY KEY,
		employee_id   INT NOT NULL,
		image_path    VARCHAR(500) NOT NULL,
		quality_score DOUBLE,
		is_primary    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (employee_id) REFERENCES employees(employee_id)
	)`,
	`CREATE TABLE attendance_records (
		attendance_id        INT AUTO_INCREMENT PRIMARY KEY,
		employee_id          INT NOT NULL,
		attendance_date      DATE NOT NULL,
		check_in_time        DATETIME,
		check_out_time       DATETIME,
		status               VARCHAR(20) NOT NULL,
		check_in_confidence  DOUBLE,
		check_out_confidence DOUBLE,
		check_in_image_path  VARCHAR(500),
		check_out_image_path VARCHAR(500),
		FOREIGN KEY (employee_id) REFERENCES employees(employee_id)
	)`,
	`INSERT INTO employees (employee_code, full_name, department, status, created_at) VALUES
		('EMP001', 'Nguyen Van An', 'Engineering', 'active', '2026-01-01 09:00:00'),
		('EMP002', 'Tran Thi Binh', 'Finance', 'active', '2026-02-01 09:00:00'),
		('EMP003', 'Le Van Cuong', 'Finance', 'active', '2026-03-01 09:00:00')`,
	`INSERT INTO face_encodings (employee_id, image_path, quality_score, is_primary) VALUES
		(2, 'faces/2/a.jpg', 0.8, FALSE)`,
	`INSERT INTO attendance_records (employee_id, attendance_date, check_in_time, check_out_time, status,
		check_in_confidence, check_out_confidence) VALUES
		(1, '2026-10-19', '2026-10-19 08:01:00', '2026-10-19 17:30:00', 'present', 0.93, 0.9),
		(2, '2026-10-19', NULL, NULL, 'on_leave', NULL, NULL)`,
}

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MARIADB_USER":          "test",
			"MARIADB_PASSWORD":      "test",
			"MARIADB_DATABASE":      "attendance",
			"MARIADB_ROOT_PASSWORD": "root",
		},
		WaitingFor: wait.ForLog("ready for connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	pool, err := NewPool(&config.DatabaseConfig{
		URL:          fmt.Sprintf("test:test@tcp(%s:%s)/attendance", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	for _, stmt := range statements {
		if _, err := pool.DB().ExecContext(ctx, stmt); err != nil {
			_ = pool.Close()
			_ = container.Terminate(ctx)
			t.Fatalf("Failed to prepare database (%s): %v", strings.Fields(stmt)[2], err)
		}
	}

	return pool, func() {
		_ = pool.Close()
		_ = container.Terminate(ctx)
	}
}

func TestQueryService_MariaDB(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	defer cleanup()

	day := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
	svc := attendance.NewQueryService(pool.DB(), pool.Dialect(), attendance.WithClock(func() time.Time { return day }))
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		page, err := svc.List(ctx, database.AttendanceFilter{Date: "2026-10-19"}, database.Page{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if page.Total != 2 {
			t.Fatalf("expected 2 rows, got %d", page.Total)
		}
		for _, row := range page.Rows {
			if row.EmployeeCode == "EMP001" && (row.CheckOutTime == nil || row.CheckOutConfidence == nil) {
				t.Errorf("expected check-out details for EMP001, got %+v", row)
			}
			if row.EmployeeCode == "EMP002" && row.CheckInTime != nil {
				t.Errorf("expected no check-in for EMP002, got %v", row.CheckInTime)
			}
		}
	})

	t.Run("daily stats counts any status as recorded", func(t *testing.T) {
		stats, err := svc.DailyStats(ctx, "2026-10-19")
		if err != nil {
			t.Fatalf("DailyStats: %v", err)
		}
		want := database.DailyStats{Total: 2, Present: 1, Late: 0, Absent: 1}
		if *stats != want {
			t.Errorf("expected %+v, got %+v", want, *stats)
		}
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := svc.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.TotalEmployees != 3 {
			t.Errorf("expected 3 employees, got %d", stats.TotalEmployees)
		}
	})

	t.Run("employees", func(t *testing.T) {
		employees, err := svc.ListEmployees(ctx)
		if err != nil {
			t.Fatalf("ListEmployees: %v", err)
		}
		if len(employees) != 3 || employees[0].Code != "EMP003" {
			t.Fatalf("expected newest employee first, got %+v", employees)
		}
		if employees[1].PhotoCount != 1 {
			t.Errorf("expected EMP002 to have one photo, got %d", employees[1].PhotoCount)
		}
	})

	t.Run("unknown employee", func(t *testing.T) {
		detail, err := svc.GetEmployeeDetail(ctx, 99)
		if err != nil {
			t.Fatalf("GetEmployeeDetail: %v", err)
		}
		if detail != nil {
			t.Errorf("expected nil detail, got %+v", detail)
		}
	})
}
