package logger

import (
	"testing"

	"github.com/kozaktomas/face-attendance/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		wantErr bool
	}{
		{"console default level", config.LogConfig{Format: "console"}, false},
		{"json debug", config.LogConfig{Format: "json", Level: "debug"}, false},
		{"bad level", config.LogConfig{Level: "loud"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, err := New(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if log == nil {
				t.Fatal("expected logger")
			}
		})
	}
}
