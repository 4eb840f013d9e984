package agent

import (
	"testing"
	"time"
)

func TestNewClientValidatesAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"http", "http://localhost:8080", false},
		{"https", "https://coordinator.fleet:8443", false},
		{"trailing slash", "http://localhost:8080/", false},
		{"bare host and port", "localhost:8080", true},
		{"grpc scheme", "grpc://localhost:8080", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.addr, time.Second)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}
