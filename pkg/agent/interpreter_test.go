package agent

import (
	"testing"

	"github.com/roverfleet/roverfleet/pkg/api"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *api.Command
		wantOK   bool
		wantName string
	}{
		{"nil command idles", nil, false, ""},
		{"empty name idles", &api.Command{}, false, ""},
		{"bare command", cmdPtr(api.Simple(api.CmdLeft)), true, api.CmdLeft},
		{"command with argument", cmdPtr(api.WithArg(api.CmdForward, 3)), true, api.CmdForward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := Interpret(tt.cmd)
			if ok != tt.wantOK {
				t.Fatalf("Interpret() ok = %v, want %v", ok, tt.wantOK)
			}
			if inv.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", inv.Name, tt.wantName)
			}
		})
	}
}

func cmdPtr(c api.Command) *api.Command { return &c }
