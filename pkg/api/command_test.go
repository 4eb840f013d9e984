package api

import (
	"encoding/json"
	"testing"
)

func TestCommandMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "bare command",
			cmd:  Simple(CmdLeft),
			want: `"Left"`,
		},
		{
			name: "command with count",
			cmd:  WithArg(CmdForward, 3),
			want: `{"Forward":3}`,
		},
		{
			name: "wait",
			cmd:  Wait(3),
			want: `{"Wait":3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cmd)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestCommandUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantArg  string // "" means no argument
		wantErr  bool
	}{
		{
			name:     "bare name",
			input:    `"Poweroff"`,
			wantName: CmdPoweroff,
		},
		{
			name:     "name with argument",
			input:    `{"Backward":2}`,
			wantName: CmdBackward,
			wantArg:  "2",
		},
		{
			name:     "unknown name passes through",
			input:    `"Teleport"`,
			wantName: "Teleport",
		},
		{
			// Out-of-contract payload: deterministic pick, smallest key.
			name:     "multi-entry object collapses to smallest key",
			input:    `{"Forward":3,"Down":1}`,
			wantName: CmdDown,
			wantArg:  "1",
		},
		{
			name:    "empty object",
			input:   `{}`,
			wantErr: true,
		},
		{
			name:    "array",
			input:   `[1,2]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := json.Unmarshal([]byte(tt.input), &cmd)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cmd.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", cmd.Name, tt.wantName)
			}
			if string(cmd.Arg) != tt.wantArg {
				t.Errorf("Arg = %q, want %q", cmd.Arg, tt.wantArg)
			}
		})
	}
}

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantNil  bool
		wantName string
	}{
		{"null means nothing queued", "null", true, ""},
		{"empty body means nothing queued", "", true, ""},
		{"whitespace only", "  \n", true, ""},
		{"bare command", `"Refuel"`, false, CmdRefuel},
		{"command with argument", `{"Select":4}`, false, CmdSelect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tt.input))
			if err != nil {
				t.Fatalf("DecodeCommand() error = %v", err)
			}
			if (cmd == nil) != tt.wantNil {
				t.Fatalf("DecodeCommand() = %v, wantNil %v", cmd, tt.wantNil)
			}
			if cmd != nil && cmd.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", cmd.Name, tt.wantName)
			}
		})
	}

	if _, err := DecodeCommand([]byte(`{]`)); err == nil {
		t.Error("DecodeCommand() should error on malformed JSON")
	}
}

func TestCommandIntArg(t *testing.T) {
	n, err := WithArg(CmdForward, 5).IntArg()
	if err != nil {
		t.Fatalf("IntArg() error = %v", err)
	}
	if n != 5 {
		t.Errorf("IntArg() = %d, want 5", n)
	}

	if _, err := Simple(CmdForward).IntArg(); err == nil {
		t.Error("IntArg() on bare command should error")
	}
	if _, err := WithArg(CmdForward, "three").IntArg(); err == nil {
		t.Error("IntArg() on string argument should error")
	}
}

func TestCommandString(t *testing.T) {
	if got := Simple(CmdLeft).String(); got != "Left" {
		t.Errorf("String() = %q, want %q", got, "Left")
	}
	if got := WithArg(CmdForward, 3).String(); got != "Forward(3)" {
		t.Errorf("String() = %q, want %q", got, "Forward(3)")
	}
}
