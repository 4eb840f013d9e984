package coordinator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/api"
)

func newTestServer(t *testing.T) (*Coordinator, *httptest.Server) {
	t.Helper()

	coord, err := New(&Config{
		DataDir:        t.TempDir(),
		CommandTimeout: 20 * time.Millisecond,
		Logger:         zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(coord.server.httpServer.Handler)
	t.Cleanup(ts.Close)
	return coord, ts
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestServerRegisterAndReport(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/rovers", api.RegisterRequest{
		ResourceLevel:    20,
		ResourceCapacity: 20,
		Facing:           api.North,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	var reg api.RegisterResponse
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if reg.ID == "" || reg.Label == "" {
		t.Fatalf("register response = %+v", reg)
	}
	if reg.Command == nil || reg.Command.Name != api.CmdUpdate {
		t.Errorf("first command = %v, want Update", reg.Command)
	}

	repResp := postJSON(t, ts.URL+"/api/v1/rovers/"+reg.ID+"/report", testReport(20))
	defer repResp.Body.Close()
	if repResp.StatusCode != http.StatusOK {
		t.Fatalf("report status = %d", repResp.StatusCode)
	}

	var cmd api.Command
	if err := json.NewDecoder(repResp.Body).Decode(&cmd); err != nil {
		t.Fatalf("decode next command: %v", err)
	}
	if cmd.Name != api.CmdWait {
		t.Errorf("idle next command = %v, want Wait", cmd)
	}
}

func TestServerRejectsMalformedRegistration(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/rovers", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServerProgramEndpoint(t *testing.T) {
	coord, ts := newTestServer(t)

	// Nothing deployed yet.
	resp, err := http.Get(ts.URL + "/api/v1/program")
	if err != nil {
		t.Fatalf("GET program: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before first deploy", resp.StatusCode)
	}

	programPath := coord.programs.path
	if err := os.MkdirAll(filepath.Dir(programPath), 0o755); err != nil {
		t.Fatalf("create program dir: %v", err)
	}
	if err := os.WriteFile(programPath, []byte("the program"), 0o644); err != nil {
		t.Fatalf("write program: %v", err)
	}

	resp, err = http.Get(ts.URL + "/api/v1/program")
	if err != nil {
		t.Fatalf("GET program: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if body.String() != "the program" {
		t.Errorf("program body = %q", body.String())
	}
}

func TestServerRoverListAndInfo(t *testing.T) {
	coord, ts := newTestServer(t)
	reg := coord.fleet.Register(testRegisterRequest())

	resp, err := http.Get(ts.URL + "/api/v1/rovers")
	if err != nil {
		t.Fatalf("GET rovers: %v", err)
	}
	defer resp.Body.Close()

	var list []api.RoverInfo
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != reg.ID {
		t.Errorf("list = %+v", list)
	}

	infoResp, err := http.Get(ts.URL + "/api/v1/rovers/" + reg.ID)
	if err != nil {
		t.Fatalf("GET rover: %v", err)
	}
	defer infoResp.Body.Close()
	if infoResp.StatusCode != http.StatusOK {
		t.Errorf("info status = %d", infoResp.StatusCode)
	}

	missingResp, err := http.Get(ts.URL + "/api/v1/rovers/no-such-id")
	if err != nil {
		t.Fatalf("GET missing rover: %v", err)
	}
	missingResp.Body.Close()
	if missingResp.StatusCode != http.StatusNotFound {
		t.Errorf("missing rover status = %d, want 404", missingResp.StatusCode)
	}
}

func TestServerFleetUpdateAndFlush(t *testing.T) {
	coord, ts := newTestServer(t)
	reg := coord.fleet.Register(testRegisterRequest())

	resp := postJSON(t, ts.URL+"/api/v1/fleet/update", nil)
	defer resp.Body.Close()
	var out struct {
		Pending int `json:"pending"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if out.Pending != 1 {
		t.Errorf("pending = %d, want 1", out.Pending)
	}
	if cmd := coord.fleet.HandleReport(reg.ID, testReport(20)); cmd.Name != api.CmdUpdate {
		t.Errorf("next command = %v, want Update", cmd)
	}

	flushResp := postJSON(t, ts.URL+"/api/v1/fleet/flush", nil)
	flushResp.Body.Close()
	if flushResp.StatusCode != http.StatusNoContent {
		t.Errorf("flush status = %d, want 204", flushResp.StatusCode)
	}
	if _, err := os.Stat(coord.state.path); err != nil {
		t.Errorf("state file missing after flush: %v", err)
	}
}

func TestServerEventsEndpoint(t *testing.T) {
	coord, ts := newTestServer(t)
	coord.fleet.Register(testRegisterRequest())

	resp, err := http.Get(ts.URL + "/api/v1/events?limit=10")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	var events []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("no events recorded for a registration")
	}

	badResp, err := http.Get(ts.URL + "/api/v1/events?limit=zero")
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	badResp.Body.Close()
	if badResp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", badResp.StatusCode)
	}
}
