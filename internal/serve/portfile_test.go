package serve

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerateInstanceID(t *testing.T) {
	id, err := GenerateInstanceID()
	if err != nil {
		t.Fatalf("GenerateInstanceID() error: %v", err)
	}

	if !strings.HasPrefix(id, "srv_") {
		t.Errorf("expected prefix 'srv_', got %q", id)
	}

	// srv_ (4 chars) + 6 hex chars = 10 total
	if len(id) != 10 {
		t.Errorf("expected length 10, got %d (%q)", len(id), id)
	}

	id2, err := GenerateInstanceID()
	if err != nil {
		t.Fatalf("GenerateInstanceID() second call error: %v", err)
	}
	if id == id2 {
		t.Errorf("expected unique IDs, got %q twice", id)
	}
}

func TestWritePortFileCreatesStateDir(t *testing.T) {
	baseDir := t.TempDir()

	info := &PortInfo{
		Port:       54321,
		PID:        91234,
		StartedAt:  time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		InstanceID: "srv_8f3b2c",
	}
	if err := WritePortFile(baseDir, info); err != nil {
		t.Fatalf("WritePortFile() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(baseDir, ".modalkit", portFileName))
	if err != nil {
		t.Fatalf("port file not created under .modalkit: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if raw["port"].(float64) != 54321 {
		t.Errorf("JSON port = %v, want 54321", raw["port"])
	}
	if raw["instance_id"].(string) != "srv_8f3b2c" {
		t.Errorf("JSON instance_id = %v, want srv_8f3b2c", raw["instance_id"])
	}
	if _, err := os.Stat(filepath.Join(baseDir, ".modalkit", portLockFileName)); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}

func TestWriteReadDeleteRoundtrip(t *testing.T) {
	baseDir := t.TempDir()

	info := &PortInfo{
		Port:       44444,
		PID:        os.Getpid(),
		StartedAt:  time.Now().Truncate(time.Second).UTC(),
		InstanceID: "srv_round1",
	}

	if err := WritePortFile(baseDir, info); err != nil {
		t.Fatal(err)
	}

	got, err := ReadPortFile(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	if got.Port != info.Port || got.PID != info.PID || got.InstanceID != info.InstanceID {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", got, info)
	}
	if !got.StartedAt.Equal(info.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, info.StartedAt)
	}

	if err := DeletePortFile(baseDir); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPortFile(baseDir); err == nil {
		t.Error("expected error after delete")
	}

	// Delete again should be a no-op (not an error)
	if err := DeletePortFile(baseDir); err != nil {
		t.Errorf("DeletePortFile() on missing file: %v", err)
	}
}

func TestReadPortFileErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"invalid json", "not json", "parse port file"},
		{"missing port", `{"pid": 123, "instance_id": "srv_abc123"}`, "port"},
		{"missing pid", `{"port": 8080, "instance_id": "srv_abc123"}`, "pid"},
		{"missing instance_id", `{"port": 8080, "pid": 123}`, "instance_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseDir := t.TempDir()
			dir := filepath.Join(baseDir, ".modalkit")
			if err := os.MkdirAll(dir, 0755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, portFileName), []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := ReadPortFile(baseDir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestReadPortFileMissing(t *testing.T) {
	if _, err := ReadPortFile(t.TempDir()); err == nil {
		t.Fatal("expected error for missing port file")
	}
}

func TestIsPortFileStaleDeadPID(t *testing.T) {
	// PID 2^30 is outside typical PID ranges on most systems.
	info := &PortInfo{
		Port:       19999,
		PID:        1<<30 + 7,
		StartedAt:  time.Now().UTC(),
		InstanceID: "srv_dead01",
	}

	if !IsPortFileStale(info) {
		t.Error("expected stale for dead PID")
	}
}

func TestIsServerHealthyNoServer(t *testing.T) {
	// Port 1 is privileged and almost certainly not running a health server
	if IsServerHealthy(1) {
		t.Error("expected IsServerHealthy(1) = false")
	}
}

// healthServer answers /health the way a running Server does.
func healthServer(t *testing.T, instanceID string) int {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, map[string]interface{}{"status": "ok", "instance_id": instanceID}, http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	return ts.Listener.Addr().(*net.TCPAddr).Port
}

func TestServerInstance(t *testing.T) {
	port := healthServer(t, "srv_abc123")

	id, ok := ServerInstance(port)
	if !ok {
		t.Fatal("expected a healthy server")
	}
	if id != "srv_abc123" {
		t.Errorf("instance = %q, want srv_abc123", id)
	}
}

func TestIsPortFileStaleInstanceMismatch(t *testing.T) {
	port := healthServer(t, "srv_other1")

	live := &PortInfo{Port: port, PID: os.Getpid(), StartedAt: time.Now().UTC(), InstanceID: "srv_other1"}
	if IsPortFileStale(live) {
		t.Error("expected live entry to be fresh")
	}

	reused := &PortInfo{Port: port, PID: os.Getpid(), StartedAt: time.Now().UTC(), InstanceID: "srv_gone01"}
	if !IsPortFileStale(reused) {
		t.Error("expected stale when another instance owns the port")
	}
}

func TestWritePortFileRefusesLiveServer(t *testing.T) {
	baseDir := t.TempDir()
	port := healthServer(t, "srv_live01")

	first := &PortInfo{Port: port, PID: os.Getpid(), StartedAt: time.Now().UTC(), InstanceID: "srv_live01"}
	if err := WritePortFile(baseDir, first); err != nil {
		t.Fatalf("first write: %v", err)
	}

	second := &PortInfo{Port: port + 1, PID: os.Getpid(), StartedAt: time.Now().UTC(), InstanceID: "srv_new001"}
	err := WritePortFile(baseDir, second)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected already running error, got %v", err)
	}
}

func TestLockStateTimeout(t *testing.T) {
	baseDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(baseDir, stateDir), 0755); err != nil {
		t.Fatal(err)
	}

	held, err := lockState(baseDir, time.Second)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	if _, err := lockState(baseDir, 30*time.Millisecond); err == nil {
		t.Fatal("expected timeout while the lock is held")
	}

	held.Unlock()
	again, err := lockState(baseDir, time.Second)
	if err != nil {
		t.Fatalf("relock after unlock: %v", err)
	}
	again.Unlock()
}
