package serve

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	stateDir         = ".modalkit"
	portFileName     = "serve-port"
	portLockFileName = "serve-port.lock"
	instancePrefix   = "srv_"
	healthTimeout    = 2 * time.Second
)

// PortInfo contains the metadata written to the port file when the server starts.
type PortInfo struct {
	Port       int       `json:"port"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	InstanceID string    `json:"instance_id"`
}

// GenerateInstanceID creates a new random instance ID with the srv_ prefix
// and 6 random hex characters (e.g. "srv_8f3b2c").
func GenerateInstanceID() (string, error) {
	b := make([]byte, 3) // 3 bytes = 6 hex chars
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate instance id: %w", err)
	}
	return instancePrefix + hex.EncodeToString(b), nil
}

// portFilePath returns the full path to the port file inside baseDir/.modalkit.
func portFilePath(baseDir string) string {
	return filepath.Join(baseDir, stateDir, portFileName)
}

// portLockFilePath returns the full path to the port file lock.
func portLockFilePath(baseDir string) string {
	return filepath.Join(baseDir, stateDir, portLockFileName)
}

// lockTimeout bounds how long WritePortFile waits for another process that
// is registering itself.
const lockTimeout = 5 * time.Second

// stateLock is an exclusive lock on .modalkit/serve-port.lock.
type stateLock struct {
	f *os.File
}

// lockState takes the state lock, retrying with exponential backoff until
// timeout.
func lockState(baseDir string, timeout time.Duration) (*stateLock, error) {
	f, err := os.OpenFile(portLockFilePath(baseDir), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open port lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	backoff := 5 * time.Millisecond
	for tryLock(f) != nil {
		if time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("timeout after %v waiting for port file lock", timeout)
		}
		time.Sleep(backoff)
		backoff = min(backoff*2, 50*time.Millisecond)
	}
	return &stateLock{f: f}, nil
}

func (l *stateLock) Unlock() {
	unlock(l.f)
	l.f.Close()
}

// WritePortFile records info in baseDir/.modalkit/serve-port. It holds the
// state lock while checking for a live server, so two processes starting
// together cannot both register.
func WritePortFile(baseDir string, info *PortInfo) error {
	if err := os.MkdirAll(filepath.Join(baseDir, stateDir), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	lock, err := lockState(baseDir, lockTimeout)
	if err != nil {
		return fmt.Errorf("acquire port lock: %w", err)
	}
	defer lock.Unlock()

	if existing, err := ReadPortFile(baseDir); err == nil && !IsPortFileStale(existing) {
		return fmt.Errorf("modalkit serve already running on port %d (pid %d, %s)", existing.Port, existing.PID, existing.InstanceID)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal port info: %w", err)
	}
	if err := os.WriteFile(portFilePath(baseDir), data, 0644); err != nil {
		return fmt.Errorf("write port file: %w", err)
	}
	return nil
}

// ReadPortFile reads and parses the port file from baseDir/.modalkit/serve-port.
// Returns an error if the file doesn't exist or is missing required fields.
func ReadPortFile(baseDir string) (*PortInfo, error) {
	pfPath := portFilePath(baseDir)
	data, err := os.ReadFile(pfPath)
	if err != nil {
		return nil, fmt.Errorf("read port file: %w", err)
	}

	var info PortInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse port file: %w", err)
	}

	// Validate required fields
	if info.Port == 0 {
		return nil, fmt.Errorf("port file missing required field: port")
	}
	if info.PID == 0 {
		return nil, fmt.Errorf("port file missing required field: pid")
	}
	if info.InstanceID == "" {
		return nil, fmt.Errorf("port file missing required field: instance_id")
	}

	return &info, nil
}

// DeletePortFile removes the port file. Called on server shutdown.
// Errors are returned but callers may choose to ignore them during cleanup.
func DeletePortFile(baseDir string) error {
	pfPath := portFilePath(baseDir)
	if err := os.Remove(pfPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove port file: %w", err)
	}
	return nil
}

// ServerInstance asks the server on localhost:port for its instance id.
// ok is false when nothing healthy answers within the health timeout.
func ServerInstance(port int) (id string, ok bool) {
	client := &http.Client{Timeout: healthTimeout}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	var env struct {
		Data struct {
			InstanceID string `json:"instance_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return "", false
	}
	return env.Data.InstanceID, true
}

// IsServerHealthy reports whether any server answers /health on port.
func IsServerHealthy(port int) bool {
	_, ok := ServerInstance(port)
	return ok
}

// IsPortFileStale reports whether info no longer describes a running
// server: the process is gone, or the port is answered by a different
// instance (or not at all).
func IsPortFileStale(info *PortInfo) bool {
	if !processAlive(info.PID) {
		return true
	}
	id, ok := ServerInstance(info.Port)
	return !ok || id != info.InstanceID
}
