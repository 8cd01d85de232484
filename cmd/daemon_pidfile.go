package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

const pidFileName = "daemon.pid"

// getPidFilePath returns the path to the daemon PID file.
func getPidFilePath(dataDir string) string {
	return filepath.Join(dataDir, pidFileName)
}

// WritePidFile writes the current process ID to the PID file.
func WritePidFile(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}
	pid := strconv.Itoa(os.Getpid())
	return atomic.WriteFile(getPidFilePath(dataDir), strings.NewReader(pid))
}

// ReadPidFile reads and returns the PID from the PID file.
func ReadPidFile(dataDir string) (int, error) {
	data, err := os.ReadFile(getPidFilePath(dataDir))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}
	return pid, nil
}

// RemovePidFile removes the PID file.
func RemovePidFile(dataDir string) error {
	err := os.Remove(getPidFilePath(dataDir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
