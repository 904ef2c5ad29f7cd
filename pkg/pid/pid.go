// Package pid manages the gateway's PID file.
//
// The start command writes the file, status checks liveness through it,
// and stop signals the recorded process. A file left behind by a crashed
// process is detected by probing the PID and removed.
package pid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrNotRunning reports that no live gateway process was found.
var ErrNotRunning = errors.New("gateway is not running")

// File manages a single PID file.
type File struct {
	path string
}

// New returns a File at the given path.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the PID file location.
func (f *File) Path() string {
	return f.path
}

// Write records the current process ID. An existing file that points at
// a live process is an error; a stale one is replaced.
func (f *File) Write() error {
	if pid, err := f.Read(); err == nil {
		return fmt.Errorf("gateway already running with pid %d", pid)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating pid directory: %w", err)
	}
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(f.path, []byte(pid+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	return nil
}

// Read returns the PID of the live gateway process. A missing file, an
// unparseable file, or a dead process all yield ErrNotRunning; stale
// files are removed on the way.
func (f *File) Read() (int, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		_ = os.Remove(f.path)
		return 0, ErrNotRunning
	}

	if !Alive(pid) {
		_ = os.Remove(f.path)
		return 0, ErrNotRunning
	}
	return pid, nil
}

// Stop sends SIGTERM to the recorded process and removes the file.
func (f *File) Stop() (int, error) {
	pid, err := f.Read()
	if err != nil {
		return 0, err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("finding process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return 0, fmt.Errorf("signaling process %d: %w", pid, err)
	}

	_ = os.Remove(f.path)
	return pid, nil
}

// Remove deletes the file. Missing files are fine.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Alive probes a PID with signal 0. On Unix this reports whether the
// process exists and is signalable by us.
func Alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
