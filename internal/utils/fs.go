// Package utils holds small filesystem and path helpers shared by the
// config layer and the command entry point.
package utils

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// DirCheckResult reports whether a directory exists and accepts writes.
// Error is set only when the directory could not be created.
type DirCheckResult struct {
	Exists   bool
	Writable bool
	Error    error
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates the directory, parents included, if missing.
func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0755)
}

// LoadTOMLFile decodes the TOML file at path into dst.
func LoadTOMLFile(path string, dst any) error {
	if _, err := toml.DecodeFile(path, dst); err != nil {
		log.Warnf("TOML parsing error in config file %s: %v", path, err)
		return err
	}
	return nil
}

// SaveTOMLFile writes src as TOML to path, truncating any prior content.
func SaveTOMLFile(src any, path string) error {
	f, err := os.Create(path)
	if err != nil {
		log.Errorf("Failed to create file: %v", err)
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(src)
}

// GetAbsolutePath resolves path to an absolute form for display and
// comparison. Empty input yields "unknown" rather than the working dir.
func GetAbsolutePath(path string) string {
	if path == "" {
		return "unknown"
	}
	if filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// canWrite probes dirPath with a throwaway file. Permission bits alone
// are not enough on network mounts and read-only remounts.
func canWrite(dirPath string) bool {
	probe := filepath.Join(dirPath, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		log.Warnf("Cannot write to directory %s: %v", dirPath, err)
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// GetExecutableDir returns the directory holding the running binary,
// used as a last-resort location when no home directory is available.
func GetExecutableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(execPath), nil
}

// CheckDirStatus makes sure dirPath exists, creating it when needed,
// and reports whether it accepts writes.
func CheckDirStatus(dirPath string) DirCheckResult {
	if _, err := os.Stat(dirPath); err != nil {
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			log.Warnf("Cannot create directory %s: %v", dirPath, err)
			return DirCheckResult{Error: err}
		}
	}
	return DirCheckResult{Exists: true, Writable: canWrite(dirPath)}
}
