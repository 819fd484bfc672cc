package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver locates the config directory, dictionary word lists and
// the user database relative to the running binary and the platform's
// conventional directories.
type PathResolver struct {
	executablePath string
	executableDir  string
	homeDir        string
	configDir      string
	dataDir        string
}

// NewPathResolver determines the executable location and the platform
// config/data directories.
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	// Resolve symlinks to get the actual binary location.
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executablePath: execPath,
		executableDir:  filepath.Dir(execPath),
		homeDir:        homeDir,
		configDir:      getConfigDir(homeDir),
		dataDir:        getDataDir(homeDir),
	}
	log.Debugf("PathResolver initialized: exec=%s, configDir=%s, dataDir=%s",
		execPath, pr.configDir, pr.dataDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "phraseserve")
		}
		return filepath.Join(homeDir, ".config", "phraseserve")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "phraseserve")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "phraseserve")
	case "darwin":
		return filepath.Join(homeDir, ".config", "phraseserve")
	default:
		return filepath.Join(homeDir, ".phraseserve")
	}
}

// getDataDir returns the directory holding the user database.
func getDataDir(homeDir string) string {
	if runtime.GOOS == "linux" {
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, "phraseserve")
		}
		return filepath.Join(homeDir, ".local", "share", "phraseserve")
	}
	return getConfigDir(homeDir)
}

// DictionaryDirs returns the directories searched for <lang>.dic word
// lists, most specific first. userSpecified (when non-empty) wins.
func (pr *PathResolver) DictionaryDirs(userSpecified string) []string {
	var dirs []string
	if userSpecified != "" {
		dirs = append(dirs, GetAbsolutePath(userSpecified))
	}
	dirs = append(dirs,
		filepath.Join(pr.dataDir, "dicts"),
		filepath.Join(pr.executableDir, "dicts"),
		"/usr/share/hunspell",
		"/usr/share/myspell",
	)
	return dirs
}

// UserDBPath returns the user phrase database path, creating its
// directory. userSpecified (when non-empty) is used as-is.
func (pr *PathResolver) UserDBPath(userSpecified string) (string, error) {
	if userSpecified != "" {
		return GetAbsolutePath(userSpecified), nil
	}
	if err := EnsureDir(pr.dataDir); err != nil {
		return "", err
	}
	return filepath.Join(pr.dataDir, "user.db"), nil
}

// ConfigPath returns the full path for a config file, falling back to
// writable locations when the config directory is not usable.
func (pr *PathResolver) ConfigPath(filename string) (string, error) {
	if result := CheckDirStatus(pr.configDir); result.Writable {
		return filepath.Join(pr.configDir, filename), nil
	}
	fallbackDirs := []string{
		filepath.Join(os.TempDir(), "phraseserve"),
		pr.executableDir,
	}
	for _, dir := range fallbackDirs {
		if result := CheckDirStatus(dir); result.Writable {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path, nil
		}
	}
	return filepath.Join(os.TempDir(), filename), nil
}

// ConfigDir returns the config directory.
func (pr *PathResolver) ConfigDir() string {
	return pr.configDir
}

// DataDir returns the data directory.
func (pr *PathResolver) DataDir() string {
	return pr.dataDir
}
