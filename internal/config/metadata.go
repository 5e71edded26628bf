package config

import (
	"path/filepath"
	"strings"
)

type Metadata struct {
	ConfigPath string
}

func NewMetadata(configPath string) Metadata {
	return Metadata{ConfigPath: configPath}
}

func (m Metadata) Dir() string {
	return filepath.Dir(filepath.FromSlash(m.ConfigPath))
}

// ReportsDir places written update reports next to the config file.
func (m Metadata) ReportsDir() string {
	return filepath.Join(m.Dir(), "reports")
}

// CachePath places the version cache next to the config file.
func (m Metadata) CachePath() string {
	base := filepath.Base(m.ConfigPath)
	baseNoExt := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(m.Dir(), baseNoExt+"-cache.json")
}

func (m Metadata) ModDirectoryPaths(config Config) []string {
	paths := make([]string, 0, len(config.ModDirectories))
	for _, directory := range config.ModDirectories {
		paths = append(paths, m.resolve(directory))
	}
	return paths
}

func (m Metadata) DownloadDirectoryPath(config Config) string {
	return m.resolve(config.DownloadDirectory)
}

func (m Metadata) resolve(path string) string {
	if isAbsoluteOrRootedPath(path) {
		return path
	}
	return filepath.Join(m.Dir(), path)
}

func isAbsoluteOrRootedPath(path string) bool {
	if filepath.IsAbs(path) {
		return true
	}
	return strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\")
}
