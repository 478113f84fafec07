//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"vmstats.yaml",
		filepath.Join(home, ".vmstats", "config.yaml"),
		"/etc/vmstats/config.yaml",
	}
}
