//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	local := os.Getenv("LOCALAPPDATA")
	programData := os.Getenv("ProgramData")
	return []string{
		"vmstats.yaml",
		filepath.Join(local, "vmstats", "config.yaml"),
		filepath.Join(programData, "vmstats", "config.yaml"),
	}
}
