// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package fpath resolves well-known filesystem locations.
package fpath

import (
	"os"
	"path/filepath"
	"runtime"
)

// ApplicationDir returns the best base directory for application specific
// data on the current OS, with the given subdirectories joined onto it.
func ApplicationDir(subdir ...string) string {
	var appdir string

	home := os.Getenv("HOME")
	switch runtime.GOOS {
	case "windows":
		// on Windows it is in the AppData directory
		for _, env := range []string{"AppData", "AppDataLocal", "UserProfile", "Home"} {
			val := os.Getenv(env)
			if val != "" {
				appdir = val
				break
			}
		}
	case "darwin":
		appdir = filepath.Join(home, "Library", "Application Support")
	default:
		appdir = os.Getenv("XDG_DATA_HOME")
		if appdir == "" && home != "" {
			appdir = filepath.Join(home, ".local", "share")
		}
	}
	return filepath.Join(append([]string{appdir}, subdir...)...)
}

// IsValidSetupDir reports whether name is a directory setup can write its
// config file into: missing, or present without a config file.
func IsValidSetupDir(name string) (ok bool, err error) {
	_, err = os.Stat(filepath.Join(name, "config.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
