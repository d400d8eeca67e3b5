package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SetKeyInFile updates or adds a global option key in the config file,
// preserving comments and formatting. An existing global line is replaced
// in place; a new key goes before the first section header, or at the end.
// Keys inside [section] blocks are never touched.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	newLine := key
	if value != "" {
		newLine = key + " " + value
	}

	found := false
	insertIndex := len(lines)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			insertIndex = i
			break
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if parts := strings.SplitN(trimmed, " ", 2); parts[0] == key {
			lines[i] = newLine
			found = true
			break
		}
	}

	if !found {
		switch {
		case insertIndex < len(lines):
			lines = append(lines[:insertIndex+1], lines[insertIndex:]...)
			lines[insertIndex] = newLine
		case len(lines) > 0 && lines[len(lines)-1] == "":
			lines = append(lines[:len(lines)-1], newLine, "")
		default:
			lines = append(lines, newLine)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return atomicWriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

// atomicWriteFile writes data to a temporary file in the target directory
// and renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(name, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
