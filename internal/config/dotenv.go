package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mirror-sync-go/pkg/logger"
)

const dotenvFilename = ".env"

type dotenvEntry struct {
	key   string
	value string
}

// loadDotEnv fills unset variables from DOTENV_PATH, or from the nearest .env
// found walking up from the working directory. A missing file is not an error.
func loadDotEnv(log logger.Logger) error {
	path := os.Getenv("DOTENV_PATH")
	if path == "" {
		found, ok, err := findUp(dotenvFilename)
		if err != nil {
			return err
		}
		if !ok {
			log.Debug("dotenv: no file found")
			return nil
		}
		path = found
	}

	loaded, skipped, err := parseDotEnv(path)
	if err != nil {
		return err
	}
	log.Info("dotenv: loaded variables", "count", loaded, "skipped", skipped, "path", path)
	return nil
}

func findUp(filename string) (string, bool, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false, err
	}
	for {
		candidate := filepath.Join(dir, filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// parseDotEnv reads path and exports every entry whose key is not already set
// in the environment. It reports how many were exported and how many skipped.
func parseDotEnv(path string) (int, int, error) {
	entries, err := readDotEnv(path)
	if err != nil {
		return 0, 0, err
	}

	loaded, skipped := 0, 0
	for _, entry := range entries {
		if _, exists := os.LookupEnv(entry.key); exists {
			skipped++
			continue
		}
		if err := os.Setenv(entry.key, entry.value); err != nil {
			return loaded, skipped, fmt.Errorf("set %s: %w", entry.key, err)
		}
		loaded++
	}
	return loaded, skipped, nil
}

func readDotEnv(path string) ([]dotenvEntry, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []dotenvEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, raw, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		entries = append(entries, dotenvEntry{key: key, value: dotenvValue(strings.TrimSpace(raw))})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

// dotenvValue unquotes a raw value. Single quotes are literal, double quotes
// follow Go escape rules, bare values lose a trailing " # comment".
func dotenvValue(raw string) string {
	if len(raw) >= 2 && raw[0] == raw[len(raw)-1] {
		switch raw[0] {
		case '\'':
			return raw[1 : len(raw)-1]
		case '"':
			if unquoted, err := strconv.Unquote(raw); err == nil {
				return unquoted
			}
			return raw[1 : len(raw)-1]
		}
	}

	if i := strings.Index(raw, " #"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, "\t#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
