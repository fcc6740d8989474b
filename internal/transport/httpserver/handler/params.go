package handler

import (
	"fmt"
	"strconv"
	"strings"

	mirrordomain "mirror-sync-go/internal/domain/mirror"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func parseIntParam(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid int")
	}
	return parsed, nil
}

func parseStatusParam(value string) (mirrordomain.Status, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	status := mirrordomain.Status(value)
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q", value)
	}
	return status, nil
}
