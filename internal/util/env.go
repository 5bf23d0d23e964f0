package util

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvOrDefault returns the environment variable value or fallback when it is empty.
func EnvOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// EnvBool parses the variable as a boolean. Unset or malformed values yield fallback.
func EnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(EnvOrDefault(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

// EnvInt parses the variable as an integer. Unset or malformed values yield fallback.
func EnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(EnvOrDefault(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}

// EnvDuration parses values such as "3s" or "250ms".
func EnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(EnvOrDefault(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

// EnvList splits a comma separated variable, dropping blank items.
func EnvList(key string, fallback []string) []string {
	raw := EnvOrDefault(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
