package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/vkrlab/briefbot/internal/pkg/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		if log != nil {
			log.Debug("Environment variable could not be parsed as int, using default",
				"env_var", key, "providedVal", valStr, "defaultVal", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}

// GetEnvAsInt64List parses a whitespace-separated list of int64 values.
// Malformed entries are skipped.
func GetEnvAsInt64List(key string, defaultVal []int64, log *logger.Logger) []int64 {
	valStr, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(valStr) == "" {
		return defaultVal
	}
	var out []int64
	for _, f := range strings.Fields(valStr) {
		i, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			if log != nil {
				log.Debug("Skipping malformed list entry", "env_var", key, "entry", f)
			}
			continue
		}
		out = append(out, i)
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
