// Package env loads configuration from a .env file, falling back to the
// process environment for keys the file does not define.
package env

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var Env map[string]string

// GetEnv returns the configured value for key, or def when neither the
// .env file nor the process environment define it.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt returns the integer value for key, or def when the value is
// missing or not a number.
func GetEnvInt(key string, def int) int {
	if v, err := strconv.Atoi(GetEnv(key, "")); err == nil {
		return v
	}
	return def
}

// GetEnvDuration reads a positive integer for key and scales it by unit,
// so SLOT_HOLD_DURATION_MINUTES=20 with unit time.Minute yields 20m.
// Missing or non-positive values yield def.
func GetEnvDuration(key string, unit, def time.Duration) time.Duration {
	if v, err := strconv.Atoi(GetEnv(key, "")); err == nil && v > 0 {
		return time.Duration(v) * unit
	}
	return def
}

// SetupEnvFile locates and reads the .env file. The binaries run either
// from the repo root or from their cmd directory, so both are probed.
func SetupEnvFile() {
	envFiles := []string{
		".env",
		"../../.env",
		"../../../.env",
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	panic("No .env file found in any of the expected locations")
}

// IsDev reports whether the app runs in development mode.
func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
