package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadEnv loads environment variables from a .env file if one exists,
// without overriding anything already set in the process environment.
// Adapted from the teacher's RPC-endpoint .env loader (same file,
// pkg/config/env.go): the dotenv-then-envconfig override ordering is
// kept, the RPC-specific accessor is gone since this core has no RPC
// transport of its own (DESIGN.md).
func LoadEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
