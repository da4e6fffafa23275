package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

// LoadEnvFile exports the variables of a dotenv file into the process
// environment. Variables already set win, so a real environment always
// overrides the file.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
