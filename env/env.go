package env

import "os"

// Environment is the deployment stage the process runs in, read from the
// ENVIRONMENT variable. An unset variable counts as local so development
// machines get sane defaults without any setup.
type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"
)

func Get() Environment {
	if value := os.Getenv("ENVIRONMENT"); value != "" {
		return Environment(value)
	}

	return Local
}

func IsLocal() bool {
	return Get() == Local
}

// GetOrDefault reads an environment variable, falling back when it is unset
// or empty.
func GetOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}
