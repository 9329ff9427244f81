package env

import "os"

func Debug() bool {
	return os.Getenv("DEBUG") != ""
}

// ConfigurationsDir returns the directory configurations are served from, FRANKFLOW_CONFIGURATIONS.
func ConfigurationsDir() string {
	return os.Getenv("FRANKFLOW_CONFIGURATIONS")
}
