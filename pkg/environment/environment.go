// Package environment reads service configuration from the process
// environment.
package environment

import "os"

// ServiceDetails contains the runtime configuration shared by the service
// binaries.
type ServiceDetails struct {
	ServiceName      string
	ListenAddr       string
	RedisAddr        string
	RedisPassword    string
	FlagServiceURL   string
	OTELEndpoint     string
	FlagDefaultsFile string
}

// GetENV fetches all the env variables for a service
func GetENV(details *ServiceDetails, serviceName, defaultListenAddr string) {
	details.ServiceName = Getenv("SERVICE_NAME", serviceName)
	details.ListenAddr = Getenv("LISTEN_ADDR", defaultListenAddr)
	details.RedisAddr = Getenv("REDIS_ADDR", "localhost:6379")
	details.RedisPassword = os.Getenv("REDIS_PASSWORD")
	details.FlagServiceURL = Getenv("FEATURE_FLAG_SERVICE_URL", "http://localhost:8090")
	details.OTELEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	details.FlagDefaultsFile = os.Getenv("FLAG_DEFAULTS_FILE")
}

// Getenv fetch the env and set the default value, if any
func Getenv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return value
}
