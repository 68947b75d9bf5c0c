package config

const (
	defaultServerPort = 8080

	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5

	defaultBreakerMaxFailures = 5
	defaultBreakerHalfOpen    = 1
)

// defaults returns the values every other layer overrides.
func defaults() map[string]any {
	return map[string]any{
		"server.host":            "0.0.0.0",
		"server.port":            defaultServerPort,
		"server.read_timeout":    "5s",
		"server.write_timeout":   "10s",
		"server.idle_timeout":    "120s",
		"server.request_timeout": "8s",

		"log.level":  "info",
		"log.format": "json",

		"storage.driver":                  "memory",
		"storage.dsn":                     "",
		"storage.max_open_conns":          defaultMaxOpenConns,
		"storage.max_idle_conns":          defaultMaxIdleConns,
		"storage.conn_max_lifetime":       "5m",
		"storage.create_schema":           false,
		"storage.breaker.max_failures":    defaultBreakerMaxFailures,
		"storage.breaker.timeout":         "30s",
		"storage.breaker.half_open_limit": defaultBreakerHalfOpen,

		"telemetry.enabled":      false,
		"telemetry.exporter":     "otlp",
		"telemetry.endpoint":     "localhost:4317",
		"telemetry.service_name": "catalog-api",
		"telemetry.environment":  "development",
	}
}
