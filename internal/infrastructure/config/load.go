package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CATALOG_"

// Standard OpenTelemetry variables honoured on top of the CATALOG_ ones.
var otelEnv = map[string]string{
	"OTEL_EXPORTER_OTLP_ENDPOINT": "telemetry.endpoint",
	"OTEL_SERVICE_NAME":           "telemetry.service_name",
	"OTEL_ENVIRONMENT":            "telemetry.environment",
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	file string
}

// WithFile layers the YAML file at path over the defaults. An empty path is
// ignored.
func WithFile(path string) Option {
	return func(o *loadOptions) {
		o.file = path
	}
}

// Load builds the configuration from (lowest precedence first):
//
//  1. built-in defaults
//  2. the YAML file given with WithFile
//  3. OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_SERVICE_NAME, OTEL_ENVIRONMENT
//  4. CATALOG_ environment variables, e.g. CATALOG_SERVER_PORT -> server.port,
//     CATALOG_STORAGE_BREAKER_MAX_FAILURES -> storage.breaker.max_failures
func Load(opts ...Option) (*Config, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	if o.file != "" {
		if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", o.file, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: "OTEL_",
		TransformFunc: func(key, value string) (string, any) {
			if koanfKey, ok := otelEnv[key]; ok {
				return koanfKey, value
			}
			// Unknown OTEL_ variables are dropped.
			return "", nil
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading OTEL env vars: %w", err)
	}

	// Resolve CATALOG_SERVER_READ_TIMEOUT to server.read_timeout rather than
	// server.read.timeout by matching against the known keys first.
	envLookup := buildEnvLookup(k.Keys())

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			if koanfKey, ok := envLookup[key]; ok {
				return koanfKey, value
			}
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func buildEnvLookup(keys []string) map[string]string {
	lookup := make(map[string]string, len(keys))
	for _, key := range keys {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}
	return lookup
}
