package config

import (
	"os"

	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ConfigSource = EnvSource{}
	_ driven.ConfigSource = MapSource{}
)

// EnvSource resolves configured values from the process environment.
type EnvSource struct{}

// Lookup returns the environment variable named key.
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource resolves configured values from a fixed map. A nil MapSource
// resolves nothing.
type MapSource map[string]string

// Lookup returns the value stored under key.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}
