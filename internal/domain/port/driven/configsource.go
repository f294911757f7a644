package driven

// ConfigSource resolves externally configured values by name, e.g. from the
// process environment.
type ConfigSource interface {
	Lookup(key string) (string, bool)
}
