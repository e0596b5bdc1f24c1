package server

import "github.com/imdario/mergo"

// Config defines the properties that configure a Server and the sessions it
// spawns. A caller supplies a partially-populated Config; resolveConfig
// fills in every unset field from DefaultConfig.
type Config struct {
	// Address is the TCP address the Server listens on, e.g. ":6380".
	Address string

	// ChunkSize is the per-pull read size used by each session's
	// wire.StreamReader. Zero means "use the default".
	ChunkSize int

	// SessionMaxDepth is the aggregate-nesting cap applied by each
	// session's driver (session.DefaultMaxDepth if zero): the only decode
	// entry point Server exposes is the per-connection session.Driver, so
	// this is the only aggregate-nesting cap a deployment can tune.
	SessionMaxDepth int

	// TerminateOnInvalid, when true, ends a session on its first
	// recoverable decode error instead of reporting a SimpleError frame
	// and continuing. See session.Driver.TerminateOnInvalid.
	TerminateOnInvalid bool
}

// DefaultConfig holds the package defaults every resolveConfig call merges
// onto.
var DefaultConfig = &Config{
	Address:            ":6380",
	ChunkSize:          1024,
	SessionMaxDepth:    8,
	TerminateOnInvalid: false,
}

// resolveConfig merges cfg onto a copy of DefaultConfig, leaving cfg's
// explicitly-set fields untouched and filling in everything left at its
// zero value. A nil cfg resolves to DefaultConfig outright.
func resolveConfig(cfg *Config) (*Config, error) {
	if cfg == nil {
		merged := *DefaultConfig
		return &merged, nil
	}
	resolved := *cfg
	if err := mergo.Merge(&resolved, *DefaultConfig); err != nil {
		return nil, err
	}
	return &resolved, nil
}
