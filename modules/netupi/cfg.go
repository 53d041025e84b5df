package netupi

import "time"

type Config struct {
	// Enabled controls whether the module is loaded.
	Enabled bool `yaml:"enabled"`
	// WatchLinks enables the netlink subscription that keeps the link cache
	// up to date. Without it the cache is refreshed only periodically.
	WatchLinks bool `yaml:"watch_links"`
	// RefreshInterval is the period of forced link cache refreshes.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// Endpoint is the endpoint the module gRPC API is exposed on in remote
	// mode. Absolute paths denote unix sockets.
	Endpoint string `yaml:"endpoint"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		WatchLinks:      true,
		RefreshInterval: time.Minute,
		Endpoint:        "127.0.0.1:0",
	}
}
