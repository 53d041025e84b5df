package info

type Config struct {
	// Enabled controls whether the module is loaded.
	Enabled bool `yaml:"enabled"`
	// Endpoint is the endpoint the module gRPC API is exposed on in remote
	// mode.
	Endpoint string `yaml:"endpoint"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:  true,
		Endpoint: "127.0.0.1:0",
	}
}
