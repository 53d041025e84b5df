package gateway

import (
	"github.com/c2h5oh/datasize"
)

// Config is the configuration for the gateway.
type Config struct {
	// Server is the configuration for the gateway server.
	Server ServerConfig `yaml:"server"`
}

// ServerConfig is the configuration for the gateway server.
type ServerConfig struct {
	// Endpoint is the endpoint for the gateway server to be exposed on.
	Endpoint string `yaml:"endpoint"`
	// MaxMessageSize limits the size of a single gRPC message in both
	// directions.
	MaxMessageSize datasize.ByteSize `yaml:"max_message_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Endpoint:       "127.0.0.1:50051",
			MaxMessageSize: 4 * datasize.MB,
		},
	}
}
