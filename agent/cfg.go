package agent

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wishful-project/agent/common/go/logging"
	"github.com/wishful-project/agent/internal/gateway"
	"github.com/wishful-project/agent/modules/info"
	"github.com/wishful-project/agent/modules/netupi"
)

type Config config
type config struct {
	// Logging configuration.
	Logging logging.Config `yaml:"logging"`
	// Agent identity and behavior.
	Agent AgentConfig `yaml:"agent"`
	// UPI export configuration.
	UPI UPIConfig `yaml:"upi"`
	// Gateway configuration, used in remote mode only.
	Gateway *gateway.Config `yaml:"gateway"`
	// Modules configuration.
	Modules ModulesConfig `yaml:"modules"`
}

// AgentConfig describes the agent itself.
type AgentConfig struct {
	// Name is a human readable agent name.
	Name string `yaml:"name"`
	// Mode is the preferred operation mode.
	//
	// The mode passed to the agent constructor takes precedence, this value
	// is used by launchers to pick one.
	Mode Mode `yaml:"mode"`
	// CallTimeout bounds every UPI call issued through the controller. Zero
	// means no timeout.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// UPIConfig describes which UPI functions are exported.
type UPIConfig struct {
	// Export is a list of glob patterns, such as "net.*". Only matching
	// functions are callable. Empty list exports everything.
	Export []string `yaml:"export"`
}

// ModulesConfig describes built-in UPI modules.
type ModulesConfig struct {
	// Net is the configuration for the net module.
	Net *netupi.Config `yaml:"net"`
	// Info is the configuration for the info module.
	Info *info.Config `yaml:"info"`
}

func DefaultConfig() *Config {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "agent"
	}

	return &Config{
		Logging: logging.Config{
			Level:       zapcore.InfoLevel,
			OutputPaths: []string{"stderr"},
		},
		Agent: AgentConfig{
			Name:        hostname,
			Mode:        ModeLocal,
			CallTimeout: 10 * time.Second,
		},
		UPI: UPIConfig{
			Export: []string{},
		},
		Gateway: gateway.DefaultConfig(),
		Modules: ModulesConfig{
			Net:  netupi.DefaultConfig(),
			Info: info.DefaultConfig(),
		},
	}
}

// ReadDocument reads and parses the YAML document at the given path.
//
// The document root must be a mapping. The document is not interpreted
// otherwise.
func ReadDocument(path string) (*yaml.Node, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	doc := &yaml.Node{}
	if err := yaml.Unmarshal(buf, doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config root must be a mapping, got %s", nodeKindName(root.Kind))
	}

	return doc, nil
}

// DecodeConfig decodes the configuration document over the default
// configuration.
func DecodeConfig(doc *yaml.Node) (*Config, error) {
	cfg := DefaultConfig()
	if err := doc.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to deserialize config: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads the configuration from the given path.
func LoadConfig(path string) (*Config, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return DecodeConfig(doc)
}

// UnmarshalYAML serves as a proxy for validation.
//
// To avoid infinite recursion, the validating wrapper casts itself to the
// private config struct. This allows the decoder to operate on it using the
// default behavior for handling Go structs without an unmarshal method.
func (m *Config) UnmarshalYAML(value *yaml.Node) error {
	err := value.Decode((*config)(m))
	if err != nil {
		return err
	}
	return m.Validate()
}

// Validate validates the agent configuration.
func (m *Config) Validate() error {
	if err := m.Agent.Mode.Validate(); err != nil {
		return err
	}
	if m.Agent.CallTimeout < 0 {
		return fmt.Errorf("call timeout must not be negative: %s", m.Agent.CallTimeout)
	}
	if m.Gateway == nil {
		return fmt.Errorf("gateway is not configured")
	}
	return m.Modules.Validate()
}

func (m *ModulesConfig) Validate() error {
	if m.Net == nil {
		return fmt.Errorf("net module is not configured")
	}
	if m.Info == nil {
		return fmt.Errorf("info module is not configured")
	}
	return nil
}

func nodeKindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "empty document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "empty document"
	}
}
