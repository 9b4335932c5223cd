package modem

import "fmt"

// ConnType selects the transport a Config describes, matching the
// companion driver's conntype dispatch.
type ConnType string

// Supported connection types.
const (
	ConnTCP  ConnType = "tcp"
	ConnUART ConnType = "uart"
	ConnSPI  ConnType = "spi"
)

// Config is the recognized configuration surface for a single modem, see
// spec §6.3. Unknown YAML keys are rejected by the surrounding
// internal/config loader, not here.
type Config struct {
	ConnType    ConnType `yaml:"conntype"`
	Host        string   `yaml:"host,omitempty"`
	Port        int      `yaml:"port,omitempty"`
	Dev         string   `yaml:"dev,omitempty"`
	StartScript string   `yaml:"startscript,omitempty"`
	ModuleName  string   `yaml:"module_name,omitempty"`
	Debug       bool     `yaml:"debug"`
}

// BuildTransport constructs the Transport described by c.
func (c Config) BuildTransport() (Transport, error) {
	switch c.ConnType {
	case ConnTCP:
		return NewTCPTransport(c.Host, c.Port)
	case ConnUART:
		return NewUARTTransport(c.Dev, c.StartScript), nil
	case ConnSPI:
		return NewPTYTransport(c.Dev), nil
	default:
		return nil, fmt.Errorf("modem: unknown conntype %q", c.ConnType)
	}
}
