// control/effective.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MarshalEffective renders the configuration actually in use.
func (c *Config) MarshalEffective(format string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("nil config")
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
		return yaml.Marshal(c)
	case "json":
		return json.MarshalIndent(c, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
