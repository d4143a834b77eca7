package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

type overrideFile struct {
	Agents map[string]overrideEntry `yaml:"agents"`
}

type overrideEntry struct {
	Role    string `yaml:"role"`
	Mission string `yaml:"mission"`
}

// LoadFile returns the default registry with role/mission text replaced from a
// YAML file. Agents cannot be added, removed or reordered this way.
//
//	agents:
//	  strata:
//	    mission: "..."
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Registry, error) {
	var file overrideFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: parse persona file: %v", contractx.ErrValidation, err)
	}

	base := Default()
	agents := base.Order()
	for key, entry := range file.Agents {
		i := base.Position(Normalize(key))
		if i < 0 {
			return nil, fmt.Errorf("%w: persona file: %w %q", contractx.ErrValidation, contractx.ErrUnknownAgent, key)
		}
		if v := strings.TrimSpace(entry.Role); v != "" {
			agents[i].Role = v
		}
		if v := strings.TrimSpace(entry.Mission); v != "" {
			agents[i].Mission = v
		}
	}
	return newRegistry(agents)
}
