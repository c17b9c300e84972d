package agents

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Agent slugs
const (
	SlugHenry     = "henry"
	SlugFinance   = "finance"
	SlugMarketing = "marketing"
	SlugCampaign  = "campaign"
)

//go:embed personas.yaml
var personasYAML []byte

type Persona struct {
	Slug         string              `yaml:"-"`
	Name         string              `yaml:"name"`
	AgentID      string              `yaml:"agent_id"`
	MaxRounds    int                 `yaml:"max_rounds"`
	Persona      string              `yaml:"persona"`
	Instructions []string            `yaml:"instructions"`
	Phases       map[string][]string `yaml:"phases"`
}

// ParsePersonas decodes a personas document keyed by agent slug.
func ParsePersonas(data []byte) (map[string]Persona, error) {
	var raw map[string]Persona
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}
	out := make(map[string]Persona, len(raw))
	for slug, p := range raw {
		p.Slug = slug
		if strings.TrimSpace(p.Persona) == "" {
			return nil, fmt.Errorf("persona %q: persona text is empty", slug)
		}
		if p.AgentID == "" {
			p.AgentID = slug
		}
		if p.MaxRounds <= 0 {
			p.MaxRounds = 5
		}
		out[slug] = p
	}
	for _, slug := range []string{SlugHenry, SlugFinance, SlugMarketing, SlugCampaign} {
		if _, ok := out[slug]; !ok {
			return nil, fmt.Errorf("persona %q is not defined", slug)
		}
	}
	return out, nil
}

// DefaultPersonas returns the embedded personas.
func DefaultPersonas() map[string]Persona {
	p, err := ParsePersonas(personasYAML)
	if err != nil {
		panic(err)
	}
	return p
}
