package prompts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pattern is one reusable animation technique appended to the system prompt.
type Pattern struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Snippet     string `yaml:"snippet,omitempty"`
}

type patternsFile struct {
	Patterns []Pattern `yaml:"patterns"`
}

// LoadPatterns reads the animation pattern corpus from a YAML file. An empty
// path returns no patterns; a missing file is an error so that typos in the
// configuration do not silently drop the corpus.
func LoadPatterns(path string) ([]Pattern, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns file: %w", err)
	}

	var pf patternsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse patterns file: %w", err)
	}

	for i, p := range pf.Patterns {
		if p.Name == "" {
			return nil, fmt.Errorf("pattern %d has no name", i)
		}
	}

	return pf.Patterns, nil
}
