package classifier

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

// Term is one vocabulary entry. Multi-word terms are allowed.
type Term struct {
	Text   string `yaml:"term"`
	Weight int    `yaml:"weight"`
}

// Config is the immutable input of an Ensemble: the indicator vocabulary and
// the exclusion set.
type Config struct {
	Vocabulary []Term   `yaml:"vocabulary"`
	Exclusions []string `yaml:"exclusions"`
}

// DefaultConfig returns the embedded default vocabulary.
func DefaultConfig() Config {
	cfg, err := ParseConfig(defaultVocabularyYAML)
	if err != nil {
		// 埋め込みファイルはテストで検証済み
		panic(fmt.Sprintf("classifier: invalid embedded vocabulary: %v", err))
	}
	return cfg
}

// LoadConfig reads a vocabulary file. An empty path yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML vocabulary document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i := range cfg.Vocabulary {
		if cfg.Vocabulary[i].Weight == 0 {
			cfg.Vocabulary[i].Weight = 1
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that terms are non-empty, unique after normalization and
// positively weighted.
func (c Config) Validate() error {
	if len(c.Vocabulary) == 0 {
		return fmt.Errorf("%w: empty vocabulary", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Vocabulary))
	for _, t := range c.Vocabulary {
		key := normalizeTerm(t.Text)
		if key == "" {
			return fmt.Errorf("%w: empty term", ErrInvalidConfig)
		}
		if t.Weight < 1 {
			return fmt.Errorf("%w: term %q has weight %d", ErrInvalidConfig, t.Text, t.Weight)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate term %q", ErrInvalidConfig, t.Text)
		}
		seen[key] = struct{}{}
	}
	for _, e := range c.Exclusions {
		if normalizeTerm(e) == "" {
			return fmt.Errorf("%w: empty exclusion", ErrInvalidConfig)
		}
	}
	return nil
}
