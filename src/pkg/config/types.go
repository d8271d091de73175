package config

// FileConfig is the optional YAML configuration file. Every field can also be
// given as an Action input or a flag, which take precedence.
type FileConfig struct {
	// Repo is the target repository, owner/name
	Repo string `yaml:"repo"`
	// Category is the slug of the discussion category
	Category string `yaml:"category"`
	// Cycle is week or month
	Cycle         string        `yaml:"cycle"`
	TemplatesPath string        `yaml:"templatesPath"`
	APIURL        string        `yaml:"apiUrl"`
	Tracing       TracingConfig `yaml:"tracing"`
}

type TracingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"outputDir"`
}
