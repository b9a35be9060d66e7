package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# blogsmith configuration
site:
  title: "My Blog"
  base_url: "https://example.com"
  description: "Notes on software and simulation"
  author: "Your Name"

content:
  dir: ./content
  include:
    - "**/*.md"
  exclude:
    - "drafts/**"
  excerpt_length: 280
  words_per_minute: 200
  git_info: false

images:
  widths: [480, 960, 1600]
  formats: [jpeg]
  quality: 85

output:
  directory: ./public

build:
  concurrency: 0 # 0 = number of CPUs

serve:
  addr: ":4200"
  # rebuild_interval: 1h
`

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
