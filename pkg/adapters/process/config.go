package process

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorkerConfig describes one launchable worker command.
type WorkerConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of workers.yaml.
type ConfigFile struct {
	Workers []WorkerConfig `yaml:"workers" json:"workers"`
}

// LoadWorkers reads a YAML configuration file and returns a map of worker
// names to configs. A missing file is treated as "no workers configured".
func LoadWorkers(path string) (map[string]WorkerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]WorkerConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read workers config: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse workers config: %w", err)
	}

	workers := make(map[string]WorkerConfig)
	for _, w := range cfg.Workers {
		if w.Name == "" {
			continue
		}
		workers[w.Name] = w
	}
	return workers, nil
}
