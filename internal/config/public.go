package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PublicRepo is an entry of the public repository list.
type PublicRepo struct {
	Name     string `yaml:"name"`
	FullName string `yaml:"full_name"`
	URL      string `yaml:"url"`
}

type publicReposFile struct {
	Repositories []PublicRepo `yaml:"repositories"`
}

// LoadPublicRepos reads the public repository list. An empty path yields an
// empty list. Missing names and URLs are derived from full_name.
func LoadPublicRepos(path string) ([]PublicRepo, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public repos file: %w", err)
	}

	var f publicReposFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse public repos file: %w", err)
	}

	for i := range f.Repositories {
		r := &f.Repositories[i]
		r.FullName = strings.TrimSpace(r.FullName)
		if r.FullName == "" {
			return nil, fmt.Errorf("public repo %d has no full_name", i+1)
		}
		if r.Name == "" {
			r.Name = r.FullName[strings.LastIndex(r.FullName, "/")+1:]
		}
		if r.URL == "" {
			r.URL = "https://github.com/" + r.FullName
		}
	}
	return f.Repositories, nil
}
