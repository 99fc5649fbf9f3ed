package summarizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	namePrefix        = "Name:"
	descriptionPrefix = "Description:"
	tagsPrefix        = "Tags:"
)

// ParseFreeText extracts an artifact from a reply made of "Name:",
// "Description:" and "Tags:" lines. Each field is read independently from
// the first non-empty line starting with its prefix (case-sensitive, after
// trimming). Missing or empty fields get DefaultName, DefaultDescription and
// []string{DefaultTag}. Tags are comma-separated; blank entries are dropped.
func ParseFreeText(text string) Artifact {
	var (
		name, description, tags             string
		haveName, haveDescription, haveTags bool
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case !haveName && strings.HasPrefix(line, namePrefix):
			name, haveName = strings.TrimSpace(strings.TrimPrefix(line, namePrefix)), true
		case !haveDescription && strings.HasPrefix(line, descriptionPrefix):
			description, haveDescription = strings.TrimSpace(strings.TrimPrefix(line, descriptionPrefix)), true
		case !haveTags && strings.HasPrefix(line, tagsPrefix):
			tags, haveTags = strings.TrimPrefix(line, tagsPrefix), true
		}
	}

	a := Artifact{Name: name, Description: description, Tags: splitTags(tags)}
	if a.Name == "" {
		a.Name = DefaultName
	}
	if a.Description == "" {
		a.Description = DefaultDescription
	}
	if len(a.Tags) == 0 {
		a.Tags = []string{DefaultTag}
	}
	return a
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// rawArtifact distinguishes absent fields from empty ones.
type rawArtifact struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// ParseJSON decodes a schema-constrained reply and validates its shape:
// all three fields present and tags given as strings. Empty strings are
// accepted as they are.
// Markdown code fences around the object are tolerated.
func ParseJSON(text string) (Artifact, error) {
	text = stripFences(text)

	var raw rawArtifact
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return Artifact{}, fmt.Errorf("failed to decode summary: %w", err)
	}
	switch {
	case raw.Name == nil:
		return Artifact{}, fmt.Errorf("summary is missing %q", "name")
	case raw.Description == nil:
		return Artifact{}, fmt.Errorf("summary is missing %q", "description")
	case raw.Tags == nil:
		return Artifact{}, fmt.Errorf("summary is missing %q", "tags")
	}

	tags := *raw.Tags
	if tags == nil {
		tags = []string{}
	}
	return Artifact{Name: *raw.Name, Description: *raw.Description, Tags: tags}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
