package summarizer

import "slices"

// Artifact is a natural-language summary of a batch of commits.
type Artifact struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

const (
	emptyName        = "No Changes"
	emptyDescription = "No commits were provided for summarization."

	errorName        = "Error in Summarization"
	errorDescription = "An error occurred while trying to summarize the commit. Please try again later or contact support if the problem persists."

	// DefaultName, DefaultDescription and DefaultTag fill fields missing
	// from a free-text reply.
	DefaultName        = "Untitled Changes"
	DefaultDescription = "No description provided."
	DefaultTag         = "untagged"
)

// EmptyArtifact is returned for a batch with no commits.
func EmptyArtifact() Artifact {
	return Artifact{Name: emptyName, Description: emptyDescription, Tags: []string{"empty"}}
}

// ErrorArtifact replaces the result of any failed summarization.
func ErrorArtifact() Artifact {
	return Artifact{Name: errorName, Description: errorDescription, Tags: []string{"error"}}
}

// IsError reports whether a is the canned failure artifact.
func (a Artifact) IsError() bool {
	return a.Name == errorName && a.Description == errorDescription && slices.Equal(a.Tags, []string{"error"})
}
