package github

import (
	"fmt"
	"net/url"
	"strings"
)

// RepoRef identifies a repository as owner/name.
type RepoRef struct {
	Owner string
	Name  string
}

// ParseRepoRef parses "owner/name".
func ParseRepoRef(fullName string) (RepoRef, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok {
		return RepoRef{}, fmt.Errorf("repository %q must be in owner/name form", fullName)
	}
	return NewRepoRef(owner, name)
}

// NewRepoRef validates both halves of a repository name.
func NewRepoRef(owner, name string) (RepoRef, error) {
	owner = strings.TrimSpace(owner)
	name = strings.TrimSpace(name)
	if owner == "" || name == "" {
		return RepoRef{}, fmt.Errorf("repository owner and name are required")
	}
	if strings.Contains(owner, "/") || strings.Contains(name, "/") {
		return RepoRef{}, fmt.Errorf("repository %q must be in owner/name form", owner+"/"+name)
	}
	return RepoRef{Owner: owner, Name: name}, nil
}

// FullName returns "owner/name".
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// Key is the lower-cased full name. GitHub resolves owner and name without
// regard to case, so stored rows and cache entries use this form.
func (r RepoRef) Key() string {
	return strings.ToLower(r.FullName())
}

func (r RepoRef) String() string {
	return r.FullName()
}

func (r RepoRef) path() string {
	return url.PathEscape(r.Owner) + "/" + url.PathEscape(r.Name)
}
