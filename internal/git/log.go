package git

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

type CommitInfo struct {
	Hash        string
	Message     string
	AuthorName  string
	AuthorEmail string
	CommittedAt time.Time
}

type LogOptions struct {
	// Since drops commits authored before it. Zero keeps everything.
	Since time.Time
	// Limit bounds the number of commits returned. <= 0 means no limit.
	Limit int
	// StopAtHash ends the walk at a commit already known to the caller.
	StopAtHash string
}

// Log returns the commits reachable from HEAD, newest first by committer
// time.
func (r *Repository) Log(opts LogOptions) ([]CommitInfo, error) {
	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create log iterator: %w", err)
	}
	defer iter.Close()

	var commits []CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		if opts.StopAtHash != "" && c.Hash.String() == opts.StopAtHash {
			return storer.ErrStop
		}
		if !opts.Since.IsZero() && c.Author.When.Before(opts.Since) {
			return storer.ErrStop
		}
		commits = append(commits, CommitInfo{
			Hash:        c.Hash.String(),
			Message:     c.Message,
			AuthorName:  c.Author.Name,
			AuthorEmail: c.Author.Email,
			CommittedAt: c.Author.When.UTC(),
		})
		if opts.Limit > 0 && len(commits) >= opts.Limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}
	return commits, nil
}
