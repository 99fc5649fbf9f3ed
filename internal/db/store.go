package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository is a synchronized remote repository.
type Repository struct {
	FullName string
	ID       int64
}

// Commit is a stored commit. SHA is unique across all repositories.
type Commit struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	Date         time.Time `json:"date"`
	RepoFullName string    `json:"repoFullName"`
}

// Order is the sort direction on commit date.
type Order int

const (
	Ascending Order = iota
	Descending
)

// FindOptions controls FindByRepo. Limit <= 0 means no limit.
type FindOptions struct {
	Order Order
	Limit int
}

// Store persists repositories and commits with insert-or-ignore semantics.
// It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// New wraps an open database. The schema is not applied.
func New(database *sql.DB) *Store {
	return &Store{db: database}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureRepository records a repository the first time it is seen. Later
// calls leave the row untouched.
func (s *Store) EnsureRepository(ctx context.Context, fullName string, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories (full_name, id)
		VALUES (?, ?)
		ON CONFLICT (full_name) DO NOTHING
	`, fullName, id)
	if err == nil {
		return nil
	}
	if exists, qerr := s.exists(ctx, `SELECT COUNT(*) FROM repositories WHERE full_name = ?`, fullName); qerr == nil && exists {
		return nil
	}
	return &PersistenceError{Op: "ensure repository", Key: fullName, Err: err}
}

// UpsertCommit inserts c unless a commit with the same sha exists, in which
// case the stored row wins and nothing is written.
//
// A concurrent writer that loses the race on the same sha may see a
// constraint or transaction-conflict error from the driver instead of a
// silent no-op. That is detected by re-reading the key and suppressed.
func (s *Store) UpsertCommit(ctx context.Context, c Commit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commits (sha, message, author, committed_at, repo_full_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (sha) DO NOTHING
	`, c.SHA, c.Message, c.Author, c.Date.UTC(), c.RepoFullName)
	if err == nil {
		return nil
	}
	if exists, qerr := s.exists(ctx, `SELECT COUNT(*) FROM commits WHERE sha = ?`, c.SHA); qerr == nil && exists {
		return nil
	}
	return &PersistenceError{Op: "upsert commit", Key: c.SHA, Err: err}
}

// FindByRepo returns the commits stored for a repository ordered by date,
// with sha as tiebreaker.
func (s *Store) FindByRepo(ctx context.Context, fullName string, opts FindOptions) ([]Commit, error) {
	dir := "ASC"
	if opts.Order == Descending {
		dir = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT sha, message, author, committed_at, repo_full_name
		FROM commits
		WHERE repo_full_name = ?
		ORDER BY committed_at %s, sha %s`, dir, dir)

	args := []any{fullName}
	if opts.Limit > 0 {
		query += "\n\t\tLIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "find commits", Key: fullName, Err: err}
	}
	defer rows.Close()

	var commits []Commit
	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.SHA, &c.Message, &c.Author, &c.Date, &c.RepoFullName); err != nil {
			return nil, &PersistenceError{Op: "scan commit", Key: fullName, Err: err}
		}
		c.Date = c.Date.UTC()
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "find commits", Key: fullName, Err: err}
	}
	return commits, nil
}

// CountByRepo returns the number of stored commits for a repository.
func (s *Store) CountByRepo(ctx context.Context, fullName string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commits WHERE repo_full_name = ?`, fullName).Scan(&count)
	if err != nil {
		return 0, &PersistenceError{Op: "count commits", Key: fullName, Err: err}
	}
	return count, nil
}

// ListRepositories returns every known repository by name.
func (s *Store) ListRepositories(ctx context.Context) ([]Repository, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT full_name, id FROM repositories ORDER BY full_name`)
	if err != nil {
		return nil, &PersistenceError{Op: "list repositories", Err: err}
	}
	defer rows.Close()

	var repos []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.FullName, &r.ID); err != nil {
			return nil, &PersistenceError{Op: "scan repository", Err: err}
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list repositories", Err: err}
	}
	return repos, nil
}

// DeleteRepository removes a repository and its commits. It returns the
// number of commits removed.
func (s *Store) DeleteRepository(ctx context.Context, fullName string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &PersistenceError{Op: "delete repository", Key: fullName, Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM commits WHERE repo_full_name = ?`, fullName)
	if err != nil {
		return 0, &PersistenceError{Op: "delete commits", Key: fullName, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &PersistenceError{Op: "delete commits", Key: fullName, Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM repositories WHERE full_name = ?`, fullName); err != nil {
		return 0, &PersistenceError{Op: "delete repository", Key: fullName, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return 0, &PersistenceError{Op: "delete repository", Key: fullName, Err: err}
	}
	return n, nil
}

func (s *Store) exists(ctx context.Context, query string, key string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
