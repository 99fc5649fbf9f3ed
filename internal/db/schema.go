package db

// Schema defines the tables shared by the DuckDB and SQLite backends.
// Both dialects accept the same DDL.
const Schema = `
-- Repositories table
CREATE TABLE IF NOT EXISTS repositories (
    full_name VARCHAR PRIMARY KEY,
    id BIGINT NOT NULL DEFAULT 0
);

-- Commits table, keyed globally by sha
CREATE TABLE IF NOT EXISTS commits (
    sha VARCHAR PRIMARY KEY,
    message VARCHAR NOT NULL,
    author VARCHAR NOT NULL,
    committed_at TIMESTAMP NOT NULL,
    repo_full_name VARCHAR NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_commits_repo ON commits(repo_full_name);
CREATE INDEX IF NOT EXISTS idx_commits_date ON commits(committed_at);
`
