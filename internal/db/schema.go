package db

// One row per cached query
const createQueriesTable = `
CREATE TABLE IF NOT EXISTS cached_queries (
    query TEXT PRIMARY KEY,
    fully_fetched INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// One row per cached page, so an empty page is still recorded
const createPagesTable = `
CREATE TABLE IF NOT EXISTS cached_pages (
    query TEXT NOT NULL,
    page INTEGER NOT NULL,
    PRIMARY KEY (query, page)
);
`

// Repositories on a page, ordered by position
const createRepositoriesTable = `
CREATE TABLE IF NOT EXISTS cached_repositories (
    query TEXT NOT NULL,
    page INTEGER NOT NULL,
    position INTEGER NOT NULL,
    full_name TEXT NOT NULL,
    description TEXT,
    stargazers_count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (query, page, position)
);

CREATE INDEX IF NOT EXISTS idx_repositories_page ON cached_repositories(query, page);
`

const insertQuery = `
INSERT INTO cached_queries (query, fully_fetched) VALUES (?, ?)
`

const insertPage = `
INSERT INTO cached_pages (query, page) VALUES (?, ?)
`

const insertRepository = `
INSERT INTO cached_repositories (
    query, page, position, full_name, description, stargazers_count
) VALUES (?, ?, ?, ?, ?, ?)
`

const selectQueries = `
SELECT query, fully_fetched FROM cached_queries
`

const selectPages = `
SELECT query, page FROM cached_pages
`

const selectRepositories = `
SELECT query, page, full_name, description, stargazers_count
FROM cached_repositories
ORDER BY query, page, position ASC
`

const deleteRepositories = `DELETE FROM cached_repositories`
const deletePages = `DELETE FROM cached_pages`
const deleteQueries = `DELETE FROM cached_queries`
