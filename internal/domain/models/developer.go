package models

import "time"

// RepoStats is the commit rollup inside a development-activity entry. The
// commit hash is null in periods without commits.
type RepoStats struct {
	TotalCommits            int64   `json:"total_commits"`
	CoreContributorsCommits int64   `json:"core_contributors_commits"`
	ActiveRepos             int64   `json:"active_repos"`
	UniqueAuthors           int64   `json:"unique_authors"`
	LatestCommitHash        *string `json:"latest_commit_hash"`
}

// ActivityEntry is one development-activity sample for a symbol.
type ActivityEntry struct {
	CollectedAt time.Time `json:"collected_at"`
	RepoStats   RepoStats `json:"repo_stats"`
}

// ActivityDocument is the on-disk development resource for one symbol.
type ActivityDocument struct {
	Symbol      string            `json:"symbol"`
	Source      string            `json:"source"`
	Meta        map[string]string `json:"meta,omitempty"`
	ActivityLog []ActivityEntry   `json:"activity_log"`
}
