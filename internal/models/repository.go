package models

import "strings"

// Repository is a search candidate as returned by the GitHub search API.
// Values are snapshots and are never mutated after decoding.
type Repository struct {
	FullName        string  `json:"full_name"`
	Description     *string `json:"description"` // GitHub returns null for repos without one
	StargazersCount int     `json:"stargazers_count"`
}

// DescriptionOr returns the description, or fallback when none is set
func (r Repository) DescriptionOr(fallback string) string {
	if r.Description == nil || strings.TrimSpace(*r.Description) == "" {
		return fallback
	}
	return *r.Description
}

// SearchResponse is the body of GET /search/repositories
type SearchResponse struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []Repository `json:"items"`
}

// PublicQualifier restricts searches to public repositories
const PublicQualifier = "is:public"

// SearchTerms builds the q parameter for a query. The query text is kept
// as-is; it is the cache identity.
func SearchTerms(query string) string {
	if query == "" {
		return PublicQualifier
	}
	return query + " " + PublicQualifier
}
