package models

import (
	"encoding/json"
	"testing"
)

func TestSearchTerms(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"cli", "cli is:public"},
		{"terminal file manager", "terminal file manager is:public"},
		{"", "is:public"},
	}
	for _, tt := range tests {
		if got := SearchTerms(tt.query); got != tt.want {
			t.Errorf("SearchTerms(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestRepositoryDecode(t *testing.T) {
	var resp SearchResponse
	body := `{"total_count":2,"incomplete_results":false,"items":[
		{"full_name":"cli/cli","description":"GitHub CLI","stargazers_count":37000,"forks":9000},
		{"full_name":"a/b","description":null,"stargazers_count":0}
	]}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(resp.Items))
	}
	if got := resp.Items[0].DescriptionOr("none"); got != "GitHub CLI" {
		t.Errorf("DescriptionOr() = %q", got)
	}
	if resp.Items[1].Description != nil {
		t.Errorf("null description decoded as %q", *resp.Items[1].Description)
	}
	if got := resp.Items[1].DescriptionOr("no description"); got != "no description" {
		t.Errorf("DescriptionOr() = %q", got)
	}
}

func TestAssetLabel(t *testing.T) {
	a := Asset{Name: "tool_linux_amd64.tar.gz", Size: 1_310_720}
	if got, want := a.Label(), "tool_linux_amd64.tar.gz (1.25 MB)"; got != want {
		t.Errorf("Label() = %q, want %q", got, want)
	}
}

func TestReleaseDisplayName(t *testing.T) {
	name := "Version 2"
	empty := ""
	tests := []struct {
		name *string
		want string
	}{
		{nil, "unnamed release"},
		{&empty, "unnamed release"},
		{&name, "Version 2"},
	}
	for _, tt := range tests {
		if got := (Release{TagName: "v2", Name: tt.name}).DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}
