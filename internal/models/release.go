package models

import "fmt"

// Asset is a downloadable file attached to a release
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// SizeMB returns the asset size in mebibytes
func (a Asset) SizeMB() float64 {
	return float64(a.Size) / 1_048_576.0
}

// Label renders the asset for selection lists, e.g. "tool.tar.gz (1.25 MB)"
func (a Asset) Label() string {
	return fmt.Sprintf("%s (%.2f MB)", a.Name, a.SizeMB())
}

// Release is the latest published release of a repository
type Release struct {
	TagName string  `json:"tag_name"`
	Name    *string `json:"name"`
	Assets  []Asset `json:"assets"`
}

// DisplayName returns the release name, or "unnamed release"
func (r Release) DisplayName() string {
	if r.Name == nil || *r.Name == "" {
		return "unnamed release"
	}
	return *r.Name
}
