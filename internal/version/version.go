// Package version reports the build version and checks for newer releases.
package version

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/mxl4r/Prism-LLM-frontend/internal/httpclient"
)

// AppVersion is overridden at build time with -ldflags "-X .../internal/version.AppVersion=v1.2.3".
var AppVersion = "v0.0.0"

// ReleasesURL points at the latest-release endpoint of the GitHub API.
const ReleasesURL = "https://api.github.com/repos/mxl4r/Prism-LLM-frontend/releases/latest"

type gitHubRelease struct {
	TagName string `json:"tag_name"`
}

// Update describes the result of a release check.
type Update struct {
	Current   string
	Latest    string
	Available bool
}

// Check asks url for the latest release and compares it with AppVersion.
func Check(ctx context.Context, client httpclient.HTTPClient, url string) (*Update, error) {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}

	var release gitHubRelease
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if err := httpclient.SendRequest(ctx, client, http.MethodGet, url, headers, nil, &release); err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}

	return Compare(AppVersion, release.TagName)
}

// Compare reports whether latest is newer than current.
func Compare(current, latest string) (*Update, error) {
	cur, err := goversion.NewVersion(current)
	if err != nil {
		return nil, fmt.Errorf("parse current version %q: %w", current, err)
	}
	lat, err := goversion.NewVersion(latest)
	if err != nil {
		return nil, fmt.Errorf("parse latest version %q: %w", latest, err)
	}

	return &Update{
		Current:   current,
		Latest:    latest,
		Available: cur.LessThan(lat),
	}, nil
}
