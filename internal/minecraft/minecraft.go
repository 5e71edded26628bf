// Package minecraft reads the Mojang launcher version manifest.
package minecraft

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
)

const versionManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

type latest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

type version struct {
	Id          string    `json:"id"`
	Type        string    `json:"type"`
	Url         string    `json:"url"`
	Time        time.Time `json:"time"`
	ReleaseTime time.Time `json:"releaseTime"`
}

type versionManifest struct {
	Latest   latest    `json:"latest"`
	Versions []version `json:"versions"`
}

// The manifest rarely changes within a single run, so one fetch is shared
// across calls.
var (
	manifestMu     sync.Mutex
	cachedManifest *versionManifest
)

// ClearManifestCache drops the cached manifest. Tests use this between cases.
func ClearManifestCache() {
	manifestMu.Lock()
	cachedManifest = nil
	manifestMu.Unlock()
}

func getVersionManifest(ctx context.Context, client httpclient.Doer) (*versionManifest, error) {
	manifestMu.Lock()
	defer manifestMu.Unlock()

	if cachedManifest != nil {
		return cachedManifest, nil
	}

	ctx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, versionManifestURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build version manifest request")
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, errors.Wrap(httpclient.WrapTimeoutError(err), "failed to fetch version manifest")
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, ErrManifestNotFound
	}

	var manifest versionManifest
	if err := json.NewDecoder(response.Body).Decode(&manifest); err != nil {
		return nil, errors.Wrap(err, "failed to decode version manifest")
	}

	cachedManifest = &manifest
	return cachedManifest, nil
}

// GetLatestVersion returns the id of the newest Minecraft release.
func GetLatestVersion(ctx context.Context, client httpclient.Doer) (string, error) {
	manifest, err := getVersionManifest(ctx, client)
	if err != nil {
		return "", err
	}

	if manifest.Latest.Release == "" {
		return "", ErrCouldNotDetermineLatestVersion
	}

	return manifest.Latest.Release, nil
}

// IsValidVersion reports whether the given id appears in the manifest.
func IsValidVersion(ctx context.Context, gameVersion string, client httpclient.Doer) (bool, error) {
	manifest, err := getVersionManifest(ctx, client)
	if err != nil {
		return false, err
	}

	for _, v := range manifest.Versions {
		if v.Id == gameVersion {
			return true, nil
		}
	}

	return false, nil
}

// GetAllVersions returns every version id the manifest knows about, newest
// first.
func GetAllVersions(ctx context.Context, client httpclient.Doer) ([]string, error) {
	manifest, err := getVersionManifest(ctx, client)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(manifest.Versions))
	for _, v := range manifest.Versions {
		versions = append(versions, v.Id)
	}

	return versions, nil
}
