// Package provider abstracts the remote mod registries behind a single
// capability interface. Adding a registry means adding one more
// implementation; the resolution engine never sees registry specifics.
package provider

import (
	"context"
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/modfile"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"golang.org/x/time/rate"
)

// ProjectReference identifies a mod project on one registry. An
// unresolved mod is a valid, reportable state, not an error.
type ProjectReference struct {
	Platform  models.Platform `json:"platform"`
	ProjectID string          `json:"project_id"`
	Name      string          `json:"name"`
}

// RemoteVersion is a single downloadable release of a project,
// normalized across registries. Immutable once fetched.
type RemoteVersion struct {
	ProjectID     string             `json:"project_id"`
	VersionID     string             `json:"version_id"`
	VersionNumber string             `json:"version_number"`
	Channel       models.ReleaseType `json:"channel"`
	GameVersions  []string           `json:"game_versions"`
	Loaders       []models.Loader    `json:"loaders"`
	FileName      string             `json:"file_name"`
	DownloadURL   string             `json:"download_url"`
	Sha1          string             `json:"sha1"`
	FileSize      int64              `json:"file_size"`
	PublishedAt   time.Time          `json:"published_at"`
}

// Download is the resolved artifact descriptor for one RemoteVersion.
type Download struct {
	URL      string
	Sha1     string
	Size     int64
	FileName string
}

type Provider interface {
	Platform() models.Platform

	// Search returns project candidates ranked by name similarity.
	// An empty list is a valid, non-error result.
	Search(ctx context.Context, identity modfile.Identity) ([]ProjectReference, error)

	// Resolve matches a local file to its project, preferring exact
	// hash or fingerprint matches and falling back to name search.
	// ok is false when the registry does not know the mod.
	Resolve(ctx context.Context, identity modfile.Identity) (ref ProjectReference, ok bool, err error)

	ListVersions(ctx context.Context, ref ProjectReference, gameVersion string, loader models.Loader) ([]RemoteVersion, error)

	GetVersionDetail(ctx context.Context, ref ProjectReference, versionID string) (RemoteVersion, error)

	// ResolveDownload produces the short-lived authorized url plus the
	// expected checksum and size for a version.
	ResolveDownload(ctx context.Context, version RemoteVersion) (Download, error)
}

type Clients struct {
	Modrinth   httpclient.Doer
	Curseforge httpclient.Doer
}

func DefaultClients(limiter *rate.Limiter) Clients {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	client := httpclient.NewRLClient(limiter)
	return Clients{
		Modrinth:   client,
		Curseforge: client,
	}
}

// For returns the provider backend for a platform.
func For(platform models.Platform, clients Clients) Provider {
	switch platform {
	case models.CURSEFORGE:
		return NewCurseforgeProvider(clients.Curseforge)
	default:
		return NewModrinthProvider(clients.Modrinth)
	}
}
