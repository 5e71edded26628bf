package provider

import (
	"context"

	"github.com/Dig-pestroyer/NyxPatch/internal/globalerrors"
	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/modfile"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/modrinth"
	"github.com/pkg/errors"
)

type ModrinthProvider struct {
	client httpclient.Doer
}

func NewModrinthProvider(doer httpclient.Doer) *ModrinthProvider {
	return &ModrinthProvider{
		client: modrinth.NewClient(doer),
	}
}

func (p *ModrinthProvider) Platform() models.Platform {
	return models.MODRINTH
}

func (p *ModrinthProvider) Search(ctx context.Context, identity modfile.Identity) ([]ProjectReference, error) {
	query := identity.Name
	if query == "" {
		query = identity.Slug
	}
	hits, err := modrinth.SearchProjects(ctx, query, identity.Loader, "", p.client)
	if err != nil {
		return nil, err
	}
	references := make([]ProjectReference, 0, len(hits))
	for _, hit := range hits {
		references = append(references, ProjectReference{
			Platform:  models.MODRINTH,
			ProjectID: hit.ProjectID,
			Name:      hit.Title,
		})
	}
	return references, nil
}

// Resolve prefers the sha1 lookup because it pins the exact local file
// to its release. Name search is only consulted when the hash is
// unknown to the registry.
func (p *ModrinthProvider) Resolve(ctx context.Context, identity modfile.Identity) (ProjectReference, bool, error) {
	if identity.Sha1 != "" {
		lookup := modrinth.NewVersionHashLookup(identity.Sha1, modrinth.Sha1)
		version, err := modrinth.GetVersionForHash(ctx, lookup, p.client)
		if err == nil {
			project, projectErr := modrinth.GetProject(ctx, version.ProjectId, p.client)
			if projectErr != nil {
				return ProjectReference{}, false, projectErr
			}
			return ProjectReference{
				Platform:  models.MODRINTH,
				ProjectID: project.Id,
				Name:      project.Title,
			}, true, nil
		}
		var notFound *modrinth.VersionNotFoundError
		if !errors.As(err, &notFound) {
			return ProjectReference{}, false, err
		}
	}

	hits, err := p.Search(ctx, identity)
	if err != nil {
		return ProjectReference{}, false, err
	}
	if len(hits) == 0 {
		return ProjectReference{}, false, nil
	}
	return hits[0], true, nil
}

func (p *ModrinthProvider) ListVersions(ctx context.Context, ref ProjectReference, gameVersion string, loader models.Loader) ([]RemoteVersion, error) {
	lookup := &modrinth.VersionLookup{
		ProjectId:    ref.ProjectID,
		Loaders:      []models.Loader{loader},
		GameVersions: []string{gameVersion},
	}
	versions, err := modrinth.GetVersionsForProject(ctx, lookup, p.client)
	if err != nil {
		return nil, err
	}
	remote := make([]RemoteVersion, 0, len(versions))
	for _, version := range versions {
		remote = append(remote, remoteVersionFromModrinth(version))
	}
	return remote, nil
}

func (p *ModrinthProvider) GetVersionDetail(ctx context.Context, ref ProjectReference, versionID string) (RemoteVersion, error) {
	version, err := modrinth.GetVersion(ctx, versionID, p.client)
	if err != nil {
		return RemoteVersion{}, err
	}
	return remoteVersionFromModrinth(*version), nil
}

func (p *ModrinthProvider) ResolveDownload(ctx context.Context, version RemoteVersion) (Download, error) {
	if version.DownloadURL != "" {
		return Download{
			URL:      version.DownloadURL,
			Sha1:     version.Sha1,
			Size:     version.FileSize,
			FileName: version.FileName,
		}, nil
	}
	detail, err := modrinth.GetVersion(ctx, version.VersionID, p.client)
	if err != nil {
		return Download{}, err
	}
	file, ok := detail.PrimaryFile()
	if !ok {
		return Download{}, &globalerrors.ProjectNotFoundError{
			ProjectID: version.ProjectID,
			Platform:  models.MODRINTH,
		}
	}
	return Download{
		URL:      file.Url,
		Sha1:     file.Hashes.Sha1,
		Size:     file.Size,
		FileName: file.FileName,
	}, nil
}

func remoteVersionFromModrinth(version modrinth.Version) RemoteVersion {
	remote := RemoteVersion{
		ProjectID:     version.ProjectId,
		VersionID:     version.VersionId,
		VersionNumber: version.VersionNumber,
		Channel:       version.Type,
		GameVersions:  version.GameVersions,
		Loaders:       version.Loaders,
		PublishedAt:   version.DatePublished,
	}
	if file, ok := version.PrimaryFile(); ok {
		remote.FileName = file.FileName
		remote.DownloadURL = file.Url
		remote.Sha1 = file.Hashes.Sha1
		remote.FileSize = file.Size
	}
	return remote
}
