package provider

import (
	"context"
	"strconv"
	"strings"

	"github.com/Dig-pestroyer/NyxPatch/internal/curseforge"
	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/modfile"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/pkg/errors"
)

type CurseforgeProvider struct {
	client httpclient.Doer
}

func NewCurseforgeProvider(doer httpclient.Doer) *CurseforgeProvider {
	return &CurseforgeProvider{
		client: curseforge.NewClient(doer),
	}
}

func (p *CurseforgeProvider) Platform() models.Platform {
	return models.CURSEFORGE
}

func (p *CurseforgeProvider) Search(ctx context.Context, identity modfile.Identity) ([]ProjectReference, error) {
	query := identity.Name
	if query == "" {
		query = identity.Slug
	}
	projects, err := curseforge.SearchProjects(ctx, query, identity.Loader, "", p.client)
	if err != nil {
		return nil, err
	}
	references := make([]ProjectReference, 0, len(projects))
	for _, project := range projects {
		references = append(references, ProjectReference{
			Platform:  models.CURSEFORGE,
			ProjectID: strconv.Itoa(project.Id),
			Name:      project.Name,
		})
	}
	return references, nil
}

// Resolve tries the murmur2 fingerprint endpoint first. A fingerprint
// hit identifies the uploaded file itself, so it beats any amount of
// name matching. Unmatched fingerprints fall through to search.
func (p *CurseforgeProvider) Resolve(ctx context.Context, identity modfile.Identity) (ProjectReference, bool, error) {
	if identity.Fingerprint != 0 {
		result, err := curseforge.GetFingerprintsMatches(ctx, []int{int(identity.Fingerprint)}, p.client)
		if err != nil {
			return ProjectReference{}, false, err
		}
		if len(result.Matches) > 0 {
			match := result.Matches[0]
			project, projectErr := curseforge.GetProject(ctx, strconv.Itoa(match.ProjectId), p.client)
			if projectErr != nil {
				return ProjectReference{}, false, projectErr
			}
			return ProjectReference{
				Platform:  models.CURSEFORGE,
				ProjectID: strconv.Itoa(project.Id),
				Name:      project.Name,
			}, true, nil
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

func (p *CurseforgeProvider) ListVersions(ctx context.Context, ref ProjectReference, gameVersion string, loader models.Loader) ([]RemoteVersion, error) {
	projectId, err := strconv.Atoi(ref.ProjectID)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid curseforge project id %q", ref.ProjectID)
	}
	filter := curseforge.FileFilter{
		GameVersion: gameVersion,
		Loader:      loader,
	}
	files, err := curseforge.GetFilesForProject(ctx, projectId, filter, p.client)
	if err != nil {
		return nil, err
	}
	remote := make([]RemoteVersion, 0, len(files))
	for _, file := range files {
		if !file.IsAvailable {
			continue
		}
		remote = append(remote, remoteVersionFromCurseforge(ref.ProjectID, file))
	}
	return remote, nil
}

func (p *CurseforgeProvider) GetVersionDetail(ctx context.Context, ref ProjectReference, versionID string) (RemoteVersion, error) {
	projectId, err := strconv.Atoi(ref.ProjectID)
	if err != nil {
		return RemoteVersion{}, errors.Wrapf(err, "invalid curseforge project id %q", ref.ProjectID)
	}
	fileId, err := strconv.Atoi(versionID)
	if err != nil {
		return RemoteVersion{}, errors.Wrapf(err, "invalid curseforge file id %q", versionID)
	}
	file, err := curseforge.GetFile(ctx, projectId, fileId, p.client)
	if err != nil {
		return RemoteVersion{}, err
	}
	return remoteVersionFromCurseforge(ref.ProjectID, *file), nil
}

// ResolveDownload prefers the url the files endpoint already returned.
// Some projects withhold it there and only serve it from the dedicated
// download-url endpoint.
func (p *CurseforgeProvider) ResolveDownload(ctx context.Context, version RemoteVersion) (Download, error) {
	download := Download{
		URL:      version.DownloadURL,
		Sha1:     version.Sha1,
		Size:     version.FileSize,
		FileName: version.FileName,
	}
	if download.URL != "" {
		return download, nil
	}

	projectId, err := strconv.Atoi(version.ProjectID)
	if err != nil {
		return Download{}, errors.Wrapf(err, "invalid curseforge project id %q", version.ProjectID)
	}
	fileId, err := strconv.Atoi(version.VersionID)
	if err != nil {
		return Download{}, errors.Wrapf(err, "invalid curseforge file id %q", version.VersionID)
	}
	url, err := curseforge.GetDownloadURL(ctx, projectId, fileId, p.client)
	if err != nil {
		return Download{}, err
	}
	download.URL = url
	return download, nil
}

func remoteVersionFromCurseforge(projectID string, file curseforge.File) RemoteVersion {
	return RemoteVersion{
		ProjectID:     projectID,
		VersionID:     strconv.Itoa(file.Id),
		VersionNumber: versionNumberFromFile(file),
		Channel:       file.ReleaseType.ReleaseChannel(),
		GameVersions:  gameVersionsFromFile(file),
		Loaders:       loadersFromFile(file),
		FileName:      file.FileName,
		DownloadURL:   file.DownloadUrl,
		Sha1:          file.Sha1(),
		FileSize:      file.FileLength,
		PublishedAt:   file.FileDate,
	}
}

// versionNumberFromFile recovers a version string from the display
// name or file name, since the files endpoint carries no dedicated
// version field.
func versionNumberFromFile(file curseforge.File) string {
	name := file.DisplayName
	if name == "" {
		name = file.FileName
	}
	name = strings.TrimSuffix(name, ".jar")
	if index := strings.LastIndexAny(name, "-_ "); index >= 0 && index+1 < len(name) {
		candidate := name[index+1:]
		if strings.IndexFunc(candidate, isDigit) >= 0 {
			return strings.TrimPrefix(candidate, "v")
		}
	}
	return name
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// The gameVersions list mixes minecraft versions and loader names.
func gameVersionsFromFile(file curseforge.File) []string {
	versions := make([]string, 0, len(file.GameVersions))
	for _, entry := range file.GameVersions {
		if loaderForName(entry) == "" {
			versions = append(versions, entry)
		}
	}
	return versions
}

func loadersFromFile(file curseforge.File) []models.Loader {
	loaders := make([]models.Loader, 0, 1)
	for _, entry := range file.GameVersions {
		if loader := loaderForName(entry); loader != "" {
			loaders = append(loaders, loader)
		}
	}
	return loaders
}

func loaderForName(name string) models.Loader {
	for _, loader := range models.AllLoaders() {
		if strings.EqualFold(name, string(loader)) {
			return loader
		}
	}
	return ""
}
