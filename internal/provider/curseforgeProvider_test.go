package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dig-pestroyer/NyxPatch/internal/curseforge"
	"github.com/Dig-pestroyer/NyxPatch/internal/modfile"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCurseforgeProvider(server *httptest.Server) *CurseforgeProvider {
	return NewCurseforgeProvider(testutil.MustNewHostRewriteDoer(server.URL, server.Client()))
}

const sodiumFilePayload = `{
	"id": 5086019,
	"modId": 394468,
	"isAvailable": true,
	"displayName": "sodium-fabric-0.5.8",
	"fileName": "sodium-fabric-0.5.8.jar",
	"releaseType": 1,
	"fileDate": "2024-01-20T12:00:00Z",
	"fileLength": 1048576,
	"downloadUrl": "https://edge.forgecdn.net/files/5086/019/sodium-fabric-0.5.8.jar",
	"gameVersions": ["1.20.1", "Fabric"],
	"hashes": [{"algo": 1, "value": "f6f861ad421b1252e5a76c4c04fad54325d85bdc"}]
}`

func TestCurseforgeResolveByFingerprint(t *testing.T) {
	t.Setenv("CURSEFORGE_API_KEY", "mock_curseforge_api_key")

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fingerprints/432":
			assert.Equal(t, http.MethodPost, r.Method)
			writeResponse(t, w, `{"data": {"exactMatches": [{"id": 1, "file": `+sodiumFilePayload+`}], "unmatchedFingerprints": []}}`)
		case "/mods/394468":
			writeResponse(t, w, `{"data": {"id": 394468, "name": "Sodium", "slug": "sodium"}}`)
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mockServer.Close()

	identity := modfile.Identity{
		Slug:        "sodium",
		Name:        "Sodium",
		Loader:      models.FABRIC,
		Fingerprint: 2683787853,
	}

	ref, ok, err := newCurseforgeProvider(mockServer).Resolve(context.Background(), identity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.CURSEFORGE, ref.Platform)
	assert.Equal(t, "394468", ref.ProjectID)
	assert.Equal(t, "Sodium", ref.Name)
}

func TestCurseforgeResolveFallsBackToSearch(t *testing.T) {
	t.Setenv("CURSEFORGE_API_KEY", "mock_curseforge_api_key")

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fingerprints/432":
			writeResponse(t, w, `{"data": {"exactMatches": [], "unmatchedFingerprints": [12345]}}`)
		case "/mods/search":
			assert.Equal(t, "Sodium", r.URL.Query().Get("searchFilter"))
			writeResponse(t, w, `{"data": [{"id": 394468, "name": "Sodium", "slug": "sodium"}], "pagination": {"index": 0, "pageSize": 50, "resultCount": 1, "totalCount": 1}}`)
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mockServer.Close()

	identity := modfile.Identity{
		Slug:        "sodium",
		Name:        "Sodium",
		Loader:      models.FABRIC,
		Fingerprint: 12345,
	}

	ref, ok, err := newCurseforgeProvider(mockServer).Resolve(context.Background(), identity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "394468", ref.ProjectID)
}

func TestCurseforgeListVersions(t *testing.T) {
	t.Setenv("CURSEFORGE_API_KEY", "mock_curseforge_api_key")

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/394468/files", r.URL.Path)
		assert.Equal(t, "1.20.1", r.URL.Query().Get("gameVersion"))
		writeResponse(t, w, `{"data": [`+sodiumFilePayload+`], "pagination": {"index": 0, "pageSize": 50, "resultCount": 1, "totalCount": 1}}`)
	}))
	defer mockServer.Close()

	ref := ProjectReference{Platform: models.CURSEFORGE, ProjectID: "394468", Name: "Sodium"}
	versions, err := newCurseforgeProvider(mockServer).ListVersions(context.Background(), ref, "1.20.1", models.FABRIC)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	version := versions[0]
	assert.Equal(t, "5086019", version.VersionID)
	assert.Equal(t, "0.5.8", version.VersionNumber)
	assert.Equal(t, models.Release, version.Channel)
	assert.Equal(t, []string{"1.20.1"}, version.GameVersions)
	assert.Equal(t, []models.Loader{models.FABRIC}, version.Loaders)
	assert.Equal(t, "f6f861ad421b1252e5a76c4c04fad54325d85bdc", version.Sha1)
}

func TestCurseforgeGetVersionDetail(t *testing.T) {
	t.Setenv("CURSEFORGE_API_KEY", "mock_curseforge_api_key")

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/394468/files/5086019", r.URL.Path)
		writeResponse(t, w, `{"data": `+sodiumFilePayload+`}`)
	}))
	defer mockServer.Close()

	ref := ProjectReference{Platform: models.CURSEFORGE, ProjectID: "394468"}
	version, err := newCurseforgeProvider(mockServer).GetVersionDetail(context.Background(), ref, "5086019")
	require.NoError(t, err)
	assert.Equal(t, "5086019", version.VersionID)
	assert.Equal(t, "sodium-fabric-0.5.8.jar", version.FileName)
}

func TestCurseforgeResolveDownloadFallsBackToEndpoint(t *testing.T) {
	t.Setenv("CURSEFORGE_API_KEY", "mock_curseforge_api_key")

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/394468/files/5086019/download-url", r.URL.Path)
		writeResponse(t, w, `{"data": "https://edge.forgecdn.net/files/5086/019/sodium-fabric-0.5.8.jar"}`)
	}))
	defer mockServer.Close()

	version := RemoteVersion{
		ProjectID: "394468",
		VersionID: "5086019",
		Sha1:      "f6f861ad421b1252e5a76c4c04fad54325d85bdc",
		FileName:  "sodium-fabric-0.5.8.jar",
	}

	download, err := newCurseforgeProvider(mockServer).ResolveDownload(context.Background(), version)
	require.NoError(t, err)
	assert.Equal(t, "https://edge.forgecdn.net/files/5086/019/sodium-fabric-0.5.8.jar", download.URL)
	assert.Equal(t, version.Sha1, download.Sha1)
}

func curseforgeFile(displayName string, fileName string) curseforge.File {
	return curseforge.File{
		DisplayName: displayName,
		FileName:    fileName,
	}
}

func TestVersionNumberFromFileName(t *testing.T) {
	tests := []struct {
		name     string
		display  string
		fileName string
		expected string
	}{
		{"display name with dash", "sodium-fabric-0.5.8", "", "0.5.8"},
		{"file name only", "", "jei-1.20.1-15.2.0.27.jar", "15.2.0.27"},
		{"v prefix stripped", "lithium v0.11.2", "", "0.11.2"},
		{"no separator", "0.5.8", "", "0.5.8"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Other fields are irrelevant to version recovery.
			actual := versionNumberFromFile(curseforgeFile(test.display, test.fileName))
			assert.Equal(t, test.expected, actual)
		})
	}
}
