package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dig-pestroyer/NyxPatch/internal/modfile"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModrinthProvider(server *httptest.Server) *ModrinthProvider {
	return NewModrinthProvider(testutil.MustNewHostRewriteDoer(server.URL, server.Client()))
}

func writeResponse(t *testing.T, writer http.ResponseWriter, payload string) {
	t.Helper()
	if _, err := writer.Write([]byte(payload)); err != nil {
		t.Fatalf("write response: %v", err)
	}
}

const sodiumVersionPayload = `{
	"id": "rAfhHfow",
	"project_id": "AANobbMI",
	"version_number": "0.5.8",
	"version_type": "release",
	"game_versions": ["1.20.1"],
	"loaders": ["fabric"],
	"date_published": "2024-01-20T12:00:00Z",
	"files": [
		{
			"filename": "sodium-fabric-0.5.8.jar",
			"primary": true,
			"size": 1048576,
			"url": "https://cdn.modrinth.com/data/AANobbMI/versions/rAfhHfow/sodium-fabric-0.5.8.jar",
			"hashes": {"sha1": "f6f861ad421b1252e5a76c4c04fad54325d85bdc"}
		}
	]
}`

func TestModrinthResolveByHash(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/version_file/f6f861ad421b1252e5a76c4c04fad54325d85bdc":
			writeResponse(t, w, sodiumVersionPayload)
		case "/v2/project/AANobbMI":
			writeResponse(t, w, `{"id": "AANobbMI", "title": "Sodium", "slug": "sodium"}`)
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mockServer.Close()

	identity := modfile.Identity{
		Slug:   "sodium",
		Name:   "Sodium",
		Loader: models.FABRIC,
		Sha1:   "f6f861ad421b1252e5a76c4c04fad54325d85bdc",
	}

	ref, ok, err := newModrinthProvider(mockServer).Resolve(context.Background(), identity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.MODRINTH, ref.Platform)
	assert.Equal(t, "AANobbMI", ref.ProjectID)
	assert.Equal(t, "Sodium", ref.Name)
}

func TestModrinthResolveFallsBackToSearch(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/version_file/0000000000000000000000000000000000000000":
			w.WriteHeader(http.StatusNotFound)
		case "/v2/search":
			assert.Equal(t, "Sodium", r.URL.Query().Get("query"))
			writeResponse(t, w, `{"hits": [{"project_id": "AANobbMI", "slug": "sodium", "title": "Sodium"}]}`)
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mockServer.Close()

	identity := modfile.Identity{
		Slug:   "sodium",
		Name:   "Sodium",
		Loader: models.FABRIC,
		Sha1:   "0000000000000000000000000000000000000000",
	}

	ref, ok, err := newModrinthProvider(mockServer).Resolve(context.Background(), identity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AANobbMI", ref.ProjectID)
}

func TestModrinthResolveUnknownMod(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResponse(t, w, `{"hits": []}`)
	}))
	defer mockServer.Close()

	identity := modfile.Identity{Slug: "no-such-mod", Name: "No Such Mod", Loader: models.FABRIC}

	_, ok, err := newModrinthProvider(mockServer).Resolve(context.Background(), identity)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestModrinthListVersions(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/project/AANobbMI/version", r.URL.Path)
		assert.Equal(t, `["1.20.1"]`, r.URL.Query().Get("game_versions"))
		assert.Equal(t, `["fabric"]`, r.URL.Query().Get("loaders"))
		writeResponse(t, w, "["+sodiumVersionPayload+"]")
	}))
	defer mockServer.Close()

	ref := ProjectReference{Platform: models.MODRINTH, ProjectID: "AANobbMI", Name: "Sodium"}
	versions, err := newModrinthProvider(mockServer).ListVersions(context.Background(), ref, "1.20.1", models.FABRIC)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	version := versions[0]
	assert.Equal(t, "0.5.8", version.VersionNumber)
	assert.Equal(t, models.Release, version.Channel)
	assert.Equal(t, "sodium-fabric-0.5.8.jar", version.FileName)
	assert.Equal(t, "f6f861ad421b1252e5a76c4c04fad54325d85bdc", version.Sha1)
	assert.Equal(t, int64(1048576), version.FileSize)
}

func TestModrinthGetVersionDetail(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/version/rAfhHfow", r.URL.Path)
		writeResponse(t, w, sodiumVersionPayload)
	}))
	defer mockServer.Close()

	ref := ProjectReference{Platform: models.MODRINTH, ProjectID: "AANobbMI"}
	version, err := newModrinthProvider(mockServer).GetVersionDetail(context.Background(), ref, "rAfhHfow")
	require.NoError(t, err)
	assert.Equal(t, "rAfhHfow", version.VersionID)
	assert.Equal(t, "0.5.8", version.VersionNumber)
}

func TestModrinthResolveDownloadUsesInlineURL(t *testing.T) {
	version := RemoteVersion{
		ProjectID:   "AANobbMI",
		VersionID:   "rAfhHfow",
		DownloadURL: "https://cdn.modrinth.com/sodium.jar",
		Sha1:        "f6f861ad421b1252e5a76c4c04fad54325d85bdc",
		FileSize:    1048576,
		FileName:    "sodium-fabric-0.5.8.jar",
	}

	download, err := NewModrinthProvider(http.DefaultClient).ResolveDownload(context.Background(), version)
	require.NoError(t, err)
	assert.Equal(t, version.DownloadURL, download.URL)
	assert.Equal(t, version.Sha1, download.Sha1)
}

func TestProviderForPlatform(t *testing.T) {
	clients := Clients{Modrinth: http.DefaultClient, Curseforge: http.DefaultClient}
	assert.Equal(t, models.MODRINTH, For(models.MODRINTH, clients).Platform())
	assert.Equal(t, models.CURSEFORGE, For(models.CURSEFORGE, clients).Platform())
}
