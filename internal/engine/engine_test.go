package engine

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/cache"
	"github.com/Dig-pestroyer/NyxPatch/internal/globalerrors"
	"github.com/Dig-pestroyer/NyxPatch/internal/logger"
	"github.com/Dig-pestroyer/NyxPatch/internal/modfile"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	platform     models.Platform
	reference    provider.ProjectReference
	resolveOK    bool
	resolveErr   error
	versions     []provider.RemoteVersion
	versionsErr  error
	resolveCalls atomic.Int64
	listCalls    atomic.Int64
}

func (f *fakeProvider) Platform() models.Platform { return f.platform }

func (f *fakeProvider) Search(ctx context.Context, identity modfile.Identity) ([]provider.ProjectReference, error) {
	return nil, nil
}

func (f *fakeProvider) Resolve(ctx context.Context, identity modfile.Identity) (provider.ProjectReference, bool, error) {
	f.resolveCalls.Add(1)
	if f.resolveErr != nil {
		return provider.ProjectReference{}, false, f.resolveErr
	}
	return f.reference, f.resolveOK, nil
}

func (f *fakeProvider) ListVersions(ctx context.Context, ref provider.ProjectReference, gameVersion string, loader models.Loader) ([]provider.RemoteVersion, error) {
	f.listCalls.Add(1)
	if f.versionsErr != nil {
		return nil, f.versionsErr
	}
	return f.versions, nil
}

func (f *fakeProvider) GetVersionDetail(ctx context.Context, ref provider.ProjectReference, versionID string) (provider.RemoteVersion, error) {
	return provider.RemoteVersion{}, nil
}

func (f *fakeProvider) ResolveDownload(ctx context.Context, version provider.RemoteVersion) (provider.Download, error) {
	return provider.Download{URL: version.DownloadURL, Sha1: version.Sha1, FileName: version.FileName}, nil
}

func sodiumIdentity() modfile.Identity {
	return modfile.Identity{
		Path:     "/mods/sodium-fabric-0.5.0.jar",
		FileName: "sodium-fabric-0.5.0.jar",
		Slug:     "sodium",
		Name:     "Sodium",
		Version:  "0.5.0",
		Loader:   models.FABRIC,
	}
}

func sodiumCandidate(versionNumber string, channel models.ReleaseType) provider.RemoteVersion {
	return provider.RemoteVersion{
		ProjectID:     "AANobbMI",
		VersionID:     "id-" + versionNumber,
		VersionNumber: versionNumber,
		Channel:       channel,
		GameVersions:  []string{"1.20.1"},
		Loaders:       []models.Loader{models.FABRIC},
		PublishedAt:   time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC),
	}
}

func workingModrinth() *fakeProvider {
	return &fakeProvider{
		platform:  models.MODRINTH,
		reference: provider.ProjectReference{Platform: models.MODRINTH, ProjectID: "AANobbMI", Name: "Sodium"},
		resolveOK: true,
		versions: []provider.RemoteVersion{
			sodiumCandidate("0.5.0", models.Release),
			sodiumCandidate("0.5.8", models.Release),
			sodiumCandidate("0.6.0-beta", models.Beta),
		},
	}
}

func unknownCurseforge() *fakeProvider {
	return &fakeProvider{platform: models.CURSEFORGE, resolveOK: false}
}

func newEngine(modrinth *fakeProvider, curseforge *fakeProvider, options Options) *Engine {
	providers := map[models.Platform]provider.Provider{
		models.MODRINTH:   modrinth,
		models.CURSEFORGE: curseforge,
	}
	if options.GameVersion == "" {
		options.GameVersion = "1.20.1"
	}
	if options.Loader == "" {
		options.Loader = models.FABRIC
	}
	if options.DefaultProvider == "" {
		options.DefaultProvider = models.MODRINTH
	}
	return New(providers, cache.NewStore(cache.DefaultTTL), logger.New(io.Discard, io.Discard, true, false), options)
}

func TestUpdateAvailableExcludesRiskierChannel(t *testing.T) {
	engine := newEngine(workingModrinth(), unknownCurseforge(), Options{})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)

	decision := decisions[0]
	assert.Equal(t, StateDecided, decision.State)
	assert.Equal(t, UpdateAvailable, decision.Reason)
	assert.Equal(t, "0.5.8", decision.Selected.VersionNumber)
}

func TestUpToDate(t *testing.T) {
	modrinth := workingModrinth()
	modrinth.versions = []provider.RemoteVersion{sodiumCandidate("0.5.0", models.Release)}
	engine := newEngine(modrinth, unknownCurseforge(), Options{})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, UpToDate, decisions[0].Reason)
}

func TestIgnoredModIsSkippedBeforeAnyNetworkCall(t *testing.T) {
	modrinth := workingModrinth()
	curseforge := unknownCurseforge()
	engine := newEngine(modrinth, curseforge, Options{IgnoreMods: []string{"sodium"}})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, Skipped, decisions[0].Reason)
	assert.Equal(t, int64(0), modrinth.resolveCalls.Load())
	assert.Equal(t, int64(0), curseforge.resolveCalls.Load())
}

func TestExtractionFailureBecomesUnresolved(t *testing.T) {
	modrinth := workingModrinth()
	engine := newEngine(modrinth, unknownCurseforge(), Options{})

	scan := Scan{
		Path: "/mods/broken.jar",
		Err:  &modfile.UnreadableArchiveError{Path: "/mods/broken.jar"},
	}
	decisions := engine.Check(context.Background(), []Scan{scan})
	require.Len(t, decisions, 1)
	assert.Equal(t, Unresolved, decisions[0].Reason)
	assert.Error(t, decisions[0].Err)
	assert.Equal(t, int64(0), modrinth.resolveCalls.Load())
}

func TestUnknownOnBothProvidersIsUnresolved(t *testing.T) {
	modrinth := &fakeProvider{platform: models.MODRINTH, resolveOK: false}
	curseforge := unknownCurseforge()
	engine := newEngine(modrinth, curseforge, Options{})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, Unresolved, decisions[0].Reason)
	assert.Equal(t, int64(1), modrinth.resolveCalls.Load())
	assert.Equal(t, int64(1), curseforge.resolveCalls.Load())
}

func TestNoCompatibleCandidateIsIncompatible(t *testing.T) {
	modrinth := workingModrinth()
	wrongTarget := sodiumCandidate("9.9.9", models.Release)
	wrongTarget.GameVersions = []string{"1.21"}
	modrinth.versions = []provider.RemoteVersion{wrongTarget}
	engine := newEngine(modrinth, unknownCurseforge(), Options{})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, Incompatible, decisions[0].Reason)
}

func TestRateLimitedDefaultFallsBackOnce(t *testing.T) {
	modrinth := &fakeProvider{
		platform:   models.MODRINTH,
		resolveErr: &globalerrors.RateLimitedError{Platform: models.MODRINTH, RetryAfter: time.Minute},
	}
	curseforge := &fakeProvider{
		platform:  models.CURSEFORGE,
		reference: provider.ProjectReference{Platform: models.CURSEFORGE, ProjectID: "394468", Name: "Sodium"},
		resolveOK: true,
		versions:  []provider.RemoteVersion{sodiumCandidate("0.5.8", models.Release)},
	}
	engine := newEngine(modrinth, curseforge, Options{})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, UpdateAvailable, decisions[0].Reason)
	assert.Equal(t, models.CURSEFORGE, decisions[0].Reference.Platform)
	assert.Equal(t, int64(1), modrinth.resolveCalls.Load())
	assert.Equal(t, int64(1), curseforge.resolveCalls.Load())
}

func TestBothProvidersFailingIsProviderError(t *testing.T) {
	modrinth := &fakeProvider{
		platform:   models.MODRINTH,
		resolveErr: &globalerrors.RateLimitedError{Platform: models.MODRINTH, RetryAfter: time.Minute},
	}
	curseforge := &fakeProvider{
		platform:   models.CURSEFORGE,
		resolveErr: &globalerrors.TransportError{Platform: models.CURSEFORGE, Err: context.DeadlineExceeded},
	}
	engine := newEngine(modrinth, curseforge, Options{})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, ProviderError, decisions[0].Reason)
	assert.Equal(t, int64(1), curseforge.resolveCalls.Load())
}

func TestAuthRequiredStillTriesFallbackOnce(t *testing.T) {
	curseforge := &fakeProvider{
		platform:   models.CURSEFORGE,
		resolveErr: &globalerrors.AuthRequiredError{Platform: models.CURSEFORGE},
	}
	modrinth := workingModrinth()
	engine := newEngine(modrinth, curseforge, Options{DefaultProvider: models.CURSEFORGE})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, UpdateAvailable, decisions[0].Reason)
	assert.Equal(t, models.MODRINTH, decisions[0].Reference.Platform)
	assert.Equal(t, int64(1), curseforge.resolveCalls.Load())
	assert.Equal(t, int64(1), modrinth.resolveCalls.Load())
}

func TestConfiguredFallbackProviderIsConsulted(t *testing.T) {
	modrinth := &fakeProvider{platform: models.MODRINTH, resolveOK: false}
	curseforge := &fakeProvider{
		platform:  models.CURSEFORGE,
		reference: provider.ProjectReference{Platform: models.CURSEFORGE, ProjectID: "394468", Name: "Sodium"},
		resolveOK: true,
		versions:  []provider.RemoteVersion{sodiumCandidate("0.5.8", models.Release)},
	}
	engine := newEngine(modrinth, curseforge, Options{
		DefaultProvider:  models.MODRINTH,
		FallbackProvider: models.CURSEFORGE,
	})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, models.CURSEFORGE, decisions[0].Reference.Platform)
	assert.Equal(t, int64(1), modrinth.resolveCalls.Load())
	assert.Equal(t, int64(1), curseforge.resolveCalls.Load())
}

func TestFallbackEqualToDefaultDisablesSecondAttempt(t *testing.T) {
	modrinth := &fakeProvider{platform: models.MODRINTH, resolveOK: false}
	curseforge := &fakeProvider{
		platform:  models.CURSEFORGE,
		reference: provider.ProjectReference{Platform: models.CURSEFORGE, ProjectID: "394468", Name: "Sodium"},
		resolveOK: true,
		versions:  []provider.RemoteVersion{sodiumCandidate("0.5.8", models.Release)},
	}
	engine := newEngine(modrinth, curseforge, Options{
		DefaultProvider:  models.MODRINTH,
		FallbackProvider: models.MODRINTH,
	})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.Equal(t, Unresolved, decisions[0].Reason)
	assert.Equal(t, int64(0), curseforge.resolveCalls.Load())
}

func TestWarmCacheIssuesNoExtraVersionCalls(t *testing.T) {
	modrinth := workingModrinth()
	store := cache.NewStore(cache.DefaultTTL)
	providers := map[models.Platform]provider.Provider{
		models.MODRINTH:   modrinth,
		models.CURSEFORGE: unknownCurseforge(),
	}
	options := Options{GameVersion: "1.20.1", Loader: models.FABRIC, DefaultProvider: models.MODRINTH}
	engine := New(providers, store, logger.New(io.Discard, io.Discard, true, false), options)

	first := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	second := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})

	assert.Equal(t, int64(1), modrinth.listCalls.Load())
	assert.False(t, first[0].FromCache)
	assert.True(t, second[0].FromCache)
	assert.Equal(t, first[0].Reason, second[0].Reason)
	assert.Equal(t, first[0].Selected, second[0].Selected)
}

func TestForceRefreshBypassesCacheReadButWritesBack(t *testing.T) {
	modrinth := workingModrinth()
	store := cache.NewStore(cache.DefaultTTL)
	providers := map[models.Platform]provider.Provider{
		models.MODRINTH:   modrinth,
		models.CURSEFORGE: unknownCurseforge(),
	}
	options := Options{GameVersion: "1.20.1", Loader: models.FABRIC, DefaultProvider: models.MODRINTH, ForceRefresh: true}
	engine := New(providers, store, logger.New(io.Discard, io.Discard, true, false), options)

	engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	assert.Equal(t, int64(2), modrinth.listCalls.Load())

	key := cache.Key{Platform: models.MODRINTH, ProjectID: "AANobbMI", GameVersion: "1.20.1", Loader: models.FABRIC}
	_, found := store.Get(key)
	assert.True(t, found)
}

func TestProviderHintOverridesDefaultOrder(t *testing.T) {
	modrinth := workingModrinth()
	curseforge := &fakeProvider{
		platform:  models.CURSEFORGE,
		reference: provider.ProjectReference{Platform: models.CURSEFORGE, ProjectID: "394468", Name: "Sodium"},
		resolveOK: true,
		versions:  []provider.RemoteVersion{sodiumCandidate("0.5.8", models.Release)},
	}
	engine := newEngine(modrinth, curseforge, Options{})

	identity := sodiumIdentity()
	identity.ProviderHint = models.CURSEFORGE

	decisions := engine.Check(context.Background(), []Scan{{Identity: identity}})
	require.Len(t, decisions, 1)
	assert.Equal(t, models.CURSEFORGE, decisions[0].Reference.Platform)
	assert.Equal(t, int64(0), modrinth.resolveCalls.Load())
}

func TestDecisionsComeBackInScanOrder(t *testing.T) {
	scans := make([]Scan, 12)
	for i := range scans {
		identity := sodiumIdentity()
		scans[i] = Scan{Path: identity.Path, Identity: identity}
	}
	scans[5].Identity.Slug = "lithium"
	scans[5].Identity.Name = "Lithium"

	engine := newEngine(workingModrinth(), unknownCurseforge(), Options{IgnoreMods: []string{"lithium"}, Concurrency: 8})
	decisions := engine.Check(context.Background(), scans)
	require.Len(t, decisions, 12)
	assert.Equal(t, Skipped, decisions[5].Reason)
	for i, decision := range decisions {
		if i == 5 {
			continue
		}
		assert.Equal(t, UpdateAvailable, decision.Reason)
	}
}

func TestLowConfidenceVersionStillDecides(t *testing.T) {
	modrinth := workingModrinth()
	nightly := sodiumCandidate("nightly-20240120", models.Release)
	modrinth.versions = []provider.RemoteVersion{nightly}
	engine := newEngine(modrinth, unknownCurseforge(), Options{})

	decisions := engine.Check(context.Background(), []Scan{{Identity: sodiumIdentity()}})
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].LowConfidence)
}
