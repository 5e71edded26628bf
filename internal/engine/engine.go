// Package engine drives per-mod update resolution. Each mod walks the
// same path: scan result in, identity resolved against a provider,
// versions fetched (cache first), best candidate matched, decision out.
// Mods resolve independently and concurrently; decisions come back in
// scan order regardless of completion order.
package engine

import (
	"context"
	"strings"

	"github.com/Dig-pestroyer/NyxPatch/internal/cache"
	"github.com/Dig-pestroyer/NyxPatch/internal/globalerrors"
	"github.com/Dig-pestroyer/NyxPatch/internal/logger"
	"github.com/Dig-pestroyer/NyxPatch/internal/modfile"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"github.com/Dig-pestroyer/NyxPatch/internal/provider"
	"github.com/Dig-pestroyer/NyxPatch/internal/semver"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type State string

const (
	StateScanned    State = "scanned"
	StateIdentified State = "identified"
	StateCacheHit   State = "cache-hit"
	StateQuerying   State = "querying"
	StateMatched    State = "matched"
	StateDecided    State = "decided"
)

type Reason string

const (
	UpToDate        Reason = "up-to-date"
	UpdateAvailable Reason = "update-available"
	Unresolved      Reason = "unresolved"
	Incompatible    Reason = "incompatible"
	ProviderError   Reason = "provider-error"
	Skipped         Reason = "skipped"
)

// Scan is one mod file as found on disk. Err carries the extraction
// failure when the identity could not be read.
type Scan struct {
	Path     string
	Identity modfile.Identity
	Err      error
}

// Decision is the terminal state of one mod's resolution.
type Decision struct {
	Identity      modfile.Identity
	State         State
	Reason        Reason
	Reference     provider.ProjectReference
	Selected      provider.RemoteVersion
	LowConfidence bool
	FromCache     bool
	Err           error
}

const DefaultConcurrency = 4

type Options struct {
	GameVersion      string
	Loader           models.Loader
	DefaultProvider  models.Platform
	FallbackProvider models.Platform
	IgnoreMods       []string
	ForceRefresh     bool
	Concurrency      int
}

type Engine struct {
	providers map[models.Platform]provider.Provider
	store     *cache.Store
	log       *logger.Logger
	options   Options
}

func New(providers map[models.Platform]provider.Provider, store *cache.Store, log *logger.Logger, options Options) *Engine {
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	if options.DefaultProvider == "" {
		options.DefaultProvider = models.MODRINTH
	}
	if options.FallbackProvider == "" {
		options.FallbackProvider = options.DefaultProvider.Other()
	}
	return &Engine{
		providers: providers,
		store:     store,
		log:       log,
		options:   options,
	}
}

// Check resolves every scan to a decision. Per-mod failures never
// abort the run; they become that mod's decision.
func (e *Engine) Check(ctx context.Context, scans []Scan) []Decision {
	ctx, span := perf.StartSpan(ctx, "check.resolve", perf.WithAttributes(attribute.Int("mods", len(scans))))
	defer span.End()

	decisions := make([]Decision, len(scans))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.options.Concurrency)

	for index, scan := range scans {
		group.Go(func() error {
			decisions[index] = e.resolve(groupCtx, scan)
			return nil
		})
	}
	_ = group.Wait()

	return decisions
}

func (e *Engine) resolve(ctx context.Context, scan Scan) Decision {
	ctx, span := perf.StartSpan(ctx, "check.resolve.mod", perf.WithAttributes(attribute.String("file", scan.Path)))
	defer span.End()

	decision := Decision{Identity: scan.Identity, State: StateScanned}

	if scan.Err != nil {
		e.log.Debugf("%s: unreadable, %v", scan.Path, scan.Err)
		decision.State = StateDecided
		decision.Reason = Unresolved
		decision.Err = scan.Err
		return decision
	}
	decision.State = StateIdentified

	if e.isIgnored(scan.Identity) {
		decision.State = StateDecided
		decision.Reason = Skipped
		return decision
	}

	var lastErr error
	sawProviderError := false

	for _, platform := range e.providerOrder(scan.Identity) {
		backend, known := e.providers[platform]
		if !known {
			continue
		}

		resolved, verdict, err := e.resolveAgainst(ctx, backend, scan.Identity)
		if err != nil {
			e.log.Debugf("%s: %s failed, %v", scan.Identity.Slug, platform, err)
			lastErr = err
			if isProviderFailure(err) {
				sawProviderError = true
			}
			// AuthRequired is terminal for this provider but the
			// other provider still gets its single attempt.
			continue
		}
		if verdict == Unresolved {
			continue
		}

		resolved.Identity = scan.Identity
		return resolved
	}

	decision.State = StateDecided
	decision.Err = lastErr
	if sawProviderError {
		decision.Reason = ProviderError
	} else {
		decision.Reason = Unresolved
	}
	return decision
}

// resolveAgainst runs the Identified→Decided path for one provider.
// A returned error means the provider failed and the caller may try
// the next one; a verdict of Unresolved means the provider answered
// but does not know the mod.
func (e *Engine) resolveAgainst(ctx context.Context, backend provider.Provider, identity modfile.Identity) (Decision, Reason, error) {
	reference, ok, err := backend.Resolve(ctx, identity)
	if err != nil {
		return Decision{}, "", err
	}
	if !ok {
		return Decision{}, Unresolved, nil
	}

	versions, fromCache, err := e.versionsFor(ctx, backend, reference)
	if err != nil {
		return Decision{}, "", err
	}

	decision := Decision{
		State:     StateMatched,
		Reference: reference,
		FromCache: fromCache,
	}

	best, found := semver.SelectBest(versions, localChannel(identity), e.options.GameVersion, e.options.Loader)
	if !found {
		decision.State = StateDecided
		decision.Reason = Incompatible
		return decision, Incompatible, nil
	}

	decision.Selected = best
	decision.LowConfidence = semver.LowConfidence(best.VersionNumber, identity.Version, e.options.GameVersion)
	decision.State = StateDecided
	if semver.IsNewer(best.VersionNumber, identity.Version, e.options.GameVersion) {
		decision.Reason = UpdateAvailable
	} else {
		decision.Reason = UpToDate
	}
	return decision, decision.Reason, nil
}

// versionsFor consults the cache before the network. Forced refresh
// skips the read but fresh results are written back either way.
func (e *Engine) versionsFor(ctx context.Context, backend provider.Provider, reference provider.ProjectReference) ([]provider.RemoteVersion, bool, error) {
	key := cache.Key{
		Platform:    reference.Platform,
		ProjectID:   reference.ProjectID,
		GameVersion: e.options.GameVersion,
		Loader:      e.options.Loader,
	}

	if !e.options.ForceRefresh {
		if versions, found := e.store.Get(key); found {
			return versions, true, nil
		}
	}

	versions, err := backend.ListVersions(ctx, reference, e.options.GameVersion, e.options.Loader)
	if err != nil {
		return nil, false, err
	}
	e.store.Put(key, versions)
	return versions, false, nil
}

// providerOrder puts a descriptor-declared provider hint first, then
// the configured default, then the configured fallback. A fallback
// equal to the primary means no second attempt.
func (e *Engine) providerOrder(identity modfile.Identity) []models.Platform {
	primary := e.options.DefaultProvider
	if identity.ProviderHint != "" {
		primary = identity.ProviderHint
	}
	secondary := e.options.FallbackProvider
	if secondary == primary {
		if primary != e.options.DefaultProvider {
			// A hint displaced the default; the default becomes
			// the natural second choice.
			secondary = e.options.DefaultProvider
		} else {
			return []models.Platform{primary}
		}
	}
	return []models.Platform{primary, secondary}
}

func (e *Engine) isIgnored(identity modfile.Identity) bool {
	for _, ignored := range e.options.IgnoreMods {
		if strings.EqualFold(ignored, identity.Slug) || strings.EqualFold(ignored, identity.Name) {
			return true
		}
	}
	return false
}

// localChannel infers the mod's own channel from its version string so
// a beta install may be offered newer betas.
func localChannel(identity modfile.Identity) models.ReleaseType {
	version := strings.ToLower(identity.Version)
	switch {
	case strings.Contains(version, "alpha"):
		return models.Alpha
	case strings.Contains(version, "beta") || strings.Contains(version, "-rc") || strings.Contains(version, "-pre"):
		return models.Beta
	}
	return models.Release
}

func isProviderFailure(err error) bool {
	var rateLimited *globalerrors.RateLimitedError
	var authRequired *globalerrors.AuthRequiredError
	var transport *globalerrors.TransportError
	var apiError *globalerrors.ProjectAPIError
	if errors.As(err, &rateLimited) || errors.As(err, &authRequired) || errors.As(err, &transport) || errors.As(err, &apiError) {
		return true
	}
	var notFound *globalerrors.ProjectNotFoundError
	return !errors.As(err, &notFound) && err != nil
}
