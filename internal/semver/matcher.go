package semver

import (
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/provider"
)

// The matcher is deliberately free of I/O. Everything it needs arrives
// as arguments so the selection rules can be tested as plain functions.

// IsCompatible reports whether a candidate targets the configured game
// version and loader. An empty set on the candidate does not exclude;
// some registries omit the information entirely.
func IsCompatible(candidate provider.RemoteVersion, gameVersion string, loader models.Loader) bool {
	if len(candidate.GameVersions) > 0 && !containsString(candidate.GameVersions, gameVersion) {
		return false
	}
	if len(candidate.Loaders) > 0 && !containsLoader(candidate.Loaders, loader) {
		return false
	}
	return true
}

// SelectBest picks the highest compatible candidate whose release
// channel is no riskier than the local mod's own channel. Equal
// versions are broken by the later publish timestamp.
func SelectBest(candidates []provider.RemoteVersion, localChannel models.ReleaseType, gameVersion string, loader models.Loader) (provider.RemoteVersion, bool) {
	var best provider.RemoteVersion
	var bestVersion Version
	found := false

	for _, candidate := range candidates {
		if !IsCompatible(candidate, gameVersion, loader) {
			continue
		}
		if !candidate.Channel.AllowedFor(localChannel) {
			continue
		}

		parsed := ParseFor(candidate.VersionNumber, gameVersion)
		if !found {
			best, bestVersion, found = candidate, parsed, true
			continue
		}
		switch Compare(parsed, bestVersion) {
		case 1:
			best, bestVersion = candidate, parsed
		case 0:
			if candidate.PublishedAt.After(best.PublishedAt) {
				best, bestVersion = candidate, parsed
			}
		}
	}

	return best, found
}

// IsNewer reports whether the candidate version is strictly greater
// than the local one. Anything not provably greater, including
// low-confidence comparisons that tie, counts as not newer.
func IsNewer(candidateVersion string, localVersion string, gameVersion string) bool {
	return Compare(ParseFor(candidateVersion, gameVersion), ParseFor(localVersion, gameVersion)) > 0
}

// LowConfidence reports whether either side of a comparison fell back
// to string ordering.
func LowConfidence(candidateVersion string, localVersion string, gameVersion string) bool {
	return !ParseFor(candidateVersion, gameVersion).Confident || !ParseFor(localVersion, gameVersion).Confident
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func containsLoader(values []models.Loader, target models.Loader) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
