// Package semver parses the loose version strings found in mod
// metadata and orders them. Strings that cannot be read as semantic
// versions still get a stable ordering via string comparison, flagged
// as low confidence so callers can surface the uncertainty.
package semver

import (
	"strconv"
	"strings"
)

type Version struct {
	Major      int
	Minor      int
	Patch      int
	Extra      []int
	Prerelease string
	Raw        string
	Confident  bool
}

// Parse never fails. Anything that does not read as a dotted numeric
// version becomes a low-confidence value ordered by its raw string.
func Parse(raw string) Version {
	normalized := normalize(raw)

	version := Version{Raw: normalized}

	core := normalized
	if index := strings.IndexByte(core, '+'); index >= 0 {
		core = core[:index]
	}
	if index := strings.IndexByte(core, '-'); index >= 0 {
		version.Prerelease = core[index+1:]
		core = core[:index]
	}

	parts := strings.Split(core, ".")
	numbers := make([]int, 0, len(parts))
	for _, part := range parts {
		number, err := strconv.Atoi(part)
		if err != nil || part == "" {
			return Version{Raw: normalized}
		}
		numbers = append(numbers, number)
	}
	if len(numbers) == 0 {
		return Version{Raw: normalized}
	}

	version.Confident = true
	version.Major = numbers[0]
	if len(numbers) > 1 {
		version.Minor = numbers[1]
	}
	if len(numbers) > 2 {
		version.Patch = numbers[2]
	}
	if len(numbers) > 3 {
		version.Extra = numbers[3:]
	}
	return version
}

// ParseFor strips the target game version out of combined strings like
// "1.20.1-2.1.0" before parsing, so the mod's own version is compared.
func ParseFor(raw string, gameVersion string) Version {
	return Parse(stripGameVersion(raw, gameVersion))
}

func normalize(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.TrimPrefix(normalized, "v")
	normalized = strings.TrimPrefix(normalized, "V")
	return normalized
}

func stripGameVersion(raw string, gameVersion string) string {
	if gameVersion == "" {
		return raw
	}
	trimmed := strings.TrimSpace(raw)
	for _, token := range []string{gameVersion, "mc" + gameVersion, "MC" + gameVersion} {
		for _, separator := range []string{"-", "_", "+"} {
			if rest, found := strings.CutPrefix(trimmed, token+separator); found && rest != "" {
				return rest
			}
			if rest, found := strings.CutSuffix(trimmed, separator+token); found && rest != "" {
				return rest
			}
		}
	}
	return trimmed
}

// Compare returns -1, 0 or 1. When either side is low confidence the
// ordering degrades to a raw string comparison of both sides.
func Compare(a Version, b Version) int {
	if !a.Confident || !b.Confident {
		return sign(strings.Compare(a.Raw, b.Raw))
	}

	if delta := compareInts(a.Major, b.Major); delta != 0 {
		return delta
	}
	if delta := compareInts(a.Minor, b.Minor); delta != 0 {
		return delta
	}
	if delta := compareInts(a.Patch, b.Patch); delta != 0 {
		return delta
	}
	if delta := compareExtra(a.Extra, b.Extra); delta != 0 {
		return delta
	}
	return comparePrerelease(a.Prerelease, b.Prerelease)
}

func compareInts(a int, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareExtra(a []int, b []int) int {
	length := len(a)
	if len(b) > length {
		length = len(b)
	}
	for i := 0; i < length; i++ {
		left, right := 0, 0
		if i < len(a) {
			left = a[i]
		}
		if i < len(b) {
			right = b[i]
		}
		if delta := compareInts(left, right); delta != 0 {
			return delta
		}
	}
	return 0
}

// A release outranks any of its own prereleases. Prerelease
// identifiers compare dot-wise, numeric identifiers before
// alphanumeric ones, per semantic versioning.
func comparePrerelease(a string, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}

	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		if delta := comparePrereleaseIdentifier(aParts[i], bParts[i]); delta != 0 {
			return delta
		}
	}
	return compareInts(len(aParts), len(bParts))
}

func comparePrereleaseIdentifier(a string, b string) int {
	aNumber, aErr := strconv.Atoi(a)
	bNumber, bErr := strconv.Atoi(b)
	aNumeric := aErr == nil
	bNumeric := bErr == nil

	switch {
	case aNumeric && bNumeric:
		return compareInts(aNumber, bNumber)
	case aNumeric:
		return -1
	case bNumeric:
		return 1
	}
	return sign(strings.Compare(a, b))
}

func sign(value int) int {
	switch {
	case value < 0:
		return -1
	case value > 0:
		return 1
	}
	return 0
}
