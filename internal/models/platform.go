package models

type Platform string

const (
	CURSEFORGE Platform = "curseforge"
	MODRINTH   Platform = "modrinth"
)

func (p Platform) String() string {
	return string(p)
}

func AllPlatforms() []Platform {
	return []Platform{MODRINTH, CURSEFORGE}
}

// Other returns the remaining platform, used when falling back from a
// failed provider.
func (p Platform) Other() Platform {
	if p == MODRINTH {
		return CURSEFORGE
	}
	return MODRINTH
}

func ParsePlatform(value string) (Platform, bool) {
	switch Platform(value) {
	case MODRINTH:
		return MODRINTH, true
	case CURSEFORGE:
		return CURSEFORGE, true
	default:
		return "", false
	}
}
