package models

type Loader string

const (
	FABRIC Loader = "fabric"
	FORGE  Loader = "forge"
	QUILT  Loader = "quilt"
)

func AllLoaders() []Loader {
	return []Loader{FABRIC, FORGE, QUILT}
}

func ParseLoader(value string) (Loader, bool) {
	switch Loader(value) {
	case FABRIC:
		return FABRIC, true
	case FORGE:
		return FORGE, true
	case QUILT:
		return QUILT, true
	default:
		return "", false
	}
}
