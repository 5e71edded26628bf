package models

type ReleaseType string

const (
	Alpha   ReleaseType = "alpha"
	Beta    ReleaseType = "beta"
	Release ReleaseType = "release"
)

// Risk orders the channels by stability. A lower value means a safer channel.
// Unknown channels are treated as the riskiest so they are never offered to a
// stable install by accident.
func (r ReleaseType) Risk() int {
	switch r {
	case Release:
		return 0
	case Beta:
		return 1
	case Alpha:
		return 2
	default:
		return 3
	}
}

// AllowedFor reports whether a candidate in this channel may be offered to a
// mod whose local build sits in the given channel. A release install is never
// updated to a beta or alpha.
func (r ReleaseType) AllowedFor(local ReleaseType) bool {
	return r.Risk() <= local.Risk()
}
