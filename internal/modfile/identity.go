// Package modfile extracts mod identity from local jar archives.
package modfile

import (
	"fmt"

	"github.com/Dig-pestroyer/NyxPatch/internal/models"
)

// Identity is the stable key for a local mod file. Fields that cannot be
// determined from the archive degrade to "unknown" rather than failing
// the extraction.
type Identity struct {
	Path         string
	FileName     string
	Slug         string
	Name         string
	Version      string
	Loader       models.Loader
	Sha1         string
	Fingerprint  uint32
	ProviderHint models.Platform
}

type UnreadableArchiveError struct {
	Path string
	Err  error
}

func (e *UnreadableArchiveError) Error() string {
	return fmt.Sprintf("Cannot open mod archive: %s", e.Path)
}

func (e *UnreadableArchiveError) Is(target error) bool {
	t, ok := target.(*UnreadableArchiveError)
	if !ok {
		return false
	}
	return e.Path == t.Path
}

func (e *UnreadableArchiveError) Unwrap() error {
	return e.Err
}

type MissingMetadataError struct {
	Path string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("No recognizable mod descriptor in: %s", e.Path)
}

func (e *MissingMetadataError) Is(target error) bool {
	t, ok := target.(*MissingMetadataError)
	if !ok {
		return false
	}
	return e.Path == t.Path
}
