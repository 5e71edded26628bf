package fileutils

import (
	"github.com/spf13/afero"
)

func FileExists(fs afero.Fs, path string) bool {
	exists, _ := afero.Exists(fs, path)
	return exists
}
