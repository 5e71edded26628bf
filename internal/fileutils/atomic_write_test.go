package fileutils

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renameFailFs struct {
	afero.Fs
	failWhenDestExists bool
}

func (r renameFailFs) Rename(oldname, newname string) error {
	if r.failWhenDestExists {
		exists, err := afero.Exists(r.Fs, newname)
		if err == nil && exists {
			return errors.New("rename failed")
		}
	}
	return r.Fs.Rename(oldname, newname)
}

func TestWriteFileAtomicCreatesNewFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	err := WriteFileAtomic(fs, "/data/state.json", []byte(`{"a":1}`))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/data/state.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestWriteFileAtomicReplacesExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/state.json", []byte("old"), 0644))

	err := WriteFileAtomic(fs, "/data/state.json", []byte("new"))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/data/state.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWriteFileAtomicLeavesNoSiblings(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/state.json", []byte("old"), 0644))
	require.NoError(t, WriteFileAtomic(fs, "/data/state.json", []byte("new")))

	assert.False(t, FileExists(fs, "/data/state.json.nyx.tmp"))
	assert.False(t, FileExists(fs, "/data/state.json.nyx.bak"))
}

func TestWriteFileAtomicFallsBackToBackupSwap(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/data/state.json", []byte("old"), 0644))
	fs := renameFailFs{Fs: base, failWhenDestExists: true}

	err := WriteFileAtomic(fs, "/data/state.json", []byte("new"))
	require.NoError(t, err)

	data, err := afero.ReadFile(base, "/data/state.json")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFileExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/there.txt", []byte("x"), 0644))

	assert.True(t, FileExists(fs, "/there.txt"))
	assert.False(t, FileExists(fs, "/not-there.txt"))
}
