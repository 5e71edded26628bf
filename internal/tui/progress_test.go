package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
)

func TestDownloadModelTracksProgress(t *testing.T) {
	model := NewDownloadModel("sodium-fabric-0.5.8.jar")

	updated, cmd := model.Update(httpclient.ProgressMsg(0.5))
	assert.Nil(t, cmd)

	download, ok := updated.(DownloadModel)
	require.True(t, ok)
	assert.InDelta(t, 0.5, download.percent, 0.0001)
	assert.Contains(t, download.View(), "sodium-fabric-0.5.8.jar")
	assert.Contains(t, download.View(), "50%")
}

func TestDownloadModelQuitsWhenDone(t *testing.T) {
	model := NewDownloadModel("sodium-fabric-0.5.8.jar")

	updated, cmd := model.Update(DownloadDoneMsg{})
	require.NotNil(t, cmd)

	download, ok := updated.(DownloadModel)
	require.True(t, ok)
	assert.True(t, download.Done)
	assert.NoError(t, download.Err)
	assert.Contains(t, download.View(), "✓")
}

func TestDownloadModelShowsErrors(t *testing.T) {
	model := NewDownloadModel("sodium-fabric-0.5.8.jar")

	updated, cmd := model.Update(httpclient.ProgressErrMsg{Err: errors.New("connection reset")})
	require.NotNil(t, cmd)

	download, ok := updated.(DownloadModel)
	require.True(t, ok)
	assert.Error(t, download.Err)
	assert.Contains(t, download.View(), "connection reset")
}

func TestDownloadModelCancelsOnCtrlC(t *testing.T) {
	model := NewDownloadModel("sodium-fabric-0.5.8.jar")

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)

	download, ok := updated.(DownloadModel)
	require.True(t, ok)
	assert.Error(t, download.Err)
	assert.True(t, strings.Contains(download.Err.Error(), "cancelled"))
}

func TestShouldUseTUIRespectsQuietMode(t *testing.T) {
	restore := SetIsTerminalFuncForTesting(func(int) bool { return true })
	defer restore()

	assert.False(t, ShouldUseTUI(true, strings.NewReader(""), &strings.Builder{}))
}

func TestShouldUseTUIRequiresTerminals(t *testing.T) {
	restore := SetIsTerminalFuncForTesting(func(int) bool { return true })
	defer restore()

	assert.False(t, ShouldUseTUI(false, strings.NewReader(""), &strings.Builder{}))
}

func TestProgramOptionsDisableRendererWithoutTerminal(t *testing.T) {
	restore := SetIsTerminalFuncForTesting(func(int) bool { return false })
	defer restore()

	options := ProgramOptions(strings.NewReader(""), &strings.Builder{})
	assert.Len(t, options, 3)
}
