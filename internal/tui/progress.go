package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
)

// DownloadDoneMsg signals that the download behind the progress view has
// finished, successfully or not.
type DownloadDoneMsg struct {
	Err error
}

// DownloadModel renders a single file download with a progress bar.
type DownloadModel struct {
	FileName string
	Err      error
	Done     bool

	bar     progress.Model
	percent float64
}

func NewDownloadModel(fileName string) DownloadModel {
	return DownloadModel{
		FileName: fileName,
		bar:      progress.New(progress.WithDefaultGradient()),
	}
}

func (m DownloadModel) Init() tea.Cmd {
	return nil
}

func (m DownloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Err = fmt.Errorf("download of %s cancelled", m.FileName)
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 8
		return m, nil
	case httpclient.ProgressMsg:
		m.percent = float64(msg)
		return m, nil
	case httpclient.ProgressErrMsg:
		m.Err = msg.Err
		return m, tea.Quit
	case DownloadDoneMsg:
		m.Done = true
		m.Err = msg.Err
		if m.Err == nil {
			m.percent = 1
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m DownloadModel) View() string {
	if m.Err != nil {
		return ErrorStyle.Render(fmt.Sprintf("✗ %s: %v", m.FileName, m.Err)) + "\n"
	}
	if m.Done {
		return SuccessStyle.Render("✓ "+m.FileName) + "\n"
	}
	return fmt.Sprintf("%s\n%s\n", FileNameStyle.Render(m.FileName), m.bar.ViewAs(m.percent))
}
