package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
)

type progressWriter struct {
	total      int
	downloaded int
	onProgress func(float64)
}

type ProgressMsg float64

type ProgressErrMsg struct{ Err error }

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.downloaded += len(p)
	if pw.total > 0 && pw.onProgress != nil {
		pw.onProgress(float64(pw.downloaded) / float64(pw.total))
	}
	return len(p), nil
}

// Sender receives progress messages during a download. A nil Sender
// disables progress reporting.
type Sender interface {
	Send(msg tea.Msg)
}

func DownloadFile(ctx context.Context, url string, filePath string, client Doer, program Sender, fs afero.Fs) error {
	ctx, downloadSpan := perf.StartSpan(ctx, "net.http.download",
		perf.WithAttributes(attribute.String("url", url)),
	)
	defer downloadSpan.End()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		downloadSpan.SetAttributes(attribute.Int("status", response.StatusCode))
		return fmt.Errorf("unexpected status %d downloading %s", response.StatusCode, url)
	}

	file, err := fs.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	pw := &progressWriter{
		total: int(response.ContentLength),
		onProgress: func(ratio float64) {
			if program != nil {
				program.Send(ProgressMsg(ratio))
			}
		},
	}

	_, err = io.Copy(file, io.TeeReader(response.Body, pw))
	if err != nil {
		err2 := fmt.Errorf("failed to write file: %w", err)
		if program != nil {
			program.Send(ProgressErrMsg{Err: err2})
		}
		return err2
	}

	downloadSpan.SetAttributes(attribute.Int("bytes", pw.downloaded))
	return nil
}
