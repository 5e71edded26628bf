// Package download fetches chosen update artifacts and promotes them
// into the mod directory. Nothing reaches the destination path without
// passing the checksum gate; a failed verification leaves the old file
// untouched.
package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dig-pestroyer/NyxPatch/internal/engine"
	"github.com/Dig-pestroyer/NyxPatch/internal/fileutils"
	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"github.com/Dig-pestroyer/NyxPatch/internal/provider"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
)

type IntegrityError struct {
	FileName string
	Expected string
	Actual   string
}

func (err *IntegrityError) Error() string {
	return fmt.Sprintf("downloaded file hash mismatch for %s: expected %s, got %s", err.FileName, err.Expected, err.Actual)
}

type InvalidFileNameError struct {
	Value  string
	Reason string
}

func (err *InvalidFileNameError) Error() string {
	return fmt.Sprintf("invalid mod filename %q: %s", err.Value, err.Reason)
}

// Result reports what the executor did, or would have done, for one
// update decision.
type Result struct {
	FileName    string
	TargetPath  string
	Downloaded  bool
	ReplacedOld bool
	DryRun      bool
}

type Executor struct {
	fs      afero.Fs
	client  httpclient.Doer
	program httpclient.Sender
	dryRun  bool
}

func NewExecutor(fs afero.Fs, client httpclient.Doer, program httpclient.Sender, dryRun bool) *Executor {
	return &Executor{
		fs:      fs,
		client:  client,
		program: program,
		dryRun:  dryRun,
	}
}

// Execute downloads the selected version of one decided mod into
// destDir. In dry-run mode the download descriptor is still resolved
// (a metadata call) but no artifact is fetched and nothing moves.
func (e *Executor) Execute(ctx context.Context, backend provider.Provider, decision engine.Decision, destDir string) (Result, error) {
	ctx, span := perf.StartSpan(ctx, "check.download", perf.WithAttributes(
		attribute.String("mod", decision.Identity.Slug),
		attribute.Bool("dry_run", e.dryRun),
	))
	defer span.End()

	if decision.Reason != engine.UpdateAvailable {
		return Result{}, errors.Errorf("no update to download for %s", decision.Identity.Slug)
	}

	descriptor, err := backend.ResolveDownload(ctx, decision.Selected)
	if err != nil {
		return Result{}, err
	}
	if descriptor.URL == "" {
		return Result{}, errors.Errorf("no download url for %s %s", decision.Identity.Slug, decision.Selected.VersionNumber)
	}

	fileName, err := normalizeFileName(fallbackFileName(descriptor, decision))
	if err != nil {
		return Result{}, err
	}
	targetPath := filepath.Join(destDir, fileName)

	result := Result{
		FileName:   fileName,
		TargetPath: targetPath,
	}

	if e.dryRun {
		result.DryRun = true
		result.ReplacedOld = e.wouldReplaceOld(decision, targetPath)
		return result, nil
	}

	if err := e.fs.MkdirAll(destDir, 0755); err != nil {
		return Result{}, err
	}
	if err := ensureNotSymlinked(e.fs, targetPath); err != nil {
		return Result{}, err
	}

	if err := e.downloadAndVerify(ctx, descriptor, targetPath); err != nil {
		return Result{}, err
	}
	result.Downloaded = true

	result.ReplacedOld, err = e.removePreviousVersion(decision, targetPath)
	if err != nil {
		return result, err
	}

	return result, nil
}

func (e *Executor) downloadAndVerify(ctx context.Context, descriptor provider.Download, targetPath string) error {
	tempFile, err := afero.TempFile(e.fs, filepath.Dir(targetPath), filepath.Base(targetPath)+".nyx.*.tmp")
	if err != nil {
		return err
	}
	tempPath := tempFile.Name()
	_ = tempFile.Close()

	if err := httpclient.DownloadFile(ctx, descriptor.URL, tempPath, e.client, e.program, e.fs); err != nil {
		_ = e.fs.Remove(tempPath)
		return err
	}

	if descriptor.Sha1 != "" {
		actualHash, err := sha1ForFile(e.fs, tempPath)
		if err != nil {
			_ = e.fs.Remove(tempPath)
			return err
		}
		if !strings.EqualFold(strings.TrimSpace(descriptor.Sha1), actualHash) {
			_ = e.fs.Remove(tempPath)
			return &IntegrityError{
				FileName: filepath.Base(targetPath),
				Expected: strings.ToLower(descriptor.Sha1),
				Actual:   actualHash,
			}
		}
	}

	if err := fileutils.PromoteFile(e.fs, tempPath, targetPath); err != nil {
		_ = e.fs.Remove(tempPath)
		return err
	}
	return nil
}

// removePreviousVersion drops the file the update replaces, but only
// when it is identifiable and distinct from the new target.
func (e *Executor) removePreviousVersion(decision engine.Decision, targetPath string) (bool, error) {
	if !e.wouldReplaceOld(decision, targetPath) {
		return false, nil
	}
	if err := e.fs.Remove(decision.Identity.Path); err != nil {
		return false, errors.Wrapf(err, "failed to remove previous version %s", decision.Identity.Path)
	}
	return true, nil
}

func (e *Executor) wouldReplaceOld(decision engine.Decision, targetPath string) bool {
	oldPath := decision.Identity.Path
	if oldPath == "" || filepath.Clean(oldPath) == filepath.Clean(targetPath) {
		return false
	}
	exists, _ := afero.Exists(e.fs, oldPath)
	return exists
}

func fallbackFileName(descriptor provider.Download, decision engine.Decision) string {
	if descriptor.FileName != "" {
		return descriptor.FileName
	}
	if decision.Selected.FileName != "" {
		return decision.Selected.FileName
	}
	return fmt.Sprintf("%s-%s.jar", decision.Identity.Slug, decision.Selected.VersionNumber)
}

// The filename comes from a remote api response. Anything that could
// escape the destination directory is rejected outright.
func normalizeFileName(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &InvalidFileNameError{Value: value, Reason: "empty"}
	}
	if strings.ContainsAny(trimmed, `/\`) {
		return "", &InvalidFileNameError{Value: value, Reason: "path separator"}
	}
	if len(trimmed) >= 2 && isASCIIAlpha(trimmed[0]) && trimmed[1] == ':' {
		return "", &InvalidFileNameError{Value: value, Reason: "drive letter"}
	}
	if trimmed == "." || trimmed == ".." {
		return "", &InvalidFileNameError{Value: value, Reason: "relative path"}
	}
	if !strings.EqualFold(filepath.Ext(trimmed), ".jar") {
		return "", &InvalidFileNameError{Value: value, Reason: "extension"}
	}
	return trimmed, nil
}

// ensureNotSymlinked refuses to promote onto a symlinked destination
// so the atomic rename cannot be redirected outside the mod directory.
func ensureNotSymlinked(fs afero.Fs, targetPath string) error {
	lstater, ok := fs.(afero.Lstater)
	if !ok {
		return nil
	}
	info, _, err := lstater.LstatIfPossible(targetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.Errorf("destination %s is a symlink", targetPath)
	}
	return nil
}

func sha1ForFile(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha1.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func isASCIIAlpha(value byte) bool {
	return (value >= 'a' && value <= 'z') || (value >= 'A' && value <= 'Z')
}
