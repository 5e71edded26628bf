// Package report renders the final decision set for humans. It only
// formats; every decision arrives fully made.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/engine"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/provider"
	"github.com/spf13/afero"
)

type Summary struct {
	Total           int
	UpdateAvailable int
	UpToDate        int
	Skipped         int
	Unresolved      int
	Incompatible    int
	ProviderErrors  int
}

func Summarize(decisions []engine.Decision) Summary {
	summary := Summary{Total: len(decisions)}
	for _, decision := range decisions {
		switch decision.Reason {
		case engine.UpdateAvailable:
			summary.UpdateAvailable++
		case engine.UpToDate:
			summary.UpToDate++
		case engine.Skipped:
			summary.Skipped++
		case engine.Unresolved:
			summary.Unresolved++
		case engine.Incompatible:
			summary.Incompatible++
		case engine.ProviderError:
			summary.ProviderErrors++
		}
	}
	return summary
}

func Write(out io.Writer, decisions []engine.Decision, gameVersion string, loader models.Loader) error {
	if _, err := fmt.Fprintf(out, "Checked %d mods for %s (%s)\n\n", len(decisions), gameVersion, loader); err != nil {
		return err
	}

	table := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	for _, decision := range decisions {
		fmt.Fprintf(table, "%s\t%s\t%s\n", marker(decision.Reason), displayName(decision), detail(decision))
	}
	if err := table.Flush(); err != nil {
		return err
	}

	summary := Summarize(decisions)
	_, err := fmt.Fprintf(out, "\n%s\n", summaryLine(summary))
	return err
}

func Render(decisions []engine.Decision, gameVersion string, loader models.Loader) string {
	var builder strings.Builder
	_ = Write(&builder, decisions, gameVersion, loader)
	return builder.String()
}

// WriteFile persists a timestamped report of the available updates,
// with project page and download urls, under dir. It returns the path
// of the written file, or an empty path when there is nothing to
// report.
func WriteFile(fs afero.Fs, dir string, decisions []engine.Decision, gameVersion string, loader models.Loader, now time.Time) (string, error) {
	updates := make([]engine.Decision, 0)
	for _, decision := range decisions {
		if decision.Reason == engine.UpdateAvailable {
			updates = append(updates, decision)
		}
	}
	if len(updates) == 0 {
		return "", nil
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Update report %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&builder, "Game version %s (%s), %d update(s)\n\n", gameVersion, loader, len(updates))
	for _, decision := range updates {
		fmt.Fprintf(&builder, "%s: %s -> %s\n", displayName(decision), decision.Identity.Version, decision.Selected.VersionNumber)
		fmt.Fprintf(&builder, "  page:     %s\n", projectPageURL(decision.Reference))
		if decision.Selected.DownloadURL != "" {
			fmt.Fprintf(&builder, "  download: %s\n", decision.Selected.DownloadURL)
		}
		builder.WriteString("\n")
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("update-report-%s.txt", now.UTC().Format("20060102-150405")))
	if err := afero.WriteFile(fs, path, []byte(builder.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func projectPageURL(reference provider.ProjectReference) string {
	switch reference.Platform {
	case models.MODRINTH:
		return "https://modrinth.com/mod/" + reference.ProjectID
	case models.CURSEFORGE:
		return "https://www.curseforge.com/projects/" + reference.ProjectID
	}
	return ""
}

func marker(reason engine.Reason) string {
	switch reason {
	case engine.UpdateAvailable:
		return "[update]"
	case engine.UpToDate:
		return "[ok]"
	case engine.Skipped:
		return "[skip]"
	case engine.Incompatible:
		return "[none]"
	case engine.ProviderError:
		return "[error]"
	}
	return "[?]"
}

func displayName(decision engine.Decision) string {
	if decision.Identity.Name != "" {
		return decision.Identity.Name
	}
	if decision.Identity.Slug != "" {
		return decision.Identity.Slug
	}
	return decision.Identity.FileName
}

func detail(decision engine.Decision) string {
	switch decision.Reason {
	case engine.UpdateAvailable:
		line := fmt.Sprintf("%s -> %s (%s", decision.Identity.Version, decision.Selected.VersionNumber, decision.Reference.Platform)
		if decision.FromCache {
			line += ", cached"
		}
		line += ")"
		if decision.LowConfidence {
			line += " [low confidence]"
		}
		return line
	case engine.UpToDate:
		return fmt.Sprintf("%s is current", decision.Identity.Version)
	case engine.Skipped:
		return "ignored"
	case engine.Incompatible:
		return "no compatible release"
	case engine.Unresolved:
		if decision.Err != nil {
			return fmt.Sprintf("could not identify: %v", decision.Err)
		}
		return "not found on any provider"
	case engine.ProviderError:
		if decision.Err != nil {
			return decision.Err.Error()
		}
		return "provider failed"
	}
	return ""
}

func summaryLine(summary Summary) string {
	parts := []string{fmt.Sprintf("%d update(s) available", summary.UpdateAvailable)}
	parts = append(parts, fmt.Sprintf("%d up to date", summary.UpToDate))
	if summary.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", summary.Skipped))
	}
	if summary.Unresolved > 0 {
		parts = append(parts, fmt.Sprintf("%d unresolved", summary.Unresolved))
	}
	if summary.Incompatible > 0 {
		parts = append(parts, fmt.Sprintf("%d without a compatible release", summary.Incompatible))
	}
	if summary.ProviderErrors > 0 {
		parts = append(parts, fmt.Sprintf("%d provider error(s)", summary.ProviderErrors))
	}
	return strings.Join(parts, ", ")
}
