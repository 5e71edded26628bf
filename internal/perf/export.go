package perf

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const defaultExportFilename = "nyxpatcher-perf.json"

type exportSpan struct {
	Name       string                 `json:"name"`
	Parent     string                 `json:"parent,omitempty"`
	Start      time.Time              `json:"start"`
	DurationNS int64                  `json:"duration_ns"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Events     []exportEvent          `json:"events,omitempty"`
}

type exportEvent struct {
	Name       string                 `json:"name"`
	Timestamp  time.Time              `json:"timestamp"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// ExportToFile writes the captured spans as JSON to
// <outDir>/nyxpatcher-perf.json. Absolute filesystem paths in path-like
// attributes are rewritten relative to baseDir so the output stays portable.
//
// This is a best-effort diagnostic artifact; callers should treat any
// returned error as non-fatal.
func ExportToFile(fs afero.Fs, outDir string, baseDir string, spans []SpanSnapshot) (string, error) {
	if outDir == "" {
		outDir = "."
	}

	exported := make([]exportSpan, 0, len(spans))
	for _, span := range spans {
		exported = append(exported, exportSpan{
			Name:       span.Name,
			Parent:     span.ParentSpanID,
			Start:      span.StartTime,
			DurationNS: span.EndTime.Sub(span.StartTime).Nanoseconds(),
			Attributes: normalizeAttributes(span.Attributes, baseDir),
			Events:     exportEvents(span.Events, baseDir),
		})
	}

	if err := fs.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(outDir, defaultExportFilename)
	data, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return "", err
	}

	return path, afero.WriteFile(fs, path, data, 0644)
}

func exportEvents(events []EventSnapshot, baseDir string) []exportEvent {
	if len(events) == 0 {
		return nil
	}

	out := make([]exportEvent, 0, len(events))
	for _, event := range events {
		out = append(out, exportEvent{
			Name:       event.Name,
			Timestamp:  event.Timestamp,
			Attributes: normalizeAttributes(event.Attributes, baseDir),
		})
	}
	return out
}

func normalizeAttributes(attrs map[string]interface{}, baseDir string) map[string]interface{} {
	if len(attrs) == 0 {
		return nil
	}

	normalized := make(map[string]interface{}, len(attrs))
	for key, value := range attrs {
		normalized[key] = normalizeValue(key, value, baseDir)
	}
	return normalized
}

func normalizeValue(key string, value interface{}, baseDir string) interface{} {
	stringValue, ok := value.(string)
	if !ok {
		return value
	}

	if !looksLikePathKey(key) {
		return value
	}

	if baseDir != "" && filepath.IsAbs(stringValue) {
		rel, err := filepath.Rel(baseDir, stringValue)
		if err == nil {
			return exportPath(rel)
		}
	}

	return exportPath(stringValue)
}

func looksLikePathKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return key == "path" || strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "path")
}

func exportPath(value string) string {
	cleaned := filepath.Clean(value)
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "." {
		return cleaned
	}
	return filepath.ToSlash(cleaned)
}
