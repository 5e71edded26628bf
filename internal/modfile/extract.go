package modfile

import (
	"archive/zip"
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	curseforgeFingerprint "github.com/meza/curseforge-fingerprint-go"
	"github.com/spf13/afero"
)

const (
	fabricDescriptorName = "fabric.mod.json"
	forgeDescriptorName  = "META-INF/mods.toml"
	quiltDescriptorName  = "quilt.mod.json"
	manifestName         = "META-INF/MANIFEST.MF"
)

type Extractor struct {
	Fs              afero.Fs
	PreferredLoader models.Loader

	// FingerprintFor computes the curseforge murmur fingerprint for a
	// file on disk. Nil disables fingerprinting.
	FingerprintFor func(string) uint32
}

func NewExtractor(fs afero.Fs, preferred models.Loader) *Extractor {
	return &Extractor{
		Fs:              fs,
		PreferredLoader: preferred,
		FingerprintFor:  curseforgeFingerprint.GetFingerprintFor,
	}
}

// Extract reads the archive at path and produces its Identity. All loader
// descriptor formats are attempted, the preferred loader's format first.
func (extractor *Extractor) Extract(ctx context.Context, path string) (Identity, error) {
	identity := Identity{
		Path:     path,
		FileName: filepath.Base(path),
		Loader:   extractor.PreferredLoader,
	}

	sha, err := sha1ForFile(ctx, extractor.Fs, path)
	if err != nil {
		return Identity{}, &UnreadableArchiveError{Path: path, Err: err}
	}
	identity.Sha1 = sha

	if extractor.FingerprintFor != nil {
		identity.Fingerprint = extractor.FingerprintFor(path)
	}

	file, err := extractor.Fs.Open(path)
	if err != nil {
		return Identity{}, &UnreadableArchiveError{Path: path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Identity{}, &UnreadableArchiveError{Path: path, Err: err}
	}

	archive, err := zip.NewReader(file, info.Size())
	if err != nil {
		return Identity{}, &UnreadableArchiveError{Path: path, Err: err}
	}

	descriptor, found := readDescriptor(archive, extractor.PreferredLoader)
	if !found {
		name, version := splitFileName(identity.FileName)
		if version == "" {
			return Identity{}, &MissingMetadataError{Path: path}
		}
		identity.Name = name
		identity.Version = version
		identity.Slug = sanitizeSlug(name)
		return identity, nil
	}

	identity.Loader = descriptor.loader
	identity.Slug = descriptor.id
	identity.Name = descriptor.name
	identity.Version = descriptor.version

	if identity.Version == "" || strings.Contains(identity.Version, "${") {
		identity.Version = resolveVersionPlaceholder(archive, identity.FileName)
	}
	if identity.Name == "" {
		name, _ := splitFileName(identity.FileName)
		identity.Name = name
	}
	if identity.Slug == "" {
		identity.Slug = sanitizeSlug(identity.Name)
	}
	if identity.Version == "" {
		identity.Version = "unknown"
	}

	return identity, nil
}

type descriptor struct {
	loader  models.Loader
	id      string
	name    string
	version string
}

func descriptorOrder(preferred models.Loader) []models.Loader {
	order := make([]models.Loader, 0, 3)
	order = append(order, preferred)
	for _, loader := range models.AllLoaders() {
		if loader != preferred {
			order = append(order, loader)
		}
	}
	return order
}

func readDescriptor(archive *zip.Reader, preferred models.Loader) (descriptor, bool) {
	for _, loader := range descriptorOrder(preferred) {
		var parsed descriptor
		var ok bool
		switch loader {
		case models.FABRIC:
			parsed, ok = parseFabricDescriptor(archive)
		case models.FORGE:
			parsed, ok = parseForgeDescriptor(archive)
		case models.QUILT:
			parsed, ok = parseQuiltDescriptor(archive)
		}
		if ok {
			return parsed, true
		}
	}
	return descriptor{}, false
}

func parseFabricDescriptor(archive *zip.Reader) (descriptor, bool) {
	data, ok := readArchiveFile(archive, fabricDescriptorName)
	if !ok {
		return descriptor{}, false
	}

	var parsed struct {
		ID      string `json:"id"`
		Version string `json:"version"`
		Name    string `json:"name"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return descriptor{}, false
	}

	return descriptor{
		loader:  models.FABRIC,
		id:      parsed.ID,
		name:    parsed.Name,
		version: parsed.Version,
	}, true
}

func parseForgeDescriptor(archive *zip.Reader) (descriptor, bool) {
	data, ok := readArchiveFile(archive, forgeDescriptorName)
	if !ok {
		return descriptor{}, false
	}

	var parsed struct {
		Mods []struct {
			ModID       string `toml:"modId"`
			Version     string `toml:"version"`
			DisplayName string `toml:"displayName"`
		} `toml:"mods"`
	}
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return descriptor{}, false
	}
	if len(parsed.Mods) == 0 {
		return descriptor{}, false
	}

	return descriptor{
		loader:  models.FORGE,
		id:      parsed.Mods[0].ModID,
		name:    parsed.Mods[0].DisplayName,
		version: parsed.Mods[0].Version,
	}, true
}

func parseQuiltDescriptor(archive *zip.Reader) (descriptor, bool) {
	data, ok := readArchiveFile(archive, quiltDescriptorName)
	if !ok {
		return descriptor{}, false
	}

	var parsed struct {
		QuiltLoader struct {
			ID       string `json:"id"`
			Version  string `json:"version"`
			Metadata struct {
				Name string `json:"name"`
			} `json:"metadata"`
		} `json:"quilt_loader"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return descriptor{}, false
	}
	if parsed.QuiltLoader.ID == "" && parsed.QuiltLoader.Version == "" {
		return descriptor{}, false
	}

	return descriptor{
		loader:  models.QUILT,
		id:      parsed.QuiltLoader.ID,
		name:    parsed.QuiltLoader.Metadata.Name,
		version: parsed.QuiltLoader.Version,
	}, true
}

func readArchiveFile(archive *zip.Reader, name string) ([]byte, bool) {
	for _, entry := range archive.File {
		if entry.Name != name {
			continue
		}
		reader, err := entry.Open()
		if err != nil {
			return nil, false
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

// resolveVersionPlaceholder handles descriptors that declare a build-time
// substituted version such as "${file.jarVersion}". The jar manifest's
// Implementation-Version is authoritative, the filename is the last resort.
func resolveVersionPlaceholder(archive *zip.Reader, fileName string) string {
	if manifest, ok := readArchiveFile(archive, manifestName); ok {
		if version := manifestImplementationVersion(manifest); version != "" {
			return version
		}
	}
	_, version := splitFileName(fileName)
	return version
}

func manifestImplementationVersion(manifest []byte) string {
	scanner := bufio.NewScanner(strings.NewReader(string(manifest)))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Implementation-Version:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Implementation-Version:"))
		}
	}
	return ""
}

// splitFileName derives (name, version) from a jar filename by cutting at
// the last dash followed by a digit: "sodium-fabric-0.5.8+mc1.20.1.jar"
// yields ("sodium-fabric", "0.5.8+mc1.20.1").
func splitFileName(fileName string) (string, string) {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	for i := len(base) - 1; i > 0; i-- {
		if base[i] != '-' {
			continue
		}
		if i+1 < len(base) && base[i+1] >= '0' && base[i+1] <= '9' {
			return base[:i], base[i+1:]
		}
	}
	return base, ""
}

func sanitizeSlug(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var builder strings.Builder
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			builder.WriteRune(r)
		case r == ' ':
			builder.WriteRune('-')
		}
	}
	return builder.String()
}

func sha1ForFile(ctx context.Context, fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha1.New()
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := file.Read(buf)
		if n > 0 {
			_, _ = hasher.Write(buf[:n])
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return "", readErr
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// ListJarFiles returns the jar files directly inside dir, sorted the way
// the directory listing returns them.
func ListJarFiles(fs afero.Fs, dir string) ([]string, error) {
	all, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(all))
	for _, entry := range all {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name()), ".jar") {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, entry.Name()))
	}
	return candidates, nil
}
