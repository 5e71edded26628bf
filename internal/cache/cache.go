// Package cache stores provider version listings between runs so
// repeated checks against an unchanged mod set stay off the network.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/fileutils"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"github.com/Dig-pestroyer/NyxPatch/internal/provider"
	"github.com/spf13/afero"
)

// DefaultTTL keeps entries for a week. Mod releases are infrequent
// enough that a weekly refresh catches up without hammering the apis.
const DefaultTTL = 168 * time.Hour

const fileFormatVersion = 1

// Key identifies one cached version listing. Every dimension that
// changes the provider response is part of the key.
type Key struct {
	Platform    models.Platform
	ProjectID   string
	GameVersion string
	Loader      models.Loader
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Platform, k.ProjectID, k.GameVersion, k.Loader)
}

type entry struct {
	StoredAt time.Time                `json:"stored_at"`
	TTL      time.Duration            `json:"ttl"`
	Versions []provider.RemoteVersion `json:"versions"`
}

type cacheFile struct {
	Version int              `json:"version"`
	Entries map[string]entry `json:"entries"`
}

type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached versions for a key. An expired entry behaves
// exactly like a missing one and is dropped on the way out.
func (s *Store) Get(key Key) ([]provider.RemoteVersion, bool) {
	s.mu.RLock()
	cached, found := s.entries[key.String()]
	s.mu.RUnlock()

	if !found {
		return nil, false
	}
	if s.expired(cached) {
		s.mu.Lock()
		if current, stillThere := s.entries[key.String()]; stillThere && s.expired(current) {
			delete(s.entries, key.String())
		}
		s.mu.Unlock()
		return nil, false
	}
	return cached.Versions, true
}

func (s *Store) Put(key Key, versions []provider.RemoteVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key.String()] = entry{
		StoredAt: s.now(),
		TTL:      s.ttl,
		Versions: versions,
	}
}

func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key.String())
}

func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// expired honors the ttl the entry was written with, so a reloaded
// entry keeps its original lifetime even when the store's configured
// ttl has changed between runs. Entries from older files carry no ttl
// and fall back to the store's.
func (s *Store) expired(cached entry) bool {
	ttl := cached.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}
	return s.now().Sub(cached.StoredAt) >= ttl
}

// Load reads a persisted cache file. A missing file yields an empty
// store. A corrupt file is moved aside to a .bak sibling and the store
// starts empty rather than failing the whole run over stale state.
func (s *Store) Load(fs afero.Fs, path string) error {
	_, span := perf.StartSpan(context.Background(), "io.cache.read")
	defer span.End()

	if !fileutils.FileExists(fs, path) {
		return nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil || file.Version != fileFormatVersion {
		_ = fs.Rename(path, path+".bak")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = file.Entries
	if s.entries == nil {
		s.entries = make(map[string]entry)
	}
	return nil
}

// Save persists the live entries. Expired entries are not written out.
func (s *Store) Save(fs afero.Fs, path string) error {
	_, span := perf.StartSpan(context.Background(), "io.cache.write")
	defer span.End()

	s.mu.RLock()
	file := cacheFile{
		Version: fileFormatVersion,
		Entries: make(map[string]entry, len(s.entries)),
	}
	for key, cached := range s.entries {
		if s.expired(cached) {
			continue
		}
		file.Entries[key] = cached
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return fileutils.WriteFileAtomic(fs, path, data)
}
