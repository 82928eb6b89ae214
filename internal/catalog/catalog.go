// Package catalog loads the named ATC streams and Spotify playlists the
// host can pick from.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a name is not in the catalog.
var ErrNotFound = errors.New("catalog: not found")

// Catalog maps display names to stream URLs and playlist URIs.
type Catalog struct {
	Streams   map[string]string `yaml:"ATC streams" json:"streams"`
	Playlists map[string]string `yaml:"Spotify playlists" json:"playlists"`
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return c, nil
}

// Validate checks that every stream is an http(s) URL and every playlist
// resolves to a spotify URI.
func (c *Catalog) Validate() error {
	for name, raw := range c.Streams {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("catalog: stream %q: invalid url %q", name, raw)
		}
	}
	for name, raw := range c.Playlists {
		if PlaylistURI(raw) == "" {
			return fmt.Errorf("catalog: playlist %q: unrecognised reference %q", name, raw)
		}
	}
	return nil
}

// StreamNames returns the stream names sorted.
func (c *Catalog) StreamNames() []string {
	return sortedKeys(c.Streams)
}

// PlaylistNames returns the playlist names sorted.
func (c *Catalog) PlaylistNames() []string {
	return sortedKeys(c.Playlists)
}

// Stream returns the URL for a stream name.
func (c *Catalog) Stream(name string) (string, error) {
	if u, ok := c.Streams[name]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: stream %q", ErrNotFound, name)
}

// Playlist returns the context URI for a playlist name.
func (c *Catalog) Playlist(name string) (string, error) {
	if ref, ok := c.Playlists[name]; ok {
		return PlaylistURI(ref), nil
	}
	return "", fmt.Errorf("%w: playlist %q", ErrNotFound, name)
}

// PlaylistURI normalises a playlist reference to a spotify context URI.
// Accepts "spotify:playlist:<id>" as is and open.spotify.com links,
// including embed links. Returns "" for anything else.
func PlaylistURI(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "spotify:") {
		parts := strings.Split(ref, ":")
		if len(parts) == 3 && parts[1] != "" && parts[2] != "" {
			return ref
		}
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host != "open.spotify.com" {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) > 0 && segs[0] == "embed" {
		segs = segs[1:]
	}
	if len(segs) != 2 || segs[0] == "" || segs[1] == "" {
		return ""
	}
	return "spotify:" + segs[0] + ":" + segs[1]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Store holds the current catalog for concurrent readers.
type Store struct {
	cur atomic.Pointer[Catalog]
}

// NewStore returns a store holding c, or an empty catalog when c is nil.
func NewStore(c *Catalog) *Store {
	s := &Store{}
	s.Replace(c)
	return s
}

// Get returns the current catalog. Never nil.
func (s *Store) Get() *Catalog {
	return s.cur.Load()
}

// Replace swaps in c.
func (s *Store) Replace(c *Catalog) {
	if c == nil {
		c = &Catalog{}
	}
	s.cur.Store(c)
}
