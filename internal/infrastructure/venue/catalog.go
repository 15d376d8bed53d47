// Package venue resolves free-text venue searches against a YAML catalog.
package venue

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
	"gopkg.in/yaml.v3"
)

// Entry is one venue in the catalog file.
type Entry struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Address string   `yaml:"address,omitempty"`
	Aliases []string `yaml:"aliases,omitempty"`
}

func (e Entry) venue() outing.Venue {
	return outing.Venue{ID: e.ID, Name: e.Name, Address: e.Address}
}

type catalogFile struct {
	Venues []Entry `yaml:"venues"`
}

// Match tiers, best first.
const (
	tierID = iota
	tierExact
	tierPrefix
	tierSubstring
	tierNone
)

// Catalog is an in-memory venue list that can be reloaded from disk.
type Catalog struct {
	path string

	mu      sync.RWMutex
	entries []Entry
}

// NewCatalog builds a catalog from entries. It has no backing file.
func NewCatalog(entries []Entry) (*Catalog, error) {
	if err := validate(entries); err != nil {
		return nil, err
	}
	return &Catalog{entries: append([]Entry(nil), entries...)}, nil
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the backing file, if any.
func (c *Catalog) Path() string { return c.path }

// Reload re-reads the backing file. On error the previous entries stay.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read venue catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse venue catalog %s: %w", c.path, err)
	}
	if err := validate(file.Venues); err != nil {
		return fmt.Errorf("venue catalog %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.entries = file.Venues
	c.mu.Unlock()
	return nil
}

// Len returns the number of venues.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Search returns up to limit venues matching query: id, then exact name or
// alias, then prefix, then substring, all case-insensitive. Ties keep
// catalog order. A limit <= 0 means no limit.
func (c *Catalog) Search(query string, limit int) []outing.Venue {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	type hit struct {
		tier  int
		index int
	}
	var hits []hit
	for i, e := range c.entries {
		if t := matchTier(e, q); t != tierNone {
			hits = append(hits, hit{tier: t, index: i})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].tier < hits[b].tier })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]outing.Venue, len(hits))
	for i, h := range hits {
		out[i] = c.entries[h.index].venue()
	}
	return out
}

// ResolveVenue implements outing.VenueLookup.
func (c *Catalog) ResolveVenue(_ context.Context, query string) (outing.Venue, error) {
	if strings.TrimSpace(query) == "" {
		return outing.Venue{}, fmt.Errorf("%w: venue query is required", outing.ErrInvalidInput)
	}
	found := c.Search(query, 1)
	if len(found) == 0 {
		return outing.Venue{}, fmt.Errorf("venue %q: %w", query, outing.ErrNotFound)
	}
	return found[0], nil
}

func matchTier(e Entry, q string) int {
	if strings.ToLower(e.ID) == q {
		return tierID
	}
	names := append([]string{e.Name}, e.Aliases...)
	best := tierNone
	for _, n := range names {
		n = strings.ToLower(n)
		switch {
		case n == q:
			return tierExact
		case strings.HasPrefix(n, q):
			best = min(best, tierPrefix)
		case strings.Contains(n, q):
			best = min(best, tierSubstring)
		}
	}
	return best
}

func validate(entries []Entry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.ID == "" || strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("venue %d: id and name are required", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate venue id %q", e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

var _ outing.VenueLookup = (*Catalog)(nil)
