// Package catalog provides the read-mostly product catalog: a JSON
// file of categories, subcategories, and products, loaded at startup
// and reloaded when the file changes on disk.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/types"
)

// rawCatalog mirrors the products file layout:
// {"Main Category": {"Subcategory": [{"name": ..., "upc": ...}]}}
type rawCatalog map[string]map[string][]struct {
	Name string `json:"name"`
	UPC  string `json:"upc"`
}

// Catalog is an in-process product index. All lookups are safe for
// concurrent use; Reload swaps the whole index at once.
type Catalog struct {
	path string
	log  *zap.Logger

	mu       sync.RWMutex
	loaded   bool
	products []*types.Product
	byUPC    map[string]*types.Product
	tree     map[string][]string // main category -> subcategories

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a catalog bound to a products file. Call Load before
// serving lookups.
func New(path string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{path: path, log: logger}
}

// Load reads and indexes the products file
func (c *Catalog) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read products file: %w", err)
	}

	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse products file: %w", err)
	}

	var products []*types.Product
	byUPC := make(map[string]*types.Product)
	tree := make(map[string][]string)

	for main, subs := range raw {
		for sub, entries := range subs {
			tree[main] = append(tree[main], sub)
			for _, e := range entries {
				p := &types.Product{
					Name:         e.Name,
					UPC:          e.UPC,
					MainCategory: main,
					Subcategory:  sub,
				}
				products = append(products, p)
				byUPC[e.UPC] = p
			}
		}
	}
	for main := range tree {
		sort.Strings(tree[main])
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].Name < products[j].Name
	})

	c.mu.Lock()
	c.products = products
	c.byUPC = byUPC
	c.tree = tree
	c.loaded = true
	c.mu.Unlock()

	c.log.Info("product catalog loaded",
		zap.String("path", c.path),
		zap.Int("products", len(products)),
		zap.Int("categories", len(tree)))
	return nil
}

// Watch reloads the catalog whenever the products file changes.
// Stop with Close.
func (c *Catalog) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(c.path); err != nil {
		w.Close()
		return fmt.Errorf("watch products file: %w", err)
	}
	c.watcher = w
	c.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := c.Load(); err != nil {
						c.log.Warn("catalog reload failed", zap.Error(err))
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.Warn("catalog watcher error", zap.Error(err))
			case <-c.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the file watcher
func (c *Catalog) Close() error {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// Loaded reports whether the catalog has been loaded
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Categories returns the category tree: main category to sorted
// subcategories.
func (c *Catalog) Categories() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]string, len(c.tree))
	for main, subs := range c.tree {
		out[main] = append([]string(nil), subs...)
	}
	return out
}

// Products returns products filtered by category. Empty filters match
// everything.
func (c *Catalog) Products(mainCategory, subcategory string) []*types.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*types.Product
	for _, p := range c.products {
		if mainCategory != "" && p.MainCategory != mainCategory {
			continue
		}
		if subcategory != "" && p.Subcategory != subcategory {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Search finds products whose name or UPC contains the query,
// case-insensitively.
func (c *Catalog) Search(query string) []*types.Product {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*types.Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.UPC), query) {
			out = append(out, p)
		}
	}
	return out
}

// FindByUPC returns the product with exactly this UPC, or nil.
func (c *Catalog) FindByUPC(upc string) *types.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byUPC[upc]
}

// FindByScannedUPC resolves a decoded scanner code. A stored UPC
// matches iff it is a substring of the code. When several stored UPCs
// match, the longest one wins; ties break lexicographically so the
// result is deterministic across reloads.
func (c *Catalog) FindByScannedUPC(code string) *types.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var best *types.Product
	for upc, p := range c.byUPC {
		if upc == "" || !strings.Contains(code, upc) {
			continue
		}
		if best == nil ||
			len(upc) > len(best.UPC) ||
			(len(upc) == len(best.UPC) && upc < best.UPC) {
			best = p
		}
	}
	return best
}

// Stats summarizes the catalog contents.
type Stats struct {
	Products      int `json:"products"`
	Categories    int `json:"categories"`
	Subcategories int `json:"subcategories"`
}

// GetStats returns catalog size counters
func (c *Catalog) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subs := 0
	for _, s := range c.tree {
		subs += len(s)
	}
	return Stats{
		Products:      len(c.products),
		Categories:    len(c.tree),
		Subcategories: subs,
	}
}
