package project

import (
	"sort"
	"sync"

	"golang.org/x/text/cases"

	"github.com/willibrandon/gonuget-vs/observability"
)

type record struct {
	name    Name
	project Project
}

// Cache maps project names to project handles.
//
// Every project is stored once under its folded unique name. Its unique
// name, custom unique name and full name are registered 1:1 in an alias
// index; its short name goes into a multimap because display names may
// collide. A short name resolves only while exactly one project carries it.
//
// Lookups never fail with an error: a miss is reported by the boolean.
type Cache struct {
	mu         sync.RWMutex
	byUnique   map[string]*record
	byFullKey  map[string]string
	byShort    map[string]map[string]struct{}
	trackGauge bool
}

// NewCache creates an empty cache. The project-count gauge follows the
// cache size.
func NewCache() *Cache {
	return &Cache{
		byUnique:   make(map[string]*record),
		byFullKey:  make(map[string]string),
		byShort:    make(map[string]map[string]struct{}),
		trackGauge: true,
	}
}

// fold normalizes a key. cases.Caser is stateful, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// TryResolve finds the identity for name, which may be any full key or an
// unambiguous short name.
func (c *Cache) TryResolve(name string) (Name, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rec := c.resolveLocked(name, true); rec != nil {
		return rec.name, true
	}
	return Name{}, false
}

// TryGetProject resolves name like TryResolve and returns the live handle.
func (c *Cache) TryGetProject(name string) (Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rec := c.resolveLocked(name, true); rec != nil {
		return rec.project, true
	}
	return nil, false
}

func (c *Cache) resolveLocked(name string, allowShort bool) *record {
	key := fold(name)
	if unique, ok := c.byFullKey[key]; ok {
		return c.byUnique[unique]
	}
	set := c.byShort[key]
	if allowShort {
		if len(set) != 1 {
			return nil
		}
		for unique := range set {
			return c.byUnique[unique]
		}
	}

	// A top-level project's custom unique name is its short name and lives
	// only in the short-name index. It is a full key when exactly one
	// member carries it.
	var match *record
	for unique := range set {
		rec := c.byUnique[unique]
		if fold(rec.name.CustomUniqueName) != key {
			continue
		}
		if match != nil {
			return nil
		}
		match = rec
	}
	return match
}

// Add caches p and returns its identity. Adding a project whose unique name
// is already cached returns the existing identity unchanged.
func (c *Cache) Add(p Project) Name {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addLocked(p)
}

func (c *Cache) addLocked(p Project) Name {
	unique := fold(p.UniqueName())
	if rec, ok := c.byUnique[unique]; ok {
		return rec.name
	}

	name := NewName(p)
	c.byUnique[unique] = &record{name: name, project: p}

	short := fold(name.ShortName)
	set := c.byShort[short]
	if set == nil {
		set = make(map[string]struct{})
		c.byShort[short] = set
	}
	set[unique] = struct{}{}

	c.byFullKey[unique] = unique
	for _, key := range fullKeys(name)[1:] {
		if _, taken := c.byFullKey[key]; !taken {
			c.byFullKey[key] = unique
		}
	}

	c.updateGauge()
	return name
}

// Remove drops the project named by a full key (unique name, custom unique
// name or full name). Short names are not accepted. Removing an unknown
// name does nothing.
func (c *Cache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.resolveLocked(name, false)
	if rec == nil {
		return
	}
	c.removeLocked(rec.name)
}

func (c *Cache) removeLocked(name Name) {
	unique := fold(name.UniqueName)
	delete(c.byUnique, unique)

	for _, key := range fullKeys(name) {
		if c.byFullKey[key] == unique {
			delete(c.byFullKey, key)
			c.reclaimLocked(key)
		}
	}

	short := fold(name.ShortName)
	if set := c.byShort[short]; set != nil {
		delete(set, unique)
		if len(set) == 0 {
			delete(c.byShort, short)
		}
	}

	c.updateGauge()
}

// Rename replaces the entry found under oldName (a full key) with p. When
// oldName is unknown, p is simply added.
func (c *Cache) Rename(oldName string, p Project) Name {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec := c.resolveLocked(oldName, false); rec != nil {
		c.removeLocked(rec.name)
	}
	return c.addLocked(p)
}

// IsAmbiguous reports whether more than one cached project uses shortName.
func (c *Cache) IsAmbiguous(shortName string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byShort[fold(shortName)]) > 1
}

// Projects returns every cached handle ordered by unique name.
func (c *Cache) Projects() []Project {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recs := c.sortedLocked()
	out := make([]Project, len(recs))
	for i, rec := range recs {
		out[i] = rec.project
	}
	return out
}

// Names returns every cached identity ordered by unique name.
func (c *Cache) Names() []Name {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recs := c.sortedLocked()
	out := make([]Name, len(recs))
	for i, rec := range recs {
		out[i] = rec.name
	}
	return out
}

// Len returns the number of cached projects.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byUnique)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byUnique = make(map[string]*record)
	c.byFullKey = make(map[string]string)
	c.byShort = make(map[string]map[string]struct{})
	c.updateGauge()
}

func (c *Cache) sortedLocked() []*record {
	keys := make([]string, 0, len(c.byUnique))
	for k := range c.byUnique {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	recs := make([]*record, len(keys))
	for i, k := range keys {
		recs[i] = c.byUnique[k]
	}
	return recs
}

func (c *Cache) updateGauge() {
	if c.trackGauge {
		observability.ProjectCacheProjects.Set(float64(len(c.byUnique)))
	}
}

// reclaimLocked hands a freed alias to another project that also claims it.
func (c *Cache) reclaimLocked(key string) {
	for unique, rec := range c.byUnique {
		for _, k := range fullKeys(rec.name) {
			if k == key {
				c.byFullKey[key] = unique
				return
			}
		}
	}
}

// fullKeys returns the folded unique name first, then the other aliases.
// A custom unique name equal to the short name is left to the short-name
// index so that colliding top-level names stay ambiguous.
func fullKeys(name Name) []string {
	keys := []string{fold(name.UniqueName)}
	if custom := fold(name.CustomUniqueName); custom != fold(name.ShortName) {
		keys = append(keys, custom)
	}
	if name.FullName != "" {
		keys = append(keys, fold(name.FullName))
	}
	return keys
}
