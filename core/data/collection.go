// Package data implements the instance store: a sparse, string-keyed table of
// instance ID → data-point name → value.
//
// Data-point names are interned to small integers. Subsets obtained with Get
// share the interning table with the collection they came from, so deriving the
// train/test collections of a fold copies only the per-instance maps.
package data

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// MissingValue is the sentinel for an absent value. Queries never return nil;
// they return MissingValue.
const MissingValue = "?"

// IsMissing reports whether v denotes a missing value.
func IsMissing(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == MissingValue
}

type nameTable struct {
	mu    sync.RWMutex
	index map[string]int
	names []string
}

func newNameTable() *nameTable {
	return &nameTable{index: make(map[string]int)}
}

func (t *nameTable) intern(name string) int {
	t.mu.RLock()
	i, ok := t.index[name]
	t.mu.RUnlock()
	if ok {
		return i
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if i, ok := t.index[name]; ok {
		return i
	}
	i = len(t.names)
	t.index[name] = i
	t.names = append(t.names, name)
	return i
}

func (t *nameTable) lookup(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[name]
	return i, ok
}

func (t *nameTable) name(i int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.names[i]
}

// Collection is a set of instances plus the registry of data-point names added to it.
// It is safe for concurrent use.
type Collection struct {
	mu        sync.RWMutex
	names     *nameTable
	points    map[int]struct{}
	instances map[string]map[int]string
}

// NewCollection returns an empty collection with its own name table.
func NewCollection() *Collection {
	return &Collection{
		names:     newNameTable(),
		points:    make(map[int]struct{}),
		instances: make(map[string]map[int]string),
	}
}

// Add stores value for (id, name). Missing values are ignored, leaving the
// data point absent. The instance is created on first add.
func (c *Collection) Add(name, id, value string) {
	if IsMissing(value) {
		return
	}
	idx := c.names.intern(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	values, ok := c.instances[id]
	if !ok {
		values = make(map[int]string)
		c.instances[id] = values
	}
	values[idx] = strings.TrimSpace(value)
	c.points[idx] = struct{}{}
}

// AddInstance registers id without any values.
func (c *Collection) AddInstance(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.instances[id]; !ok {
		c.instances[id] = make(map[int]string)
	}
}

// Get returns the subset of instances whose IDs are listed. Unknown IDs are
// ignored. The subset shares this collection's name table; its registry holds
// only the names that its instances actually carry.
func (c *Collection) Get(ids []string) *Collection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sub := &Collection{
		names:     c.names,
		points:    make(map[int]struct{}),
		instances: make(map[string]map[int]string, len(ids)),
	}
	for _, id := range ids {
		values, ok := c.instances[id]
		if !ok {
			continue
		}
		copied := make(map[int]string, len(values))
		for idx, v := range values {
			copied[idx] = v
			sub.points[idx] = struct{}{}
		}
		sub.instances[id] = copied
	}
	return sub
}

// GetValue returns the value for (id, name), or MissingValue when the
// instance, the data point or the value is absent.
func (c *Collection) GetValue(id, name string) string {
	idx, ok := c.names.lookup(name)
	if !ok {
		return MissingValue
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	values, ok := c.instances[id]
	if !ok {
		return MissingValue
	}
	if v, ok := values[idx]; ok {
		return v
	}
	return MissingValue
}

// Has reports whether the instance exists.
func (c *Collection) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[id]
	return ok
}

// Size returns the number of instances.
func (c *Collection) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instances)
}

// IDs returns all instance IDs in natural order.
func (c *Collection) IDs() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.instances))
	for id := range c.instances {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	SortNatural(ids)
	return ids
}

// DataPointNames returns the registered data-point names in natural order.
func (c *Collection) DataPointNames() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.points))
	for idx := range c.points {
		names = append(names, c.names.name(idx))
	}
	c.mu.RUnlock()

	SortNatural(names)
	return names
}

// NumDataPoints returns the number of registered data-point names.
func (c *Collection) NumDataPoints() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.points)
}

// HasDataPoint reports whether name is registered in this collection.
func (c *Collection) HasDataPoint(name string) bool {
	idx, ok := c.names.lookup(name)
	if !ok {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok = c.points[idx]
	return ok
}

// UniqueValues returns the distinct non-missing values of name in natural order.
func (c *Collection) UniqueValues(name string) []string {
	idx, ok := c.names.lookup(name)
	if !ok {
		return nil
	}

	c.mu.RLock()
	seen := make(map[string]struct{})
	for _, values := range c.instances {
		if v, ok := values[idx]; ok {
			seen[v] = struct{}{}
		}
	}
	c.mu.RUnlock()

	unique := make([]string, 0, len(seen))
	for v := range seen {
		unique = append(unique, v)
	}
	SortNatural(unique)
	return unique
}

// FilterByValue returns the instances whose value for name equals value.
func (c *Collection) FilterByValue(name, value string) *Collection {
	var ids []string
	for _, id := range c.IDs() {
		if c.GetValue(id, name) == value {
			ids = append(ids, id)
		}
	}
	return c.Get(ids)
}

// RemoveDataPointName deletes name from every instance and from the registry.
func (c *Collection) RemoveDataPointName(name string) {
	idx, ok := c.names.lookup(name)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, values := range c.instances {
		delete(values, idx)
	}
	delete(c.points, idx)
}

// RemoveInstance deletes one instance. Names only it carried leave the
// registry.
func (c *Collection) RemoveInstance(id string) {
	c.RemoveInstances([]string{id})
}

// RemoveInstances deletes the listed instances and unregisters the names no
// remaining instance carries.
func (c *Collection) RemoveInstances(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	orphans := make(map[int]struct{})
	for _, id := range ids {
		for idx := range c.instances[id] {
			orphans[idx] = struct{}{}
		}
		delete(c.instances, id)
	}
	for _, values := range c.instances {
		if len(orphans) == 0 {
			break
		}
		for idx := range values {
			delete(orphans, idx)
		}
	}
	for idx := range orphans {
		delete(c.points, idx)
	}
}

// ProportionMissingValues returns 1 − nonMissing/(instances × dataPoints),
// rounded to three decimal places. An empty collection has no missing values.
func (c *Collection) ProportionMissingValues() float64 {
	c.mu.RLock()
	nonMissing := 0
	for _, values := range c.instances {
		nonMissing += len(values)
	}
	total := len(c.instances) * len(c.points)
	c.mu.RUnlock()

	if total == 0 {
		return 0
	}
	present := decimal.NewFromInt(int64(nonMissing)).Div(decimal.NewFromInt(int64(total)))
	return decimal.NewFromInt(1).Sub(present).Round(3).InexactFloat64()
}
