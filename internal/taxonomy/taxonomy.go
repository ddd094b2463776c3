// Package taxonomy cross-walks CEO and ESA WorldCover land-cover labels into a
// shared nine-class taxonomy.
package taxonomy

import "sort"

// Class is a label in the shared taxonomy.
type Class string

// Unclassified is returned when a raw label has no entry in a lookup table.
const Unclassified Class = ""

// Shared taxonomy classes.
const (
	Grassland   Class = "Grassland"
	Shrubland   Class = "Shrubland"
	BuiltUp     Class = "Built Up"
	Barren      Class = "Barren"
	Trees       Class = "Trees"
	Cropland    Class = "Cropland"
	WaterBodies Class = "Water Bodies"
	Wetland     Class = "Wetland"
	Snow        Class = "Snow"
)

// classOrder is the fixed order used for matrix indexing and tie-breaks.
var classOrder = [...]Class{
	Grassland, Shrubland, BuiltUp, Barren, Trees, Cropland, WaterBodies, Wetland, Snow,
}

// Classes returns the shared classes in their fixed order.
func Classes() []Class {
	out := make([]Class, len(classOrder))
	copy(out, classOrder[:])
	return out
}

// Index returns the position of c in the fixed class order, or -1.
func Index(c Class) int {
	for i, k := range classOrder {
		if k == c {
			return i
		}
	}
	return -1
}

// Valid reports whether c is one of the shared classes.
func (c Class) Valid() bool { return Index(c) >= 0 }

// Table maps raw source labels to shared classes. The zero value is an empty
// table; every lookup on it misses.
type Table struct {
	name    string
	entries map[string]Class
}

// NewTable copies entries into a new Table.
func NewTable(name string, entries map[string]Class) Table {
	m := make(map[string]Class, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return Table{name: name, entries: m}
}

// Name identifies the source taxonomy.
func (t Table) Name() string { return t.name }

// Len returns the number of raw labels in the table.
func (t Table) Len() int { return len(t.entries) }

// Lookup returns the shared class for raw and whether it was present.
func (t Table) Lookup(raw string) (Class, bool) {
	c, ok := t.entries[raw]
	return c, ok
}

// Keys returns the raw labels in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of t with overrides applied on top.
func (t Table) With(overrides map[string]Class) Table {
	m := make(map[string]Class, len(t.entries)+len(overrides))
	for k, v := range t.entries {
		m[k] = v
	}
	for k, v := range overrides {
		m[k] = v
	}
	return Table{name: t.name, entries: m}
}

// Harmonize maps raw through t. A label missing from the table yields
// Unclassified; callers filter on it rather than substituting a default.
func Harmonize(t Table, raw string) Class {
	c, ok := t.Lookup(raw)
	if !ok {
		return Unclassified
	}
	return c
}
