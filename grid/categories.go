package grid

import "sort"

// HomeKey is the root category of every board.
const HomeKey = "home"

// SystemControlsKey holds the system controls shown on every page. It is not
// reachable from home.
const SystemControlsKey = "systemControls"

// Categories maps a category key to its ordered items.
type Categories map[string][]Item

// Clone returns a deep copy.
func (c Categories) Clone() Categories {
	if c == nil {
		return nil
	}
	out := make(Categories, len(c))
	for k, items := range c {
		cp := make([]Item, len(items))
		copy(cp, items)
		out[k] = cp
	}
	return out
}

// Keys returns the category keys in scan order: home first, then the rest
// sorted.
func (c Categories) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		if k != HomeKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := c[HomeKey]; ok {
		keys = append([]string{HomeKey}, keys...)
	}
	return keys
}

// Location is where an item sits in the map.
type Location struct {
	Item   Item
	Parent string
	Index  int
}

// FindItemByID scans every category in Keys order and returns the first
// item with the given id.
func (c Categories) FindItemByID(id string) (Location, bool) {
	for _, key := range c.Keys() {
		for i, it := range c[key] {
			if it.ID == id {
				return Location{Item: it, Parent: key, Index: i}, true
			}
		}
	}
	return Location{}, false
}

// FindCategoryByTarget returns the category item that navigates into key.
func (c Categories) FindCategoryByTarget(key string) (Location, bool) {
	for _, parent := range c.Keys() {
		for i, it := range c[parent] {
			if t, ok := it.Target(); ok && t == key {
				return Location{Item: it, Parent: parent, Index: i}, true
			}
		}
	}
	return Location{}, false
}

// CategoryName returns the display name of a category key.
func (c Categories) CategoryName(key string) string {
	if key == HomeKey {
		return "Home"
	}
	if loc, ok := c.FindCategoryByTarget(key); ok {
		return loc.Item.Label
	}
	return key
}

// CategoryRef is one entry of the flattened category tree.
type CategoryRef struct {
	Key   string
	Name  string
	Level int
}

// AllCategories flattens the category tree reachable from home, depth first
// in display order. Home itself is not included. A category reachable twice is
// listed once.
func (c Categories) AllCategories() []CategoryRef {
	var out []CategoryRef
	seen := map[string]bool{HomeKey: true}
	var walk func(parent string, level int)
	walk = func(parent string, level int) {
		for _, it := range c[parent] {
			target, ok := it.Target()
			if !ok || seen[target] {
				continue
			}
			seen[target] = true
			out = append(out, CategoryRef{Key: target, Name: it.Label, Level: level})
			walk(target, level+1)
		}
	}
	walk(HomeKey, 0)
	return out
}

// RemoveSubtree deletes key and every category only reachable through it.
// A category under key that is still linked from outside the subtree is
// kept, together with everything it links to.
func (c Categories) RemoveSubtree(key string) {
	if _, ok := c[key]; !ok {
		return
	}
	sub := map[string]bool{key: true}
	stack := []string{key}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, it := range c[k] {
			t, ok := it.Target()
			if !ok || t == HomeKey || sub[t] {
				continue
			}
			if _, exists := c[t]; exists {
				sub[t] = true
				stack = append(stack, t)
			}
		}
	}

	for k, items := range c {
		if sub[k] {
			continue
		}
		for _, it := range items {
			if t, ok := it.Target(); ok && t != key && sub[t] {
				stack = append(stack, t)
			}
		}
	}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !sub[k] {
			continue
		}
		delete(sub, k)
		for _, it := range c[k] {
			if t, ok := it.Target(); ok && t != key && sub[t] {
				stack = append(stack, t)
			}
		}
	}

	for k := range sub {
		delete(c, k)
	}
}

func removeAt(items []Item, i int) []Item {
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func insertAt(items []Item, i int, it Item) []Item {
	if i > len(items) {
		i = len(items)
	}
	out := make([]Item, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, it)
	return append(out, items[i:]...)
}

func indexOf(items []Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
