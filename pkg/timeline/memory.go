package timeline

import "sync"

// MemoryContainer records toggles in memory. It is used by tests and by
// headless renderers that report state instead of drawing it.
type MemoryContainer struct {
	mu      sync.Mutex
	shown   map[string]bool
	classes map[string]map[string]bool
	writes  int
}

// NewMemoryContainer returns a container with every element shown and no
// classes set.
func NewMemoryContainer() *MemoryContainer {
	return &MemoryContainer{
		shown:   map[string]bool{},
		classes: map[string]map[string]bool{},
	}
}

// Toggle implements Container.
func (c *MemoryContainer) Toggle(selector string, visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shown[selector] = visible
	c.writes++
}

// ToggleClass implements Container.
func (c *MemoryContainer) ToggleClass(selector, class string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.classes[selector]
	if set == nil {
		set = map[string]bool{}
		c.classes[selector] = set
	}
	if on {
		set[class] = true
	} else {
		delete(set, class)
	}
	c.writes++
}

// Shown reports whether selector is displayed. Unknown selectors are shown.
func (c *MemoryContainer) Shown(selector string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	shown, ok := c.shown[selector]
	return !ok || shown
}

// HasClass reports whether selector carries class.
func (c *MemoryContainer) HasClass(selector, class string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classes[selector][class]
}

// Writes counts Toggle and ToggleClass calls.
func (c *MemoryContainer) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}
