package verify

import (
	"context"
	"sort"
	"sync"
)

// fakeNode is one resolvable element in the fake DOM.
type fakeNode struct {
	handle       string
	role         string
	name         string
	scope        string // handle of the ancestor scope, "" = document root
	visible      bool
	interactable bool
}

// fakeDriver is an in-memory Driver used by the package tests. Click/fill
// hooks stand in for the application under test: they mutate the fake DOM
// the way a real backend round-trip would, possibly from a goroutine to
// emulate async rendering.
type fakeDriver struct {
	mu      sync.Mutex
	nodes   map[string]*fakeNode
	counts  map[string]int
	html    map[string]string
	texts   map[string]string
	visible map[string]bool
	clicks  map[string]func()
	fills   map[string]func(text string)
	selects map[string]func(value string)

	navigatedTo string
	clickLog    []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		nodes:   make(map[string]*fakeNode),
		counts:  make(map[string]int),
		html:    make(map[string]string),
		texts:   make(map[string]string),
		visible: make(map[string]bool),
		clicks:  make(map[string]func()),
		fills:   make(map[string]func(text string)),
		selects: make(map[string]func(value string)),
	}
}

func (d *fakeDriver) addNode(n *fakeNode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes[n.handle] = n
}

func (d *fakeDriver) setCount(selector string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts[selector] = n
}

func (d *fakeDriver) addCount(selector string, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts[selector] += delta
}

func (d *fakeDriver) setHTML(selector, html string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.html[selector] = html
}

func (d *fakeDriver) setVisible(selector string, visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.visible[selector] = visible
}

func (d *fakeDriver) setInteractable(handle string, interactable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.nodes[handle]; ok {
		n.interactable = interactable
	}
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigatedTo = url
	return nil
}

func (d *fakeDriver) Resolve(_ context.Context, scope, role, name string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var handles []string
	for _, n := range d.nodes {
		if n.role != role || n.name != name {
			continue
		}
		if scope != "" && n.scope != scope {
			continue
		}
		handles = append(handles, n.handle)
	}
	sort.Strings(handles)
	return handles, nil
}

func (d *fakeDriver) Click(_ context.Context, handle string) error {
	d.mu.Lock()
	d.clickLog = append(d.clickLog, handle)
	hook := d.clicks[handle]
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (d *fakeDriver) Fill(_ context.Context, handle string, text string) error {
	d.mu.Lock()
	hook := d.fills[handle]
	d.mu.Unlock()
	if hook != nil {
		hook(text)
	}
	return nil
}

func (d *fakeDriver) SelectOption(_ context.Context, handle string, value string) error {
	d.mu.Lock()
	hook := d.selects[handle]
	d.mu.Unlock()
	if hook != nil {
		hook(value)
	}
	return nil
}

func (d *fakeDriver) IsVisible(_ context.Context, handle string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.nodes[handle]; ok {
		return n.visible, nil
	}
	return d.visible[handle], nil
}

func (d *fakeDriver) IsInteractable(_ context.Context, handle string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.nodes[handle]; ok {
		return n.visible && n.interactable, nil
	}
	return false, nil
}

func (d *fakeDriver) InnerText(_ context.Context, handle string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.texts[handle], nil
}

func (d *fakeDriver) OuterHTML(_ context.Context, handle string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.html[handle], nil
}

func (d *fakeDriver) Count(_ context.Context, selector string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[selector], nil
}
