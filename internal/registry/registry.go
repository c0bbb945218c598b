package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

// Registry holds the callable tool surface. It is built once at start-up and
// only read afterwards, but guards itself so tests may register concurrently.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]tools.Tool
	order    []string
	disabled map[string]bool
	logger   *logrus.Logger
}

// New creates an empty registry. Names in disabled are silently skipped by Register.
func New(logger *logrus.Logger, disabled ...string) *Registry {
	r := &Registry{
		tools:    make(map[string]tools.Tool),
		disabled: make(map[string]bool),
		logger:   logger,
	}
	for _, name := range disabled {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r.disabled[name] = true
		if logger != nil {
			logger.WithField("tool", name).Debug("Tool disabled")
		}
	}
	return r
}

// ParseDisabled splits a DISABLED_TOOLS style comma separated list
func ParseDisabled(value string) []string {
	var out []string
	for name := range strings.SplitSeq(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Register adds a tool. A disabled tool is skipped without error; an empty or
// duplicate name is an error since dispatch would otherwise be ambiguous.
func (r *Registry) Register(tool tools.Tool) error {
	name := tool.Definition().Name
	if name == "" {
		return fmt.Errorf("tool has an empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled[name] {
		if r.logger != nil {
			r.logger.WithField("tool", name).Debug("Tool not registered (disabled)")
		}
		return nil
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q is already registered", name)
	}

	r.tools[name] = tool
	r.order = append(r.order, name)
	if r.logger != nil {
		r.logger.WithField("tool", name).Debug("Tool successfully registered")
	}
	return nil
}

// RegisterAll registers each tool, stopping at the first error
func (r *Registry) RegisterAll(ts ...tools.Tool) error {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (tools.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the descriptors of all registered tools in registration order
func (r *Registry) List() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Names returns the registered tool names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

// NamesWithExtendedHelp returns the sorted names of tools providing extended help
func (r *Registry) NamesWithExtendedHelp() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, name := range r.order {
		if tools.HasExtendedHelp(r.tools[name]) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IsDisabled reports whether name was disabled at construction
func (r *Registry) IsDisabled(name string) bool {
	return r.disabled[name]
}

// Logger returns the logger shared with tools
func (r *Registry) Logger() *logrus.Logger {
	return r.logger
}
