package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultDenyFiles are refused even without a policy file
var DefaultDenyFiles = []string{
	"**/.ssh/**",
	"**/.gnupg/**",
	"**/.aws/**",
}

// Access is the kind of file access being checked
type Access int

const (
	// Read covers opening an existing file
	Read Access = iota
	// Write covers creating or replacing a file
	Write
)

func (a Access) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

// PolicyFile is the YAML form of a file access policy
type PolicyFile struct {
	Version string `yaml:"version"`
	// AllowedRoots, when non-empty, confines every access to these directories
	AllowedRoots []string `yaml:"allowed_roots"`
	// ReadOnlyRoots may be read but never written
	ReadOnlyRoots []string `yaml:"read_only_roots"`
	// DenyFiles are doublestar patterns matched against absolute paths
	DenyFiles []string `yaml:"deny_files"`
	// DenyDomains blocks mail hosts and recipient domains; "*.example.com" matches subdomains
	DenyDomains []string `yaml:"deny_domains"`
	// KeepDefaultDeny keeps DefaultDenyFiles in force alongside DenyFiles (default true)
	KeepDefaultDeny *bool `yaml:"keep_default_deny"`
}

// AccessError is returned when a path or domain is refused
type AccessError struct {
	Target string
	Access string
	Rule   string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access denied: %s of %s blocked by %s", e.Access, e.Target, e.Rule)
}

// ErrAccessDenied matches any AccessError with errors.Is
var ErrAccessDenied = errors.New("access denied")

// Is lets errors.Is(err, ErrAccessDenied) match
func (e *AccessError) Is(target error) bool {
	return target == ErrAccessDenied
}

// Policy decides whether the server may touch a path or talk to a domain.
// It is safe for concurrent use and may be reloaded while in use.
type Policy struct {
	mu          sync.RWMutex
	roots       []string
	readOnly    []string
	denyFiles   []string
	denyDomains []string
	source      string
	logger      *logrus.Logger
}

// NewPolicy returns the built-in policy: everything allowed except DefaultDenyFiles
func NewPolicy(logger *logrus.Logger) *Policy {
	p := &Policy{logger: logger}
	p.apply(&PolicyFile{}, "")
	return p
}

// LoadPolicy reads a policy from path. A missing file yields the built-in policy.
func LoadPolicy(path string, logger *logrus.Logger) (*Policy, error) {
	p := NewPolicy(logger)
	if path == "" {
		return p, nil
	}
	if err := p.Reload(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return nil, err
	}
	return p, nil
}

// Reload replaces the policy with the contents of path. On error the current
// policy stays in force.
func (p *Policy) Reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse policy %s: %w", path, err)
	}
	for _, pattern := range file.DenyFiles {
		if !doublestar.ValidatePattern(filepath.ToSlash(expandHome(pattern))) {
			return fmt.Errorf("invalid deny_files pattern %q in %s", pattern, path)
		}
	}

	p.apply(&file, path)
	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"path":          path,
			"allowed_roots": len(file.AllowedRoots),
			"deny_files":    len(file.DenyFiles),
		}).Info("File access policy loaded")
	}
	return nil
}

func (p *Policy) apply(file *PolicyFile, source string) {
	deny := make([]string, 0, len(file.DenyFiles)+len(DefaultDenyFiles))
	if file.KeepDefaultDeny == nil || *file.KeepDefaultDeny {
		deny = append(deny, DefaultDenyFiles...)
	}
	for _, pattern := range file.DenyFiles {
		deny = append(deny, filepath.ToSlash(expandHome(pattern)))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.roots = canonicalAll(file.AllowedRoots)
	p.readOnly = canonicalAll(file.ReadOnlyRoots)
	p.denyFiles = deny
	p.denyDomains = normaliseDomains(file.DenyDomains)
	p.source = source
}

// Source returns the file the policy was loaded from, or "" for the built-in policy
func (p *Policy) Source() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

// Check returns an *AccessError when access to path is not permitted
func (p *Policy) Check(path string, access Access) error {
	abs := canonical(path)

	p.mu.RLock()
	defer p.mu.RUnlock()

	slashed := filepath.ToSlash(abs)
	for _, pattern := range p.denyFiles {
		if matchPath(pattern, slashed) {
			return &AccessError{Target: abs, Access: access.String(), Rule: "deny pattern " + pattern}
		}
	}

	if access == Write {
		for _, root := range p.readOnly {
			if within(abs, root) {
				return &AccessError{Target: abs, Access: access.String(), Rule: "read-only root " + root}
			}
		}
	}

	if len(p.roots) == 0 {
		return nil
	}
	for _, root := range p.roots {
		if within(abs, root) {
			return nil
		}
	}
	for _, root := range p.readOnly {
		if access == Read && within(abs, root) {
			return nil
		}
	}
	return &AccessError{Target: abs, Access: access.String(), Rule: "allowed_roots"}
}

// CheckDomain returns an *AccessError when a mail host or address domain is denied
func (p *Policy) CheckDomain(domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if at := strings.LastIndex(domain, "@"); at >= 0 {
		domain = domain[at+1:]
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, pattern := range p.denyDomains {
		if base, ok := strings.CutPrefix(pattern, "*."); ok {
			if domain == base || strings.HasSuffix(domain, "."+base) {
				return &AccessError{Target: domain, Access: "connect", Rule: "deny domain " + pattern}
			}
			continue
		}
		if domain == pattern {
			return &AccessError{Target: domain, Access: "connect", Rule: "deny domain " + pattern}
		}
	}
	return nil
}

// matchPath matches a doublestar pattern against an absolute slash path. Patterns
// starting with ** are also tried without the leading slash.
func matchPath(pattern, path string) bool {
	if ok, _ := doublestar.Match(pattern, path); ok {
		return true
	}
	if strings.HasPrefix(pattern, "**") {
		ok, _ := doublestar.Match(pattern, strings.TrimPrefix(path, "/"))
		return ok
	}
	return false
}

func within(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}

// canonical makes path absolute and resolves symlinks in its longest existing prefix
func canonical(path string) string {
	abs, err := filepath.Abs(expandHome(path))
	if err != nil {
		abs = filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}

	// Walk up until something exists, then re-append the missing tail
	dir, tail := abs, ""
	for {
		parent := filepath.Dir(dir)
		tail = filepath.Join(filepath.Base(dir), tail)
		if parent == dir {
			return abs
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			return filepath.Join(resolved, tail)
		}
		dir = parent
	}
}

func canonicalAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			out = append(out, canonical(p))
		}
	}
	return out
}

func normaliseDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// expandHome expands ~ to the user's home directory
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
