package files

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/silverhost/panel/internal/tenant"
)

// Sandbox resolves tenant-relative path strings into absolute,
// verified-contained filesystem paths. Every other engine component
// depends on it; no OS mutation happens on a path that did not pass
// through Resolve.
type Sandbox struct {
	base string

	// onRootCreate fires when a tenant root is materialized for the
	// first time. May overcount under concurrent first access.
	onRootCreate func()
}

// NewSandbox creates a sandbox rooted at basePath. The base directory
// is created if absent.
func NewSandbox(basePath string) (*Sandbox, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, internal("sandbox", basePath, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, internal("sandbox", basePath, err)
	}
	return &Sandbox{base: abs}, nil
}

// Root returns the tenant's root directory, creating it on first
// access. Creation is idempotent: an "already exists" result from a
// concurrent request is success, not an error.
func (s *Sandbox) Root(tenantID string) (string, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return "", &Error{Kind: ErrValidation, Op: "resolve", Message: err.Error()}
	}
	root := filepath.Join(s.base, tenantID)
	_, serr := os.Stat(root)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return "", internal("resolve", tenantID, err)
	}
	if os.IsNotExist(serr) && s.onRootCreate != nil {
		s.onRootCreate()
	}
	return root, nil
}

// CanonicalRoot returns the tenant root with symlinks resolved, for
// prefix comparison against resolved paths.
func (s *Sandbox) CanonicalRoot(tenantID string) (string, error) {
	root, err := s.Root(tenantID)
	if err != nil {
		return "", err
	}
	canon, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", internal("resolve", tenantID, err)
	}
	return canon, nil
}

// Resolve maps a tenant-relative path to an absolute path guaranteed to
// be the tenant root or one of its descendants.
//
// Existing targets are canonicalized and checked against the canonical
// root. Non-existent targets cannot be canonicalized, so the nearest
// existing ancestor is checked instead and the joined candidate is
// returned unchanged; this lets create and write operations target
// paths that do not exist yet without weakening containment.
func (s *Sandbox) Resolve(tenantID, rel string) (string, error) {
	canonRoot, err := s.CanonicalRoot(tenantID)
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(rel)
	name = strings.TrimLeft(name, "/\\")

	// Rejected before any filesystem access, independent of the
	// canonicalization check below.
	if strings.Contains(name, "..") {
		return "", permissionDenied("resolve", rel)
	}

	candidate := filepath.Join(canonRoot, filepath.FromSlash(name))

	if _, lerr := os.Lstat(candidate); lerr == nil {
		canon, cerr := filepath.EvalSymlinks(candidate)
		if cerr == nil {
			if !contains(canonRoot, canon) {
				return "", permissionDenied("resolve", rel)
			}
			return canon, nil
		}
		if !os.IsNotExist(cerr) {
			return "", internal("resolve", rel, cerr)
		}
		// Dangling symlink: fall through to the ancestor check.
	} else if !os.IsNotExist(lerr) {
		return "", internal("resolve", rel, lerr)
	}

	ancestor := filepath.Dir(candidate)
	for {
		if _, aerr := os.Stat(ancestor); aerr == nil {
			break
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	canonAncestor, aerr := filepath.EvalSymlinks(ancestor)
	if aerr != nil {
		return "", internal("resolve", rel, aerr)
	}
	if !contains(canonRoot, canonAncestor) {
		return "", permissionDenied("resolve", rel)
	}
	return candidate, nil
}

// Rel converts an absolute path inside the tenant root back to the
// wire representation: forward slashes, no leading slash, "" for the
// root itself.
func (s *Sandbox) Rel(canonRoot, abs string) string {
	rel, err := filepath.Rel(canonRoot, abs)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// contains reports whether path equals root or is a descendant of it,
// compared component-wise so /home/u1 never matches /home/u12.
func contains(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(os.PathSeparator))
}
