package xmlparser

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ResolveKind identifies why the parser needs an external resource.
type ResolveKind uint8

const (
	// ResolveInclude is an xs:include schemaLocation.
	ResolveInclude ResolveKind = iota
	// ResolveImport is an xs:import schemaLocation.
	ResolveImport
	// ResolveEntity is an external entity declared in a document's DOCTYPE.
	ResolveEntity
)

func (k ResolveKind) String() string {
	switch k {
	case ResolveInclude:
		return "include"
	case ResolveImport:
		return "import"
	case ResolveEntity:
		return "entity"
	default:
		return fmt.Sprintf("ResolveKind(%d)", uint8(k))
	}
}

// ResolveRequest describes one external reference encountered while parsing.
type ResolveRequest struct {
	// SystemID is the reference as the parser requests it. Relative locations are
	// already joined onto the referring document's location, the way libxml2 does
	// before handing them to a resolver.
	SystemID string
	// PublicID is the import namespace or the entity's public identifier.
	PublicID string
	// Referrer is the system ID of the document containing the reference.
	// It is empty when the referring document has no known location.
	Referrer string
	Kind     ResolveKind
}

// Entity is the resolved content of an external reference.
type Entity struct {
	// SystemID is where the content was actually found. Relative references
	// inside the content are resolved against it.
	SystemID string
	Content  []byte
}

// Resolver maps external references to content.
//
// A nil entity with a nil error means the reference could not be resolved;
// the parser records that as a diagnostic instead of failing. A non-nil error
// aborts parsing.
type Resolver interface {
	Resolve(req ResolveRequest) (*Entity, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(req ResolveRequest) (*Entity, error)

// Resolve calls f(req).
func (f ResolverFunc) Resolve(req ResolveRequest) (*Entity, error) {
	return f(req)
}

// FileResolver resolves references to local files. Network locations are never
// fetched and are reported as unresolved.
type FileResolver struct{}

// Resolve implements Resolver.
func (FileResolver) Resolve(req ResolveRequest) (*Entity, error) {
	location := req.SystemID
	if hasScheme(location) {
		if !strings.HasPrefix(location, "file://") {
			return nil, nil
		}
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid file URL '%s': %w", location, err)
		}
		location = filepath.FromSlash(u.Path)
	}

	content, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read '%s': %w", location, err)
	}
	return &Entity{SystemID: location, Content: content}, nil
}

// ResolveLocation joins a reference onto the directory of the referring document.
// References carrying a scheme or an absolute path are returned unchanged, as is
// everything when baseDir is empty.
func ResolveLocation(baseDir, location string) string {
	if location == "" || baseDir == "" || hasScheme(location) || filepath.IsAbs(location) {
		return location
	}
	if hasScheme(baseDir) {
		base, err := url.Parse(strings.TrimSuffix(baseDir, "/") + "/")
		if err != nil {
			return location
		}
		ref, err := url.Parse(location)
		if err != nil {
			return location
		}
		return base.ResolveReference(ref).String()
	}
	return filepath.Join(baseDir, location)
}

// locationDir returns the directory part of a system ID.
func locationDir(systemID string) string {
	if systemID == "" {
		return ""
	}
	if hasScheme(systemID) {
		if i := strings.LastIndex(systemID, "/"); i >= 0 {
			return systemID[:i+1]
		}
		return systemID
	}
	return filepath.Dir(systemID)
}

// hasScheme reports whether location starts with a URI scheme such as "http:".
// Single-letter schemes are treated as Windows drive letters.
func hasScheme(location string) bool {
	i := strings.Index(location, ":")
	if i < 2 {
		return false
	}
	for _, r := range location[:i] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}
