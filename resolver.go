package diggs

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/moolekkari/diggs-validator/xmlparser"
)

// canonicalDomain is the host DIGGS schemas use in their schemaLocation URLs.
const canonicalDomain = "diggsml.org"

// fallbackSubdirs are searched in order under the active base directory.
var fallbackSubdirs = []string{"", "core", "base", "infrastructure", "measurement", "project"}

// ResolutionContext is what a Resolver knows about the validation it serves.
type ResolutionContext struct {
	SchemaDir string
	Version   SchemaVersion
	// BaseDir is the active version's schema tree.
	BaseDir string
}

// NewResolutionContext derives the context for validating against version.
func NewResolutionContext(schemaDir string, version SchemaVersion) ResolutionContext {
	return ResolutionContext{
		SchemaDir: schemaDir,
		Version:   version,
		BaseDir:   version.BaseDir(schemaDir),
	}
}

// Resolver maps the schema references the engine encounters onto the local
// schema tree. It never fetches anything over the network.
//
// A Resolver belongs to a single validation call. Its cache is private and is
// discarded with it.
type Resolver struct {
	ctx    ResolutionContext
	fs     afero.Fs
	logger *log.Logger
	cache  *cache

	mu       sync.Mutex
	resolved map[string]struct{}
}

var _ xmlparser.Resolver = (*Resolver)(nil)

// NewResolver creates a Resolver with an empty cache.
func NewResolver(ctx ResolutionContext, opts ...Option) *Resolver {
	return newResolver(ctx, newOptions(opts))
}

func newResolver(ctx ResolutionContext, o options) *Resolver {
	return &Resolver{
		ctx:      ctx,
		fs:       o.fs,
		logger:   o.logger,
		cache:    newCache(),
		resolved: make(map[string]struct{}),
	}
}

// locator proposes a candidate file for a request. ok is false when the
// strategy does not apply or found nothing.
type locator struct {
	name   string
	locate func(req xmlparser.ResolveRequest) (path string, ok bool)
}

func (r *Resolver) locators() []locator {
	return []locator{
		{name: "canonical domain", locate: r.locateCanonical},
		{name: "relative include", locate: r.locateRelative},
		{name: "fallback search", locate: r.locateFallback},
	}
}

// Resolve implements xmlparser.Resolver. The cache is consulted first, then
// each strategy in order until one yields a readable file. A request no
// strategy can satisfy is reported as unresolved (nil, nil).
func (r *Resolver) Resolve(req xmlparser.ResolveRequest) (*xmlparser.Entity, error) {
	id := req.SystemID
	r.logger.Debug("attempting to resolve", "id", id, "referrer", req.Referrer, "kind", req.Kind)
	if req.PublicID != "" {
		r.logger.Debug("public id", "id", req.PublicID)
	}

	if entity, ok := r.cache.get(id); ok {
		r.logger.Debug("found in cache", "id", id)
		return entity, nil
	}

	for _, l := range r.locators() {
		candidate, ok := l.locate(req)
		if !ok {
			continue
		}
		content, err := afero.ReadFile(r.fs, candidate)
		if err != nil {
			r.logger.Debug("failed to read candidate", "strategy", l.name, "path", candidate, "err", err)
			continue
		}

		r.logger.Debug("found schema", "strategy", l.name, "path", candidate)
		entity := &xmlparser.Entity{SystemID: candidate, Content: content}
		r.cache.put(id, entity)
		r.record(candidate)
		return entity, nil
	}

	r.logger.Debug("failed to find schema", "id", id)
	return nil, nil
}

// locateCanonical maps diggsml.org identifiers straight into the version tree.
// Identifiers outside schema-dev always map to DefaultVersion, whichever
// version is being validated.
func (r *Resolver) locateCanonical(req xmlparser.ResolveRequest) (string, bool) {
	if !strings.Contains(req.SystemID, canonicalDomain) {
		return "", false
	}

	base := filepath.Join(r.ctx.SchemaDir, "schemas", DefaultVersion)
	if strings.Contains(req.SystemID, "schema-dev") {
		base = filepath.Join(r.ctx.SchemaDir, "schema-dev")
	}
	return r.existing(filepath.Join(base, baseName(req.SystemID)))
}

// locateRelative resolves a location against the directory of the referring document.
func (r *Resolver) locateRelative(req xmlparser.ResolveRequest) (string, bool) {
	if req.Referrer == "" || hasLocatorPrefix(req.SystemID) || hasNetworkPrefix(req.Referrer) {
		return "", false
	}

	location := filepath.FromSlash(req.SystemID)
	if !filepath.IsAbs(location) {
		dir := filepath.Dir(filepath.FromSlash(strings.TrimPrefix(req.Referrer, "file://")))
		r.logger.Debug("include context directory", "dir", dir)
		location = filepath.Join(dir, location)
	}
	r.logger.Debug("trying include path", "path", location)
	return r.existing(location)
}

// locateFallback searches the conventional subdirectories of the active schema
// tree for the identifier's file name.
func (r *Resolver) locateFallback(req xmlparser.ResolveRequest) (string, bool) {
	name := baseName(req.SystemID)
	for _, subdir := range fallbackSubdirs {
		if candidate, ok := r.existing(filepath.Join(r.ctx.BaseDir, subdir, name)); ok {
			return candidate, true
		}
	}
	return "", false
}

// existing returns p if it names a regular file.
func (r *Resolver) existing(p string) (string, bool) {
	info, err := r.fs.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}

func (r *Resolver) record(p string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[filepath.Base(p)] = struct{}{}
}

// Resolved returns the sorted file names of every schema resolved so far.
func (r *Resolver) Resolved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.resolved))
	for name := range r.resolved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Context returns the resolution context the Resolver was created with.
func (r *Resolver) Context() ResolutionContext {
	return r.ctx
}

// baseName returns the last path segment of an identifier. Query strings and
// fragments are kept.
func baseName(id string) string {
	return path.Base(filepath.ToSlash(id))
}

func hasNetworkPrefix(id string) bool {
	return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
}

func hasLocatorPrefix(id string) bool {
	return strings.HasPrefix(id, "file://") || hasNetworkPrefix(id)
}
