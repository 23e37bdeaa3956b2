package xmlparser

// Option configures Parse and ParseXSD.
type Option func(*config)

type config struct {
	resolver Resolver
	systemID string
	baseDir  string
}

func newConfig(opts []Option) config {
	cfg := config{resolver: FileResolver{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithResolver routes every include, import and external entity through r.
func WithResolver(r Resolver) Option {
	return func(c *config) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithSystemID records where the parsed bytes were loaded from. Relative
// references are resolved against its directory.
func WithSystemID(systemID string) Option {
	return func(c *config) {
		c.systemID = systemID
	}
}

// WithBaseDir sets the directory relative references are resolved against when
// the document has no system ID.
func WithBaseDir(dir string) Option {
	return func(c *config) {
		c.baseDir = dir
	}
}

// referenceDir is the directory references in the top-level document are joined onto.
func (c config) referenceDir() string {
	if c.systemID != "" {
		return locationDir(c.systemID)
	}
	return c.baseDir
}
