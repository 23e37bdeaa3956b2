package diggs

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// Option configures a Validator or a Resolver.
type Option func(*options)

type options struct {
	fs     afero.Fs
	logger *log.Logger
}

func newOptions(opts []Option) options {
	o := options{
		fs:     afero.NewOsFs(),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithFs sets the filesystem schemas are read from. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithLogger sets the logger resolution and validation traces are written to.
// Nothing is logged by default.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
