package diggs

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/moolekkari/diggs-validator/xmlparser"
)

// DefaultSchemaDir is where the DIGGS schema trees are looked up when no
// directory is configured.
const DefaultSchemaDir = "/home/streamlit/schema_backup"

// Result is the outcome of validating one document.
type Result struct {
	Valid bool `json:"valid" yaml:"valid"`
	// Messages holds the success message, one entry per diagnostic, or a
	// single "Validation error: ..." entry when validation could not run.
	Messages []string `json:"messages" yaml:"messages"`
	// SchemaPath is the root schema used. It is empty when validation failed
	// before the schema was compiled.
	SchemaPath string `json:"schema_path" yaml:"schema_path"`
	// Version is the detected DIGGS version tag.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Resolved lists the file names of the schemas resolved locally.
	Resolved []string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
}

// Validator validates DIGGS documents against the schema version their root
// element declares. It holds no per-call state and is safe for concurrent use.
type Validator struct {
	schemaDir string
	fs        afero.Fs
	logger    *log.Logger
}

// New creates a Validator reading schemas from schemaDir, which is created
// when it does not exist yet. An empty schemaDir selects DefaultSchemaDir.
func New(schemaDir string, opts ...Option) (*Validator, error) {
	o := newOptions(opts)
	if schemaDir == "" {
		schemaDir = DefaultSchemaDir
	}

	exists, err := afero.DirExists(o.fs, schemaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to check schema directory '%s': %w", schemaDir, err)
	}
	if !exists {
		if err := o.fs.MkdirAll(schemaDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create schema directory '%s': %w", schemaDir, err)
		}
		o.logger.Info("created schema directory", "dir", schemaDir)
	}

	return &Validator{schemaDir: schemaDir, fs: o.fs, logger: o.logger}, nil
}

// SchemaDir returns the directory schemas are read from.
func (v *Validator) SchemaDir() string {
	return v.schemaDir
}

// SchemaPath returns the root schema that would validate raw.
func (v *Validator) SchemaPath(raw []byte) (string, error) {
	version, err := v.detect(raw)
	if err != nil {
		return "", err
	}
	return version.RootSchemaPath(v.schemaDir), nil
}

// Validate validates raw against the DIGGS schema selected by its default
// namespace. It never returns an error: every failure is reported as a
// single message in an invalid Result.
func (v *Validator) Validate(raw []byte) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = v.failure(fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err := v.validate(raw)
	if err != nil {
		return v.failure(err)
	}
	return result
}

func (v *Validator) validate(raw []byte) (Result, error) {
	version, err := v.detect(raw)
	if err != nil {
		return Result{}, err
	}
	schemaPath := version.RootSchemaPath(v.schemaDir)

	rctx := NewResolutionContext(v.schemaDir, version)
	v.logger.Debug("determined schema version", "version", version.Tag)
	v.logger.Debug("schema base path", "path", rctx.BaseDir)
	resolver := newResolver(rctx, options{fs: v.fs, logger: v.logger})

	doc, err := xmlparser.Parse(raw, xmlparser.WithResolver(resolver))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	schema, err := v.compile(schemaPath, resolver)
	if err != nil {
		return Result{}, err
	}

	result := Result{SchemaPath: schemaPath, Version: version.Tag}
	diagnostics := schema.Diagnostics(doc)
	result.Resolved = resolver.Resolved()

	if len(diagnostics) == 0 {
		result.Valid = true
		result.Messages = []string{fmt.Sprintf("XML file is valid according to DIGGS %s schema!", version.Tag)}
		v.logger.Info("XML validation successful", "version", version.Tag)
		return result, nil
	}

	result.Messages = Normalize(diagnostics)
	for _, message := range result.Messages {
		v.logger.Warn("validation error", "msg", message)
	}
	return result, nil
}

// detect selects the schema version from the document's default namespace.
func (v *Validator) detect(raw []byte) (SchemaVersion, error) {
	version, err := v.lookupNamespace(raw)
	if err != nil {
		v.logger.Error("could not determine schema version from XML", "err", err)
		return SchemaVersion{}, fmt.Errorf("Could not determine schema version from XML: %w", err)
	}
	v.logger.Info("determined schema path", "path", version.RootSchemaPath(v.schemaDir))
	return version, nil
}

func (v *Validator) lookupNamespace(raw []byte) (SchemaVersion, error) {
	doc, err := xmlparser.Parse(raw, xmlparser.WithResolver(xmlparser.ResolverFunc(emptyEntity)))
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	version, err := Lookup(doc.DefaultNamespace())
	if err != nil {
		v.logger.Warn("unsupported schema namespace", "namespace", doc.DefaultNamespace())
		return SchemaVersion{}, err
	}
	return version, nil
}

// compile reads the root schema and compiles it, loading every include and
// import through resolver.
func (v *Validator) compile(schemaPath string, resolver *Resolver) (*xmlparser.Schema, error) {
	content, err := afero.ReadFile(v.fs, schemaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: root schema '%s' not found", ErrSchemaCompilation, schemaPath)
		}
		return nil, fmt.Errorf("%w: failed to read root schema '%s': %w", ErrSchemaCompilation, schemaPath, err)
	}

	schema, err := xmlparser.ParseXSD(content, xmlparser.WithSystemID(schemaPath), xmlparser.WithResolver(resolver))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaCompilation, err)
	}
	return schema, nil
}

func (v *Validator) failure(err error) Result {
	message := "Validation error: " + err.Error()
	v.logger.Error(message)
	return Result{Messages: []string{message}}
}

// emptyEntity expands every external entity to nothing. Namespace detection
// only needs the root element.
func emptyEntity(req xmlparser.ResolveRequest) (*xmlparser.Entity, error) {
	return &xmlparser.Entity{SystemID: req.SystemID}, nil
}
