package diggs

import (
	"fmt"
	"path/filepath"
)

// DefaultVersion is the tag assumed for diggsml.org identifiers that do not
// name the development line.
const DefaultVersion = "2.6"

// SchemaVersion ties a DIGGS namespace to the root schema that validates it.
type SchemaVersion struct {
	Namespace string
	Tag       string
	// RootSchema is the root schema file, relative to the schema directory.
	RootSchema string
}

// IsDev reports whether the entry is the development schema line.
func (v SchemaVersion) IsDev() bool {
	return v.Tag == "dev"
}

// BaseDir returns the directory holding this version's schema tree.
func (v SchemaVersion) BaseDir(schemaDir string) string {
	if v.IsDev() {
		return filepath.Join(schemaDir, "schema-dev")
	}
	return filepath.Join(schemaDir, "schemas", v.Tag)
}

// RootSchemaPath returns the root schema file under schemaDir.
func (v SchemaVersion) RootSchemaPath(schemaDir string) string {
	return filepath.Join(schemaDir, filepath.FromSlash(v.RootSchema))
}

var registry = []SchemaVersion{
	{Namespace: "http://diggsml.org/schema-dev", Tag: "dev", RootSchema: "schema-dev/Diggs.xsd"},
	{Namespace: "http://diggsml.org/schemas/2.6", Tag: "2.6", RootSchema: "schemas/2.6/Diggs.xsd"},
	{Namespace: "http://diggsml.org/schemas/2.5.a", Tag: "2.5.a", RootSchema: "schemas/2.5.a/Complete.xsd"},
	{Namespace: "http://diggsml.org/schemas/2.1.a", Tag: "2.1.a", RootSchema: "schemas/2.1.a/Complete.xsd"},
	{Namespace: "http://diggsml.org/schemas/2.0.b", Tag: "2.0.b", RootSchema: "schemas/2.0.b/Complete.xsd"},
	{Namespace: "http://diggsml.org/schemas/2.0a", Tag: "2.0a", RootSchema: "schemas/2.0a/schemas/Complete.xsd"},
}

// Lookup returns the schema version registered for a document's default namespace.
// An empty or unknown namespace yields an *UnsupportedNamespaceError.
func Lookup(namespace string) (SchemaVersion, error) {
	for _, v := range registry {
		if v.Namespace == namespace {
			return v, nil
		}
	}
	return SchemaVersion{}, &UnsupportedNamespaceError{Namespace: namespace}
}

// LookupTag returns the schema version with the given tag, such as "2.6" or "dev".
func LookupTag(tag string) (SchemaVersion, error) {
	for _, v := range registry {
		if v.Tag == tag {
			return v, nil
		}
	}
	return SchemaVersion{}, fmt.Errorf("%w: no schema version tagged %q", ErrUnknownVersion, tag)
}

// Versions lists every supported schema version in registration order.
func Versions() []SchemaVersion {
	return append([]SchemaVersion(nil), registry...)
}
