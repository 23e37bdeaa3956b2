package xmlparser

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveLocation(t *testing.T) {
	tests := []struct {
		name     string
		baseDir  string
		location string
		want     string
	}{
		{name: "Relative file", baseDir: "/schemas/2.6", location: "Kernel.xsd", want: "/schemas/2.6/Kernel.xsd"},
		{name: "Parent directory", baseDir: "/schemas/2.6/core", location: "../gml/gml.xsd", want: "/schemas/2.6/gml/gml.xsd"},
		{name: "Absolute path unchanged", baseDir: "/schemas", location: "/other/a.xsd", want: "/other/a.xsd"},
		{name: "URL unchanged", baseDir: "/schemas", location: "http://diggsml.org/schemas/2.6/Diggs.xsd", want: "http://diggsml.org/schemas/2.6/Diggs.xsd"},
		{name: "No base", baseDir: "", location: "Kernel.xsd", want: "Kernel.xsd"},
		{name: "URL base", baseDir: "http://diggsml.org/schemas/2.6/", location: "Kernel.xsd", want: "http://diggsml.org/schemas/2.6/Kernel.xsd"},
		{name: "URL base with parent", baseDir: "http://diggsml.org/schemas/2.6/core/", location: "../Kernel.xsd", want: "http://diggsml.org/schemas/2.6/Kernel.xsd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveLocation(tt.baseDir, tt.location); got != tt.want {
				t.Errorf("ResolveLocation(%q, %q) = %q, want %q", tt.baseDir, tt.location, got, tt.want)
			}
		})
	}
}

func TestLocationDir(t *testing.T) {
	tests := []struct{ systemID, want string }{
		{"/schemas/2.6/Diggs.xsd", "/schemas/2.6"},
		{"http://diggsml.org/schemas/2.6/Diggs.xsd", "http://diggsml.org/schemas/2.6/"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := locationDir(tt.systemID); got != tt.want {
			t.Errorf("locationDir(%q) = %q, want %q", tt.systemID, got, tt.want)
		}
	}
}

func TestFileResolver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Kernel.xsd")
	if err := os.WriteFile(path, []byte("<xs:schema/>"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	var resolver FileResolver

	entity, err := resolver.Resolve(ResolveRequest{SystemID: path})
	if err != nil || entity == nil {
		t.Fatalf("Expected local file to resolve, got %v, %v", entity, err)
	}
	if entity.SystemID != path || string(entity.Content) != "<xs:schema/>" {
		t.Errorf("Unexpected entity: %+v", entity)
	}

	entity, err = resolver.Resolve(ResolveRequest{SystemID: "file://" + filepath.ToSlash(path)})
	if err != nil || entity == nil {
		t.Errorf("Expected file URL to resolve, got %v, %v", entity, err)
	}

	for _, location := range []string{filepath.Join(dir, "missing.xsd"), "http://diggsml.org/schemas/2.6/Diggs.xsd"} {
		entity, err := resolver.Resolve(ResolveRequest{SystemID: location})
		if err != nil || entity != nil {
			t.Errorf("Expected %s to be unresolved without error, got %v, %v", location, entity, err)
		}
	}
}

func TestResolveKindString(t *testing.T) {
	for kind, want := range map[ResolveKind]string{
		ResolveInclude: "include",
		ResolveImport:  "import",
		ResolveEntity:  "entity",
	} {
		if got := kind.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
