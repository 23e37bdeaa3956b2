package diggs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

const schemaDir = "/s"

const (
	devNamespace = "http://diggsml.org/schema-dev"
	v26Namespace = "http://diggsml.org/schemas/2.6"
)

const diggs26Schema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns="http://diggsml.org/schemas/2.6"
           targetNamespace="http://diggsml.org/schemas/2.6"
           elementFormDefault="qualified">
  <xs:include schemaLocation="http://diggsml.org/schemas/2.6/Kernel.xsd"/>
  <xs:include schemaLocation="core/Sample.xsd"/>
  <xs:element name="Diggs">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="name" type="xs:string"/>
        <xs:element name="sample" type="SampleType" minOccurs="0" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="id" type="IdType" use="required"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`

const sample26Schema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns="http://diggsml.org/schemas/2.6"
           targetNamespace="http://diggsml.org/schemas/2.6"
           elementFormDefault="qualified">
  <xs:include schemaLocation="http://diggsml.org/schemas/2.6/Kernel.xsd"/>
  <xs:include schemaLocation="Depth.xsd"/>
  <xs:complexType name="SampleType">
    <xs:sequence>
      <xs:element name="depth" type="DepthType"/>
    </xs:sequence>
  </xs:complexType>
</xs:schema>`

const depth26Schema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns="http://diggsml.org/schemas/2.6"
           targetNamespace="http://diggsml.org/schemas/2.6">
  <xs:simpleType name="DepthType">
    <xs:restriction base="xs:decimal">
      <xs:minInclusive value="0"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`

const devSchema = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns="http://diggsml.org/schema-dev"
           targetNamespace="http://diggsml.org/schema-dev"
           elementFormDefault="qualified">
  <xs:include schemaLocation="http://diggsml.org/schema-dev/Kernel.xsd"/>
  <xs:element name="Diggs">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="name" type="xs:string" minOccurs="0"/>
      </xs:sequence>
      <xs:attribute name="id" type="IdType"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`

func kernelSchema(namespace string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns="%[1]s"
           targetNamespace="%[1]s">
  <xs:simpleType name="IdType">
    <xs:restriction base="xs:string">
      <xs:pattern value="[A-Za-z_][\w.-]*"/>
    </xs:restriction>
  </xs:simpleType>
</xs:schema>`, namespace)
}

// completeSchema is the root schema of the older, single-file versions.
func completeSchema(namespace string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns="%[1]s"
           targetNamespace="%[1]s"
           elementFormDefault="qualified">
  <xs:element name="Diggs">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="name" type="xs:string" minOccurs="0"/>
      </xs:sequence>
      <xs:attribute name="id" type="xs:ID"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`, namespace)
}

// provisionedTree returns an in-memory schema directory holding a root schema
// for every registered version.
func provisionedTree(t *testing.T) afero.Fs {
	t.Helper()

	files := map[string]string{
		"schema-dev/Diggs.xsd":              devSchema,
		"schema-dev/Kernel.xsd":             kernelSchema(devNamespace),
		"schemas/2.6/Diggs.xsd":             diggs26Schema,
		"schemas/2.6/Kernel.xsd":            kernelSchema(v26Namespace),
		"schemas/2.6/core/Sample.xsd":       sample26Schema,
		"schemas/2.6/measurement/Depth.xsd": depth26Schema,
		"schemas/2.5.a/Complete.xsd":        completeSchema("http://diggsml.org/schemas/2.5.a"),
		"schemas/2.1.a/Complete.xsd":        completeSchema("http://diggsml.org/schemas/2.1.a"),
		"schemas/2.0.b/Complete.xsd":        completeSchema("http://diggsml.org/schemas/2.0.b"),
		"schemas/2.0a/schemas/Complete.xsd": completeSchema("http://diggsml.org/schemas/2.0a"),
	}

	fs := afero.NewMemMapFs()
	for name, content := range files {
		writeFile(t, fs, filepath.Join(schemaDir, filepath.FromSlash(name)), content)
	}
	return fs
}

func writeFile(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

var errBroken = errors.New("broken file")

// countingFs counts the files opened through it. Opening a broken file fails
// even though Stat reports it.
type countingFs struct {
	afero.Fs

	mu     sync.Mutex
	opens  map[string]int
	broken map[string]bool
	panics bool
}

func newCountingFs(fs afero.Fs) *countingFs {
	return &countingFs{Fs: fs, opens: make(map[string]int), broken: make(map[string]bool)}
}

func (f *countingFs) Open(name string) (afero.File, error) {
	f.mu.Lock()
	f.opens[name]++
	broken, panics := f.broken[name], f.panics
	f.mu.Unlock()

	if panics {
		panic("open " + name)
	}
	if broken {
		return nil, &os.PathError{Op: "open", Path: name, Err: errBroken}
	}
	return f.Fs.Open(name)
}

func (f *countingFs) openCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens[name]
}
