package diggs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedNamespace is wrapped by UnsupportedNamespaceError.
	ErrUnsupportedNamespace = errors.New("unsupported schema namespace")
	// ErrUnknownVersion is returned when a version tag is not registered.
	ErrUnknownVersion = errors.New("unknown schema version")
	// ErrMalformedInput is returned when the document bytes are not well-formed XML.
	ErrMalformedInput = errors.New("malformed input")
	// ErrSchemaCompilation is returned when the selected root schema cannot be loaded or compiled.
	ErrSchemaCompilation = errors.New("schema compilation failed")
)

// UnsupportedNamespaceError is returned when a document's default namespace is
// not one of the registered DIGGS namespaces.
type UnsupportedNamespaceError struct {
	Namespace string
}

func (e *UnsupportedNamespaceError) Error() string {
	namespace := e.Namespace
	if namespace == "" {
		namespace = "None"
	}
	return fmt.Sprintf("Unsupported schema namespace: %s", namespace)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *UnsupportedNamespaceError) Unwrap() error {
	return ErrUnsupportedNamespace
}
