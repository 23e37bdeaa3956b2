package xmlparser

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// ValidationError aggregates all validation errors found during validation.
type ValidationError struct {
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d validation errors found:\n - %s",
		len(e.Diagnostics), strings.Join(e.Errors(), "\n - "))
}

// Errors returns the diagnostic messages without positions.
func (e *ValidationError) Errors() []string {
	messages := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		messages[i] = d.Message
	}
	return messages
}

// Validate checks if the XML document conforms to the schema.
// Returns *ValidationError if validation fails, nil if valid.
func (s *Schema) Validate(doc *Document) error {
	if diagnostics := s.Diagnostics(doc); len(diagnostics) > 0 {
		return &ValidationError{Diagnostics: diagnostics}
	}
	return nil
}

// Diagnostics validates the document and returns every problem found, in the
// order it was found. References the schema could not resolve come first.
func (s *Schema) Diagnostics(doc *Document) []Diagnostic {
	diagnostics := append([]Diagnostic(nil), s.Unresolved...)

	if doc == nil || doc.Root == nil {
		return append(diagnostics, Diagnostic{Message: "XML document is empty"})
	}

	rootDef := s.globalElement(doc.Root.Name)
	if rootDef == nil {
		return append(diagnostics, diag(doc.Root,
			"root element <%s> is not defined in the schema", doc.Root.Name.Local))
	}

	v := &validation{Schema: s, ids: make(map[string]*Node)}
	diagnostics = append(diagnostics, v.validateElement(doc.Root, rootDef)...)
	return append(diagnostics, v.danglingReferences()...)
}

func diag(node *Node, format string, args ...any) Diagnostic {
	return Diagnostic{Line: node.Line, Column: node.Column, Message: fmt.Sprintf(format, args...)}
}

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// validation is the state of one Diagnostics run.
type validation struct {
	*Schema

	ids    map[string]*Node
	idrefs []idref
}

type idref struct {
	node  *Node
	value string
}

// elementType is what an element's declaration, or its xsi:type, resolved to.
// Exactly one of complex, simple and builtin is set, or none for xs:anyType.
type elementType struct {
	complex *ComplexType
	simple  *SimpleType
	builtin string
	name    string
}

func (t elementType) isAnyType() bool {
	return t.complex == nil && t.simple == nil && (t.builtin == "" || t.builtin == anyTypeName)
}

func (t elementType) value() *simpleValue {
	if t.simple != nil && t.name == "" {
		return &simpleValue{inline: t.simple}
	}
	if t.builtin != "" {
		return &simpleValue{name: t.builtin}
	}
	return &simpleValue{name: t.name}
}

// validateElement validates a node and its subtree against decl.
func (v *validation) validateElement(node *Node, decl *Element) []Diagnostic {
	decl = v.resolveRef(decl)
	if decl.Ref != "" {
		return []Diagnostic{diag(node, "element declaration '%s' not found in schema", decl.Ref)}
	}

	var diagnostics []Diagnostic
	if decl.Abstract {
		diagnostics = append(diagnostics, diag(node,
			"element <%s> is abstract and must be replaced by a member of its substitution group", node.Name.Local))
	}

	typ, err := v.declaredType(decl)
	if err != nil {
		return append(diagnostics, diag(node, "in element <%s>: %v", node.Name.Local, err))
	}
	if override, ok := node.Attr(xsiNamespace, "type"); ok {
		if typ, err = v.instanceType(node, override); err != nil {
			return append(diagnostics, diag(node, "%v", err))
		}
	}

	if nilled, ok := node.Attr(xsiNamespace, "nil"); ok && (nilled == "true" || nilled == "1") {
		return append(diagnostics, v.validateNil(node, decl, typ)...)
	}

	switch {
	case typ.isAnyType():
		diagnostics = append(diagnostics, v.validateAnyContent(node)...)
	case typ.complex != nil:
		diagnostics = append(diagnostics, v.validateComplexType(node, typ.complex, decl)...)
	default:
		diagnostics = append(diagnostics, v.validateSimpleElement(node, decl, typ)...)
	}
	return diagnostics
}

// declaredType resolves the type an element declaration gives its instances.
// A declaration without a type takes the type of its substitution group head.
func (v *validation) declaredType(decl *Element) (elementType, error) {
	for depth := 0; depth <= maxDerivationDepth; depth++ {
		switch {
		case decl.ComplexType != nil:
			return elementType{complex: decl.ComplexType}, nil
		case decl.SimpleType != nil:
			return elementType{simple: decl.SimpleType}, nil
		case decl.Type != "":
			return v.namedType(decl.Type)
		case decl.SubstitutionGroup != "":
			head := v.lookupElement(decl.SubstitutionGroup)
			if head == nil {
				return elementType{}, fmt.Errorf("substitution group head '%s' not found in schema", decl.SubstitutionGroup)
			}
			decl = head
		default:
			return elementType{builtin: anyTypeName}, nil
		}
	}
	return elementType{}, fmt.Errorf("substitution groups are circular")
}

func (v *validation) namedType(name string) (elementType, error) {
	if builtin := v.builtinTypeName(name); builtin != "" {
		if builtin != anyTypeName && !isBuiltinType(builtin) {
			return elementType{}, fmt.Errorf("type definition '%s' not found in schema", name)
		}
		return elementType{builtin: builtin, name: builtin}, nil
	}
	if ct := v.lookupComplexType(name); ct != nil {
		return elementType{complex: ct, name: name}, nil
	}
	if st := v.lookupSimpleType(name); st != nil {
		return elementType{simple: st, name: name}, nil
	}
	return elementType{}, fmt.Errorf("type definition '%s' not found in schema", name)
}

// instanceType resolves an xsi:type attribute against the namespaces in scope at node.
func (v *validation) instanceType(node *Node, qname string) (elementType, error) {
	qname = strings.TrimSpace(qname)
	prefix, local, found := strings.Cut(qname, ":")
	if !found {
		prefix, local = "", qname
	}
	namespace, _ := node.LookupPrefix(prefix)

	complexType, simpleType, builtin := v.typeByQName(namespace, local)
	switch {
	case complexType != nil:
		return elementType{complex: complexType, name: qname}, nil
	case simpleType != nil:
		return elementType{simple: simpleType, name: qname}, nil
	case builtin != "" && (builtin == anyTypeName || isBuiltinType(builtin)):
		return elementType{builtin: builtin, name: builtin}, nil
	}
	return elementType{}, fmt.Errorf("xsi:type '%s' of element <%s> is not defined in the schema", qname, node.Name.Local)
}

func (v *validation) validateNil(node *Node, decl *Element, typ elementType) []Diagnostic {
	if !decl.Nillable {
		return []Diagnostic{diag(node, "element <%s> is not nillable", node.Name.Local)}
	}
	var diagnostics []Diagnostic
	if len(node.Children) > 0 || strings.TrimSpace(node.Content) != "" {
		diagnostics = append(diagnostics, diag(node, "element <%s> is nil but has content", node.Name.Local))
	}
	if typ.complex != nil {
		if ct, err := v.contentTypeOf(typ.complex); err == nil {
			diagnostics = append(diagnostics, v.validateAttributes(node, ct.attributes, ct.wildcard)...)
		}
	}
	return diagnostics
}

// validateComplexType validates attributes and content of an element with a complex type.
func (v *validation) validateComplexType(node *Node, complexType *ComplexType, decl *Element) []Diagnostic {
	if complexType.Abstract {
		return []Diagnostic{diag(node, "type of element <%s> is abstract; use xsi:type to name a concrete type", node.Name.Local)}
	}
	ct, err := v.contentTypeOf(complexType)
	if err != nil {
		return []Diagnostic{diag(node, "in element <%s>: %v", node.Name.Local, err)}
	}

	diagnostics := v.validateAttributes(node, ct.attributes, ct.wildcard)

	if ct.value != nil {
		if len(node.Children) > 0 {
			return append(diagnostics, diag(node, "element <%s> cannot have child elements", node.Name.Local))
		}
		return append(diagnostics, v.validateValue(node, decl, ct.value)...)
	}

	switch {
	case ct.model != nil:
		diagnostics = append(diagnostics, v.matchContent(node, ct.model)...)
	case len(node.Children) > 0:
		diagnostics = append(diagnostics, diag(node, "element <%s> should be empty but has children", node.Name.Local))
	}

	if !ct.mixed && strings.TrimSpace(node.Content) != "" {
		diagnostics = append(diagnostics, diag(node, "element <%s> has element-only content but contains text", node.Name.Local))
	}

	return diagnostics
}

// validateSimpleElement validates an element whose type is simple.
func (v *validation) validateSimpleElement(node *Node, decl *Element, typ elementType) []Diagnostic {
	var diagnostics []Diagnostic
	for _, attr := range node.Attrs {
		if !v.isNamespaceDeclaration(attr) && attr.Name.Space != xsiNamespace {
			diagnostics = append(diagnostics, diag(node, "unexpected attribute '%s' in element <%s>",
				attr.Name.Local, node.Name.Local))
		}
	}
	if len(node.Children) > 0 {
		return append(diagnostics, diag(node, "element <%s> cannot have child elements", node.Name.Local))
	}
	return append(diagnostics, v.validateValue(node, decl, typ.value())...)
}

// validateValue checks the text of a simple-valued element, applying the
// declaration's default and fixed values.
func (v *validation) validateValue(node *Node, decl *Element, sv *simpleValue) []Diagnostic {
	value := node.Content
	if value == "" {
		switch {
		case decl.Default != "":
			value = decl.Default
		case decl.Fixed != "":
			value = decl.Fixed
		}
	}

	var diagnostics []Diagnostic
	normalized := v.normalizeValue(value, sv)
	if decl.Fixed != "" && normalized != v.normalizeValue(decl.Fixed, sv) {
		diagnostics = append(diagnostics, diag(node, "element <%s> has fixed value '%s', but got '%s'",
			node.Name.Local, decl.Fixed, normalized))
	}

	problems := v.checkValue(value, sv)
	for _, problem := range problems {
		diagnostics = append(diagnostics, diag(node, "in element <%s>: %s", node.Name.Local, problem))
	}
	if len(problems) == 0 {
		diagnostics = append(diagnostics, v.trackIdentity(node, normalized, v.primitiveOf(sv))...)
	}
	return diagnostics
}

// validateAnyContent validates the subtree of an element of type xs:anyType.
// Children with a global declaration are validated against it.
func (v *validation) validateAnyContent(node *Node) []Diagnostic {
	var diagnostics []Diagnostic
	for _, child := range node.Children {
		if decl := v.globalElement(child.Name); decl != nil {
			diagnostics = append(diagnostics, v.validateElement(child, decl)...)
			continue
		}
		diagnostics = append(diagnostics, v.validateAnyContent(child)...)
	}
	return diagnostics
}

// validateWildcardElement validates an element matched by xs:any according to
// the wildcard's processContents.
func (v *validation) validateWildcardElement(node *Node, w *Any) []Diagnostic {
	switch strings.TrimSpace(w.ProcessContents) {
	case "skip":
		return nil
	case "lax":
		if decl := v.globalElement(node.Name); decl != nil {
			return v.validateElement(node, decl)
		}
		return v.validateAnyContent(node)
	default:
		if decl := v.globalElement(node.Name); decl != nil {
			return v.validateElement(node, decl)
		}
		return []Diagnostic{diag(node, "no declaration found for element <%s> matched by strict wildcard", node.Name.Local)}
	}
}

// validateAttributes validates XML attributes against the attribute uses of a type.
func (v *validation) validateAttributes(node *Node, uses []Attribute, wildcard *AnyAttribute) []Diagnostic {
	var diagnostics []Diagnostic

	for _, use := range uses {
		name := localName(use.Name)
		value, present := v.attributeValue(node, use.Name)

		if use.Use == "required" && !present {
			diagnostics = append(diagnostics, diag(node, "required attribute '%s' is missing from element <%s>",
				name, node.Name.Local))
			continue
		}
		if !present {
			continue
		}
		if use.Use == "prohibited" {
			diagnostics = append(diagnostics, diag(node, "attribute '%s' is prohibited in element <%s>",
				name, node.Name.Local))
			continue
		}

		sv := &simpleValue{name: use.Type, inline: use.SimpleType}
		if use.Type == "" && use.SimpleType == nil {
			sv.name = "xs:anySimpleType"
		}
		normalized := v.normalizeValue(value, sv)
		if use.Fixed != "" && normalized != v.normalizeValue(use.Fixed, sv) {
			diagnostics = append(diagnostics, diag(node, "attribute '%s' in element <%s> has fixed value '%s', but got '%s'",
				name, node.Name.Local, use.Fixed, value))
		}

		problems := v.checkValue(value, sv)
		for _, problem := range problems {
			diagnostics = append(diagnostics, diag(node, "attribute '%s' in element <%s>: %s",
				name, node.Name.Local, problem))
		}
		if len(problems) == 0 {
			diagnostics = append(diagnostics, v.trackIdentity(node, normalized, v.primitiveOf(sv))...)
		}
	}

	// Attributes not declared by the type are rejected
	for _, attr := range node.Attrs {
		if v.isNamespaceDeclaration(attr) || attr.Name.Space == xsiNamespace {
			continue
		}
		if v.declaresAttribute(uses, attr) {
			continue
		}
		if wildcard != nil && wildcardAllows(wildcard.Namespace, wildcard.TargetNamespace, attr.Name.Space) {
			continue
		}
		if attr.Name.Space == xmlNamespace && wildcard == nil {
			// xml:lang and friends are allowed wherever the schema does not say otherwise.
			continue
		}
		diagnostics = append(diagnostics, diag(node, "unexpected attribute '%s' in element <%s>",
			attr.Name.Local, node.Name.Local))
	}

	return diagnostics
}

// attributeValue finds the instance attribute an attribute use names.
func (v *validation) attributeValue(node *Node, name string) (string, bool) {
	for _, attr := range node.Attrs {
		if v.attributeMatches(attr, name) {
			return attr.Value, true
		}
	}
	return "", false
}

func (v *validation) declaresAttribute(uses []Attribute, attr xml.Attr) bool {
	for _, use := range uses {
		if v.attributeMatches(attr, use.Name) {
			return true
		}
	}
	return false
}

// attributeMatches compares an instance attribute to a declared name. A
// prefixed declaration (from a reference) also compares the namespace.
func (v *validation) attributeMatches(attr xml.Attr, name string) bool {
	if !strings.Contains(name, ":") {
		return attr.Name.Local == name && attr.Name.Space == ""
	}
	prefix, local, _ := strings.Cut(name, ":")
	if attr.Name.Local != local {
		return false
	}
	if prefix == "xml" {
		return attr.Name.Space == xmlNamespace || attr.Name.Space == "xml"
	}
	return attr.Name.Space == v.ResolveQName(name).Namespace
}

// trackIdentity records xs:ID and xs:IDREF values for the document-wide checks.
func (v *validation) trackIdentity(node *Node, value, primitive string) []Diagnostic {
	switch primitive {
	case "xs:ID":
		if first, exists := v.ids[value]; exists {
			return []Diagnostic{diag(node, "duplicate ID '%s' in element <%s>, first used on line %d",
				value, node.Name.Local, first.Line)}
		}
		v.ids[value] = node
	case "xs:IDREF":
		v.idrefs = append(v.idrefs, idref{node: node, value: value})
	case "xs:IDREFS":
		for _, ref := range strings.Fields(value) {
			v.idrefs = append(v.idrefs, idref{node: node, value: ref})
		}
	}
	return nil
}

// danglingReferences reports IDREF values that name no ID in the document.
func (v *validation) danglingReferences() []Diagnostic {
	var diagnostics []Diagnostic
	for _, ref := range v.idrefs {
		if _, exists := v.ids[ref.value]; !exists {
			diagnostics = append(diagnostics, diag(ref.node, "IDREF '%s' in element <%s> does not match any ID in the document",
				ref.value, ref.node.Name.Local))
		}
	}
	return diagnostics
}

// isNamespaceDeclaration checks if an attribute is a namespace declaration.
func (s *Schema) isNamespaceDeclaration(attr xml.Attr) bool {
	return attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns")
}
