package xmlparser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

// ParseXSD parses an XSD schema from bytes and returns a Schema ready for validation.
// The returned schema includes lookup maps for efficient element and type resolution.
// Every xs:import and xs:include is loaded through the configured Resolver
// (FileResolver by default); each resolved document is merged once, so circular
// and repeated references are tolerated.
func ParseXSD(xsdBytes []byte, opts ...Option) (*Schema, error) {
	cfg := newConfig(opts)
	if cfg.systemID == "" && cfg.baseDir == "" {
		cfg.baseDir = "."
	}

	loader := &schemaLoader{
		resolver: cfg.resolver,
		loaded:   make(map[string]bool),
	}
	if cfg.systemID != "" {
		loader.loaded[cfg.systemID] = true
	}
	return loader.parse(xsdBytes, cfg.systemID, cfg.referenceDir())
}

// schemaLoader carries the state of one ParseXSD call.
type schemaLoader struct {
	resolver Resolver
	// loaded holds the system IDs already merged into the schema being built.
	loaded map[string]bool
}

// parse parses one schema document and everything it includes or imports.
func (l *schemaLoader) parse(xsdBytes []byte, systemID, baseDir string) (*Schema, error) {
	schema, err := parseBasicXSD(xsdBytes)
	if err != nil {
		return nil, err
	}
	schema.SystemID = systemID
	schema.stampWildcards()

	if err := l.processImportsAndIncludes(schema, baseDir); err != nil {
		return nil, fmt.Errorf("failed to process imports and includes: %w", err)
	}

	// Rebuild lookup maps after merging external schemas
	if err := schema.buildLookupMaps(); err != nil {
		return nil, fmt.Errorf("failed to rebuild lookup maps after import/include processing: %w", err)
	}

	return schema, nil
}

// parseBasicXSD parses an XSD schema without processing imports/includes.
func parseBasicXSD(xsdBytes []byte) (*Schema, error) {
	schema := &Schema{}
	decoder := xml.NewDecoder(bytes.NewReader(xsdBytes))
	decoder.CharsetReader = charset.NewReaderLabel

	if err := schema.extractNamespaces(xsdBytes); err != nil {
		return nil, fmt.Errorf("failed to extract namespaces: %w", err)
	}

	if err := decoder.Decode(schema); err != nil {
		return nil, fmt.Errorf("failed to decode XSD schema: %w", err)
	}

	if err := schema.buildLookupMaps(); err != nil {
		return nil, fmt.Errorf("failed to build schema lookup maps: %w", err)
	}

	return schema, nil
}

// buildLookupMaps creates internal maps for fast lookups during validation.
func (s *Schema) buildLookupMaps() error {
	s.ElementMap = make(map[string]*Element, len(s.Elements))
	s.ComplexTypeMap = make(map[string]*ComplexType, len(s.ComplexTypes))
	s.SimpleTypeMap = make(map[string]*SimpleType, len(s.SimpleTypes))
	s.GroupMap = make(map[string]*NamedGroup, len(s.Groups))
	s.AttributeGroupMap = make(map[string]*AttributeGroup, len(s.AttributeGroups))
	s.AttributeMap = make(map[string]*Attribute, len(s.Attributes))

	for i := range s.Elements {
		if err := register(s.ElementMap, "element", i, s.Elements[i].Name, &s.Elements[i]); err != nil {
			return err
		}
	}
	for i := range s.ComplexTypes {
		if err := register(s.ComplexTypeMap, "complexType", i, s.ComplexTypes[i].Name, &s.ComplexTypes[i]); err != nil {
			return err
		}
	}
	for i := range s.SimpleTypes {
		if err := register(s.SimpleTypeMap, "simpleType", i, s.SimpleTypes[i].Name, &s.SimpleTypes[i]); err != nil {
			return err
		}
	}
	for i := range s.Groups {
		if err := register(s.GroupMap, "group", i, s.Groups[i].Name, &s.Groups[i]); err != nil {
			return err
		}
	}
	for i := range s.AttributeGroups {
		if err := register(s.AttributeGroupMap, "attributeGroup", i, s.AttributeGroups[i].Name, &s.AttributeGroups[i]); err != nil {
			return err
		}
	}
	for i := range s.Attributes {
		if err := register(s.AttributeMap, "attribute", i, s.Attributes[i].Name, &s.Attributes[i]); err != nil {
			return err
		}
	}

	s.buildSubstitutionGroups()
	return nil
}

// register adds a global component to its lookup map.
func register[T any](m map[string]*T, kind string, index int, name string, component *T) error {
	if name == "" {
		return fmt.Errorf("schema %s at index %d is missing required 'name' attribute", kind, index)
	}
	if _, exists := m[name]; exists {
		return fmt.Errorf("duplicate %s definition: '%s'", kind, name)
	}
	m[name] = component
	return nil
}

// buildSubstitutionGroups links every substitution group head to its direct members.
func (s *Schema) buildSubstitutionGroups() {
	s.substitutes = make(map[*Element][]*Element)
	for i := range s.Elements {
		member := &s.Elements[i]
		if member.SubstitutionGroup == "" {
			continue
		}
		if head := s.lookupElement(member.SubstitutionGroup); head != nil && head != member {
			s.substitutes[head] = append(s.substitutes[head], member)
		}
	}
}

// stampWildcards records the declaring schema's target namespace on every
// wildcard, so ##targetNamespace and ##other keep their meaning after merging.
func (s *Schema) stampWildcards() {
	var group func(g *ModelGroup)
	var complexType func(ct *ComplexType)
	attrs := func(d *AttributeDecls) {
		if d.AnyAttribute != nil {
			d.AnyAttribute.TargetNamespace = s.TargetNamespace
		}
	}
	content := func(c *ContentModel) {
		for _, g := range []*ModelGroup{c.Sequence, c.Choice, c.All} {
			if g != nil {
				group(g)
			}
		}
		attrs(&c.AttributeDecls)
	}
	element := func(e *Element) {
		if e.ComplexType != nil {
			complexType(e.ComplexType)
		}
	}
	group = func(g *ModelGroup) {
		for _, p := range g.Particles {
			switch {
			case p.Any != nil:
				p.Any.TargetNamespace = s.TargetNamespace
			case p.Group != nil:
				group(p.Group)
			case p.Element != nil:
				element(p.Element)
			}
		}
	}
	complexType = func(ct *ComplexType) {
		content(&ct.ContentModel)
		for _, d := range []*Derivation{ct.complexDerivation(), ct.simpleDerivation()} {
			if d != nil {
				content(&d.ContentModel)
			}
		}
	}

	for i := range s.Elements {
		element(&s.Elements[i])
	}
	for i := range s.ComplexTypes {
		complexType(&s.ComplexTypes[i])
	}
	for i := range s.Groups {
		if g := s.Groups[i].Model(); g != nil {
			group(g)
		}
	}
	for i := range s.AttributeGroups {
		attrs(&s.AttributeGroups[i].AttributeDecls)
	}
}

// extractNamespaces parses namespace declarations from the schema root element.
func (s *Schema) extractNamespaces(xsdBytes []byte) error {
	s.Xmlns = make(map[string]string)

	decoder := xml.NewDecoder(bytes.NewReader(xsdBytes))
	decoder.CharsetReader = charset.NewReaderLabel
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}

		startElem, ok := token.(xml.StartElement)
		if !ok || startElem.Name.Local != "schema" {
			continue
		}
		for _, attr := range startElem.Attr {
			switch {
			case attr.Name.Space == "xmlns":
				s.Xmlns[attr.Name.Local] = attr.Value
			case attr.Name.Space == "" && attr.Name.Local == "xmlns":
				s.Xmlns[""] = attr.Value
			}
		}
		break // We only need the root schema element
	}

	// Ensure we have the standard XML Schema namespace
	if _, exists := s.Xmlns["xs"]; !exists {
		s.Xmlns["xs"] = XMLSchemaNamespace
	}

	return nil
}

// processImportsAndIncludes loads and merges all external schemas referenced by
// xs:include and xs:import.
func (l *schemaLoader) processImportsAndIncludes(s *Schema, baseDir string) error {
	// Process includes first (same namespace)
	for _, include := range s.Includes {
		if err := l.processInclude(s, include, baseDir); err != nil {
			return fmt.Errorf("failed to process include '%s': %w", include.SchemaLocation, err)
		}
	}

	// Process imports (different namespaces)
	for _, imp := range s.Imports {
		if err := l.processImport(s, imp, baseDir); err != nil {
			return fmt.Errorf("failed to process import '%s': %w", imp.SchemaLocation, err)
		}
	}

	return nil
}

// processInclude loads and merges an included schema (same namespace).
func (l *schemaLoader) processInclude(s *Schema, include Include, baseDir string) error {
	if include.SchemaLocation == "" {
		return fmt.Errorf("include element is missing schemaLocation attribute")
	}

	includedSchema, err := l.load(s, include.SchemaLocation, "", baseDir, ResolveInclude)
	if err != nil || includedSchema == nil {
		return err
	}

	s.absorb(includedSchema, "")
	s.mergeNamespaces(includedSchema)

	return nil
}

// processImport loads and merges an imported schema (different namespace).
func (l *schemaLoader) processImport(s *Schema, imp Import, baseDir string) error {
	if imp.SchemaLocation == "" {
		// Import without schemaLocation is allowed for built-in namespaces
		return nil
	}

	importedSchema, err := l.load(s, imp.SchemaLocation, imp.Namespace, baseDir, ResolveImport)
	if err != nil || importedSchema == nil {
		return err
	}

	if imp.Namespace != "" && importedSchema.TargetNamespace != imp.Namespace {
		return fmt.Errorf("imported schema target namespace '%s' does not match expected namespace '%s'",
			importedSchema.TargetNamespace, imp.Namespace)
	}

	// Imported components are keyed under the importing schema's prefix for their namespace.
	s.absorb(importedSchema, s.getNamespacePrefix(imp.Namespace))
	s.mergeNamespaces(importedSchema)

	return nil
}

// load resolves a schemaLocation and parses the document it points to.
// It returns a nil schema without error when the reference is unresolved or the
// resolved document has already been merged.
func (l *schemaLoader) load(parent *Schema, location, namespace, baseDir string, kind ResolveKind) (*Schema, error) {
	req := ResolveRequest{
		SystemID: ResolveLocation(baseDir, location),
		PublicID: namespace,
		Referrer: parent.SystemID,
		Kind:     kind,
	}

	entity, err := l.resolver.Resolve(req)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		parent.Unresolved = append(parent.Unresolved, Diagnostic{
			Message: fmt.Sprintf("failed to load the document '%s' for %s: no local schema found", req.SystemID, kind),
		})
		return nil, nil
	}

	systemID := entity.SystemID
	if systemID == "" {
		systemID = req.SystemID
	}
	if l.loaded[systemID] {
		return nil, nil
	}
	l.loaded[systemID] = true

	child, err := l.parse(entity.Content, systemID, locationDir(systemID))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %sd schema '%s': %w", kind, systemID, err)
	}
	parent.Unresolved = append(parent.Unresolved, child.Unresolved...)
	return child, nil
}

// getNamespacePrefix returns the prefix used for a given namespace. When several
// prefixes are bound to it the first in lexical order wins.
func (s *Schema) getNamespacePrefix(namespace string) string {
	found := ""
	for prefix, ns := range s.Xmlns {
		if ns == namespace && prefix != "" && (found == "" || prefix < found) {
			found = prefix
		}
	}
	return found
}

// mergeNamespaces adopts prefix declarations of a merged schema that the
// receiving schema does not declare itself.
func (s *Schema) mergeNamespaces(other *Schema) {
	for prefix, ns := range other.Xmlns {
		if prefix == "" {
			continue
		}
		if _, exists := s.Xmlns[prefix]; !exists {
			s.Xmlns[prefix] = ns
		}
	}
}

// absorb appends the global components of another schema document. A non-empty
// prefix is prepended to every component name.
func (s *Schema) absorb(other *Schema, prefix string) {
	qualify := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + ":" + name
	}

	for _, element := range other.Elements {
		element.Name = qualify(element.Name)
		s.Elements = append(s.Elements, element)
	}
	for _, attribute := range other.Attributes {
		attribute.Name = qualify(attribute.Name)
		s.Attributes = append(s.Attributes, attribute)
	}
	for _, complexType := range other.ComplexTypes {
		complexType.Name = qualify(complexType.Name)
		s.ComplexTypes = append(s.ComplexTypes, complexType)
	}
	for _, simpleType := range other.SimpleTypes {
		simpleType.Name = qualify(simpleType.Name)
		s.SimpleTypes = append(s.SimpleTypes, simpleType)
	}
	for _, group := range other.Groups {
		group.Name = qualify(group.Name)
		s.Groups = append(s.Groups, group)
	}
	for _, attributeGroup := range other.AttributeGroups {
		attributeGroup.Name = qualify(attributeGroup.Name)
		s.AttributeGroups = append(s.AttributeGroups, attributeGroup)
	}
}

// ResolveQName resolves a prefixed schema name against the schema's namespace
// declarations. Unprefixed names belong to the target namespace.
func (s *Schema) ResolveQName(name string) QName {
	prefix, local, found := strings.Cut(name, ":")
	if !found {
		return QName{Namespace: s.TargetNamespace, LocalName: name}
	}
	return QName{Namespace: s.Xmlns[prefix], LocalName: local}
}

// GetElementKey returns the ElementMap key for a document element name.
func (s *Schema) GetElementKey(name xml.Name) string {
	if name.Space == "" || name.Space == s.TargetNamespace {
		return name.Local
	}
	if prefix := s.getNamespacePrefix(name.Space); prefix != "" {
		return prefix + ":" + name.Local
	}
	return name.Local
}
