package xmlparser

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
)

// maxDerivationDepth bounds base-type, group and attribute group chains so a
// circular schema cannot recurse forever.
const maxDerivationDepth = 64

// anyTypeName is the ur-type every complex type ultimately derives from.
const anyTypeName = "xs:anyType"

// contentType is a complex type with its derivation chain applied.
type contentType struct {
	name  string
	mixed bool
	// model is nil for empty content and for simple content.
	model *ModelGroup
	// value is set for simple content.
	value *simpleValue

	attributes []Attribute
	wildcard   *AnyAttribute
}

// simpleValue describes how a text value is checked: against a named or inline
// simple type, then against every further restriction step in order.
type simpleValue struct {
	name   string
	inline *SimpleType
	steps  []*Restriction
}

func (ct *ComplexType) complexDerivation() *Derivation {
	if ct.ComplexContent == nil {
		return nil
	}
	if ct.ComplexContent.Extension != nil {
		return ct.ComplexContent.Extension
	}
	return ct.ComplexContent.Restriction
}

func (ct *ComplexType) simpleDerivation() *Derivation {
	if ct.SimpleContent == nil {
		return nil
	}
	if ct.SimpleContent.Extension != nil {
		return ct.SimpleContent.Extension
	}
	return ct.SimpleContent.Restriction
}

// contentTypeOf resolves a complex type's content and attribute uses.
func (s *Schema) contentTypeOf(ct *ComplexType) (*contentType, error) {
	return s.derive(ct, 0)
}

func (s *Schema) derive(ct *ComplexType, depth int) (*contentType, error) {
	if depth > maxDerivationDepth {
		return nil, fmt.Errorf("type derivation of '%s' is circular", ct.Name)
	}

	switch {
	case ct.ComplexContent != nil:
		return s.deriveComplexContent(ct, depth)
	case ct.SimpleContent != nil:
		return s.deriveSimpleContent(ct, depth)
	}

	attributes, wildcard, err := s.attributeUses(&ct.AttributeDecls)
	if err != nil {
		return nil, err
	}
	return &contentType{
		name:       ct.Name,
		mixed:      ct.Mixed,
		model:      ct.Model(),
		attributes: attributes,
		wildcard:   wildcard,
	}, nil
}

func (s *Schema) deriveComplexContent(ct *ComplexType, depth int) (*contentType, error) {
	cc := ct.ComplexContent
	d := ct.complexDerivation()
	if d == nil {
		return nil, fmt.Errorf("complexContent of type '%s' has neither extension nor restriction", ct.Name)
	}

	base, err := s.baseContentType(d.Base, depth)
	if err != nil {
		return nil, fmt.Errorf("in type '%s': %w", ct.Name, err)
	}
	own, wildcard, err := s.attributeUses(&d.AttributeDecls)
	if err != nil {
		return nil, err
	}

	result := &contentType{
		name:  ct.Name,
		mixed: ct.Mixed || cc.Mixed == "true" || cc.Mixed == "1",
	}
	if cc.Extension != nil {
		result.mixed = result.mixed || base.mixed
		result.model = concatModels(base.model, d.Model())
		result.attributes = mergeAttributes(base.attributes, own)
		result.wildcard = wildcard
		if result.wildcard == nil {
			result.wildcard = base.wildcard
		}
		return result, nil
	}

	result.model = d.Model()
	result.attributes = mergeAttributes(base.attributes, own)
	result.wildcard = wildcard
	return result, nil
}

func (s *Schema) deriveSimpleContent(ct *ComplexType, depth int) (*contentType, error) {
	d := ct.simpleDerivation()
	if d == nil {
		return nil, fmt.Errorf("simpleContent of type '%s' has neither extension nor restriction", ct.Name)
	}

	own, wildcard, err := s.attributeUses(&d.AttributeDecls)
	if err != nil {
		return nil, err
	}
	result := &contentType{name: ct.Name, wildcard: wildcard}

	baseComplex := s.lookupComplexType(d.Base)
	if baseComplex == nil {
		// The base is a simple type.
		result.value = &simpleValue{name: d.Base}
		result.attributes = own
		if ct.SimpleContent.Restriction != nil {
			result.value.steps = []*Restriction{d.restriction()}
		}
		return result, nil
	}

	base, err := s.derive(baseComplex, depth+1)
	if err != nil {
		return nil, err
	}
	if base.value == nil {
		return nil, fmt.Errorf("type '%s' derives simple content from '%s', which has complex content", ct.Name, d.Base)
	}

	value := *base.value
	if ct.SimpleContent.Restriction != nil {
		value.steps = append(append([]*Restriction(nil), value.steps...), d.restriction())
	}
	result.value = &value
	result.attributes = mergeAttributes(base.attributes, own)
	if result.wildcard == nil {
		result.wildcard = base.wildcard
	}
	return result, nil
}

// baseContentType resolves the base of a complexContent derivation.
func (s *Schema) baseContentType(name string, depth int) (*contentType, error) {
	if s.builtinTypeName(name) == anyTypeName {
		return &contentType{name: anyTypeName}, nil
	}
	base := s.lookupComplexType(name)
	if base == nil {
		return nil, fmt.Errorf("base type '%s' not found in schema", name)
	}
	return s.derive(base, depth+1)
}

// restriction returns the facets of a simpleContent restriction as a
// restriction step.
func (d *Derivation) restriction() *Restriction {
	return &Restriction{SimpleType: d.SimpleType, Facets: d.Facets}
}

// concatModels is the content of an extension: the base particle followed by
// the extension's own.
func concatModels(base, ext *ModelGroup) *ModelGroup {
	switch {
	case base == nil:
		return ext
	case ext == nil:
		return base
	}
	return &ModelGroup{
		Compositor: CompositorSequence,
		Particles:  []Particle{{Group: base}, {Group: ext}},
	}
}

// mergeAttributes overlays own attribute uses on inherited ones by name.
func mergeAttributes(inherited, own []Attribute) []Attribute {
	merged := make([]Attribute, 0, len(inherited)+len(own))
	for _, attr := range inherited {
		if !containsAttribute(own, attr.Name) {
			merged = append(merged, attr)
		}
	}
	return append(merged, own...)
}

func containsAttribute(attrs []Attribute, name string) bool {
	for _, attr := range attrs {
		if attr.Name == name {
			return true
		}
	}
	return false
}

// attributeUses flattens attribute references and attribute groups into a list
// of attribute uses. The first wildcard found wins.
func (s *Schema) attributeUses(decls *AttributeDecls) ([]Attribute, *AnyAttribute, error) {
	var uses []Attribute
	wildcard := decls.AnyAttribute
	seen := make(map[*AttributeGroup]bool)

	var collect func(d *AttributeDecls, depth int) error
	collect = func(d *AttributeDecls, depth int) error {
		if depth > maxDerivationDepth {
			return fmt.Errorf("attribute group references are circular")
		}
		for _, attr := range d.Attributes {
			resolved, err := s.resolveAttributeRef(attr)
			if err != nil {
				return err
			}
			uses = append(uses, resolved)
		}
		for _, ref := range d.AttributeGroups {
			group := s.lookupAttributeGroup(ref.Ref)
			if group == nil {
				return fmt.Errorf("attribute group '%s' not found in schema", ref.Ref)
			}
			if seen[group] {
				continue
			}
			seen[group] = true
			if wildcard == nil {
				wildcard = group.AnyAttribute
			}
			if err := collect(&group.AttributeDecls, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := collect(decls, 0); err != nil {
		return nil, nil, err
	}
	return uses, wildcard, nil
}

// resolveAttributeRef replaces an attribute reference by the global declaration.
// Use, fixed and default stay with the reference when it sets them.
func (s *Schema) resolveAttributeRef(attr Attribute) (Attribute, error) {
	if attr.Ref == "" {
		return attr, nil
	}
	target := s.lookupAttribute(attr.Ref)
	if target == nil {
		if s.isXMLNamespaceRef(attr.Ref) {
			return Attribute{Name: attr.Ref, Use: attr.Use, Fixed: attr.Fixed, Default: attr.Default}, nil
		}
		return Attribute{}, fmt.Errorf("attribute '%s' not found in schema", attr.Ref)
	}

	resolved := *target
	resolved.Name = attr.Ref
	resolved.Use = attr.Use
	if attr.Fixed != "" {
		resolved.Fixed = attr.Fixed
	}
	if attr.Default != "" {
		resolved.Default = attr.Default
	}
	return resolved, nil
}

// xmlNamespace is bound to the xml prefix in every document.
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// isXMLNamespaceRef reports whether name refers to one of the built-in xml:
// attributes, which need no import.
func (s *Schema) isXMLNamespaceRef(name string) bool {
	prefix, _, found := strings.Cut(name, ":")
	return found && (prefix == "xml" || s.Xmlns[prefix] == xmlNamespace)
}

// resolveRef returns the global declaration an element reference points to.
// Occurrence constraints stay with the referencing particle. An unresolved
// reference is returned unchanged.
func (s *Schema) resolveRef(def *Element) *Element {
	if def.Ref == "" {
		return def
	}
	target := s.lookupElement(def.Ref)
	if target == nil {
		return def
	}
	resolved := *target
	resolved.MinOccurs = def.MinOccurs
	resolved.MaxOccurs = def.MaxOccurs
	return &resolved
}

// substitutionMembers returns every element that may appear in place of head,
// directly or through a chain of substitution groups, in declaration order.
func (s *Schema) substitutionMembers(head *Element) []*Element {
	var members []*Element
	seen := map[*Element]bool{head: true}
	queue := []*Element{head}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, member := range s.substitutes[current] {
			if seen[member] {
				continue
			}
			seen[member] = true
			members = append(members, member)
			queue = append(queue, member)
		}
	}
	return members
}

// builtinTypeName normalizes a reference to an XML Schema built-in type to the
// "xs:" form. It returns "" for other names.
func (s *Schema) builtinTypeName(name string) string {
	prefix, local, found := strings.Cut(name, ":")
	if !found {
		if s.Xmlns[""] == XMLSchemaNamespace {
			return "xs:" + name
		}
		return ""
	}
	if prefix == "xs" || prefix == "xsd" || s.Xmlns[prefix] == XMLSchemaNamespace {
		return "xs:" + local
	}
	return ""
}

// lookupCandidates lists the map keys a schema name may have been stored under
// after prefixed imports were merged.
func (s *Schema) lookupCandidates(name string) []string {
	candidates := []string{name}
	qname := s.ResolveQName(name)
	if qname.Namespace == s.TargetNamespace {
		candidates = append(candidates, qname.LocalName)
	}
	for _, prefix := range s.sortedPrefixes() {
		if s.Xmlns[prefix] == qname.Namespace {
			candidates = append(candidates, prefix+":"+qname.LocalName)
		}
	}
	// Unprefixed references inside imported schemas point at names that were
	// merged under the importing schema's prefix.
	if !strings.Contains(name, ":") {
		for _, prefix := range s.sortedPrefixes() {
			candidates = append(candidates, prefix+":"+name)
		}
	}
	return candidates
}

func (s *Schema) sortedPrefixes() []string {
	prefixes := make([]string, 0, len(s.Xmlns))
	for prefix := range s.Xmlns {
		if prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}
	sort.Strings(prefixes)
	return prefixes
}

func lookup[T any](s *Schema, m map[string]*T, name string) *T {
	if name == "" {
		return nil
	}
	for _, key := range s.lookupCandidates(name) {
		if component, exists := m[key]; exists {
			return component
		}
	}
	return nil
}

func (s *Schema) lookupElement(name string) *Element {
	return lookup(s, s.ElementMap, name)
}

func (s *Schema) lookupComplexType(name string) *ComplexType {
	return lookup(s, s.ComplexTypeMap, name)
}

func (s *Schema) lookupSimpleType(name string) *SimpleType {
	return lookup(s, s.SimpleTypeMap, name)
}

func (s *Schema) lookupGroup(name string) *NamedGroup {
	return lookup(s, s.GroupMap, name)
}

func (s *Schema) lookupAttributeGroup(name string) *AttributeGroup {
	return lookup(s, s.AttributeGroupMap, name)
}

func (s *Schema) lookupAttribute(name string) *Attribute {
	return lookup(s, s.AttributeMap, name)
}

// globalElement finds the global declaration for a document element name.
func (s *Schema) globalElement(name xml.Name) *Element {
	if element, exists := s.ElementMap[s.GetElementKey(name)]; exists {
		return element
	}
	for _, prefix := range s.sortedPrefixes() {
		if s.Xmlns[prefix] == name.Space {
			if element, exists := s.ElementMap[prefix+":"+name.Local]; exists {
				return element
			}
		}
	}
	// Fallback to local name for compatibility
	return s.ElementMap[name.Local]
}

// typeByQName finds the complex or simple type a namespace-qualified name refers
// to. Built-in types are returned by name only.
func (s *Schema) typeByQName(namespace, local string) (*ComplexType, *SimpleType, string) {
	if namespace == XMLSchemaNamespace {
		return nil, nil, "xs:" + local
	}
	keys := []string{}
	if namespace == s.TargetNamespace || namespace == "" {
		keys = append(keys, local)
	}
	for _, prefix := range s.sortedPrefixes() {
		if s.Xmlns[prefix] == namespace {
			keys = append(keys, prefix+":"+local)
		}
	}
	for _, key := range keys {
		if ct, exists := s.ComplexTypeMap[key]; exists {
			return ct, nil, ""
		}
		if st, exists := s.SimpleTypeMap[key]; exists {
			return nil, st, ""
		}
	}
	return nil, nil, ""
}
