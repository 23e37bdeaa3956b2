package xmlparser

import (
	"encoding/xml"
	"fmt"
)

// XMLSchemaNamespace is the namespace of XSD 1.0 schema documents.
const XMLSchemaNamespace = "http://www.w3.org/2001/XMLSchema"

// Schema is the internal top-level structure representing a parsed <xs:schema>.
type Schema struct {
	XMLName            xml.Name `xml:"http://www.w3.org/2001/XMLSchema schema"`
	TargetNamespace    string   `xml:"targetNamespace,attr"`
	ElementFormDefault string   `xml:"elementFormDefault,attr"`

	Includes        []Include        `xml:"include"`
	Imports         []Import         `xml:"import"`
	Elements        []Element        `xml:"element"`
	Attributes      []Attribute      `xml:"attribute"`
	ComplexTypes    []ComplexType    `xml:"complexType"`
	SimpleTypes     []SimpleType     `xml:"simpleType"`
	Groups          []NamedGroup     `xml:"group"`
	AttributeGroups []AttributeGroup `xml:"attributeGroup"`

	// Xmlns maps prefixes declared on the schema root to namespace URIs.
	// The default namespace is stored under the empty prefix.
	Xmlns map[string]string `xml:"-"`

	// SystemID is the location the schema document was loaded from, if known.
	SystemID string `xml:"-"`

	// Unresolved holds one diagnostic per include/import that no resolver could satisfy.
	Unresolved []Diagnostic `xml:"-"`

	// Internal maps for fast lookups
	ElementMap        map[string]*Element        `xml:"-"`
	ComplexTypeMap    map[string]*ComplexType    `xml:"-"`
	SimpleTypeMap     map[string]*SimpleType     `xml:"-"`
	GroupMap          map[string]*NamedGroup     `xml:"-"`
	AttributeGroupMap map[string]*AttributeGroup `xml:"-"`
	AttributeMap      map[string]*Attribute      `xml:"-"`

	// substitutes maps a global element to the elements naming it as their
	// substitution group head.
	substitutes map[*Element][]*Element
}

// Include represents an <xs:include> directive (same target namespace).
type Include struct {
	SchemaLocation string `xml:"schemaLocation,attr"`
}

// Import represents an <xs:import> directive (foreign target namespace).
type Import struct {
	Namespace      string `xml:"namespace,attr"`
	SchemaLocation string `xml:"schemaLocation,attr"`
}

// Element represents an <xs:element> declaration.
type Element struct {
	Name      string `xml:"name,attr"`
	Ref       string `xml:"ref,attr"`
	Type      string `xml:"type,attr"` // e.g., "xs:string", "userType"
	MinOccurs string `xml:"minOccurs,attr"`
	MaxOccurs string `xml:"maxOccurs,attr"` // "unbounded" or a number

	SubstitutionGroup string `xml:"substitutionGroup,attr"`
	Abstract          bool   `xml:"abstract,attr"`
	Nillable          bool   `xml:"nillable,attr"`
	Fixed             string `xml:"fixed,attr"`
	Default           string `xml:"default,attr"`

	// An element can define its own type right here, instead of referencing one.
	ComplexType *ComplexType `xml:"complexType"`
	SimpleType  *SimpleType  `xml:"simpleType"`
}

// QualifiedName returns the name the element is matched by: its ref when it is a
// reference to a global declaration, otherwise its own name.
func (e *Element) QualifiedName() string {
	if e.Ref != "" {
		return e.Ref
	}
	return e.Name
}

// ComplexType represents an <xs:complexType> declaration.
type ComplexType struct {
	Name     string `xml:"name,attr"`
	Mixed    bool   `xml:"mixed,attr"`
	Abstract bool   `xml:"abstract,attr"`

	ComplexContent *ComplexContent `xml:"complexContent"`
	SimpleContent  *SimpleContent  `xml:"simpleContent"`

	ContentModel
}

// ContentModel is the particle and attribute part shared by complex types and
// their derivations.
type ContentModel struct {
	Sequence *ModelGroup `xml:"sequence"`
	Choice   *ModelGroup `xml:"choice"`
	All      *ModelGroup `xml:"all"`
	Group    *GroupRef   `xml:"group"`

	AttributeDecls
}

// Model returns the top-level model group, or nil for empty content.
// A group reference is wrapped in a single-particle sequence.
func (c *ContentModel) Model() *ModelGroup {
	switch {
	case c.Sequence != nil:
		return c.Sequence
	case c.Choice != nil:
		return c.Choice
	case c.All != nil:
		return c.All
	case c.Group != nil:
		return &ModelGroup{Compositor: CompositorSequence, Particles: []Particle{{GroupRef: c.Group}}}
	}
	return nil
}

// AttributeDecls collects attribute uses, attribute group references and the
// attribute wildcard of a type, derivation or attribute group.
type AttributeDecls struct {
	Attributes      []Attribute         `xml:"attribute"`
	AttributeGroups []AttributeGroupRef `xml:"attributeGroup"`
	AnyAttribute    *AnyAttribute       `xml:"anyAttribute"`
}

// ComplexContent represents <xs:complexContent>.
type ComplexContent struct {
	Mixed       string      `xml:"mixed,attr"`
	Extension   *Derivation `xml:"extension"`
	Restriction *Derivation `xml:"restriction"`
}

// SimpleContent represents <xs:simpleContent>.
type SimpleContent struct {
	Extension   *Derivation `xml:"extension"`
	Restriction *Derivation `xml:"restriction"`
}

// Derivation is an <xs:extension> or <xs:restriction> inside complexContent or
// simpleContent. Facets and SimpleType only apply to simpleContent restrictions.
type Derivation struct {
	Base       string      `xml:"base,attr"`
	SimpleType *SimpleType `xml:"simpleType"`
	Facets

	ContentModel
}

// Compositor tells how the particles of a model group combine.
type Compositor uint8

const (
	CompositorSequence Compositor = iota
	CompositorChoice
	CompositorAll
)

func (c Compositor) String() string {
	switch c {
	case CompositorChoice:
		return "choice"
	case CompositorAll:
		return "all"
	default:
		return "sequence"
	}
}

// ModelGroup is an <xs:sequence>, <xs:choice> or <xs:all>. Particles keep
// their document order.
type ModelGroup struct {
	Compositor Compositor
	MinOccurs  string
	MaxOccurs  string
	Particles  []Particle
}

// Particle is one entry of a model group. Exactly one field is set.
type Particle struct {
	Element  *Element
	Group    *ModelGroup
	GroupRef *GroupRef
	Any      *Any
}

// UnmarshalXML decodes the particles of a model group in document order.
func (g *ModelGroup) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	switch start.Name.Local {
	case "choice":
		g.Compositor = CompositorChoice
	case "all":
		g.Compositor = CompositorAll
	default:
		g.Compositor = CompositorSequence
	}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "minOccurs":
			g.MinOccurs = attr.Value
		case "maxOccurs":
			g.MaxOccurs = attr.Value
		}
	}

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		switch t := token.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			var p Particle
			switch t.Name.Local {
			case "element":
				p.Element = &Element{}
				err = d.DecodeElement(p.Element, &t)
			case "sequence", "choice", "all":
				p.Group = &ModelGroup{}
				err = d.DecodeElement(p.Group, &t)
			case "group":
				p.GroupRef = &GroupRef{}
				err = d.DecodeElement(p.GroupRef, &t)
			case "any":
				p.Any = &Any{}
				err = d.DecodeElement(p.Any, &t)
			default:
				// xs:annotation
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			g.Particles = append(g.Particles, p)
		}
	}
}

// NamedGroup is a global <xs:group name="...">.
type NamedGroup struct {
	Name     string      `xml:"name,attr"`
	Sequence *ModelGroup `xml:"sequence"`
	Choice   *ModelGroup `xml:"choice"`
	All      *ModelGroup `xml:"all"`
}

// Model returns the group's model group.
func (g *NamedGroup) Model() *ModelGroup {
	switch {
	case g.Sequence != nil:
		return g.Sequence
	case g.Choice != nil:
		return g.Choice
	default:
		return g.All
	}
}

// GroupRef is an <xs:group ref="..."> particle.
type GroupRef struct {
	Ref       string `xml:"ref,attr"`
	MinOccurs string `xml:"minOccurs,attr"`
	MaxOccurs string `xml:"maxOccurs,attr"`
}

// Any is an <xs:any> element wildcard.
type Any struct {
	Namespace       string `xml:"namespace,attr"`
	ProcessContents string `xml:"processContents,attr"`
	MinOccurs       string `xml:"minOccurs,attr"`
	MaxOccurs       string `xml:"maxOccurs,attr"`

	// TargetNamespace is the target namespace of the schema document declaring the wildcard.
	TargetNamespace string `xml:"-"`
}

// AnyAttribute is an <xs:anyAttribute> wildcard.
type AnyAttribute struct {
	Namespace       string `xml:"namespace,attr"`
	ProcessContents string `xml:"processContents,attr"`

	TargetNamespace string `xml:"-"`
}

// AttributeGroup is a global <xs:attributeGroup name="...">.
type AttributeGroup struct {
	Name string `xml:"name,attr"`
	AttributeDecls
}

// AttributeGroupRef is an <xs:attributeGroup ref="..."> inside a type.
type AttributeGroupRef struct {
	Ref string `xml:"ref,attr"`
}

// Attribute represents an <xs:attribute> declaration.
type Attribute struct {
	Name       string      `xml:"name,attr"`
	Ref        string      `xml:"ref,attr"`
	Type       string      `xml:"type,attr"`
	Use        string      `xml:"use,attr"` // "required", "optional", "prohibited"
	Fixed      string      `xml:"fixed,attr"`
	Default    string      `xml:"default,attr"`
	SimpleType *SimpleType `xml:"simpleType"`
}

// SimpleType represents an <xs:simpleType> declaration.
type SimpleType struct {
	Name        string       `xml:"name,attr"`
	Restriction *Restriction `xml:"restriction"`
	List        *List        `xml:"list"`
	Union       *Union       `xml:"union"`
}

// Restriction represents an <xs:restriction> of a simple type. The base is
// either named by Base or given inline as SimpleType.
type Restriction struct {
	Base       string      `xml:"base,attr"` // e.g., "xs:string"
	SimpleType *SimpleType `xml:"simpleType"`
	Facets
}

// Facets are the constraining facets of one restriction step.
type Facets struct {
	Length         *Facet  `xml:"length"`
	MinLength      *Facet  `xml:"minLength"`
	MaxLength      *Facet  `xml:"maxLength"`
	Patterns       []Facet `xml:"pattern"`
	Enumeration    []Facet `xml:"enumeration"`
	MinInclusive   *Facet  `xml:"minInclusive"`
	MaxInclusive   *Facet  `xml:"maxInclusive"`
	MinExclusive   *Facet  `xml:"minExclusive"`
	MaxExclusive   *Facet  `xml:"maxExclusive"`
	TotalDigits    *Facet  `xml:"totalDigits"`
	FractionDigits *Facet  `xml:"fractionDigits"`
	WhiteSpace     *Facet  `xml:"whiteSpace"`
}

// List represents <xs:list>: a whitespace separated list of item values.
type List struct {
	ItemType   string      `xml:"itemType,attr"`
	SimpleType *SimpleType `xml:"simpleType"`
}

// Union represents <xs:union>.
type Union struct {
	MemberTypes string       `xml:"memberTypes,attr"`
	SimpleTypes []SimpleType `xml:"simpleType"`
}

// Facet represents a single restriction rule, like <xs:minLength>.
type Facet struct {
	Value string `xml:"value,attr"`
}

// QName is a namespace-resolved schema name.
type QName struct {
	Namespace string
	LocalName string
}

// Document represents a full XML document in memory.
type Document struct {
	Root *Node

	// SystemID is the location the document was parsed from, if known.
	SystemID string
}

// DefaultNamespace returns the default namespace declared on the root element
// (xmlns="..."), or the empty string when there is none.
func (d *Document) DefaultNamespace() string {
	if d == nil || d.Root == nil {
		return ""
	}
	for _, attr := range d.Root.Attrs {
		if attr.Name.Space == "" && attr.Name.Local == "xmlns" {
			return attr.Value
		}
	}
	return ""
}

// Node represents a single element in the XML document tree.
type Node struct {
	Parent   *Node
	Name     xml.Name
	Attrs    []xml.Attr
	Children []*Node
	Content  string

	// Line and Column locate the end of the element's start tag, 1-based.
	Line   int
	Column int
}

// Attr returns the value of the attribute with the given namespace and local name.
func (n *Node) Attr(space, local string) (string, bool) {
	for _, attr := range n.Attrs {
		if attr.Name.Space == space && attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}

// LookupPrefix returns the namespace bound to prefix at this element, searching
// the element and its ancestors. The empty prefix looks up the default namespace.
func (n *Node) LookupPrefix(prefix string) (string, bool) {
	for node := n; node != nil; node = node.Parent {
		for _, attr := range node.Attrs {
			if prefix == "" && attr.Name.Space == "" && attr.Name.Local == "xmlns" {
				return attr.Value, true
			}
			if prefix != "" && attr.Name.Space == "xmlns" && attr.Name.Local == prefix {
				return attr.Value, true
			}
		}
	}
	return "", false
}

// Diagnostic is a single positioned validation message.
// Line and Column are zero when the message has no document position.
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}
