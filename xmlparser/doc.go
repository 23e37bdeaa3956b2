/*
Package xmlparser provides pure Go XML Schema (XSD) validation functionality.

This package parses XSD schema files and validates XML documents against them
without requiring external C libraries. It covers the parts of XML Schema 1.0
that the DIGGS and GML schemas use, and it never touches the network: every
xs:include, xs:import and external entity is handed to a pluggable Resolver.

# Features

• Pure Go implementation - no CGO
• XSD schema parsing with xs:include and xs:import through a Resolver
• Content models built from xs:sequence, xs:choice, xs:all, nested groups and
  xs:group references, with sequence order checking
• complexContent and simpleContent extension and restriction
• Substitution groups, abstract elements and types, xsi:type and xsi:nil
• Element and attribute wildcards (xs:any, xs:anyAttribute) with strict, lax
  and skip processing
• Attributes (use, fixed, default, references, xs:attributeGroup)
• Simple types by restriction, list and union, with every constraining facet
• Built-in XML Schema type validation, including xs:ID uniqueness and IDREF targets
• Positioned diagnostics (line and column) in document order

# Basic Usage

	schema, err := xmlparser.ParseXSD(xsdBytes, xmlparser.WithSystemID("/schemas/main.xsd"))
	if err != nil {
		log.Fatal(err)
	}

	document, err := xmlparser.Parse(xmlBytes)
	if err != nil {
		log.Fatal(err)
	}

	for _, d := range schema.Diagnostics(document) {
		fmt.Printf("line %d, column %d: %s\n", d.Line, d.Column, d.Message)
	}

# Resolving References

Relative schemaLocation values are joined onto the referring schema's system ID
before the Resolver sees them. The default FileResolver reads local files and
reports network locations as unresolved. Custom resolvers map identifiers to
local content:

	schema, err := xmlparser.ParseXSD(xsdBytes,
		xmlparser.WithSystemID(rootPath),
		xmlparser.WithResolver(xmlparser.ResolverFunc(func(req xmlparser.ResolveRequest) (*xmlparser.Entity, error) {
			...
		})),
	)

A resolver returning a nil entity and a nil error leaves the reference
unresolved; the schema records it in Schema.Unresolved and reports it as a
diagnostic on every validation.

# Limitations

• Limited namespace support (prefix based)
• No support for XML Schema 1.1 features
• No support for identity constraints (xs:key, xs:keyref, xs:unique)
• xsi:type is not checked for being derived from the declared type
• Content models are matched greedily, which is exact for schemas that obey
  the unique particle attribution rule
*/
package xmlparser
