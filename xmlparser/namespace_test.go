package xmlparser

import "testing"

const boreholeSchema = `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           xmlns:diggs="http://diggsml.org/schemas/2.6"
           targetNamespace="http://diggsml.org/schemas/2.6"
           elementFormDefault="qualified">

    <xs:element name="Borehole">
        <xs:complexType>
            <xs:sequence>
                <xs:element name="name" type="xs:string"/>
                <xs:element name="totalMeasuredDepth" type="xs:decimal"/>
            </xs:sequence>
            <xs:attribute name="id" type="xs:ID" use="required"/>
        </xs:complexType>
    </xs:element>
</xs:schema>`

func TestTargetNamespace(t *testing.T) {
	schema, err := ParseXSD([]byte(boreholeSchema))
	if err != nil {
		t.Fatalf("Failed to parse XSD: %v", err)
	}

	const diggs = "http://diggsml.org/schemas/2.6"
	if got := schema.Xmlns["diggs"]; got != diggs {
		t.Errorf("Expected diggs prefix bound to %s, got %q", diggs, got)
	}
	if schema.TargetNamespace != diggs {
		t.Errorf("Expected target namespace %s, got %q", diggs, schema.TargetNamespace)
	}
	if qname := schema.ResolveQName("diggs:Borehole"); qname.Namespace != diggs || qname.LocalName != "Borehole" {
		t.Errorf("Unexpected QName for diggs:Borehole: %+v", qname)
	}

	runValidationCases(t, boreholeSchema, []validationCase{
		{
			name: "Default namespace",
			xml: `<Borehole xmlns="http://diggsml.org/schemas/2.6" id="bh1">
				<name>BH-1</name>
				<totalMeasuredDepth>30.5</totalMeasuredDepth>
			</Borehole>`,
			shouldPass: true,
		},
		{
			name: "Prefixed elements",
			xml: `<d:Borehole xmlns:d="http://diggsml.org/schemas/2.6" id="bh2">
				<d:name>BH-2</d:name>
				<d:totalMeasuredDepth>12</d:totalMeasuredDepth>
			</d:Borehole>`,
			shouldPass: true,
		},
		{
			name: "No namespace falls back to local names",
			xml: `<Borehole id="bh3">
				<name>BH-3</name>
				<totalMeasuredDepth>8.25</totalMeasuredDepth>
			</Borehole>`,
			shouldPass: true,
		},
		{
			name: "Attribute still required",
			xml: `<Borehole xmlns="http://diggsml.org/schemas/2.6">
				<name>BH-4</name>
				<totalMeasuredDepth>1</totalMeasuredDepth>
			</Borehole>`,
			errorString: "required attribute 'id' is missing from element <Borehole>",
		},
		{
			name: "Child value type",
			xml: `<Borehole xmlns="http://diggsml.org/schemas/2.6" id="bh5">
				<name>BH-5</name>
				<totalMeasuredDepth>thirty</totalMeasuredDepth>
			</Borehole>`,
			errorString: "value 'thirty' is not a valid decimal",
		},
		{
			name:        "Undeclared root",
			xml:         `<Sounding xmlns="http://diggsml.org/schemas/2.6" id="s1"/>`,
			errorString: "root element <Sounding> is not defined in the schema",
		},
	})
}

func TestUnqualifiedLocalElements(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"
           targetNamespace="http://diggsml.org/schemas/2.6"
           elementFormDefault="unqualified">

    <xs:element name="Sample">
        <xs:complexType>
            <xs:sequence>
                <xs:element name="name" type="xs:string"/>
                <xs:element name="depth" type="xs:decimal"/>
            </xs:sequence>
        </xs:complexType>
    </xs:element>
</xs:schema>`, []validationCase{
		{
			name: "Qualified root, unqualified children",
			xml: `<d:Sample xmlns:d="http://diggsml.org/schemas/2.6">
		<name>S-1</name>
		<depth>2.5</depth>
	</d:Sample>`,
			shouldPass: true,
		},
		{
			name:        "Child out of order",
			xml:         `<d:Sample xmlns:d="http://diggsml.org/schemas/2.6"><depth>2.5</depth><name>S-1</name></d:Sample>`,
			errorString: "element <name> is out of order in <Sample>",
		},
	})
}
