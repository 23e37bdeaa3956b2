package xmlparser

import "testing"

func TestComplexContentExtension(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:complexType name="FeatureType">
        <xs:sequence>
            <xs:element name="name" type="xs:string"/>
        </xs:sequence>
        <xs:attribute name="id" type="xs:ID" use="required"/>
    </xs:complexType>
    <xs:complexType name="BoreholeType">
        <xs:complexContent>
            <xs:extension base="FeatureType">
                <xs:sequence>
                    <xs:element name="totalDepth" type="xs:decimal"/>
                </xs:sequence>
                <xs:attribute name="uom" type="xs:string"/>
            </xs:extension>
        </xs:complexContent>
    </xs:complexType>
    <xs:element name="borehole" type="BoreholeType"/>
</xs:schema>`, []validationCase{
		{name: "Base and extension content", xml: `<borehole id="b1" uom="m"><name>BH-1</name><totalDepth>30</totalDepth></borehole>`, shouldPass: true},
		{name: "Inherited attribute", xml: `<borehole uom="m"><name>BH-1</name><totalDepth>30</totalDepth></borehole>`, errorString: "required attribute 'id' is missing"},
		{name: "Inherited element", xml: `<borehole id="b1"><totalDepth>30</totalDepth></borehole>`, errorString: "requires at least 1 <name> child"},
		{name: "Extension after base", xml: `<borehole id="b1"><totalDepth>30</totalDepth><name>BH-1</name></borehole>`, errorString: "element <name> is out of order in <borehole>"},
		{name: "Undeclared child", xml: `<borehole id="b1"><name>BH-1</name><rig>R</rig><totalDepth>3</totalDepth></borehole>`, errorString: "element <rig> is not a valid child of <borehole>"},
	})
}

func TestComplexContentRestriction(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:complexType name="MeasurementType">
        <xs:sequence>
            <xs:element name="value" type="xs:decimal"/>
            <xs:element name="remark" type="xs:string" minOccurs="0"/>
        </xs:sequence>
        <xs:attribute name="uom" type="xs:string"/>
    </xs:complexType>
    <xs:complexType name="PlainMeasurementType">
        <xs:complexContent>
            <xs:restriction base="MeasurementType">
                <xs:sequence>
                    <xs:element name="value" type="xs:decimal"/>
                </xs:sequence>
            </xs:restriction>
        </xs:complexContent>
    </xs:complexType>
    <xs:element name="reading" type="PlainMeasurementType"/>
</xs:schema>`, []validationCase{
		{name: "Restricted content", xml: `<reading uom="kPa"><value>101.3</value></reading>`, shouldPass: true},
		{name: "Particle removed by restriction", xml: `<reading><value>1</value><remark>x</remark></reading>`, errorString: "element <remark> is not a valid child of <reading>"},
		{name: "Unknown attribute", xml: `<reading unit="kPa"><value>1</value></reading>`, errorString: "unexpected attribute 'unit'"},
	})
}

func TestSimpleContentDerivation(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:complexType name="MeasureType">
        <xs:simpleContent>
            <xs:extension base="xs:decimal">
                <xs:attribute name="uom" type="xs:string" use="required"/>
            </xs:extension>
        </xs:simpleContent>
    </xs:complexType>
    <xs:complexType name="PositiveMeasureType">
        <xs:simpleContent>
            <xs:restriction base="MeasureType">
                <xs:minExclusive value="0"/>
            </xs:restriction>
        </xs:simpleContent>
    </xs:complexType>
    <xs:element name="depth" type="MeasureType"/>
    <xs:element name="length" type="PositiveMeasureType"/>
</xs:schema>`, []validationCase{
		{name: "Value with attribute", xml: `<depth uom="m">12.5</depth>`, shouldPass: true},
		{name: "Value of the wrong type", xml: `<depth uom="m">deep</depth>`, errorString: "in element <depth>: value 'deep' is not a valid decimal"},
		{name: "Missing attribute", xml: `<depth>12.5</depth>`, errorString: "required attribute 'uom' is missing from element <depth>"},
		{name: "Child elements", xml: `<depth uom="m"><value>1</value></depth>`, errorString: "element <depth> cannot have child elements"},
		{name: "Restricted value", xml: `<length uom="m">3</length>`, shouldPass: true},
		{name: "Restriction facet", xml: `<length uom="m">-1</length>`, errorString: "value '-1' must be greater than 0"},
		{name: "Restriction keeps attributes", xml: `<length>3</length>`, errorString: "required attribute 'uom' is missing"},
	})
}

func TestSampleAttributes(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:simpleType name="SampleKind">
        <xs:restriction base="xs:string">
            <xs:enumeration value="core"/>
            <xs:enumeration value="disturbed"/>
        </xs:restriction>
    </xs:simpleType>
    <xs:element name="sample">
        <xs:complexType>
            <xs:sequence>
                <xs:element name="name" type="xs:string"/>
            </xs:sequence>
            <xs:attribute name="number" type="xs:positiveInteger" use="required"/>
            <xs:attribute name="kind" type="SampleKind"/>
            <xs:attribute name="status" type="xs:string" fixed="logged"/>
            <xs:attribute name="legacyCode" type="xs:string" use="prohibited"/>
        </xs:complexType>
    </xs:element>
</xs:schema>`, []validationCase{
		{name: "Declared attributes", xml: `<sample number="3" kind="core" status="logged"><name>S-3</name></sample>`, shouldPass: true},
		{name: "Optional attributes left out", xml: `<sample number="4"><name>S-4</name></sample>`, shouldPass: true},
		{
			name:       "Instance and xml attributes",
			xml:        `<sample xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:noNamespaceSchemaLocation="s.xsd" xml:lang="en" number="1"><name>S-1</name></sample>`,
			shouldPass: true,
		},
		{name: "Missing required attribute", xml: `<sample kind="core"><name>S</name></sample>`, errorString: "required attribute 'number' is missing from element <sample>"},
		{name: "Attribute type", xml: `<sample number="0"><name>S</name></sample>`, errorString: "attribute 'number' in element <sample>: value '0' must be positive"},
		{name: "Enumerated attribute", xml: `<sample number="1" kind="bulk"><name>S</name></sample>`, errorString: "value 'bulk' is not in the list of allowed values: [core, disturbed]"},
		{name: "Fixed attribute", xml: `<sample number="1" status="lost"><name>S</name></sample>`, errorString: "attribute 'status' in element <sample> has fixed value 'logged', but got 'lost'"},
		{name: "Prohibited attribute", xml: `<sample number="1" legacyCode="x"><name>S</name></sample>`, errorString: "attribute 'legacyCode' is prohibited in element <sample>"},
		{name: "Undeclared attribute", xml: `<sample number="1" color="red"><name>S</name></sample>`, errorString: "unexpected attribute 'color' in element <sample>"},
	})
}

func TestAttributeGroups(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:attribute name="uom" type="xs:token"/>
    <xs:attributeGroup name="Identified">
        <xs:attribute name="id" type="xs:ID" use="required"/>
    </xs:attributeGroup>
    <xs:attributeGroup name="Located">
        <xs:attributeGroup ref="Identified"/>
        <xs:attribute name="srsName" type="xs:anyURI"/>
    </xs:attributeGroup>
    <xs:element name="station">
        <xs:complexType>
            <xs:attributeGroup ref="Located"/>
            <xs:attribute ref="uom"/>
            <xs:anyAttribute namespace="##other" processContents="lax"/>
        </xs:complexType>
    </xs:element>
    <xs:element name="marker">
        <xs:complexType>
            <xs:attributeGroup ref="Missing"/>
        </xs:complexType>
    </xs:element>
</xs:schema>`, []validationCase{
		{name: "Grouped attributes", xml: `<station id="st1" srsName="urn:ogc:def:crs:EPSG::4326" uom="m"/>`, shouldPass: true},
		{name: "Attribute from nested group", xml: `<station srsName="EPSG:4326"/>`, errorString: "required attribute 'id' is missing from element <station>"},
		{name: "Attribute wildcard", xml: `<station xmlns:v="urn:vendor" id="st1" v:flag="y"/>`, shouldPass: true},
		{name: "Unqualified attribute outside the wildcard", xml: `<station id="st1" color="red"/>`, errorString: "unexpected attribute 'color' in element <station>"},
		{name: "Unknown attribute group", xml: `<marker/>`, errorString: "attribute group 'Missing' not found in schema"},
	})
}

func TestInstanceTypeAndNil(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:complexType name="LocationType" abstract="true">
        <xs:sequence>
            <xs:element name="name" type="xs:string"/>
        </xs:sequence>
    </xs:complexType>
    <xs:complexType name="PointLocationType">
        <xs:complexContent>
            <xs:extension base="LocationType">
                <xs:sequence>
                    <xs:element name="pos" type="xs:string"/>
                </xs:sequence>
            </xs:extension>
        </xs:complexContent>
    </xs:complexType>
    <xs:element name="location" type="LocationType"/>
    <xs:element name="reading">
        <xs:complexType>
            <xs:sequence>
                <xs:element name="value" type="xs:decimal" nillable="true"/>
                <xs:element name="remark" type="xs:string" minOccurs="0"/>
            </xs:sequence>
        </xs:complexType>
    </xs:element>
</xs:schema>`, []validationCase{
		{
			name:       "Concrete type named by xsi:type",
			xml:        `<location xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:type="PointLocationType"><name>L</name><pos>1 2</pos></location>`,
			shouldPass: true,
		},
		{name: "Abstract declared type", xml: `<location><name>L</name></location>`, errorString: "type of element <location> is abstract"},
		{
			name:        "Unknown xsi:type",
			xml:         `<location xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:type="GridLocationType"><name>L</name></location>`,
			errorString: "xsi:type 'GridLocationType' of element <location> is not defined in the schema",
		},
		{
			name:        "Content checked against xsi:type",
			xml:         `<location xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:type="PointLocationType"><name>L</name></location>`,
			errorString: "requires at least 1 <pos> child",
		},
		{
			name:       "Nil value",
			xml:        `<reading xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><value xsi:nil="true"/><remark>not measured</remark></reading>`,
			shouldPass: true,
		},
		{
			name:        "Nil element with content",
			xml:         `<reading xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><value xsi:nil="true">3</value></reading>`,
			errorString: "element <value> is nil but has content",
		},
		{
			name:        "Element not nillable",
			xml:         `<reading xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><value>3</value><remark xsi:nil="true"/></reading>`,
			errorString: "element <remark> is not nillable",
		},
	})
}
