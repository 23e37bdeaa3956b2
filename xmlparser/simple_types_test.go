package xmlparser

import "testing"

func TestListAndUnionTypes(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:simpleType name="DepthList">
        <xs:list itemType="xs:decimal"/>
    </xs:simpleType>
    <xs:simpleType name="DepthPair">
        <xs:restriction base="DepthList">
            <xs:length value="2"/>
        </xs:restriction>
    </xs:simpleType>
    <xs:simpleType name="MissingCode">
        <xs:restriction base="xs:string">
            <xs:enumeration value="NA"/>
            <xs:enumeration value="ND"/>
        </xs:restriction>
    </xs:simpleType>
    <xs:simpleType name="DepthOrCode">
        <xs:union memberTypes="xs:decimal MissingCode"/>
    </xs:simpleType>
    <xs:element name="depths" type="DepthList"/>
    <xs:element name="interval" type="DepthPair"/>
    <xs:element name="reading" type="DepthOrCode"/>
</xs:schema>`, []validationCase{
		{name: "List items", xml: `<depths>1.5 2 3.25</depths>`, shouldPass: true},
		{name: "List item of the wrong type", xml: `<depths>1.5 deep</depths>`, errorString: "value 'deep' is not a valid decimal"},
		{name: "List length", xml: `<interval>0 1.5</interval>`, shouldPass: true},
		{name: "List too long", xml: `<interval>0 1.5 3</interval>`, errorString: "must have length 2, actual: 3"},
		{name: "First union member", xml: `<reading>4.5</reading>`, shouldPass: true},
		{name: "Second union member", xml: `<reading>ND</reading>`, shouldPass: true},
		{name: "No union member", xml: `<reading>unknown</reading>`, errorString: "value 'unknown' does not match any member type of the union"},
	})
}

func TestDecimalAndPatternFacets(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:element name="survey">
        <xs:complexType>
            <xs:sequence>
                <xs:element name="elevation">
                    <xs:simpleType>
                        <xs:restriction base="xs:decimal">
                            <xs:totalDigits value="5"/>
                            <xs:fractionDigits value="2"/>
                        </xs:restriction>
                    </xs:simpleType>
                </xs:element>
                <xs:element name="recovery">
                    <xs:simpleType>
                        <xs:restriction base="xs:decimal">
                            <xs:minExclusive value="0"/>
                            <xs:maxExclusive value="100"/>
                        </xs:restriction>
                    </xs:simpleType>
                </xs:element>
                <xs:element name="holeCode">
                    <xs:simpleType>
                        <xs:restriction base="xs:token">
                            <xs:pattern value="[A-Z]{2}-\d+"/>
                            <xs:pattern value="TBD"/>
                        </xs:restriction>
                    </xs:simpleType>
                </xs:element>
                <xs:element name="grade">
                    <xs:simpleType>
                        <xs:restriction base="xs:integer">
                            <xs:enumeration value="1"/>
                            <xs:enumeration value="2"/>
                        </xs:restriction>
                    </xs:simpleType>
                </xs:element>
                <xs:element name="label">
                    <xs:simpleType>
                        <xs:restriction base="xs:string">
                            <xs:pattern value="\i\c*"/>
                        </xs:restriction>
                    </xs:simpleType>
                </xs:element>
            </xs:sequence>
        </xs:complexType>
    </xs:element>
</xs:schema>`, []validationCase{
		{
			name:       "Values within facets",
			xml:        `<survey><elevation>123.45</elevation><recovery>99.5</recovery><holeCode> BH-12 </holeCode><grade>01</grade><label>BH.1</label></survey>`,
			shouldPass: true,
		},
		{
			name:       "Second pattern",
			xml:        `<survey><elevation>1</elevation><recovery>1</recovery><holeCode>TBD</holeCode><grade>2</grade><label>x</label></survey>`,
			shouldPass: true,
		},
		{
			name:        "Too many fraction digits",
			xml:         `<survey><elevation>123.456</elevation><recovery>1</recovery><holeCode>TBD</holeCode><grade>1</grade><label>x</label></survey>`,
			errorString: "value '123.456' has 3 fraction digits, but at most 2 are allowed",
		},
		{
			name:        "Too many digits",
			xml:         `<survey><elevation>123456</elevation><recovery>1</recovery><holeCode>TBD</holeCode><grade>1</grade><label>x</label></survey>`,
			errorString: "value '123456' has 6 digits, but at most 5 are allowed",
		},
		{
			name:        "Exclusive upper bound",
			xml:         `<survey><elevation>1</elevation><recovery>100</recovery><holeCode>TBD</holeCode><grade>1</grade><label>x</label></survey>`,
			errorString: "value '100' must be less than 100",
		},
		{
			name:        "Exclusive lower bound",
			xml:         `<survey><elevation>1</elevation><recovery>0</recovery><holeCode>TBD</holeCode><grade>1</grade><label>x</label></survey>`,
			errorString: "value '0' must be greater than 0",
		},
		{
			name:        "No pattern matches",
			xml:         `<survey><elevation>1</elevation><recovery>1</recovery><holeCode>bh</holeCode><grade>1</grade><label>x</label></survey>`,
			errorString: `value 'bh' does not match pattern '[A-Z]{2}-\d+|TBD'`,
		},
		{
			name:        "Numeric enumeration",
			xml:         `<survey><elevation>1</elevation><recovery>1</recovery><holeCode>TBD</holeCode><grade>3</grade><label>x</label></survey>`,
			errorString: "value '3' is not in the list of allowed values: [1, 2]",
		},
		{
			name:        "Name character escapes",
			xml:         `<survey><elevation>1</elevation><recovery>1</recovery><holeCode>TBD</holeCode><grade>1</grade><label>1BH</label></survey>`,
			errorString: `value '1BH' does not match pattern '\i\c*'`,
		},
	})
}

func TestBuiltinTypes(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:element name="activity">
        <xs:complexType>
            <xs:sequence>
                <xs:element name="startTime" type="xs:dateTime"/>
                <xs:element name="duration" type="xs:duration"/>
                <xs:element name="blowCount" type="xs:nonNegativeInteger"/>
                <xs:element name="reference" type="xs:anyURI"/>
                <xs:element name="approved" type="xs:boolean"/>
                <xs:element name="season" type="xs:gYear" minOccurs="0"/>
                <xs:element name="checksum" type="xs:hexBinary" minOccurs="0"/>
                <xs:element name="hammer" type="xs:unsignedByte" minOccurs="0"/>
                <xs:element name="language" type="xs:language" minOccurs="0"/>
            </xs:sequence>
        </xs:complexType>
    </xs:element>
</xs:schema>`, []validationCase{
		{
			name: "Valid values",
			xml: `<activity>
				<startTime>2023-12-25T10:30:00Z</startTime>
				<duration>P1DT4H</duration>
				<blowCount>12</blowCount>
				<reference>https://diggsml.org/def/codes</reference>
				<approved>1</approved>
				<season>2023</season>
				<checksum>0FA3</checksum>
				<hammer>140</hammer>
				<language>en-US</language>
			</activity>`,
			shouldPass: true,
		},
		{
			name:        "dateTime",
			xml:         `<activity><startTime>yesterday</startTime><duration>PT1H</duration><blowCount>1</blowCount><reference>r</reference><approved>true</approved></activity>`,
			errorString: "value 'yesterday' is not a valid dateTime",
		},
		{
			name:        "duration",
			xml:         `<activity><startTime>2023-01-01T12:00:00</startTime><duration>1 hour</duration><blowCount>1</blowCount><reference>r</reference><approved>true</approved></activity>`,
			errorString: "is not a valid duration",
		},
		{
			name:        "nonNegativeInteger",
			xml:         `<activity><startTime>2023-01-01T12:00:00</startTime><duration>PT1H</duration><blowCount>-1</blowCount><reference>r</reference><approved>true</approved></activity>`,
			errorString: "value '-1' must be non-negative",
		},
		{
			name:        "boolean",
			xml:         `<activity><startTime>2023-01-01T12:00:00</startTime><duration>PT1H</duration><blowCount>1</blowCount><reference>r</reference><approved>yes</approved></activity>`,
			errorString: "value 'yes' is not a valid boolean",
		},
		{
			name:        "gYear",
			xml:         `<activity><startTime>2023-01-01T12:00:00</startTime><duration>PT1H</duration><blowCount>1</blowCount><reference>r</reference><approved>true</approved><season>23</season></activity>`,
			errorString: "value '23' is not a valid gYear",
		},
		{
			name:        "hexBinary",
			xml:         `<activity><startTime>2023-01-01T12:00:00</startTime><duration>PT1H</duration><blowCount>1</blowCount><reference>r</reference><approved>true</approved><checksum>ABC</checksum></activity>`,
			errorString: "value 'ABC' is not a valid hexBinary",
		},
		{
			name:        "unsignedByte",
			xml:         `<activity><startTime>2023-01-01T12:00:00</startTime><duration>PT1H</duration><blowCount>1</blowCount><reference>r</reference><approved>true</approved><hammer>256</hammer></activity>`,
			errorString: "value '256' is out of range for unsignedByte",
		},
	})
}

func TestElementValueConstraints(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:element name="test">
        <xs:complexType>
            <xs:sequence>
                <xs:element name="method" type="xs:string" fixed="ASTM D1586"/>
                <xs:element name="hammerType" type="xs:token" default="safety"/>
                <xs:element name="notes" minOccurs="0"/>
            </xs:sequence>
        </xs:complexType>
    </xs:element>
</xs:schema>`, []validationCase{
		{name: "Fixed value given", xml: `<test><method>ASTM D1586</method><hammerType>auto</hammerType></test>`, shouldPass: true},
		{name: "Fixed and default values applied", xml: `<test><method/><hammerType/></test>`, shouldPass: true},
		{
			name:        "Fixed value differs",
			xml:         `<test><method>ISO 22476-3</method><hammerType/></test>`,
			errorString: "element <method> has fixed value 'ASTM D1586', but got 'ISO 22476-3'",
		},
		{
			name:       "Untyped element takes any content",
			xml:        `<test><method/><hammerType/><notes><line n="1">wet</line><line>dense</line></notes></test>`,
			shouldPass: true,
		},
		{
			name:        "Global element inside untyped content",
			xml:         `<test><method/><hammerType/><notes><test><hammerType/></test></notes></test>`,
			errorString: "element <test> requires at least 1 <method> child, but found 0",
		},
	})
}

func TestDocumentIdentifiers(t *testing.T) {
	runValidationCases(t, `
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
    <xs:element name="project">
        <xs:complexType>
            <xs:sequence>
                <xs:element name="sample" maxOccurs="unbounded">
                    <xs:complexType>
                        <xs:attribute name="id" type="xs:ID" use="required"/>
                        <xs:attribute name="parent" type="xs:IDREF"/>
                        <xs:attribute name="related" type="xs:IDREFS"/>
                    </xs:complexType>
                </xs:element>
            </xs:sequence>
        </xs:complexType>
    </xs:element>
</xs:schema>`, []validationCase{
		{
			name:       "References to declared IDs",
			xml:        `<project><sample id="s2" parent="s1"/><sample id="s1" related="s1 s2"/></project>`,
			shouldPass: true,
		},
		{
			name:        "Duplicate ID",
			xml:         `<project><sample id="s1"/><sample id="s1"/></project>`,
			errorString: "duplicate ID 's1' in element <sample>, first used on line 1",
		},
		{
			name:        "Dangling IDREF",
			xml:         `<project><sample id="s1" parent="s9"/></project>`,
			errorString: "IDREF 's9' in element <sample> does not match any ID in the document",
		},
		{
			name:        "Dangling IDREFS item",
			xml:         `<project><sample id="s1" related="s1 s7"/></project>`,
			errorString: "IDREF 's7' in element <sample> does not match any ID in the document",
		},
		{name: "Malformed ID", xml: `<project><sample id="1s"/></project>`, errorString: "value '1s' is not a valid ID"},
	})
}
