package xmlparser

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"
)

// Whitespace handling of a simple type, as set by the whiteSpace facet.
const (
	whitespacePreserve = "preserve"
	whitespaceReplace  = "replace"
	whitespaceCollapse = "collapse"
)

// XML name characters, shared by the Name family of built-in types and by the
// \i and \c escapes of schema patterns.
const (
	nameStartChars = `:A-Z_a-z\x{C0}-\x{D6}\x{D8}-\x{F6}\x{F8}-\x{2FF}\x{370}-\x{37D}\x{37F}-\x{1FFF}` +
		`\x{200C}-\x{200D}\x{2070}-\x{218F}\x{2C00}-\x{2FEF}\x{3001}-\x{D7FF}\x{F900}-\x{FDCF}\x{FDF0}-\x{FFFD}\x{10000}-\x{EFFFF}`
	nameChars = nameStartChars + `\-.0-9\x{B7}\x{300}-\x{36F}\x{203F}-\x{2040}`

	ncNameStart = `[A-Z_a-z\x{C0}-\x{D6}\x{D8}-\x{F6}\x{F8}-\x{2FF}\x{370}-\x{37D}\x{37F}-\x{1FFF}` +
		`\x{200C}-\x{200D}\x{2070}-\x{218F}\x{2C00}-\x{2FEF}\x{3001}-\x{D7FF}\x{F900}-\x{FDCF}\x{FDF0}-\x{FFFD}\x{10000}-\x{EFFFF}]`
	ncNameRest = `[A-Z_a-z\-.0-9\x{B7}\x{300}-\x{36F}\x{203F}-\x{2040}\x{C0}-\x{D6}\x{D8}-\x{F6}\x{F8}-\x{2FF}\x{370}-\x{37D}` +
		`\x{37F}-\x{1FFF}\x{200C}-\x{200D}\x{2070}-\x{218F}\x{2C00}-\x{2FEF}\x{3001}-\x{D7FF}\x{F900}-\x{FDCF}\x{FDF0}-\x{FFFD}\x{10000}-\x{EFFFF}]`
	ncName = ncNameStart + ncNameRest + `*`

	timezone = `(Z|[+-]((0[0-9]|1[0-3]):[0-5][0-9]|14:00))?`
	date     = `-?([1-9][0-9]{4,}|[0-9]{4})-(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])`
	clock    = `(([01][0-9]|2[0-3]):[0-5][0-9]:[0-5][0-9](\.[0-9]+)?|24:00:00(\.0+)?)`
	decimal  = `[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)`
)

var (
	integerLexical  = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalLexical  = regexp.MustCompile(`^` + decimal + `$`)
	floatLexical    = regexp.MustCompile(`^(` + decimal + `([eE][+-]?[0-9]+)?|[+-]?INF|NaN)$`)
	durationLexical = regexp.MustCompile(`^-?P([0-9]+Y)?([0-9]+M)?([0-9]+D)?(T([0-9]+H)?([0-9]+M)?([0-9]+(\.[0-9]+)?S)?)?$`)
	nameLexical     = regexp.MustCompile(`^[` + nameStartChars + `][` + nameChars + `]*$`)
	ncNameLexical   = regexp.MustCompile(`^` + ncName + `$`)
	nmtokenLexical  = regexp.MustCompile(`^[` + nameChars + `]+$`)
	qnameLexical    = regexp.MustCompile(`^(` + ncName + `:)?` + ncName + `$`)
	languageLexical = regexp.MustCompile(`^[a-zA-Z]{1,8}(-[a-zA-Z0-9]{1,8})*$`)
	hexLexical      = regexp.MustCompile(`^([0-9A-Fa-f]{2})*$`)
)

// valueKind groups built-in types by how their values compare.
type valueKind uint8

const (
	kindString valueKind = iota
	kindDecimal
	kindFloat
	kindDateTime
	kindDate
	kindTime
	kindYear
	kindBinary
	kindOther
)

// builtinType describes one XML Schema built-in simple type.
type builtinType struct {
	kind       valueKind
	whitespace string
	// lexical is nil for types whose lexical space is every string.
	lexical *regexp.Regexp
	// format is appended to the invalid value message.
	format string
	// item is set for the built-in list types.
	item string
	// min and max bound the integer family.
	min, max *big.Int
	check    func(string) bool
}

func bound(s string) *big.Int {
	n, _ := new(big.Int).SetString(s, 10)
	return n
}

var builtinTypes = map[string]builtinType{
	"xs:anySimpleType":      {kind: kindString, whitespace: whitespacePreserve},
	"xs:anyAtomicType":      {kind: kindString, whitespace: whitespacePreserve},
	"xs:string":             {kind: kindString, whitespace: whitespacePreserve},
	"xs:normalizedString":   {kind: kindString, whitespace: whitespaceReplace},
	"xs:token":              {kind: kindString, whitespace: whitespaceCollapse},
	"xs:language":           {kind: kindString, whitespace: whitespaceCollapse, lexical: languageLexical},
	"xs:Name":               {kind: kindString, whitespace: whitespaceCollapse, lexical: nameLexical},
	"xs:NCName":             {kind: kindString, whitespace: whitespaceCollapse, lexical: ncNameLexical, format: "no colons allowed"},
	"xs:ID":                 {kind: kindString, whitespace: whitespaceCollapse, lexical: ncNameLexical},
	"xs:IDREF":              {kind: kindString, whitespace: whitespaceCollapse, lexical: ncNameLexical},
	"xs:ENTITY":             {kind: kindString, whitespace: whitespaceCollapse, lexical: ncNameLexical},
	"xs:NMTOKEN":            {kind: kindString, whitespace: whitespaceCollapse, lexical: nmtokenLexical},
	"xs:IDREFS":             {kind: kindString, whitespace: whitespaceCollapse, item: "xs:IDREF"},
	"xs:ENTITIES":           {kind: kindString, whitespace: whitespaceCollapse, item: "xs:ENTITY"},
	"xs:NMTOKENS":           {kind: kindString, whitespace: whitespaceCollapse, item: "xs:NMTOKEN"},
	"xs:QName":              {kind: kindOther, whitespace: whitespaceCollapse, lexical: qnameLexical},
	"xs:NOTATION":           {kind: kindOther, whitespace: whitespaceCollapse, lexical: qnameLexical},
	"xs:anyURI":             {kind: kindString, whitespace: whitespaceCollapse, check: validURI},
	"xs:boolean":            {kind: kindOther, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^(true|false|1|0)$`), format: "expected: true, false, 1, or 0"},
	"xs:decimal":            {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: decimalLexical},
	"xs:float":              {kind: kindFloat, whitespace: whitespaceCollapse, lexical: floatLexical},
	"xs:double":             {kind: kindFloat, whitespace: whitespaceCollapse, lexical: floatLexical},
	"xs:duration":           {kind: kindOther, whitespace: whitespaceCollapse, lexical: durationLexical, format: "expected format: PnYnMnDTnHnMnS", check: validDuration},
	"xs:dateTime":           {kind: kindDateTime, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^` + date + `T` + clock + timezone + `$`), format: "expected format: YYYY-MM-DDTHH:mm:ss"},
	"xs:date":               {kind: kindDate, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^` + date + timezone + `$`), format: "expected format: YYYY-MM-DD"},
	"xs:time":               {kind: kindTime, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^` + clock + timezone + `$`), format: "expected format: HH:mm:ss"},
	"xs:gYear":              {kind: kindYear, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^-?([1-9][0-9]{4,}|[0-9]{4})` + timezone + `$`), format: "expected format: YYYY"},
	"xs:gYearMonth":         {kind: kindOther, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^-?([1-9][0-9]{4,}|[0-9]{4})-(0[1-9]|1[0-2])` + timezone + `$`), format: "expected format: YYYY-MM"},
	"xs:gMonth":             {kind: kindOther, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^--(0[1-9]|1[0-2])` + timezone + `$`), format: "expected format: --MM"},
	"xs:gMonthDay":          {kind: kindOther, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^--(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])` + timezone + `$`), format: "expected format: --MM-DD"},
	"xs:gDay":               {kind: kindOther, whitespace: whitespaceCollapse, lexical: regexp.MustCompile(`^---(0[1-9]|[12][0-9]|3[01])` + timezone + `$`), format: "expected format: ---DD"},
	"xs:hexBinary":          {kind: kindBinary, whitespace: whitespaceCollapse, lexical: hexLexical},
	"xs:base64Binary":       {kind: kindBinary, whitespace: whitespaceCollapse, check: validBase64},
	"xs:integer":            {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical},
	"xs:nonPositiveInteger": {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, max: bound("0")},
	"xs:negativeInteger":    {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, max: bound("-1")},
	"xs:long":               {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("-9223372036854775808"), max: bound("9223372036854775807")},
	"xs:int":                {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("-2147483648"), max: bound("2147483647")},
	"xs:short":              {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("-32768"), max: bound("32767")},
	"xs:byte":               {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("-128"), max: bound("127")},
	"xs:nonNegativeInteger": {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("0")},
	"xs:unsignedLong":       {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("0"), max: bound("18446744073709551615")},
	"xs:unsignedInt":        {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("0"), max: bound("4294967295")},
	"xs:unsignedShort":      {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("0"), max: bound("65535")},
	"xs:unsignedByte":       {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("0"), max: bound("255")},
	"xs:positiveInteger":    {kind: kindDecimal, whitespace: whitespaceCollapse, lexical: integerLexical, min: bound("1")},
}

// isBuiltinType reports whether name, in "xs:" form, is a built-in simple type.
func isBuiltinType(name string) bool {
	_, ok := builtinTypes[name]
	return ok
}

// checkBuiltin validates value against a built-in type after applying the
// type's whitespace handling.
func checkBuiltin(value, typeName string) error {
	bt, ok := builtinTypes[typeName]
	if !ok {
		return nil
	}
	value = normalizeWhitespace(value, bt.whitespace)
	short := strings.TrimPrefix(typeName, "xs:")

	if bt.item != "" {
		items := strings.Fields(value)
		if len(items) == 0 {
			return fmt.Errorf("value '%s' is not a valid %s (at least one item required)", value, short)
		}
		for _, item := range items {
			if err := checkBuiltin(item, bt.item); err != nil {
				return err
			}
		}
		return nil
	}

	if (bt.lexical != nil && !bt.lexical.MatchString(value)) || (bt.check != nil && !bt.check(value)) {
		if bt.format != "" {
			return fmt.Errorf("value '%s' is not a valid %s (%s)", value, short, bt.format)
		}
		return fmt.Errorf("value '%s' is not a valid %s", value, short)
	}

	if bt.min == nil && bt.max == nil {
		return nil
	}
	n, _ := new(big.Int).SetString(strings.TrimPrefix(value, "+"), 10)
	switch {
	case typeName == "xs:nonNegativeInteger" && n.Cmp(bt.min) < 0:
		return fmt.Errorf("value '%s' must be non-negative", value)
	case typeName == "xs:positiveInteger" && n.Cmp(bt.min) < 0:
		return fmt.Errorf("value '%s' must be positive", value)
	case typeName == "xs:nonPositiveInteger" && n.Cmp(bt.max) > 0:
		return fmt.Errorf("value '%s' must be non-positive", value)
	case typeName == "xs:negativeInteger" && n.Cmp(bt.max) > 0:
		return fmt.Errorf("value '%s' must be negative", value)
	case (bt.min != nil && n.Cmp(bt.min) < 0) || (bt.max != nil && n.Cmp(bt.max) > 0):
		return fmt.Errorf("value '%s' is out of range for %s", value, short)
	}
	return nil
}

func validURI(value string) bool {
	if strings.ContainsAny(value, " \t\n\r") {
		return false
	}
	_, err := url.Parse(value)
	return err == nil
}

func validBase64(value string) bool {
	_, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(value), ""))
	return err == nil
}

// validDuration rejects the forms the lexical pattern lets through: a bare
// "P" and a "T" with no time components.
func validDuration(value string) bool {
	value = strings.TrimPrefix(value, "-")
	return value != "P" && !strings.HasSuffix(value, "T")
}

// normalizeWhitespace applies a whiteSpace facet value to s.
func normalizeWhitespace(s, rule string) string {
	switch rule {
	case whitespaceReplace:
		return strings.Map(func(r rune) rune {
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			return r
		}, s)
	case whitespaceCollapse:
		return strings.Join(strings.Fields(s), " ")
	default:
		return s
	}
}
