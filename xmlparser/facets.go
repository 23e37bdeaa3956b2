package xmlparser

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// checkValue returns a message for every way value fails to be an instance of sv.
func (s *Schema) checkValue(value string, sv *simpleValue) []string {
	problems := s.checkType(value, sv.name, sv.inline, 0)
	if len(sv.steps) == 0 {
		return problems
	}

	base := s.describe(sv.name, sv.inline, 0)
	for _, step := range sv.steps {
		if step.SimpleType != nil {
			problems = append(problems, s.checkSimpleType(value, step.SimpleType, 1)...)
		}
		problems = append(problems, s.checkFacets(value, &step.Facets, base)...)
	}
	return problems
}

// checkType validates value against a named type or an inline simple type.
func (s *Schema) checkType(value, name string, inline *SimpleType, depth int) []string {
	if depth > maxDerivationDepth {
		return []string{fmt.Sprintf("type derivation of '%s' is circular", name)}
	}
	if inline != nil {
		return s.checkSimpleType(value, inline, depth)
	}
	if name == "" {
		return nil
	}
	if builtin := s.builtinTypeName(name); builtin != "" {
		if !isBuiltinType(builtin) {
			return []string{fmt.Sprintf("type definition '%s' not found in schema", name)}
		}
		if err := checkBuiltin(value, builtin); err != nil {
			return []string{err.Error()}
		}
		return nil
	}
	if simpleType := s.lookupSimpleType(name); simpleType != nil {
		return s.checkSimpleType(value, simpleType, depth+1)
	}
	return []string{fmt.Sprintf("type definition '%s' not found in schema", name)}
}

func (s *Schema) checkSimpleType(value string, simpleType *SimpleType, depth int) []string {
	switch {
	case simpleType.Restriction != nil:
		r := simpleType.Restriction
		problems := s.checkType(value, r.Base, r.SimpleType, depth+1)
		return append(problems, s.checkFacets(value, &r.Facets, s.describe(r.Base, r.SimpleType, depth+1))...)

	case simpleType.List != nil:
		var problems []string
		for _, item := range strings.Fields(value) {
			problems = append(problems, s.checkType(item, simpleType.List.ItemType, simpleType.List.SimpleType, depth+1)...)
		}
		return problems

	case simpleType.Union != nil:
		union := simpleType.Union
		for _, member := range strings.Fields(union.MemberTypes) {
			if len(s.checkType(value, member, nil, depth+1)) == 0 {
				return nil
			}
		}
		for i := range union.SimpleTypes {
			if len(s.checkSimpleType(value, &union.SimpleTypes[i], depth+1)) == 0 {
				return nil
			}
		}
		return []string{fmt.Sprintf("value '%s' does not match any member type of the union", normalizeWhitespace(value, whitespaceCollapse))}
	}
	return nil
}

// baseDescription is what facet checks need to know about the type a
// restriction step applies to.
type baseDescription struct {
	// builtin is the built-in type the value derives from, "" when unknown.
	builtin    string
	list       bool
	whitespace string
}

func (b baseDescription) kind() valueKind {
	if b.list {
		return kindOther
	}
	if bt, ok := builtinTypes[b.builtin]; ok {
		return bt.kind
	}
	return kindString
}

// describe walks a type's restriction chain down to its built-in type. The
// nearest whiteSpace facet wins over the built-in's own handling.
func (s *Schema) describe(name string, inline *SimpleType, depth int) baseDescription {
	var desc baseDescription
	for ; depth <= maxDerivationDepth; depth++ {
		if inline == nil {
			if builtin := s.builtinTypeName(name); builtin != "" {
				bt := builtinTypes[builtin]
				desc.builtin = builtin
				desc.list = desc.list || bt.item != ""
				if desc.whitespace == "" {
					desc.whitespace = bt.whitespace
				}
				return desc
			}
			if inline = s.lookupSimpleType(name); inline == nil {
				break
			}
		}

		switch {
		case inline.Restriction != nil:
			if desc.whitespace == "" && inline.Restriction.WhiteSpace != nil {
				desc.whitespace = strings.TrimSpace(inline.Restriction.WhiteSpace.Value)
			}
			name, inline = inline.Restriction.Base, inline.Restriction.SimpleType
			continue
		case inline.List != nil:
			desc.list = true
		}
		break
	}
	if desc.whitespace == "" {
		desc.whitespace = whitespaceCollapse
	}
	return desc
}

// primitiveOf returns the built-in type sv derives from, or "" for lists,
// unions and unresolved names.
func (s *Schema) primitiveOf(sv *simpleValue) string {
	desc := s.describe(sv.name, sv.inline, 0)
	if desc.list && !isBuiltinList(desc.builtin) {
		return ""
	}
	return desc.builtin
}

func isBuiltinList(name string) bool {
	return builtinTypes[name].item != ""
}

// normalizeValue applies the whitespace handling of sv to value.
func (s *Schema) normalizeValue(value string, sv *simpleValue) string {
	desc := s.describe(sv.name, sv.inline, 0)
	for _, step := range sv.steps {
		if step.WhiteSpace != nil {
			desc.whitespace = strings.TrimSpace(step.WhiteSpace.Value)
		}
	}
	return normalizeWhitespace(value, desc.whitespace)
}

// checkFacets applies the constraining facets of one restriction step.
// Patterns within a step are alternatives; every other facet must hold.
func (s *Schema) checkFacets(value string, f *Facets, base baseDescription) []string {
	whitespace := base.whitespace
	if f.WhiteSpace != nil {
		whitespace = strings.TrimSpace(f.WhiteSpace.Value)
	}
	value = normalizeWhitespace(value, whitespace)

	var problems []string
	if len(f.Patterns) > 0 {
		if problem := checkPatterns(value, f.Patterns); problem != "" {
			problems = append(problems, problem)
		}
	}
	if len(f.Enumeration) > 0 {
		if problem := checkEnumeration(value, f.Enumeration, base); problem != "" {
			problems = append(problems, problem)
		}
	}
	problems = append(problems, checkLength(value, f, base)...)
	problems = append(problems, checkBounds(value, f, base)...)
	problems = append(problems, checkDigits(value, f, base)...)
	return problems
}

// patternCache holds compiled schema patterns, or the compile error, by source.
var patternCache sync.Map

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		if re, ok := cached.(*regexp.Regexp); ok {
			return re, nil
		}
		return nil, cached.(error)
	}
	re, err := regexp.Compile("^(?:" + translatePattern(pattern) + ")$")
	if err != nil {
		patternCache.Store(pattern, err)
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

// translatePattern rewrites the parts of XML Schema regular expression syntax
// that differ from RE2: the name escapes and the literal ^ and $.
func translatePattern(pattern string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			i++
			switch next := pattern[i]; {
			case next == 'i' && inClass:
				b.WriteString(nameStartChars)
			case next == 'i':
				b.WriteString("[" + nameStartChars + "]")
			case next == 'I' && !inClass:
				b.WriteString("[^" + nameStartChars + "]")
			case next == 'c' && inClass:
				b.WriteString(nameChars)
			case next == 'c':
				b.WriteString("[" + nameChars + "]")
			case next == 'C' && !inClass:
				b.WriteString("[^" + nameChars + "]")
			default:
				b.WriteByte('\\')
				b.WriteByte(next)
			}
		case c == '[' && !inClass:
			inClass = true
			b.WriteByte(c)
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				b.WriteByte('^')
				i++
			}
		case c == ']' && inClass:
			inClass = false
			b.WriteByte(c)
		case (c == '^' || c == '$') && !inClass:
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func checkPatterns(value string, patterns []Facet) string {
	for _, pattern := range patterns {
		re, err := compilePattern(pattern.Value)
		if err != nil {
			return fmt.Sprintf("invalid pattern in schema: %s", pattern.Value)
		}
		if re.MatchString(value) {
			return ""
		}
	}
	if len(patterns) == 1 {
		return fmt.Sprintf("value '%s' does not match pattern '%s'", value, patterns[0].Value)
	}
	alternatives := make([]string, len(patterns))
	for i, pattern := range patterns {
		alternatives[i] = pattern.Value
	}
	return fmt.Sprintf("value '%s' does not match pattern '%s'", value, strings.Join(alternatives, "|"))
}

func checkEnumeration(value string, enumerations []Facet, base baseDescription) string {
	allowed := make([]string, len(enumerations))
	for i, enum := range enumerations {
		allowed[i] = enum.Value
		if cmp, ok := compareValues(value, normalizeWhitespace(enum.Value, base.whitespace), base.kind()); ok && cmp == 0 {
			return ""
		}
		if value == normalizeWhitespace(enum.Value, base.whitespace) {
			return ""
		}
	}
	return fmt.Sprintf("value '%s' is not in the list of allowed values: [%s]", value, strings.Join(allowed, ", "))
}

// valueLength measures value the way the length facets count: items for
// lists, octets for binary types and characters otherwise.
func valueLength(value string, base baseDescription) int {
	switch {
	case base.list:
		return len(strings.Fields(value))
	case base.builtin == "xs:hexBinary":
		return len(value) / 2
	case base.builtin == "xs:base64Binary":
		decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(value), ""))
		if err != nil {
			return 0
		}
		return len(decoded)
	}
	return utf8.RuneCountInString(value)
}

func checkLength(value string, f *Facets, base baseDescription) []string {
	if f.Length == nil && f.MinLength == nil && f.MaxLength == nil {
		return nil
	}
	actual := valueLength(value, base)

	var problems []string
	limit := func(facet *Facet, name string) (int, bool) {
		if facet == nil {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(facet.Value))
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid %s value in schema: %s", name, facet.Value))
			return 0, false
		}
		return n, true
	}

	if n, ok := limit(f.Length, "length"); ok && actual != n {
		problems = append(problems, fmt.Sprintf("value '%s' must have length %d, actual: %d", value, n, actual))
	}
	if n, ok := limit(f.MinLength, "minLength"); ok && actual < n {
		problems = append(problems, fmt.Sprintf("value '%s' is too short (minimum length: %d, actual: %d)", value, n, actual))
	}
	if n, ok := limit(f.MaxLength, "maxLength"); ok && actual > n {
		problems = append(problems, fmt.Sprintf("value '%s' is too long (maximum length: %d, actual: %d)", value, n, actual))
	}
	return problems
}

func checkBounds(value string, f *Facets, base baseDescription) []string {
	kind := base.kind()
	var problems []string
	check := func(facet *Facet, violates func(cmp int) bool, message string) {
		if facet == nil {
			return
		}
		limit := strings.TrimSpace(facet.Value)
		if _, ok := compareValues(limit, limit, kind); !ok {
			if kind != kindString && kind != kindOther {
				problems = append(problems, fmt.Sprintf("invalid limit value in schema: %s", limit))
			}
			return
		}
		// A value outside the lexical space is already reported by the type check.
		if cmp, ok := compareValues(value, limit, kind); ok && violates(cmp) {
			problems = append(problems, fmt.Sprintf(message, value, limit))
		}
	}

	check(f.MinInclusive, func(cmp int) bool { return cmp < 0 }, "value '%s' below minimum allowed value %s")
	check(f.MinExclusive, func(cmp int) bool { return cmp <= 0 }, "value '%s' must be greater than %s")
	check(f.MaxInclusive, func(cmp int) bool { return cmp > 0 }, "value '%s' exceeds maximum allowed value %s")
	check(f.MaxExclusive, func(cmp int) bool { return cmp >= 0 }, "value '%s' must be less than %s")
	return problems
}

func checkDigits(value string, f *Facets, base baseDescription) []string {
	if (f.TotalDigits == nil && f.FractionDigits == nil) || base.kind() != kindDecimal || !decimalLexical.MatchString(value) {
		return nil
	}
	total, fraction := countDigits(value)

	var problems []string
	if f.TotalDigits != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(f.TotalDigits.Value)); err == nil && total > n {
			problems = append(problems, fmt.Sprintf("value '%s' has %d digits, but at most %d are allowed", value, total, n))
		}
	}
	if f.FractionDigits != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(f.FractionDigits.Value)); err == nil && fraction > n {
			problems = append(problems, fmt.Sprintf("value '%s' has %d fraction digits, but at most %d are allowed", value, fraction, n))
		}
	}
	return problems
}

// countDigits counts the significant digits of a decimal literal and the
// digits after its decimal point, ignoring leading and trailing zeros.
func countDigits(value string) (total, fraction int) {
	value = strings.TrimLeft(value, "+-")
	integer, frac, _ := strings.Cut(value, ".")
	integer = strings.TrimLeft(integer, "0")
	frac = strings.TrimRight(frac, "0")
	total = len(integer) + len(frac)
	if total == 0 {
		total = 1
	}
	return total, len(frac)
}

// compareValues orders two values of the same kind. It reports false when the
// kind has no order or either value is not in its lexical space.
func compareValues(a, b string, kind valueKind) (int, bool) {
	switch kind {
	case kindDecimal:
		x, okA := parseDecimal(a)
		y, okB := parseDecimal(b)
		if !okA || !okB {
			return 0, false
		}
		return x.Cmp(y), true

	case kindFloat:
		x, errA := strconv.ParseFloat(a, 64)
		y, errB := strconv.ParseFloat(b, 64)
		if errA != nil || errB != nil || math.IsNaN(x) || math.IsNaN(y) {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true

	case kindDateTime, kindDate, kindTime:
		x, okA := parseTemporal(a, kind)
		y, okB := parseTemporal(b, kind)
		if !okA || !okB {
			return 0, false
		}
		return x.Compare(y), true

	case kindYear:
		x, errA := strconv.Atoi(strings.TrimRight(a, "Z"))
		y, errB := strconv.Atoi(strings.TrimRight(b, "Z"))
		if errA != nil || errB != nil {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func parseDecimal(value string) (*big.Rat, bool) {
	if !decimalLexical.MatchString(value) {
		return nil, false
	}
	value = strings.TrimPrefix(value, "+")
	negative := strings.HasPrefix(value, "-")
	value = strings.TrimPrefix(value, "-")
	if strings.HasPrefix(value, ".") {
		value = "0" + value
	}
	value = strings.TrimSuffix(value, ".")
	if negative {
		value = "-" + value
	}
	return new(big.Rat).SetString(value)
}

var temporalLayouts = map[valueKind][]string{
	kindDateTime: {"2006-01-02T15:04:05.999999999Z07:00", "2006-01-02T15:04:05.999999999"},
	kindDate:     {"2006-01-02Z07:00", "2006-01-02"},
	kindTime:     {"15:04:05.999999999Z07:00", "15:04:05.999999999"},
}

func parseTemporal(value string, kind valueKind) (time.Time, bool) {
	for _, layout := range temporalLayouts[kind] {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
