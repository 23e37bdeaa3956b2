package xmlparser

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// unbounded is the parsed form of maxOccurs="unbounded".
const unbounded = -1

// occurs parses minOccurs and maxOccurs, both defaulting to one.
func occurs(minOccurs, maxOccurs string) (min, max int) {
	min, max = 1, 1
	if n, err := strconv.Atoi(strings.TrimSpace(minOccurs)); err == nil && n >= 0 {
		min = n
	}
	switch maxOccurs = strings.TrimSpace(maxOccurs); {
	case maxOccurs == "unbounded":
		max = unbounded
	case maxOccurs != "":
		if n, err := strconv.Atoi(maxOccurs); err == nil && n >= 0 {
			max = n
		}
	}
	return min, max
}

func (p Particle) occurs() (min, max int) {
	switch {
	case p.Element != nil:
		return occurs(p.Element.MinOccurs, p.Element.MaxOccurs)
	case p.Any != nil:
		return occurs(p.Any.MinOccurs, p.Any.MaxOccurs)
	case p.Group != nil:
		return occurs(p.Group.MinOccurs, p.Group.MaxOccurs)
	case p.GroupRef != nil:
		return occurs(p.GroupRef.MinOccurs, p.GroupRef.MaxOccurs)
	}
	return 0, 0
}

// groupOf returns the model group a group particle stands for, with the
// reference's occurrence constraints applied to named groups.
func (s *Schema) groupOf(p Particle) *ModelGroup {
	if p.Group != nil {
		return p.Group
	}
	if p.GroupRef == nil {
		return nil
	}
	named := s.lookupGroup(p.GroupRef.Ref)
	if named == nil || named.Model() == nil {
		return nil
	}
	g := *named.Model()
	g.MinOccurs, g.MaxOccurs = p.GroupRef.MinOccurs, p.GroupRef.MaxOccurs
	return &g
}

// matchElement returns the declaration a document element takes when it fills
// the element particle, or nil when it cannot. Members of the particle's
// substitution group are accepted in its place.
func (s *Schema) matchElement(node *Node, particle *Element) *Element {
	if s.elementsMatch(node.Name, particle.QualifiedName()) {
		return s.resolveRef(particle)
	}
	if particle.Ref == "" {
		return nil
	}
	head := s.lookupElement(particle.Ref)
	if head == nil {
		return nil
	}
	for _, member := range s.substitutionMembers(head) {
		if s.elementsMatch(node.Name, member.Name) {
			return member
		}
	}
	return nil
}

// elementsMatch checks if a child element matches a schema element definition considering namespaces.
func (s *Schema) elementsMatch(childName xml.Name, schemaElementName string) bool {
	// For unqualified schema elements, match against local name
	if !strings.Contains(schemaElementName, ":") {
		return childName.Local == schemaElementName
	}

	resolved := s.ResolveQName(schemaElementName)
	return childName.Local == resolved.LocalName &&
		(childName.Space == resolved.Namespace ||
			(childName.Space == "" && resolved.Namespace == s.TargetNamespace))
}

// wildcardAllows reports whether namespace satisfies a wildcard's namespace constraint.
func wildcardAllows(constraint, targetNamespace, namespace string) bool {
	switch strings.TrimSpace(constraint) {
	case "", "##any":
		return true
	case "##other":
		return namespace != targetNamespace && namespace != ""
	}
	for _, token := range strings.Fields(constraint) {
		switch token {
		case "##targetNamespace":
			if namespace == targetNamespace {
				return true
			}
		case "##local":
			if namespace == "" {
				return true
			}
		default:
			if namespace == token {
				return true
			}
		}
	}
	return false
}

// canStart reports whether node can be the first element matched by the body
// of particle p, ignoring p's own occurrence constraints.
func (s *Schema) canStart(p Particle, node *Node, depth int) bool {
	if depth > maxDerivationDepth {
		return false
	}
	switch {
	case p.Element != nil:
		return s.matchElement(node, p.Element) != nil
	case p.Any != nil:
		return wildcardAllows(p.Any.Namespace, p.Any.TargetNamespace, node.Name.Space)
	}

	g := s.groupOf(p)
	if g == nil {
		return false
	}
	for _, item := range g.Particles {
		if s.canStart(item, node, depth+1) {
			return true
		}
		if g.Compositor == CompositorSequence && !s.emptiable(item, depth+1) {
			return false
		}
	}
	return false
}

// emptiable reports whether particle p can match no elements at all.
func (s *Schema) emptiable(p Particle, depth int) bool {
	if min, _ := p.occurs(); min == 0 {
		return true
	}
	return s.bodyEmptiable(p, depth)
}

// bodyEmptiable reports whether one occurrence of p can match no elements.
func (s *Schema) bodyEmptiable(p Particle, depth int) bool {
	if p.Element != nil || p.Any != nil || depth > maxDerivationDepth {
		return false
	}
	g := s.groupOf(p)
	if g == nil {
		return true
	}
	if g.Compositor == CompositorChoice {
		if len(g.Particles) == 0 {
			return true
		}
		for _, item := range g.Particles {
			if s.emptiable(item, depth+1) {
				return true
			}
		}
		return false
	}
	for _, item := range g.Particles {
		if !s.emptiable(item, depth+1) {
			return false
		}
	}
	return true
}

// declarationIn finds the declaration node takes anywhere inside particle p.
// It returns the wildcard instead when only a wildcard accepts the element.
func (s *Schema) declarationIn(p Particle, node *Node, depth int) (*Element, *Any) {
	if depth > maxDerivationDepth {
		return nil, nil
	}
	switch {
	case p.Element != nil:
		return s.matchElement(node, p.Element), nil
	case p.Any != nil:
		if wildcardAllows(p.Any.Namespace, p.Any.TargetNamespace, node.Name.Space) {
			return nil, p.Any
		}
		return nil, nil
	}

	g := s.groupOf(p)
	if g == nil {
		return nil, nil
	}
	var wildcard *Any
	for _, item := range g.Particles {
		decl, w := s.declarationIn(item, node, depth+1)
		if decl != nil {
			return decl, nil
		}
		if wildcard == nil {
			wildcard = w
		}
	}
	return nil, wildcard
}

// overflow records a particle that reached its maxOccurs, so surplus elements
// found after the content model is exhausted are reported against it.
type overflow struct {
	particle Particle
	max      int
	count    int
	names    []string
	surplus  int
}

// contentMatcher walks the children of one element through its content model.
// Children are consumed in order; a required particle that finds its element
// further ahead takes it out of order and reports that once.
type contentMatcher struct {
	v      *validation
	parent *Node
	model  Particle

	children []*Node
	used     []bool
	known    []int8 // 0 unknown, 1 allowed by the model, -1 foreign
	pos      int
	taken    int

	overflows   []*overflow
	diagnostics []Diagnostic
}

func (v *validation) matchContent(node *Node, model *ModelGroup) []Diagnostic {
	m := &contentMatcher{
		v:        v,
		parent:   node,
		model:    Particle{Group: model},
		children: node.Children,
		used:     make([]bool, len(node.Children)),
		known:    make([]int8, len(node.Children)),
	}
	m.particle(m.model, 0)
	m.leftovers()
	return m.diagnostics
}

func (m *contentMatcher) report(node *Node, format string, args ...any) {
	m.diagnostics = append(m.diagnostics, diag(node, format, args...))
}

// isKnown reports whether any particle of the content model accepts the child at i.
func (m *contentMatcher) isKnown(i int) bool {
	if m.known[i] == 0 {
		m.known[i] = -1
		if decl, w := m.v.declarationIn(m.model, m.children[i], 0); decl != nil || w != nil {
			m.known[i] = 1
		}
	}
	return m.known[i] == 1
}

// peek returns the next unconsumed child. Children the content model cannot
// accept anywhere are reported and skipped.
func (m *contentMatcher) peek() *Node {
	for m.pos < len(m.children) {
		if m.used[m.pos] {
			m.pos++
			continue
		}
		if !m.isKnown(m.pos) {
			m.foreign(m.children[m.pos])
			m.used[m.pos] = true
			m.pos++
			continue
		}
		return m.children[m.pos]
	}
	return nil
}

// foreign reports a child that no particle of the content model accepts.
func (m *contentMatcher) foreign(child *Node) {
	switch m.model.Group.Compositor {
	case CompositorChoice:
		m.report(child, "element <%s> is not a valid choice for <%s>", child.Name.Local, m.parent.Name.Local)
	case CompositorAll:
		m.report(child, "element <%s> is not allowed in xs:all group of <%s>", child.Name.Local, m.parent.Name.Local)
	default:
		m.report(child, "element <%s> is not a valid child of <%s>", child.Name.Local, m.parent.Name.Local)
	}
}

// take consumes the child at index i and validates it against decl.
func (m *contentMatcher) take(i int, decl *Element) {
	m.used[i] = true
	m.taken++
	if i == m.pos {
		m.pos++
	}
	m.diagnostics = append(m.diagnostics, m.v.validateElement(m.children[i], decl)...)
}

func (m *contentMatcher) particle(p Particle, depth int) {
	if depth > maxDerivationDepth {
		m.report(m.parent, "content model of <%s> is nested too deeply", m.parent.Name.Local)
		return
	}
	switch {
	case p.Element != nil:
		m.element(p.Element)
	case p.Any != nil:
		m.wildcard(p.Any)
	default:
		g := m.v.groupOf(p)
		if g == nil {
			m.report(m.parent, "group '%s' not found in schema", p.GroupRef.Ref)
			return
		}
		switch g.Compositor {
		case CompositorChoice:
			m.choice(g, depth)
		case CompositorAll:
			m.all(g)
		default:
			m.sequence(g, depth)
		}
	}
}

func (m *contentMatcher) element(particle *Element) {
	min, max := occurs(particle.MinOccurs, particle.MaxOccurs)
	name := localName(particle.QualifiedName())

	count := 0
	for max == unbounded || count < max {
		child := m.peek()
		if child == nil {
			break
		}
		decl := m.v.matchElement(child, particle)
		if decl == nil {
			break
		}
		m.take(m.pos, decl)
		count++
	}

	for i := m.pos; count < min && i < len(m.children); i++ {
		if m.used[i] {
			continue
		}
		child := m.children[i]
		if decl := m.v.matchElement(child, particle); decl != nil {
			m.report(child, "element <%s> is out of order in <%s>", child.Name.Local, m.parent.Name.Local)
			m.take(i, decl)
			count++
		}
	}

	if count < min {
		m.report(m.parent, "element <%s> requires at least %d <%s> child, but found %d",
			m.parent.Name.Local, min, name, count)
	}
	if max != unbounded && count == max && count > 0 {
		m.overflows = append(m.overflows, &overflow{particle: Particle{Element: particle}, max: max, count: count})
	}
}

func (m *contentMatcher) wildcard(w *Any) {
	min, max := occurs(w.MinOccurs, w.MaxOccurs)

	count := 0
	for max == unbounded || count < max {
		child := m.peek()
		if child == nil || !wildcardAllows(w.Namespace, w.TargetNamespace, child.Name.Space) {
			break
		}
		m.used[m.pos] = true
		m.taken++
		m.pos++
		m.diagnostics = append(m.diagnostics, m.v.validateWildcardElement(child, w)...)
		count++
	}

	if count < min {
		m.report(m.parent, "element <%s> requires at least %d child element(s) matching the wildcard, but found %d",
			m.parent.Name.Local, min, count)
	}
}

func (m *contentMatcher) sequence(g *ModelGroup, depth int) {
	min, max := occurs(g.MinOccurs, g.MaxOccurs)
	self := Particle{Group: g}

	for n := 0; max == unbounded || n < max; n++ {
		child := m.peek()
		if n >= min && (child == nil || !m.v.canStart(self, child, depth)) {
			return
		}
		before := m.taken
		for _, item := range g.Particles {
			m.particle(item, depth+1)
		}
		if m.taken == before {
			return
		}
	}
}

func (m *contentMatcher) choice(g *ModelGroup, depth int) {
	min, max := occurs(g.MinOccurs, g.MaxOccurs)

	count := 0
	var names []string
	for max == unbounded || count < max {
		child := m.peek()
		if child == nil {
			break
		}
		branch, ok := m.branchFor(g, child, depth)
		if !ok {
			break
		}
		before := m.taken
		m.particle(branch, depth+1)
		if m.taken == before {
			break
		}
		names = append(names, child.Name.Local)
		count++
	}

	if count < min && !m.v.bodyEmptiable(Particle{Group: g}, depth) {
		m.report(m.parent, "element <%s> must contain at least one choice element", m.parent.Name.Local)
	}
	if max != unbounded && count == max && count > 0 {
		m.overflows = append(m.overflows, &overflow{particle: Particle{Group: g}, max: max, count: count, names: names})
	}
}

// branchFor returns the first alternative of a choice that child can start.
func (m *contentMatcher) branchFor(g *ModelGroup, child *Node, depth int) (Particle, bool) {
	for _, branch := range g.Particles {
		if m.v.canStart(branch, child, depth+1) {
			return branch, true
		}
	}
	return Particle{}, false
}

func (m *contentMatcher) all(g *ModelGroup) {
	seen := make(map[*Element]int)
	for {
		child := m.peek()
		if child == nil {
			break
		}
		var particle, decl *Element
		for _, item := range g.Particles {
			if item.Element == nil {
				continue
			}
			if d := m.v.matchElement(child, item.Element); d != nil {
				particle, decl = item.Element, d
				break
			}
		}
		if particle == nil {
			break
		}
		seen[particle]++
		m.take(m.pos, decl)
	}

	for _, item := range g.Particles {
		if item.Element == nil {
			continue
		}
		name := localName(item.Element.QualifiedName())
		if count := seen[item.Element]; count > 1 {
			m.report(m.parent, "element <%s> appears %d times in xs:all group, but maximum is 1", name, count)
		}
	}

	if min, _ := occurs(g.MinOccurs, ""); min == 0 && len(seen) == 0 {
		return
	}
	for _, item := range g.Particles {
		if item.Element == nil || seen[item.Element] > 0 {
			continue
		}
		if min, _ := occurs(item.Element.MinOccurs, item.Element.MaxOccurs); min > 0 {
			m.report(m.parent, "required element <%s> is missing from xs:all group in <%s>",
				localName(item.Element.QualifiedName()), m.parent.Name.Local)
		}
	}
}

// leftovers reports the children still unconsumed once the content model is
// exhausted. Surplus occurrences of a saturated particle are counted against it.
func (m *contentMatcher) leftovers() {
	for i, child := range m.children {
		if m.used[i] {
			continue
		}
		if !m.isKnown(i) {
			m.foreign(child)
			continue
		}

		o := m.overflowFor(child)
		if o == nil {
			m.report(child, "element <%s> is not expected at this position in <%s>", child.Name.Local, m.parent.Name.Local)
			continue
		}
		o.surplus++
		o.names = append(o.names, child.Name.Local)
		if decl, _ := m.v.declarationIn(o.particle, child, 0); decl != nil {
			m.diagnostics = append(m.diagnostics, m.v.validateElement(child, decl)...)
		}
	}

	for _, o := range m.overflows {
		if o.surplus == 0 {
			continue
		}
		switch {
		case o.particle.Element != nil:
			m.report(m.parent, "element <%s> allows at most %d <%s> child, but found %d",
				m.parent.Name.Local, o.max, localName(o.particle.Element.QualifiedName()), o.count+o.surplus)
		case o.max == 1:
			m.report(m.parent, "element <%s> choice allows only one alternative, but found: [%s]",
				m.parent.Name.Local, strings.Join(o.names, ", "))
		default:
			m.report(m.parent, "element <%s> choice allows at most %d alternatives, but found %d",
				m.parent.Name.Local, o.max, o.count+o.surplus)
		}
	}
}

// overflowFor returns the most recent saturated particle that would accept child.
func (m *contentMatcher) overflowFor(child *Node) *overflow {
	for i := len(m.overflows) - 1; i >= 0; i-- {
		o := m.overflows[i]
		if m.v.canStart(o.particle, child, 0) {
			return o
		}
	}
	return nil
}

// localName strips the prefix from a schema element name.
func localName(name string) string {
	if _, local, found := strings.Cut(name, ":"); found {
		return local
	}
	return name
}
