package xmlparser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"

	"golang.org/x/net/html/charset"
)

// entityDecl matches general entity declarations inside a DOCTYPE internal subset.
// Parameter entities (<!ENTITY % ...>) and unparsed NDATA entities are not matched.
var entityDecl = regexp.MustCompile(`<!ENTITY\s+([A-Za-z_:][\w.:-]*)\s+` +
	`(?:"([^"]*)"|'([^']*)'` +
	`|SYSTEM\s+(?:"([^"]*)"|'([^']*)')` +
	`|PUBLIC\s+(?:"([^"]*)"|'([^']*)')\s+(?:"([^"]*)"|'([^']*)'))\s*>`)

// Parse parses XML data and constructs a Document tree structure for validation.
// The encoding declared in the XML prolog is honored. External entities declared
// in the DOCTYPE are loaded through the configured Resolver.
func Parse(xmlBytes []byte, opts ...Option) (*Document, error) {
	cfg := newConfig(opts)

	decoder := xml.NewDecoder(bytes.NewReader(xmlBytes))
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Entity = make(map[string]string)

	parser := &xmlParser{
		decoder:  decoder,
		resolver: cfg.resolver,
		systemID: cfg.systemID,
		baseDir:  cfg.referenceDir(),
	}
	return parser.parseDocument()
}

// xmlParser handles the XML parsing state and logic.
type xmlParser struct {
	decoder     *xml.Decoder
	resolver    Resolver
	systemID    string
	baseDir     string
	currentNode *Node
	document    *Document
}

// parseDocument parses the entire XML document into a Document tree.
func (p *xmlParser) parseDocument() (*Document, error) {
	p.document = &Document{SystemID: p.systemID}

	for {
		token, err := p.decoder.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("XML parsing error: %w", err)
		}

		if err := p.processToken(token); err != nil {
			return nil, err
		}
	}

	if p.document.Root == nil {
		return nil, fmt.Errorf("XML document is empty or contains no root element")
	}

	return p.document, nil
}

// processToken processes a single XML token and updates the document tree.
func (p *xmlParser) processToken(token xml.Token) error {
	switch t := token.(type) {
	case xml.StartElement:
		return p.handleStartElement(t)
	case xml.CharData:
		return p.handleCharData(t)
	case xml.EndElement:
		p.handleEndElement()
	case xml.Directive:
		return p.handleDirective(t)
	default:
		// Comments and processing instructions carry nothing to validate.
	}
	return nil
}

// handleStartElement processes an XML start element token.
func (p *xmlParser) handleStartElement(element xml.StartElement) error {
	line, column := p.decoder.InputPos()
	if p.document.Root != nil && p.currentNode == nil {
		return fmt.Errorf("XML parsing error: line %d, column %d: extra content at the end of the document", line, column)
	}
	node := &Node{
		Parent: p.currentNode,
		Name:   element.Name,
		Attrs:  make([]xml.Attr, len(element.Attr)),
		Line:   line,
		Column: column,
	}

	// Copy attributes to avoid referencing the token's memory
	copy(node.Attrs, element.Attr)

	if p.document.Root == nil {
		p.document.Root = node
	}

	if p.currentNode != nil {
		p.currentNode.Children = append(p.currentNode.Children, node)
	}

	p.currentNode = node
	return nil
}

// handleCharData processes character data (text content) within an element.
// Only whitespace may appear outside the root element.
func (p *xmlParser) handleCharData(data xml.CharData) error {
	if p.currentNode != nil {
		p.currentNode.Content += string(data)
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	line, column := p.decoder.InputPos()
	if p.document.Root == nil {
		return fmt.Errorf("XML parsing error: line %d, column %d: text is not allowed before the root element", line, column)
	}
	return fmt.Errorf("XML parsing error: line %d, column %d: extra content at the end of the document", line, column)
}

// handleEndElement processes an XML end element token.
func (p *xmlParser) handleEndElement() {
	if p.currentNode != nil {
		p.currentNode = p.currentNode.Parent
	}
}

// handleDirective registers the entities declared in a DOCTYPE so that later
// references to them expand. External entities go through the resolver; an
// unresolved one stays undeclared and fails when referenced.
func (p *xmlParser) handleDirective(directive xml.Directive) error {
	if !bytes.HasPrefix(bytes.TrimSpace(directive), []byte("DOCTYPE")) {
		return nil
	}

	for _, m := range entityDecl.FindAllSubmatch(directive, -1) {
		name := string(m[1])
		if _, declared := p.decoder.Entity[name]; declared {
			// The first declaration of an entity is binding.
			continue
		}

		switch {
		case m[2] != nil || m[3] != nil:
			p.decoder.Entity[name] = string(m[2]) + string(m[3])
		default:
			systemID := string(m[4]) + string(m[5]) + string(m[8]) + string(m[9])
			publicID := string(m[6]) + string(m[7])
			entity, err := p.resolver.Resolve(ResolveRequest{
				SystemID: ResolveLocation(p.baseDir, systemID),
				PublicID: publicID,
				Referrer: p.systemID,
				Kind:     ResolveEntity,
			})
			if err != nil {
				return fmt.Errorf("failed to load external entity '%s': %w", name, err)
			}
			if entity != nil {
				p.decoder.Entity[name] = string(entity.Content)
			}
		}
	}
	return nil
}
