package cst

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trussci/truss/pkg/logger"
)

var parseLog = logger.New("cst:parser")

// ErrEmptyDocument is returned by Parse when the source contains no content
// at all. No tree is produced in that case; callers must not substitute a
// tree parsed from empty input, since a phantom tree would desynchronize
// incremental state.
var ErrEmptyDocument = errors.New("document is empty")

// maxDepth bounds nesting so that pathological inputs degrade into error
// nodes instead of exhausting the stack.
const maxDepth = 400

// Parser is a reusable parse handle. It keeps scratch buffers alive across
// calls so that incremental re-parses of the same document avoid
// re-allocation, but it retains no semantic state between unrelated
// documents. A Parser must not be used from multiple goroutines at once;
// create one handle per concurrent document.
type Parser struct {
	st         parseState
	lastSource string
}

// NewParser creates a parse handle.
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses source into a tree. The returned tree may contain error
// nodes (Tree.HadError); a non-nil error is returned only when no tree can
// be produced at all.
func (p *Parser) Parse(source string) (*Tree, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyDocument
	}
	tree := p.st.parse(source)
	p.lastSource = source
	parseLog.Printf("parsed %d bytes, hadError=%v", len(source), tree.HadError)
	return tree, nil
}

// Reparse parses newSource, reusing this handle's buffers. The previous tree
// and the edit descriptors are the caller's explicit incremental state; the
// edits are validated against newSource so a stale descriptor is caught
// instead of silently producing a tree that disagrees with the text. The
// resulting tree is always structurally identical to a from-scratch parse of
// newSource.
func (p *Parser) Reparse(old *Tree, edits []Edit, newSource string) (*Tree, error) {
	for _, e := range edits {
		if e.StartByte < 0 || e.OldEndByte < e.StartByte || e.NewEndByte < e.StartByte {
			return nil, fmt.Errorf("invalid edit range: start=%d oldEnd=%d newEnd=%d", e.StartByte, e.OldEndByte, e.NewEndByte)
		}
		if e.NewEndByte > len(newSource) {
			return nil, fmt.Errorf("edit extends past source: newEnd=%d len=%d", e.NewEndByte, len(newSource))
		}
	}
	if old != nil && len(edits) == 0 && newSource == p.lastSource {
		return old, nil
	}
	return p.Parse(newSource)
}

// line is one physical source line.
type line struct {
	start   int // byte offset of line start
	end     int // byte offset of line end, excluding the newline
	indent  int // leading whitespace bytes
	blank   bool
	comment bool // full-line comment
	docMark bool // "---" or "..."
}

// parseState holds the per-parse scratch. The lines slice is reused across
// parses on the same handle.
type parseState struct {
	src      string
	lines    []line
	hadError bool
	depth    int
}

func (s *parseState) parse(source string) *Tree {
	s.src = source
	s.lines = s.lines[:0]
	s.hadError = false
	s.depth = 0
	s.scanLines()

	root := &Node{Kind: KindDocument, Start: 0, End: len(source)}
	i := 0
	for i < len(s.lines) {
		ln := s.lines[i]
		switch {
		case ln.blank || ln.docMark:
			i++
		case ln.comment:
			root.Children = append(root.Children, s.commentNode(i))
			i++
		default:
			var node *Node
			node, i = s.parseBlockValue(i, -1)
			if node != nil {
				root.Children = append(root.Children, node)
			}
		}
	}
	return &Tree{Root: root, HadError: s.hadError}
}

func (s *parseState) scanLines() {
	src := s.src
	start := 0
	for start <= len(src) {
		end := strings.IndexByte(src[start:], '\n')
		var ln line
		ln.start = start
		if end < 0 {
			ln.end = len(src)
		} else {
			ln.end = start + end
		}
		indent := 0
		for start+indent < ln.end {
			c := src[start+indent]
			if c != ' ' && c != '\t' {
				break
			}
			indent++
		}
		ln.indent = indent
		content := src[start+indent : ln.end]
		content = strings.TrimRight(content, " \t\r")
		switch {
		case content == "":
			ln.blank = true
		case content[0] == '#':
			ln.comment = true
		case content == "---" || content == "...":
			ln.docMark = true
		}
		s.lines = append(s.lines, ln)
		if end < 0 {
			break
		}
		start = ln.end + 1
	}
	// A trailing empty segment after the final newline is not a line.
	if n := len(s.lines); n > 0 && s.lines[n-1].start == len(src) && len(src) > 0 {
		s.lines = s.lines[:n-1]
	}
}

func (s *parseState) commentNode(i int) *Node {
	ln := s.lines[i]
	return &Node{Kind: KindComment, Start: ln.start + ln.indent, End: s.trimmedEnd(i)}
}

// trimmedEnd returns the offset just past the last non-whitespace byte of a
// line.
func (s *parseState) trimmedEnd(i int) int {
	ln := s.lines[i]
	end := ln.end
	for end > ln.start && (s.src[end-1] == ' ' || s.src[end-1] == '\t' || s.src[end-1] == '\r') {
		end--
	}
	return end
}

// nextSignificant returns the index of the first non-blank line at or after
// i, or len(lines).
func (s *parseState) nextSignificant(i int) int {
	for i < len(s.lines) && s.lines[i].blank {
		i++
	}
	return i
}

func (s *parseState) isSeqItem(i int) bool {
	ln := s.lines[i]
	off := ln.start + ln.indent
	if off >= ln.end || s.src[off] != '-' {
		return false
	}
	return off+1 == ln.end || s.src[off+1] == ' ' || s.src[off+1] == '\t'
}

// parseBlockValue parses one block-level value beginning on line i, whose
// indentation must exceed parentIndent. Returns the node and the index of
// the first line not consumed.
func (s *parseState) parseBlockValue(i, parentIndent int) (*Node, int) {
	if s.depth >= maxDepth {
		s.hadError = true
		return s.consumeErrorBlock(i, parentIndent)
	}
	s.depth++
	defer func() { s.depth-- }()

	ln := s.lines[i]
	off := ln.start + ln.indent
	switch {
	case s.isSeqItem(i):
		return s.parseSequence(i, ln.indent)
	case s.src[off] == '[' || s.src[off] == '{':
		return s.parseFlowValue(i, off, parentIndent)
	default:
		if _, _, ok := scanKey(s.src, off, s.trimmedEnd(i)); ok {
			return s.parseMapping(i, ln.indent, -1)
		}
		return s.parseScalarValue(i, off, ln.indent-1)
	}
}

// parseMapping parses a block mapping whose pairs sit at the given
// indentation. firstOff >= 0 places the first pair mid-line (the compact
// "- key: value" sequence entry form); subsequent pairs then align to the
// first pair's column.
func (s *parseState) parseMapping(i, indent int, firstOff int) (*Node, int) {
	node := &Node{Kind: KindMapping}
	col := indent
	if firstOff >= 0 {
		col = firstOff - s.lines[i].start
	}
	first := true
	for i < len(s.lines) {
		ln := s.lines[i]
		if ln.blank {
			i++
			continue
		}
		if ln.docMark {
			break
		}
		if ln.comment {
			if ln.indent < col {
				break
			}
			node.Children = append(node.Children, s.commentNode(i))
			i++
			continue
		}
		off := ln.start + ln.indent
		if first && firstOff >= 0 {
			off = firstOff
		} else if ln.indent != col {
			if ln.indent < col {
				break
			}
			// Deeper than the mapping without a key to own it.
			var errNode *Node
			errNode, i = s.consumeErrorBlock(i, col)
			node.Children = append(node.Children, errNode)
			continue
		}
		if !first && s.isSeqItem(i) {
			// A sequence entry at mapping indentation: recover by parsing
			// the sequence and wrapping it in an error node.
			seq, next := s.parseSequence(i, ln.indent)
			s.hadError = true
			node.Children = append(node.Children, &Node{Kind: KindError, Start: seq.Start, End: seq.End, Children: []*Node{seq}})
			i = next
			continue
		}
		lineEnd := s.trimmedEnd(i)
		if _, _, ok := scanKey(s.src, off, lineEnd); !ok {
			var errNode *Node
			errNode, i = s.consumeErrorBlock(i, col)
			node.Children = append(node.Children, errNode)
			continue
		}
		var pair *Node
		pair, i = s.parsePair(i, off, col)
		node.Children = append(node.Children, pair)
		first = false
	}
	s.setSpanFromChildren(node, i)
	return node, i
}

// parsePair parses "key: value" starting at off on line i, with the block
// value (if any) indented past indent.
func (s *parseState) parsePair(i, off, indent int) (*Node, int) {
	lineEnd := s.trimmedEnd(i)
	keyEnd, valStart, _ := scanKey(s.src, off, lineEnd)
	key := &Node{Kind: KindScalar, Start: off, End: keyEnd, Style: scalarStyleAt(s.src, off)}
	pair := &Node{Kind: KindPair, Start: off, End: keyEnd, Children: []*Node{key}}

	// Inline comment directly after the colon means no inline value.
	if valStart < lineEnd && s.src[valStart] == '#' {
		pair.Children = append(pair.Children, &Node{Kind: KindComment, Start: valStart, End: lineEnd})
		valStart = lineEnd
	}

	if valStart >= lineEnd {
		// Value, if present, is the following more-indented block. A block
		// sequence may also sit at the key's own indentation.
		j := s.nextSignificant(i + 1)
		if j < len(s.lines) && !s.lines[j].docMark && !s.lines[j].comment &&
			(s.lines[j].indent > indent || (s.lines[j].indent == indent && s.isSeqItem(j))) {
			var value *Node
			value, j = s.parseBlockValue(j, indent)
			if value != nil {
				pair.Children = append(pair.Children, value)
				pair.End = value.End
			}
			return pair, j
		}
		// Comments between the key and a more-indented block still belong
		// to the block; re-check past them.
		if j < len(s.lines) && s.lines[j].comment && s.lines[j].indent > indent {
			k := s.nextSignificant(j + 1)
			for k < len(s.lines) && s.lines[k].comment && s.lines[k].indent > indent {
				k = s.nextSignificant(k + 1)
			}
			if k < len(s.lines) && !s.lines[k].docMark && s.lines[k].indent > indent {
				for ; j < k; j++ {
					if s.lines[j].comment {
						pair.Children = append(pair.Children, s.commentNode(j))
					}
				}
				var value *Node
				value, j = s.parseBlockValue(k, indent)
				if value != nil {
					pair.Children = append(pair.Children, value)
					pair.End = value.End
				}
				return pair, j
			}
		}
		return pair, i + 1
	}

	value, next := s.parseValueAt(i, valStart, indent)
	if value != nil {
		pair.Children = append(pair.Children, value)
		if value.End > pair.End {
			pair.End = value.End
		}
	}
	return pair, next
}

// parseSequence parses a block sequence whose "-" markers sit at indent.
func (s *parseState) parseSequence(i, indent int) (*Node, int) {
	node := &Node{Kind: KindSequence}
	for i < len(s.lines) {
		ln := s.lines[i]
		if ln.blank {
			i++
			continue
		}
		if ln.docMark {
			break
		}
		if ln.comment {
			if ln.indent < indent {
				break
			}
			node.Children = append(node.Children, s.commentNode(i))
			i++
			continue
		}
		if ln.indent < indent {
			break
		}
		if ln.indent > indent {
			var errNode *Node
			errNode, i = s.consumeErrorBlock(i, indent)
			node.Children = append(node.Children, errNode)
			continue
		}
		if !s.isSeqItem(i) {
			break
		}
		var item *Node
		item, i = s.parseItem(i, indent)
		node.Children = append(node.Children, item)
	}
	s.setSpanFromChildren(node, i)
	return node, i
}

// parseItem parses one "- ..." sequence entry.
func (s *parseState) parseItem(i, indent int) (*Node, int) {
	ln := s.lines[i]
	dash := ln.start + ln.indent
	item := &Node{Kind: KindItem, Start: dash, End: dash + 1}
	lineEnd := s.trimmedEnd(i)

	v := dash + 1
	for v < lineEnd && (s.src[v] == ' ' || s.src[v] == '\t') {
		v++
	}

	if v < lineEnd && s.src[v] == '#' {
		item.Children = append(item.Children, &Node{Kind: KindComment, Start: v, End: lineEnd})
		v = lineEnd
	}

	if v >= lineEnd {
		// Value on the following more-indented lines, if any.
		j := s.nextSignificant(i + 1)
		for j < len(s.lines) && s.lines[j].comment && s.lines[j].indent > indent {
			item.Children = append(item.Children, s.commentNode(j))
			j = s.nextSignificant(j + 1)
		}
		if j < len(s.lines) && !s.lines[j].docMark && !s.lines[j].comment && s.lines[j].indent > indent {
			var value *Node
			value, j = s.parseBlockValue(j, indent)
			if value != nil {
				item.Children = append(item.Children, value)
				item.End = value.End
			}
		} else if n := len(item.Children); n > 0 {
			item.End = item.Children[n-1].End
		}
		return item, j
	}

	// Inline content: compact mapping, nested sequence, or scalar.
	var value *Node
	var next int
	if _, _, ok := scanKey(s.src, v, lineEnd); ok {
		value, next = s.parseMapping(i, indent, v)
	} else if s.src[v] == '-' && (v+1 >= lineEnd || s.src[v+1] == ' ' || s.src[v+1] == '\t') {
		// "- - x" nested sequence: recover the inner entry as its own
		// single-item sequence.
		inner, innerNext := s.parseItem2(i, v, indent)
		value = &Node{Kind: KindSequence, Start: inner.Start, End: inner.End, Children: []*Node{inner}}
		next = innerNext
	} else {
		value, next = s.parseValueAt(i, v, indent)
	}
	if value != nil {
		item.Children = append(item.Children, value)
		if value.End > item.End {
			item.End = value.End
		}
	}
	return item, next
}

// parseItem2 parses a sequence entry whose dash sits mid-line at off.
func (s *parseState) parseItem2(i, off, indent int) (*Node, int) {
	ln := s.lines[i]
	col := off - ln.start
	item := &Node{Kind: KindItem, Start: off, End: off + 1}
	lineEnd := s.trimmedEnd(i)
	v := off + 1
	for v < lineEnd && (s.src[v] == ' ' || s.src[v] == '\t') {
		v++
	}
	if v >= lineEnd {
		j := s.nextSignificant(i + 1)
		if j < len(s.lines) && !s.lines[j].docMark && s.lines[j].indent > col {
			var value *Node
			value, j = s.parseBlockValue(j, col)
			if value != nil {
				item.Children = append(item.Children, value)
				item.End = value.End
			}
		}
		return item, j
	}
	var value *Node
	var next int
	if _, _, ok := scanKey(s.src, v, lineEnd); ok {
		value, next = s.parseMapping(i, col, v)
	} else {
		value, next = s.parseValueAt(i, v, col)
	}
	if value != nil {
		item.Children = append(item.Children, value)
		item.End = value.End
	}
	return item, next
}

// parseValueAt parses an inline value starting at off on line i: a flow
// collection, block scalar header, quoted scalar, or plain scalar.
// Continuation lines indented past indent extend the value.
func (s *parseState) parseValueAt(i, off, indent int) (*Node, int) {
	c := s.src[off]
	switch {
	case c == '[' || c == '{':
		return s.parseFlowValue(i, off, indent)
	case c == '|' || c == '>':
		return s.parseBlockScalar(i, off, indent)
	case c == '"' || c == '\'':
		return s.parseQuotedScalar(i, off, indent)
	default:
		return s.parsePlainScalar(i, off, indent)
	}
}

func (s *parseState) parseBlockScalar(i, off, indent int) (*Node, int) {
	style := StyleLiteral
	if s.src[off] == '>' {
		style = StyleFolded
	}
	node := &Node{Kind: KindScalar, Style: style, Start: off, End: s.trimmedEnd(i)}
	j := i + 1
	last := i
	for j < len(s.lines) {
		ln := s.lines[j]
		if ln.blank {
			j++
			continue
		}
		if ln.indent <= indent {
			break
		}
		last = j
		j++
	}
	if last > i {
		node.End = s.trimmedEnd(last)
	}
	return node, last + 1
}

func (s *parseState) parseQuotedScalar(i, off, indent int) (*Node, int) {
	quote := s.src[off]
	style := StyleDouble
	if quote == '\'' {
		style = StyleSingle
	}
	limit := s.blockEnd(i, indent)
	pos := off + 1
	for pos < limit {
		c := s.src[pos]
		if quote == '"' && c == '\\' {
			pos += 2
			continue
		}
		if c == quote {
			if quote == '\'' && pos+1 < limit && s.src[pos+1] == '\'' {
				pos += 2
				continue
			}
			node := &Node{Kind: KindScalar, Style: style, Start: off, End: pos + 1}
			return node, s.lineAfter(pos)
		}
		pos++
	}
	// Unterminated quote: the scalar becomes an error node covering the
	// rest of the block.
	s.hadError = true
	return &Node{Kind: KindError, Start: off, End: limit}, s.lineAfter(limit - 1)
}

func (s *parseState) parsePlainScalar(i, off, indent int) (*Node, int) {
	end := s.contentEnd(i, off)
	node := &Node{Kind: KindScalar, Style: StylePlain, Start: off, End: end}
	// Multi-line plain scalars: fold in more-indented continuation lines
	// that do not introduce structure of their own.
	j := s.nextSignificant(i + 1)
	for j < len(s.lines) {
		ln := s.lines[j]
		if ln.comment || ln.docMark || ln.indent <= indent {
			break
		}
		cOff := ln.start + ln.indent
		cEnd := s.trimmedEnd(j)
		if s.isSeqItem(j) {
			break
		}
		if _, _, ok := scanKey(s.src, cOff, cEnd); ok {
			break
		}
		if c := s.src[cOff]; c == '[' || c == '{' {
			break
		}
		node.End = s.contentEnd(j, cOff)
		j = s.nextSignificant(j + 1)
	}
	if node.End > off && node.End <= len(s.src) && s.lineOf(node.End-1) > i {
		return node, s.lineOf(node.End-1) + 1
	}
	return node, i + 1
}

// contentEnd returns the end of scalar content on line i starting at off,
// excluding a trailing " # comment".
func (s *parseState) contentEnd(i, off int) int {
	end := s.trimmedEnd(i)
	for pos := off; pos < end; pos++ {
		if s.src[pos] == '#' && pos > off && (s.src[pos-1] == ' ' || s.src[pos-1] == '\t') {
			end = pos
			for end > off && (s.src[end-1] == ' ' || s.src[end-1] == '\t') {
				end--
			}
			break
		}
	}
	return end
}

// parseFlowValue parses a flow collection starting at off, which may span
// multiple lines up to the end of the enclosing block.
func (s *parseState) parseFlowValue(i, off, indent int) (*Node, int) {
	limit := s.blockEnd(i, indent)
	node, end := s.parseFlowNode(off, limit)
	return node, s.lineAfter(end - 1)
}

// parseFlowNode parses one flow node at off, returning it and the offset
// just past it.
func (s *parseState) parseFlowNode(off, limit int) (*Node, int) {
	if s.depth >= maxDepth {
		s.hadError = true
		return &Node{Kind: KindError, Start: off, End: limit}, limit
	}
	s.depth++
	defer func() { s.depth-- }()

	switch s.src[off] {
	case '[':
		return s.parseFlowSequence(off, limit)
	case '{':
		return s.parseFlowMapping(off, limit)
	case '"', '\'':
		return s.parseFlowQuoted(off, limit)
	default:
		return s.parseFlowPlain(off, limit)
	}
}

func (s *parseState) parseFlowSequence(off, limit int) (*Node, int) {
	node := &Node{Kind: KindSequence, Style: StyleFlow, Start: off}
	pos := off + 1
	for {
		pos = s.skipFlowSpace(pos, limit)
		if pos >= limit {
			s.hadError = true
			node.End = limit
			return node, limit
		}
		if s.src[pos] == ']' {
			node.End = pos + 1
			return node, pos + 1
		}
		if s.src[pos] == ',' {
			pos++
			continue
		}
		child, next := s.parseFlowNode(pos, limit)
		node.Children = append(node.Children, &Node{Kind: KindItem, Start: child.Start, End: child.End, Children: []*Node{child}})
		pos = next
	}
}

func (s *parseState) parseFlowMapping(off, limit int) (*Node, int) {
	node := &Node{Kind: KindMapping, Style: StyleFlow, Start: off}
	pos := off + 1
	for {
		pos = s.skipFlowSpace(pos, limit)
		if pos >= limit {
			s.hadError = true
			node.End = limit
			return node, limit
		}
		if s.src[pos] == '}' {
			node.End = pos + 1
			return node, pos + 1
		}
		if s.src[pos] == ',' {
			pos++
			continue
		}
		key, next := s.parseFlowNode(pos, limit)
		pair := &Node{Kind: KindPair, Start: key.Start, End: key.End, Children: []*Node{key}}
		pos = s.skipFlowSpace(next, limit)
		if pos < limit && s.src[pos] == ':' {
			pos = s.skipFlowSpace(pos+1, limit)
			if pos < limit && s.src[pos] != ',' && s.src[pos] != '}' {
				var value *Node
				value, pos = s.parseFlowNode(pos, limit)
				pair.Children = append(pair.Children, value)
				pair.End = value.End
			}
		}
		node.Children = append(node.Children, pair)
	}
}

func (s *parseState) parseFlowQuoted(off, limit int) (*Node, int) {
	quote := s.src[off]
	style := StyleDouble
	if quote == '\'' {
		style = StyleSingle
	}
	pos := off + 1
	for pos < limit {
		c := s.src[pos]
		if quote == '"' && c == '\\' {
			pos += 2
			continue
		}
		if c == quote {
			if quote == '\'' && pos+1 < limit && s.src[pos+1] == '\'' {
				pos += 2
				continue
			}
			return &Node{Kind: KindScalar, Style: style, Start: off, End: pos + 1}, pos + 1
		}
		pos++
	}
	s.hadError = true
	return &Node{Kind: KindError, Start: off, End: limit}, limit
}

func (s *parseState) parseFlowPlain(off, limit int) (*Node, int) {
	pos := off
	for pos < limit {
		c := s.src[pos]
		if c == ',' || c == ']' || c == '}' || c == '\n' {
			break
		}
		if c == ':' && pos+1 < limit && (s.src[pos+1] == ' ' || s.src[pos+1] == '\t') {
			break
		}
		pos++
	}
	end := pos
	for end > off && (s.src[end-1] == ' ' || s.src[end-1] == '\t') {
		end--
	}
	if end == off {
		// Zero-width plain scalar: consume one byte to guarantee progress.
		s.hadError = true
		return &Node{Kind: KindError, Start: off, End: off + 1}, off + 1
	}
	return &Node{Kind: KindScalar, Style: StylePlain, Start: off, End: end}, pos
}

func (s *parseState) skipFlowSpace(pos, limit int) int {
	for pos < limit {
		c := s.src[pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			pos++
			continue
		}
		if c == '#' && pos > 0 && (s.src[pos-1] == ' ' || s.src[pos-1] == '\t' || s.src[pos-1] == '\n') {
			for pos < limit && s.src[pos] != '\n' {
				pos++
			}
			continue
		}
		break
	}
	return pos
}

// parseScalarValue parses a scalar appearing directly at block position.
func (s *parseState) parseScalarValue(i, off, indent int) (*Node, int) {
	return s.parseValueAt(i, off, indent)
}

// consumeErrorBlock consumes line i and any following lines indented past
// minIndent into a single error node.
func (s *parseState) consumeErrorBlock(i, minIndent int) (*Node, int) {
	s.hadError = true
	start := s.lines[i].start + s.lines[i].indent
	last := i
	j := i + 1
	for j < len(s.lines) {
		ln := s.lines[j]
		if ln.blank {
			j++
			continue
		}
		if ln.indent <= minIndent || ln.docMark {
			break
		}
		last = j
		j++
	}
	return &Node{Kind: KindError, Start: start, End: s.trimmedEnd(last)}, last + 1
}

// blockEnd returns the byte offset just past the last line belonging to the
// block that starts on line i and is indented past indent.
func (s *parseState) blockEnd(i, indent int) int {
	last := i
	j := i + 1
	for j < len(s.lines) {
		ln := s.lines[j]
		if ln.blank {
			j++
			continue
		}
		if ln.indent <= indent || ln.docMark {
			break
		}
		last = j
		j++
	}
	return s.lines[last].end
}

// lineOf returns the index of the line containing the byte offset.
func (s *parseState) lineOf(offset int) int {
	lo, hi := 0, len(s.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.lines[mid].start <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// lineAfter returns the index of the line after the one containing offset.
func (s *parseState) lineAfter(offset int) int {
	if offset < 0 {
		return 0
	}
	return s.lineOf(offset) + 1
}

func (s *parseState) setSpanFromChildren(node *Node, fallbackLine int) {
	if len(node.Children) > 0 {
		node.Start = node.Children[0].Start
		node.End = node.Children[len(node.Children)-1].End
		return
	}
	if fallbackLine > 0 && fallbackLine <= len(s.lines) {
		ln := s.lines[fallbackLine-1]
		node.Start = ln.start + ln.indent
		node.End = ln.start + ln.indent
	}
}

// scanKey reports whether the text from off to lineEnd begins with a
// mapping key. keyEnd excludes trailing spaces before the colon; valStart
// is the offset of the value after the colon and following spaces (equal to
// lineEnd when the value continues on later lines).
func scanKey(src string, off, lineEnd int) (keyEnd, valStart int, ok bool) {
	if off >= lineEnd {
		return 0, 0, false
	}
	c := src[off]
	if c == '"' || c == '\'' {
		pos := off + 1
		for pos < lineEnd {
			if c == '"' && src[pos] == '\\' {
				pos += 2
				continue
			}
			if src[pos] == c {
				if c == '\'' && pos+1 < lineEnd && src[pos+1] == '\'' {
					pos += 2
					continue
				}
				break
			}
			pos++
		}
		if pos >= lineEnd {
			return 0, 0, false
		}
		keyEnd = pos + 1
		pos = keyEnd
		for pos < lineEnd && (src[pos] == ' ' || src[pos] == '\t') {
			pos++
		}
		if pos >= lineEnd || src[pos] != ':' {
			return 0, 0, false
		}
		if pos+1 < lineEnd && src[pos+1] != ' ' && src[pos+1] != '\t' {
			return 0, 0, false
		}
		return keyEnd, skipSpaces(src, pos+1, lineEnd), true
	}
	for pos := off; pos < lineEnd; pos++ {
		switch src[pos] {
		case ':':
			if pos+1 == lineEnd || src[pos+1] == ' ' || src[pos+1] == '\t' {
				keyEnd = pos
				for keyEnd > off && (src[keyEnd-1] == ' ' || src[keyEnd-1] == '\t') {
					keyEnd--
				}
				if keyEnd == off {
					return 0, 0, false
				}
				return keyEnd, skipSpaces(src, pos+1, lineEnd), true
			}
		case '#':
			if pos > off && (src[pos-1] == ' ' || src[pos-1] == '\t') {
				return 0, 0, false
			}
		}
	}
	return 0, 0, false
}

func skipSpaces(src string, pos, end int) int {
	for pos < end && (src[pos] == ' ' || src[pos] == '\t') {
		pos++
	}
	return pos
}

func scalarStyleAt(src string, off int) Style {
	if off < len(src) {
		switch src[off] {
		case '"':
			return StyleDouble
		case '\'':
			return StyleSingle
		}
	}
	return StylePlain
}
