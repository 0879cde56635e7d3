package particle

import (
	"fmt"
	"strings"
)

type itemType int

const (
	itemEOF itemType = iota
	itemWord
	itemLeftBrace
	itemRightBrace
)

// item is a single token of a particle script.
type item struct {
	typ  itemType
	val  string
	line int
}

func (i item) String() string {
	switch i.typ {
	case itemEOF:
		return "EOF"
	}
	return fmt.Sprintf("%q", i.val)
}

// lexer splits particle scripts into whitespace separated words.
// Braces are always tokens of their own, quoted strings keep their spaces,
// and both // and /* */ comments are skipped.
type lexer struct {
	name  string
	input string
	pos   int
	line  int

	// line of the last item returned, used for same-line lookups
	lastLine int

	// state before the last item, restored by backup
	prevPos, prevLine, prevLastLine int
}

func lex(name, input string) *lexer {
	return &lexer{
		name:  name,
		input: input,
		line:  1,
	}
}

// skipSpace advances over whitespace and comments. When crossLines is false
// it stops at the first newline and reports false.
func (l *lexer) skipSpace(crossLines bool) bool {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\n':
			if !crossLines {
				return false
			}
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case strings.HasPrefix(l.input[l.pos:], "//"):
			end := strings.IndexByte(l.input[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.input)
			} else {
				l.pos += end
			}
		case strings.HasPrefix(l.input[l.pos:], "/*"):
			end := strings.Index(l.input[l.pos+2:], "*/")
			var comment string
			if end < 0 {
				comment = l.input[l.pos:]
				l.pos = len(l.input)
			} else {
				comment = l.input[l.pos : l.pos+2+end+2]
				l.pos += 2 + end + 2
			}
			newlines := strings.Count(comment, "\n")
			if newlines > 0 && !crossLines {
				l.line += newlines
				return false
			}
			l.line += newlines
		default:
			return true
		}
	}
	return true
}

func (l *lexer) scan() item {
	if l.pos >= len(l.input) {
		return item{typ: itemEOF, line: l.line}
	}

	start := l.pos
	switch c := l.input[l.pos]; c {
	case '{':
		l.pos++
		return item{typ: itemLeftBrace, val: "{", line: l.line}
	case '}':
		l.pos++
		return item{typ: itemRightBrace, val: "}", line: l.line}
	case '"':
		l.pos++
		end := strings.IndexAny(l.input[l.pos:], "\"\n")
		if end < 0 {
			end = len(l.input) - l.pos
		}
		val := l.input[l.pos : l.pos+end]
		l.pos += end
		if l.pos < len(l.input) && l.input[l.pos] == '"' {
			l.pos++
		}
		return item{typ: itemWord, val: val, line: l.line}
	}

	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '{' || c == '}' || c == '"' {
			break
		}
		if strings.HasPrefix(l.input[l.pos:], "//") || strings.HasPrefix(l.input[l.pos:], "/*") {
			break
		}
		l.pos++
	}
	return item{typ: itemWord, val: l.input[start:l.pos], line: l.line}
}

// nextItem returns the next token, crossing line breaks.
func (l *lexer) nextItem() item {
	l.save()
	l.skipSpace(true)
	i := l.scan()
	l.lastLine = i.line
	return i
}

// nextOnLine returns the next token only if it sits on the same line as the
// previous one. Nothing is consumed otherwise.
func (l *lexer) nextOnLine() (item, bool) {
	l.save()
	pos, line := l.pos, l.line
	if !l.skipSpace(false) || l.line != l.lastLine || l.pos >= len(l.input) {
		l.pos, l.line = pos, line
		return item{typ: itemEOF, line: line}, false
	}
	i := l.scan()
	l.lastLine = i.line
	return i, true
}

func (l *lexer) save() {
	l.prevPos, l.prevLine, l.prevLastLine = l.pos, l.line, l.lastLine
}

// backup steps back over the last item. It can only be called once per item.
func (l *lexer) backup() {
	l.pos, l.line, l.lastLine = l.prevPos, l.prevLine, l.prevLastLine
}

// skipBracedSection consumes a { ... } block including nested blocks.
// It reports false if the input ends before the block is closed.
func (l *lexer) skipBracedSection() bool {
	depth := 0
	for {
		i := l.nextItem()
		switch i.typ {
		case itemEOF:
			return false
		case itemLeftBrace:
			depth++
		case itemRightBrace:
			depth--
		}
		if depth <= 0 {
			return true
		}
	}
}
