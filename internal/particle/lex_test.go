package particle

import "testing"

func collect(l *lexer) []item {
	var out []item
	for n := l.nextItem(); n.typ != itemEOF; n = l.nextItem() {
		out = append(out, n)
	}
	return out
}

// TestLex_Tokens tests braces, quotes and comments
func TestLex_Tokens(t *testing.T) {
	input := `sparks // trailing comment
{ /* block
comment */ shader sync "gfx/with space" gfx/b
}`
	want := []struct {
		typ  itemType
		val  string
		line int
	}{
		{itemWord, "sparks", 1},
		{itemLeftBrace, "{", 2},
		{itemWord, "shader", 3},
		{itemWord, "sync", 3},
		{itemWord, "gfx/with space", 3},
		{itemWord, "gfx/b", 3},
		{itemRightBrace, "}", 4},
	}

	got := collect(lex("test", input))
	if len(got) != len(want) {
		t.Fatalf("lex produced %d items %v, want %d", len(got), got, len(want))
	}
	for k, w := range want {
		if got[k].typ != w.typ || got[k].val != w.val || got[k].line != w.line {
			t.Errorf("item %d = {%v %q line %d}, want {%v %q line %d}",
				k, got[k].typ, got[k].val, got[k].line, w.typ, w.val, w.line)
		}
	}
}

// TestLex_GluedBraces tests that braces split words
func TestLex_GluedBraces(t *testing.T) {
	got := collect(lex("test", "name{a}"))
	if len(got) != 4 || got[0].val != "name" || got[1].typ != itemLeftBrace || got[2].val != "a" || got[3].typ != itemRightBrace {
		t.Errorf("lex(name{a}) = %v", got)
	}
}

// TestLex_NextOnLine tests same-line lookups never cross a newline
func TestLex_NextOnLine(t *testing.T) {
	l := lex("test", "model a b // c\nradius")
	if i := l.nextItem(); i.val != "model" {
		t.Fatalf("first item = %v", i)
	}

	var names []string
	for {
		i, ok := l.nextOnLine()
		if !ok {
			break
		}
		names = append(names, i.val)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("nextOnLine collected %v, want [a b]", names)
	}

	if i := l.nextItem(); i.val != "radius" || i.line != 2 {
		t.Errorf("next item after line = %v line %d, want radius line 2", i, i.line)
	}
}

// TestLex_Backup tests stepping back over one item
func TestLex_Backup(t *testing.T) {
	l := lex("test", "a }")
	l.nextItem()
	i, ok := l.nextOnLine()
	if !ok || i.typ != itemRightBrace {
		t.Fatalf("nextOnLine = %v, %v", i, ok)
	}
	l.backup()
	if i := l.nextItem(); i.typ != itemRightBrace {
		t.Errorf("after backup nextItem = %v, want }", i)
	}
}

// TestLex_SkipBracedSection tests nested blocks are skipped whole
func TestLex_SkipBracedSection(t *testing.T) {
	l := lex("test", "{ a { b } { c { d } } } after")
	if !l.skipBracedSection() {
		t.Fatal("skipBracedSection reported unterminated block")
	}
	if i := l.nextItem(); i.val != "after" {
		t.Errorf("item after skipped section = %v, want after", i)
	}

	l = lex("test", "{ a { b }")
	if l.skipBracedSection() {
		t.Error("skipBracedSection should fail on unterminated block")
	}
}
