package particle

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors. A ParseError wraps one of these so callers can use errors.Is.
var (
	ErrUnexpectedEOF  = errors.New("unexpected end of file")
	ErrUnknownKeyword = errors.New("unknown keyword")
	ErrInvalidNumber  = errors.New("invalid number")
	ErrMissingBrace   = errors.New("missing '{'")
	ErrShaderAndModel = errors.New("'shader' and 'model' are mutually exclusive")
	ErrInfinitePeriod = errors.New("ejector with 'count infinite' potentially has zero period")
	ErrUnnamedSystem  = errors.New("unnamed particle system")
	ErrAlreadyNamed   = errors.New("particle system already named")
	ErrLimitReached   = errors.New("limit reached")
)

// ParseError reports where in a script parsing stopped.
type ParseError struct {
	File string
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: %s: %v", e.File, e.Line, e.Msg, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// parser turns one script file into BaseSystems and adds them to a Store.
type parser struct {
	store *Store
	l     *lexer
	file  string
	added []*BaseSystem
}

func newParser(store *Store, file, input string) *parser {
	return &parser{
		store: store,
		l:     lex(file, input),
		file:  file,
	}
}

func (p *parser) errorf(line int, err error, format string, args ...any) *ParseError {
	return &ParseError{
		File: p.file,
		Line: line,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}

func (p *parser) next() item {
	return p.l.nextItem()
}

// word returns the next token, failing at end of input.
func (p *parser) word(keyword string) (item, error) {
	i := p.next()
	if i.typ == itemEOF {
		return i, p.errorf(i.line, ErrUnexpectedEOF, "%s", keyword)
	}
	return i, nil
}

func (p *parser) valueAndVariance(keyword string, allowNegative bool) (float64, float64, error) {
	i, err := p.word(keyword)
	if err != nil {
		return 0, 0, err
	}
	v, rf, err := ParseValueAndVariance(i.val, allowNegative)
	if err != nil {
		return 0, 0, p.errorf(i.line, err, "%s", keyword)
	}
	return v, rf, nil
}

func (p *parser) number(keyword string, allowNegative bool) (float64, error) {
	i, err := p.word(keyword)
	if err != nil {
		return 0, err
	}
	v, err := parseNumber(i.val, allowNegative)
	if err != nil {
		return 0, p.errorf(i.line, err, "%s", keyword)
	}
	return v, nil
}

func (p *parser) vector(keyword string) ([3]float64, error) {
	var v [3]float64
	for k := range v {
		n, err := p.number(keyword, true)
		if err != nil {
			return v, err
		}
		v[k] = n
	}
	return v, nil
}

// final parses the last element of a LerpValue, where "-" holds the initial value.
func (p *parser) final(keyword string, lv *LerpValue, allowNegative bool) error {
	i, err := p.word(keyword)
	if err != nil {
		return err
	}
	if i.val == "-" {
		lv.Final = SameAsInitial
		lv.FinalRandFrac = 0
		return nil
	}
	lv.Final, lv.FinalRandFrac, err = ParseValueAndVariance(i.val, allowNegative)
	if err != nil {
		return p.errorf(i.line, err, "%s", keyword)
	}
	return nil
}

// lerpValue parses "<delay> <initial> <final|->".
func (p *parser) lerpValue(keyword string, lv *LerpValue, allowNegative bool) error {
	delay, delayRF, err := p.valueAndVariance(keyword, false)
	if err != nil {
		return err
	}
	lv.Delay = int(delay)
	lv.DelayRandFrac = delayRF

	lv.Initial, lv.InitialRandFrac, err = p.valueAndVariance(keyword, allowNegative)
	if err != nil {
		return err
	}
	return p.final(keyword, lv, allowNegative)
}

// color parses "r g b }" after an opening brace. Components are in [0, 1].
func (p *parser) color(keyword string) (Color, error) {
	var c Color
	for k := range c {
		v, err := p.number(keyword, false)
		if err != nil {
			return c, err
		}
		switch {
		case v > 1:
			v = 1
		case v < 0:
			v = 0
		}
		c[k] = uint8(v*0xFF + 0.5)
	}
	i := p.next()
	if i.typ != itemRightBrace {
		return c, p.errorf(i.line, ErrMissingBrace, "%s: expected '}' after color, got %v", keyword, i)
	}
	return c, nil
}

// restOfLine collects the remaining words on the current line, up to max.
func (p *parser) restOfLine(max int) []string {
	var out []string
	for {
		i, ok := p.l.nextOnLine()
		if !ok {
			return out
		}
		if i.typ != itemWord {
			p.l.backup()
			return out
		}
		if len(out) < max {
			out = append(out, i.val)
		}
	}
}

// wordOnLine returns the next word if it sits on the current line.
func (p *parser) wordOnLine() (item, bool) {
	i, ok := p.l.nextOnLine()
	if !ok {
		return i, false
	}
	if i.typ != itemWord {
		p.l.backup()
		return i, false
	}
	return i, true
}

// spread parses an angle written either as "~a" or as a plain number.
func (p *parser) spread(keyword string, t item) (float64, error) {
	v, rf, err := ParseValueAndVariance(t.val, false)
	if err != nil {
		return 0, p.errorf(t.line, err, "%s spread", keyword)
	}
	if strings.Contains(t.val, "~") {
		return rf, nil
	}
	return v, nil
}

func (p *parser) moveType(keyword string) (MoveType, error) {
	i, err := p.word(keyword)
	if err != nil {
		return 0, err
	}
	mt, ok := moveTypeNames[strings.ToLower(i.val)]
	if !ok {
		return 0, p.errorf(i.line, ErrUnknownKeyword, "%s %q", keyword, i.val)
	}
	return mt, nil
}

func (p *parser) dirType(keyword string) (DirType, error) {
	i, err := p.word(keyword)
	if err != nil {
		return 0, err
	}
	switch strings.ToLower(i.val) {
	case "linear":
		return DirLinear, nil
	case "point":
		return DirPoint, nil
	}
	return 0, p.errorf(i.line, ErrUnknownKeyword, "%s %q", keyword, i.val)
}

// parseFile reads every system block in the file. Systems completed before
// an error stay in the store.
func (p *parser) parseFile() error {
	var name string
	var nameLine int
	named := false

	for {
		i := p.next()
		switch {
		case i.typ == itemEOF:
			if named {
				return p.errorf(i.line, ErrUnexpectedEOF, "system %s", name)
			}
			return nil

		case i.typ == itemLeftBrace:
			if !named {
				return p.errorf(i.line, ErrUnnamedSystem, "")
			}
			if p.store.full() {
				return p.errorf(i.line, ErrLimitReached, "maximum number of particle systems (%d)", p.store.limits.MaxSystems)
			}
			bs := &BaseSystem{Name: name, File: p.file}
			if err := p.parseSystem(bs); err != nil {
				return fmt.Errorf("failed to parse particle system %s: %w", name, err)
			}
			p.store.add(bs)
			p.added = append(p.added, bs)
			named = false

		case i.typ == itemRightBrace:
			return p.errorf(i.line, ErrMissingBrace, "unexpected '}'")

		case !named:
			if _, exists := p.store.lookup(i.val); exists {
				p.store.log.Warnf("%s:%d: a particle system is already named %s", p.file, i.line, i.val)
				if !p.l.skipBracedSection() {
					return p.errorf(p.l.line, ErrUnexpectedEOF, "skipping duplicate system %s", i.val)
				}
				continue
			}
			name, nameLine, named = i.val, i.line, true

		default:
			return p.errorf(i.line, ErrAlreadyNamed, "%s (line %d) followed by %v", name, nameLine, i)
		}
	}
}

func (p *parser) parseSystem(bs *BaseSystem) error {
	for {
		i := p.next()
		switch {
		case i.typ == itemEOF:
			return p.errorf(i.line, ErrUnexpectedEOF, "system")

		case i.typ == itemLeftBrace:
			be := &BaseEjector{}
			if err := p.parseEjector(be); err != nil {
				return fmt.Errorf("failed to parse particle ejector: %w", err)
			}
			if be.IsInfinite() && (be.Eject.Initial == 0 || be.Eject.Final == 0 || be.Eject.RandFrac >= 1) {
				return p.errorf(i.line, ErrInfinitePeriod, "")
			}
			if len(bs.Ejectors) == p.store.limits.MaxEjectorsPerSystem {
				return p.errorf(i.line, ErrLimitReached, "particle system has > %d ejectors", p.store.limits.MaxEjectorsPerSystem)
			}
			bs.Ejectors = append(bs.Ejectors, be)

		case i.typ == itemRightBrace:
			p.store.debugf(1, "Parsed particle system %s", bs.Name)
			return nil

		case strings.EqualFold(i.val, "thirdPersonOnly"):
			bs.ThirdPersonOnly = true

		case strings.EqualFold(i.val, "ejector"):
			// acceptable text

		default:
			return p.errorf(i.line, ErrUnknownKeyword, "%q in particle system %s", i.val, bs.Name)
		}
	}
}

func (p *parser) parseEjector(be *BaseEjector) error {
	for {
		i := p.next()
		switch {
		case i.typ == itemEOF:
			return p.errorf(i.line, ErrUnexpectedEOF, "ejector")

		case i.typ == itemLeftBrace:
			bp := newBaseParticle()
			if err := p.parseParticle(bp); err != nil {
				return fmt.Errorf("failed to parse particle: %w", err)
			}
			if len(be.Particles) == p.store.limits.MaxParticlesPerEjector {
				return p.errorf(i.line, ErrLimitReached, "ejector has > %d particles", p.store.limits.MaxParticlesPerEjector)
			}
			be.Particles = append(be.Particles, bp)

		case i.typ == itemRightBrace:
			return nil

		case strings.EqualFold(i.val, "delay"):
			delay, rf, err := p.valueAndVariance("delay", false)
			if err != nil {
				return err
			}
			be.Eject.Delay = int(delay)
			be.Eject.DelayRandFrac = rf

		case strings.EqualFold(i.val, "period"):
			if err := p.parsePeriod(&be.Eject); err != nil {
				return err
			}

		case strings.EqualFold(i.val, "count"):
			t, err := p.word("count")
			if err != nil {
				return err
			}
			if strings.EqualFold(t.val, "infinite") {
				be.TotalParticles = Infinite
				be.TotalParticlesRandFrac = 0
				continue
			}
			n, rf, err := ParseValueAndVariance(t.val, false)
			if err != nil {
				return p.errorf(t.line, err, "count")
			}
			be.TotalParticles = int(n)
			be.TotalParticlesRandFrac = rf

		case strings.EqualFold(i.val, "particle"):
			// acceptable text

		default:
			return p.errorf(i.line, ErrUnknownKeyword, "%q in particle ejector", i.val)
		}
	}
}

// parsePeriod reads "period <delay> <initial>[~variance] <final|->".
// The variance of the initial period applies to every ejection.
func (p *parser) parsePeriod(ep *EjectPeriod) error {
	delay, delayRF, err := p.valueAndVariance("period", false)
	if err != nil {
		return err
	}
	ep.Delay = int(delay)
	ep.DelayRandFrac = delayRF

	initial, rf, err := p.valueAndVariance("period", false)
	if err != nil {
		return err
	}
	ep.Initial = int(initial)
	ep.RandFrac = rf

	i, err := p.word("period")
	if err != nil {
		return err
	}
	if i.val == "-" {
		ep.Final = SameAsInitial
		return nil
	}
	ep.Final, err = parseInt(i.val, false)
	if err != nil {
		return p.errorf(i.line, err, "period")
	}
	return nil
}
