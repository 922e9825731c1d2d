package glyphterm

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type parseState int

const (
	stateGround parseState = iota
	stateEscape
	stateEscapeIntermediate
	stateCSI
	stateString
	stateStringEscape
)

type parser struct {
	state  parseState
	params []byte
	inter  []byte
	pend   []byte
}

func (p *parser) feed(t *Terminal, data []byte) {
	for _, b := range data {
		p.step(t, b)
	}
}

func (p *parser) step(t *Terminal, b byte) {
	switch p.state {
	case stateGround:
		p.ground(t, b)
	case stateEscape:
		p.escape(t, b)
	case stateEscapeIntermediate:
		if b >= 0x30 && b <= 0x7e {
			p.state = stateGround
		}
	case stateCSI:
		switch {
		case b >= 0x30 && b <= 0x3f:
			p.params = append(p.params, b)
		case b >= 0x20 && b <= 0x2f:
			p.inter = append(p.inter, b)
		case b >= 0x40 && b <= 0x7e:
			p.state = stateGround
			t.dispatchCSI(b, string(p.params), string(p.inter))
		case b == 0x1b:
			p.enterEscape()
		default:
			t.control(b)
		}
	case stateString:
		switch b {
		case 0x07:
			p.state = stateGround
		case 0x1b:
			p.state = stateStringEscape
		}
	case stateStringEscape:
		if b == '\\' {
			p.state = stateGround
			return
		}
		p.state = stateString
	}
}

func (p *parser) ground(t *Terminal, b byte) {
	if len(p.pend) > 0 {
		if b >= 0x80 && b < 0xc0 {
			p.pend = append(p.pend, b)
			if utf8.FullRune(p.pend) {
				r, _ := utf8.DecodeRune(p.pend)
				p.pend = p.pend[:0]
				t.put(r)
			}
			return
		}
		p.pend = p.pend[:0]
		t.put(utf8.RuneError)
	}
	switch {
	case b == 0x1b:
		p.enterEscape()
	case b < 0x20 || b == 0x7f:
		t.control(b)
	case b < 0x80:
		t.put(rune(b))
	case b >= 0xc0 && b < 0xf8:
		p.pend = append(p.pend, b)
	default:
		t.put(utf8.RuneError)
	}
}

func (p *parser) enterEscape() {
	p.state = stateEscape
	p.params = p.params[:0]
	p.inter = p.inter[:0]
}

func (p *parser) escape(t *Terminal, b byte) {
	switch {
	case b == '[':
		p.state = stateCSI
	case b == ']' || b == 'P' || b == '_' || b == '^' || b == 'X':
		p.state = stateString
	case b >= 0x20 && b <= 0x2f:
		p.state = stateEscapeIntermediate
	case b == 'c':
		p.state = stateGround
		t.reset()
	default:
		p.state = stateGround
	}
}

func parseParams(raw string) []int {
	raw = strings.TrimLeft(raw, "?<=>")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	out := make([]int, len(parts))
	for i, part := range parts {
		if sub, _, ok := strings.Cut(part, ":"); ok {
			part = sub
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}

func param(params []int, i, def int) int {
	if i < len(params) && params[i] > 0 {
		return params[i]
	}
	return def
}

func (t *Terminal) dispatchCSI(final byte, rawParams, inter string) {
	if inter != "" || strings.HasPrefix(rawParams, "?") || strings.HasPrefix(rawParams, ">") {
		// Private modes (cursor visibility, bracketed paste, alt screen).
		return
	}
	params := parseParams(rawParams)
	switch final {
	case 'A':
		t.moveCursor(t.row-param(params, 0, 1), t.col)
	case 'B':
		t.moveCursor(t.row+param(params, 0, 1), t.col)
	case 'C':
		t.moveCursor(t.row, t.col+param(params, 0, 1))
	case 'D':
		t.moveCursor(t.row, t.col-param(params, 0, 1))
	case 'G':
		t.moveCursor(t.row, param(params, 0, 1)-1)
	case 'd':
		t.moveCursor(param(params, 0, 1)-1, t.col)
	case 'H', 'f':
		t.moveCursor(param(params, 0, 1)-1, param(params, 1, 1)-1)
	case 'J':
		t.eraseDisplay(param(params, 0, 0))
	case 'K':
		switch param(params, 0, 0) {
		case 1:
			t.eraseLine(t.row, 0, t.col+1)
		case 2:
			t.eraseLine(t.row, 0, t.cols)
		default:
			t.eraseLine(t.row, t.col, t.cols)
		}
	case 'm':
		t.sgr(params)
	default:
		t.debug("terminal sequence ignored", "final", string(final), "params", rawParams)
	}
}

func (t *Terminal) eraseDisplay(mode int) {
	switch mode {
	case 1:
		for row := 0; row < t.row; row++ {
			t.eraseLine(row, 0, t.cols)
		}
		t.eraseLine(t.row, 0, t.col+1)
	case 2, 3:
		for row := 0; row < t.rows; row++ {
			t.eraseLine(row, 0, t.cols)
		}
	default:
		t.eraseLine(t.row, t.col, t.cols)
		for row := t.row + 1; row < t.rows; row++ {
			t.eraseLine(row, 0, t.cols)
		}
	}
}

func (t *Terminal) reset() {
	t.fg, t.bg = t.defFG, t.defBG
	for i := range t.grid {
		t.grid[i] = t.blankLine()
	}
	t.moveCursor(0, 0)
	t.markAll()
}
