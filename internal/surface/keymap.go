package surface

import (
	"github.com/gdamore/tcell/v2"

	"pkt.systems/pixterm/input"
)

// stroke is a physical key plus the modifier keys held around it.
type stroke struct {
	code input.KeyCode
	mods []input.KeyCode
}

var specialKeys = map[tcell.Key]stroke{
	tcell.KeyEnter:      {code: input.KeyEnter},
	tcell.KeyTab:        {code: input.KeyTab},
	tcell.KeyBacktab:    {code: input.KeyTab, mods: []input.KeyCode{input.KeyShiftLeft}},
	tcell.KeyBackspace:  {code: input.KeyBackspace},
	tcell.KeyBackspace2: {code: input.KeyBackspace},
	tcell.KeyEscape:     {code: input.KeyEscape},
	tcell.KeyUp:         {code: input.KeyArrowUp},
	tcell.KeyDown:       {code: input.KeyArrowDown},
	tcell.KeyLeft:       {code: input.KeyArrowLeft},
	tcell.KeyRight:      {code: input.KeyArrowRight},
	tcell.KeyHome:       {code: input.KeyHome},
	tcell.KeyEnd:        {code: input.KeyEnd},
	tcell.KeyPgUp:       {code: input.KeyPageUp},
	tcell.KeyPgDn:       {code: input.KeyPageDown},
	tcell.KeyInsert:     {code: input.KeyInsert},
	tcell.KeyDelete:     {code: input.KeyDelete},
	tcell.KeyF1:         {code: input.KeyF1},
	tcell.KeyF2:         {code: input.KeyF2},
	tcell.KeyF3:         {code: input.KeyF3},
	tcell.KeyF4:         {code: input.KeyF4},
	tcell.KeyF5:         {code: input.KeyF5},
	tcell.KeyF6:         {code: input.KeyF6},
	tcell.KeyF7:         {code: input.KeyF7},
	tcell.KeyF8:         {code: input.KeyF8},
	tcell.KeyF9:         {code: input.KeyF9},
	tcell.KeyF10:        {code: input.KeyF10},
	tcell.KeyF11:        {code: input.KeyF11},
	tcell.KeyF12:        {code: input.KeyF12},
}

// US layout: unshifted and shifted characters per physical key.
var layout = map[input.KeyCode][2]rune{
	input.KeyBackquote:    {'`', '~'},
	input.KeyDigit1:       {'1', '!'},
	input.KeyDigit2:       {'2', '@'},
	input.KeyDigit3:       {'3', '#'},
	input.KeyDigit4:       {'4', '$'},
	input.KeyDigit5:       {'5', '%'},
	input.KeyDigit6:       {'6', '^'},
	input.KeyDigit7:       {'7', '&'},
	input.KeyDigit8:       {'8', '*'},
	input.KeyDigit9:       {'9', '('},
	input.KeyDigit0:       {'0', ')'},
	input.KeyMinus:        {'-', '_'},
	input.KeyEqual:        {'=', '+'},
	input.KeyBracketLeft:  {'[', '{'},
	input.KeyBracketRight: {']', '}'},
	input.KeyBackslash:    {'\\', '|'},
	input.KeySemicolon:    {';', ':'},
	input.KeyQuote:        {'\'', '"'},
	input.KeyComma:        {',', '<'},
	input.KeyPeriod:       {'.', '>'},
	input.KeySlash:        {'/', '?'},
	input.KeySpace:        {' ', ' '},
}

var runeKeys = buildRuneKeys()

func buildRuneKeys() map[rune]stroke {
	keys := make(map[rune]stroke, 2*len(layout)+52)
	shift := []input.KeyCode{input.KeyShiftLeft}
	for code, chars := range layout {
		keys[chars[0]] = stroke{code: code}
		if chars[1] != chars[0] {
			keys[chars[1]] = stroke{code: code, mods: shift}
		}
	}
	for i := range 26 {
		code := input.KeyA + input.KeyCode(i)
		keys['a'+rune(i)] = stroke{code: code}
		keys['A'+rune(i)] = stroke{code: code, mods: shift}
	}
	return keys
}

// translateKey maps a tcell key event to the physical key strokes that
// produce it on a US layout.
func translateKey(ev *tcell.EventKey) (stroke, bool) {
	var s stroke
	switch key := ev.Key(); {
	case key == tcell.KeyRune:
		var ok bool
		s, ok = runeKeys[ev.Rune()]
		if !ok {
			return stroke{}, false
		}
	case specialKeys[key].code != input.KeyUnknown:
		s = specialKeys[key]
	case key >= tcell.KeyCtrlA && key <= tcell.KeyCtrlZ:
		s = stroke{
			code: input.KeyA + input.KeyCode(key-tcell.KeyCtrlA),
			mods: []input.KeyCode{input.KeyControlLeft},
		}
		return s, true
	default:
		return stroke{}, false
	}
	return withModifiers(s, ev.Modifiers()), true
}

func withModifiers(s stroke, mods tcell.ModMask) stroke {
	held := append([]input.KeyCode(nil), s.mods...)
	add := func(code input.KeyCode) {
		for _, m := range held {
			if m == code {
				return
			}
		}
		held = append(held, code)
	}
	if mods&tcell.ModCtrl != 0 {
		add(input.KeyControlLeft)
	}
	if mods&tcell.ModAlt != 0 {
		add(input.KeyAltLeft)
	}
	if mods&tcell.ModShift != 0 && s.code != input.KeySpace {
		add(input.KeyShiftLeft)
	}
	s.mods = held
	return s
}

// send presses the modifiers, taps the key and releases the modifiers in
// reverse order.
func (s stroke) send(r *input.Router) error {
	for _, m := range s.mods {
		if err := r.Key(m, true); err != nil {
			return err
		}
	}
	if err := r.Tap(s.code); err != nil {
		return err
	}
	for i := len(s.mods) - 1; i >= 0; i-- {
		if err := r.Key(s.mods[i], false); err != nil {
			return err
		}
	}
	return nil
}
