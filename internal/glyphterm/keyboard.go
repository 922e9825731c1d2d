package glyphterm

// Set-1 make codes the decoder cares about.
const (
	scEscape     = 0x01
	scBackspace  = 0x0e
	scTab        = 0x0f
	scEnter      = 0x1c
	scControl    = 0x1d
	scShiftLeft  = 0x2a
	scShiftRight = 0x36
	scAlt        = 0x38
	scCapsLock   = 0x3a
)

// US layout, unshifted and shifted, indexed by make code.
var (
	keymapPlain = map[byte]byte{
		0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5', 0x07: '6',
		0x08: '7', 0x09: '8', 0x0a: '9', 0x0b: '0', 0x0c: '-', 0x0d: '=',
		0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't', 0x15: 'y',
		0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p', 0x1a: '[', 0x1b: ']',
		0x1e: 'a', 0x1f: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g', 0x23: 'h',
		0x24: 'j', 0x25: 'k', 0x26: 'l', 0x27: ';', 0x28: '\'', 0x29: '`',
		0x2b: '\\', 0x2c: 'z', 0x2d: 'x', 0x2e: 'c', 0x2f: 'v', 0x30: 'b',
		0x31: 'n', 0x32: 'm', 0x33: ',', 0x34: '.', 0x35: '/', 0x39: ' ',
		0x37: '*', 0x4a: '-', 0x4e: '+', 0x47: '7', 0x48: '8', 0x49: '9',
		0x4b: '4', 0x4c: '5', 0x4d: '6', 0x4f: '1', 0x50: '2', 0x51: '3',
		0x52: '0', 0x53: '.', 0x59: '=', 0x7e: ',',
	}
	keymapShift = map[byte]byte{
		0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%', 0x07: '^',
		0x08: '&', 0x09: '*', 0x0a: '(', 0x0b: ')', 0x0c: '_', 0x0d: '+',
		0x1a: '{', 0x1b: '}', 0x27: ':', 0x28: '"', 0x29: '~', 0x2b: '|',
		0x33: '<', 0x34: '>', 0x35: '?',
	}
	// Extended keys, keyed by the byte following 0xE0.
	keymapExtended = map[byte]string{
		0x48: "\x1b[A",
		0x50: "\x1b[B",
		0x4d: "\x1b[C",
		0x4b: "\x1b[D",
		0x47: "\x1b[H",
		0x4f: "\x1b[F",
		0x52: "\x1b[2~",
		0x53: "\x1b[3~",
		0x49: "\x1b[5~",
		0x51: "\x1b[6~",
		0x1c: "\r",
		0x35: "/",
	}
	keymapFunction = map[byte]string{
		0x3b: "\x1bOP",
		0x3c: "\x1bOQ",
		0x3d: "\x1bOR",
		0x3e: "\x1bOS",
		0x3f: "\x1b[15~",
		0x40: "\x1b[17~",
		0x41: "\x1b[18~",
		0x42: "\x1b[19~",
		0x43: "\x1b[20~",
		0x44: "\x1b[21~",
		0x57: "\x1b[23~",
		0x58: "\x1b[24~",
	}
)

// keyboard tracks modifier state across scancode bytes.
type keyboard struct {
	extended bool
	shiftL   bool
	shiftR   bool
	ctrl     bool
	alt      bool
	caps     bool
}

func (k *keyboard) shift() bool {
	return k.shiftL || k.shiftR
}

// handle consumes one scancode byte and returns the bytes it produces.
func (k *keyboard) handle(b byte) []byte {
	if b == 0xe0 {
		k.extended = true
		return nil
	}
	ext := k.extended
	k.extended = false
	release := b&0x80 != 0
	code := b &^ 0x80

	switch code {
	case scShiftLeft:
		if !ext {
			k.shiftL = !release
		}
		return nil
	case scShiftRight:
		k.shiftR = !release
		return nil
	case scControl:
		k.ctrl = !release
		return nil
	case scAlt:
		k.alt = !release
		return nil
	case scCapsLock:
		if !release && !ext {
			k.caps = !k.caps
		}
		return nil
	}
	if release {
		return nil
	}
	if ext {
		if seq, ok := keymapExtended[code]; ok {
			return []byte(seq)
		}
		return nil
	}
	var out []byte
	switch code {
	case scEscape:
		out = []byte{0x1b}
	case scBackspace:
		out = []byte{0x7f}
		if k.ctrl {
			out = []byte{0x08}
		}
	case scTab:
		out = []byte{'\t'}
		if k.shift() {
			out = []byte("\x1b[Z")
		}
	case scEnter:
		out = []byte{'\r'}
	default:
		if seq, ok := keymapFunction[code]; ok {
			return []byte(seq)
		}
		c, ok := k.printable(code)
		if !ok {
			return nil
		}
		out = []byte{c}
	}
	if k.alt {
		out = append([]byte{0x1b}, out...)
	}
	return out
}

func (k *keyboard) printable(code byte) (byte, bool) {
	c, ok := keymapPlain[code]
	if !ok {
		return 0, false
	}
	isLetter := c >= 'a' && c <= 'z'
	if k.ctrl {
		switch {
		case isLetter:
			return c & 0x1f, true
		case c == ' ' || c == '2':
			return 0x00, true
		case c == '[':
			return 0x1b, true
		case c == '\\':
			return 0x1c, true
		case c == ']':
			return 0x1d, true
		}
	}
	if isLetter {
		if k.shift() != k.caps {
			c -= 'a' - 'A'
		}
		return c, true
	}
	if k.shift() && code < 0x47 {
		if s, ok := keymapShift[code]; ok {
			return s, true
		}
	}
	return c, true
}
