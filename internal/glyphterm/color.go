package glyphterm

import "pkt.systems/pixterm/schema"

var palette = [16]schema.RGB{
	{R: 0x00, G: 0x00, B: 0x00},
	{R: 0xcd, G: 0x31, B: 0x31},
	{R: 0x0d, G: 0xbc, B: 0x79},
	{R: 0xe5, G: 0xe5, B: 0x10},
	{R: 0x24, G: 0x72, B: 0xc8},
	{R: 0xbc, G: 0x3f, B: 0xbc},
	{R: 0x11, G: 0xa8, B: 0xcd},
	{R: 0xe5, G: 0xe5, B: 0xe5},
	{R: 0x66, G: 0x66, B: 0x66},
	{R: 0xf1, G: 0x4c, B: 0x4c},
	{R: 0x23, G: 0xd1, B: 0x8b},
	{R: 0xf5, G: 0xf5, B: 0x43},
	{R: 0x3b, G: 0x8e, B: 0xea},
	{R: 0xd6, G: 0x70, B: 0xd6},
	{R: 0x29, G: 0xb8, B: 0xdb},
	{R: 0xff, G: 0xff, B: 0xff},
}

// color256 maps an xterm 256-colour index to RGB.
func color256(n int) schema.RGB {
	switch {
	case n < 16:
		return palette[max(n, 0)]
	case n < 232:
		n -= 16
		level := func(v int) uint8 {
			if v == 0 {
				return 0
			}
			return uint8(55 + v*40)
		}
		return schema.RGB{R: level(n / 36), G: level(n / 6 % 6), B: level(n % 6)}
	case n < 256:
		v := uint8(8 + (n-232)*10)
		return schema.RGB{R: v, G: v, B: v}
	default:
		return palette[7]
	}
}

func (t *Terminal) sgr(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			t.fg, t.bg = t.defFG, t.defBG
		case p == 7:
			t.fg, t.bg = t.bg, t.fg
		case p >= 30 && p <= 37:
			t.fg = palette[p-30]
		case p == 39:
			t.fg = t.defFG
		case p >= 40 && p <= 47:
			t.bg = palette[p-40]
		case p == 49:
			t.bg = t.defBG
		case p >= 90 && p <= 97:
			t.fg = palette[p-90+8]
		case p >= 100 && p <= 107:
			t.bg = palette[p-100+8]
		case p == 38 || p == 48:
			c, used := extendedColor(params[i+1:])
			i += used
			if used == 0 {
				continue
			}
			if p == 38 {
				t.fg = c
			} else {
				t.bg = c
			}
		}
	}
}

func extendedColor(rest []int) (schema.RGB, int) {
	if len(rest) >= 2 && rest[0] == 5 {
		return color256(rest[1]), 2
	}
	if len(rest) >= 4 && rest[0] == 2 {
		return schema.RGB{R: uint8(rest[1]), G: uint8(rest[2]), B: uint8(rest[3])}, 4
	}
	return schema.RGB{}, 0
}
