package input

// Set-1 make codes. Extended keys carry the 0xE0 prefix in the high byte.
var scancodes = [keyCount]uint32{
	KeyBackquote:      0x0029,
	KeyBackslash:      0x002b,
	KeyBackspace:      0x000e,
	KeyBracketLeft:    0x001a,
	KeyBracketRight:   0x001b,
	KeyComma:          0x0033,
	KeyDigit0:         0x000b,
	KeyDigit1:         0x0002,
	KeyDigit2:         0x0003,
	KeyDigit3:         0x0004,
	KeyDigit4:         0x0005,
	KeyDigit5:         0x0006,
	KeyDigit6:         0x0007,
	KeyDigit7:         0x0008,
	KeyDigit8:         0x0009,
	KeyDigit9:         0x000a,
	KeyEqual:          0x000d,
	KeyA:              0x001e,
	KeyB:              0x0030,
	KeyC:              0x002e,
	KeyD:              0x0020,
	KeyE:              0x0012,
	KeyF:              0x0021,
	KeyG:              0x0022,
	KeyH:              0x0023,
	KeyI:              0x0017,
	KeyJ:              0x0024,
	KeyK:              0x0025,
	KeyL:              0x0026,
	KeyM:              0x0032,
	KeyN:              0x0031,
	KeyO:              0x0018,
	KeyP:              0x0019,
	KeyQ:              0x0010,
	KeyR:              0x0013,
	KeyS:              0x001f,
	KeyT:              0x0014,
	KeyU:              0x0016,
	KeyV:              0x002f,
	KeyW:              0x0011,
	KeyX:              0x002d,
	KeyY:              0x0015,
	KeyZ:              0x002c,
	KeyMinus:          0x000c,
	KeyPeriod:         0x0034,
	KeyQuote:          0x0028,
	KeySemicolon:      0x0027,
	KeySlash:          0x0035,
	KeyAltLeft:        0x0038,
	KeyAltRight:       0xe038,
	KeyCapsLock:       0x003a,
	KeyContextMenu:    0xe05d,
	KeyControlLeft:    0x001d,
	KeyControlRight:   0xe01d,
	KeyEnter:          0x001c,
	KeyShiftLeft:      0x002a,
	KeyShiftRight:     0x0036,
	KeySpace:          0x0039,
	KeyTab:            0x000f,
	KeyConvert:        0x0079,
	KeyDelete:         0xe053,
	KeyEnd:            0xe04f,
	KeyHome:           0xe047,
	KeyInsert:         0xe052,
	KeyPageDown:       0xe051,
	KeyPageUp:         0xe049,
	KeyArrowDown:      0xe050,
	KeyArrowLeft:      0xe04b,
	KeyArrowRight:     0xe04d,
	KeyArrowUp:        0xe048,
	KeyNumLock:        0xe045,
	KeyNumpad0:        0x0052,
	KeyNumpad1:        0x004f,
	KeyNumpad2:        0x0050,
	KeyNumpad3:        0x0051,
	KeyNumpad4:        0x004b,
	KeyNumpad5:        0x004c,
	KeyNumpad6:        0x004d,
	KeyNumpad7:        0x0047,
	KeyNumpad8:        0x0048,
	KeyNumpad9:        0x0049,
	KeyNumpadAdd:      0x004e,
	KeyNumpadComma:    0x007e,
	KeyNumpadDecimal:  0x0053,
	KeyNumpadDivide:   0xe035,
	KeyNumpadEnter:    0xe01c,
	KeyNumpadEqual:    0x0059,
	KeyNumpadMultiply: 0x0037,
	KeyNumpadSubtract: 0x004a,
	KeyEscape:         0x0001,
	KeyF1:             0x003b,
	KeyF2:             0x003c,
	KeyF3:             0x003d,
	KeyF4:             0x003e,
	KeyF5:             0x003f,
	KeyF6:             0x0040,
	KeyF7:             0x0041,
	KeyF8:             0x0042,
	KeyF9:             0x0043,
	KeyF10:            0x0044,
	KeyF11:            0x0057,
	KeyF12:            0x0058,
	KeyF13:            0x0064,
	KeyF14:            0x0065,
	KeyF15:            0x0066,
	KeyF16:            0x0067,
	KeyF17:            0x0068,
	KeyF18:            0x0069,
	KeyF19:            0x006a,
	KeyF20:            0x006b,
	KeyF21:            0x006c,
	KeyF22:            0x006d,
	KeyF23:            0x006e,
	KeyF24:            0x0076,
	KeyScrollLock:     0x0046,
	KeyPause:          0x0045,
}

// ExtendedPrefix is emitted as its own byte ahead of extended scancodes.
const ExtendedPrefix byte = 0xe0

// ReleaseOffset is added to a make code to form its break code.
const ReleaseOffset = 0x80

// Scancode returns the set-1 make code of code.
func Scancode(code KeyCode) (uint32, bool) {
	if code <= KeyUnknown || code >= keyCount {
		return 0, false
	}
	sc := scancodes[code]
	return sc, sc != 0
}

// Encode returns the bytes queued for a key transition: an optional 0xE0
// prefix followed by the base code, with 0x80 added on release.
func Encode(code KeyCode, pressed bool) ([]byte, bool) {
	sc, ok := Scancode(code)
	if !ok {
		return nil, false
	}
	if !pressed {
		sc += ReleaseOffset
	}
	if sc >= 0xe000 {
		return []byte{ExtendedPrefix, byte(sc - 0xe000)}, true
	}
	return []byte{byte(sc)}, true
}
