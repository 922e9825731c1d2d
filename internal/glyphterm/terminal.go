// Package glyphterm is a small terminal engine that rasterizes a cell grid
// with the 7x13 bitmap face from golang.org/x/image. It understands enough
// of the byte stream to display an interactive shell: printable text, line
// control, cursor addressing, erase and SGR colours. Other escape sequences
// are consumed and dropped.
package glyphterm

import (
	"image"
	"unicode/utf8"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"pkt.systems/pixterm/engine"
	"pkt.systems/pixterm/schema"
	"pkt.systems/pslog"
)

// Defaults mirror a typical interactive terminal.
const (
	DefaultHistorySize = 1000
	DefaultScrollSpeed = 5
)

var (
	defaultFG = schema.RGB{R: 0xcc, G: 0xcc, B: 0xcc}
	defaultBG = schema.RGB{}
)

// Options configures a Terminal.
type Options struct {
	HistorySize int
	ScrollSpeed int
	Foreground  schema.RGB
	Background  schema.RGB
	Logger      pslog.Logger
}

type cell struct {
	r  rune
	fg schema.RGB
	bg schema.RGB
}

// Terminal implements engine.Engine.
type Terminal struct {
	target engine.DrawTarget
	face   *basicfont.Face
	cellW  int
	cellH  int
	rows   int
	cols   int

	grid    [][]cell
	history [][]cell
	maxHist int

	row, col int
	fg, bg   schema.RGB
	defFG    schema.RGB
	defBG    schema.RGB

	viewOffset  int
	scrollSpeed int
	dirty       []bool
	cursorRow   int

	parser   parser
	keyboard keyboard
	output   func([]byte)
	log      pslog.Logger
}

var _ engine.Engine = (*Terminal)(nil)

// New creates a terminal whose grid fills target.
func New(target engine.DrawTarget, opts Options) *Terminal {
	face := basicfont.Face7x13
	w, h := target.Size()
	t := &Terminal{
		target:      target,
		face:        face,
		cellW:       face.Advance,
		cellH:       face.Height,
		maxHist:     opts.HistorySize,
		scrollSpeed: opts.ScrollSpeed,
		defFG:       opts.Foreground,
		defBG:       opts.Background,
		log:         opts.Logger,
	}
	if t.maxHist <= 0 {
		t.maxHist = DefaultHistorySize
	}
	if t.scrollSpeed <= 0 {
		t.scrollSpeed = DefaultScrollSpeed
	}
	if t.defFG == (schema.RGB{}) && t.defBG == (schema.RGB{}) {
		t.defFG = defaultFG
		t.defBG = defaultBG
	}
	t.fg, t.bg = t.defFG, t.defBG
	t.cols = max(w/t.cellW, 1)
	t.rows = max(h/t.cellH, 1)
	t.grid = make([][]cell, t.rows)
	for i := range t.grid {
		t.grid[i] = t.blankLine()
	}
	t.dirty = make([]bool, t.rows)
	t.markAll()
	return t
}

// SetLogger replaces the logger used for ignored sequences.
func (t *Terminal) SetLogger(log pslog.Logger) {
	t.log = log
}

// SetOutput registers the upstream byte callback.
func (t *Terminal) SetOutput(fn func([]byte)) {
	t.output = fn
}

// Rows returns the grid height.
func (t *Terminal) Rows() int { return t.rows }

// Columns returns the grid width.
func (t *Terminal) Columns() int { return t.cols }

// Cursor returns the cursor position in cells.
func (t *Terminal) Cursor() (row, col int) { return t.row, t.col }

// Line returns the visible text of row with trailing blanks trimmed.
func (t *Terminal) Line(row int) string {
	if row < 0 || row >= t.rows {
		return ""
	}
	line := t.viewLine(row)
	end := len(line)
	for end > 0 && (line[end-1].r == 0 || line[end-1].r == ' ') {
		end--
	}
	buf := make([]byte, 0, end)
	for _, c := range line[:end] {
		r := c.r
		if r == 0 {
			r = ' '
		}
		buf = utf8.AppendRune(buf, r)
	}
	return string(buf)
}

// HistoryLen returns the number of lines scrolled off the top.
func (t *Terminal) HistoryLen() int { return len(t.history) }

// ViewOffset returns how many lines the viewport is scrolled back.
func (t *Terminal) ViewOffset() int { return t.viewOffset }

// Process interprets bytes from the remote session.
func (t *Terminal) Process(data []byte) {
	t.parser.feed(t, data)
}

// HandleKeyboard decodes one scancode byte and emits the bytes it maps to.
func (t *Terminal) HandleKeyboard(scancode byte) {
	seq := t.keyboard.handle(scancode)
	if len(seq) == 0 {
		return
	}
	t.setViewOffset(0)
	t.emit(seq)
}

// HandleMouse scrolls the viewport through history.
func (t *Terminal) HandleMouse(input schema.MouseInput) {
	if input.Scroll == 0 {
		return
	}
	t.setViewOffset(t.viewOffset + input.Scroll*t.scrollSpeed)
}

// Flush rasterizes rows changed since the previous flush.
func (t *Terminal) Flush() {
	for row := 0; row < t.rows; row++ {
		if !t.dirty[row] {
			continue
		}
		t.dirty[row] = false
		line := t.viewLine(row)
		for col := 0; col < t.cols; col++ {
			c := line[col]
			inverse := t.viewOffset == 0 && row == t.row && col == t.col
			t.drawCell(row, col, c, inverse)
		}
	}
}

func (t *Terminal) emit(seq []byte) {
	if t.output == nil {
		return
	}
	out := make([]byte, len(seq))
	copy(out, seq)
	t.output(out)
}

func (t *Terminal) viewLine(row int) []cell {
	if t.viewOffset == 0 {
		return t.grid[row]
	}
	idx := len(t.history) - t.viewOffset + row
	if idx < len(t.history) {
		line := t.history[idx]
		if len(line) < t.cols {
			padded := t.blankLine()
			copy(padded, line)
			return padded
		}
		return line
	}
	return t.grid[idx-len(t.history)]
}

func (t *Terminal) setViewOffset(v int) {
	v = min(max(v, 0), len(t.history))
	if v == t.viewOffset {
		return
	}
	t.viewOffset = v
	t.markAll()
}

func (t *Terminal) drawCell(row, col int, c cell, inverse bool) {
	fg, bg := c.fg, c.bg
	if inverse {
		fg, bg = bg, fg
	}
	x0 := col * t.cellW
	y0 := row * t.cellH
	for y := y0; y < y0+t.cellH; y++ {
		for x := x0; x < x0+t.cellW; x++ {
			t.target.DrawPixel(x, y, bg)
		}
	}
	if c.r == 0 || c.r == ' ' {
		return
	}
	dr, mask, maskp, _, ok := t.face.Glyph(fixed.P(x0, y0+t.face.Ascent), c.r)
	if !ok {
		dr, mask, maskp, _, ok = t.face.Glyph(fixed.P(x0, y0+t.face.Ascent), '?')
		if !ok {
			return
		}
	}
	clip := image.Rect(x0, y0, x0+t.cellW, y0+t.cellH)
	dr = dr.Intersect(clip)
	for y := dr.Min.Y; y < dr.Max.Y; y++ {
		for x := dr.Min.X; x < dr.Max.X; x++ {
			_, _, _, a := mask.At(maskp.X+x-dr.Min.X, maskp.Y+y-dr.Min.Y).RGBA()
			if a >= 0x8000 {
				t.target.DrawPixel(x, y, fg)
			}
		}
	}
}

func (t *Terminal) blankLine() []cell {
	line := make([]cell, t.cols)
	for i := range line {
		line[i] = cell{r: ' ', fg: t.defFG, bg: t.defBG}
	}
	return line
}

func (t *Terminal) blank() cell {
	return cell{r: ' ', fg: t.fg, bg: t.bg}
}

func (t *Terminal) markAll() {
	for i := range t.dirty {
		t.dirty[i] = true
	}
}

func (t *Terminal) markRow(row int) {
	if row >= 0 && row < t.rows {
		t.dirty[row] = true
	}
}

func (t *Terminal) moveCursor(row, col int) {
	row = min(max(row, 0), t.rows-1)
	col = min(max(col, 0), t.cols-1)
	if row != t.cursorRow {
		t.markRow(t.cursorRow)
	}
	t.row, t.col = row, col
	t.cursorRow = row
	t.markRow(row)
}

func (t *Terminal) put(r rune) {
	if t.col >= t.cols {
		t.col = 0
		t.lineFeed()
	}
	t.grid[t.row][t.col] = cell{r: r, fg: t.fg, bg: t.bg}
	t.markRow(t.row)
	t.col++
	if t.col < t.cols {
		t.moveCursor(t.row, t.col)
	}
}

func (t *Terminal) lineFeed() {
	if t.row+1 < t.rows {
		t.moveCursor(t.row+1, t.col)
		return
	}
	t.scrollUp()
	t.markRow(t.row)
}

func (t *Terminal) scrollUp() {
	t.history = append(t.history, t.grid[0])
	if len(t.history) > t.maxHist {
		drop := len(t.history) - t.maxHist
		t.history = append(t.history[:0:0], t.history[drop:]...)
	}
	copy(t.grid, t.grid[1:])
	t.grid[t.rows-1] = t.blankLine()
	if t.viewOffset > 0 {
		t.viewOffset = min(t.viewOffset+1, len(t.history))
	}
	t.markAll()
}

func (t *Terminal) control(b byte) {
	switch b {
	case '\r':
		t.moveCursor(t.row, 0)
	case '\n', '\v', '\f':
		t.lineFeed()
	case '\b':
		if t.col > 0 {
			t.moveCursor(t.row, t.col-1)
		}
	case '\t':
		next := (t.col/8 + 1) * 8
		t.moveCursor(t.row, min(next, t.cols-1))
	case 0x07, 0x00, 0x7f:
	default:
		t.debug("terminal control ignored", "byte", b)
	}
}

func (t *Terminal) eraseLine(row, from, to int) {
	line := t.grid[row]
	for i := max(from, 0); i < to && i < t.cols; i++ {
		line[i] = t.blank()
	}
	t.markRow(row)
}

func (t *Terminal) debug(msg string, kv ...any) {
	if t.log != nil {
		t.log.Debug(msg, kv...)
	}
}
