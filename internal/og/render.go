package og

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const padding = 48

// Renderer paints scenes. Fonts are parsed once and shared; faces are created
// per render since they are not safe for concurrent use.
type Renderer struct {
	regular *opentype.Font
	bold    *opentype.Font
}

// NewRenderer parses the embedded Go fonts.
func NewRenderer() (*Renderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &Renderer{regular: regular, bold: bold}, nil
}

// Render paints s onto a new Width x Height image.
func (r *Renderer) Render(s Scene) (image.Image, error) {
	dc, err := r.paint(s)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders s and writes it PNG-encoded to w.
func (r *Renderer) WritePNG(w io.Writer, s Scene) error {
	dc, err := r.paint(s)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// RenderPNG renders s and returns it PNG-encoded.
func (r *Renderer) RenderPNG(s Scene) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WritePNG(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) paint(s Scene) (*gg.Context, error) {
	d := &drawer{
		dc:    gg.NewContext(Width, Height),
		p:     s.Palette,
		r:     r,
		faces: make(map[faceKey]font.Face),
	}
	defer d.close()

	d.dc.SetColor(s.Palette.Background)
	d.dc.Clear()

	x, y := float64(padding), float64(padding)
	w, h := float64(Width-2*padding), float64(Height-2*padding)
	if s.Heading != nil {
		used, err := d.heading(*s.Heading, x, y, w)
		if err != nil {
			return nil, err
		}
		y += used
		h -= used
	}
	if s.Body != nil {
		s.Body.draw(d, x, y, w, h)
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.dc, nil
}

type faceKey struct {
	bold bool
	size float64
}

type drawer struct {
	dc    *gg.Context
	p     Palette
	r     *Renderer
	faces map[faceKey]font.Face
	err   error
}

func (d *drawer) close() {
	for _, f := range d.faces {
		f.Close()
	}
}

// font selects a face, remembering the first error.
func (d *drawer) font(bold bool, size float64) {
	key := faceKey{bold, size}
	face, ok := d.faces[key]
	if !ok {
		src := d.r.regular
		if bold {
			src = d.r.bold
		}
		var err error
		face, err = opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			if d.err == nil {
				d.err = fmt.Errorf("create %.0fpt face: %w", size, err)
			}
			return
		}
		d.faces[key] = face
	}
	d.dc.SetFontFace(face)
}

// text draws s with its top edge at y. ax is 0 for left, 0.5 for centre and
// 1 for right alignment around x.
func (d *drawer) text(s string, x, y, ax float64, c color.Color) {
	d.dc.SetColor(c)
	d.dc.DrawStringAnchored(s, x, y, ax, 1)
}

func (d *drawer) card(x, y, w, h float64, border color.NRGBA) {
	d.dc.DrawRoundedRectangle(x, y, w, h, 12)
	d.dc.SetColor(d.p.Card)
	d.dc.FillPreserve()
	if border.A == 0 {
		border = d.p.Border
	}
	d.dc.SetColor(border)
	d.dc.SetLineWidth(2)
	d.dc.Stroke()
}

// pill draws a rounded badge and returns its width.
func (d *drawer) pill(label string, x, y float64) float64 {
	d.font(false, 14)
	tw, _ := d.dc.MeasureString(label)
	w, h := tw+24, 26.0
	d.dc.DrawRoundedRectangle(x, y, w, h, h/2)
	d.dc.SetColor(d.p.Border)
	d.dc.SetLineWidth(1)
	d.dc.Stroke()
	d.text(label, x+12, y+5, 0, d.p.MutedForeground)
	return w
}

// badges flows pills left to right, wrapping within w, and stops once the
// next row would pass maxY. It returns the y below the last row.
func (d *drawer) badges(labels []string, x, y, w, maxY float64) float64 {
	const gap, rowH = 8.0, 34.0
	cx := x
	for _, label := range labels {
		d.font(false, 14)
		tw, _ := d.dc.MeasureString(label)
		if cx > x && cx+tw+24 > x+w {
			cx = x
			y += rowH
		}
		if y+26 > maxY {
			break
		}
		cx += d.pill(label, cx, y) + gap
	}
	return y + rowH
}

// wrapped draws s wrapped to w, at most maxLines lines, and returns the
// height used.
func (d *drawer) wrapped(s string, x, y, w float64, size float64, bold bool, maxLines int, c color.Color) float64 {
	d.font(bold, size)
	lines := d.dc.WordWrap(s, w)
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = ellipsize(lines[maxLines-1])
	}
	lineH := size * 1.3
	for i, line := range lines {
		d.text(line, x, y+float64(i)*lineH, 0, c)
	}
	return float64(len(lines)) * lineH
}

// spans draws bold runs of text centred on cx.
func (d *drawer) spans(spans []Span, cx, y, size, gap float64) {
	d.font(true, size)
	total := 0.0
	widths := make([]float64, len(spans))
	for i, s := range spans {
		widths[i], _ = d.dc.MeasureString(s.Text)
		total += widths[i]
	}
	total += gap * float64(len(spans)-1)

	x := cx - total/2
	for i, s := range spans {
		d.text(s.Text, x, y, 0, s.Color)
		x += widths[i] + gap
	}
}

func (d *drawer) heading(h Heading, x, y, w float64) (float64, error) {
	size := h.Size
	if size == 0 {
		size = 48
	}
	d.spans(h.Spans, x+w/2, y, size, 12)
	used := size + 8
	if h.Subtitle != "" {
		d.font(false, 20)
		d.text(h.Subtitle, x+w/2, y+used+4, 0.5, d.p.MutedForeground)
		used += 4 + 24
	}
	return used + 32, d.err
}

// grid splits a box into cells of cols columns separated by gap.
func grid(n, cols int, w, h, gap float64) (cellW, cellH float64) {
	rows := max(1, int(math.Ceil(float64(n)/float64(cols))))
	cellW = (w - gap*float64(cols-1)) / float64(cols)
	cellH = (h - gap*float64(rows-1)) / float64(rows)
	return cellW, cellH
}

// cell returns the origin of cell i.
func cell(i, cols int, x, y, cellW, cellH, gap float64) (float64, float64) {
	return x + float64(i%cols)*(cellW+gap), y + float64(i/cols)*(cellH+gap)
}

func (g StatGrid) draw(d *drawer, x, y, w, h float64) {
	const gap = 20.0
	cols := max(1, g.Columns)
	cellW, cellH := grid(len(g.Cards), cols, w, h, gap)
	for i, c := range g.Cards {
		cx, cy := cell(i, cols, x, y, cellW, cellH, gap)
		d.card(cx, cy, cellW, cellH, withAlpha(c.Accent, 0x40))

		d.font(false, 14)
		d.text(c.Title, cx+24, cy+24, 0, d.p.MutedForeground)
		d.font(true, 36)
		d.text(c.Value, cx+24, cy+24+14+12, 0, c.Accent)
		d.font(false, 12)
		d.text(c.Subtitle, cx+24, cy+24+14+12+36+8, 0, d.p.MutedForeground)
	}
}

func (g CardGrid) draw(d *drawer, x, y, w, h float64) {
	if len(g.Cards) == 0 {
		d.font(false, 24)
		d.text(g.Empty, x+w/2, y+h/2-12, 0.5, d.p.MutedForeground)
		return
	}

	const gap, inset = 20.0, 20.0
	cols := max(1, g.Columns)
	cellW, cellH := grid(len(g.Cards), cols, w, h, gap)
	for i, c := range g.Cards {
		cx, cy := cell(i, cols, x, y, cellW, cellH, gap)
		d.card(cx, cy, cellW, cellH, c.Border)

		innerX, innerW := cx+inset, cellW-2*inset
		ty := cy + inset
		if c.Meta != "" || c.MetaRight != "" {
			d.font(false, 11)
			d.text(c.Meta, innerX, ty, 0, d.p.MutedForeground)
			d.text(c.MetaRight, innerX+innerW, ty, 1, d.p.MutedForeground)
			ty += 11 + 10
		}

		titleSize := c.TitleSize
		if titleSize == 0 {
			titleSize = 22
		}
		ty += d.wrapped(c.Title, innerX, ty, innerW, titleSize, true, 2, d.p.CardForeground) + 6

		bottom := cy + cellH - inset
		footerH := 0.0
		if c.Footer != "" {
			footerH = 14 + 8
		}
		badgeRows := 0.0
		if len(c.Badges) > 0 {
			badgeRows = 34
		}

		if c.Body != "" {
			room := bottom - footerH - badgeRows - ty
			lines := int(room / (14 * 1.3))
			if lines > 0 {
				d.wrapped(c.Body, innerX, ty, innerW, 14, false, lines, d.p.MutedForeground)
			}
		}
		if len(c.Badges) > 0 {
			d.badges(c.Badges, innerX, bottom-footerH-badgeRows+4, innerW, bottom-footerH+4)
		}
		if c.Footer != "" {
			d.font(false, 14)
			d.text(c.Footer, innerX, bottom-14, 0, d.p.MutedForeground)
		}
	}
}

func (t Timeline) draw(d *drawer, x, y, w, h float64) {
	if len(t.Entries) == 0 {
		return
	}
	const gap = 20.0
	rowH := math.Min(96, (h-gap*float64(len(t.Entries)-1))/float64(len(t.Entries)))
	for i, e := range t.Entries {
		ry := y + float64(i)*(rowH+gap)
		border := d.p.Border
		if e.Current {
			border = d.p.AccentGreen
		}
		d.card(x, ry, w, rowH, border)

		d.dc.SetColor(d.p.AccentGreen)
		d.dc.DrawCircle(x+34, ry+rowH/2, 6)
		d.dc.Fill()

		tx := x + 60
		top := ry + (rowH-(22+6+18))/2
		d.font(true, 22)
		d.text(e.Title, tx, top, 0, d.p.Foreground)
		if e.Current {
			tw, _ := d.dc.MeasureString(e.Title)
			d.font(true, 12)
			lw, _ := d.dc.MeasureString("Current")
			px := tx + tw + 12
			d.dc.DrawRoundedRectangle(px, top, lw+24, 24, 12)
			d.dc.SetColor(d.p.AccentGreen)
			d.dc.Fill()
			d.text("Current", px+12, top+5, 0, color.White)
		}
		d.font(false, 18)
		d.text(e.Subtitle, tx, top+22+6, 0, d.p.AccentGreen)
		d.font(false, 16)
		d.text(e.Dates, x+w-28, ry+rowH/2-8, 1, d.p.MutedForeground)
	}
}

func (b BadgeGroups) draw(d *drawer, x, y, w, h float64) {
	const gap, inset = 20.0, 20.0
	cols := max(1, b.Columns)
	cellW, cellH := grid(len(b.Groups), cols, w, h, gap)
	for i, g := range b.Groups {
		cx, cy := cell(i, cols, x, y, cellW, cellH, gap)
		d.card(cx, cy, cellW, cellH, withAlpha(g.Accent, 0x40))

		d.font(true, 20)
		d.text(g.Title, cx+inset, cy+inset, 0, g.Accent)
		d.badges(g.Badges, cx+inset, cy+inset+20+14, cellW-2*inset, cy+cellH-inset+8)
	}
}

func (hr Hero) draw(d *drawer, x, y, w, h float64) {
	cx := x + w/2
	const ring = 74.0

	// Gradient ring around the initials.
	cy := y + ring
	grad := gg.NewLinearGradient(cx-ring, cy-ring, cx+ring, cy+ring)
	grad.AddColorStop(0, d.p.AccentBlue)
	grad.AddColorStop(0.5, d.p.AccentGreen)
	grad.AddColorStop(1, d.p.AccentYellow)
	d.dc.DrawCircle(cx, cy, ring)
	d.dc.SetFillStyle(grad)
	d.dc.Fill()
	d.dc.DrawCircle(cx, cy, ring-4)
	d.dc.SetColor(d.p.Background)
	d.dc.Fill()
	d.dc.DrawCircle(cx, cy, ring-8)
	d.dc.SetColor(d.p.Muted)
	d.dc.Fill()
	d.font(true, 64)
	d.dc.SetColor(d.p.MutedForeground)
	d.dc.DrawStringAnchored(hr.Initials, cx, cy, 0.5, 0.35)

	ty := y + 2*ring + 24
	d.spans(hr.Name, cx, ty, 64, 16)
	ty += 64 + 20

	d.font(false, 30)
	total := 0.0
	widths := make([]float64, len(hr.Tagline))
	for i, s := range hr.Tagline {
		widths[i], _ = d.dc.MeasureString(s.Text)
		total += widths[i]
	}
	total += 10 * float64(len(hr.Tagline)-1)
	tx := cx - total/2
	for i, s := range hr.Tagline {
		d.text(s.Text, tx, ty, 0, s.Color)
		tx += widths[i] + 10
	}
	ty += 30 + 32

	const figW, figGap = 200.0, 64.0
	fx := cx - (float64(len(hr.Figures))*figW+float64(len(hr.Figures)-1)*figGap)/2
	for _, f := range hr.Figures {
		d.font(true, 40)
		d.text(f.Value, fx+figW/2, ty, 0.5, f.Color)
		d.font(false, 16)
		d.text(f.Label, fx+figW/2, ty+40+8, 0.5, d.p.MutedForeground)
		fx += figW + figGap
	}

	if hr.Footer != "" {
		d.font(false, 18)
		d.text(hr.Footer, cx, y+h-18, 0.5, d.p.MutedForeground)
	}
}

// ellipsize marks a line as truncated.
func ellipsize(s string) string {
	return s + "..."
}

// truncate shortens s to n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
