// Package og renders the 1200x630 Open Graph preview images.
//
// Each image is described by a Scene: an optional heading and one body block
// (a stat grid, a card grid, a timeline, badge groups or the hero layout).
// Scenes are plain values built from stats, posts and static content; a
// single Renderer paints any of them.
package og

import "image/color"

const (
	Width  = 1200
	Height = 630
)

// Span is a run of text in one colour.
type Span struct {
	Text  string
	Color color.NRGBA
}

// Heading is the centred title line and optional subtitle.
type Heading struct {
	Spans    []Span
	Size     float64
	Subtitle string
}

// Scene is one complete image.
type Scene struct {
	Palette Palette
	Heading *Heading
	Body    Block
}

// Block is a body layout the renderer knows how to paint.
type Block interface {
	draw(d *drawer, x, y, w, h float64)
}

// StatCard is a titled figure.
type StatCard struct {
	Title    string
	Value    string
	Subtitle string
	Accent   color.NRGBA
}

// StatGrid lays stat cards out in rows of Columns.
type StatGrid struct {
	Columns int
	Cards   []StatCard
}

// Card is a generic content card used for projects and posts.
type Card struct {
	Meta      string
	MetaRight string
	Title     string
	TitleSize float64
	Body      string
	Badges    []string
	Footer    string
	// Border overrides the palette border when non-zero.
	Border color.NRGBA
}

// CardGrid lays cards out in rows of Columns. Empty is shown when there are
// no cards.
type CardGrid struct {
	Columns int
	Cards   []Card
	Empty   string
}

// TimelineEntry is one row of a timeline.
type TimelineEntry struct {
	Title    string
	Subtitle string
	Dates    string
	Current  bool
}

// Timeline stacks entries vertically with a marker dot.
type Timeline struct {
	Entries []TimelineEntry
}

// BadgeGroup is a titled set of badges.
type BadgeGroup struct {
	Title  string
	Accent color.NRGBA
	Badges []string
}

// BadgeGroups lays groups out in rows of Columns.
type BadgeGroups struct {
	Columns int
	Groups  []BadgeGroup
}

// Figure is a large number with a label.
type Figure struct {
	Value string
	Label string
	Color color.NRGBA
}

// Hero is the centred profile layout.
type Hero struct {
	Initials string
	Name     []Span
	Tagline  []Span
	Figures  []Figure
	Footer   string
}
