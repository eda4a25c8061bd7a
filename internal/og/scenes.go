package og

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/chand1012/personal-site/internal/content"
	"github.com/chand1012/personal-site/internal/model"
)

var printer = message.NewPrinter(language.English)

// formatInt groups thousands: 1247 -> "1,247".
func formatInt(n int) string {
	return printer.Sprintf("%d", n)
}

// formatCompact abbreviates thousands: 1247 -> "1.2K".
func formatCompact(n int) string {
	if n >= 1000 {
		return strconv.FormatFloat(float64(n)/1000, 'f', 1, 64) + "K"
	}
	return formatInt(n)
}

// GitHubScene shows the six headline counters.
func GitHubScene(t Theme, stats model.GitHubStats) Scene {
	p := PaletteFor(t)
	return Scene{
		Palette: p,
		Heading: &Heading{
			Spans:    []Span{{"GitHub", p.Foreground}, {"Activity", p.AccentGreen}},
			Subtitle: "Building in public, one commit at a time",
		},
		Body: StatGrid{
			Columns: 3,
			Cards: []StatCard{
				{"Total Stars", formatInt(stats.TotalStars), "Across all repositories", p.AccentYellow},
				{"Repositories", strconv.Itoa(stats.TotalRepos), "Public repositories", p.AccentBlue},
				{"Followers", strconv.Itoa(stats.TotalFollowers), "GitHub followers", p.AccentGreen},
				{"Total Forks", formatInt(stats.TotalForks), "Forks of my repos", p.AccentRed},
				{"Following", strconv.Itoa(stats.Following), "Developers I follow", p.AccentYellow},
				{"Public Gists", strconv.Itoa(stats.PublicGists), "Code snippets shared", p.AccentBlue},
			},
		},
	}
}

// HeroScene is the profile card with star and fork totals.
func HeroScene(t Theme, stats model.GitHubStats, owner content.Profile) Scene {
	p := PaletteFor(t)
	return Scene{
		Palette: p,
		Body: Hero{
			Initials: owner.Initials,
			Name:     []Span{{"Hi, I'm", p.Foreground}, {owner.Name, p.AccentBlue}},
			Tagline: []Span{
				{owner.Role, p.AccentRed},
				{"developer from", p.MutedForeground},
				{owner.Location, p.AccentGreen},
			},
			Figures: []Figure{
				{formatCompact(stats.TotalStars), "Stars", p.AccentYellow},
				{formatCompact(stats.TotalForks), "Forks", p.AccentBlue},
			},
			Footer: "github.com/" + stats.Username,
		},
	}
}

// BlogScene shows up to six posts in two rows.
func BlogScene(t Theme, posts []model.BlogPost) Scene {
	p := PaletteFor(t)
	if len(posts) > 6 {
		posts = posts[:6]
	}
	cards := make([]Card, 0, len(posts))
	for _, post := range posts {
		tags := post.Tags
		if len(tags) > 3 {
			tags = tags[:3]
		}
		cards = append(cards, Card{
			Meta:      post.Date.Format("Jan 2, 2006"),
			MetaRight: fmt.Sprintf("%d min", post.ReadingTime),
			Title:     truncate(post.Title, 45),
			TitleSize: 15,
			Body:      post.Description,
			Badges:    tags,
		})
	}
	return Scene{
		Palette: p,
		Heading: &Heading{
			Spans:    []Span{{"Latest", p.Foreground}, {"Blog", p.AccentRed}, {"Posts", p.Foreground}},
			Size:     44,
			Subtitle: "Thoughts on startups, development, and building products",
		},
		Body: CardGrid{Columns: 3, Cards: cards, Empty: "No posts yet"},
	}
}

// ProjectsScene shows the featured projects.
func ProjectsScene(t Theme, projects []content.Project) Scene {
	p := PaletteFor(t)
	cards := make([]Card, 0, len(projects))
	for _, proj := range projects {
		cards = append(cards, Card{
			Title:  proj.Name,
			Body:   proj.Description,
			Badges: proj.Tech,
			Footer: "Code",
			Border: withAlpha(p.Accent(proj.Accent), 0x80),
		})
	}
	return Scene{
		Palette: p,
		Heading: &Heading{
			Spans:    []Span{{"Featured", p.Foreground}, {"Projects", p.AccentBlue}},
			Subtitle: "Building products that solve real problems",
		},
		Body: CardGrid{Columns: max(1, len(cards)), Cards: cards, Empty: "No projects yet"},
	}
}

// EmploymentScene shows the work history timeline.
func EmploymentScene(t Theme, jobs []content.Job) Scene {
	p := PaletteFor(t)
	entries := make([]TimelineEntry, 0, len(jobs))
	for _, j := range jobs {
		entries = append(entries, TimelineEntry{Title: j.Title, Subtitle: j.Company, Dates: j.Dates, Current: j.Current})
	}
	return Scene{
		Palette: p,
		Heading: &Heading{Spans: []Span{{"Work", p.Foreground}, {"Experience", p.AccentGreen}}},
		Body:    Timeline{Entries: entries},
	}
}

// SkillsScene shows skills grouped by category.
func SkillsScene(t Theme, skills []content.Skill) Scene {
	p := PaletteFor(t)
	by := content.SkillsByCategory(skills)
	names := func(c content.Category) []string {
		out := make([]string, 0, len(by[c]))
		for _, s := range by[c] {
			out = append(out, s.Name)
		}
		return out
	}
	return Scene{
		Palette: p,
		Heading: &Heading{
			Spans:    []Span{{"SKILLS", p.Foreground}},
			Subtitle: "Full stack. Zero Compromises.",
		},
		Body: BadgeGroups{
			Columns: 2,
			Groups: []BadgeGroup{
				{"Frontend", p.AccentBlue, names(content.Frontend)},
				{"DevOps", p.AccentYellow, names(content.DevOps)},
				{"Backend & AI/ML", p.AccentGreen, names(content.Backend)},
				{"Languages", p.AccentRed, names(content.Language)},
			},
		},
	}
}
