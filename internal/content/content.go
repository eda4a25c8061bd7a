// Package content holds the static portfolio data shown on the site and in
// the preview images.
package content

// Accent names one of the four theme accent colours.
type Accent string

const (
	AccentRed    Accent = "red"
	AccentYellow Accent = "yellow"
	AccentBlue   Accent = "blue"
	AccentGreen  Accent = "green"
)

// Project is a featured project card.
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tech        []string `json:"tech"`
	Accent      Accent   `json:"accent"`
}

// Job is one entry of the employment history.
type Job struct {
	Company string `json:"company"`
	Title   string `json:"title"`
	Dates   string `json:"dates"`
	Current bool   `json:"current"`
}

// Category groups skills.
type Category string

const (
	Frontend Category = "frontend"
	Backend  Category = "backend"
	DevOps   Category = "devops"
	Language Category = "language"
)

// Skill is a named skill in a category.
type Skill struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Profile is the hero section copy.
type Profile struct {
	Name     string
	Initials string
	Role     string
	Location string
}

// Owner is the site owner.
var Owner = Profile{
	Name:     "Chandler",
	Initials: "C",
	Role:     "Startup-focused",
	Location: "Canton, Ohio",
}

func Projects() []Project {
	return []Project{
		{
			Name:        "Hostile Takeover",
			Description: "A silly Jackbox-style social deduction game about taking over a cyberpunk-themed company.",
			Tech:        []string{"TypeScript", "Next.js", "Redis"},
			Accent:      AccentRed,
		},
		{
			Name:        "git2gpt",
			Description: "Converts a git repo into an LLM prompt you can copy and paste into your favorite Chatbot.",
			Tech:        []string{"Go", "LLMs"},
			Accent:      AccentBlue,
		},
		{
			Name:        "Claude Code MLX Proxy",
			Description: "Use Claude Code with local models powered by Apple's M-series chips and MLX.",
			Tech:        []string{"Python", "FastAPI", "MLX"},
			Accent:      AccentYellow,
		},
	}
}

func Employment() []Job {
	return []Job{
		{Company: "Saphira AI (YC S24)", Title: "Senior Full Stack Engineer", Dates: "Dec 2025 - Present", Current: true},
		{Company: "Hypha", Title: "Full Stack Engineer", Dates: "Jan 2022 - Dec 2025"},
		{Company: "Pillar.gg", Title: "Full Stack Contractor", Dates: "Dec 2020 - Jan 2022"},
		{Company: "Sealed Air - AUTOBAG", Title: "Software Engineering Intern", Dates: "May 2019 - Jan 2020"},
	}
}

func Skills() []Skill {
	return []Skill{
		{"React", Frontend}, {"React Native", Frontend}, {"Next.js", Frontend},
		{"Tailwind CSS", Frontend}, {"Shadcn/ui", Frontend}, {"Tauri", Frontend},
		{"Capacitor", Frontend}, {"HTML5", Frontend}, {"CSS3", Frontend},

		{"Node.js", Backend}, {"Express", Backend}, {"Django", Backend},
		{"FastAPI", Backend}, {"Redis", Backend}, {"MongoDB", Backend},
		{"PostgreSQL", Backend}, {"MySQL", Backend}, {"Supabase", Backend},
		{"GraphQL", Backend}, {"Prompt Engineering", Backend}, {"LLMs & RAG", Backend},
		{"Stable Diffusion", Backend}, {"LangChain", Backend}, {"Web3", Backend},
		{"Ethereum", Backend},

		{"Docker", DevOps}, {"Kubernetes", DevOps}, {"GitHub Actions", DevOps},
		{"Jenkins", DevOps}, {"AWS", DevOps}, {"Vercel", DevOps},
		{"Linux", DevOps}, {"Nginx", DevOps}, {"Terraform", DevOps},

		{"Solidity", Language}, {"TypeScript", Language}, {"JavaScript", Language},
		{"Python", Language}, {"Go", Language}, {"Rust", Language},
		{"C/C++", Language}, {"SQL", Language}, {"Bash", Language}, {"Lua", Language},
	}
}

// SkillsByCategory groups skills, keeping their listed order within a category.
func SkillsByCategory(skills []Skill) map[Category][]Skill {
	out := map[Category][]Skill{
		Frontend: {},
		Backend:  {},
		DevOps:   {},
		Language: {},
	}
	for _, s := range skills {
		out[s.Category] = append(out[s.Category], s)
	}
	return out
}
