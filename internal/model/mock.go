package model

func strPtr(s string) *string { return &s }

// MockGitHubStats returns the record rendered whenever no cached stats exist.
// A fresh value is built on every call so callers can't mutate a shared copy.
func MockGitHubStats() GitHubStats {
	return GitHubStats{
		Username:       "chand1012",
		TotalStars:     1247,
		TotalRepos:     42,
		TotalFollowers: 156,
		TotalForks:     89,
		Following:      120,
		PublicGists:    15,
		StarredRepos: []StarredRepo{
			{
				Name:        "react",
				FullName:    "facebook/react",
				Owner:       "facebook",
				Description: strPtr("The library for web and native user interfaces."),
				URL:         "https://github.com/facebook/react",
				Stars:       220000,
				Language:    strPtr("JavaScript"),
			},
			{
				Name:        "next.js",
				FullName:    "vercel/next.js",
				Owner:       "vercel",
				Description: strPtr("The React Framework"),
				URL:         "https://github.com/vercel/next.js",
				Stars:       120000,
				Language:    strPtr("JavaScript"),
			},
			{
				Name:        "typescript",
				FullName:    "microsoft/TypeScript",
				Owner:       "microsoft",
				Description: strPtr("TypeScript is a superset of JavaScript that compiles to clean JavaScript output."),
				URL:         "https://github.com/microsoft/TypeScript",
				Stars:       97000,
				Language:    strPtr("TypeScript"),
			},
		},
	}
}
