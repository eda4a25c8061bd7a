// Package stats folds fetched repositories into the summary counters of a
// GitHubStats record.
package stats

import "github.com/chand1012/personal-site/internal/model"

// Totals is the result of folding a repository collection.
type Totals struct {
	TotalStars int
	TotalForks int
	// StarsByOrg only contains organizations with at least one star.
	StarsByOrg map[string]int
}

// Aggregate sums stars and forks across repos and accumulates stars per
// organization owner. The fold is commutative, so input order never matters.
func Aggregate(repos []model.Repository) Totals {
	t := Totals{StarsByOrg: make(map[string]int)}
	for _, r := range repos {
		t.TotalStars += r.Stars
		t.TotalForks += r.Forks
		if r.OwnerType == model.OwnerTypeOrganization && r.Stars > 0 {
			t.StarsByOrg[r.OwnerLogin] += r.Stars
		}
	}
	return t
}

// Build assembles the final record. Empty optional collections are left nil
// so they are omitted from the serialized payload.
func Build(username string, profile model.Profile, repos []model.Repository, starred []model.StarredRepo) model.GitHubStats {
	totals := Aggregate(repos)
	s := model.GitHubStats{
		Username:       username,
		TotalStars:     totals.TotalStars,
		TotalRepos:     len(repos),
		TotalFollowers: profile.Followers,
		TotalForks:     totals.TotalForks,
		Following:      profile.Following,
		PublicGists:    profile.PublicGists,
	}
	if len(totals.StarsByOrg) > 0 {
		s.StarsByOrg = totals.StarsByOrg
	}
	if len(starred) > 0 {
		s.StarredRepos = starred
	}
	return s
}
