package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chand1012/personal-site/internal/model"
)

func sampleRepos() []model.Repository {
	return []model.Repository{
		{Name: "a", Stars: 3, Forks: 1, OwnerLogin: "octo", OwnerType: "User"},
		{Name: "b", Stars: 7, Forks: 2, OwnerLogin: "Acme", OwnerType: model.OwnerTypeOrganization},
		{Name: "c", Stars: 4, Forks: 0, OwnerLogin: "Acme", OwnerType: model.OwnerTypeOrganization},
		{Name: "d", Stars: 0, Forks: 5, OwnerLogin: "Empty", OwnerType: model.OwnerTypeOrganization},
		{Name: "e", Stars: 2, Forks: 9, OwnerLogin: "Beta", OwnerType: model.OwnerTypeOrganization},
	}
}

func TestAggregate(t *testing.T) {
	totals := Aggregate(sampleRepos())

	assert.Equal(t, 16, totals.TotalStars)
	assert.Equal(t, 17, totals.TotalForks)
	assert.Equal(t, map[string]int{"Acme": 11, "Beta": 2}, totals.StarsByOrg)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	repos := sampleRepos()
	want := Aggregate(repos)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]model.Repository(nil), repos...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, Aggregate(shuffled))
	}
}

func TestAggregate_Empty(t *testing.T) {
	totals := Aggregate(nil)
	assert.Zero(t, totals.TotalStars)
	assert.Zero(t, totals.TotalForks)
	assert.Empty(t, totals.StarsByOrg)
}

func TestBuild(t *testing.T) {
	profile := model.Profile{Followers: 10, Following: 5, PublicGists: 2}
	repos := []model.Repository{
		{Stars: 3, Forks: 1, OwnerLogin: "octo", OwnerType: "User"},
		{Stars: 7, Forks: 2, OwnerLogin: "Acme", OwnerType: model.OwnerTypeOrganization},
	}

	s := Build("octo", profile, repos, nil)

	assert.Equal(t, model.GitHubStats{
		Username:       "octo",
		TotalStars:     10,
		TotalRepos:     2,
		TotalFollowers: 10,
		TotalForks:     3,
		Following:      5,
		PublicGists:    2,
		StarsByOrg:     map[string]int{"Acme": 7},
	}, s)
	assert.Nil(t, s.StarredRepos)
	require.NoError(t, s.Validate())
}

func TestBuild_OmitsEmptyOrgMap(t *testing.T) {
	s := Build("octo", model.Profile{}, []model.Repository{{Stars: 1, OwnerType: "User"}}, nil)
	assert.Nil(t, s.StarsByOrg)
}
