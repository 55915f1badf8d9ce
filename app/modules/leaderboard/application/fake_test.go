package leaderboardservice

import (
	"context"

	leaderboarddb "github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard/infrastructure/repositories"
)

// FakeLeaderboardRepo serves fixed tallies and records the route filter.
type FakeLeaderboardRepo struct {
	Tallies  []leaderboarddb.TeamTally
	Progress []leaderboarddb.TeamProgress
	Err      error
	Routes   []string
}

func (f *FakeLeaderboardRepo) ListTallies(ctx context.Context, routeCode string) ([]leaderboarddb.TeamTally, error) {
	f.Routes = append(f.Routes, routeCode)
	if f.Err != nil {
		return nil, f.Err
	}
	var out []leaderboarddb.TeamTally
	for _, t := range f.Tallies {
		if routeCode != "" && (t.RouteCode == nil || *t.RouteCode != routeCode) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *FakeLeaderboardRepo) ListProgress(ctx context.Context, routeCode string) ([]leaderboarddb.TeamProgress, error) {
	f.Routes = append(f.Routes, routeCode)
	if f.Err != nil {
		return nil, f.Err
	}
	var out []leaderboarddb.TeamProgress
	for _, p := range f.Progress {
		if routeCode != "" && (p.RouteCode == nil || *p.RouteCode != routeCode) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

var _ leaderboarddb.Repository = (*FakeLeaderboardRepo)(nil)
