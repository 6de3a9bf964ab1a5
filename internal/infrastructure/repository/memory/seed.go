package memory

import (
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

// SeedFixtures returns a small two-gameweek schedule anchored at now: the first
// gameweek has already kicked off, the second is open for predictions.
func SeedFixtures(now time.Time) []fixture.Fixture {
	base := now.UTC().Truncate(time.Hour)
	return []fixture.Fixture{
		{ID: "fx-gw1-liv-eve", ExternalID: 1208021, Gameweek: 1, HomeTeam: "Liverpool", AwayTeam: "Everton", KickoffAt: base.Add(-72 * time.Hour), IsDerby: true},
		{ID: "fx-gw1-ars-che", ExternalID: 1208022, Gameweek: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea", KickoffAt: base.Add(-70 * time.Hour)},
		{ID: "fx-gw1-mci-new", ExternalID: 1208023, Gameweek: 1, HomeTeam: "Manchester City", AwayTeam: "Newcastle", KickoffAt: base.Add(-48 * time.Hour)},
		{ID: "fx-gw2-mun-mci", ExternalID: 1208031, Gameweek: 2, HomeTeam: "Manchester United", AwayTeam: "Manchester City", KickoffAt: base.Add(96 * time.Hour), IsDerby: true},
		{ID: "fx-gw2-tot-ars", ExternalID: 1208032, Gameweek: 2, HomeTeam: "Tottenham", AwayTeam: "Arsenal", KickoffAt: base.Add(98 * time.Hour), IsDerby: true},
		{ID: "fx-gw2-eve-bha", ExternalID: 1208033, Gameweek: 2, HomeTeam: "Everton", AwayTeam: "Brighton", KickoffAt: base.Add(120 * time.Hour)},
	}
}
