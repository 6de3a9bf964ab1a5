package scoring

import "sort"

type RecomputeResult struct {
	Gameweeks []GameweekScore
	Total     int
}

// Recompute derives every gameweek's points from the user's full prediction
// history. Existing penalties are kept; late predictions can only raise them.
func Recompute(snapshot UserSnapshot) RecomputeResult {
	byGameweek := make(map[int]*GameweekScore, len(snapshot.Gameweeks))
	for _, item := range snapshot.Gameweeks {
		if item.Gameweek <= 0 {
			continue
		}
		row := byGameweek[item.Gameweek]
		if row == nil {
			row = &GameweekScore{Gameweek: item.Gameweek}
			byGameweek[item.Gameweek] = row
		}
		row.Penalty = MergePenalty(row.Penalty, item.Penalty)
	}

	for _, item := range snapshot.Predictions {
		if item.Gameweek <= 0 {
			continue
		}
		if item.Actual == nil && !item.Late {
			continue
		}

		row := byGameweek[item.Gameweek]
		if row == nil {
			row = &GameweekScore{Gameweek: item.Gameweek}
			byGameweek[item.Gameweek] = row
		}

		base := 0
		if item.Actual != nil {
			base = CalculatePoints(item.Predicted, *item.Actual)
		}
		outcome := ApplyModifiers(base, Modifiers{
			IsDerby: item.IsDerby,
			IsJoker: snapshot.JokerFixtureID != "" && item.FixtureID == snapshot.JokerFixtureID,
			IsLate:  item.Late,
		})
		if item.Actual != nil {
			row.Points += outcome.Points
		}
		row.Penalty = MergePenalty(row.Penalty, outcome.GameweekPenalty)
	}

	out := RecomputeResult{Gameweeks: make([]GameweekScore, 0, len(byGameweek))}
	for _, row := range byGameweek {
		out.Gameweeks = append(out.Gameweeks, *row)
		out.Total += row.Net()
	}
	sort.Slice(out.Gameweeks, func(i, j int) bool {
		return out.Gameweeks[i].Gameweek < out.Gameweeks[j].Gameweek
	})
	return out
}

// TotalOf sums net points over gameweeks.
func TotalOf(items []GameweekScore) int {
	total := 0
	for _, item := range items {
		total += item.Net()
	}
	return total
}
