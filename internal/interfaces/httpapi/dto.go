package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/domain/prophecy"
	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

// goalsValue accepts a goal count as a JSON number or a numeric string.
// Anything else decodes as not set.
type goalsValue struct {
	value int
	set   bool
}

func (g *goalsValue) UnmarshalJSON(raw []byte) error {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	g.value, g.set = prediction.ParseGoals(text)
	return nil
}

// orMissing maps an unset value to a negative count so the entry is skipped.
func (g goalsValue) orMissing() int {
	if !g.set {
		return -1
	}
	return g.value
}

type scorePayload struct {
	HomeScore goalsValue `json:"homeScore"`
	AwayScore goalsValue `json:"awayScore"`
}

type submitPredictionsRequest struct {
	Predictions    map[string]scorePayload `json:"predictions"`
	JokerFixtureID *string                 `json:"jokerFixtureId"`
}

type correctResultRequest struct {
	HomeScore *int `json:"homeScore" validate:"required,gte=0"`
	AwayScore *int `json:"awayScore" validate:"required,gte=0"`
}

type saveProphecyRequest struct {
	Winner       string   `json:"winner" validate:"max=100"`
	Relegation   []string `json:"relegation" validate:"max=3,dive,max=100"`
	GoldenBoot   string   `json:"goldenBoot" validate:"max=100"`
	FirstSacking string   `json:"firstSacking" validate:"max=100"`
}

type internalJobRequest struct {
	DispatchID string `json:"dispatch_id"`
}

type scoreDTO struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

type fixtureDTO struct {
	ID         string    `json:"id"`
	ExternalID int64     `json:"externalId"`
	Gameweek   int       `json:"gameweek"`
	HomeTeam   string    `json:"homeTeam"`
	AwayTeam   string    `json:"awayTeam"`
	KickoffAt  string    `json:"kickoffAt"`
	IsDerby    bool      `json:"isDerby"`
	Result     *scoreDTO `json:"result,omitempty"`
	ScoredAt   string    `json:"scoredAt,omitempty"`
}

type standingDTO struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Total       int    `json:"total"`
}

type predictionDTO struct {
	FixtureID   string `json:"fixtureId"`
	HomeScore   int    `json:"homeScore"`
	AwayScore   int    `json:"awayScore"`
	SubmittedAt string `json:"submittedAt"`
	Late        bool   `json:"late"`
}

type jokerDTO struct {
	FixtureID    string `json:"fixtureId,omitempty"`
	UsedInSeason bool   `json:"usedInSeason"`
	SelectedAt   string `json:"selectedAt,omitempty"`
}

type userPredictionsDTO struct {
	Predictions []predictionDTO `json:"predictions"`
	Joker       jokerDTO        `json:"joker"`
}

type submitPredictionsDTO struct {
	Saved         int      `json:"saved"`
	Skipped       int      `json:"skipped"`
	LateGameweeks []int    `json:"lateGameweeks"`
	SubmittedAt   string   `json:"submittedAt"`
	Joker         jokerDTO `json:"joker"`
}

type gameweekScoreDTO struct {
	Gameweek int `json:"gameweek"`
	Points   int `json:"points"`
	Penalty  int `json:"penalty"`
	Net      int `json:"net"`
}

type meDTO struct {
	ID        string             `json:"id"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	Total     int                `json:"total"`
	Rank      int                `json:"rank"`
	Gameweeks []gameweekScoreDTO `json:"gameweeks"`
	Joker     jokerDTO           `json:"joker"`
}

type prophecyDTO struct {
	Winner       string   `json:"winner"`
	Relegation   []string `json:"relegation"`
	GoldenBoot   string   `json:"goldenBoot"`
	FirstSacking string   `json:"firstSacking"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

type settlementDTO struct {
	ScoredCount int    `json:"scoredCount"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fixtureToDTO(v fixture.Fixture) fixtureDTO {
	out := fixtureDTO{
		ID:         v.ID,
		ExternalID: v.ExternalID,
		Gameweek:   v.Gameweek,
		HomeTeam:   v.HomeTeam,
		AwayTeam:   v.AwayTeam,
		KickoffAt:  formatTime(v.KickoffAt),
		IsDerby:    v.IsDerby,
	}
	if v.Result != nil {
		out.Result = &scoreDTO{Home: v.Result.Home, Away: v.Result.Away}
	}
	if v.ScoredAt != nil {
		out.ScoredAt = formatTime(*v.ScoredAt)
	}
	return out
}

func jokerToDTO(v prediction.Joker) jokerDTO {
	out := jokerDTO{FixtureID: v.FixtureID, UsedInSeason: v.UsedInSeason}
	if v.SelectedAt != nil {
		out.SelectedAt = formatTime(*v.SelectedAt)
	}
	return out
}

func userPredictionsToDTO(v usecase.UserPredictions) userPredictionsDTO {
	items := make([]predictionDTO, 0, len(v.Predictions))
	for _, item := range v.Predictions {
		items = append(items, predictionDTO{
			FixtureID:   item.FixtureID,
			HomeScore:   item.Score.Home,
			AwayScore:   item.Score.Away,
			SubmittedAt: formatTime(item.SubmittedAt),
			Late:        item.Late,
		})
	}
	return userPredictionsDTO{Predictions: items, Joker: jokerToDTO(v.Joker)}
}

func submitResultToDTO(v usecase.SubmitPredictionsResult) submitPredictionsDTO {
	late := v.LateGameweeks
	if late == nil {
		late = []int{}
	}
	return submitPredictionsDTO{
		Saved:         v.Saved,
		Skipped:       v.Skipped,
		LateGameweeks: late,
		SubmittedAt:   formatTime(v.SubmittedAt),
		Joker:         jokerToDTO(v.Joker),
	}
}

func gameweeksToDTO(items []scoring.GameweekScore) []gameweekScoreDTO {
	out := make([]gameweekScoreDTO, 0, len(items))
	for _, item := range items {
		out = append(out, gameweekScoreDTO{
			Gameweek: item.Gameweek,
			Points:   item.Points,
			Penalty:  item.Penalty,
			Net:      item.Net(),
		})
	}
	return out
}

func meToDTO(v usecase.MeSummary) meDTO {
	return meDTO{
		ID:        v.Profile.ID,
		Email:     v.Profile.Email,
		Name:      v.Profile.Name,
		Total:     v.Total,
		Rank:      v.Rank,
		Gameweeks: gameweeksToDTO(v.Gameweeks),
		Joker:     jokerToDTO(v.Joker),
	}
}

func prophecyToDTO(v prophecy.Prophecy) prophecyDTO {
	relegation := v.Relegation
	if relegation == nil {
		relegation = []string{}
	}
	return prophecyDTO{
		Winner:       v.Winner,
		Relegation:   relegation,
		GoldenBoot:   v.GoldenBoot,
		FirstSacking: v.FirstSacking,
		UpdatedAt:    formatTime(v.UpdatedAt),
	}
}

func settlementToDTO(v usecase.SettlementResult) settlementDTO {
	return settlementDTO{ScoredCount: v.ScoredCount, Success: v.Success, Message: v.Message}
}
