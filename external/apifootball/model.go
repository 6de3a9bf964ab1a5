package apifootball

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

var roundNumberRegex = regexp.MustCompile(`(\d+)\s*$`)

type fixturesEnvelope struct {
	Results  int            `json:"results"`
	Errors   any            `json:"errors"`
	Response []fixtureEntry `json:"response"`
}

type fixtureEntry struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short string `json:"short"`
			Long  string `json:"long"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID     int64  `json:"id"`
		Season int    `json:"season"`
		Round  string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home teamEntry `json:"home"`
		Away teamEntry `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

type teamEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// providerErrors flattens the "errors" field, which the API sends either as
// an empty array or as an object keyed by parameter.
func providerErrors(raw any) []string {
	var out []string
	switch v := raw.(type) {
	case map[string]any:
		for key, value := range v {
			out = append(out, key+": "+strings.TrimSpace(toString(value)))
		}
	case []any:
		for _, value := range v {
			if s := strings.TrimSpace(toString(value)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func toString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

// finished maps the provider short status to settlement readiness.
func finished(short string) bool {
	switch strings.ToUpper(strings.TrimSpace(short)) {
	case "FT", "AET", "PEN":
		return true
	default:
		return false
	}
}

func normalizeStatus(short string) string {
	switch strings.ToUpper(strings.TrimSpace(short)) {
	case "FT", "AET", "PEN":
		return fixture.StatusFinished
	case "1H", "HT", "2H", "ET", "BT", "P", "LIVE", "INT", "SUSP":
		return fixture.StatusLive
	case "PST":
		return fixture.StatusPostponed
	case "CANC", "ABD", "AWD", "WO":
		return fixture.StatusCancelled
	default:
		return fixture.StatusScheduled
	}
}

// parseGameweek reads "Regular Season - 12" style rounds. It returns 0 when
// the round carries no trailing number.
func parseGameweek(round string) int {
	match := roundNumberRegex.FindStringSubmatch(strings.TrimSpace(round))
	if len(match) != 2 {
		return 0
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return value
}

func parseKickoff(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
