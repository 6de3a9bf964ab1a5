package fixture

import (
	"fmt"
	"sort"
	"strings"
)

// DerbySet is a set of unordered team pairs. Team names are matched exactly
// after trimming and case folding.
type DerbySet struct {
	pairs map[string]struct{}
}

type TeamPair struct {
	TeamA string `yaml:"a" json:"a"`
	TeamB string `yaml:"b" json:"b"`
}

func NewDerbySet(pairs []TeamPair) (DerbySet, error) {
	set := DerbySet{pairs: make(map[string]struct{}, len(pairs))}
	for i, pair := range pairs {
		a := normalizeTeamName(pair.TeamA)
		b := normalizeTeamName(pair.TeamB)
		if a == "" || b == "" {
			return DerbySet{}, fmt.Errorf("derby pair %d: both teams are required", i)
		}
		if a == b {
			return DerbySet{}, fmt.Errorf("derby pair %d: team %q cannot play itself", i, pair.TeamA)
		}
		set.pairs[pairKey(a, b)] = struct{}{}
	}
	return set, nil
}

func (s DerbySet) IsDerby(homeTeam, awayTeam string) bool {
	if len(s.pairs) == 0 {
		return false
	}
	a := normalizeTeamName(homeTeam)
	b := normalizeTeamName(awayTeam)
	if a == "" || b == "" {
		return false
	}
	_, ok := s.pairs[pairKey(a, b)]
	return ok
}

func (s DerbySet) Len() int {
	return len(s.pairs)
}

// ParseDerbyPairs parses "Liverpool|Everton,Arsenal|Tottenham Hotspur".
func ParseDerbyPairs(raw string) ([]TeamPair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	out := make([]TeamPair, 0, 4)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, "|")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid derby pair %q, expected TeamA|TeamB", item)
		}
		out = append(out, TeamPair{TeamA: strings.TrimSpace(parts[0]), TeamB: strings.TrimSpace(parts[1])})
	}
	return out, nil
}

func pairKey(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return names[0] + "\x00" + names[1]
}

func normalizeTeamName(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}
