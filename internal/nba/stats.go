package nba

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// GameStats is one game of a player's game log. Missing values are nil.
type GameStats struct {
	Date      string   `json:"date"`
	Points    *float64 `json:"points"`
	Rebounds  *float64 `json:"rebounds"`
	Assists   *float64 `json:"assists"`
	Steals    *float64 `json:"steals"`
	Blocks    *float64 `json:"blocks"`
	FGPercent *float64 `json:"fgPercent"`
	FTPercent *float64 `json:"ftPercent"`
	ThreePM   *float64 `json:"threePM"`
	Turnovers *float64 `json:"turnovers"`
	Minutes   *float64 `json:"minutes"`
}

// PlayerStats is a player's game log with per-game averages.
type PlayerStats struct {
	Games []GameStats `json:"games"`
	// Averages maps a stat name to its per-game average with one decimal,
	// such as "22.5". It is nil when there are no games.
	Averages    map[string]string `json:"averages"`
	GamesPlayed int               `json:"gamesPlayed"`
}

// gameLogResponse is the part of the playergamelog response that is used.
type gameLogResponse struct {
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Headers []string            `json:"headers"`
	RowSet  [][]json.RawMessage `json:"rowSet"`
}

// parseGameLog converts a playergamelog response into PlayerStats.
func parseGameLog(body []byte) (*PlayerStats, error) {
	var resp gameLogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if len(resp.ResultSets) == 0 {
		return nil, ErrInvalidResponse
	}

	set := resp.ResultSets[0]
	if set.Headers == nil || set.RowSet == nil {
		return nil, ErrInvalidFormat
	}

	games := make([]GameStats, 0, len(set.RowSet))
	for _, row := range set.RowSet {
		games = append(games, parseGame(set.Headers, row))
	}

	return &PlayerStats{
		Games:       games,
		Averages:    averages(games),
		GamesPlayed: len(games),
	}, nil
}

// parseGame picks the known columns out of one row.
func parseGame(headers []string, row []json.RawMessage) GameStats {
	cell := func(name string) json.RawMessage {
		i := slices.Index(headers, name)
		if i < 0 || i >= len(row) {
			return nil
		}
		return row[i]
	}

	var date string
	_ = json.Unmarshal(cell("GAME_DATE"), &date)

	return GameStats{
		Date:      date,
		Points:    number(cell("PTS")),
		Rebounds:  number(cell("REB")),
		Assists:   number(cell("AST")),
		Steals:    number(cell("STL")),
		Blocks:    number(cell("BLK")),
		FGPercent: percent(number(cell("FG_PCT"))),
		FTPercent: percent(number(cell("FT_PCT"))),
		ThreePM:   number(cell("FG3M")),
		Turnovers: number(cell("TOV")),
		Minutes:   number(cell("MIN")),
	}
}

// number decodes a numeric cell. Numeric strings are accepted, and a
// "mm:ss" minutes value counts whole minutes.
func number(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s, _, _ = strings.Cut(s, ":")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

// percent converts a ratio to a percentage with one decimal.
func percent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := round1(*v * 100)
	return &p
}

// averages returns the per-game average of every stat that has at least one
// value. Missing values add nothing to the sum; the divisor is always the
// number of games.
func averages(games []GameStats) map[string]string {
	if len(games) == 0 {
		return nil
	}

	totals := make(map[string]float64)
	for _, g := range games {
		for name, v := range g.values() {
			if v != nil {
				totals[name] += *v
			}
		}
	}

	out := make(map[string]string, len(totals))
	for name, total := range totals {
		out[name] = strconv.FormatFloat(total/float64(len(games)), 'f', 1, 64)
	}
	return out
}

// values returns the numeric stats of g keyed by their JSON names.
func (g GameStats) values() map[string]*float64 {
	return map[string]*float64{
		"points":    g.Points,
		"rebounds":  g.Rebounds,
		"assists":   g.Assists,
		"steals":    g.Steals,
		"blocks":    g.Blocks,
		"fgPercent": g.FGPercent,
		"ftPercent": g.FTPercent,
		"threePM":   g.ThreePM,
		"turnovers": g.Turnovers,
		"minutes":   g.Minutes,
	}
}

// CalculateTrends returns current minus previous for every stat present and
// numeric in both. Other stats are left out.
func CalculateTrends(current, previous map[string]string) map[string]float64 {
	trends := make(map[string]float64)
	for name, cur := range current {
		prev, ok := previous[name]
		if !ok {
			continue
		}
		c, errC := strconv.ParseFloat(cur, 64)
		p, errP := strconv.ParseFloat(prev, 64)
		if errC != nil || errP != nil || math.IsNaN(c-p) {
			continue
		}
		trends[name] = c - p
	}
	return trends
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
