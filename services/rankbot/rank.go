package main

import (
	"strconv"
	"strings"

	"github.com/ben-agnew/sc2ranks/libs/sc2ranks"
)

var defaultStats = []string{"league", "points", "rank"}

// GetRankString renders the team stats requested by the account, or every default stat
// when none are configured.
func GetRankString(account Account, bracket sc2ranks.Bracket, team *sc2ranks.Node) string {
	if team == nil {
		return account.Id + ": unranked in " + bracket.String()
	}

	statNames := account.Stats
	if len(statNames) == 0 {
		statNames = defaultStats
	}

	var stats []string
	for _, stat := range statNames {
		switch stat {
		case "league":
			stats = append(stats, "Current League: "+title(team.League()))
		case "points":
			stats = append(stats, "Points: "+strconv.FormatInt(team.Points(), 10))
		case "rank":
			stats = append(stats, "Division Rank: "+strconv.FormatInt(team.DivisionRank(), 10))
		case "world":
			stats = append(stats, "World Rank: "+strconv.FormatInt(team.GetInt("world_rank"), 10))
		case "region":
			stats = append(stats, "Region Rank: "+strconv.FormatInt(team.GetInt("region_rank"), 10))
		case "wins":
			stats = append(stats, "Wins: "+strconv.FormatInt(team.GetInt("wins"), 10))
		case "losses":
			stats = append(stats, "Losses: "+strconv.FormatInt(team.GetInt("losses"), 10))
		case "winrate":
			stats = append(stats, "Winrate: "+winRate(team.GetInt("wins"), team.GetInt("losses")))
		}
	}

	return account.Id + " (" + bracket.String() + "): " + strings.Join(stats, " | ")
}

func winRate(wins, losses int64) string {
	games := wins + losses
	if games == 0 {
		return "0%"
	}
	return strconv.FormatFloat(float64(wins)/float64(games)*100, 'f', 2, 64) + "%"
}

func title(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// GetCharacterString summarises a base character lookup.
func GetCharacterString(character *sc2ranks.Node, profile string) string {
	return character.Name() + " (" + strings.ToUpper(character.Region()) + "): " +
		strconv.FormatInt(character.AchievementPoints(), 10) + " achievement points | " + profile
}

type ladderEntry struct {
	Name   string
	League string
	Points int64
}

// GetLadderString ranks characters by their best team in a bracket.
func GetLadderString(bracket sc2ranks.Bracket, entries []ladderEntry) string {
	if len(entries) == 0 {
		return "Ladder " + bracket.String() + ": no ranked accounts"
	}

	parts := make([]string, 0, len(entries))
	for i, entry := range entries {
		parts = append(parts, strconv.Itoa(i+1)+". "+entry.Name+" ("+title(entry.League)+" "+strconv.FormatInt(entry.Points, 10)+")")
	}
	return "Ladder " + bracket.String() + ": " + strings.Join(parts, ", ")
}
