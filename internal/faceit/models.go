package faceit

import "time"

// PlayerProfile is an immutable snapshot of a player's FACEIT standing,
// fetched fresh per request and never persisted.
type PlayerProfile struct {
	ID         string
	Nickname   string
	Country    string
	Region     string
	SkillLevel int
	Elo        int
}

// MatchRecord is one competitive match from the player's point of view.
type MatchRecord struct {
	ID       string
	PlayedAt time.Time
	Map      string
	Won      bool
	Kills    int
	Deaths   int
	Assists  int
	MVP      bool
}

// MatchHistory is ordered most recent first, as delivered by the platform.
type MatchHistory []MatchRecord

// Wire types for the FACEIT Data API v4.

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
}

type playerResponse struct {
	PlayerID string                `json:"player_id"`
	Nickname string                `json:"nickname"`
	Country  string                `json:"country"`
	Games    map[string]playerGame `json:"games"`
}

type playerGame struct {
	Region     string `json:"region"`
	SkillLevel int    `json:"skill_level"`
	FaceitElo  int    `json:"faceit_elo"`
}

type historyResponse struct {
	Items []historyItem `json:"items"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

type historyItem struct {
	MatchID   string             `json:"match_id"`
	StartedAt int64              `json:"started_at"`
	Map       string             `json:"map"`
	Teams     map[string]faction `json:"teams"`
	Results   matchResults       `json:"results"`
}

type faction struct {
	Roster []rosterEntry `json:"roster"`
	Stats  factionStats  `json:"stats"`
}

type factionStats struct {
	Score int `json:"score"`
}

// Roster stat labels follow FACEIT's capitalized naming.
type rosterEntry struct {
	PlayerID string      `json:"player_id"`
	Nickname string      `json:"nickname"`
	Stats    rosterStats `json:"stats"`
}

type rosterStats struct {
	Kills   int  `json:"Kills"`
	Deaths  int  `json:"Deaths"`
	Assists int  `json:"Assists"`
	MVP     bool `json:"MVP"`
}

type matchResults struct {
	Winner string `json:"winner"`
}

// record maps a history item to the requesting player's MatchRecord.
// Returns false when the player does not appear on either roster.
func (it historyItem) record(playerID string) (MatchRecord, bool) {
	for name, team := range it.Teams {
		for _, entry := range team.Roster {
			if entry.PlayerID != playerID {
				continue
			}
			return MatchRecord{
				ID:       it.MatchID,
				PlayedAt: time.Unix(it.StartedAt, 0).UTC(),
				Map:      it.Map,
				Won:      it.Results.Winner == name,
				Kills:    entry.Stats.Kills,
				Deaths:   entry.Stats.Deaths,
				Assists:  entry.Stats.Assists,
				MVP:      entry.Stats.MVP,
			}, true
		}
	}
	return MatchRecord{}, false
}

// CountryFlag converts an ISO country code to a regional-indicator emoji.
// Invalid or empty codes render as an em dash placeholder.
func CountryFlag(code string) string {
	if len(code) != 2 {
		return "—"
	}
	flag := make([]rune, 0, 2)
	for _, c := range code {
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z':
		default:
			return "—"
		}
		flag = append(flag, 127397+c)
	}
	return string(flag)
}
