package searchdto

import "time"

type Game struct {
	ID          string `json:"id"`
	TableID     int64  `json:"tableId"`
	Name        string `json:"gameName"`
	PlayerCount int    `json:"playerCount"`
	WinnerName  string `json:"winnerName,omitempty"`
	// WinnerAmbiguous means the winner name fit several players.
	WinnerAmbiguous bool      `json:"winnerAmbiguous,omitempty"`
	MinPlayerElo    *int      `json:"minPlayerElo"`
	CreatedAt       time.Time `json:"createdAt"`
	Players         []Player  `json:"players"`
}

type Player struct {
	ExternalID string  `json:"playerId"`
	Name       string  `json:"playerName"`
	RaceID     int     `json:"raceId"`
	RaceName   string  `json:"raceName"`
	FinalScore int     `json:"finalScore"`
	Elo        *int    `json:"playerElo"`
	IsWinner   bool    `json:"isWinner"`
	Buildings  [][]int `json:"buildings"`
	// Labels explains which structure conditions this player satisfied.
	Labels []Label `json:"labels,omitempty"`
}

type Label struct {
	StructureID   int    `json:"structureId"`
	StructureName string `json:"structure"`
	Round         int    `json:"round"`
	Text          string `json:"text"`
}

type SearchResponse struct {
	Games  []Game `json:"games"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
