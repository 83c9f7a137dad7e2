package searchdto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Bundle is one finished table as delivered by the platform client.
type Bundle struct {
	TableID        TableID         `json:"tableId" validate:"required"`
	GameName       string          `json:"gameName"`
	WinnerName     string          `json:"winnerName,omitempty"`
	WinnerPlayerID FlexString      `json:"winnerPlayerId,omitempty"`
	Players        []BundlePlayer  `json:"players" validate:"required,min=1,dive"`
	Timeline       []TimelineFact  `json:"timeline" validate:"dive"`
	Ratings        []Rating        `json:"ratings" validate:"dive"`
	RawLog         json.RawMessage `json:"rawLog,omitempty"`
}

type BundlePlayer struct {
	ExternalPlayerID FlexString `json:"externalPlayerId" validate:"required"`
	DisplayName      string     `json:"displayName" validate:"required"`
	RaceID           int        `json:"raceId" validate:"required,min=1"`
	FinalScore       int        `json:"finalScore"`
}

// TimelineFact records that a player completed a structure in a round.
type TimelineFact struct {
	ExternalPlayerID FlexString `json:"externalPlayerId" validate:"required"`
	Round            int        `json:"round" validate:"min=1,max=64"`
	StructureID      int        `json:"structureId" validate:"required"`
}

// Rating carries the platform rating after the game. RawRating may be a
// number, a numeric string, or absent.
type Rating struct {
	ExternalPlayerID FlexString      `json:"externalPlayerId" validate:"required"`
	RawRating        json.RawMessage `json:"rawRating,omitempty"`
}

// TableID accepts both JSON numbers and numeric strings.
type TableID int64

func (id *TableID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("table id %q: %w", s, err)
	}
	*id = TableID(n)
	return nil
}

// FlexString accepts JSON strings and numbers, keeping the textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }
