package ops

import (
	"database/sql"
	"fmt"

	"github.com/hpungsan/coursesync/internal/db"
	"github.com/hpungsan/coursesync/internal/errors"
)

// HistoryInput selects journal records. With RunID set, that run and its
// events are returned; otherwise the latest Limit runs.
type HistoryInput struct {
	RunID string `json:"run_id,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// HistoryOutput holds the selected runs. Events is set only for a single run.
type HistoryOutput struct {
	Runs   []db.Run   `json:"runs"`
	Events []db.Event `json:"events,omitempty"`
}

// MaxHistoryLimit caps how many runs one query returns.
const MaxHistoryLimit = 200

// History reads the sync journal.
func History(journal *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if journal == nil {
		return nil, errors.NewConfig("sync journal is not open")
	}
	if input.Limit < 0 || input.Limit > MaxHistoryLimit {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("limit must be between 0 and %d", MaxHistoryLimit))
	}

	if input.RunID != "" {
		r, err := db.GetRun(journal, input.RunID)
		if err != nil {
			return nil, err
		}
		events, err := db.ListEvents(journal, r.ID)
		if err != nil {
			return nil, err
		}
		return &HistoryOutput{Runs: []db.Run{*r}, Events: events}, nil
	}

	runs, err := db.ListRuns(journal, input.Limit)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Runs: runs}, nil
}
