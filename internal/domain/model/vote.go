package model

import "time"

// Vote is immutable once written. Paid votes link their Transaction; creator-pay votes
// link the admission code that authorised them instead.
type Vote struct {
	ID              int64
	PollID          int64
	ContestantID    int64
	NumberOfVotes   int
	TransactionID   *int64
	AdmissionCodeID *int64
	CreatedAt       time.Time
}

// ContestantTally is one row of a poll's results.
type ContestantTally struct {
	ContestantID int64   `json:"contestant_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Votes        int64   `json:"vote_count"`
	Percentage   float64 `json:"percentage"`
}

type CategoryResults struct {
	Contestants []ContestantTally `json:"contestants"`
	TotalVotes  int64             `json:"total_votes"`
}

type PollResults struct {
	PollID       int64                      `json:"poll_id"`
	PollTitle    string                     `json:"poll_title"`
	TotalVotes   int64                      `json:"total_votes"`
	Categories   map[string]CategoryResults `json:"categories"`
	CategoryList []string                   `json:"category_list"`
}
