package model

import "time"

// VoteType is the direction of a user's vote on an item.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Valid reports whether v is one of the two accepted vote directions.
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// ValidReasons are the accepted downvote reason codes.
var ValidReasons = map[string]bool{
	"inaccurate":  true,
	"low_quality": true,
	"misleading":  true,
	"malicious":   true,
	"broken":      true,
	"spam":        true,
	"other":       true,
}

// VoteAggregate holds the running tally for a single item.
type VoteAggregate struct {
	ItemID    int64 `json:"itemId"`
	Upvotes   int   `json:"upvotes"`
	Downvotes int   `json:"downvotes"`
}

// Score is upvotes minus downvotes.
func (a VoteAggregate) Score() int {
	return a.Upvotes - a.Downvotes
}

// UserVote is a user's single live vote on an item.
type UserVote struct {
	UserID    string    `json:"-"`
	UserEmail string    `json:"-"`
	ItemID    int64     `json:"itemId"`
	VoteType  VoteType  `json:"voteType"`
	Reason    string    `json:"reason,omitempty"`
	VotedAt   time.Time `json:"votedAt"`
}

// VoteAction names what a cast did to the user's vote state.
type VoteAction string

const (
	VoteAdded    VoteAction = "added"
	VoteRemoved  VoteAction = "removed"
	VoteSwitched VoteAction = "switched"
)

// VoteTransition is the planned effect of one cast: counter deltas plus the
// vote row to store. Stored is nil when the vote is toggled off.
type VoteTransition struct {
	Action    VoteAction
	UpDelta   int
	DownDelta int
	Stored    *UserVote
}

// VoteRequest is the API request body for casting a vote.
type VoteRequest struct {
	VoteType VoteType `json:"voteType"`
	Reason   string   `json:"reason,omitempty"`
}

// VoteResponse is the API response after casting a vote.
type VoteResponse struct {
	Success   bool       `json:"success"`
	Action    VoteAction `json:"action"`
	UserVote  *VoteType  `json:"userVote"`
	Upvotes   int        `json:"upvotes"`
	Downvotes int        `json:"downvotes"`
	Score     int        `json:"score"`
}

// AggregateResponse is the API response for vote tallies.
type AggregateResponse struct {
	ItemID    int64 `json:"itemId"`
	Upvotes   int   `json:"upvotes"`
	Downvotes int   `json:"downvotes"`
	Score     int   `json:"score"`
}

// UserVoteResponse is the API response for the caller's own vote.
type UserVoteResponse struct {
	ItemID   int64     `json:"itemId"`
	VoteType *VoteType `json:"voteType"`
}
