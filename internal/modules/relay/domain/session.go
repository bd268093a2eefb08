package domain

import (
	"strings"
	"time"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusSuccess   Status = "success"
	StatusFinished  Status = "finished"
	StatusAbandoned Status = "abandoned"
)

// MaxGroupPassLength bounds stored passphrases so embeds stay renderable.
const MaxGroupPassLength = 20

// Session is one relay co-op game instance. Turns are append-only in join
// order; Turns[0] is the host and is never removed. DeletionVotes only matter
// while the session is open.
type Session struct {
	ID           string `db:"id"`
	Code         string `db:"code"`
	ActivityKind int    `db:"activity_kind"`
	ServerOnly   bool   `db:"server_only"`
	GroupPass    string `db:"group_pass"`
	OriginID     string `db:"origin_id"`
	Status       Status `db:"status"`

	Turns         []Turn
	DeletionVotes []DeletionVote
}

type Turn struct {
	UserID    string    `db:"user_id"`
	OriginID  string    `db:"origin_id"`
	Timestamp time.Time `db:"created_at"`
}

type DeletionVote struct {
	UserID   string    `db:"user_id"`
	OriginID string    `db:"origin_id"`
	VotedAt  time.Time `db:"created_at"`
}

// Outcome is the result a player reports when taking their turn.
type Outcome string

const (
	OutcomeContinue Outcome = "continue"
	OutcomeSuccess  Outcome = "success"
	OutcomeFail     Outcome = "fail"
)

func (o Outcome) Valid() bool {
	return o == OutcomeContinue || o == OutcomeSuccess || o == OutcomeFail
}

// ResultingStatus maps an outcome to the status the session moves to.
func (o Outcome) ResultingStatus() Status {
	switch o {
	case OutcomeSuccess:
		return StatusSuccess
	case OutcomeFail:
		return StatusFinished
	default:
		return StatusOpen
	}
}

// Terminal reports whether the outcome ends the session and triggers
// completion notices.
func (o Outcome) Terminal() bool {
	return o == OutcomeSuccess || o == OutcomeFail
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func TruncateGroupPass(pass string) string {
	if len(pass) > MaxGroupPassLength {
		return pass[:MaxGroupPassLength]
	}
	return pass
}

func (s Session) Host() Turn {
	if len(s.Turns) == 0 {
		return Turn{}
	}
	return s.Turns[0]
}

func (s Session) LastTurn() Turn {
	if len(s.Turns) == 0 {
		return Turn{}
	}
	return s.Turns[len(s.Turns)-1]
}

func (s Session) IsHost(userID string) bool {
	return len(s.Turns) > 0 && s.Turns[0].UserID == userID
}

func (s Session) IsParticipant(userID string) bool {
	for _, turn := range s.Turns {
		if turn.UserID == userID {
			return true
		}
	}
	return false
}

// DaysSinceLastActivity returns whole days since the newest turn.
func (s Session) DaysSinceLastActivity(now time.Time) int {
	if len(s.Turns) == 0 {
		return 0
	}
	elapsed := now.Sub(s.LastTurn().Timestamp)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed.Hours() / 24)
}

// CapacityReached reports whether the next turn would fill the activity. Used
// only to stop offering a "continue" choice to the next joiner.
func (s Session) CapacityReached(activity Activity) bool {
	return len(s.Turns) >= activity.MaxPlayers-1
}

// IsPublic reports whether the session carries no visibility restriction.
func (s Session) IsPublic() bool {
	return !s.ServerOnly && s.GroupPass == ""
}

// QuorumReached decides whether accumulated deletion votes force the session
// into abandoned without host action. The requester's own vote is expected to
// already be recorded. Quorum holds when the host voted, when three distinct
// users voted, or when any recorded vote came from a different origin than
// the requester's.
func (s Session) QuorumReached(requesterOriginID string) bool {
	hostID := s.Host().UserID

	voters := make(map[string]struct{}, len(s.DeletionVotes))
	for _, vote := range s.DeletionVotes {
		if vote.UserID == hostID {
			return true
		}
		if vote.OriginID != requesterOriginID {
			return true
		}
		voters[vote.UserID] = struct{}{}
	}

	return len(voters) >= 3
}

// DistinctVoters counts unique users among the recorded deletion votes.
func (s Session) DistinctVoters() int {
	voters := make(map[string]struct{}, len(s.DeletionVotes))
	for _, vote := range s.DeletionVotes {
		voters[vote.UserID] = struct{}{}
	}
	return len(voters)
}

// CanAbandon is the authorization guard for abandon requests.
func (s Session) CanAbandon(userID string, now time.Time) bool {
	days := s.DaysSinceLastActivity(now)

	switch {
	case s.IsHost(userID):
		return true
	case s.IsParticipant(userID) && days > 1:
		return true
	case days > 2:
		return true
	default:
		return false
	}
}
