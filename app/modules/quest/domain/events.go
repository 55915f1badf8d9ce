package questdomain

// Topics published on the in-process event bus.
const (
	TopicProofApproved = "quest.proof.approved.v1"
	TopicProofRejected = "quest.proof.rejected.v1"
	TopicTeamFinished  = "quest.team.finished.v1"

	TopicSubmissionApproved = "quest.submission.approved.v1"
	TopicSubmissionRejected = "quest.submission.rejected.v1"
)

// TaskCard is the player-facing view of one checkpoint.
type TaskCard struct {
	CheckpointID int64  `json:"checkpoint_id"`
	OrderNum     int    `json:"order_num"`
	Total        int    `json:"total"`
	Title        string `json:"title"`
	Riddle       string `json:"riddle"`
	HasPhotoHint bool   `json:"has_photo_hint"`
	PhotoHint    string `json:"photo_hint,omitempty"`
}

// ProgressEvent is published after a moderator judges a proof. Recipients are
// the messaging identities of the team roster at the time of judgement.
type ProgressEvent struct {
	TeamID     int64     `json:"team_id"`
	TeamName   string    `json:"team_name"`
	ProofID    int64     `json:"proof_id"`
	Done       int       `json:"done"`
	Total      int       `json:"total"`
	Finished   bool      `json:"finished"`
	Comment    string    `json:"comment,omitempty"`
	Next       *TaskCard `json:"next,omitempty"`
	Recipients []int64   `json:"recipients"`
}

// SubmissionEvent is published after a moderator judges an article or photo
// submission. Recipients holds the submitter's messaging identity, if known.
type SubmissionEvent struct {
	SubmissionID int64          `json:"submission_id"`
	Kind         SubmissionKind `json:"type"`
	TeamID       int64          `json:"team_id,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	Recipients   []int64        `json:"recipients"`
}
