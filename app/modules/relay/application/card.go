package relayservice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
)

// VersionKey identifies one submission of a pending proof. A rejected proof
// that is resubmitted keeps its id but gets a new Version and usually a new
// MediaRef, so it produces a new key.
// Submissions are never resubmitted, so their key only guards against
// re-delivery.
type VersionKey struct {
	ProofID      int64
	SubmissionID int64
	Version      string
	MediaRef     string
}

// KeyOf builds the version key of a pending proof from its id, its
// updated_at (created_at when never updated) and its media reference.
func KeyOf(p questservice.PendingProof) VersionKey {
	ts := p.CreatedAt
	if p.UpdatedAt != nil && !p.UpdatedAt.IsZero() {
		ts = *p.UpdatedAt
	}
	return VersionKey{
		ProofID:  p.ID,
		Version:  ts.UTC().Format(time.RFC3339Nano),
		MediaRef: p.PhotoFileID,
	}
}

// SubmissionKeyOf builds the version key of a pending submission.
func SubmissionKeyOf(s questservice.SubmissionView) VersionKey {
	return VersionKey{
		SubmissionID: s.ID,
		Version:      s.CreatedAt.UTC().Format(time.RFC3339Nano),
		MediaRef:     submissionMedia(s),
	}
}

func (k VersionKey) String() string {
	if k.SubmissionID != 0 {
		return fmt.Sprintf("sub%d:%s:%s", k.SubmissionID, k.Version, k.MediaRef)
	}
	return fmt.Sprintf("%d:%s:%s", k.ProofID, k.Version, k.MediaRef)
}

// Card is a moderation card ready for a review channel. Exactly one of
// ProofID and SubmissionID is set. Cards without a MediaRef are text only.
type Card struct {
	ProofID      int64
	SubmissionID int64
	TeamID       int64
	MediaRef     string
	Caption      string
}

// IsSubmission reports whether the card moderates an article or photo
// submission rather than a checkpoint proof.
func (c Card) IsSubmission() bool {
	return c.SubmissionID != 0
}

// RenderCard builds the card shown to moderators for p.
func RenderCard(p questservice.PendingProof) Card {
	var b strings.Builder
	fmt.Fprintf(&b, "Proof #%d\n", p.ID)
	fmt.Fprintf(&b, "Team: %s (id %d)\n", p.TeamName, p.TeamID)
	if p.RouteCode != "" {
		fmt.Fprintf(&b, "Route: %s\n", p.RouteCode)
	}
	fmt.Fprintf(&b, "Task %d: %s\n", p.OrderNum, p.CheckpointTitle)

	from := p.SubmittedByName
	if from == "" {
		from = "user #" + strconv.FormatInt(p.SubmittedByUserID, 10)
	}
	if p.SubmittedByTgID != nil {
		from = fmt.Sprintf("%s (tg %d)", from, *p.SubmittedByTgID)
	}
	fmt.Fprintf(&b, "From: %s", from)

	return Card{
		ProofID:  p.ID,
		TeamID:   p.TeamID,
		MediaRef: p.PhotoFileID,
		Caption:  b.String(),
	}
}

// RenderSubmissionCard builds the card shown to moderators for a pending
// article or photo submission.
func RenderSubmissionCard(s questservice.SubmissionView) Card {
	var b strings.Builder
	if s.Kind == questdomain.KindArticle {
		fmt.Fprintf(&b, "📰 Article #%d\n", s.ID)
	} else {
		fmt.Fprintf(&b, "📷 Photo #%d\n", s.ID)
	}

	card := Card{SubmissionID: s.ID, MediaRef: submissionMedia(s)}
	switch {
	case s.TeamID != nil && s.TeamName != "":
		card.TeamID = *s.TeamID
		fmt.Fprintf(&b, "Team: %s (id %d)\n", s.TeamName, *s.TeamID)
	case s.TeamID != nil:
		card.TeamID = *s.TeamID
		fmt.Fprintf(&b, "Team: id %d\n", *s.TeamID)
	default:
		b.WriteString("Team: none\n")
	}

	from := s.SubmitterName
	if from == "" {
		from = "user #" + strconv.FormatInt(s.UserID, 10)
	}
	if s.SubmitterTgID != nil {
		from = fmt.Sprintf("%s (tg %d)", from, *s.SubmitterTgID)
	}
	fmt.Fprintf(&b, "From: %s", from)

	if s.URL != nil {
		fmt.Fprintf(&b, "\n\n%s", *s.URL)
	}
	if s.Caption != nil && *s.Caption != "" {
		fmt.Fprintf(&b, "\n\n%s", *s.Caption)
	}
	card.Caption = b.String()
	return card
}

func submissionMedia(s questservice.SubmissionView) string {
	if s.Kind == questdomain.KindPhoto && s.TgFileID != nil {
		return *s.TgFileID
	}
	return ""
}

// Moderation actions carried by card buttons.
const (
	ActionApprove           = "approve"
	ActionReject            = "reject"
	ActionApproveSubmission = "approve_sub"
	ActionRejectSubmission  = "reject_sub"
)

var errBadCallback = errors.New("unrecognized callback data")

// CallbackData encodes a card button as "<action>:<id>". The id is a proof
// id for approve and reject and a submission id for the _sub actions.
func CallbackData(action string, id int64) string {
	return action + ":" + strconv.FormatInt(id, 10)
}

// ParseCallback decodes data produced by CallbackData.
func ParseCallback(data string) (action string, id int64, err error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, errBadCallback
	}
	switch action {
	case ActionApprove, ActionReject, ActionApproveSubmission, ActionRejectSubmission:
	default:
		return "", 0, errBadCallback
	}
	id, err = strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, errBadCallback
	}
	return action, id, nil
}
