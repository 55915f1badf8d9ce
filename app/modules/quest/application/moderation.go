package questservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/quest-bot/app/shared/results"
	"github.com/uptrace/bun"
)

// SubmitProof queues the captain's photo for the team's current checkpoint.
func (s *QuestService) SubmitProof(ctx context.Context, req SubmitProofRequest) (*SubmitProofResult, error) {
	return execute(s, ctx, "SubmitProof", strconv.FormatInt(req.TgID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*SubmitProofResult, error], error) {
		return s.submitProofLogic(ctx, db, req)
	})
}

func (s *QuestService) submitProofLogic(ctx context.Context, db bun.IDB, req SubmitProofRequest) (results.OperationResult[*SubmitProofResult, error], error) {
	mediaRef := strings.TrimSpace(req.MediaRef)
	if mediaRef == "" {
		return failure[*SubmitProofResult](ErrMissingMedia)
	}

	mc, err := s.loadCaptain(ctx, db, req.TgID)
	if err != nil {
		return fail[*SubmitProofResult](err)
	}
	team := mc.team

	if team.HasFinished() {
		return success(&SubmitProofResult{OK: true, Outcome: questdomain.OutcomeRouteFinished})
	}
	if !team.HasStarted() || team.RouteID == nil {
		return failure[*SubmitProofResult](ErrNotStarted)
	}

	cp, err := s.repo.GetCheckpointByOrder(ctx, db, *team.RouteID, team.CurrentOrderNum)
	if errors.Is(err, questdb.ErrNotFound) {
		return success(&SubmitProofResult{OK: true, Outcome: questdomain.OutcomeRouteFinished})
	}
	if err != nil {
		return infraError[*SubmitProofResult](fmt.Errorf("failed to get checkpoint: %w", err))
	}

	existing, err := s.repo.GetProofByTeamCheckpoint(ctx, db, team.ID, cp.ID)
	if err != nil && !errors.Is(err, questdb.ErrNotFound) {
		return infraError[*SubmitProofResult](fmt.Errorf("failed to get proof: %w", err))
	}

	if existing != nil {
		switch existing.Status {
		case questdomain.ProofPending:
			return success(&SubmitProofResult{OK: true, ProofID: existing.ID, Outcome: questdomain.OutcomeAlreadyQueued})
		case questdomain.ProofApproved:
			return success(&SubmitProofResult{OK: true, ProofID: existing.ID, Outcome: questdomain.OutcomeAlreadyApproved})
		}

		now := s.now()
		existing.PhotoFileID = mediaRef
		existing.SubmittedByUserID = mc.user.ID
		existing.Status = questdomain.ProofPending
		existing.JudgedBy = nil
		existing.JudgedAt = nil
		existing.Comment = nil
		existing.UpdatedAt = &now
		reopened, err := s.repo.ReopenProof(ctx, db, existing)
		if err != nil {
			return infraError[*SubmitProofResult](err)
		}
		if !reopened {
			return failure[*SubmitProofResult](ErrProofRace)
		}
		return success(&SubmitProofResult{OK: true, ProofID: existing.ID, Outcome: questdomain.OutcomeRequeued})
	}

	proof := &questdb.Proof{
		TeamID:            team.ID,
		RouteID:           *team.RouteID,
		CheckpointID:      cp.ID,
		PhotoFileID:       mediaRef,
		Status:            questdomain.ProofPending,
		SubmittedByUserID: mc.user.ID,
		CreatedAt:         s.now(),
	}
	err = s.repo.CreateProof(ctx, db, proof)
	if errors.Is(err, questdb.ErrDuplicate) {
		// A concurrent first submission won the unique (team, checkpoint) row.
		winner, err := s.repo.GetProofByTeamCheckpoint(ctx, db, team.ID, cp.ID)
		if err != nil {
			return infraError[*SubmitProofResult](fmt.Errorf("failed to re-read proof: %w", err))
		}
		return success(&SubmitProofResult{OK: true, ProofID: winner.ID, Outcome: questdomain.OutcomeAlreadyQueued})
	}
	if err != nil {
		return infraError[*SubmitProofResult](err)
	}
	return success(&SubmitProofResult{OK: true, ProofID: proof.ID, Outcome: questdomain.OutcomeQueued})
}

// ListPendingProofs returns the moderation queue, oldest first.
func (s *QuestService) ListPendingProofs(ctx context.Context) ([]PendingProof, error) {
	return execute(s, ctx, "ListPendingProofs", "", func(ctx context.Context, db bun.IDB) (results.OperationResult[[]PendingProof, error], error) {
		rows, err := s.repo.ListPendingProofs(ctx, db)
		if err != nil {
			return infraError[[]PendingProof](err)
		}
		out := make([]PendingProof, 0, len(rows))
		for _, r := range rows {
			out = append(out, pendingProof(r))
		}
		return success(out)
	})
}

// ApproveProof accepts a pending proof and advances its team.
func (s *QuestService) ApproveProof(ctx context.Context, proofID, judgedBy int64) (*ModerationResult, error) {
	return s.judge(ctx, "ApproveProof", proofID, judgedBy, true, "")
}

// RejectProof turns a pending proof down. The team may resubmit.
func (s *QuestService) RejectProof(ctx context.Context, proofID, judgedBy int64, comment string) (*ModerationResult, error) {
	return s.judge(ctx, "RejectProof", proofID, judgedBy, false, comment)
}

func (s *QuestService) judge(ctx context.Context, op string, proofID, judgedBy int64, approve bool, comment string) (*ModerationResult, error) {
	ctx = attr.EnsureCorrelationID(ctx)
	res, err := execute(s, ctx, op, strconv.FormatInt(proofID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*ModerationResult, error], error) {
		return s.judgeLogic(ctx, db, proofID, judgedBy, approve, comment)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, res.topic, res.event)
	return res, nil
}

func (s *QuestService) judgeLogic(ctx context.Context, db bun.IDB, proofID, judgedBy int64, approve bool, comment string) (results.OperationResult[*ModerationResult, error], error) {
	proof, err := s.repo.GetProofByID(ctx, db, proofID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return failure[*ModerationResult](ErrProofNotFound)
		}
		return infraError[*ModerationResult](fmt.Errorf("failed to get proof: %w", err))
	}
	processed := &ModerationResult{AlreadyProcessed: true, ProofID: proof.ID, TeamID: proof.TeamID}
	if !proof.Status.CanJudge() {
		return success(processed)
	}

	j := questdb.Judgement{
		ID:       proof.ID,
		Approve:  approve,
		JudgedBy: judgedBy,
		At:       s.now(),
	}
	if c := strings.TrimSpace(comment); c != "" && !approve {
		j.Comment = &c
	}
	applied, err := s.repo.JudgeProof(ctx, db, j)
	if err != nil {
		return infraError[*ModerationResult](err)
	}
	if !applied {
		return success(processed)
	}

	team, err := s.repo.GetTeamByID(ctx, db, proof.TeamID)
	if err != nil {
		return infraError[*ModerationResult](fmt.Errorf("failed to get team: %w", err))
	}
	total, err := s.repo.CountCheckpoints(ctx, db, proof.RouteID)
	if err != nil {
		return infraError[*ModerationResult](fmt.Errorf("failed to count checkpoints: %w", err))
	}

	topic := questdomain.TopicProofRejected
	if approve {
		cp, err := s.repo.GetCheckpointByID(ctx, db, proof.CheckpointID)
		if err != nil {
			return infraError[*ModerationResult](fmt.Errorf("failed to get checkpoint: %w", err))
		}
		wasFinished := team.HasFinished()
		if err := s.advance(ctx, db, team, cp.OrderNum, total); err != nil {
			return infraError[*ModerationResult](err)
		}
		topic = questdomain.TopicProofApproved
		if team.HasFinished() && !wasFinished {
			topic = questdomain.TopicTeamFinished
		}
	}

	done, err := s.repo.CountApprovedProofs(ctx, db, proof.TeamID, proof.RouteID)
	if err != nil {
		return infraError[*ModerationResult](err)
	}

	event, err := s.progressEvent(ctx, db, team, proof.ID, done, total, j.Comment)
	if err != nil {
		return infraError[*ModerationResult](err)
	}

	return success(&ModerationResult{
		OK:       true,
		ProofID:  proof.ID,
		TeamID:   team.ID,
		Progress: Progress{Done: done, Total: total},
		Finished: team.HasFinished(),
		event:    event,
		topic:    topic,
	})
}

// progressEvent builds the team notification for a moderation decision.
func (s *QuestService) progressEvent(ctx context.Context, db bun.IDB, team *questdb.Team, proofID int64, done, total int, comment *string) (*questdomain.ProgressEvent, error) {
	members, err := s.repo.ListMembers(ctx, db, team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	event := &questdomain.ProgressEvent{
		TeamID:   team.ID,
		TeamName: team.Name,
		ProofID:  proofID,
		Done:     done,
		Total:    total,
		Finished: team.HasFinished(),
	}
	if comment != nil {
		event.Comment = *comment
	}
	for _, m := range members {
		if m.TgID != nil {
			event.Recipients = append(event.Recipients, *m.TgID)
		}
	}
	if !event.Finished {
		next, err := s.currentTask(ctx, db, team)
		if err != nil {
			return nil, err
		}
		event.Next = next
	}
	return event, nil
}
