package questservice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	questdb "github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/quest-bot/app/shared/results"
	"github.com/uptrace/bun"
)

// canonicalURL normalizes an article link for duplicate detection. Only http
// and https are accepted; the host is lowercased and utm_* parameters and the
// fragment are dropped.
func canonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for key := range q {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SubmitArticle records an article link for moderation.
func (s *QuestService) SubmitArticle(ctx context.Context, tgID int64, rawURL string) (*SubmissionView, error) {
	return execute(s, ctx, "SubmitArticle", strconv.FormatInt(tgID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*SubmissionView, error], error) {
		canonical, err := canonicalURL(rawURL)
		if err != nil {
			return fail[*SubmissionView](err)
		}
		user, teamID, err := s.submitter(ctx, db, tgID)
		if err != nil {
			return fail[*SubmissionView](err)
		}

		_, err = s.repo.FindLiveArticle(ctx, db, canonical)
		if err == nil {
			return failure[*SubmissionView](ErrDuplicate)
		}
		if !errors.Is(err, questdb.ErrNotFound) {
			return infraError[*SubmissionView](fmt.Errorf("failed to check duplicate article: %w", err))
		}

		original := strings.TrimSpace(rawURL)
		sub := &questdb.Submission{
			UserID:       user.ID,
			TeamID:       teamID,
			Kind:         questdomain.KindArticle,
			URL:          &original,
			CanonicalURL: &canonical,
			Status:       questdomain.SubmissionPending,
			CreatedAt:    s.now(),
		}
		if err := s.repo.CreateSubmission(ctx, db, sub); err != nil {
			return infraError[*SubmissionView](err)
		}
		return success(submissionView(sub))
	})
}

// SubmitPhoto records a free-form photo for moderation.
func (s *QuestService) SubmitPhoto(ctx context.Context, tgID int64, fileID, caption string) (*SubmissionView, error) {
	return execute(s, ctx, "SubmitPhoto", strconv.FormatInt(tgID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*SubmissionView, error], error) {
		fileID = strings.TrimSpace(fileID)
		if fileID == "" {
			return failure[*SubmissionView](ErrMissingMedia)
		}
		user, teamID, err := s.submitter(ctx, db, tgID)
		if err != nil {
			return fail[*SubmissionView](err)
		}

		sub := &questdb.Submission{
			UserID:    user.ID,
			TeamID:    teamID,
			Kind:      questdomain.KindPhoto,
			TgFileID:  &fileID,
			Status:    questdomain.SubmissionPending,
			CreatedAt: s.now(),
		}
		if c := strings.TrimSpace(caption); c != "" {
			sub.Caption = &c
		}
		if err := s.repo.CreateSubmission(ctx, db, sub); err != nil {
			return infraError[*SubmissionView](err)
		}
		return success(submissionView(sub))
	})
}

// ListSubmissions returns submissions in status, oldest first.
func (s *QuestService) ListSubmissions(ctx context.Context, status questdomain.SubmissionStatus, limit int) ([]SubmissionView, error) {
	if status == "" {
		status = questdomain.SubmissionPending
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return execute(s, ctx, "ListSubmissions", string(status), func(ctx context.Context, db bun.IDB) (results.OperationResult[[]SubmissionView, error], error) {
		subs, err := s.repo.ListSubmissions(ctx, db, status, limit)
		if err != nil {
			return infraError[[]SubmissionView](err)
		}
		out := make([]SubmissionView, 0, len(subs))
		for i := range subs {
			out = append(out, *submissionView(&subs[i]))
		}
		return success(out)
	})
}

// ApproveSubmission accepts a pending submission.
func (s *QuestService) ApproveSubmission(ctx context.Context, id, reviewer int64) (*SubmissionModeration, error) {
	return s.judgeSubmission(ctx, "ApproveSubmission", questdb.Judgement{ID: id, Approve: true, JudgedBy: reviewer})
}

// RejectSubmission turns a pending submission down with an optional reason.
func (s *QuestService) RejectSubmission(ctx context.Context, id, reviewer int64, reason string) (*SubmissionModeration, error) {
	j := questdb.Judgement{ID: id, JudgedBy: reviewer}
	if r := strings.TrimSpace(reason); r != "" {
		j.Comment = &r
	}
	return s.judgeSubmission(ctx, "RejectSubmission", j)
}

func (s *QuestService) judgeSubmission(ctx context.Context, op string, j questdb.Judgement) (*SubmissionModeration, error) {
	ctx = attr.EnsureCorrelationID(ctx)
	res, err := execute(s, ctx, op, strconv.FormatInt(j.ID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*SubmissionModeration, error], error) {
		return s.judgeSubmissionLogic(ctx, db, j)
	})
	if err != nil {
		return nil, err
	}
	s.publishSubmission(ctx, res.topic, res.event)
	return res, nil
}

func (s *QuestService) judgeSubmissionLogic(ctx context.Context, db bun.IDB, j questdb.Judgement) (results.OperationResult[*SubmissionModeration, error], error) {
	sub, err := s.repo.GetSubmissionByID(ctx, db, j.ID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return failure[*SubmissionModeration](ErrSubmissionNotFound)
		}
		return infraError[*SubmissionModeration](fmt.Errorf("failed to get submission: %w", err))
	}
	if sub.Status != questdomain.SubmissionPending {
		return success(&SubmissionModeration{AlreadyProcessed: true, Submission: submissionView(sub)})
	}

	j.At = s.now()
	applied, err := s.repo.JudgeSubmission(ctx, db, j)
	if err != nil {
		return infraError[*SubmissionModeration](err)
	}
	if !applied {
		return success(&SubmissionModeration{AlreadyProcessed: true, Submission: submissionView(sub)})
	}

	sub.Status = questdomain.SubmissionRejected
	if j.Approve {
		sub.Status = questdomain.SubmissionApproved
	}
	sub.RejectReason = j.Comment
	sub.ReviewedAt = &j.At
	reviewer := j.JudgedBy
	sub.ReviewedByTg = &reviewer

	view := submissionView(sub)
	event := &questdomain.SubmissionEvent{SubmissionID: sub.ID, Kind: sub.Kind}
	if sub.TeamID != nil {
		event.TeamID = *sub.TeamID
	}
	if j.Comment != nil {
		event.Reason = *j.Comment
	}
	if view.SubmitterTgID != nil {
		event.Recipients = []int64{*view.SubmitterTgID}
	}
	topic := questdomain.TopicSubmissionRejected
	if j.Approve {
		topic = questdomain.TopicSubmissionApproved
	}
	return success(&SubmissionModeration{OK: true, Submission: view, event: event, topic: topic})
}

// submitter resolves the user behind a submission and their team, if any.
func (s *QuestService) submitter(ctx context.Context, db bun.IDB, tgID int64) (*questdb.User, *int64, error) {
	user, err := s.repo.GetUserByTgID(ctx, db, tgID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	member, err := s.repo.GetMembershipByUser(ctx, db, user.ID)
	if err != nil {
		if errors.Is(err, questdb.ErrNotFound) {
			return user, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get membership: %w", err)
	}
	teamID := member.TeamID
	return user, &teamID, nil
}
