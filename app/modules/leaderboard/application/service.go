package leaderboardservice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	leaderboarddb "github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "LeaderboardService"

// Service projects approved work into team standings.
type Service interface {
	GetLeaderboard(ctx context.Context, routeCode string) ([]Row, error)
	RenderChart(ctx context.Context, routeCode string, top int) ([]byte, error)
	GetProgress(ctx context.Context, routeCode string) ([]ProgressRow, error)
}

// LeaderboardService implements Service.
type LeaderboardService struct {
	repo    leaderboarddb.Repository
	weights Weights
	palette ChartPalette
	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
	now     func() time.Time
}

func NewLeaderboardService(repo leaderboarddb.Repository, weights Weights, logger *slog.Logger, m metrics.OperationMetrics, tracer trace.Tracer) *LeaderboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &LeaderboardService{
		repo:    repo,
		weights: weights,
		palette: DefaultPalette,
		logger:  logger,
		metrics: m,
		tracer:  tracer,
		now:     time.Now,
	}
}

var _ Service = (*LeaderboardService)(nil)

// GetLeaderboard ranks teams by total points, then approved count, then id.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, routeCode string) (rows []Row, err error) {
	routeCode = strings.ToUpper(strings.TrimSpace(routeCode))
	ctx, done := s.observe(ctx, "GetLeaderboard", routeCode)
	defer func() { done(err) }()

	tallies, err := s.repo.ListTallies(ctx, routeCode)
	if err != nil {
		return nil, err
	}
	return Rank(tallies, s.weights), nil
}

// RenderChart draws the top teams as a PNG bar chart. top <= 0 means all.
func (s *LeaderboardService) RenderChart(ctx context.Context, routeCode string, top int) (png []byte, err error) {
	rows, err := s.GetLeaderboard(ctx, routeCode)
	if err != nil {
		return nil, err
	}
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	png, err = GenerateLeaderboardChart(rows, s.palette)
	if err != nil {
		return nil, fmt.Errorf("failed to render leaderboard chart: %w", err)
	}
	return png, nil
}

// GetProgress orders teams by how far along their route they are.
func (s *LeaderboardService) GetProgress(ctx context.Context, routeCode string) (rows []ProgressRow, err error) {
	routeCode = strings.ToUpper(strings.TrimSpace(routeCode))
	ctx, done := s.observe(ctx, "GetProgress", routeCode)
	defer func() { done(err) }()

	progress, err := s.repo.ListProgress(ctx, routeCode)
	if err != nil {
		return nil, err
	}
	return ProjectProgress(progress, s.now()), nil
}

// ProjectProgress orders finished teams by elapsed time, then teams still
// running by approved checkpoints, then teams that have not started. Ties
// fall back to team id. Running teams are timed against now.
func ProjectProgress(progress []leaderboarddb.TeamProgress, now time.Time) []ProgressRow {
	rows := make([]ProgressRow, 0, len(progress))
	for _, p := range progress {
		rows = append(rows, ProgressRow{
			TeamID:         p.TeamID,
			TeamName:       p.TeamName,
			RouteCode:      p.RouteCode,
			TasksDone:      p.TasksDone,
			TotalTasks:     p.TotalTasks,
			StartedAt:      p.StartedAt,
			FinishedAt:     p.FinishedAt,
			ElapsedSeconds: elapsed(p.StartedAt, p.FinishedAt, now),
		})
	}

	stage := func(r ProgressRow) int {
		switch {
		case r.FinishedAt != nil && r.StartedAt != nil:
			return 0
		case r.StartedAt != nil:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		sa, sb := stage(a), stage(b)
		if sa != sb {
			return sa < sb
		}
		switch sa {
		case 0:
			if *a.ElapsedSeconds != *b.ElapsedSeconds {
				return *a.ElapsedSeconds < *b.ElapsedSeconds
			}
		case 1:
			if a.TasksDone != b.TasksDone {
				return a.TasksDone > b.TasksDone
			}
		}
		return a.TeamID < b.TeamID
	})
	for i := range rows {
		rows[i].Position = i + 1
	}
	return rows
}

func elapsed(started, finished *time.Time, now time.Time) *int64 {
	if started == nil {
		return nil
	}
	end := now
	if finished != nil {
		end = *finished
	}
	secs := int64(end.Sub(*started) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// Rank turns tallies into ordered rows. Equal totals with equal approved
// counts are ordered by team id and still get distinct ranks.
func Rank(tallies []leaderboarddb.TeamTally, w Weights) []Row {
	rows := make([]Row, 0, len(tallies))
	for _, t := range tallies {
		r := Row{
			TeamID:        t.TeamID,
			TeamName:      t.TeamName,
			RouteCode:     t.RouteCode,
			ArticlePoints: t.Articles * w.Article,
			PhotoPoints:   t.Photos * w.Photo,
			ProofPoints:   t.Proofs * w.Proof,
			ApprovedTotal: t.Articles + t.Photos + t.Proofs,
		}
		r.TotalPoints = r.ArticlePoints + r.PhotoPoints + r.ProofPoints
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.ApprovedTotal != b.ApprovedTotal {
			return a.ApprovedTotal > b.ApprovedTotal
		}
		return a.TeamID < b.TeamID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// observe starts a span and records operation metrics. The returned func
// must be called with the operation's final error.
func (s *LeaderboardService) observe(ctx context.Context, op, identifier string) (context.Context, func(error)) {
	ctx = attr.EnsureCorrelationID(ctx)
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, op, trace.WithAttributes(
			attribute.String("operation", op),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	s.metrics.RecordOperationAttempt(ctx, op, serviceName)
	start := time.Now()

	return ctx, func(err error) {
		defer span.End()
		s.metrics.RecordOperationDuration(ctx, op, serviceName, time.Since(start))
		if err != nil {
			span.RecordError(err)
			s.metrics.RecordOperationFailure(ctx, op, serviceName)
			s.logger.ErrorContext(ctx, "Operation failed with error",
				attr.ExtractCorrelationID(ctx),
				attr.String("operation", op),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			return
		}
		s.metrics.RecordOperationSuccess(ctx, op, serviceName)
	}
}
