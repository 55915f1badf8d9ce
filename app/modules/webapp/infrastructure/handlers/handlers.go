package webapphandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	leaderboardservice "github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard/application"
	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/shared/httpmw"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/go-chi/chi/v5"
)

// Game is the player surface the Mini App drives.
type Game interface {
	GetMyTeam(ctx context.Context, tgID int64) (*questservice.TeamView, error)
	CurrentCheckpoint(ctx context.Context, tgID int64) (*questservice.CheckpointResult, error)
	StartGame(ctx context.Context, tgID int64) (*questservice.StartResult, error)
}

// Standings is the route race read model.
type Standings interface {
	GetProgress(ctx context.Context, routeCode string) ([]leaderboardservice.ProgressRow, error)
}

// Coordinator is the organizer contact shown in the Mini App.
type Coordinator struct {
	Telegram string `json:"tg"`
	Phone    string `json:"phone"`
}

// WebAppHandlers serves the Telegram Mini App API.
type WebAppHandlers struct {
	game        Game
	standings   Standings
	coordinator Coordinator
	logger      *slog.Logger
}

func NewWebAppHandlers(game Game, standings Standings, coordinator Coordinator, logger *slog.Logger) *WebAppHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebAppHandlers{game: game, standings: standings, coordinator: coordinator, logger: logger}
}

// RegisterRoutes mounts the public leaderboard and, behind auth, the player
// endpoints. auth must put an httpmw.WebAppUser into the request context.
func (h *WebAppHandlers) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/leaderboard", h.HandleLeaderboard)
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/summary", h.HandleSummary)
		r.Get("/current", h.HandleCurrent)
		r.Post("/start", h.HandleStart)
	})
}

type summaryTeam struct {
	*questservice.TeamView
	Solved int `json:"solved"`
	Total  int `json:"total"`
}

type summaryResponse struct {
	OK          bool                             `json:"ok"`
	User        httpmw.WebAppUser                `json:"user"`
	IsCaptain   bool                             `json:"is_captain"`
	Team        summaryTeam                      `json:"team"`
	CurrentTask *questdomain.TaskCard            `json:"current_task"`
	Leaderboard []leaderboardservice.ProgressRow `json:"leaderboard"`
	Coordinator Coordinator                      `json:"coordinator"`
}

// HandleSummary answers with everything the Mini App home screen shows.
func (h *WebAppHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := httpmw.WebAppUserFrom(r.Context())

	team, err := h.game.GetMyTeam(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var task *questdomain.TaskCard
	if team.StartedAt != nil && team.FinishedAt == nil {
		cp, err := h.game.CurrentCheckpoint(r.Context(), user.ID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		task = cp.Task
	}

	route := ""
	if team.RouteCode != nil {
		route = *team.RouteCode
	}
	rows, err := h.standings.GetProgress(r.Context(), route)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []leaderboardservice.ProgressRow{}
	}

	resp := summaryResponse{
		OK:          true,
		User:        user,
		IsCaptain:   isCaptain(team, user.ID),
		Team:        summaryTeam{TeamView: team},
		CurrentTask: task,
		Leaderboard: rows,
		Coordinator: h.coordinator,
	}
	for _, row := range rows {
		if row.TeamID == team.ID {
			resp.Team.Solved = row.TasksDone
			resp.Team.Total = row.TotalTasks
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type currentResponse struct {
	OK         bool                  `json:"ok"`
	Finished   bool                  `json:"finished"`
	NotStarted bool                  `json:"not_started,omitempty"`
	Checkpoint *questdomain.TaskCard `json:"checkpoint"`
	IsCaptain  bool                  `json:"is_captain"`
}

// HandleCurrent answers with the team's current task.
func (h *WebAppHandlers) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	user, _ := httpmw.WebAppUserFrom(r.Context())

	team, err := h.game.GetMyTeam(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := currentResponse{OK: true, IsCaptain: isCaptain(team, user.ID)}

	cp, err := h.game.CurrentCheckpoint(r.Context(), user.ID)
	switch {
	case errors.Is(err, questservice.ErrNotStarted):
		resp.NotStarted = true
	case err != nil:
		h.writeError(w, r, err)
		return
	default:
		resp.Finished = cp.Finished
		resp.Checkpoint = cp.Task
	}
	writeJSON(w, http.StatusOK, resp)
}

type startResponse struct {
	OK        bool   `json:"ok"`
	Already   bool   `json:"already,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
	RouteCode string `json:"route_code,omitempty"`
}

// HandleStart lets the captain start the route.
func (h *WebAppHandlers) HandleStart(w http.ResponseWriter, r *http.Request) {
	user, _ := httpmw.WebAppUserFrom(r.Context())

	res, err := h.game.StartGame(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.AlreadyStarted {
		writeJSON(w, http.StatusOK, startResponse{OK: true, Already: true})
		return
	}
	writeJSON(w, http.StatusOK, startResponse{
		OK:        true,
		StartedAt: res.StartedAt.UTC().Format(time.RFC3339),
		RouteCode: res.RouteCode,
	})
}

type leaderboardResponse struct {
	OK          bool                             `json:"ok"`
	Leaderboard []leaderboardservice.ProgressRow `json:"leaderboard"`
}

// HandleLeaderboard answers with the route race. ?route=A narrows to one route.
func (h *WebAppHandlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.standings.GetProgress(r.Context(), r.URL.Query().Get("route"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []leaderboardservice.ProgressRow{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{OK: true, Leaderboard: rows})
}

func isCaptain(team *questservice.TeamView, tgID int64) bool {
	return team.Captain != nil && team.Captain.TgID != nil && *team.Captain.TgID == tgID
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps game failures onto status codes. Only the captain may
// start, so that refusal is a 403 rather than a conflict.
func (h *WebAppHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, questservice.ErrNotCaptain):
		status = http.StatusForbidden
	case questservice.KindOf(err) == questservice.KindNotFound:
		status = http.StatusNotFound
	case questservice.KindOf(err) == questservice.KindConflict, questservice.KindOf(err) == questservice.KindUnavailable:
		status = http.StatusConflict
	case questservice.KindOf(err) == questservice.KindInvalid:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Mini App request failed",
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
		writeJSON(w, status, errorBody{Error: "internal", Message: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: questservice.CodeOf(err), Message: err.Error()})
}
