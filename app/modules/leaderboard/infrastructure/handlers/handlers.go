package leaderboardhandlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	leaderboardservice "github.com/Black-And-White-Club/quest-bot/app/modules/leaderboard/application"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/go-chi/chi/v5"
)

// LeaderboardHandlers serves the standings as JSON and as a PNG chart.
type LeaderboardHandlers struct {
	service leaderboardservice.Service
	logger  *slog.Logger
}

func NewLeaderboardHandlers(service leaderboardservice.Service, logger *slog.Logger) *LeaderboardHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardHandlers{service: service, logger: logger}
}

// RegisterRoutes mounts GET /, GET /progress and GET /chart.png on r.
func (h *LeaderboardHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleLeaderboard)
	r.Get("/progress", h.HandleProgress)
	r.Get("/chart.png", h.HandleChart)
}

type leaderboardResponse struct {
	OK          bool                     `json:"ok"`
	Leaderboard []leaderboardservice.Row `json:"leaderboard"`
}

// HandleLeaderboard answers with the ranked rows. ?route=A narrows to one route.
func (h *LeaderboardHandlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetLeaderboard(r.Context(), r.URL.Query().Get("route"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if rows == nil {
		rows = []leaderboardservice.Row{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(leaderboardResponse{OK: true, Leaderboard: rows})
}

type progressResponse struct {
	OK          bool                             `json:"ok"`
	Leaderboard []leaderboardservice.ProgressRow `json:"leaderboard"`
}

// HandleProgress answers with the route race ordering. ?route=A narrows to one route.
func (h *LeaderboardHandlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetProgress(r.Context(), r.URL.Query().Get("route"))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if rows == nil {
		rows = []leaderboardservice.ProgressRow{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(progressResponse{OK: true, Leaderboard: rows})
}

// HandleChart answers with a PNG bar chart. ?top=N limits the bars.
func (h *LeaderboardHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	top := 10
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "top must be a non-negative integer", http.StatusBadRequest)
			return
		}
		top = n
	}

	png, err := h.service.RenderChart(r.Context(), r.URL.Query().Get("route"), top)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (h *LeaderboardHandlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "Leaderboard request failed",
		attr.String("path", r.URL.Path),
		attr.Error(err),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal", "message": "internal error"})
}
