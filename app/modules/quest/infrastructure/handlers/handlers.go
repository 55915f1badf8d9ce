package questhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/whitelist"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// WhitelistAdmin is the whitelist surface exposed to admins.
type WhitelistAdmin interface {
	Reload(ctx context.Context) error
	Stats() whitelist.Stats
}

// MediaStore persists raw proof uploads and returns their media reference.
type MediaStore interface {
	Save(ctx context.Context, teamID int64, orderNum int, originalName string, r io.Reader) (string, error)
	Remove(ctx context.Context, ref string) error
}

// QuestHandlers serves the player and admin HTTP API.
type QuestHandlers struct {
	service   questservice.Service
	whitelist WhitelistAdmin
	media     MediaStore
	logger    *slog.Logger
	maxUpload int64
}

// NewQuestHandlers creates the HTTP handlers. whitelist and media may be nil;
// the endpoints depending on them then answer 503.
func NewQuestHandlers(service questservice.Service, wl WhitelistAdmin, media MediaStore, logger *slog.Logger) *QuestHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestHandlers{
		service:   service,
		whitelist: wl,
		media:     media,
		logger:    logger,
		maxUpload: 20 << 20,
	}
}

// RegisterRoutes mounts the player endpoints and the /admin group on r.
func (h *QuestHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Get("/me/team", h.HandleMyTeam)
	r.Post("/team/rename", h.HandleRenameTeam)
	r.Post("/game/start", h.HandleStartGame)
	r.Get("/game/current", h.HandleCurrentCheckpoint)
	r.Post("/game/submit", h.HandleSubmitProof)
	r.Post("/submissions/article", h.HandleSubmitArticle)
	r.Post("/submissions/photo", h.HandleSubmitPhoto)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/proofs/pending", h.HandlePendingProofs)
		r.Post("/proofs/{id}/approve", h.HandleApproveProof)
		r.Post("/proofs/{id}/reject", h.HandleRejectProof)

		r.Get("/teams", h.HandleListTeams)
		r.Post("/teams/lock", h.HandleLockTeams)
		r.Post("/teams/unlock", h.HandleUnlockTeams)
		r.Get("/teams/{id}", h.HandleGetTeam)
		r.Post("/teams/{id}/captain", h.HandleSetCaptain)
		r.Post("/teams/{id}/captain/unset", h.HandleUnsetCaptain)
		r.Post("/members/move", h.HandleMoveMember)
		r.Get("/users", h.HandleListUsers)

		r.Get("/submissions", h.HandleListSubmissions)
		r.Post("/submissions/{id}/approve", h.HandleApproveSubmission)
		r.Post("/submissions/{id}/reject", h.HandleRejectSubmission)

		r.Post("/whitelist/reload", h.HandleWhitelistReload)
		r.Get("/whitelist/stats", h.HandleWhitelistStats)
		r.Post("/seed/routes", h.HandleSeedRoutes)
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// validator is implemented by request bodies that check their own required fields.
type validator interface {
	Validate() error
}

var errBadJSON = errors.New("request body must be valid JSON")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
}

// writeError maps a service error onto a status code. Domain failures carry
// their machine code; anything else is logged and hidden behind a 500.
func (h *QuestHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch questservice.KindOf(err) {
	case questservice.KindNotFound:
		status = http.StatusNotFound
	case questservice.KindConflict, questservice.KindUnavailable:
		status = http.StatusConflict
	case questservice.KindInvalid:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed",
			attr.String("path", r.URL.Path),
			attr.Error(err),
		)
		writeJSON(w, status, errorBody{Error: "internal", Message: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: questservice.CodeOf(err), Message: err.Error()})
}

// decode reads a JSON body into v and runs its validation.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		return errBadJSON
	}
	if val, ok := v.(validator); ok {
		return val.Validate()
	}
	return nil
}

// decodeOptional is decode for bodies that may be empty.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

// queryTgID parses the required tg_id query parameter.
func queryTgID(r *http.Request) (int64, error) {
	return parseTgID(r.URL.Query().Get("tg_id"))
}

func parseTgID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errMissingTgID
	}
	return id, nil
}
