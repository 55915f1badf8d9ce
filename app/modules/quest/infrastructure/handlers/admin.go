package questhandlers

import (
	"net/http"
	"strings"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
)

// httpJudge is the judged_by recorded for decisions made over HTTP.
const httpJudge int64 = 0

// HandlePendingProofs lists proofs awaiting moderation.
func (h *QuestHandlers) HandlePendingProofs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPendingProofs(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *QuestHandlers) HandleApproveProof(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.ApproveProof(r.Context(), id, httpJudge)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRejectProof rejects a proof. The body is optional.
func (h *QuestHandlers) HandleRejectProof(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req commentRequest
	if err := decodeOptional(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.RejectProof(r.Context(), id, httpJudge, req.text())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleListTeams lists all teams, or searches by name when q is set.
func (h *QuestHandlers) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err)
		return
	}

	var teams []questservice.TeamSummary
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		teams, err = h.service.SearchTeams(r.Context(), q, limit)
	} else {
		teams, err = h.service.ListTeams(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": teams})
}

func (h *QuestHandlers) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	team, err := h.service.GetTeam(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *QuestHandlers) HandleLockTeams(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.LockAllTeams(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "changed": n})
}

func (h *QuestHandlers) HandleUnlockTeams(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.UnlockAllTeams(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "changed": n})
}

// HandleSetCaptain makes the named member the team's only captain.
func (h *QuestHandlers) HandleSetCaptain(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req userRefRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	team, err := h.service.SetCaptain(r.Context(), id, req.ref())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *QuestHandlers) HandleUnsetCaptain(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	team, err := h.service.UnsetCaptain(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleMoveMember moves a user to another team and returns the destination.
func (h *QuestHandlers) HandleMoveMember(w http.ResponseWriter, r *http.Request) {
	var req moveMemberRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	team, err := h.service.MoveMember(r.Context(), questservice.MoveMemberRequest{
		User:        questservice.UserRef{UserID: req.UserID, TgID: req.TgID},
		DestTeamID:  req.DestTeamID,
		MakeCaptain: req.MakeCaptain,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *QuestHandlers) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		badRequest(w, err)
		return
	}
	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

func (h *QuestHandlers) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	status, err := parseSubmissionStatus(r.URL.Query().Get("status"))
	if err != nil {
		badRequest(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err)
		return
	}
	subs, err := h.service.ListSubmissions(r.Context(), status, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": subs})
}

func (h *QuestHandlers) HandleApproveSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.ApproveSubmission(r.Context(), id, httpJudge)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *QuestHandlers) HandleRejectSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	var req commentRequest
	if err := decodeOptional(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.RejectSubmission(r.Context(), id, httpJudge, req.text())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleWhitelistReload re-reads the whitelist file. A failed reload keeps
// the previous list and is reported as 500.
func (h *QuestHandlers) HandleWhitelistReload(w http.ResponseWriter, r *http.Request) {
	if h.whitelist == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "whitelist_disabled"})
		return
	}
	if err := h.whitelist.Reload(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "Whitelist reload failed", attr.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "reload_failed", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.whitelist.Stats())
}

func (h *QuestHandlers) HandleWhitelistStats(w http.ResponseWriter, r *http.Request) {
	if h.whitelist == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "whitelist_disabled"})
		return
	}
	writeJSON(w, http.StatusOK, h.whitelist.Stats())
}

// HandleSeedRoutes upserts routes and their checkpoints.
func (h *QuestHandlers) HandleSeedRoutes(w http.ResponseWriter, r *http.Request) {
	var req seedRoutesRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.SeedRoutes(r.Context(), req.Routes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
