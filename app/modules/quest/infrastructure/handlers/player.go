package questhandlers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
)

// HandleRegister registers the participant and places them on a team.
func (h *QuestHandlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.RegisterOrAssign(r.Context(), questservice.RegisterRequest{
		TgID:      req.TgID,
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMyTeam returns the caller's team and roster.
func (h *QuestHandlers) HandleMyTeam(w http.ResponseWriter, r *http.Request) {
	tgID, err := queryTgID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	team, err := h.service.GetMyTeam(r.Context(), tgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleRenameTeam spends the team's one-shot rename.
func (h *QuestHandlers) HandleRenameTeam(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	team, err := h.service.RenameTeam(r.Context(), req.TgID, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleStartGame starts the caller's team.
func (h *QuestHandlers) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	var req tgRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.StartGame(r.Context(), req.TgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCurrentCheckpoint returns the team's current task.
func (h *QuestHandlers) HandleCurrentCheckpoint(w http.ResponseWriter, r *http.Request) {
	tgID, err := queryTgID(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.CurrentCheckpoint(r.Context(), tgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if res.Finished {
		writeJSON(w, http.StatusOK, map[string]bool{"finished": true})
		return
	}
	writeJSON(w, http.StatusOK, res.Task)
}

// HandleSubmitProof accepts a proof either as JSON carrying a messaging file
// id or as a multipart upload in the "photo" field.
func (h *QuestHandlers) HandleSubmitProof(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.submitUpload(w, r)
		return
	}

	var req submitProofJSON
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	h.submitProof(w, r, questservice.SubmitProofRequest{TgID: req.TgID, MediaRef: strings.TrimSpace(req.FileID)})
}

func (h *QuestHandlers) submitUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.media == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "uploads_disabled", Message: "raw uploads are not configured"})
		return
	}
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		badRequest(w, errors.New("invalid multipart form"))
		return
	}
	tgID, err := parseTgID(r.FormValue("tg_id"))
	if err != nil {
		badRequest(w, err)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		badRequest(w, errors.New("photo file is required"))
		return
	}
	defer file.Close()

	team, err := h.service.GetMyTeam(ctx, tgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if team.Captain == nil || team.Captain.TgID == nil || *team.Captain.TgID != tgID {
		h.writeError(w, r, questservice.ErrNotCaptain)
		return
	}
	cur, err := h.service.CurrentCheckpoint(ctx, tgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if cur.Finished || cur.Task == nil {
		writeJSON(w, http.StatusOK, questservice.SubmitProofResult{OK: true, Outcome: questdomain.OutcomeRouteFinished})
		return
	}

	ref, err := h.media.Save(ctx, team.ID, cur.Task.OrderNum, header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to store proof upload",
			attr.Int64("team_id", team.ID),
			attr.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "failed to store upload"})
		return
	}

	res, err := h.service.SubmitProof(ctx, questservice.SubmitProofRequest{TgID: tgID, MediaRef: ref})
	if err != nil || (res.Outcome != questdomain.OutcomeQueued && res.Outcome != questdomain.OutcomeRequeued) {
		// The upload is only referenced by a proof that was queued or requeued.
		if rmErr := h.media.Remove(context.WithoutCancel(ctx), ref); rmErr != nil {
			h.logger.WarnContext(ctx, "Failed to remove unused proof upload",
				attr.String("media_ref", ref),
				attr.Error(rmErr),
			)
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *QuestHandlers) submitProof(w http.ResponseWriter, r *http.Request, req questservice.SubmitProofRequest) {
	res, err := h.service.SubmitProof(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSubmitArticle queues a link for moderation.
func (h *QuestHandlers) HandleSubmitArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	sub, err := h.service.SubmitArticle(r.Context(), req.TgID, req.URL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleSubmitPhoto queues a free-form photo for moderation.
func (h *QuestHandlers) HandleSubmitPhoto(w http.ResponseWriter, r *http.Request) {
	var req photoRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	sub, err := h.service.SubmitPhoto(r.Context(), req.TgID, req.FileID, req.Caption)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
