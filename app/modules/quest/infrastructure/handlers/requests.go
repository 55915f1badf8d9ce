package questhandlers

import (
	"errors"
	"strings"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/modules/quest/infrastructure/media"
)

var errMissingTgID = errors.New("tg_id is required")

// validFileID accepts Telegram file ids only. Paths and local store
// references are refused so a client cannot point moderation at server files.
func validFileID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("file_id is required")
	}
	if strings.ContainsAny(id, `/\`) || media.IsLocalRef(id) {
		return errors.New("file_id must be a telegram file id")
	}
	return nil
}

type registerRequest struct {
	TgID      int64  `json:"tg_id"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r *registerRequest) Validate() error {
	if r.TgID == 0 {
		return errMissingTgID
	}
	if strings.TrimSpace(r.Phone) == "" {
		return errors.New("phone is required")
	}
	return nil
}

type tgRequest struct {
	TgID int64 `json:"tg_id"`
}

func (r *tgRequest) Validate() error {
	if r.TgID == 0 {
		return errMissingTgID
	}
	return nil
}

type renameRequest struct {
	TgID int64  `json:"tg_id"`
	Name string `json:"name"`
}

func (r *renameRequest) Validate() error {
	if r.TgID == 0 {
		return errMissingTgID
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type submitProofJSON struct {
	TgID   int64  `json:"tg_id"`
	FileID string `json:"file_id"`
}

func (r *submitProofJSON) Validate() error {
	if r.TgID == 0 {
		return errMissingTgID
	}
	return validFileID(r.FileID)
}

type articleRequest struct {
	TgID int64  `json:"tg_id"`
	URL  string `json:"url"`
}

func (r *articleRequest) Validate() error {
	if r.TgID == 0 {
		return errMissingTgID
	}
	if strings.TrimSpace(r.URL) == "" {
		return errors.New("url is required")
	}
	return nil
}

type photoRequest struct {
	TgID    int64  `json:"tg_id"`
	FileID  string `json:"file_id"`
	Caption string `json:"caption"`
}

func (r *photoRequest) Validate() error {
	if r.TgID == 0 {
		return errMissingTgID
	}
	return validFileID(r.FileID)
}

type commentRequest struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

// text returns whichever of comment or reason was sent.
func (r commentRequest) text() string {
	if r.Comment != "" {
		return r.Comment
	}
	return r.Reason
}

type userRefRequest struct {
	UserID int64 `json:"user_id"`
	TgID   int64 `json:"tg_id"`
}

func (r *userRefRequest) Validate() error {
	if r.UserID == 0 && r.TgID == 0 {
		return errors.New("user_id or tg_id is required")
	}
	return nil
}

func (r userRefRequest) ref() questservice.UserRef {
	return questservice.UserRef{UserID: r.UserID, TgID: r.TgID}
}

type moveMemberRequest struct {
	UserID      int64 `json:"user_id"`
	TgID        int64 `json:"tg_id"`
	DestTeamID  int64 `json:"dest_team_id"`
	MakeCaptain bool  `json:"make_captain"`
}

func (r *moveMemberRequest) Validate() error {
	if r.UserID == 0 && r.TgID == 0 {
		return errors.New("user_id or tg_id is required")
	}
	if r.DestTeamID <= 0 {
		return errors.New("dest_team_id is required")
	}
	return nil
}

type seedRoutesRequest struct {
	Routes []questservice.RouteSeed `json:"routes"`
}

func (r *seedRoutesRequest) Validate() error {
	if len(r.Routes) == 0 {
		return errors.New("routes must not be empty")
	}
	for _, route := range r.Routes {
		if strings.TrimSpace(route.Code) == "" {
			return errors.New("every route needs a code")
		}
	}
	return nil
}

func parseSubmissionStatus(raw string) (questdomain.SubmissionStatus, error) {
	if raw == "" {
		return questdomain.SubmissionPending, nil
	}
	return questdomain.ParseSubmissionStatus(strings.ToLower(raw))
}
