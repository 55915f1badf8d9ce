package httpmw

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// InitDataHeader carries the Mini App's signed launch parameters.
const InitDataHeader = "X-Telegram-Init-Data"

// maxInitDataBody bounds the JSON body read while looking for init_data.
const maxInitDataBody = 64 << 10

var (
	ErrInitDataMissing   = errors.New("init data is missing")
	ErrInitDataSignature = errors.New("init data signature mismatch")
	ErrInitDataExpired   = errors.New("init data is too old")
	ErrInitDataNoUser    = errors.New("init data carries no user")
)

// WebAppUser is the Telegram account that opened the Mini App.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type webAppUserKey struct{}

// WebAppUserFrom returns the verified user stored by InitDataMiddleware.
func WebAppUserFrom(ctx context.Context) (WebAppUser, bool) {
	u, ok := ctx.Value(webAppUserKey{}).(WebAppUser)
	return u, ok
}

// VerifyInitData checks the hash of a Mini App query string against the bot
// token and returns its user. maxAge <= 0 skips the auth_date check.
func VerifyInitData(raw, botToken string, maxAge time.Duration, now time.Time) (WebAppUser, error) {
	if raw == "" {
		return WebAppUser{}, ErrInitDataMissing
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return WebAppUser{}, ErrInitDataMissing
	}
	hash := values.Get("hash")
	if hash == "" {
		return WebAppUser{}, ErrInitDataMissing
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	want, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(signInitData(strings.Join(lines, "\n"), botToken), want) {
		return WebAppUser{}, ErrInitDataSignature
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil || now.Sub(time.Unix(authDate, 0)) > maxAge {
			return WebAppUser{}, ErrInitDataExpired
		}
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return WebAppUser{}, ErrInitDataNoUser
	}
	return user, nil
}

// SignInitData returns the hex hash Telegram would attach to a data-check
// string for botToken.
func SignInitData(dataCheck, botToken string) string {
	return hex.EncodeToString(signInitData(dataCheck, botToken))
}

func signInitData(dataCheck, botToken string) []byte {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheck))
	return mac.Sum(nil)
}

// InitDataMiddleware authenticates Mini App calls. The signed string is read
// from InitDataHeader, the init_data query parameter, or the init_data field
// of a JSON body. An empty botToken answers 503.
func InitDataMiddleware(botToken string, maxAge time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if botToken == "" {
				writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "webapp_disabled", Message: "bot token is not configured"})
				return
			}
			raw, err := initDataOf(r)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
				return
			}
			user, err := VerifyInitData(raw, botToken, maxAge, time.Now())
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), webAppUserKey{}, user)))
		})
	}
}

// initDataOf finds the signed string. A JSON body is restored for the next handler.
func initDataOf(r *http.Request) (string, error) {
	if v := r.Header.Get(InitDataHeader); v != "" {
		return v, nil
	}
	if v := r.URL.Query().Get("init_data"); v != "" {
		return v, nil
	}
	if r.Body == nil || r.Method == http.MethodGet {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInitDataBody+1))
	r.Body.Close()
	if err != nil {
		return "", err
	}
	if len(body) > maxInitDataBody {
		return "", errors.New("request body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	var envelope struct {
		InitData string `json:"init_data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", errors.New("request body must be valid JSON")
	}
	return envelope.InitData, nil
}
