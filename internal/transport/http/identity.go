package http

import (
	"fmt"
	"net/http"
	"strconv"

	"trialgate/internal/telegram"
	dErrors "trialgate/pkg/domain-errors"
	"trialgate/pkg/platform/validation"
)

// initDataHeader is where the Mini App frontend forwards the raw
// Telegram init data blob.
const initDataHeader = "X-Telegram-Init-Data"

// resolveUserID recovers the Telegram user ID from a request, most
// explicit source first: the tg_id form field, its backup, the query
// string, then the init data blob from the header or the _auth form
// field.
//
// When botToken is non-empty, an init data blob must carry a valid
// signature before its user ID is trusted. The plain fields have no
// signature to check and are accepted as-is.
func resolveUserID(r *http.Request, botToken string) (int64, error) {
	for _, raw := range []string{
		r.PostFormValue("tg_id"),
		r.PostFormValue("tg_id_backup"),
		r.URL.Query().Get("tg_id"),
	} {
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, dErrors.New(dErrors.CodeInvalidUserID, fmt.Sprintf("malformed user id %q", raw))
		}
		return id, nil
	}

	blob := r.Header.Get(initDataHeader)
	if blob == "" {
		blob = r.PostFormValue("_auth")
	}
	if blob == "" {
		return 0, dErrors.New(dErrors.CodeInvalidUserID, "no user id in request")
	}
	if err := validation.CheckStringLength("init data", blob, validation.MaxInitDataLength); err != nil {
		return 0, err
	}

	initData, err := telegram.Parse(blob)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidUserID, "malformed init data")
	}
	if botToken != "" {
		if err := initData.Validate(botToken); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeUnauthorized, "init data failed validation")
		}
	}
	if initData.UserID() <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidUserID, "init data has no user id")
	}
	return initData.UserID(), nil
}
