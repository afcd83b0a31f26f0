// Package telegram parses the init data blob a Telegram Mini App sends
// with each request, primarily to recover the numeric user ID.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"trialgate/pkg/platform/sentinel"
)

// webAppDataKey is the fixed HMAC key Telegram specifies for deriving
// the Mini App secret from a bot token.
const webAppDataKey = "WebAppData"

// InitData is the decoded form of a Mini App init data query string.
type InitData struct {
	// User is the Telegram user embedded in the blob, nil when absent.
	User *User
	// Hash is the signature Telegram appended, empty when absent.
	Hash string
	// raw preserves the undecoded pairs for signature validation.
	raw url.Values
}

// User is the subset of the Telegram user object the gate needs.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Parse decodes an init data query string. It tolerates missing user and
// hash fields; only an undecodable query string or user JSON is an error.
func Parse(initData string) (*InitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("parse init data: %v: %w", err, sentinel.ErrInvalidInput)
	}

	parsed := &InitData{
		Hash: values.Get("hash"),
		raw:  values,
	}
	if userJSON := values.Get("user"); userJSON != "" {
		var user User
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			return nil, fmt.Errorf("decode init data user: %v: %w", err, sentinel.ErrInvalidInput)
		}
		parsed.User = &user
	}
	return parsed, nil
}

// UserID returns the embedded user ID, or 0 when no user is present.
func (d *InitData) UserID() int64 {
	if d.User == nil {
		return 0
	}
	return d.User.ID
}

// Validate checks the blob's signature against the bot token using the
// scheme Telegram documents for Mini Apps: the hash field is the
// hex-encoded HMAC-SHA256 of the sorted key=value lines, keyed by
// HMAC-SHA256("WebAppData", botToken).
func (d *InitData) Validate(botToken string) error {
	if d.Hash == "" {
		return fmt.Errorf("init data has no hash: %w", sentinel.ErrInvalidInput)
	}

	lines := make([]string, 0, len(d.raw))
	for key, vals := range d.raw {
		if key == "hash" || len(vals) == 0 {
			continue
		}
		lines = append(lines, key+"="+vals[0])
	}
	sort.Strings(lines)
	checkString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(d.Hash)) {
		return fmt.Errorf("init data signature mismatch: %w", sentinel.ErrInvalidInput)
	}
	return nil
}
