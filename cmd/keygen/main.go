// Package main provides a CLI tool for minting trialgate credentials:
// the bot API key with its bcrypt hash, and admin JWTs for the
// verification-clear endpoint.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trialgate/pkg/secrets"
)

const defaultAdminTTL = time.Hour

type botKeyOutput struct {
	Key   string            `json:"key"`
	Hash  string            `json:"hash"`
	Usage map[string]string `json:"usage"`
}

type adminTokenOutput struct {
	Token     string            `json:"token"`
	Subject   string            `json:"subject"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	botkeyCmd := flag.NewFlagSet("botkey", flag.ExitOnError)
	botkeyJSON := botkeyCmd.Bool("json", false, "Output as JSON")

	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)
	adminSecret := adminCmd.String("secret", "", "Admin JWT signing secret (required, must match ADMIN_JWT_SECRET)")
	adminSubject := adminCmd.String("subject", "", "Actor recorded in the trial log. Generated if empty.")
	adminTTL := adminCmd.Duration("ttl", defaultAdminTTL, "Token time-to-live")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "botkey":
		botkeyCmd.Parse(os.Args[2:])
		runBotKey(*botkeyJSON)
	case "admin":
		adminCmd.Parse(os.Args[2:])
		runAdmin(*adminSecret, *adminSubject, *adminTTL, *adminJSON)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: keygen <command> [flags]

Commands:
  botkey    Generate a bot API key and its bcrypt hash
  admin     Mint an admin JWT for the verification-clear endpoint`)
}

func runBotKey(asJSON bool) {
	key, err := secrets.Generate()
	if err != nil {
		fatal("generate key", err)
	}
	hash, err := secrets.Hash(key)
	if err != nil {
		fatal("hash key", err)
	}

	if asJSON {
		writeJSON(botKeyOutput{
			Key:  key,
			Hash: hash,
			Usage: map[string]string{
				"server": "export BOT_API_KEY_HASH='" + hash + "'",
				"bot":    "send the key in the X-API-Key header",
			},
		})
		return
	}
	fmt.Printf("API key (give to the bot, shown once):\n  %s\n\n", key)
	fmt.Printf("Hash (set on the server):\n  export BOT_API_KEY_HASH='%s'\n", hash)
}

func runAdmin(secret, subject string, ttl time.Duration, asJSON bool) {
	if secret == "" {
		fmt.Fprintln(os.Stderr, "error: -secret is required")
		os.Exit(2)
	}
	if subject == "" {
		subject = "admin-" + uuid.NewString()[:8]
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		fatal("sign token", err)
	}

	if asJSON {
		writeJSON(adminTokenOutput{
			Token:     signed,
			Subject:   subject,
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"clear": "curl -X DELETE -H 'Authorization: Bearer <token>' /admin/verification/<tg_id>",
			},
		})
		return
	}
	fmt.Printf("Admin token for %s (valid %s):\n  %s\n", subject, ttl, signed)
}

func writeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode output", err)
	}
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", what, err)
	os.Exit(1)
}
