// oauth-init is a one-shot bootstrap for the spreadsheet mirror: it walks
// the OAuth consent flow in a browser and writes the refresh token to disk
// for the sync-worker to use.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

const authTimeout = 5 * time.Minute

func main() {
	cfg, err := loadOAuthConfig()
	if err != nil {
		log.Fatalf("oauth-init: %v", err)
	}

	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	code, err := waitForAuthCode(cfg, redirectPort)
	if err != nil {
		log.Fatalf("oauth-init: %v", err)
	}

	token, err := cfg.Exchange(context.Background(), code)
	if err != nil {
		log.Fatalf("oauth-init: token exchange: %v", err)
	}

	outFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if outFile == "" {
		outFile = "token.json"
	}
	if err := saveToken(outFile, token); err != nil {
		log.Fatalf("oauth-init: %v", err)
	}
	fmt.Printf("Saved token to %s\n", outFile)
}

// loadOAuthConfig reads the OAuth client either inline from the
// environment or from a credentials file.
func loadOAuthConfig() (*oauth2.Config, error) {
	var raw []byte
	var err error
	switch {
	case os.Getenv("GOOGLE_OAUTH_CLIENT_JSON") != "":
		raw = []byte(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	case os.Getenv("GOOGLE_OAUTH_CLIENT_FILE") != "":
		raw, err = os.ReadFile(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
	default:
		return nil, fmt.Errorf("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	cfg, err := google.ConfigFromJSON(raw, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	return cfg, nil
}

// waitForAuthCode serves the redirect endpoint, prints the consent URL and
// blocks until the browser delivers a code, the timeout fires, or the user
// interrupts.
func waitForAuthCode(cfg *oauth2.Config, port string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
			http.Error(w, "OAuth error: "+oauthErr, http.StatusBadRequest)
			errCh <- fmt.Errorf("consent denied: %s", oauthErr)
			return
		}
		fmt.Fprintln(w, "Authorized. You may close this window and return to the terminal.")
		codeCh <- r.URL.Query().Get("code")
	})
	go func() { _ = srv.ListenAndServe() }()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n",
		cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(authTimeout):
		return "", fmt.Errorf("authorization timed out after %v", authTimeout)
	case <-interrupt:
		return "", fmt.Errorf("interrupted")
	}
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
