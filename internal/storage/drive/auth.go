package drive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
)

// Authenticator produces an authenticated HTTP client for the Drive API.
// The two strategies (service account vs interactive OAuth) are
// interchangeable from the backend's point of view.
type Authenticator interface {
	Client(ctx context.Context) (*http.Client, error)
}

// ServiceAccountAuth authenticates with a service account key file.
type ServiceAccountAuth struct {
	CredentialsPath string
}

func (a *ServiceAccountAuth) Client(ctx context.Context) (*http.Client, error) {
	data, err := os.ReadFile(a.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read service account credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, driveapi.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	return conf.Client(ctx), nil
}

// OAuthAuth authenticates as a user via the OAuth2 installed-app flow.
// A cached token file is used when present; otherwise an interactive flow
// with a local callback receiver runs once and the token is persisted.
type OAuthAuth struct {
	ClientSecretsPath string
	TokenPath         string
	Port              int // Local callback receiver port

	// FlowTimeout bounds how long to wait for the user to authorize.
	// Zero means 5 minutes.
	FlowTimeout time.Duration
}

func (a *OAuthAuth) Client(ctx context.Context) (*http.Client, error) {
	conf, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	token, err := a.loadToken()
	if err != nil {
		// No cached token: run the interactive flow once.
		token, err = a.runFlow(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := a.saveToken(token); err != nil {
			return nil, err
		}
	}

	// Config.Client refreshes the access token automatically using the
	// refresh token.
	return conf.Client(ctx, token), nil
}

// Authorize runs the interactive flow unconditionally and persists the
// resulting token. Used by the drive-auth CLI command.
func (a *OAuthAuth) Authorize(ctx context.Context) error {
	conf, err := a.oauthConfig()
	if err != nil {
		return err
	}
	token, err := a.runFlow(ctx, conf)
	if err != nil {
		return err
	}
	return a.saveToken(token)
}

func (a *OAuthAuth) oauthConfig() (*oauth2.Config, error) {
	data, err := os.ReadFile(a.ClientSecretsPath)
	if err != nil {
		return nil, fmt.Errorf("read OAuth client secrets: %w", err)
	}
	conf, err := google.ConfigFromJSON(data, driveapi.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client secrets: %w", err)
	}
	return conf, nil
}

func (a *OAuthAuth) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.TokenPath)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse cached token: %w", err)
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, fmt.Errorf("cached token expired with no refresh token")
	}
	return &token, nil
}

func (a *OAuthAuth) saveToken(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(a.TokenPath), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.TokenPath, data, 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// runFlow performs the authorization-code flow with a local callback
// server. The caller guarantees single-flight: two concurrent flows would
// fight over the receiver port.
func (a *OAuthAuth) runFlow(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	port := a.Port
	if port == 0 {
		port = 8888
	}
	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
	fmt.Println("\nOpen this URL in your browser to authorize:")
	fmt.Println()
	fmt.Println(authURL)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	server := &http.Server{Handler: mux}

	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if errParam := query.Get("error"); errParam != "" {
			errChan <- fmt.Errorf("authorization error: %s", errParam)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, `<html><body><h1>Authorization Failed</h1><p>%s</p><p>You can close this window.</p></body></html>`, errParam)
			return
		}

		if query.Get("state") != state {
			errChan <- fmt.Errorf("state mismatch: possible CSRF attack")
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><h1>Security Error</h1><p>State mismatch detected.</p></body></html>`)
			return
		}

		code := query.Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><h1>Error</h1><p>No authorization code received.</p></body></html>`)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Authorization Successful!</h1><p>You can close this window and return to the terminal.</p></body></html>`)
		codeChan <- code
	})

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("port %d is not available: %w", port, err)
	}

	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			errChan <- fmt.Errorf("callback server error: %w", err)
		}
	}()
	defer server.Shutdown(context.Background())

	timeout := a.FlowTimeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-timeoutCtx.Done():
		return nil, fmt.Errorf("timed out waiting for authorization")
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
