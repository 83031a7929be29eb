package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/thuvien/thuvien/internal/storage/drive"
)

// DriveAuthCommand runs the interactive Google Drive OAuth flow and
// caches the resulting token for later server runs.
type DriveAuthCommand struct {
	ClientSecretsPath string
	TokenPath         string
	Port              int
	Timeout           time.Duration
}

// NewDriveAuthCommand creates a new DriveAuthCommand.
func NewDriveAuthCommand() *DriveAuthCommand {
	return &DriveAuthCommand{}
}

// ParseFlags parses command line flags.
func (cmd *DriveAuthCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("drive-auth", flag.ExitOnError)

	envSecrets := os.Getenv("DRIVE_OAUTH_CLIENT_PATH")
	if envSecrets == "" {
		envSecrets = "./oauth_credentials.json"
	}
	envToken := os.Getenv("DRIVE_OAUTH_TOKEN_PATH")
	if envToken == "" {
		envToken = "./tokens/drive_token.json"
	}

	fs.StringVar(&cmd.ClientSecretsPath, "secrets", envSecrets, "Path to OAuth client secrets JSON (or set DRIVE_OAUTH_CLIENT_PATH)")
	fs.StringVar(&cmd.TokenPath, "token", envToken, "Where to store the obtained token (or set DRIVE_OAUTH_TOKEN_PATH)")
	fs.IntVar(&cmd.Port, "port", 8888, "Local port for the OAuth callback server")
	fs.DurationVar(&cmd.Timeout, "timeout", 5*time.Minute, "How long to wait for the browser authorization")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s drive-auth [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Perform the Google Drive OAuth flow and cache the token.\n\n")
		fmt.Fprintf(os.Stderr, "Prerequisites:\n")
		fmt.Fprintf(os.Stderr, "  1. Create an OAuth client at https://console.cloud.google.com/apis/credentials\n")
		fmt.Fprintf(os.Stderr, "  2. Download the client secrets JSON\n")
		fmt.Fprintf(os.Stderr, "  3. Add http://localhost:8888/callback to the authorized redirect URIs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s drive-auth -secrets ./oauth_credentials.json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(cmd.ClientSecretsPath); err != nil {
		return fmt.Errorf("client secrets file not found at %s: set DRIVE_OAUTH_CLIENT_PATH or use -secrets", cmd.ClientSecretsPath)
	}

	return nil
}

// Run executes the OAuth flow.
func (cmd *DriveAuthCommand) Run() error {
	fmt.Println("Google Drive OAuth Flow")
	fmt.Println("=======================")

	auth := &drive.OAuthAuth{
		ClientSecretsPath: cmd.ClientSecretsPath,
		TokenPath:         cmd.TokenPath,
		Port:              cmd.Port,
		FlowTimeout:       cmd.Timeout,
	}

	if err := auth.Authorize(context.Background()); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Println("\nAuthorization successful!")
	fmt.Printf("Token saved to %s\n", cmd.TokenPath)
	fmt.Println("\nThe server will now use this token when STORAGE_BACKEND=drive")
	fmt.Println("and DRIVE_AUTH_MODE=oauth.")
	return nil
}
