package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path"

	urfave "github.com/urfave/cli/v2"
	"github.com/zalando/go-keyring"

	"github.com/conversationai/goldeval/pkg/config"
)

const (
	tokenFileName = "model_token"
	keyringUser   = "model_token"
)

var (
	tokenFlag = &urfave.StringFlag{
		Name:     "token",
		Usage:    "Inference service access token",
		Required: true,
	}

	authCmd = &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Manage the inference service access token",
		Subcommands: []*urfave.Command{
			{
				Name:   "set",
				Usage:  "Store the access token in the OS keychain",
				Action: cmdSetToken,
				Flags: []urfave.Flag{
					tokenFlag,
				},
			},
			{
				Name:   "clear",
				Usage:  "Remove the stored access token",
				Action: cmdClearToken,
			},
		},
	}
)

func cmdSetToken(c *urfave.Context) error {
	if err := saveModelToken(c.String(tokenFlag.Name)); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	fmt.Println("Token saved")
	return nil
}

func cmdClearToken(_ *urfave.Context) error {
	if err := keyring.Delete(appName, keyringUser); err != nil {
		slog.Debug("no token in keychain", "error", err)
	}

	home, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return fmt.Errorf("resolving app home dir: %w", err)
	}
	os.Remove(path.Join(home, tokenFileName))

	fmt.Println("Token cleared")
	return nil
}

func saveModelToken(token string) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}

	if err := keyring.Set(appName, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveModelTokenFile(token)
	}
	return nil
}

// getModelToken returns the stored inference service token, trying
// the OS keychain first and the home dir file second.
func getModelToken() (string, error) {
	token, err := keyring.Get(appName, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	home, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return "", fmt.Errorf("resolving app home dir: %w", err)
	}

	b, err := os.ReadFile(path.Join(home, tokenFileName))
	if err != nil {
		return "", fmt.Errorf("no stored token: %w", err)
	}
	return string(b), nil
}

func saveModelTokenFile(token string) error {
	home, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		return fmt.Errorf("resolving app home dir: %w", err)
	}
	return os.WriteFile(path.Join(home, tokenFileName), []byte(token), 0o600)
}
