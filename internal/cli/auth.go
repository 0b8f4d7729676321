package cli

import (
	"errors"
	"os"
	"strings"
	"time"

	"cineflow/console/internal/config"

	"github.com/spf13/cobra"
)

const envAPIKey = "CINEFLOW_API_KEY"

func newLoginCommand(app *App) *cobra.Command {
	var apiKey string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange an API key for a bearer token and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = strings.TrimSpace(os.Getenv(envAPIKey))
			}
			if apiKey == "" {
				return errors.New("an API key is required (--api-key or " + envAPIKey + ")")
			}
			tok, err := app.api().ExchangeAPIKey(cmd.Context(), apiKey)
			if err != nil {
				return err
			}
			creds := config.Credentials{APIBase: app.cfg.APIBase, Token: tok.AccessToken}
			if tok.ExpiresIn > 0 {
				creds.ExpiresAt = app.now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()
			}
			if err := config.SaveCredentials(app.cfg.CredentialsPath, creds); err != nil {
				return err
			}
			app.log().Info("login_ok", "api_base", app.cfg.APIBase)
			app.printf("Logged in to %s\n", app.cfg.APIBase)
			if !creds.ExpiresAt.IsZero() {
				app.printf("Token expires %s\n", formatTime(creds.ExpiresAt))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (default from "+envAPIKey+")")
	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ClearCredentials(app.cfg.CredentialsPath); err != nil {
				return err
			}
			app.printf("Logged out\n")
			return nil
		},
	}
}
