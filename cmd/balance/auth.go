package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/sheets"
	"github.com/spf13/cobra"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}
	cmd.AddCommand(authSheetsCmd())
	return cmd
}

func authSheetsCmd() *cobra.Command {
	var clientID, clientSecret, listen string

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authorize Google Sheets export with OAuth2",
		Long:  `Authorize classify --sheets to write to your Google Sheets.

A local callback server is started and a Google consent URL printed. Once
you approve access the refresh token is written to the config file, and the
full token is cached next to it as sheets-token.json.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, secret, err := config.SheetsOAuthClient(clientID, clientSecret)
			if err != nil {
				return err
			}
			return authorizeSheets(cmd, id, secret, listen)
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth2 client ID (default: sheets.client_id)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth2 client secret (default: sheets.client_secret)")
	cmd.Flags().StringVar(&listen, "listen", "", "address for the OAuth2 callback server (default: localhost:8080)")
	return cmd
}

func authorizeSheets(cmd *cobra.Command, clientID, clientSecret, listen string) error {
	out := cmd.OutOrStdout()
	tokenFile := filepath.Join(config.Dir(), "sheets-token.json")
	slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

	token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
		Out:          out,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
		ListenAddr:   listen,
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if token.RefreshToken == "" {
		_, _ = fmt.Fprintln(out, cli.FormatWarning("Google did not return a refresh token; the cached token will expire"))
		return nil
	}

	path, err := config.SaveSheetsRefreshToken(clientID, clientSecret, token.RefreshToken)
	if err != nil {
		slog.Warn("Failed to save refresh token", "error", err)
		_, _ = fmt.Fprintln(out, cli.FormatWarning("Could not save the refresh token. Add it to config.yaml under sheets.refresh_token"))
		return nil
	}

	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Google Sheets is ready ("+path+"). Run `balance classify --sheets` to export."))
	return nil
}
