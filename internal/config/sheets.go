package config

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/sheets"
	"github.com/spf13/viper"
)

// sheetsKeys maps each sheets.* key to its GOOGLE_SHEETS_* fallback and the
// Config field it fills. An empty env name means the key has no fallback.
var sheetsKeys = []struct {
	field func(*sheets.Config) *string
	key   string
	env   string
	path  bool
}{
	{key: "sheets.service_account_path", env: "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", path: true,
		field: func(c *sheets.Config) *string { return &c.ServiceAccountPath }},
	{key: "sheets.client_id", env: "GOOGLE_SHEETS_CLIENT_ID",
		field: func(c *sheets.Config) *string { return &c.ClientID }},
	{key: "sheets.client_secret", env: "GOOGLE_SHEETS_CLIENT_SECRET",
		field: func(c *sheets.Config) *string { return &c.ClientSecret }},
	{key: "sheets.refresh_token", env: "GOOGLE_SHEETS_REFRESH_TOKEN",
		field: func(c *sheets.Config) *string { return &c.RefreshToken }},
	{key: "sheets.spreadsheet_id", env: "GOOGLE_SHEETS_SPREADSHEET_ID",
		field: func(c *sheets.Config) *string { return &c.SpreadsheetID }},
	{key: "sheets.spreadsheet_name", env: "GOOGLE_SHEETS_SPREADSHEET_NAME",
		field: func(c *sheets.Config) *string { return &c.SpreadsheetName }},
	{key: "sheets.sheet_name",
		field: func(c *sheets.Config) *string { return &c.SheetName }},
	{key: "sheets.time_zone",
		field: func(c *sheets.Config) *string { return &c.TimeZone }},
}

// LoadSheetsConfig builds the export configuration. Each sheets.* key wins over
// its GOOGLE_SHEETS_* variable; unset keys keep sheets.DefaultConfig values.
func LoadSheetsConfig() (*sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	for _, k := range sheetsKeys {
		v := setting(k.key, k.env)
		if v == "" {
			continue
		}
		if k.path {
			v = ExpandPath(v)
		}
		*k.field(&cfg) = v
	}
	if viper.IsSet("sheets.formatting") {
		cfg.EnableFormatting = viper.GetBool("sheets.formatting")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SheetsOAuthClient resolves the OAuth client used by `balance auth sheets`.
// Non-empty arguments win over sheets.client_id and sheets.client_secret.
func SheetsOAuthClient(clientID, clientSecret string) (string, string, error) {
	if clientID == "" {
		clientID = setting("sheets.client_id", "GOOGLE_SHEETS_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = setting("sheets.client_secret", "GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if clientID == "" || clientSecret == "" {
		return "", "", common.NewUserError(
			"set sheets.client_id and sheets.client_secret, or pass --client-id and --client-secret",
			fmt.Errorf("%w: OAuth2 client credentials", common.ErrMissingConfig))
	}
	return clientID, clientSecret, nil
}

// SaveSheetsRefreshToken stores an authorized OAuth client in the config file
// and returns the file written.
func SaveSheetsRefreshToken(clientID, clientSecret, refreshToken string) (string, error) {
	viper.Set("sheets.client_id", clientID)
	viper.Set("sheets.client_secret", clientSecret)
	viper.Set("sheets.refresh_token", refreshToken)
	return Save()
}
