package payroll

import (
	"attendance-bot/project/infrastructure/config"

	"golang.org/x/oauth2"
)

// OAuthConfig は勤怠プロバイダの認可コードフロー設定を組み立てます。
// コールバックハンドラーとトークンソースで同じ設定を共有します
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.PayrollClientID,
		ClientSecret: cfg.PayrollClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.PayrollAuthURL,
			TokenURL: cfg.PayrollTokenURL,
		},
	}
}
