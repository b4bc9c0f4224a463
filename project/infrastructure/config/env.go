package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"attendance-bot/project/infrastructure/secret"
)

// Config は環境変数と Secret Manager から読み込まれるアプリケーション設定です。
// プロセス起動時に一度だけ読み込み、不足・不正があれば即時に失敗します
// （チャット・勤怠APIへのアクセスが始まる前に中断するため）
type Config struct {
	// 基本設定
	AppBaseURL string
	GcpProject string
	Region     string

	// 勤務日・タイムゾーン設定
	Location *time.Location
	// DayStartHour は「勤務日」の開始時（例: 4 なら 4:00 区切り）
	DayStartHour int
	// SweepSummaryHour は自動退勤サマリの投稿時刻
	SweepSummaryHour int

	// Slack設定
	SlackBotToken string // Secret Manager から読み込み
	BotUserID     string
	// ChannelIDs は勤怠監視対象チャンネルの一覧
	ChannelIDs []string
	// AllowCommandSuffix はキーワード末尾に最大4文字のサフィックスを許容するか
	// （外部連携Botがメッセージ末尾に文字を自動付与する構成向け）
	AllowCommandSuffix bool

	// 勤怠プロバイダ設定
	PayrollBaseURL      string
	PayrollCompanyID    int64
	PayrollClientID     string // Secret Manager から読み込み
	PayrollClientSecret string // Secret Manager から読み込み
	PayrollAuthURL      string
	PayrollTokenURL     string
	OAuthRedirectURL    string

	// Firestore設定
	FirestoreProjectID string
	CollectionTokens   string

	// ジョブ認証設定
	JobAuthToken string // Secret Manager から読み込み
}

// NewConfig は環境変数から設定を読み込み、Config構造体を返します。
// センシティブな情報（Slackトークン、勤怠APIクレデンシャル）は
// Secret Manager から取得します
func NewConfig(ctx context.Context, secretMgr *secret.Manager) (*Config, error) {
	timezone := os.Getenv("TIMEZONE")
	if timezone == "" {
		timezone = "Asia/Tokyo" // デフォルト値
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %v", err)
	}

	dayStartHour, err := envHour("DAY_START_HOUR", 4)
	if err != nil {
		return nil, err
	}

	sweepSummaryHour, err := envHour("SWEEP_SUMMARY_HOUR", 9)
	if err != nil {
		return nil, err
	}

	companyID, err := strconv.ParseInt(mustGetEnv("PAYROLL_COMPANY_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_COMPANY_ID: %v", err)
	}

	channelIDs := splitChannels(mustGetEnv("ATTENDANCE_CHANNEL_IDS"))
	if len(channelIDs) == 0 {
		return nil, fmt.Errorf("ATTENDANCE_CHANNEL_IDS にチャンネルIDがありません")
	}

	// Secret Manager からクレデンシャルを取得
	slackBotToken, err := secretMgr.GetSecret(ctx, "slack-bot-token")
	if err != nil {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN 取得失敗: %v", err)
	}

	payrollClientID, err := secretMgr.GetSecret(ctx, "payroll-client-id")
	if err != nil {
		return nil, fmt.Errorf("PAYROLL_CLIENT_ID 取得失敗: %v", err)
	}

	payrollClientSecret, err := secretMgr.GetSecret(ctx, "payroll-client-secret")
	if err != nil {
		return nil, fmt.Errorf("PAYROLL_CLIENT_SECRET 取得失敗: %v", err)
	}

	jobAuthToken, err := secretMgr.GetSecret(ctx, "job-auth-token")
	if err != nil {
		return nil, fmt.Errorf("JOB_AUTH_TOKEN 取得失敗: %v", err)
	}

	payrollBaseURL := os.Getenv("PAYROLL_BASE_URL")
	if payrollBaseURL == "" {
		payrollBaseURL = "https://api.freee.co.jp/hr" // デフォルト値
	}

	config := &Config{
		// 基本設定
		AppBaseURL: mustGetEnv("APP_BASE_URL"),
		GcpProject: mustGetEnv("GCP_PROJECT"),
		Region:     mustGetEnv("REGION"),

		// 勤務日・タイムゾーン設定
		Location:         location,
		DayStartHour:     dayStartHour,
		SweepSummaryHour: sweepSummaryHour,

		// Slack設定
		SlackBotToken:      slackBotToken,
		BotUserID:          mustGetEnv("BOT_USER_ID"),
		ChannelIDs:         channelIDs,
		AllowCommandSuffix: os.Getenv("ALLOW_COMMAND_SUFFIX") == "true",

		// 勤怠プロバイダ設定
		PayrollBaseURL:      payrollBaseURL,
		PayrollCompanyID:    companyID,
		PayrollClientID:     payrollClientID,
		PayrollClientSecret: payrollClientSecret,
		PayrollAuthURL:      "https://accounts.secure.freee.co.jp/public_api/authorize",
		PayrollTokenURL:     "https://accounts.secure.freee.co.jp/public_api/token",
		OAuthRedirectURL:    mustGetEnv("OAUTH_REDIRECT_URL"),

		// Firestore設定
		FirestoreProjectID: mustGetEnv("FIRESTORE_PROJECT_ID"),
		CollectionTokens:   mustGetEnv("FS_COLLECTION_TOKENS"),

		// ジョブ認証設定
		JobAuthToken: jobAuthToken,
	}

	return config, nil
}

// envHour は 0〜23 の時刻設定を環境変数から読み込みます
func envHour(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	hour, err := strconv.Atoi(value)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return hour, nil
}

// splitChannels はカンマ区切りのチャンネルID一覧をパースします
func splitChannels(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// mustGetEnv は環境変数を取得し、存在しない場合はパニックします
func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable not set: %s", key))
	}
	return value
}
