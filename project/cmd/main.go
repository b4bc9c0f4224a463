package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"attendance-bot/project/handler"
	"attendance-bot/project/infrastructure/config"
	"attendance-bot/project/infrastructure/i18n"
	"attendance-bot/project/infrastructure/payroll"
	"attendance-bot/project/infrastructure/secret"
	"attendance-bot/project/infrastructure/slack"
	"attendance-bot/project/infrastructure/store"
	"attendance-bot/project/infrastructure/tasks"
	"attendance-bot/project/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// ローカル開発用の .env（本番では存在しなくてよい）
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("ロガー初期化失敗: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 1. 依存関係を初期化
	// Secret Manager
	secretMgr, err := secret.NewManager(ctx, os.Getenv("GCP_PROJECT"))
	if err != nil {
		logger.Fatal("Secret Manager 初期化失敗", zap.Error(err))
	}
	defer secretMgr.Close()

	// 2. 設定を読み込む（不足があればここで中断）
	cfg, err := config.NewConfig(ctx, secretMgr)
	if err != nil {
		logger.Fatal("設定読み込み失敗", zap.Error(err))
	}

	// ユーザー向けメッセージのロケール
	i18n.Init(os.Getenv("BOT_LOCALE"))

	// Firestore リポジトリ（勤怠プロバイダのトークン置き場）
	repo, err := store.NewFirestoreRepo(ctx, cfg)
	if err != nil {
		logger.Fatal("Firestore 初期化失敗", zap.Error(err))
	}
	defer repo.Close()

	// 勤怠プロバイダ API ポート実装
	oauthConfig := payroll.OAuthConfig(cfg)
	tokenSource := payroll.NewDeferredTokenSource(oauthConfig, repo)
	payrollClient := payroll.NewClient(cfg.PayrollBaseURL, cfg.PayrollCompanyID, tokenSource)

	// Slack API ポート実装
	slackClient := slack.NewClient(cfg.SlackBotToken, cfg.BotUserID, cfg.Location)

	// Cloud Scheduler ポート実装
	schedulerClient := tasks.NewCloudSchedulerClient(cfg)

	// 3. サービス層を初期化
	attendanceService := service.NewAttendanceService(cfg, slackClient, payrollClient, logger)

	// 4. HTTP ハンドラーを設定
	mux := http.NewServeMux()

	// Cloud Scheduler からのジョブ起動
	mux.Handle("/jobs/attendance", handler.NewAttendanceHandler(cfg, attendanceService, logger))
	mux.Handle("/jobs/sweep", handler.NewSweepHandler(cfg, attendanceService, logger))

	// 定期トリガーの登録・解除
	mux.Handle("/admin/triggers", handler.NewSetupHandler(cfg, schedulerClient, logger))

	// 勤怠プロバイダ OAuth コールバック
	mux.Handle("/payroll/oauth_redirect", handler.NewOAuthHandler(oauthConfig, repo, logger))

	// ヘルスチェック
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// 5. サーバー起動
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	addr := fmt.Sprintf(":%s", port)
	logger.Info("サーバー起動", zap.String("addr", addr))

	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Fatal("サーバーエラー", zap.Error(err))
	}
}
