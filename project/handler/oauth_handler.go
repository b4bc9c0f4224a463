package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"attendance-bot/project/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// OAuthHandler は勤怠プロバイダの OAuth 認可コードコールバックを処理します。
// 初回認可と再認可で使い、取得したトークンはストアへ保存されます
type OAuthHandler struct {
	oauthConfig     *oauth2.Config
	tokenRepository domain.TokenRepository
	logger          *zap.Logger
}

// NewOAuthHandler は OAuth ハンドラーを作成します
func NewOAuthHandler(oauthConfig *oauth2.Config, tokenRepository domain.TokenRepository, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		oauthConfig:     oauthConfig,
		tokenRepository: tokenRepository,
		logger:          logger,
	}
}

// ServeHTTP は OAuth コールバック処理 (/payroll/oauth_redirect)
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// クエリパラメータから code を取得
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code パラメータが不足しています", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 認可コードをトークンに交換
	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("トークン交換失敗", zap.Error(err))
		http.Error(w, fmt.Sprintf("トークン交換失敗: %v", err), http.StatusBadRequest)
		return
	}

	// ストアにトークンを保存（以後の自動リフレッシュの起点になる）
	saved := &domain.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry.Unix(),
	}
	if err := saved.Validate(); err != nil {
		h.logger.Error("トークン内容不正", zap.Error(err))
		http.Error(w, fmt.Sprintf("トークン内容不正: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.tokenRepository.Save(ctx, saved); err != nil {
		h.logger.Error("トークン保存失敗", zap.Error(err))
		http.Error(w, fmt.Sprintf("トークン保存失敗: %v", err), http.StatusInternalServerError)
		return
	}

	h.logger.Info("勤怠プロバイダの認可完了")

	// 認可成功画面を表示
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`
<!DOCTYPE html>
<html>
<head>
    <title>連携完了</title>
    <style>
        body { font-family: sans-serif; margin: 40px; }
        .success { color: green; font-size: 18px; font-weight: bold; }
    </style>
</head>
<body>
    <div class="success">✓ 勤怠システムとの連携が完了しました！</div>
    <p>勤怠チャンネルで「出勤」「退勤」などを投稿すると自動で打刻されます。</p>
    <p>このページは閉じて構いません。</p>
</body>
</html>
	`))
}
