package store

import (
	"context"
	"fmt"

	"attendance-bot/project/domain"
	"attendance-bot/project/infrastructure/config"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// 勤怠プロバイダのトークンは1社1件のため固定ドキュメントIDで保持します
const payrollTokenDocID = "payroll"

// isNotFound は Firestore の NotFound エラーを判定するヘルパー関数です
func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}

// FirestoreRepo は domain.TokenRepository の Firestore 実装です。
// Apps Script のプロパティストアに相当する小さなキーバリュー置き場として使います
type FirestoreRepo struct {
	cli       *firestore.Client
	tokensCol string
}

// NewFirestoreRepo は Firestore リポジトリを初期化します
func NewFirestoreRepo(ctx context.Context, cfg *config.Config) (*FirestoreRepo, error) {
	client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: クライアント初期化失敗: %w", err)
	}

	return &FirestoreRepo{
		cli:       client,
		tokensCol: cfg.CollectionTokens,
	}, nil
}

// Load は保存済みの勤怠プロバイダトークンを取得します
func (repo *FirestoreRepo) Load(ctx context.Context) (*domain.OAuthToken, error) {
	docRef := repo.cli.Collection(repo.tokensCol).Doc(payrollTokenDocID)

	snapshot, err := docRef.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore: トークン取得失敗: %w", err)
	}

	var token domain.OAuthToken
	if err := snapshot.DataTo(&token); err != nil {
		return nil, fmt.Errorf("firestore: トークン構造体変換失敗: %w", err)
	}

	return &token, nil
}

// Save は勤怠プロバイダトークンを保存します（新規作成または上書き）
func (repo *FirestoreRepo) Save(ctx context.Context, token *domain.OAuthToken) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("firestore: トークン検証失敗: %w", err)
	}

	docRef := repo.cli.Collection(repo.tokensCol).Doc(payrollTokenDocID)
	data := map[string]interface{}{
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"token_type":    token.TokenType,
		"expires_at":    token.ExpiresAt,
	}

	if _, err := docRef.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore: トークン保存失敗: %w", err)
	}

	return nil
}

// Close は Firestore クライアントを閉じます
func (repo *FirestoreRepo) Close() error {
	if repo.cli != nil {
		return repo.cli.Close()
	}
	return nil
}
