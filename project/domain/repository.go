package domain

import (
	"context"
	"fmt"
)

// OAuthToken は勤怠プロバイダのアクセストークンです。
// Apps Script のプロパティストアに相当する外部ストアへ永続化されます
type OAuthToken struct {
	// AccessToken はベアラートークン
	AccessToken string `firestore:"access_token"`

	// RefreshToken は更新用トークン
	RefreshToken string `firestore:"refresh_token"`

	// TokenType はトークン種別（通常 "Bearer"）
	TokenType string `firestore:"token_type"`

	// ExpiresAt はアクセストークンの失効時刻（Unix秒）
	ExpiresAt int64 `firestore:"expires_at"`
}

// Validate は OAuthToken の必須項目を検証します
func (t OAuthToken) Validate() error {
	if t.AccessToken == "" {
		return fmt.Errorf("oauthtoken: AccessTokenは必須項目です")
	}
	if t.RefreshToken == "" {
		return fmt.Errorf("oauthtoken: RefreshTokenは必須項目です")
	}
	return nil
}

// TokenRepository は勤怠プロバイダのOAuthトークンの永続化を担当します
type TokenRepository interface {
	// Load は保存済みトークンを取得します。
	// 未保存の場合は domain.ErrNotFound を返します
	Load(ctx context.Context) (*OAuthToken, error)

	// Save はトークンを保存します。既存レコードは上書きします
	Save(ctx context.Context, token *OAuthToken) error
}
