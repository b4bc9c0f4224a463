package payroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"attendance-bot/project/domain"

	"golang.org/x/oauth2"
)

// persistentTokenSource はリフレッシュで得た新トークンを
// TokenRepository へ書き戻す oauth2.TokenSource です
type persistentTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	repo domain.TokenRepository
	last string // 直近で保存したアクセストークン
}

// NewPersistentTokenSource はストアに保存済みのトークンを起点に、
// 自動リフレッシュと保存を行う TokenSource を作成します。
// トークンが未保存の場合は domain.ErrNotFound を返します
// （OAuthコールバックで初回認可を済ませる必要があります）
func NewPersistentTokenSource(ctx context.Context, conf *oauth2.Config, repo domain.TokenRepository) (oauth2.TokenSource, error) {
	stored, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("payroll: 保存済みトークン読み込み失敗: %w", err)
	}

	seed := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       time.Unix(stored.ExpiresAt, 0),
	}

	return &persistentTokenSource{
		base: conf.TokenSource(ctx, seed),
		repo: repo,
		last: stored.AccessToken,
	}, nil
}

// deferredTokenSource は初回の Token 呼び出しまでストア読み込みを遅らせます。
// 初回認可前（トークン未保存）の状態でもプロセスを起動でき、
// OAuthコールバックで認可を済ませた後のジョブ実行から有効になります
type deferredTokenSource struct {
	mu   sync.Mutex
	conf *oauth2.Config
	repo domain.TokenRepository
	base oauth2.TokenSource
}

// NewDeferredTokenSource は遅延初期化つきの永続トークンソースを作成します
func NewDeferredTokenSource(conf *oauth2.Config, repo domain.TokenRepository) oauth2.TokenSource {
	return &deferredTokenSource{conf: conf, repo: repo}
}

// Token は必要に応じてストアからトークンを読み込み、有効なトークンを返します
func (s *deferredTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base == nil {
		base, err := NewPersistentTokenSource(context.Background(), s.conf, s.repo)
		if err != nil {
			return nil, err
		}
		s.base = base
	}
	return s.base.Token()
}

// Token は有効なトークンを返します。リフレッシュが発生した場合はストアへ保存します
func (s *persistentTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("payroll: トークン更新失敗: %w", err)
	}

	if token.AccessToken != s.last {
		saved := &domain.OAuthToken{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenType:    token.TokenType,
			ExpiresAt:    token.Expiry.Unix(),
		}
		// 保存漏れは次回実行時の再認可につながるため失敗として扱う
		if err := s.repo.Save(context.Background(), saved); err != nil {
			return nil, fmt.Errorf("payroll: 更新トークン保存失敗: %w", err)
		}
		s.last = token.AccessToken
	}

	return token, nil
}
