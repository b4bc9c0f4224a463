package service

import (
	"context"
	"time"

	"attendance-bot/project/domain"
	"attendance-bot/project/dto"
)

// ChatPort はチャット（Slack）API 呼び出しのポートです
type ChatPort interface {
	// FetchMessages は [oldest, latest] のチャンネル履歴を時系列昇順で取得します。
	// ページングはポート実装側でカーソルがなくなるまで処理します
	FetchMessages(ctx context.Context, channelID string, oldest, latest time.Time) ([]domain.ChatMessage, error)

	// AddReaction はメッセージへ処理マーカー（リアクション）を付与します
	AddReaction(ctx context.Context, channelID, messageTS, name string) error

	// PostMessage はメッセージを投稿します。threadTS が空でなければスレッド返信
	PostMessage(ctx context.Context, channelID, threadTS, text string) error

	// PostScheduledMessage は指定時刻（Unix秒）の予約投稿を登録します
	PostScheduledMessage(ctx context.Context, channelID, text string, postAt int64) error

	// LookupEmailByUserID はチャットユーザーIDからメールアドレスを解決します。
	// キャッシュせず、実行ごとに都度呼び出します
	LookupEmailByUserID(ctx context.Context, userID string) (string, error)
}

// PayrollPort は勤怠プロバイダ API 呼び出しのポートです
type PayrollPort interface {
	// FindEmployeeByEmail はメールアドレスから従業員を検索します。
	// 一致しない場合は domain.ErrIdentity を返します
	FindEmployeeByEmail(ctx context.Context, email string) (*dto.Employee, error)

	// RegisterTimeClock は打刻を登録します
	RegisterTimeClock(ctx context.Context, employeeID int64, req dto.TimeClockRequest) (*dto.TimeClock, error)

	// GetWorkRecord は指定日の勤務記録を取得します
	GetWorkRecord(ctx context.Context, employeeID int64, date string) (*dto.WorkRecord, error)

	// UpdateWorkRecord は指定日の勤務記録を置き換えます
	UpdateWorkRecord(ctx context.Context, employeeID int64, date string, req dto.WorkRecordUpdateRequest) error
}

// SchedulerPort は定期トリガー登録のポートです。
// コアロジックは具体的なスケジューリング機構に依存しません
type SchedulerPort interface {
	// EnsureRecurring は cron 式の定期ジョブを登録します（既存なら上書き）
	EnsureRecurring(ctx context.Context, jobID, schedule, path string) error

	// Cancel は定期ジョブを削除します（存在しなければ成功扱い）
	Cancel(ctx context.Context, jobID string) error
}
