package domain

import (
	"time"
)

// Bot が付与するリアクション（処理マーカー）
const (
	// ReactionTimeRecorded は打刻完了マーカー
	ReactionTimeRecorded = "white_check_mark"

	// ReactionRemoteMemo はリモートメモ追記完了マーカー
	ReactionRemoteMemo = "memo"

	// ReactionLocationSwitch は勤務場所切り替え完了マーカー
	ReactionLocationSwitch = "round_pushpin"

	// ReactionError は処理エラーマーカー。
	// このマーカーが付いたメッセージは以後の処理対象から除外されます
	ReactionError = "warning"
)

// doneReactions は「処理済み」と判定されるマーカーの集合です
var doneReactions = map[string]bool{
	ReactionTimeRecorded:   true,
	ReactionRemoteMemo:     true,
	ReactionLocationSwitch: true,
}

// ChatMessage はチャット履歴から取得した単一メッセージです。取得後は不変
type ChatMessage struct {
	// UserID は投稿者のチャットユーザーID
	UserID string

	// Text はメッセージ本文
	Text string

	// Timestamp はメッセージの一意タイムスタンプ（Slack の ts 形式）
	Timestamp string

	// Time は Timestamp をパースした投稿時刻
	Time time.Time

	// BotReactions は Bot アカウントが付与したリアクション名の集合
	BotReactions []string
}

// hasReaction は Bot が指定リアクションを付与済みかを返します
func (m ChatMessage) hasReaction(name string) bool {
	for _, r := range m.BotReactions {
		if r == name {
			return true
		}
	}
	return false
}

// Processed は処理済みマーカーのいずれかが付いているかを返します
func (m ChatMessage) Processed() bool {
	for _, r := range m.BotReactions {
		if doneReactions[r] {
			return true
		}
	}
	return false
}

// CategorizedMessages はメッセージを処理済み／未処理に分けた結果です
type CategorizedMessages struct {
	Processed   []ChatMessage
	Unprocessed []ChatMessage
}

// Categorize は時系列順のメッセージ一覧を処理済み／未処理に分割します。
// エラーマーカーが付いたメッセージはどちらにも含めません
func Categorize(messages []ChatMessage) CategorizedMessages {
	var result CategorizedMessages
	for _, m := range messages {
		if m.hasReaction(ReactionError) {
			continue
		}
		if m.Processed() {
			result.Processed = append(result.Processed, m)
		} else {
			result.Unprocessed = append(result.Unprocessed, m)
		}
	}
	return result
}

// WorkdayStart は基準時刻に対する「勤務日」の開始時刻を返します。
// 基準時刻のローカル時が startHour 以上ならその日の startHour:00、
// 未満なら前日の startHour:00 が境界です（深夜勤務の日またぎ対策）
func WorkdayStart(ref time.Time, startHour int) time.Time {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), startHour, 0, 0, 0, ref.Location())
	if ref.Hour() < startHour {
		day = day.AddDate(0, 0, -1)
	}
	return day
}
