package service

// SweepReport は日次スイープ1回分の実行結果です
type SweepReport struct {
	// ForcedClockOuts は自動退勤処理されたチャットユーザーIDの一覧
	ForcedClockOuts []string

	// Failures はユーザー単位の失敗の集約。
	// 個々の失敗は他ユーザーの処理を中断しません
	Failures []SweepFailure
}

// SweepFailure はスイープ中のユーザー単位の失敗です
type SweepFailure struct {
	// ChannelID は処理対象だったチャンネルのID
	ChannelID string

	// UserID は処理に失敗したチャットユーザーのID
	UserID string

	// Err は失敗の原因
	Err error
}
