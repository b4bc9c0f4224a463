package domain

import "errors"

// ドメインエラー定義
var (
	// ErrNotFound は要求されたリソースが見つからない場合のエラー
	ErrNotFound = errors.New("ドメイン: リソースが見つかりません")

	// ErrBreakPlacement は法定休憩の不足分を勤務時間内に配置できない場合のエラー。
	// 推測で埋めずにエラーとして表面化させます
	ErrBreakPlacement = errors.New("ドメイン: 休憩時間を配置できません")

	// ErrIdentity はチャットユーザーから従業員を解決できない場合のエラー
	ErrIdentity = errors.New("ドメイン: 従業員を特定できません")
)
