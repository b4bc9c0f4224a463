package domain

// StatusKind は勤務ステータスの種別です
type StatusKind string

const (
	// StatusWorkingAtOffice はオフィス勤務中
	StatusWorkingAtOffice StatusKind = "working_at_office"

	// StatusWorkingRemotely はリモート勤務中
	StatusWorkingRemotely StatusKind = "working_remotely"

	// StatusOnBreak は休憩中
	StatusOnBreak StatusKind = "on_break"

	// StatusClockedOut は退勤済み
	StatusClockedOut StatusKind = "clocked_out"
)

// AllStatusKinds は全ステータス種別の一覧です（網羅性テストで使用）
var AllStatusKinds = []StatusKind{
	StatusWorkingAtOffice,
	StatusWorkingRemotely,
	StatusOnBreak,
	StatusClockedOut,
}

// WorkStatus はあるユーザーの当日の勤務ステータスです。
// 処理済みコマンド列の純粋な畳み込み結果であり、永続化されません。
// 実行のたびにメッセージ履歴から再導出されます（冪等性の担保）
type WorkStatus struct {
	// Kind は現在のステータス種別
	Kind StatusKind

	// NeedsCommuteExpense は当日の通勤費精算が必要かどうか
	NeedsCommuteExpense bool

	// Commands は当日ここまでに処理されたコマンド列（追記のみ）
	Commands []CommandType

	// resume は休憩明けに復帰するステータス種別（ON_BREAK のときのみ有効）
	resume StatusKind
}

// NeedsCommuteExpense はコマンド履歴から通勤費精算要否を導出します。
// 履歴中で最後の終日リモート宣言が最後の出社コマンド以降にある場合のみ不要。
// 終日リモート宣言がなければ常に必要です
func NeedsCommuteExpense(commands []CommandType) bool {
	lastRemote, lastOffice := -1, -1
	for i, c := range commands {
		switch c {
		case CommandClockInAllDayRemote:
			lastRemote = i
		case CommandClockIn, CommandClockInOrSwitchOffice:
			lastOffice = i
		}
	}
	if lastRemote == -1 {
		return true
	}
	return lastOffice > lastRemote
}

// Advance は現在ステータスにコマンドを1つ適用した次のステータスを返します。
// 不正な遷移（処理済み履歴には本来現れない）はステータスを変えずに読み飛ばします
func Advance(current *WorkStatus, command CommandType) *WorkStatus {
	decision, rejection := Authorize(current, command)
	if rejection != nil {
		return current
	}
	return decision.Next
}

// FoldStatus は時系列順のコマンド列を畳み込んで現在ステータスを導出します。
// コマンドが1つもない場合は nil（「ステータスなし」）を返します
func FoldStatus(commands []CommandType) *WorkStatus {
	var status *WorkStatus
	for _, c := range commands {
		status = Advance(status, c)
	}
	return status
}
