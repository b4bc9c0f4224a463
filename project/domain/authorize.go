package domain

// ActionType は勤怠APIへ送信する作業単位です
type ActionType string

const (
	// ActionClockIn は出勤打刻
	ActionClockIn ActionType = "clock_in"

	// ActionClockOut は退勤打刻
	ActionClockOut ActionType = "clock_out"

	// ActionClockOutAndAddRemoteMemo は退勤打刻＋勤務記録へのリモートメモ追記
	ActionClockOutAndAddRemoteMemo ActionType = "clock_out_and_add_remote_memo"

	// ActionSwitchToOffice はオフィス勤務への切り替え（打刻なし、場所のみ）
	ActionSwitchToOffice ActionType = "switch_to_office"

	// ActionSwitchToRemote はリモート勤務への切り替え（打刻なし、場所のみ）
	ActionSwitchToRemote ActionType = "switch_to_remote"

	// ActionBreakBegin は休憩開始打刻
	ActionBreakBegin ActionType = "break_begin"

	// ActionBreakEnd は休憩終了打刻
	ActionBreakEnd ActionType = "break_end"
)

// RejectReason は不正な状態遷移の拒否理由です
type RejectReason string

const (
	RejectAlreadyAtOffice   RejectReason = "already_at_office"
	RejectAlreadyRemote     RejectReason = "already_remote"
	RejectAlreadyClockedIn  RejectReason = "already_clocked_in"
	RejectAlreadyClockedOut RejectReason = "already_clocked_out"
	RejectOnBreak           RejectReason = "on_break"
	RejectNotOnBreak        RejectReason = "not_on_break"
	RejectNotClockedIn      RejectReason = "not_clocked_in"
)

// Rejection は認可拒否です。Reason はユーザー向けメッセージの選択に使われ、
// 黙殺されることはありません
type Rejection struct {
	Reason RejectReason
}

// Decision は認可結果です。実行すべきアクションと遷移後のステータスを持ちます
type Decision struct {
	Action ActionType
	Next   *WorkStatus
}

// Authorize は（現在ステータス, コマンド）の組に対して許可アクションまたは
// 拒否を返します。全組み合わせについて結果が定義されており（網羅的）、
// 未定義のフォールスルーはありません。current が nil の場合は
// 「ステータスなし」（認可上は退勤済み相当、メッセージは区別）として扱います
func Authorize(current *WorkStatus, command CommandType) (*Decision, *Rejection) {
	if current == nil {
		return authorizeInitial(command)
	}

	switch current.Kind {
	case StatusWorkingAtOffice:
		return authorizeAtOffice(current, command)
	case StatusWorkingRemotely:
		return authorizeRemote(current, command)
	case StatusOnBreak:
		return authorizeOnBreak(current, command)
	case StatusClockedOut:
		return authorizeClockedOut(current, command)
	}

	// 未知のステータス種別はここに来ない。来た場合は退勤済みと同じ扱い
	return nil, &Rejection{Reason: RejectAlreadyClockedOut}
}

// authorizeInitial は当日最初のコマンドを認可します
func authorizeInitial(command CommandType) (*Decision, *Rejection) {
	switch command {
	case CommandClockIn, CommandClockInOrSwitchOffice:
		return decide(ActionClockIn, nil, command, StatusWorkingAtOffice, "")
	case CommandClockInAllDayRemote, CommandSwitchToRemote:
		return decide(ActionClockIn, nil, command, StatusWorkingRemotely, "")
	case CommandClockOut:
		return decide(ActionClockOut, nil, command, StatusClockedOut, "")
	case CommandBreakBegin, CommandBreakEnd:
		return nil, &Rejection{Reason: RejectNotClockedIn}
	}
	return nil, &Rejection{Reason: RejectNotClockedIn}
}

func authorizeAtOffice(current *WorkStatus, command CommandType) (*Decision, *Rejection) {
	switch command {
	case CommandClockIn, CommandClockInOrSwitchOffice:
		return nil, &Rejection{Reason: RejectAlreadyAtOffice}
	case CommandClockInAllDayRemote, CommandSwitchToRemote:
		return decide(ActionSwitchToRemote, current, command, StatusWorkingRemotely, "")
	case CommandClockOut:
		return decide(ActionClockOut, current, command, StatusClockedOut, "")
	case CommandBreakBegin:
		return decide(ActionBreakBegin, current, command, StatusOnBreak, StatusWorkingAtOffice)
	case CommandBreakEnd:
		return nil, &Rejection{Reason: RejectNotOnBreak}
	}
	return nil, &Rejection{Reason: RejectAlreadyAtOffice}
}

func authorizeRemote(current *WorkStatus, command CommandType) (*Decision, *Rejection) {
	switch command {
	case CommandClockIn:
		return nil, &Rejection{Reason: RejectAlreadyClockedIn}
	case CommandClockInOrSwitchOffice:
		return decide(ActionSwitchToOffice, current, command, StatusWorkingAtOffice, "")
	case CommandClockInAllDayRemote:
		if current.NeedsCommuteExpense {
			// 通勤費精算が残っている状態での終日リモート宣言はフラグを落とす
			return decide(ActionSwitchToRemote, current, command, StatusWorkingRemotely, "")
		}
		return nil, &Rejection{Reason: RejectAlreadyRemote}
	case CommandSwitchToRemote:
		return nil, &Rejection{Reason: RejectAlreadyRemote}
	case CommandClockOut:
		if current.NeedsCommuteExpense {
			return decide(ActionClockOutAndAddRemoteMemo, current, command, StatusClockedOut, "")
		}
		return decide(ActionClockOut, current, command, StatusClockedOut, "")
	case CommandBreakBegin:
		return decide(ActionBreakBegin, current, command, StatusOnBreak, StatusWorkingRemotely)
	case CommandBreakEnd:
		return nil, &Rejection{Reason: RejectNotOnBreak}
	}
	return nil, &Rejection{Reason: RejectAlreadyRemote}
}

func authorizeOnBreak(current *WorkStatus, command CommandType) (*Decision, *Rejection) {
	if command == CommandBreakEnd {
		// 休憩前のステータスへ復帰
		return decide(ActionBreakEnd, current, command, current.resume, "")
	}
	// 休憩中は休憩終了以外をすべて拒否
	return nil, &Rejection{Reason: RejectOnBreak}
}

func authorizeClockedOut(current *WorkStatus, command CommandType) (*Decision, *Rejection) {
	if command == CommandClockOut {
		// 再退勤は冪等に許可。重複打刻の裁定は勤怠API側に委ねます
		return decide(ActionClockOut, current, command, StatusClockedOut, "")
	}
	return nil, &Rejection{Reason: RejectAlreadyClockedOut}
}

// decide は遷移後ステータスを組み立てて Decision を返します
func decide(action ActionType, current *WorkStatus, command CommandType, next StatusKind, resume StatusKind) (*Decision, *Rejection) {
	var history []CommandType
	if current != nil {
		history = current.Commands
	}
	commands := make([]CommandType, 0, len(history)+1)
	commands = append(commands, history...)
	commands = append(commands, command)

	status := &WorkStatus{
		Kind:                next,
		NeedsCommuteExpense: NeedsCommuteExpense(commands),
		Commands:            commands,
		resume:              resume,
	}
	return &Decision{Action: action, Next: status}, nil
}
