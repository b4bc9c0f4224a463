package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// CommandType はチャットメッセージから導出される勤怠コマンドの種別です
type CommandType string

const (
	// CommandClockIn は出勤（オフィス出勤として打刻）
	CommandClockIn CommandType = "clock_in"

	// CommandClockInAllDayRemote は終日リモート宣言付きの出勤、
	// またはすでに勤務中の場合は終日リモートへの切り替え
	CommandClockInAllDayRemote CommandType = "clock_in_all_day_remote"

	// CommandClockInOrSwitchOffice は出社（未出勤なら出勤打刻、リモート勤務中ならオフィスへ切り替え）
	CommandClockInOrSwitchOffice CommandType = "clock_in_or_switch_to_office"

	// CommandSwitchToRemote はリモート勤務への切り替え
	CommandSwitchToRemote CommandType = "switch_to_remote"

	// CommandClockOut は退勤
	CommandClockOut CommandType = "clock_out"

	// CommandBreakBegin は休憩開始
	CommandBreakBegin CommandType = "break_begin"

	// CommandBreakEnd は休憩終了
	CommandBreakEnd CommandType = "break_end"
)

// AllCommandTypes は全コマンド種別の一覧です（網羅性テストで使用）
var AllCommandTypes = []CommandType{
	CommandClockIn,
	CommandClockInAllDayRemote,
	CommandClockInOrSwitchOffice,
	CommandSwitchToRemote,
	CommandClockOut,
	CommandBreakBegin,
	CommandBreakEnd,
}

// コマンドごとのキーワード表。メッセージ全体がキーワードのいずれかに
// 一致した場合のみコマンドとして扱います（大文字小文字は区別）
var commandKeywords = []struct {
	command  CommandType
	keywords []string
}{
	// 判定は上から順。最初に一致したコマンドが採用されます
	{CommandClockIn, []string{"出勤", "しゅっきん", "業務開始"}},
	{CommandClockInAllDayRemote, []string{"終日リモート", "終日在宅", "全日リモート"}},
	{CommandClockInOrSwitchOffice, []string{"出社", "オフィス"}},
	{CommandSwitchToRemote, []string{"リモート", "在宅", "リモートワーク"}},
	{CommandClockOut, []string{"退勤", "退社", "業務終了"}},
	{CommandBreakBegin, []string{"休憩開始", "休憩入ります", "離席"}},
	{CommandBreakEnd, []string{"休憩終了", "休憩戻ります", "復帰"}},
}

// Classifier はメッセージ本文を勤怠コマンドに分類します。
// 副作用なし。どのキーワードにも一致しない場合は「コマンドなし」を返します
type Classifier struct {
	patterns []commandPattern
}

type commandPattern struct {
	command CommandType
	re      *regexp.Regexp
}

// NewClassifier は分類器を作成します。
// allowSuffix が真の場合、キーワードの直後に最大4文字の任意文字列を許容します
// （外部連携Botがメッセージ末尾にサフィックスを自動付与する構成向け）
func NewClassifier(allowSuffix bool) *Classifier {
	trailing := ""
	if allowSuffix {
		trailing = ".{0,4}"
	}

	patterns := make([]commandPattern, 0, len(commandKeywords))
	for _, entry := range commandKeywords {
		quoted := make([]string, 0, len(entry.keywords))
		for _, kw := range entry.keywords {
			quoted = append(quoted, regexp.QuoteMeta(kw))
		}
		expr := fmt.Sprintf(`^\s*(?:%s)%s\s*$`, strings.Join(quoted, "|"), trailing)
		patterns = append(patterns, commandPattern{
			command: entry.command,
			re:      regexp.MustCompile(expr),
		})
	}

	return &Classifier{patterns: patterns}
}

// Classify はメッセージ本文を分類し、一致したコマンド種別を返します。
// 一致しない場合は ok=false（エラーではない）
func (c *Classifier) Classify(text string) (CommandType, bool) {
	for _, p := range c.patterns {
		if p.re.MatchString(text) {
			return p.command, true
		}
	}
	return "", false
}
