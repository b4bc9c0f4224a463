package domain

import (
	"fmt"
	"time"
)

// 労働基準法由来の休憩付与基準。
// 6時間半（390分）以上8時間未満の労働には45分、8時間以上には60分の休憩が必要
const (
	breakThresholdShort = 390 * time.Minute
	breakThresholdLong  = 480 * time.Minute
	breakRequiredShort  = 45 * time.Minute
	breakRequiredLong   = 60 * time.Minute
)

// 休憩がない場合の挿入位置。勤務時間帯が13時をまたぐなら13時開始、
// またがないなら出勤1時間後に置きます
const (
	defaultBreakAnchorHour     = 13
	defaultBreakOffsetIntoWork = time.Hour
)

// BreakPeriod は勤務記録上の1回分の休憩区間です
type BreakPeriod struct {
	Start time.Time
	End   time.Time
}

// Duration は休憩区間の長さを返します
func (b BreakPeriod) Duration() time.Duration {
	return b.End.Sub(b.Start)
}

// RequiredAdditionalBreak は当日の出退勤時刻と既存休憩から、
// 追加で記録すべき休憩時間を計算します。不足がなければ 0 を返します
func RequiredAdditionalBreak(clockIn, clockOut time.Time, breaks []BreakPeriod) time.Duration {
	work := clockOut.Sub(clockIn)
	var taken time.Duration
	for _, b := range breaks {
		taken += b.Duration()
	}

	switch {
	case work >= breakThresholdLong && taken < breakRequiredLong:
		return breakRequiredLong - taken
	case work >= breakThresholdShort && work < breakThresholdLong && taken < breakRequiredShort:
		return breakRequiredShort - taken
	}
	return 0
}

// PlaceAdditionalBreak は不足分 owed を記録するための休憩区間を合成します。
// breaks は開始時刻昇順であること。どこにも収まらない場合は
// ErrBreakPlacement を返します（黙って無視せず呼び出し側へ委ねます）
func PlaceAdditionalBreak(clockIn, clockOut time.Time, breaks []BreakPeriod, owed time.Duration) (BreakPeriod, error) {
	if len(breaks) == 0 {
		anchor := time.Date(clockIn.Year(), clockIn.Month(), clockIn.Day(),
			defaultBreakAnchorHour, 0, 0, 0, clockIn.Location())
		start := clockIn.Add(defaultBreakOffsetIntoWork)
		if clockIn.Before(anchor) && clockOut.After(anchor) {
			start = anchor
		}
		return BreakPeriod{Start: start, End: start.Add(owed)}, nil
	}

	// 既存休憩がある場合は末尾の直後に追記、収まらなければ先頭の直前に前置
	last := breaks[len(breaks)-1]
	if !last.End.Add(owed).After(clockOut) {
		return BreakPeriod{Start: last.End, End: last.End.Add(owed)}, nil
	}

	first := breaks[0]
	if !first.Start.Add(-owed).Before(clockIn) {
		return BreakPeriod{Start: first.Start.Add(-owed), End: first.Start}, nil
	}

	return BreakPeriod{}, fmt.Errorf(
		"%w: 追加休憩%v分を配置できません (出勤=%s 退勤=%s 既存休憩=%d件)",
		ErrBreakPlacement, owed.Minutes(), clockIn.Format("15:04"), clockOut.Format("15:04"), len(breaks))
}
