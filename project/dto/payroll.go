package dto

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// 勤怠APIの打刻種別
const (
	TimeClockTypeClockIn    = "clock_in"
	TimeClockTypeBreakBegin = "break_begin"
	TimeClockTypeBreakEnd   = "break_end"
	TimeClockTypeClockOut   = "clock_out"
)

// 勤務記録メモの上限（API側スキーマ制約）
const WorkRecordNoteMaxLength = 255

var (
	baseDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	datetimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}(:\d{2})?$`)

	validTimeClockTypes = map[string]bool{
		TimeClockTypeClockIn:    true,
		TimeClockTypeBreakBegin: true,
		TimeClockTypeBreakEnd:   true,
		TimeClockTypeClockOut:   true,
	}
)

// TimeClockRequest は打刻登録リクエスト
// POST /employees/{id}/time_clocks のボディです
type TimeClockRequest struct {
	CompanyID int64  `json:"company_id"`
	Type      string `json:"type"`
	BaseDate  string `json:"base_date"` // YYYY-MM-DD
	Datetime  string `json:"datetime"`  // YYYY-MM-DD HH:mm[:ss]
}

// Validate は打刻リクエストを固定スキーマに対して検証します
func (r TimeClockRequest) Validate() error {
	if r.CompanyID <= 0 {
		return fmt.Errorf("timeclock: company_idが不正です: %d", r.CompanyID)
	}
	if !validTimeClockTypes[r.Type] {
		return fmt.Errorf("timeclock: 打刻種別が不正です: %q", r.Type)
	}
	if !baseDateRe.MatchString(r.BaseDate) {
		return fmt.Errorf("timeclock: base_dateの形式が不正です: %q", r.BaseDate)
	}
	if !datetimeRe.MatchString(r.Datetime) {
		return fmt.Errorf("timeclock: datetimeの形式が不正です: %q", r.Datetime)
	}
	return nil
}

// TimeClock は登録済み打刻です。レスポンスの日時はオフセット付きISO-8601
type TimeClock struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Datetime string `json:"datetime"`
}

// TimeClockResponse は打刻登録レスポンスの外側の封筒です
type TimeClockResponse struct {
	EmployeeTimeClock TimeClock `json:"employee_time_clock"`
}

// WorkRecordBreak は勤務記録上の1回分の休憩です
type WorkRecordBreak struct {
	ClockInAt  string `json:"clock_in_at"`
	ClockOutAt string `json:"clock_out_at"`
}

// WorkRecord は従業員×日付ごとの勤務記録です。
// clock/break/note 以外の集計項目はAPI側の計算値で、この系からは読み取り専用
type WorkRecord struct {
	Date              string            `json:"date"`
	ClockInAt         string            `json:"clock_in_at"`
	ClockOutAt        string            `json:"clock_out_at"`
	Note              string            `json:"note"`
	BreakRecords      []WorkRecordBreak `json:"break_records"`
	TotalWorkMins     int               `json:"total_work_mins"`
	TotalBreakMins    int               `json:"total_break_mins"`
	TotalOvertimeMins int               `json:"total_overtime_mins"`
}

// WorkRecordUpdateRequest は勤務記録の置き換えリクエスト
// PUT /employees/{id}/work_records/{date} のボディです
type WorkRecordUpdateRequest struct {
	CompanyID    int64             `json:"company_id"`
	ClockInAt    string            `json:"clock_in_at"`
	ClockOutAt   string            `json:"clock_out_at"`
	Note         string            `json:"note"`
	BreakRecords []WorkRecordBreak `json:"break_records"`
}

// Validate は勤務記録更新リクエストを検証します
func (r WorkRecordUpdateRequest) Validate() error {
	if r.CompanyID <= 0 {
		return fmt.Errorf("workrecord: company_idが不正です: %d", r.CompanyID)
	}
	if n := utf8.RuneCountInString(r.Note); n > WorkRecordNoteMaxLength {
		return fmt.Errorf("workrecord: メモが%d文字を超えています (%d文字)", WorkRecordNoteMaxLength, n)
	}
	for i, b := range r.BreakRecords {
		if !datetimeRe.MatchString(b.ClockInAt) || !datetimeRe.MatchString(b.ClockOutAt) {
			return fmt.Errorf("workrecord: break_records[%d]の日時形式が不正です", i)
		}
	}
	return nil
}

// Employee は勤怠プロバイダ側の従業員です
type Employee struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// EmployeesResponse は従業員一覧レスポンスです
type EmployeesResponse struct {
	Employees []Employee `json:"employees"`
}
