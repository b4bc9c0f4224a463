package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"attendance-bot/project/domain"
	"attendance-bot/project/dto"
	"attendance-bot/project/infrastructure/i18n"

	"go.uber.org/zap"
)

// RunDailySweep は前日分の勤怠を締めます。
// 退勤していないユーザーを強制退勤させ、リモート勤務者の勤務記録を補正し、
// 自動退勤の対象者をチャンネルごとにまとめて通知します
func (s *attendanceService) RunDailySweep(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}

	for _, channelID := range s.cfg.ChannelIDs {
		if err := s.sweepChannel(ctx, channelID, report); err != nil {
			// チャンネル単位の失敗（履歴取得など）も集約し、他チャンネルは継続
			report.Failures = append(report.Failures, SweepFailure{
				ChannelID: channelID,
				Err:       err,
			})
			s.logger.Error("スイープ対象チャンネル処理失敗",
				zap.String("channel", channelID), zap.Error(err))
		}
	}

	s.logger.Info("日次スイープ完了",
		zap.Int("forced_clock_outs", len(report.ForcedClockOuts)),
		zap.Int("failures", len(report.Failures)))

	return report, nil
}

// sweepChannel は1チャンネル分の前日勤怠を締めます
func (s *attendanceService) sweepChannel(ctx context.Context, channelID string, report *SweepReport) error {
	now := s.now().In(s.cfg.Location)
	dayEnd := domain.WorkdayStart(now, s.cfg.DayStartHour)
	dayStart := dayEnd.AddDate(0, 0, -1)
	baseDate := dayStart.Format(time.DateOnly)

	messages, err := s.chat.FetchMessages(ctx, channelID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("sweepChannel: メッセージ取得失敗: %w", err)
	}

	// 前日の処理済みメッセージからユーザーごとの最終ステータスを再導出
	categorized := domain.Categorize(messages)
	commands := make(map[string][]domain.CommandType)
	order := make([]string, 0)
	for _, m := range categorized.Processed {
		command, ok := s.classifier.Classify(m.Text)
		if !ok {
			continue
		}
		if _, seen := commands[m.UserID]; !seen {
			order = append(order, m.UserID)
		}
		commands[m.UserID] = append(commands[m.UserID], command)
	}

	forced := make([]string, 0)
	for _, userID := range order {
		status := domain.FoldStatus(commands[userID])
		if status == nil || status.Kind == domain.StatusClockedOut {
			continue
		}

		if err := s.forceClockOut(ctx, userID, status, baseDate, now); err != nil {
			report.Failures = append(report.Failures, SweepFailure{
				ChannelID: channelID,
				UserID:    userID,
				Err:       err,
			})
			s.logger.Warn("強制退勤処理失敗",
				zap.String("channel", channelID),
				zap.String("user", userID),
				zap.Error(err))
			continue
		}
		forced = append(forced, userID)
	}

	report.ForcedClockOuts = append(report.ForcedClockOuts, forced...)

	if len(forced) > 0 {
		if err := s.postSweepSummary(ctx, channelID, forced, now); err != nil {
			report.Failures = append(report.Failures, SweepFailure{
				ChannelID: channelID,
				Err:       err,
			})
		}
	}

	return nil
}

// forceClockOut は退勤漏れユーザーを強制退勤させます。
// リモート勤務のまま終わっていた場合は勤務記録へ注記と不足休憩も反映します
func (s *attendanceService) forceClockOut(
	ctx context.Context,
	userID string,
	status *domain.WorkStatus,
	baseDate string,
	at time.Time,
) error {
	employee, err := s.resolveEmployee(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.punch(ctx, employee.ID, dto.TimeClockTypeClockOut, baseDate, at); err != nil {
		return err
	}

	if status.Kind != domain.StatusWorkingRemotely {
		return nil
	}
	return s.patchRemoteRecord(ctx, employee.ID, baseDate)
}

// patchRemoteRecord は強制退勤後の勤務記録へリモート注記と不足休憩を反映します
func (s *attendanceService) patchRemoteRecord(ctx context.Context, employeeID int64, date string) error {
	record, err := s.payroll.GetWorkRecord(ctx, employeeID, date)
	if err != nil {
		return err
	}

	clockIn, clockOut, breaks, err := s.parseRecordInterval(record)
	if err != nil {
		return err
	}

	var extra *domain.BreakPeriod
	if owed := domain.RequiredAdditionalBreak(clockIn, clockOut, breaks); owed > 0 {
		placed, err := domain.PlaceAdditionalBreak(clockIn, clockOut, breaks, owed)
		if err != nil {
			// 配置できない場合は記録全体を添えて報告し、推測で埋めない
			return fmt.Errorf("patchRemoteRecord: %w (記録: 出勤=%s 退勤=%s 休憩=%d件)",
				err, record.ClockInAt, record.ClockOutAt, len(record.BreakRecords))
		}
		extra = &placed
	}

	update, err := s.buildRecordUpdate(record, extra)
	if err != nil {
		return err
	}
	return s.payroll.UpdateWorkRecord(ctx, employeeID, date, update)
}

// parseRecordInterval は勤務記録の出退勤時刻と休憩区間をローカル時刻で返します
func (s *attendanceService) parseRecordInterval(record *dto.WorkRecord) (time.Time, time.Time, []domain.BreakPeriod, error) {
	clockIn, err := parsePayrollTime(record.ClockInAt, s.cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("parseRecordInterval: 出勤時刻解析失敗: %w", err)
	}
	clockOut, err := parsePayrollTime(record.ClockOutAt, s.cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, nil, fmt.Errorf("parseRecordInterval: 退勤時刻解析失敗: %w", err)
	}

	breaks := make([]domain.BreakPeriod, 0, len(record.BreakRecords))
	for _, b := range record.BreakRecords {
		begin, err := parsePayrollTime(b.ClockInAt, s.cfg.Location)
		if err != nil {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("parseRecordInterval: 休憩時刻解析失敗: %w", err)
		}
		end, err := parsePayrollTime(b.ClockOutAt, s.cfg.Location)
		if err != nil {
			return time.Time{}, time.Time{}, nil, fmt.Errorf("parseRecordInterval: 休憩時刻解析失敗: %w", err)
		}
		breaks = append(breaks, domain.BreakPeriod{Start: begin, End: end})
	}
	return clockIn, clockOut, breaks, nil
}

// postSweepSummary は自動退勤の対象者一覧を当日9時（設定値）に予約投稿します。
// すでに9時を過ぎている場合は即時投稿します
func (s *attendanceService) postSweepSummary(ctx context.Context, channelID string, userIDs []string, now time.Time) error {
	mentions := make([]string, len(userIDs))
	for i, id := range userIDs {
		mentions[i] = fmt.Sprintf("<@%s>", id)
	}
	text := i18n.T("sweep.summary", map[string]any{
		"Users": strings.Join(mentions, " "),
	})

	postAt := time.Date(now.Year(), now.Month(), now.Day(),
		s.cfg.SweepSummaryHour, 0, 0, 0, s.cfg.Location)
	if !now.Before(postAt) {
		return s.chat.PostMessage(ctx, channelID, "", text)
	}
	return s.chat.PostScheduledMessage(ctx, channelID, text, postAt.Unix())
}
