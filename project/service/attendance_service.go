package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"attendance-bot/project/domain"
	"attendance-bot/project/dto"
	"attendance-bot/project/infrastructure/config"
	"attendance-bot/project/infrastructure/i18n"

	"go.uber.org/zap"
)

// AttendanceService は勤怠メッセージの監視と勤怠APIへの同期を管理するサービスです
type AttendanceService interface {
	// RunTimeRecording は5分おきの定期実行で呼ばれ、監視対象チャンネルの
	// 未処理メッセージを打刻へ変換します
	RunTimeRecording(ctx context.Context) error

	// RunDailySweep は日次の定期実行で呼ばれ、前日分の退勤漏れを強制打刻し、
	// リモート勤務者の勤務記録を補正します
	RunDailySweep(ctx context.Context) (*SweepReport, error)
}

// attendanceService は AttendanceService の実装です
type attendanceService struct {
	cfg        *config.Config
	chat       ChatPort
	payroll    PayrollPort
	classifier *domain.Classifier
	logger     *zap.Logger
	now        func() time.Time // テストで差し替え
}

// NewAttendanceService は AttendanceService のインスタンスを作成します
func NewAttendanceService(
	cfg *config.Config,
	chat ChatPort,
	payroll PayrollPort,
	logger *zap.Logger,
) AttendanceService {
	return &attendanceService{
		cfg:        cfg,
		chat:       chat,
		payroll:    payroll,
		classifier: domain.NewClassifier(cfg.AllowCommandSuffix),
		logger:     logger,
		now:        time.Now,
	}
}

// RunTimeRecording は監視対象チャンネルを順に処理します。
// チャンネル単位の失敗はログに残して次のチャンネルへ進みます
func (s *attendanceService) RunTimeRecording(ctx context.Context) error {
	for _, channelID := range s.cfg.ChannelIDs {
		if err := s.processChannel(ctx, channelID); err != nil {
			s.logger.Error("チャンネル処理失敗",
				zap.String("channel", channelID), zap.Error(err))
		}
	}
	return nil
}

// processChannel は1チャンネル分の勤怠メッセージを処理します。
// 勤務ステータスは毎回メッセージ履歴から再導出します（冪等性の担保）
func (s *attendanceService) processChannel(ctx context.Context, channelID string) error {
	now := s.now().In(s.cfg.Location)
	oldest := domain.WorkdayStart(now, s.cfg.DayStartHour)

	messages, err := s.chat.FetchMessages(ctx, channelID, oldest, now)
	if err != nil {
		return fmt.Errorf("processChannel: メッセージ取得失敗: %w", err)
	}

	categorized := domain.Categorize(messages)

	// 処理済みメッセージをユーザーごとに畳み込み、当日の現在ステータスを再構成
	statuses := make(map[string]*domain.WorkStatus)
	for _, m := range categorized.Processed {
		command, ok := s.classifier.Classify(m.Text)
		if !ok {
			continue
		}
		statuses[m.UserID] = domain.Advance(statuses[m.UserID], command)
	}

	// 未処理メッセージを時系列順に処理。失敗はメッセージ単位で報告し、
	// 同一実行内の他メッセージの処理は続行します
	for _, m := range categorized.Unprocessed {
		command, ok := s.classifier.Classify(m.Text)
		if !ok {
			// コマンドに一致しないメッセージはエラーではなく対象外
			continue
		}

		if err := s.handleCommand(ctx, channelID, m, command, statuses); err != nil {
			s.reportFailure(ctx, channelID, m, err)
		}
	}

	return nil
}

// handleCommand は1メッセージ分のコマンドを認可・実行し、完了マーカーを付与します
func (s *attendanceService) handleCommand(
	ctx context.Context,
	channelID string,
	m domain.ChatMessage,
	command domain.CommandType,
	statuses map[string]*domain.WorkStatus,
) error {
	decision, rejection := domain.Authorize(statuses[m.UserID], command)
	if rejection != nil {
		return &rejectionError{reason: rejection.Reason}
	}

	employee, err := s.resolveEmployee(ctx, m.UserID)
	if err != nil {
		return err
	}

	if err := s.executeAction(ctx, employee.ID, decision.Action, m.Time); err != nil {
		return err
	}

	for _, reaction := range reactionsFor(decision.Action) {
		if err := s.chat.AddReaction(ctx, channelID, m.Timestamp, reaction); err != nil {
			return err
		}
	}

	// 同一実行内の後続メッセージが遷移後のステータスを参照できるよう更新
	statuses[m.UserID] = decision.Next

	s.logger.Info("勤怠コマンド処理完了",
		zap.String("channel", channelID),
		zap.String("user", m.UserID),
		zap.String("command", string(command)),
		zap.String("action", string(decision.Action)))

	return nil
}

// resolveEmployee はチャットユーザーIDから勤怠プロバイダの従業員を解決します。
// チャットID → メールアドレス → 従業員ID の2段階で、キャッシュしません
func (s *attendanceService) resolveEmployee(ctx context.Context, userID string) (*dto.Employee, error) {
	email, err := s.chat.LookupEmailByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.payroll.FindEmployeeByEmail(ctx, email)
}

// executeAction は認可済みアクションを勤怠APIへ反映します
func (s *attendanceService) executeAction(ctx context.Context, employeeID int64, action domain.ActionType, at time.Time) error {
	local := at.In(s.cfg.Location)
	baseDate := domain.WorkdayStart(local, s.cfg.DayStartHour).Format(time.DateOnly)

	switch action {
	case domain.ActionClockIn:
		return s.punch(ctx, employeeID, dto.TimeClockTypeClockIn, baseDate, local)
	case domain.ActionClockOut:
		return s.punch(ctx, employeeID, dto.TimeClockTypeClockOut, baseDate, local)
	case domain.ActionBreakBegin:
		return s.punch(ctx, employeeID, dto.TimeClockTypeBreakBegin, baseDate, local)
	case domain.ActionBreakEnd:
		return s.punch(ctx, employeeID, dto.TimeClockTypeBreakEnd, baseDate, local)
	case domain.ActionClockOutAndAddRemoteMemo:
		if err := s.punch(ctx, employeeID, dto.TimeClockTypeClockOut, baseDate, local); err != nil {
			return err
		}
		return s.appendRemoteNote(ctx, employeeID, baseDate, nil)
	case domain.ActionSwitchToOffice, domain.ActionSwitchToRemote:
		// 勤務場所の切り替えは打刻を伴わない（勤怠API側に場所の概念がない）
		return nil
	}

	return fmt.Errorf("executeAction: 未知のアクションです: %s", action)
}

// punch は1回分の打刻を登録します
func (s *attendanceService) punch(ctx context.Context, employeeID int64, clockType, baseDate string, at time.Time) error {
	_, err := s.payroll.RegisterTimeClock(ctx, employeeID, dto.TimeClockRequest{
		CompanyID: s.cfg.PayrollCompanyID,
		Type:      clockType,
		BaseDate:  baseDate,
		Datetime:  at.Format(payrollDatetimeLayout),
	})
	return err
}

// appendRemoteNote は勤務記録のメモへリモート勤務の注記を追記します。
// extraBreak が非nilの場合は合成した追加休憩も同時に記録します
func (s *attendanceService) appendRemoteNote(ctx context.Context, employeeID int64, date string, extraBreak *domain.BreakPeriod) error {
	record, err := s.payroll.GetWorkRecord(ctx, employeeID, date)
	if err != nil {
		return err
	}

	update, err := s.buildRecordUpdate(record, extraBreak)
	if err != nil {
		return err
	}

	return s.payroll.UpdateWorkRecord(ctx, employeeID, date, update)
}

// buildRecordUpdate は取得済み勤務記録から更新リクエストを組み立てます
func (s *attendanceService) buildRecordUpdate(record *dto.WorkRecord, extraBreak *domain.BreakPeriod) (dto.WorkRecordUpdateRequest, error) {
	clockIn, err := parsePayrollTime(record.ClockInAt, s.cfg.Location)
	if err != nil {
		return dto.WorkRecordUpdateRequest{}, fmt.Errorf("buildRecordUpdate: 出勤時刻解析失敗: %w", err)
	}
	clockOut, err := parsePayrollTime(record.ClockOutAt, s.cfg.Location)
	if err != nil {
		return dto.WorkRecordUpdateRequest{}, fmt.Errorf("buildRecordUpdate: 退勤時刻解析失敗: %w", err)
	}

	breaks := make([]dto.WorkRecordBreak, 0, len(record.BreakRecords)+1)
	for _, b := range record.BreakRecords {
		begin, err := parsePayrollTime(b.ClockInAt, s.cfg.Location)
		if err != nil {
			return dto.WorkRecordUpdateRequest{}, fmt.Errorf("buildRecordUpdate: 休憩時刻解析失敗: %w", err)
		}
		end, err := parsePayrollTime(b.ClockOutAt, s.cfg.Location)
		if err != nil {
			return dto.WorkRecordUpdateRequest{}, fmt.Errorf("buildRecordUpdate: 休憩時刻解析失敗: %w", err)
		}
		breaks = append(breaks, dto.WorkRecordBreak{
			ClockInAt:  begin.Format(payrollDatetimeLayout),
			ClockOutAt: end.Format(payrollDatetimeLayout),
		})
	}
	if extraBreak != nil {
		breaks = append(breaks, dto.WorkRecordBreak{
			ClockInAt:  extraBreak.Start.Format(payrollDatetimeLayout),
			ClockOutAt: extraBreak.End.Format(payrollDatetimeLayout),
		})
	}

	return dto.WorkRecordUpdateRequest{
		ClockInAt:    clockIn.Format(payrollDatetimeLayout),
		ClockOutAt:   clockOut.Format(payrollDatetimeLayout),
		Note:         appendNote(record.Note, i18n.T("sweep.remote_note")),
		BreakRecords: breaks,
	}, nil
}

// reportFailure はメッセージ単位の失敗をエラーマーカーとスレッド返信で報告します。
// 報告自体の失敗はログに残すだけで、実行は継続します
func (s *attendanceService) reportFailure(ctx context.Context, channelID string, m domain.ChatMessage, cause error) {
	s.logger.Warn("勤怠コマンド処理失敗",
		zap.String("channel", channelID),
		zap.String("user", m.UserID),
		zap.Error(cause))

	if err := s.chat.AddReaction(ctx, channelID, m.Timestamp, domain.ReactionError); err != nil {
		s.logger.Error("エラーマーカー付与失敗", zap.Error(err))
	}
	if err := s.chat.PostMessage(ctx, channelID, m.Timestamp, userFacingMessage(cause)); err != nil {
		s.logger.Error("エラー返信投稿失敗", zap.Error(err))
	}
}

// rejectionError は認可拒否をユーザー向けメッセージに変換できるエラーです
type rejectionError struct {
	reason domain.RejectReason
}

func (e *rejectionError) Error() string {
	return fmt.Sprintf("認可拒否: %s", e.reason)
}

// userFacingMessage は失敗原因をユーザー向けのメッセージへ変換します
func userFacingMessage(err error) string {
	var rejection *rejectionError
	if errors.As(err, &rejection) {
		return i18n.T("reject." + string(rejection.reason))
	}
	if errors.Is(err, domain.ErrIdentity) {
		return i18n.T("error.identity")
	}
	return i18n.T("error.payroll")
}

// reactionsFor はアクションに対応する完了マーカーを返します
func reactionsFor(action domain.ActionType) []string {
	switch action {
	case domain.ActionClockOutAndAddRemoteMemo:
		return []string{domain.ReactionTimeRecorded, domain.ReactionRemoteMemo}
	case domain.ActionSwitchToOffice, domain.ActionSwitchToRemote:
		return []string{domain.ReactionLocationSwitch}
	default:
		return []string{domain.ReactionTimeRecorded}
	}
}

// 勤怠APIへ送る日時のローカル形式
const payrollDatetimeLayout = "2006-01-02 15:04:05"

// parsePayrollTime は勤怠APIレスポンスのISO-8601日時を解析します
func parsePayrollTime(value string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// appendNote は既存メモへ追記します。同じ注記の重複追記は避け、
// 全体をAPI側スキーマの上限文字数に収めます
func appendNote(existing, note string) string {
	combined := existing + " " + note
	switch {
	case existing == "":
		combined = note
	case strings.HasSuffix(existing, note):
		combined = existing
	}

	runes := []rune(combined)
	if len(runes) > dto.WorkRecordNoteMaxLength {
		return string(runes[:dto.WorkRecordNoteMaxLength])
	}
	return combined
}
