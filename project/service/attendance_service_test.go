package service

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"attendance-bot/project/domain"
	"attendance-bot/project/dto"
	"attendance-bot/project/infrastructure/config"
	"attendance-bot/project/infrastructure/i18n"
	"attendance-bot/project/infrastructure/payroll"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	i18n.Init("ja")
	os.Exit(m.Run())
}

var tokyo = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
	return loc
}()

// fakeChat は ChatPort のテスト用実装です
type fakeChat struct {
	messages  []domain.ChatMessage
	email     string
	emailErr  error
	reactions map[string][]string // messageTS → リアクション名
	replies   []string            // スレッド返信の本文
	posts     []string            // 通常投稿の本文
	scheduled []int64             // 予約投稿の時刻
}

func newFakeChat(messages ...domain.ChatMessage) *fakeChat {
	return &fakeChat{
		messages:  messages,
		email:     "yamada@example.com",
		reactions: make(map[string][]string),
	}
}

func (f *fakeChat) FetchMessages(ctx context.Context, channelID string, oldest, latest time.Time) ([]domain.ChatMessage, error) {
	return f.messages, nil
}

func (f *fakeChat) AddReaction(ctx context.Context, channelID, messageTS, name string) error {
	f.reactions[messageTS] = append(f.reactions[messageTS], name)
	return nil
}

func (f *fakeChat) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	if threadTS != "" {
		f.replies = append(f.replies, text)
	} else {
		f.posts = append(f.posts, text)
	}
	return nil
}

func (f *fakeChat) PostScheduledMessage(ctx context.Context, channelID, text string, postAt int64) error {
	f.scheduled = append(f.scheduled, postAt)
	f.posts = append(f.posts, text)
	return nil
}

func (f *fakeChat) LookupEmailByUserID(ctx context.Context, userID string) (string, error) {
	if f.emailErr != nil {
		return "", f.emailErr
	}
	return f.email, nil
}

// fakePayroll は PayrollPort のテスト用実装です
type fakePayroll struct {
	punchCalls int
	punches    []dto.TimeClockRequest
	punchErr   error
	punchErrN  int // この呼び出し回数目の打刻だけ失敗させる（0なら常に punchErr）
	record     *dto.WorkRecord
	updates    []dto.WorkRecordUpdateRequest
}

func (f *fakePayroll) FindEmployeeByEmail(ctx context.Context, email string) (*dto.Employee, error) {
	return &dto.Employee{ID: 10, DisplayName: "山田", Email: email}, nil
}

func (f *fakePayroll) RegisterTimeClock(ctx context.Context, employeeID int64, req dto.TimeClockRequest) (*dto.TimeClock, error) {
	f.punchCalls++
	if f.punchErr != nil && (f.punchErrN == 0 || f.punchErrN == f.punchCalls) {
		return nil, f.punchErr
	}
	f.punches = append(f.punches, req)
	return &dto.TimeClock{ID: int64(f.punchCalls), Type: req.Type}, nil
}

func (f *fakePayroll) GetWorkRecord(ctx context.Context, employeeID int64, date string) (*dto.WorkRecord, error) {
	if f.record == nil {
		return nil, fmt.Errorf("勤務記録がありません")
	}
	return f.record, nil
}

func (f *fakePayroll) UpdateWorkRecord(ctx context.Context, employeeID int64, date string, req dto.WorkRecordUpdateRequest) error {
	f.updates = append(f.updates, req)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Location:         tokyo,
		DayStartHour:     4,
		SweepSummaryHour: 9,
		ChannelIDs:       []string{"C1"},
		PayrollCompanyID: 1,
	}
}

func newTestService(chat ChatPort, pay PayrollPort, now time.Time) *attendanceService {
	return &attendanceService{
		cfg:        testConfig(),
		chat:       chat,
		payroll:    pay,
		classifier: domain.NewClassifier(false),
		logger:     zap.NewNop(),
		now:        func() time.Time { return now },
	}
}

func message(userID, text, ts string, at time.Time, reactions ...string) domain.ChatMessage {
	return domain.ChatMessage{
		UserID:       userID,
		Text:         text,
		Timestamp:    ts,
		Time:         at,
		BotReactions: reactions,
	}
}

func TestRunTimeRecording_ClockInPunch(t *testing.T) {
	now := time.Date(2023, 3, 6, 10, 0, 0, 0, tokyo)
	chat := newFakeChat(
		message("U1", "出勤", "1.0", time.Date(2023, 3, 6, 9, 0, 0, 0, tokyo)),
	)
	pay := &fakePayroll{}
	svc := newTestService(chat, pay, now)

	err := svc.RunTimeRecording(context.Background())
	assert.NoError(t, err)

	assert.Len(t, pay.punches, 1)
	assert.Equal(t, dto.TimeClockTypeClockIn, pay.punches[0].Type)
	assert.Equal(t, "2023-03-06", pay.punches[0].BaseDate)
	assert.Equal(t, "2023-03-06 09:00:00", pay.punches[0].Datetime)
	assert.Equal(t, int64(1), pay.punches[0].CompanyID)

	assert.Equal(t, []string{domain.ReactionTimeRecorded}, chat.reactions["1.0"])
	assert.Empty(t, chat.replies)
}

// 処理済みメッセージだけの区間を再実行しても打刻は発生しない
func TestRunTimeRecording_Idempotent(t *testing.T) {
	now := time.Date(2023, 3, 6, 10, 0, 0, 0, tokyo)
	chat := newFakeChat(
		message("U1", "出勤", "1.0", time.Date(2023, 3, 6, 9, 0, 0, 0, tokyo), domain.ReactionTimeRecorded),
		message("U1", "休憩開始", "2.0", time.Date(2023, 3, 6, 12, 0, 0, 0, tokyo), domain.ReactionTimeRecorded),
	)
	pay := &fakePayroll{}
	svc := newTestService(chat, pay, now)

	err := svc.RunTimeRecording(context.Background())
	assert.NoError(t, err)

	assert.Empty(t, pay.punches)
	assert.Empty(t, chat.reactions)
}

// 同一実行内で前のメッセージの遷移結果が後続の認可に反映される
func TestRunTimeRecording_SequentialMessagesSameRun(t *testing.T) {
	now := time.Date(2023, 3, 6, 19, 0, 0, 0, tokyo)
	chat := newFakeChat(
		message("U1", "出勤", "1.0", time.Date(2023, 3, 6, 9, 0, 0, 0, tokyo)),
		message("U1", "退勤", "2.0", time.Date(2023, 3, 6, 18, 0, 0, 0, tokyo)),
	)
	pay := &fakePayroll{}
	svc := newTestService(chat, pay, now)

	err := svc.RunTimeRecording(context.Background())
	assert.NoError(t, err)

	assert.Len(t, pay.punches, 2)
	assert.Equal(t, dto.TimeClockTypeClockIn, pay.punches[0].Type)
	assert.Equal(t, dto.TimeClockTypeClockOut, pay.punches[1].Type)
}

func TestRunTimeRecording_RejectionRepliesInThread(t *testing.T) {
	now := time.Date(2023, 3, 6, 10, 0, 0, 0, tokyo)
	chat := newFakeChat(
		// 出勤前の休憩終了は認可拒否
		message("U1", "休憩終了", "1.0", time.Date(2023, 3, 6, 9, 0, 0, 0, tokyo)),
	)
	pay := &fakePayroll{}
	svc := newTestService(chat, pay, now)

	err := svc.RunTimeRecording(context.Background())
	assert.NoError(t, err)

	assert.Empty(t, pay.punches)
	assert.Equal(t, []string{domain.ReactionError}, chat.reactions["1.0"])
	assert.Len(t, chat.replies, 1)
	assert.Equal(t, "まだ出勤していません", chat.replies[0])
}

// メッセージ単位の失敗は同一実行内の他メッセージを巻き込まない
func TestRunTimeRecording_FailureIsolation(t *testing.T) {
	now := time.Date(2023, 3, 6, 10, 0, 0, 0, tokyo)
	chat := newFakeChat(
		message("U1", "出勤", "1.0", time.Date(2023, 3, 6, 9, 0, 0, 0, tokyo)),
		message("U2", "出勤", "2.0", time.Date(2023, 3, 6, 9, 5, 0, 0, tokyo)),
	)
	pay := &fakePayroll{
		punchErr:  &payroll.APIError{Status: 400, Body: "invalid"},
		punchErrN: 1, // 最初の打刻だけ失敗
	}
	svc := newTestService(chat, pay, now)

	err := svc.RunTimeRecording(context.Background())
	assert.NoError(t, err)

	// U1 はエラー報告、U2 は正常に打刻される
	assert.Equal(t, []string{domain.ReactionError}, chat.reactions["1.0"])
	assert.Equal(t, []string{domain.ReactionTimeRecorded}, chat.reactions["2.0"])
	assert.Len(t, pay.punches, 1)
	assert.Len(t, chat.replies, 1)
}

// 通勤費精算が必要なリモート退勤は打刻に加えて勤務記録へメモを追記する
func TestRunTimeRecording_RemoteClockOutAddsMemo(t *testing.T) {
	now := time.Date(2023, 3, 6, 19, 0, 0, 0, tokyo)
	chat := newFakeChat(
		message("U1", "出勤", "1.0", time.Date(2023, 3, 6, 9, 0, 0, 0, tokyo), domain.ReactionTimeRecorded),
		message("U1", "リモート", "2.0", time.Date(2023, 3, 6, 13, 0, 0, 0, tokyo), domain.ReactionLocationSwitch),
		message("U1", "退勤", "3.0", time.Date(2023, 3, 6, 18, 0, 0, 0, tokyo)),
	)
	pay := &fakePayroll{
		record: &dto.WorkRecord{
			Date:       "2023-03-06",
			ClockInAt:  "2023-03-06T09:00:00+09:00",
			ClockOutAt: "2023-03-06T18:00:00+09:00",
			Note:       "",
		},
	}
	svc := newTestService(chat, pay, now)

	err := svc.RunTimeRecording(context.Background())
	assert.NoError(t, err)

	assert.Len(t, pay.punches, 1)
	assert.Equal(t, dto.TimeClockTypeClockOut, pay.punches[0].Type)

	assert.Len(t, pay.updates, 1)
	assert.Equal(t, "リモート", pay.updates[0].Note)
	assert.Equal(t, "2023-03-06 09:00:00", pay.updates[0].ClockInAt)
	assert.Equal(t, "2023-03-06 18:00:00", pay.updates[0].ClockOutAt)

	assert.Equal(t,
		[]string{domain.ReactionTimeRecorded, domain.ReactionRemoteMemo},
		chat.reactions["3.0"])
}

// 勤務場所の切り替えは打刻せず、場所マーカーだけ付与する
func TestRunTimeRecording_SwitchLocationNoPunch(t *testing.T) {
	now := time.Date(2023, 3, 6, 14, 0, 0, 0, tokyo)
	chat := newFakeChat(
		message("U1", "出勤", "1.0", time.Date(2023, 3, 6, 9, 0, 0, 0, tokyo), domain.ReactionTimeRecorded),
		message("U1", "リモート", "2.0", time.Date(2023, 3, 6, 13, 0, 0, 0, tokyo)),
	)
	pay := &fakePayroll{}
	svc := newTestService(chat, pay, now)

	err := svc.RunTimeRecording(context.Background())
	assert.NoError(t, err)

	assert.Empty(t, pay.punches)
	assert.Equal(t, []string{domain.ReactionLocationSwitch}, chat.reactions["2.0"])
}

// コマンドに一致しない雑談はエラーにも処理対象にもならない
func TestRunTimeRecording_IgnoresNonCommands(t *testing.T) {
	now := time.Date(2023, 3, 6, 10, 0, 0, 0, tokyo)
	chat := newFakeChat(
		message("U1", "おはようございます", "1.0", time.Date(2023, 3, 6, 9, 0, 0, 0, tokyo)),
	)
	pay := &fakePayroll{}
	svc := newTestService(chat, pay, now)

	err := svc.RunTimeRecording(context.Background())
	assert.NoError(t, err)

	assert.Empty(t, pay.punches)
	assert.Empty(t, chat.reactions)
	assert.Empty(t, chat.replies)
}
