package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkdayStart(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	assert.NoError(t, err)

	tests := []struct {
		name      string
		ref       time.Time
		startHour int
		want      time.Time
	}{
		{
			// 深夜0:20はまだ前日の勤務日に属する
			name:      "区切り前の深夜は前日扱い",
			ref:       time.Date(2023, 3, 5, 0, 20, 0, 0, loc),
			startHour: 4,
			want:      time.Date(2023, 3, 4, 4, 0, 0, 0, loc),
		},
		{
			name:      "区切り後は当日扱い",
			ref:       time.Date(2023, 3, 5, 9, 0, 0, 0, loc),
			startHour: 4,
			want:      time.Date(2023, 3, 5, 4, 0, 0, 0, loc),
		},
		{
			name:      "区切りちょうどは当日扱い",
			ref:       time.Date(2023, 3, 5, 4, 0, 0, 0, loc),
			startHour: 4,
			want:      time.Date(2023, 3, 5, 4, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WorkdayStart(tt.ref, tt.startHour))
		})
	}
}

func TestCategorize(t *testing.T) {
	messages := []ChatMessage{
		{UserID: "U1", Text: "出勤", Timestamp: "1.0", BotReactions: []string{ReactionTimeRecorded}},
		{UserID: "U2", Text: "出勤", Timestamp: "2.0"},
		{UserID: "U3", Text: "退勤", Timestamp: "3.0", BotReactions: []string{ReactionError}},
		{UserID: "U1", Text: "リモート", Timestamp: "4.0", BotReactions: []string{ReactionLocationSwitch}},
		{UserID: "U2", Text: "退勤", Timestamp: "5.0", BotReactions: []string{ReactionTimeRecorded, ReactionRemoteMemo}},
	}

	got := Categorize(messages)

	// エラーマーカー付きはどちらにも含まれない
	assert.Len(t, got.Processed, 3)
	assert.Len(t, got.Unprocessed, 1)
	assert.Equal(t, "2.0", got.Unprocessed[0].Timestamp)

	for _, m := range got.Processed {
		assert.NotEqual(t, "3.0", m.Timestamp)
	}
}

func TestChatMessage_Processed(t *testing.T) {
	assert.False(t, ChatMessage{}.Processed())
	assert.False(t, ChatMessage{BotReactions: []string{"thumbsup"}}.Processed())
	assert.True(t, ChatMessage{BotReactions: []string{ReactionTimeRecorded}}.Processed())
	assert.True(t, ChatMessage{BotReactions: []string{ReactionRemoteMemo}}.Processed())
	assert.True(t, ChatMessage{BotReactions: []string{ReactionLocationSwitch}}.Processed())
	// エラーマーカー単体は処理済みではない（Categorize側で除外される）
	assert.False(t, ChatMessage{BotReactions: []string{ReactionError}}.Processed())
}
