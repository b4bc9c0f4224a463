package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(false)

	tests := []struct {
		text    string
		want    CommandType
		matched bool
	}{
		{"出勤", CommandClockIn, true},
		{"しゅっきん", CommandClockIn, true},
		{"業務開始", CommandClockIn, true},
		{"終日リモート", CommandClockInAllDayRemote, true},
		{"終日在宅", CommandClockInAllDayRemote, true},
		{"全日リモート", CommandClockInAllDayRemote, true},
		{"出社", CommandClockInOrSwitchOffice, true},
		{"オフィス", CommandClockInOrSwitchOffice, true},
		{"リモート", CommandSwitchToRemote, true},
		{"在宅", CommandSwitchToRemote, true},
		{"リモートワーク", CommandSwitchToRemote, true},
		{"退勤", CommandClockOut, true},
		{"退社", CommandClockOut, true},
		{"業務終了", CommandClockOut, true},
		{"休憩開始", CommandBreakBegin, true},
		{"休憩入ります", CommandBreakBegin, true},
		{"離席", CommandBreakBegin, true},
		{"休憩終了", CommandBreakEnd, true},
		{"休憩戻ります", CommandBreakEnd, true},
		{"復帰", CommandBreakEnd, true},

		// 前後の空白は許容
		{"  出勤  ", CommandClockIn, true},
		{"\n退勤\n", CommandClockOut, true},

		// 部分一致や文中の出現はコマンドにしない
		{"今日は出勤しません", "", false},
		{"おはようございます", "", false},
		{"", "", false},
		{"出勤します", "", false},
	}

	for _, tt := range tests {
		got, ok := c.Classify(tt.text)
		assert.Equal(t, tt.matched, ok, "text=%q", tt.text)
		if tt.matched {
			assert.Equal(t, tt.want, got, "text=%q", tt.text)
		}
	}
}

// 「終日リモート」は「リモート」を含むが、表の順序で終日宣言が優先される
func TestClassifier_Priority(t *testing.T) {
	c := NewClassifier(false)

	got, ok := c.Classify("終日リモート")
	assert.True(t, ok)
	assert.Equal(t, CommandClockInAllDayRemote, got)
}

func TestClassifier_AllowSuffix(t *testing.T) {
	strict := NewClassifier(false)
	lenient := NewClassifier(true)

	// 外部連携Botが付与する短いサフィックス付き
	_, ok := strict.Classify("出勤 :dog:")
	assert.False(t, ok)

	got, ok := lenient.Classify("出勤です")
	assert.True(t, ok)
	assert.Equal(t, CommandClockIn, got)

	// 4文字を超えるサフィックスは許容しない
	_, ok = lenient.Classify("出勤してから帰ります")
	assert.False(t, ok)
}
