package services

import (
	"time"

	"todo-chatbot/backend/internal/models"
)

// NextOccurrence は繰り返しパターンに応じた次回日時を計算します。
// パターンが繰り返しでない場合は false を返します。
func NextOccurrence(t time.Time, pattern string) (time.Time, bool) {
	switch pattern {
	case models.FrequencyDaily:
		return t.AddDate(0, 0, 1), true
	case models.FrequencyWeekly:
		return t.AddDate(0, 0, 7), true
	case models.FrequencyMonthly:
		return addMonthClamped(t), true
	default:
		return time.Time{}, false
	}
}

// addMonthClamped は1ヶ月後の日時を返します。
// 翌月に同じ日が存在しない場合は月末に丸めます(1/31 → 2/28)。
func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
