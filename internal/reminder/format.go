package reminder

import (
	"fmt"
	"math"
	"time"
)

const (
	listLayout    = "01/02 15:04"
	confirmLayout = "2006/01/02 15:04"
)

// FormatListTime renders t as MM/DD HH:mm in loc.
func FormatListTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(listLayout)
}

// FormatConfirmTime renders t as YYYY/MM/DD HH:mm in loc.
func FormatConfirmTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(confirmLayout)
}

// MinutesLeft is the whole number of minutes from now until dueAt, rounded
// to the nearest minute.
func MinutesLeft(dueAt, now time.Time) int {
	return int(math.Round(float64(dueAt.Sub(now)) / float64(time.Minute)))
}

// NotificationText is the push message sent for a due reminder.
func NotificationText(body string, minutesLeft int) string {
	return fmt.Sprintf("⏰ 提醒：%s\n距離開始還有約 %d 分鐘", body, minutesLeft)
}
