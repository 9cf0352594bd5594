package provider

import (
	"context"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ExportICS 将用户的事件导出为 iCalendar 文本
// 供 HTTP 层暴露只读订阅源，外部日历客户端可直接订阅
func ExportICS(ctx context.Context, cal CalendarProvider, userID string, from, to time.Time) (string, error) {
	events, err := cal.ListEvents(ctx, userID, from, to)
	if err != nil {
		return "", err
	}

	calendar := ics.NewCalendar()
	calendar.SetMethod(ics.MethodPublish)
	calendar.SetProductId("-//ScheduleAgent//Calendar Feed//EN")

	for _, ev := range events {
		entry := calendar.AddEvent(ev.ID)
		entry.SetSummary(ev.Title)
		if ev.Description != "" {
			entry.SetDescription(ev.Description)
		}
		entry.SetStartAt(ev.Start)
		entry.SetEndAt(ev.End)
		entry.SetDtStampTime(time.Now().UTC())
	}

	return calendar.Serialize(), nil
}
