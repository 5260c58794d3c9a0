package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/hray3182/remindbot/internal/command"
	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/reminder"
)

const (
	formatErrorText  = "格式錯誤，請使用：日期 時間 內容\n例如：3/20 9:00 A廠商開會"
	invalidDateText  = "日期或時間不存在，請確認後再試。\n例如：3/20 9:00 A廠商開會"
	emptyIDText      = "請提供提醒ID，例如：完成 <ID>"
	createErrorText  = "新增待辦事項時發生錯誤，請稍後再試。"
	listErrorText    = "獲取待辦事項列表時發生錯誤，請稍後再試。"
	completeNotFound = "找不到該待辦事項或您無權限修改。"
	completeError    = "標記待辦事項時發生錯誤，請稍後再試。"
	deleteNotFound   = "找不到該待辦事項或您無權限刪除。"
	deleteError      = "刪除待辦事項時發生錯誤，請稍後再試。"
)

func (h *Handlers) handleCreate(ctx context.Context, chatID int64, owner, text string) {
	r, err := h.reminders.CreateFromText(ctx, owner, text)
	if err != nil {
		var pe *command.ParseError
		var ve *reminder.ValidationError
		switch {
		case errors.As(err, &pe) && pe.Kind == command.InvalidDateTime:
			h.sendText(chatID, invalidDateText)
		case errors.As(err, &pe):
			h.sendText(chatID, formatErrorText)
		case errors.As(err, &ve):
			h.sendText(chatID, formatErrorText)
		default:
			h.sendText(chatID, createErrorText)
		}
		return
	}

	m := &format.Message{}
	m.Text("已新增待辦事項：\n").
		Text(reminder.FormatConfirmTime(r.DueAt, h.reminders.Location()) + " " + r.Body).
		Text("\n提醒ID: ").Code(r.ID)
	h.send(chatID, m)
}

func (h *Handlers) handleList(ctx context.Context, chatID int64, owner string) {
	items, err := h.reminders.ListPending(ctx, owner)
	if err != nil {
		h.sendText(chatID, listErrorText)
		return
	}
	if len(items) == 0 {
		h.sendText(chatID, "您目前沒有待辦事項。")
		return
	}

	m := &format.Message{}
	m.Bold("您的待辦事項：").Line()
	for i, item := range items {
		if i > 0 {
			m.Line().Line()
		}
		m.Text(fmt.Sprintf("%d. [%s] %s\nID: ", item.Index,
			reminder.FormatListTime(item.DueAtLocal, h.reminders.Location()), item.Body))
		m.Code(item.ID)
	}
	h.send(chatID, m)
}

func (h *Handlers) handleComplete(ctx context.Context, chatID int64, owner, id string) {
	h.sendText(chatID, h.completeReply(ctx, owner, id))
}

func (h *Handlers) handleDelete(ctx context.Context, chatID int64, owner, id string) {
	h.sendText(chatID, h.deleteReply(ctx, owner, id))
}

// completeReply runs the state change and returns the reply text.
func (h *Handlers) completeReply(ctx context.Context, owner, id string) string {
	if id == "" {
		return emptyIDText
	}
	r, err := h.reminders.CompleteReminder(ctx, owner, id)
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		return completeNotFound
	case err != nil:
		return completeError
	}
	return "已完成：" + r.Body
}

func (h *Handlers) deleteReply(ctx context.Context, owner, id string) string {
	if id == "" {
		return emptyIDText
	}
	r, err := h.reminders.DeleteReminder(ctx, owner, id)
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		return deleteNotFound
	case err != nil:
		return deleteError
	}
	return "已刪除：" + r.Body
}
