package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remindbot/internal/ai"
	"github.com/hray3182/remindbot/internal/command"
	"github.com/hray3182/remindbot/internal/format"
)

// pendingConfirmation is a state change suggested by the model, waiting for
// the user to approve it.
type pendingConfirmation struct {
	action    string
	id        string
	expiresAt time.Time
}

const confirmTimeout = 2 * time.Minute

func (h *Handlers) handleAIMessage(ctx context.Context, msg *tgbotapi.Message, owner string) {
	chatID := msg.Chat.ID

	aiCtx, cancel := context.WithTimeout(ctx, h.aiTimeout)
	defer cancel()
	intent, err := h.ai.ParseIntent(aiCtx, msg.Text, h.now().In(h.reminders.Location()))
	if err != nil {
		h.log.Warn().Err(err).Str("owner_id", owner).Msg("failed to parse intent")
		h.sendText(chatID, usageText)
		return
	}
	h.log.Debug().
		Str("owner_id", owner).
		Str("action", intent.Action).
		Str("raw", intent.RawResponse).
		Msg("parsed intent")

	switch intent.Action {
	case ai.ActionCreate:
		// The rewritten command goes through the same strict grammar.
		if !command.Matches(intent.Command) {
			h.replyAI(chatID, intent)
			return
		}
		h.handleCreate(ctx, chatID, owner, intent.Command)
	case ai.ActionList:
		h.handleList(ctx, chatID, owner)
	case ai.ActionComplete, ai.ActionDelete:
		if intent.ID == "" {
			h.replyAI(chatID, intent)
			return
		}
		h.requestConfirmation(chatID, msg.From.ID, intent)
	default:
		h.replyAI(chatID, intent)
	}
}

func (h *Handlers) replyAI(chatID int64, intent *ai.Intent) {
	if intent.AIMessage != "" {
		h.sendText(chatID, intent.AIMessage)
		return
	}
	h.sendText(chatID, usageText)
}

func (h *Handlers) requestConfirmation(chatID int64, userID int64, intent *ai.Intent) {
	h.pendingMu.Lock()
	h.pending[userID] = &pendingConfirmation{
		action:    intent.Action,
		id:        intent.ID,
		expiresAt: h.now().Add(confirmTimeout),
	}
	h.pendingMu.Unlock()

	verb := "完成"
	if intent.Action == ai.ActionDelete {
		verb = "刪除"
	}
	m := &format.Message{}
	m.Text(fmt.Sprintf("確認%s待辦事項 ", verb)).Code(intent.ID).Text("？")

	cfg := m.Config(chatID)
	cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ 確認", fmt.Sprintf("confirm:%d", userID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ 取消", fmt.Sprintf("cancel:%d", userID)),
		),
	)
	if _, err := h.api.Send(cfg); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send confirmation message")
	}
}

// takePending removes and returns the user's pending confirmation if it has
// not expired.
func (h *Handlers) takePending(userID int64) (*pendingConfirmation, bool) {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()

	p, ok := h.pending[userID]
	if !ok {
		return nil, false
	}
	delete(h.pending, userID)
	if h.now().After(p.expiresAt) {
		return nil, false
	}
	return p, true
}

func (h *Handlers) executePending(ctx context.Context, owner string, p *pendingConfirmation) string {
	if p.action == ai.ActionDelete {
		return h.deleteReply(ctx, owner, p.id)
	}
	return h.completeReply(ctx, owner, p.id)
}

var (
	confirmWords = map[string]bool{"確認": true, "是": true, "好": true, "yes": true, "y": true}
	cancelWords  = map[string]bool{"取消": true, "否": true, "不要": true, "no": true, "n": true}
)

// handleConfirmationReply lets the user answer a confirmation by typing
// instead of tapping a button.
func (h *Handlers) handleConfirmationReply(ctx context.Context, msg *tgbotapi.Message, owner string) bool {
	text := strings.ToLower(strings.TrimSpace(msg.Text))
	isConfirm, isCancel := confirmWords[text], cancelWords[text]
	if !isConfirm && !isCancel {
		return false
	}
	p, ok := h.takePending(msg.From.ID)
	if !ok {
		return false
	}

	if isCancel {
		h.sendText(msg.Chat.ID, "已取消操作")
		return true
	}
	h.sendText(msg.Chat.ID, h.executePending(ctx, owner, p))
	return true
}

func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Answer callback to remove loading state
	if _, err := h.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		h.log.Warn().Err(err).Msg("failed to answer callback")
	}

	// Callback data: "confirm:<userID>" or "cancel:<userID>"
	action, rawUser, found := strings.Cut(callback.Data, ":")
	if !found {
		return
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		return
	}
	if callback.From == nil || callback.From.ID != userID {
		if _, err := h.api.Request(tgbotapi.NewCallbackWithAlert(callback.ID, "這不是你的操作")); err != nil {
			h.log.Warn().Err(err).Msg("failed to answer callback with alert")
		}
		return
	}
	if callback.Message == nil {
		return
	}
	chatID, messageID := callback.Message.Chat.ID, callback.Message.MessageID

	p, ok := h.takePending(userID)
	if !ok {
		h.editMessageText(chatID, messageID, "⏰ 確認已過期")
		return
	}

	switch action {
	case "confirm":
		result := h.executePending(ctx, ownerID(userID), p)
		h.editMessageText(chatID, messageID, "✅ 已確認\n\n"+result)
	case "cancel":
		h.editMessageText(chatID, messageID, "❌ 已取消操作")
	}
}

func (h *Handlers) editMessageText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := h.api.Send(edit); err != nil {
		h.log.Error().Err(err).Msg("failed to edit message")
	}
}
