package handlers

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/ai"
	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/reminder"
)

// Sender is the part of *tgbotapi.BotAPI the handlers talk through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type UserStore interface {
	GetOrCreate(ctx context.Context, userID string, userName string) (*models.User, error)
}

// IntentParser reads free text the grammar rejected. *ai.Client implements it.
type IntentParser interface {
	ParseIntent(ctx context.Context, userMessage string, now time.Time) (*ai.Intent, error)
}

type Handlers struct {
	api       Sender
	users     UserStore
	reminders *reminder.Service
	ai        IntentParser
	aiTimeout time.Duration
	now       func() time.Time
	log       zerolog.Logger

	pendingMu sync.Mutex
	pending   map[int64]*pendingConfirmation
}

// New wires the handlers. parser may be nil to disable the natural language
// fallback.
func New(api Sender, users UserStore, reminders *reminder.Service, parser IntentParser, log zerolog.Logger) *Handlers {
	return &Handlers{
		api:       api,
		users:     users,
		reminders: reminders,
		ai:        parser,
		aiTimeout: 20 * time.Second,
		now:       time.Now,
		log:       log.With().Str("component", "handlers").Logger(),
		pending:   make(map[int64]*pendingConfirmation),
	}
}

// SetAITimeout bounds a single intent parsing call.
func (h *Handlers) SetAITimeout(d time.Duration) {
	if d > 0 {
		h.aiTimeout = d
	}
}

// Commands is the menu registered with Telegram.
func Commands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "list", Description: "查看待辦事項"},
		{Command: "add", Description: "新增待辦事項 (月/日 時:分 內容)"},
		{Command: "done", Description: "完成待辦事項"},
		{Command: "delete", Description: "刪除待辦事項"},
		{Command: "help", Description: "使用說明"},
	}
}

// looseCommandRe catches input that is clearly meant as a new reminder but may
// not satisfy the strict grammar, so the user gets a format error instead of
// the generic usage reply.
var looseCommandRe = regexp.MustCompile(`^\d+/\d+\s+\d+:\d+\s+.+`)

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	owner, ok := h.ensureUser(ctx, msg)
	if !ok {
		return
	}
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		h.handleStart(msg)
	case "help":
		h.handleHelp(msg.Chat.ID)
	case "list":
		h.handleList(ctx, msg.Chat.ID, owner)
	case "add":
		if args == "" {
			h.sendText(msg.Chat.ID, "請提供提醒時間和內容\n用法: /add 月/日 時:分 內容\n例如: /add 3/20 9:00 A廠商開會")
			return
		}
		h.handleCreate(ctx, msg.Chat.ID, owner, args)
	case "done":
		if args == "" {
			h.sendText(msg.Chat.ID, "請提供提醒ID\n用法: /done <ID>")
			return
		}
		h.handleComplete(ctx, msg.Chat.ID, owner, firstField(args))
	case "delete":
		if args == "" {
			h.sendText(msg.Chat.ID, "請提供提醒ID\n用法: /delete <ID>")
			return
		}
		h.handleDelete(ctx, msg.Chat.ID, owner, firstField(args))
	default:
		h.sendText(msg.Chat.ID, "未知指令，請使用 /help 查看可用指令")
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	owner, ok := h.ensureUser(ctx, msg)
	if !ok {
		return
	}
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch {
	case looseCommandRe.MatchString(text):
		h.handleCreate(ctx, chatID, owner, text)
	case text == "列表" || text == "list":
		h.handleList(ctx, chatID, owner)
	case text == "說明" || text == "help":
		h.handleHelp(chatID)
	case strings.HasPrefix(text, "完成 ") || strings.HasPrefix(text, "done "):
		h.handleComplete(ctx, chatID, owner, secondField(text))
	case strings.HasPrefix(text, "刪除 ") || strings.HasPrefix(text, "delete "):
		h.handleDelete(ctx, chatID, owner, secondField(text))
	case h.handleConfirmationReply(ctx, msg, owner):
		// answered a pending confirmation
	case h.ai != nil:
		h.handleAIMessage(ctx, msg, owner)
	default:
		h.sendText(chatID, usageText)
	}
}

// ensureUser records the sender and returns their owner id.
func (h *Handlers) ensureUser(ctx context.Context, msg *tgbotapi.Message) (string, bool) {
	if msg.From == nil {
		return "", false
	}
	owner := ownerID(msg.From.ID)
	name := msg.From.UserName
	if name == "" {
		name = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	}
	if _, err := h.users.GetOrCreate(ctx, owner, name); err != nil {
		// Reminders do not depend on the user row; keep serving.
		h.log.Warn().Err(err).Str("owner_id", owner).Msg("failed to get/create user")
	}
	return owner, true
}

func ownerID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func secondField(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func (h *Handlers) send(chatID int64, m *format.Message) {
	if _, err := h.api.Send(m.Config(chatID)); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func (h *Handlers) sendText(chatID int64, text string) {
	h.send(chatID, (&format.Message{}).Text(text))
}

const usageText = "您可以使用以下格式添加待辦事項：\n日期 時間 內容\n例如：3/20 9:00 A廠商開會\n\n其他命令：\n- 列表：查看所有待辦事項\n- 完成 [ID]：標記待辦事項為已完成\n- 刪除 [ID]：刪除待辦事項"

func (h *Handlers) handleStart(msg *tgbotapi.Message) {
	m := &format.Message{}
	m.Text("👋 你好 " + msg.From.FirstName + "！\n\n").
		Text("我是提醒機器人，會在事件開始前 1 小時內提醒你。\n\n").
		Text("輸入「說明」或 /help 查看使用方式")
	h.send(msg.Chat.ID, m)
}

func (h *Handlers) handleHelp(chatID int64) {
	m := &format.Message{}
	m.Bold("待辦事項機器人使用說明：").Line().Line().
		Text("1. 新增待辦事項：\n   格式：月/日 時:分 內容\n   範例：3/20 9:00 A廠商開會\n\n").
		Text("2. 查看待辦清單：\n   輸入「列表」或 /list\n\n").
		Text("3. 其他命令：\n   - 完成 [ID]：標記待辦事項為已完成\n   - 刪除 [ID]：刪除待辦事項\n\n").
		Text("提醒：本機器人會在事件發生前1小時發送通知")
	h.send(chatID, m)
}
