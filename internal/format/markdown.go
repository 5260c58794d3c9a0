// Package format builds Telegram messages with entity-based styling, so user
// supplied text is never interpreted as markup.
package format

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UTF16Len calculates the UTF-16 length of a string.
// Telegram measures entity offsets and lengths in UTF-16 code units.
func UTF16Len(s string) int {
	length := 0
	for _, b := range []byte(s) {
		if (b & 0xc0) != 0x80 {
			if b >= 0xf0 {
				length += 2 // Non-BMP characters (surrogate pairs)
			} else {
				length += 1
			}
		}
	}
	return length
}

// Message accumulates plain text and the entities that style it.
type Message struct {
	b        strings.Builder
	offset   int
	entities []tgbotapi.MessageEntity
}

func (m *Message) Text(s string) *Message {
	m.b.WriteString(s)
	m.offset += UTF16Len(s)
	return m
}

func (m *Message) Line() *Message {
	return m.Text("\n")
}

func (m *Message) Bold(s string) *Message {
	return m.styled("bold", s)
}

func (m *Message) Italic(s string) *Message {
	return m.styled("italic", s)
}

// Code renders s monospaced; Telegram clients copy it on tap.
func (m *Message) Code(s string) *Message {
	return m.styled("code", s)
}

func (m *Message) styled(kind, s string) *Message {
	if s == "" {
		return m
	}
	n := UTF16Len(s)
	m.entities = append(m.entities, tgbotapi.MessageEntity{
		Type:   kind,
		Offset: m.offset,
		Length: n,
	})
	m.b.WriteString(s)
	m.offset += n
	return m
}

func (m *Message) String() string {
	return m.b.String()
}

func (m *Message) Entities() []tgbotapi.MessageEntity {
	return m.entities
}

// Config returns a send config for chatID carrying the text and entities.
func (m *Message) Config(chatID int64) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, m.String())
	msg.Entities = m.entities
	return msg
}
