package bot

import (
	"context"
	"strings"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"
)

const handlerTimeout = 30 * time.Second

// commands maps slash commands to actions. /start with a payload is treated as plain /start.
var commands = []struct {
	Action      Action
	Description string
}{
	{ActionStart, "알림 구독"},
	{ActionMenu, "메뉴 열기"},
	{ActionPrice, "현재가 조회"},
	{ActionHelp, "도움말"},
	{ActionStop, "알림 구독 해제"},
	{ActionRestart, "업데이트 후 재시작 (관리자)"},
}

// Bind registers every command and inline button of d on b.
func Bind(b *tb.Bot, d *Dispatcher) error {
	for _, c := range commands {
		action := c.Action
		b.Handle("/"+action.ID(), func(m *tb.Message) {
			ev := Event{Action: action, ChatID: m.Chat.ID, Data: strings.TrimSpace(m.Payload)}
			if m.Sender != nil {
				ev.UserID = m.Sender.ID
			}
			reply := dispatch(d, ev)
			send(d, b, m.Chat, reply)
		})
	}

	for _, action := range Actions() {
		action := action
		b.Handle(&tb.InlineButton{Unique: action.ID()}, func(c *tb.Callback) {
			if err := b.Respond(c, &tb.CallbackResponse{}); err != nil {
				d.log.Warn().Err(err).Msg("answer callback")
			}
			if c.Message == nil {
				return
			}
			ev := Event{Action: action, ChatID: c.Message.Chat.ID, Data: c.Data}
			if c.Sender != nil {
				ev.UserID = c.Sender.ID
			}
			reply := dispatch(d, ev)
			if reply.Edit {
				_, err := b.Edit(c.Message, reply.Text, sendOptions(reply))
				if err == nil {
					runAfter(reply)
					return
				}
				// pressing the same button twice leaves the message unchanged
				if strings.Contains(err.Error(), "message is not modified") {
					return
				}
				d.log.Warn().Err(err).Msg("edit failed, sending new message")
			}
			send(d, b, c.Message.Chat, reply)
		})
	}

	list := make([]tb.Command, 0, len(commands))
	for _, c := range commands {
		list = append(list, tb.Command{Text: c.Action.ID(), Description: c.Description})
	}
	return b.SetCommands(list)
}

func dispatch(d *Dispatcher, ev Event) Reply {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	return d.Dispatch(ctx, ev)
}

func send(d *Dispatcher, b *tb.Bot, chat *tb.Chat, reply Reply) {
	if _, err := b.Send(chat, reply.Text, sendOptions(reply)); err != nil {
		d.log.Error().Err(err).Int64("chat", chat.ID).Msg("reply failed")
		return
	}
	runAfter(reply)
}

func runAfter(reply Reply) {
	if reply.After != nil {
		reply.After()
	}
}

func sendOptions(reply Reply) *tb.SendOptions {
	opts := &tb.SendOptions{ParseMode: tb.ModeHTML, DisableWebPagePreview: true}
	if len(reply.Keyboard) > 0 {
		opts.ReplyMarkup = Markup(reply.Keyboard)
	}
	return opts
}

// Markup converts a keyboard into telegram inline buttons.
func Markup(rows [][]Button) *tb.ReplyMarkup {
	out := make([][]tb.InlineButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tb.InlineButton, 0, len(row))
		for _, btn := range row {
			ib := tb.InlineButton{Text: btn.Label}
			if btn.URL != "" {
				ib.URL = btn.URL
			} else {
				ib.Unique = btn.Action.ID()
				ib.Data = btn.Data
			}
			buttons = append(buttons, ib)
		}
		out = append(out, buttons)
	}
	return &tb.ReplyMarkup{InlineKeyboard: out}
}
