package bot

import (
	"fmt"
	"net/url"
	"strings"

	"bsfilter-bot/internal/search"
	"bsfilter-bot/internal/tg"
)

const (
	maxButtonText   = 60
	maxCallbackData = 64
)

// resultKeyboard renders one result page: a button per file, a navigation
// row when there is more than one page, and a close row. In private chats
// buttons fire dl| callbacks; in groups they deep-link into the private
// chat so the file never lands in the group.
func (b *Bot) resultKeyboard(view search.PageView, chat tg.Chat) tg.InlineKeyboardMarkup {
	rows := make([][]tg.InlineKeyboardButton, 0, len(view.Items)+2)
	for _, rec := range view.Items {
		btn := tg.InlineKeyboardButton{Text: buttonLabel(rec.FileSize, rec.FileName)}
		if chat.IsPrivate() || b.username == "" {
			btn.CallbackData = "dl|" + rec.UniqueID
		} else {
			btn.URL = fmt.Sprintf("https://t.me/%s?start=%s%s", b.username, deepLinkPrefix, url.QueryEscape(rec.UniqueID))
		}
		rows = append(rows, []tg.InlineKeyboardButton{btn})
	}

	if view.TotalPages > 1 {
		nav := []tg.InlineKeyboardButton{}
		if view.HasPrev {
			nav = append(nav, tg.InlineKeyboardButton{Text: "« Prev", CallbackData: fmt.Sprintf("page|%d", view.Page-1)})
		}
		nav = append(nav, tg.InlineKeyboardButton{Text: fmt.Sprintf("%d/%d", view.Page, view.TotalPages), CallbackData: "noop"})
		if view.HasNext {
			nav = append(nav, tg.InlineKeyboardButton{Text: "Next »", CallbackData: fmt.Sprintf("page|%d", view.Page+1)})
		}
		rows = append(rows, nav)
	}

	rows = append(rows, []tg.InlineKeyboardButton{{Text: "Close", CallbackData: "close"}})
	return tg.NewInlineKeyboardMarkup(rows)
}

func suggestionKeyboard(suggestions []string) tg.InlineKeyboardMarkup {
	rows := make([][]tg.InlineKeyboardButton, 0, len(suggestions)+1)
	for _, title := range suggestions {
		rows = append(rows, []tg.InlineKeyboardButton{{
			Text:         truncateBytes(title, maxButtonText),
			CallbackData: truncateBytes("sug|"+title, maxCallbackData),
		}})
	}
	rows = append(rows, []tg.InlineKeyboardButton{{Text: "Close", CallbackData: "close"}})
	return tg.NewInlineKeyboardMarkup(rows)
}

func buttonLabel(size int64, name string) string {
	label := name
	if size > 0 {
		label = fmt.Sprintf("[%s] %s", formatSizeShort(size), name)
	}
	return truncateBytes(label, maxButtonText)
}

func formatSizeShort(size int64) string {
	const unit = 1024
	switch {
	case size >= unit*unit*unit:
		return fmt.Sprintf("%.1fGB", float64(size)/(unit*unit*unit))
	case size >= unit*unit:
		return fmt.Sprintf("%.0fMB", float64(size)/(unit*unit))
	default:
		return fmt.Sprintf("%.0fKB", float64(size)/unit)
	}
}

// truncateBytes trims on a rune boundary to fit Telegram's byte limits.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	out := s
	for len(out) > max {
		r := []rune(out)
		out = string(r[:len(r)-1])
	}
	return strings.TrimSpace(out)
}
