package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bsfilter-bot/internal/model"
	"bsfilter-bot/internal/search"
	"bsfilter-bot/internal/session"
	"bsfilter-bot/internal/store"
	"bsfilter-bot/internal/tg"
)

const deepLinkPrefix = "dl_"

func (b *Bot) handleMessage(ctx context.Context, msg *tg.Message) {
	if msg.From == nil || msg.ViaBot != nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		b.handleStart(ctx, msg, text)
	case text == "/help":
		b.reply(ctx, msg.Chat.ID, "Send me a movie or series name and I will look for it.\n\nCommands:\n/start - register\n/help - this message")
	case text == "/stats":
		b.handleStats(ctx, msg)
	case strings.HasPrefix(text, "/del "):
		b.handleDelete(ctx, msg, strings.TrimSpace(strings.TrimPrefix(text, "/del")))
	case text == "/broadcast":
		b.handleBroadcast(ctx, msg)
	case strings.HasPrefix(text, "/"):
		// Unknown command, ignore.
	default:
		b.runSearch(ctx, msg.Chat, msg.From.ID, text)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tg.Message, text string) {
	if err := b.store.PutUser(ctx, msg.From.ID); err != nil {
		b.logger.Warn("user registration failed", slog.Int64("user_id", msg.From.ID), slog.Any("error", err))
	}

	// Deep link: /start dl_<unique_id> delivers the file in private chat.
	args := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
	if strings.HasPrefix(args, deepLinkPrefix) {
		b.deliverFile(ctx, msg.Chat.ID, strings.TrimPrefix(args, deepLinkPrefix))
		return
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Hi %s! Send me a movie or series name and I will look for it.", name))
}

func (b *Bot) handleStats(ctx context.Context, msg *tg.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	users, err := b.store.CountUsers(ctx)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, "Stats unavailable: "+err.Error())
		return
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Indexed files: %d\nUsers: %d", b.cache.Len(), users))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tg.Message, uniqueID string) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	if uniqueID == "" {
		b.reply(ctx, msg.Chat.ID, "Usage: /del <unique_id>")
		return
	}
	removed, err := b.cache.Remove(ctx, uniqueID)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, "Delete failed: "+err.Error())
		return
	}
	if !removed {
		b.reply(ctx, msg.Chat.ID, "Not found")
		return
	}
	b.reply(ctx, msg.Chat.ID, "Deleted "+uniqueID)
}

func (b *Bot) handleBroadcast(ctx context.Context, msg *tg.Message) {
	if !b.isAdmin(msg.From.ID) {
		return
	}
	if msg.ReplyToMessage == nil {
		b.reply(ctx, msg.Chat.ID, "Reply to the message you want to broadcast with /broadcast")
		return
	}
	ids, err := b.store.ListUserIDs(ctx)
	if err != nil {
		b.reply(ctx, msg.Chat.ID, "Broadcast failed: "+err.Error())
		return
	}
	sent := 0
	for _, id := range ids {
		if _, err := b.api.CopyMessage(ctx, id, msg.Chat.ID, msg.ReplyToMessage.MessageID); err != nil {
			b.logger.Debug("broadcast copy failed", slog.Int64("user_id", id), slog.Any("error", err))
			continue
		}
		sent++
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Broadcast sent to %d of %d users", sent, len(ids)))
}

func (b *Bot) handleChannelPost(ctx context.Context, msg *tg.Message) {
	if b.cfg.ChannelID != 0 && msg.Chat.ID != b.cfg.ChannelID {
		return
	}
	rec, ok := recordFromMessage(msg)
	if !ok {
		return
	}
	added, err := b.cache.Add(ctx, rec)
	if err != nil {
		b.logger.Warn("indexing failed", slog.String("file", rec.FileName), slog.Any("error", err))
		return
	}
	if added {
		b.logger.Info("indexed file", slog.String("file", rec.FileName), slog.String("unique_id", rec.UniqueID))
	}
}

// recordFromMessage extracts an indexable file from a channel post. Videos
// without a filename fall back to the caption's first line.
func recordFromMessage(msg *tg.Message) (model.FileRecord, bool) {
	caption := strings.TrimSpace(msg.Caption)
	switch {
	case msg.Document != nil:
		name := msg.Document.FileName
		if name == "" {
			name = captionTitle(caption, "File_"+msg.Document.FileUniqueID)
		}
		return model.FileRecord{
			FileName: name,
			FileSize: msg.Document.FileSize,
			FileID:   msg.Document.FileID,
			UniqueID: msg.Document.FileUniqueID,
			Caption:  caption,
		}, true
	case msg.Video != nil:
		name := msg.Video.FileName
		if name == "" {
			name = captionTitle(caption, "Video_"+msg.Video.FileUniqueID+".mp4")
		}
		return model.FileRecord{
			FileName: name,
			FileSize: msg.Video.FileSize,
			FileID:   msg.Video.FileID,
			UniqueID: msg.Video.FileUniqueID,
			Caption:  caption,
		}, true
	}
	return model.FileRecord{}, false
}

func captionTitle(caption, fallback string) string {
	line, _, _ := strings.Cut(caption, "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}

func (b *Bot) runSearch(ctx context.Context, chat tg.Chat, userID int64, query string) {
	res, err := b.matcher.Search(ctx, query, b.cache.Snapshot())
	if err != nil {
		if errors.Is(err, search.ErrQueryTooShort) {
			b.replyEphemeral(ctx, chat.ID, "Query too short, send at least 2 characters.")
			return
		}
		b.logger.Warn("search failed", slog.String("query", query), slog.Any("error", err))
		b.replyEphemeral(ctx, chat.ID, "Search failed, try again later.")
		return
	}

	switch res.Kind {
	case search.KindNoData:
		searchesTotal.WithLabelValues("no_data").Inc()
		b.replyEphemeral(ctx, chat.ID, "Nothing is indexed yet, check back later.")
	case search.KindNoMatch:
		searchesTotal.WithLabelValues("no_match").Inc()
		if len(res.Suggestions) == 0 {
			b.replyEphemeral(ctx, chat.ID, fmt.Sprintf("No results for %q.", query))
			return
		}
		kb := suggestionKeyboard(res.Suggestions)
		_, err := b.api.SendMessage(ctx, tg.SendMessageRequest{
			ChatID:      chat.ID,
			Text:        fmt.Sprintf("No results for %q. Did you mean:", query),
			ReplyMarkup: &kb,
		})
		if err != nil {
			b.logger.Warn("send suggestions failed", slog.Any("error", err))
		}
	case search.KindMatches:
		searchesTotal.WithLabelValues("matches").Inc()
		b.sendResults(ctx, chat, userID, query, res.Files)
	}
}

func (b *Bot) sendResults(ctx context.Context, chat tg.Chat, userID int64, query string, files []model.FileRecord) {
	var meta *session.TitleMeta
	if b.meta != nil && b.meta.Enabled() {
		if t, err := b.meta.Lookup(ctx, b.matcher.BaseTitle(query)); err != nil {
			b.logger.Debug("metadata lookup failed", slog.String("query", query), slog.Any("error", err))
		} else if t != nil {
			title := t.Name
			if t.Year != "" {
				title = fmt.Sprintf("%s (%s)", t.Name, t.Year)
			}
			meta = &session.TitleMeta{Title: title, Rating: t.Rating, Overview: t.Overview, Poster: t.Poster}
		}
	}
	b.sessions.Put(userID, query, files, meta)

	view := search.Page(files, 1, b.cfg.ResultsPerPage)
	kb := b.resultKeyboard(view, chat)
	header := resultHeader(query, meta, len(files))

	// With a poster the header rides on the photo's caption.
	var msg *tg.Message
	var err error
	if meta != nil && meta.Poster != "" {
		msg, err = b.api.SendPhoto(ctx, tg.SendPhotoRequest{
			ChatID:      chat.ID,
			Photo:       meta.Poster,
			Caption:     header,
			ParseMode:   "HTML",
			ReplyMarkup: &kb,
		})
	} else {
		msg, err = b.api.SendMessage(ctx, tg.SendMessageRequest{
			ChatID:      chat.ID,
			Text:        header,
			ParseMode:   "HTML",
			ReplyMarkup: &kb,
		})
	}
	if err != nil {
		b.logger.Warn("send results failed", slog.Any("error", err))
		return
	}
	if msg != nil {
		b.scheduleDelete(ctx, chat.ID, msg.MessageID)
	}
}

func resultHeader(query string, meta *session.TitleMeta, total int) string {
	var sb strings.Builder
	if meta != nil {
		sb.WriteString("<b>" + htmlEscape(meta.Title) + "</b>\n")
		if meta.Rating > 0 {
			fmt.Fprintf(&sb, "Rating: %.1f/10\n", meta.Rating)
		}
		if meta.Overview != "" {
			sb.WriteString("\n" + htmlEscape(truncate(meta.Overview, 300)) + "\n")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Found %d file(s) for <b>%s</b>:", total, htmlEscape(query))
	return sb.String()
}

func (b *Bot) deliverFile(ctx context.Context, chatID int64, uniqueID string) {
	rec, err := b.cache.Get(ctx, uniqueID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			b.replyEphemeral(ctx, chatID, "This file is no longer available.")
			return
		}
		b.logger.Warn("file lookup failed", slog.String("unique_id", uniqueID), slog.Any("error", err))
		b.replyEphemeral(ctx, chatID, "Delivery failed, try again later.")
		return
	}

	minutes := int(b.cfg.DeleteDelay.Minutes())
	caption := fmt.Sprintf("%s\nSize: %s\n\nThis file will be deleted in %d minute(s), save it now.",
		rec.FileName, model.FormatSize(rec.FileSize), minutes)
	msg, err := b.api.SendDocument(ctx, tg.SendDocumentRequest{
		ChatID:   chatID,
		Document: rec.FileID,
		Caption:  caption,
	})
	if err != nil {
		b.logger.Warn("send document failed", slog.String("unique_id", uniqueID), slog.Any("error", err))
		b.replyEphemeral(ctx, chatID, "Delivery failed, try again later.")
		return
	}
	deliveredTotal.Inc()
	if msg != nil {
		b.scheduleDelete(ctx, chatID, msg.MessageID)
	}
}

func (b *Bot) scheduleDelete(ctx context.Context, chatID int64, messageID int) {
	if err := b.queue.Schedule(ctx, chatID, messageID, b.cfg.DeleteDelay); err != nil {
		b.logger.Warn("schedule delete failed",
			slog.Int64("chat_id", chatID), slog.Int("message_id", messageID), slog.Any("error", err))
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.api.SendMessage(ctx, tg.SendMessageRequest{ChatID: chatID, Text: text}); err != nil {
		b.logger.Warn("send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// replyEphemeral sends a notice that is auto-deleted after the configured
// delay so transient errors do not pile up in the chat.
func (b *Bot) replyEphemeral(ctx context.Context, chatID int64, text string) {
	msg, err := b.api.SendMessage(ctx, tg.SendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		b.logger.Warn("send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return
	}
	if msg != nil {
		b.scheduleDelete(ctx, chatID, msg.MessageID)
	}
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
