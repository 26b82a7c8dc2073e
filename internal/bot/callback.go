package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"bsfilter-bot/internal/search"
	"bsfilter-bot/internal/session"
	"bsfilter-bot/internal/tg"
)

func (b *Bot) handleCallback(ctx context.Context, cq *tg.CallbackQuery) {
	data := strings.TrimSpace(cq.Data)

	switch {
	case data == "noop":
		_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "")

	case data == "close":
		if cq.Message != nil {
			_ = b.api.DeleteMessage(ctx, cq.Message.Chat.ID, cq.Message.MessageID)
		}
		_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "")

	case strings.HasPrefix(data, "dl|"):
		_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "")
		chatID := cq.From.ID
		if cq.Message != nil {
			chatID = cq.Message.Chat.ID
		}
		b.deliverFile(ctx, chatID, strings.TrimPrefix(data, "dl|"))

	case strings.HasPrefix(data, "page|"):
		b.handlePageFlip(ctx, cq, strings.TrimPrefix(data, "page|"))

	case strings.HasPrefix(data, "sug|"):
		_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "")
		if cq.Message == nil {
			return
		}
		b.runSearch(ctx, cq.Message.Chat, cq.From.ID, strings.TrimPrefix(data, "sug|"))

	default:
		_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "")
	}
}

func (b *Bot) handlePageFlip(ctx context.Context, cq *tg.CallbackQuery, pageStr string) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || cq.Message == nil {
		_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "")
		return
	}

	sess, err := b.sessions.Get(cq.From.ID)
	if err != nil {
		if errors.Is(err, session.ErrExpired) {
			_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "This search has expired, send your query again.")
			return
		}
		b.logger.Warn("session lookup failed", slog.Int64("user_id", cq.From.ID), slog.Any("error", err))
		_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "")
		return
	}

	view := search.Page(sess.Files, page, b.cfg.ResultsPerPage)
	kb := b.resultKeyboard(view, cq.Message.Chat)
	header := resultHeader(sess.Query, sess.TMDB, len(sess.Files))

	// Poster headers are photo messages and can only edit their caption.
	if cq.Message.Text == "" && cq.Message.Caption != "" {
		err = b.api.EditMessageCaption(ctx, tg.EditMessageCaptionRequest{
			ChatID:      cq.Message.Chat.ID,
			MessageID:   cq.Message.MessageID,
			Caption:     header,
			ParseMode:   "HTML",
			ReplyMarkup: &kb,
		})
	} else {
		err = b.api.EditMessageText(ctx, tg.EditMessageTextRequest{
			ChatID:      cq.Message.Chat.ID,
			MessageID:   cq.Message.MessageID,
			Text:        header,
			ParseMode:   "HTML",
			ReplyMarkup: &kb,
		})
	}
	if err != nil {
		b.logger.Debug("page edit failed", slog.Any("error", err))
	}
	_ = b.api.AnswerCallbackQuery(ctx, cq.ID, "")
}
