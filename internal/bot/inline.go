package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bsfilter-bot/internal/model"
	"bsfilter-bot/internal/search"
	"bsfilter-bot/internal/tg"
)

const maxInlineResults = 50

// handleInlineQuery answers @botname queries with cached documents so a
// result can be posted straight into any chat.
func (b *Bot) handleInlineQuery(ctx context.Context, q *tg.InlineQuery) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		b.answerInlineEmpty(ctx, q.ID)
		return
	}

	res, err := b.matcher.Search(ctx, query, b.cache.Snapshot())
	if err != nil || res.Kind != search.KindMatches {
		b.answerInlineEmpty(ctx, q.ID)
		return
	}

	files := res.Files
	if len(files) > maxInlineResults {
		files = files[:maxInlineResults]
	}
	results := make([]tg.InlineQueryResult, 0, len(files))
	for _, rec := range files {
		results = append(results, tg.InlineQueryResultCachedDocument{
			Type:           "document",
			ID:             rec.UniqueID,
			Title:          rec.FileName,
			DocumentFileID: rec.FileID,
			Description:    inlineDescription(rec),
			Caption:        rec.FileName,
		})
	}

	if err := b.api.AnswerInlineQuery(ctx, tg.AnswerInlineQueryRequest{
		InlineQueryID: q.ID,
		Results:       results,
		CacheTime:     5,
		IsPersonal:    false,
	}); err != nil {
		b.logger.Debug("inline answer failed", slog.Any("error", err))
	}
}

func (b *Bot) answerInlineEmpty(ctx context.Context, queryID string) {
	_ = b.api.AnswerInlineQuery(ctx, tg.AnswerInlineQueryRequest{
		InlineQueryID: queryID,
		Results:       []tg.InlineQueryResult{},
		CacheTime:     1,
		IsPersonal:    true,
	})
}

func inlineDescription(rec model.FileRecord) string {
	if rec.FileSize > 0 {
		return fmt.Sprintf("Size: %s", model.FormatSize(rec.FileSize))
	}
	return ""
}
