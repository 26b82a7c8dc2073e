// Package bot wires the Telegram update stream to the search pipeline:
// commands, channel indexing, text search, pagination callbacks, inline
// queries and timed file delivery.
package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"bsfilter-bot/internal/cache"
	"bsfilter-bot/internal/config"
	"bsfilter-bot/internal/deletequeue"
	"bsfilter-bot/internal/search"
	"bsfilter-bot/internal/session"
	"bsfilter-bot/internal/store"
	"bsfilter-bot/internal/tg"
	"bsfilter-bot/internal/tmdb"
)

var (
	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_updates_total",
		Help: "Processed Telegram updates by kind.",
	}, []string{"kind"})
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_searches_total",
		Help: "Search requests by outcome.",
	}, []string{"outcome"})
	deliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_files_delivered_total",
		Help: "Files delivered to users.",
	})
)

// API is the slice of the Telegram client the bot calls.
type API interface {
	SendMessage(ctx context.Context, req tg.SendMessageRequest) (*tg.Message, error)
	SendDocument(ctx context.Context, req tg.SendDocumentRequest) (*tg.Message, error)
	SendPhoto(ctx context.Context, req tg.SendPhotoRequest) (*tg.Message, error)
	EditMessageText(ctx context.Context, req tg.EditMessageTextRequest) error
	EditMessageCaption(ctx context.Context, req tg.EditMessageCaptionRequest) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error
	AnswerInlineQuery(ctx context.Context, req tg.AnswerInlineQueryRequest) error
	CopyMessage(ctx context.Context, toChatID int64, fromChatID int64, messageID int) (int, error)
}

// MetaProvider supplies optional title metadata for result headers.
type MetaProvider interface {
	Enabled() bool
	Lookup(ctx context.Context, query string) (*tmdb.Title, error)
}

type Bot struct {
	cfg      config.Config
	api      API
	store    store.Store
	cache    *cache.FileCache
	matcher  *search.Matcher
	sessions *session.Store
	queue    *deletequeue.Queue
	meta     MetaProvider
	logger   *slog.Logger

	// Learned via getMe, used for group deep links.
	username string
}

func New(cfg config.Config, api API, st store.Store, fc *cache.FileCache, m *search.Matcher, sessions *session.Store, q *deletequeue.Queue, meta MetaProvider, logger *slog.Logger) *Bot {
	return &Bot{
		cfg:      cfg,
		api:      api,
		store:    st,
		cache:    fc,
		matcher:  m,
		sessions: sessions,
		queue:    q,
		meta:     meta,
		logger:   logger.With(slog.String("component", "bot")),
	}
}

// SetUsername records the bot's own username for group deep links.
func (b *Bot) SetUsername(name string) { b.username = name }

func (b *Bot) isAdmin(userID int64) bool {
	return b.cfg.AdminID != 0 && userID == b.cfg.AdminID
}

// HandleUpdate dispatches one update. It never returns an error: handler
// failures are logged and the update is considered consumed.
func (b *Bot) HandleUpdate(ctx context.Context, upd tg.Update) {
	switch {
	case upd.ChannelPost != nil:
		updatesTotal.WithLabelValues("channel_post").Inc()
		b.handleChannelPost(ctx, upd.ChannelPost)
	case upd.Message != nil:
		updatesTotal.WithLabelValues("message").Inc()
		b.handleMessage(ctx, upd.Message)
	case upd.CallbackQuery != nil:
		updatesTotal.WithLabelValues("callback_query").Inc()
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.InlineQuery != nil:
		updatesTotal.WithLabelValues("inline_query").Inc()
		b.handleInlineQuery(ctx, upd.InlineQuery)
	}
}

// Poller long-polls getUpdates and feeds the bot. Used when no webhook is
// configured.
type Poller struct {
	client *tg.Client
	bot    *Bot
	logger *slog.Logger
}

func NewPoller(client *tg.Client, bot *Bot, logger *slog.Logger) *Poller {
	return &Poller{client: client, bot: bot, logger: logger.With(slog.String("component", "poller"))}
}

func (p *Poller) Run(ctx context.Context) {
	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn("deleteWebhook failed", slog.Any("error", err))
	}
	p.logger.Info("polling started")

	offset := 0
	for {
		if ctx.Err() != nil {
			p.logger.Info("polling stopped")
			return
		}
		updates, err := p.client.GetUpdates(ctx, offset, 30)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("polling stopped")
				return
			}
			p.logger.Warn("polling error", slog.Any("error", err))
			time.Sleep(2 * time.Second)
			continue
		}
		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			uctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			p.bot.HandleUpdate(uctx, upd)
			cancel()
		}
	}
}
