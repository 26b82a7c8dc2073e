// Package tg is a thin Telegram Bot API client covering the methods the
// bot needs: message send/edit/delete, cached-document delivery, callback
// and inline answers, and getUpdates long polling.
package tg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	baseURL string
	hc      *http.Client
	pollHC  *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		baseURL: fmt.Sprintf("https://api.telegram.org/bot%s", token),
		hc:      &http.Client{Timeout: 9 * time.Second},
		// Long-poll requests hold the connection open server-side.
		pollHC: &http.Client{Timeout: 45 * time.Second},
	}
}

type InlineKeyboardButton struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

func NewInlineKeyboardMarkup(rows [][]InlineKeyboardButton) InlineKeyboardMarkup {
	return InlineKeyboardMarkup{InlineKeyboard: rows}
}

type Update struct {
	UpdateID      int            `json:"update_id"`
	Message       *Message       `json:"message"`
	ChannelPost   *Message       `json:"channel_post"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
	InlineQuery   *InlineQuery   `json:"inline_query"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

func (c Chat) IsPrivate() bool { return c.Type == "private" }

type Message struct {
	MessageID      int       `json:"message_id"`
	Chat           Chat      `json:"chat"`
	From           *User     `json:"from"`
	Text           string    `json:"text"`
	Caption        string    `json:"caption"`
	Document       *Document `json:"document"`
	Video          *Video    `json:"video"`
	ReplyToMessage *Message  `json:"reply_to_message"`
	ViaBot         *User     `json:"via_bot"`
}

type Document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
}

type Video struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Data    string   `json:"data"`
	Message *Message `json:"message"`
}

type InlineQuery struct {
	ID    string `json:"id"`
	From  User   `json:"from"`
	Query string `json:"query"`
}

type InlineQueryResult interface{}

type InlineQueryResultCachedDocument struct {
	Type           string                `json:"type"`
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	DocumentFileID string                `json:"document_file_id"`
	Description    string                `json:"description,omitempty"`
	Caption        string                `json:"caption,omitempty"`
	ParseMode      string                `json:"parse_mode,omitempty"`
	ReplyMarkup    *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type AnswerInlineQueryRequest struct {
	InlineQueryID string              `json:"inline_query_id"`
	Results       []InlineQueryResult `json:"results"`
	CacheTime     int                 `json:"cache_time,omitempty"`
	IsPersonal    bool                `json:"is_personal,omitempty"`
}

func (c *Client) AnswerInlineQuery(ctx context.Context, req AnswerInlineQueryRequest) error {
	return c.post(ctx, "/answerInlineQuery", req)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error {
	payload := map[string]any{"callback_query_id": callbackQueryID}
	if text != "" {
		payload["text"] = text
	}
	return c.post(ctx, "/answerCallbackQuery", payload)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.post(ctx, "/deleteMessage", map[string]any{"chat_id": chatID, "message_id": messageID})
}

type SendMessageRequest struct {
	ChatID           int64                 `json:"chat_id"`
	Text             string                `json:"text"`
	ParseMode        string                `json:"parse_mode,omitempty"`
	ReplyMarkup      *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	ReplyToMessageID int                   `json:"reply_to_message_id,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	return c.postMessage(ctx, "/sendMessage", req)
}

type SendDocumentRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Document    string                `json:"document"` // cached file_id
	Caption     string                `json:"caption,omitempty"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SendDocument re-sends an already-uploaded file by its cached file_id.
func (c *Client) SendDocument(ctx context.Context, req SendDocumentRequest) (*Message, error) {
	return c.postMessage(ctx, "/sendDocument", req)
}

type SendPhotoRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Photo       string                `json:"photo"`
	Caption     string                `json:"caption,omitempty"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) SendPhoto(ctx context.Context, req SendPhotoRequest) (*Message, error) {
	return c.postMessage(ctx, "/sendPhoto", req)
}

type EditMessageTextRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int                   `json:"message_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) EditMessageText(ctx context.Context, req EditMessageTextRequest) error {
	return c.post(ctx, "/editMessageText", req)
}

type EditMessageCaptionRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int                   `json:"message_id"`
	Caption     string                `json:"caption"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) EditMessageCaption(ctx context.Context, req EditMessageCaptionRequest) error {
	return c.post(ctx, "/editMessageCaption", req)
}

func (c *Client) CopyMessage(ctx context.Context, toChatID int64, fromChatID int64, messageID int) (int, error) {
	resp, err := c.postWithResult(ctx, "/copyMessage", map[string]any{"chat_id": toChatID, "from_chat_id": fromChatID, "message_id": messageID})
	if err != nil {
		return 0, err
	}
	var result struct {
		MessageID int `json:"message_id"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	resp, err := c.postWithResult(ctx, "/getMe", map[string]any{})
	if err != nil {
		return nil, err
	}
	var me User
	if err := json.Unmarshal(resp, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// DeleteWebhook clears any configured webhook so getUpdates polling works.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.post(ctx, "/deleteWebhook", map[string]any{"drop_pending_updates": false})
}

// GetUpdates long-polls for updates with update_id >= offset, holding the
// request open for up to timeout seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int, timeout int) ([]Update, error) {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("timeout", fmt.Sprint(timeout))
	allowed, _ := json.Marshal([]string{"message", "channel_post", "callback_query", "inline_query"})
	q.Set("allowed_updates", string(allowed))

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getUpdates?"+q.Encode(), nil)
	resp, err := c.pollHC.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram getUpdates status %d: %s", resp.StatusCode, string(body))
	}
	var out struct {
		Ok     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) postMessage(ctx context.Context, method string, payload any) (*Message, error) {
	resp, err := c.postWithResult(ctx, method, payload)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(resp, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) post(ctx context.Context, method string, payload any) error {
	_, err := c.postWithResult(ctx, method, payload)
	return err
}

func (c *Client) postWithResult(ctx context.Context, method string, payload any) ([]byte, error) {
	b, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("telegram api %s status %d: %s", method, resp.StatusCode, string(body))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Ok     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Ok {
		return wrapper.Result, nil
	}
	return body, nil
}
