package channel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/stellarlinkco/nutrisnap/internal/bus"
	"github.com/stellarlinkco/nutrisnap/internal/config"
)

const (
	telegramChannelName = "telegram"
	// Telegram rejects messages over 4096 characters.
	telegramMaxLen = 4000
	// Larger photos are refused rather than buffered.
	telegramMaxFileBytes = 10 << 20
)

// TelegramBot is the subset of tgbotapi.BotAPI the channel uses.
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetSelf() tgbotapi.User
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return w.bot.Request(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

func (w *tgBotWrapper) GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error) {
	return w.bot.GetFile(config)
}

// BotFactory creates TelegramBot instances; tests swap in a fake.
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

type TelegramChannel struct {
	BaseChannel
	token      string
	bot        TelegramBot
	proxy      string
	httpClient *http.Client
	cancel     context.CancelFunc
	botFactory BotFactory
}

func NewTelegramChannel(cfg config.TelegramConfig, b *bus.MessageBus) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, b, defaultBotFactory)
}

func NewTelegramChannelWithFactory(cfg config.TelegramConfig, b *bus.MessageBus, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	ch := &TelegramChannel{
		BaseChannel: NewBaseChannel(telegramChannelName, b, cfg.AllowFrom),
		token:       cfg.Token,
		proxy:       cfg.Proxy,
		httpClient:  http.DefaultClient,
		botFactory:  factory,
	}
	return ch, nil
}

func (t *TelegramChannel) initBot() error {
	client := http.DefaultClient
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}
	t.httpClient = client

	bot, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	t.logger.Info("authorized", zap.String("username", bot.GetSelf().UserName))
	return nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if err := t.initBot(); err != nil {
		return err
	}

	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update := <-updates:
				switch {
				case update.CallbackQuery != nil:
					t.handleCallback(ctx, update.CallbackQuery)
				case update.Message != nil:
					t.handleMessage(ctx, update.Message)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	t.logger.Info("polling started")
	return nil
}

func (t *TelegramChannel) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	senderID := strconv.FormatInt(msg.From.ID, 10)

	if !t.IsAllowed(senderID) {
		t.logger.Warn("rejected message", zap.String("sender", senderID), zap.String("username", msg.From.UserName))
		return
	}

	content := msg.Text
	if content == "" && msg.Caption != "" {
		content = msg.Caption
	}

	var attachments []bus.Attachment

	if len(msg.Photo) > 0 {
		// The last size is the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		data, err := t.downloadFileData(photo.FileID)
		if err != nil {
			t.logger.Warn("download photo failed", zap.String("file_id", photo.FileID), zap.Error(err))
		} else {
			mediaType := http.DetectContentType(data)
			if !strings.HasPrefix(mediaType, "image/") {
				mediaType = "image/jpeg"
			}
			attachments = append(attachments, bus.Attachment{MediaType: mediaType, Data: data})
		}
	}

	if msg.Document != nil {
		mediaType := msg.Document.MimeType
		if mediaType != "" && !strings.HasPrefix(mediaType, "image/") {
			t.logger.Debug("ignoring non-image document", zap.String("mime_type", mediaType))
		} else if data, err := t.downloadFileData(msg.Document.FileID); err != nil {
			t.logger.Warn("download document failed", zap.String("file_id", msg.Document.FileID), zap.Error(err))
		} else {
			if mediaType == "" {
				mediaType = http.DetectContentType(data)
			}
			if strings.HasPrefix(mediaType, "image/") {
				attachments = append(attachments, bus.Attachment{
					MediaType: mediaType,
					Data:      data,
					Name:      msg.Document.FileName,
				})
			}
		}
	}

	if content == "" && len(attachments) == 0 {
		return
	}

	t.publish(ctx, bus.InboundMessage{
		Channel:     telegramChannelName,
		SenderID:    senderID,
		ChatID:      strconv.FormatInt(msg.Chat.ID, 10),
		Content:     content,
		Timestamp:   time.Unix(int64(msg.Date), 0),
		Attachments: attachments,
		Metadata: map[string]any{
			"username":   msg.From.UserName,
			"first_name": msg.From.FirstName,
			"message_id": msg.MessageID,
		},
	})
}

// handleCallback turns an inline keyboard press into the button's command.
func (t *TelegramChannel) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	if t.bot != nil {
		if _, err := t.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			t.logger.Debug("callback ack failed", zap.Error(err))
		}
	}

	senderID := strconv.FormatInt(cb.From.ID, 10)
	if !t.IsAllowed(senderID) {
		t.logger.Warn("rejected callback", zap.String("sender", senderID))
		return
	}
	if strings.TrimSpace(cb.Data) == "" {
		return
	}

	t.publish(ctx, bus.InboundMessage{
		Channel:   telegramChannelName,
		SenderID:  senderID,
		ChatID:    strconv.FormatInt(cb.Message.Chat.ID, 10),
		Content:   cb.Data,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"username": cb.From.UserName,
			"callback": true,
		},
	})
}

func (t *TelegramChannel) publish(ctx context.Context, msg bus.InboundMessage) {
	if err := t.bus.Publish(ctx, msg); err != nil {
		t.logger.Warn("drop inbound message", zap.String("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (t *TelegramChannel) downloadFileData(fileID string) ([]byte, error) {
	if t.bot == nil {
		return nil, fmt.Errorf("telegram bot not initialized")
	}

	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get telegram file: %w", err)
	}
	if file.FileSize > telegramMaxFileBytes {
		return nil, fmt.Errorf("telegram file too large: %d bytes", file.FileSize)
	}

	client := t.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Get(file.Link(t.token))
	if err != nil {
		return nil, fmt.Errorf("download telegram file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download telegram file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, telegramMaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read telegram file body: %w", err)
	}
	if len(data) > telegramMaxFileBytes {
		return nil, fmt.Errorf("telegram file too large")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("telegram file is empty")
	}

	return data, nil
}

func (t *TelegramChannel) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	t.logger.Info("stopped")
	return nil
}

// SetBot sets the bot (for testing)
func (t *TelegramChannel) SetBot(bot TelegramBot) {
	t.bot = bot
}

func (t *TelegramChannel) Send(msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	chunks := splitMessage(msg.Content, telegramMaxLen)
	for i, chunk := range chunks {
		tgMsg := tgbotapi.NewMessage(chatID, toTelegramHTML(chunk))
		tgMsg.ParseMode = tgbotapi.ModeHTML
		if i == len(chunks)-1 && len(msg.Actions) > 0 {
			tgMsg.ReplyMarkup = actionKeyboard(msg.Actions)
		}
		if _, err := t.bot.Send(tgMsg); err != nil {
			// Retry the chunk as plain text
			tgMsg.ParseMode = ""
			tgMsg.Text = chunk
			if _, err2 := t.bot.Send(tgMsg); err2 != nil {
				return fmt.Errorf("send telegram message: %w", err2)
			}
		}
	}
	return nil
}

// splitMessage cuts s into chunks of at most maxLen bytes, preferring line
// breaks. An empty s yields no chunks.
func splitMessage(s string, maxLen int) []string {
	var chunks []string
	for len(s) > 0 {
		chunk := s
		if len(chunk) > maxLen {
			if idx := strings.LastIndex(chunk[:maxLen], "\n"); idx > 0 {
				chunk = chunk[:idx]
			} else {
				chunk = chunk[:runeCut(chunk, maxLen)]
			}
		}
		s = s[len(chunk):]
		chunks = append(chunks, chunk)
	}
	return chunks
}

// runeCut backs cut up to a rune boundary. A rune wider than cut is kept whole.
func runeCut(s string, cut int) int {
	for i := cut; i > 0; i-- {
		if utf8.RuneStart(s[i]) {
			return i
		}
	}
	_, size := utf8.DecodeRuneInString(s)
	return size
}

// actionKeyboard lays out actions two per row.
func actionKeyboard(actions []bus.Action) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(actions); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(actions[i].Label, actions[i].Command),
		}
		if i+1 < len(actions) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(actions[i+1].Label, actions[i+1].Command))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// toTelegramHTML converts basic markdown to Telegram HTML.
func toTelegramHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")

	s = replacePairs(s, "```", func(code string) string {
		// Strip an optional language tag on the first line
		if nl := strings.Index(code, "\n"); nl >= 0 {
			firstLine := strings.TrimSpace(code[:nl])
			if len(firstLine) > 0 && !strings.Contains(firstLine, " ") {
				code = code[nl+1:]
			}
		}
		return "<pre>" + code + "</pre>"
	})
	s = replacePairs(s, "`", func(code string) string { return "<code>" + code + "</code>" })
	s = replacePairs(s, "**", func(text string) string { return "<b>" + text + "</b>" })
	s = replacePairs(s, "*", func(text string) string { return "<i>" + text + "</i>" })
	return s
}

// replacePairs rewrites each delim...delim span with wrap, left to right.
// An unmatched delimiter is left as is.
func replacePairs(s, delim string, wrap func(string) string) string {
	for {
		start := strings.Index(s, delim)
		if start == -1 {
			return s
		}
		end := strings.Index(s[start+len(delim):], delim)
		if end == -1 {
			return s
		}
		end += start + len(delim)
		s = s[:start] + wrap(s[start+len(delim):end]) + s[end+len(delim):]
	}
}
