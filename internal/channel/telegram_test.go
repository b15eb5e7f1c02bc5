package channel

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/nutrisnap/internal/bus"
	"github.com/stellarlinkco/nutrisnap/internal/config"
)

func TestNewTelegramChannel_NoToken(t *testing.T) {
	b := bus.NewMessageBus(10)
	_, err := NewTelegramChannel(config.TelegramConfig{}, b)
	if err == nil {
		t.Error("expected error for empty token")
	}
}

func TestNewTelegramChannel_Valid(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, err := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Name() != "telegram" {
		t.Errorf("Name = %q, want telegram", ch.Name())
	}
}

func TestToTelegramHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello", "hello"},
		{"**bold**", "<b>bold</b>"},
		{"`code`", "<code>code</code>"},
		{"a & b", "a &amp; b"},
		{"<tag>", "&lt;tag&gt;"},
		{"**540 kcal** logged", "<b>540 kcal</b> logged"},
	}

	for _, tt := range tests {
		got := toTelegramHTML(tt.input)
		if got != tt.want {
			t.Errorf("toTelegramHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToTelegramHTML_CodeBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"code block with language", "```json\n{}\n```", "<pre>{}\n</pre>"},
		{"code block without language", "```\ncode here\n```", "<pre>\ncode here\n</pre>"},
		{"italic text", "*italic*", "<i>italic</i>"},
		{"mixed bold and italic", "**bold** and *italic*", "<b>bold</b> and <i>italic</i>"},
		{"unclosed code block", "```code", "<code></code>`code"},
		{"unclosed inline code", "`code", "`code"},
		{"unclosed bold", "**bold", "<i></i>bold"},
		{"unclosed italic", "*italic", "*italic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toTelegramHTML(tt.input)
			if got != tt.want {
				t.Errorf("toTelegramHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("", 10); len(got) != 0 {
		t.Errorf("splitMessage(empty) = %q, want none", got)
	}
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("splitMessage(short) = %q", got)
	}

	got := splitMessage("aaaa\nbbbb\ncccc", 10)
	if strings.Join(got, "") != "aaaa\nbbbb\ncccc" {
		t.Errorf("chunks do not reassemble: %q", got)
	}
	if len(got) != 2 || got[0] != "aaaa\nbbbb" {
		t.Errorf("splitMessage prefers line breaks, got %q", got)
	}

	got = splitMessage(strings.Repeat("x", 25), 10)
	if len(got) != 3 || len(got[0]) != 10 || len(got[2]) != 5 {
		t.Errorf("hard split = %q", got)
	}
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	for _, tt := range []struct {
		name   string
		in     string
		maxLen int
	}{
		{"emoji", strings.Repeat("🍎", 9), 10},
		{"mixed", "ab" + strings.Repeat("é", 12), 5},
		{"rune wider than limit", "🍎🍌", 2},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.in, tt.maxLen)
			if strings.Join(got, "") != tt.in {
				t.Fatalf("chunks do not reassemble: %q", got)
			}
			for i, c := range got {
				if !utf8.ValidString(c) {
					t.Errorf("chunk %d = %q is not valid UTF-8", i, c)
				}
			}
		})
	}
}

func TestActionKeyboard(t *testing.T) {
	kb := actionKeyboard([]bus.Action{
		{Label: "Add to log", Command: "/commit"},
		{Label: "Edit", Command: "/edit"},
		{Label: "Discard", Command: "/discard"},
	})
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("rows = %d, want 2", len(kb.InlineKeyboard))
	}
	if len(kb.InlineKeyboard[0]) != 2 || len(kb.InlineKeyboard[1]) != 1 {
		t.Errorf("row sizes = %d,%d, want 2,1", len(kb.InlineKeyboard[0]), len(kb.InlineKeyboard[1]))
	}
	btn := kb.InlineKeyboard[1][0]
	if btn.Text != "Discard" || btn.CallbackData == nil || *btn.CallbackData != "/discard" {
		t.Errorf("button = %+v, want Discard -> /discard", btn)
	}
}

func TestTelegramChannel_Stop_NotStarted(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)

	// Should not panic when stopping before starting
	if err := ch.Stop(); err != nil {
		t.Errorf("Stop error: %v", err)
	}
}

func TestTelegramChannel_Send_NilBot(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)

	if err := ch.Send(bus.OutboundMessage{ChatID: "123", Content: "test"}); err == nil {
		t.Error("expected error when bot is nil")
	}
}

func TestTelegramChannel_InvalidProxy(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake-token", Proxy: "://bad"}, b,
		func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
			return newMockBot(), nil
		})
	if err := ch.initBot(); err == nil {
		t.Error("expected error for invalid proxy url")
	}
}

// mockTelegramBot implements TelegramBot interface for testing
type mockTelegramBot struct {
	updatesChan chan tgbotapi.Update
	stopped     bool
	sentMsgs    []tgbotapi.Chattable
	requests    []tgbotapi.Chattable
	sendErr     error
	// failHTML rejects only messages sent with an HTML parse mode.
	failHTML   bool
	getFileErr error
	files      map[string]tgbotapi.File
	self       tgbotapi.User
}

func newMockBot() *mockTelegramBot {
	return &mockTelegramBot{
		updatesChan: make(chan tgbotapi.Update, 10),
		files:       make(map[string]tgbotapi.File),
		self:        tgbotapi.User{UserName: "testbot"},
	}
}

func (m *mockTelegramBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updatesChan
}

func (m *mockTelegramBot) StopReceivingUpdates() {
	m.stopped = true
}

func (m *mockTelegramBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sentMsgs = append(m.sentMsgs, c)
	if m.sendErr != nil {
		return tgbotapi.Message{}, m.sendErr
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok && m.failHTML && msg.ParseMode == tgbotapi.ModeHTML {
		return tgbotapi.Message{}, fmt.Errorf("bad entities")
	}
	return tgbotapi.Message{MessageID: 1}, nil
}

func (m *mockTelegramBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockTelegramBot) GetSelf() tgbotapi.User {
	return m.self
}

func (m *mockTelegramBot) GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error) {
	if m.getFileErr != nil {
		return tgbotapi.File{}, m.getFileErr
	}
	file, ok := m.files[config.FileID]
	if !ok {
		return tgbotapi.File{}, fmt.Errorf("file %q not found", config.FileID)
	}
	return file, nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// serveFiles points the channel's downloads at a test server.
func serveFiles(t *testing.T, ch *TelegramChannel, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	serverURL, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	ch.httpClient = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		clonedReq := req.Clone(req.Context())
		clonedReq.URL.Scheme = serverURL.Scheme
		clonedReq.URL.Host = serverURL.Host
		return transport.RoundTrip(clonedReq)
	})}
}

func receive(t *testing.T, b *bus.MessageBus) bus.InboundMessage {
	t.Helper()
	select {
	case msg := <-b.Inbound:
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected inbound message")
	}
	return bus.InboundMessage{}
}

func expectNone(t *testing.T, b *bus.MessageBus) {
	t.Helper()
	select {
	case msg := <-b.Inbound:
		t.Errorf("unexpected inbound message: %+v", msg)
	default:
	}
}

func TestTelegramChannel_InitBot_Success(t *testing.T) {
	b := bus.NewMessageBus(10)
	mockBot := newMockBot()
	factory := func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		return mockBot, nil
	}
	ch, _ := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake-token"}, b, factory)

	if err := ch.initBot(); err != nil {
		t.Errorf("initBot error: %v", err)
	}
	if ch.bot == nil {
		t.Error("bot should be set")
	}
}

func TestTelegramChannel_InitBot_Error(t *testing.T) {
	b := bus.NewMessageBus(10)
	factory := func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
		return nil, fmt.Errorf("auth failed")
	}
	ch, _ := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake-token"}, b, factory)

	if err := ch.initBot(); err == nil {
		t.Error("expected error from initBot")
	}
	if err := ch.Start(context.Background()); err == nil {
		t.Error("expected error from Start")
	}
}

func TestTelegramChannel_StartRoutesUpdates(t *testing.T) {
	b := bus.NewMessageBus(10)
	mockBot := newMockBot()
	ch, _ := NewTelegramChannelWithFactory(config.TelegramConfig{Token: "fake-token"}, b,
		func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
			return mockBot, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := ch.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	mockBot.updatesChan <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 2},
		Text: "/today",
	}}
	msg := receive(t, b)
	if msg.Content != "/today" || msg.ChatID != "2" || msg.SenderID != "1" {
		t.Errorf("inbound = %+v", msg)
	}

	if err := ch.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if !mockBot.stopped {
		t.Error("updates should be stopped")
	}
}

func TestTelegramChannel_HandleMessage_Text(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)

	ch.handleMessage(context.Background(), &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: 123, UserName: "ana"},
		Chat:      &tgbotapi.Chat{ID: 456},
		Text:      "/log calories",
		Date:      1700000000,
	})

	msg := receive(t, b)
	if msg.Channel != "telegram" {
		t.Errorf("channel = %q, want telegram", msg.Channel)
	}
	if msg.SessionKey() != "telegram:456" {
		t.Errorf("session key = %q, want telegram:456", msg.SessionKey())
	}
	if !msg.Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("timestamp = %v", msg.Timestamp)
	}
	if msg.Metadata["username"] != "ana" {
		t.Errorf("username metadata = %v", msg.Metadata["username"])
	}
}

func TestTelegramChannel_HandleMessage_Rejected(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token", AllowFrom: []string{"999"}}, b)

	ch.handleMessage(context.Background(), &tgbotapi.Message{
		From: &tgbotapi.User{ID: 123},
		Chat: &tgbotapi.Chat{ID: 456},
		Text: "hello",
	})
	expectNone(t, b)
}

func TestTelegramChannel_HandleMessage_Empty(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)

	ch.handleMessage(context.Background(), &tgbotapi.Message{From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}})
	ch.handleMessage(context.Background(), &tgbotapi.Message{Text: "no sender"})
	expectNone(t, b)
}

func TestTelegramChannel_HandleMessage_Photo(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	mockBot.files["photo-large"] = tgbotapi.File{FileID: "photo-large", FilePath: "photos/large.jpg"}
	ch.SetBot(mockBot)

	photoData := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00}
	serveFiles(t, ch, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/file/botfake-token/photos/large.jpg" {
			t.Errorf("download path = %q, want /file/botfake-token/photos/large.jpg", r.URL.Path)
		}
		_, _ = w.Write(photoData)
	})

	ch.handleMessage(context.Background(), &tgbotapi.Message{
		From:    &tgbotapi.User{ID: 123},
		Chat:    &tgbotapi.Chat{ID: 456},
		Caption: "lunch",
		Photo: []tgbotapi.PhotoSize{
			{FileID: "photo-small"},
			{FileID: "photo-large"},
		},
	})

	msg := receive(t, b)
	if msg.Content != "lunch" {
		t.Errorf("content = %q, want lunch", msg.Content)
	}
	att, ok := msg.Image()
	if !ok {
		t.Fatal("expected an image attachment")
	}
	if att.MediaType != "image/png" {
		t.Errorf("media type = %q, want image/png", att.MediaType)
	}
	if !bytes.Equal(att.Data, photoData) {
		t.Error("attachment data mismatch")
	}
}

func TestTelegramChannel_HandleMessage_PhotoDownloadFails(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	mockBot.getFileErr = fmt.Errorf("telegram down")
	ch.SetBot(mockBot)

	ch.handleMessage(context.Background(), &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 123},
		Chat:  &tgbotapi.Chat{ID: 456},
		Photo: []tgbotapi.PhotoSize{{FileID: "photo-large"}},
	})
	// No caption and no attachment leaves nothing to publish.
	expectNone(t, b)
}

func TestTelegramChannel_HandleMessage_FileTooLarge(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	mockBot.files["big"] = tgbotapi.File{FileID: "big", FilePath: "photos/big.jpg", FileSize: telegramMaxFileBytes + 1}
	ch.SetBot(mockBot)

	if _, err := ch.downloadFileData("big"); err == nil {
		t.Error("expected error for oversized file")
	}
}

func TestTelegramChannel_HandleMessage_ImageDocument(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	mockBot.files["doc-1"] = tgbotapi.File{FileID: "doc-1", FilePath: "docs/meal.webp"}
	ch.SetBot(mockBot)

	serveFiles(t, ch, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("webp-bytes"))
	})

	ch.handleMessage(context.Background(), &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 123},
		Chat:     &tgbotapi.Chat{ID: 456},
		Document: &tgbotapi.Document{FileID: "doc-1", FileName: "meal.webp", MimeType: "image/webp"},
	})

	msg := receive(t, b)
	att, ok := msg.Image()
	if !ok {
		t.Fatal("expected an image attachment")
	}
	if att.MediaType != "image/webp" || att.Name != "meal.webp" {
		t.Errorf("attachment = %+v", att)
	}
}

func TestTelegramChannel_HandleMessage_NonImageDocument(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	mockBot.files["doc-1"] = tgbotapi.File{FileID: "doc-1", FilePath: "docs/file.pdf"}
	ch.SetBot(mockBot)

	ch.handleMessage(context.Background(), &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 123},
		Chat:     &tgbotapi.Chat{ID: 456},
		Caption:  "menu",
		Document: &tgbotapi.Document{FileID: "doc-1", FileName: "file.pdf", MimeType: "application/pdf"},
	})

	msg := receive(t, b)
	if msg.Content != "menu" {
		t.Errorf("content = %q, want menu", msg.Content)
	}
	if len(msg.Attachments) != 0 {
		t.Errorf("attachments = %d, want 0", len(msg.Attachments))
	}
}

func TestTelegramChannel_HandleCallback(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	ch.SetBot(mockBot)

	ch.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 123},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456}},
		Data:    "/commit",
	})

	msg := receive(t, b)
	if msg.Content != "/commit" || msg.ChatID != "456" {
		t.Errorf("inbound = %+v", msg)
	}
	if len(mockBot.requests) != 1 {
		t.Fatalf("callback acks = %d, want 1", len(mockBot.requests))
	}
	if ack, ok := mockBot.requests[0].(tgbotapi.CallbackConfig); !ok || ack.CallbackQueryID != "cb-1" {
		t.Errorf("ack = %+v", mockBot.requests[0])
	}
}

func TestTelegramChannel_HandleCallback_Rejected(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token", AllowFrom: []string{"1"}}, b)
	mockBot := newMockBot()
	ch.SetBot(mockBot)

	ch.handleCallback(context.Background(), &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 123},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 456}},
		Data:    "/commit",
	})
	expectNone(t, b)
	// The spinner is cleared even for rejected presses.
	if len(mockBot.requests) != 1 {
		t.Errorf("callback acks = %d, want 1", len(mockBot.requests))
	}
}

func TestTelegramChannel_Send(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	ch.SetBot(mockBot)

	err := ch.Send(bus.OutboundMessage{
		ChatID:  "456",
		Content: "**Burrito bowl** 540 kcal",
		Actions: []bus.Action{{Label: "Add to log", Command: "/commit"}},
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(mockBot.sentMsgs) != 1 {
		t.Fatalf("sent = %d, want 1", len(mockBot.sentMsgs))
	}
	sent := mockBot.sentMsgs[0].(tgbotapi.MessageConfig)
	if sent.ChatID != 456 || sent.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("message = %+v", sent)
	}
	if sent.Text != "<b>Burrito bowl</b> 540 kcal" {
		t.Errorf("text = %q", sent.Text)
	}
	if _, ok := sent.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Errorf("reply markup = %T, want inline keyboard", sent.ReplyMarkup)
	}
}

func TestTelegramChannel_Send_LongMessageKeyboardOnLastChunk(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	ch.SetBot(mockBot)

	long := strings.Repeat("line of text\n", 500)
	err := ch.Send(bus.OutboundMessage{
		ChatID:  "1",
		Content: long,
		Actions: []bus.Action{{Label: "Today", Command: "/today"}},
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(mockBot.sentMsgs) < 2 {
		t.Fatalf("sent = %d, want at least 2 chunks", len(mockBot.sentMsgs))
	}
	for i, c := range mockBot.sentMsgs {
		msg := c.(tgbotapi.MessageConfig)
		last := i == len(mockBot.sentMsgs)-1
		if (msg.ReplyMarkup != nil) != last {
			t.Errorf("chunk %d reply markup = %v, last = %v", i, msg.ReplyMarkup, last)
		}
	}
}

func TestTelegramChannel_Send_HTMLFallback(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	mockBot.failHTML = true
	ch.SetBot(mockBot)

	if err := ch.Send(bus.OutboundMessage{ChatID: "1", Content: "**x**"}); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(mockBot.sentMsgs) != 2 {
		t.Fatalf("sent = %d, want 2", len(mockBot.sentMsgs))
	}
	retry := mockBot.sentMsgs[1].(tgbotapi.MessageConfig)
	if retry.ParseMode != "" || retry.Text != "**x**" {
		t.Errorf("retry = %+v, want plain original text", retry)
	}
}

func TestTelegramChannel_Send_Errors(t *testing.T) {
	b := bus.NewMessageBus(10)
	ch, _ := NewTelegramChannel(config.TelegramConfig{Token: "fake-token"}, b)
	mockBot := newMockBot()
	mockBot.sendErr = fmt.Errorf("network")
	ch.SetBot(mockBot)

	if err := ch.Send(bus.OutboundMessage{ChatID: "1", Content: "hi"}); err == nil {
		t.Error("expected error when both attempts fail")
	}
	if err := ch.Send(bus.OutboundMessage{ChatID: "not-a-number", Content: "hi"}); err == nil {
		t.Error("expected error for invalid chat id")
	}
}
