package bot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/phrasebot/internal/database"
	"github.com/example/phrasebot/internal/srs"
	"github.com/example/phrasebot/pkg/models"
)

// MenuButton represents a button in an inline menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// learningSession represents a user's ongoing batch of due phrases. The
// session only carries presentation state; every scheduling decision goes
// through the engine.
type learningSession struct {
	Items      []models.Item
	CurrentIdx int
	PromptedAt time.Time
	StartedAt  time.Time
}

// Bot is the Telegram adapter over the scheduling engine.
type Bot struct {
	api      *tgbotapi.BotAPI
	engine   *srs.Engine
	userRepo *database.UserRepository
	config   *Config

	mu       sync.Mutex
	sessions map[int64]*learningSession
}

// New creates a new bot instance
func New(token string, engine *srs.Engine, userRepo *database.UserRepository, config *Config) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %v", err)
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Bot{
		api:      api,
		engine:   engine,
		userRepo: userRepo,
		config:   config,
		sessions: make(map[int64]*learningSession),
	}, nil
}

// Start begins processing updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	log.Printf("Authorized on account %s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop shuts down the update channel.
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		log.Printf("Error handling update: %v", err)
	}
}

// SendReminders implements scheduler.Notifier: tell the user how many
// phrases wait for review.
func (b *Bot) SendReminders(userID int64, count int) error {
	text := fmt.Sprintf("🇩🇪 %d phrases are due for review. Send /learn to practice!", count)
	msg := tgbotapi.NewMessage(userID, text)
	_, err := b.api.Send(msg)
	return err
}

// session returns the user's active learning session, dropping stale ones.
func (b *Bot) session(userID int64) *learningSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	if !ok {
		return nil
	}
	if time.Since(s.StartedAt) > b.config.SessionTimeout {
		delete(b.sessions, userID)
		return nil
	}
	return s
}

func (b *Bot) setSession(userID int64, s *learningSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil {
		delete(b.sessions, userID)
		return
	}
	b.sessions[userID] = s
}

// sendCard shows the current phrase of the session with rating buttons.
func (b *Bot) sendCard(chatID int64, s *learningSession) error {
	item := s.Items[s.CurrentIdx]
	s.PromptedAt = time.Now()

	text := fmt.Sprintf("🇩🇪 *%s*\n🇬🇧 %s", item.German, item.English)
	if item.Example != "" {
		text += fmt.Sprintf("\n\n_%s_", item.Example)
	}

	scale := b.engine.Policy().Scale()
	var row []MenuButton
	for r := srs.Rating(1); scale.Contains(r); r++ {
		row = append(row, MenuButton{
			Text:         scale.Name(r),
			CallbackData: fmt.Sprintf("rate:%d:%d", item.ID, int(r)),
		})
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = createKeyboard([][]MenuButton{row})
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(msg)
	return err
}
