package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/phrasebot/internal/srs"
	"github.com/example/phrasebot/pkg/models"
)

// HandleCommand routes an incoming command message.
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "help":
		return b.handleHelp(message)
	case "learn":
		return b.handleLearn(ctx, message)
	case "progress":
		return b.handleProgress(ctx, message)
	case "target":
		return b.handleTarget(ctx, message)
	case "level":
		return b.handleLevel(ctx, message)
	case "notify":
		return b.handleNotify(ctx, message)
	default:
		return b.sendText(message.Chat.ID, "Unknown command. Send /help for the list of commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	user := &models.User{
		ID:          message.From.ID,
		Username:    message.From.UserName,
		FirstName:   message.From.FirstName,
		LastName:    message.From.LastName,
		DailyTarget: models.DefaultDailyTarget,
	}
	if err := b.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %v", err)
	}

	text := fmt.Sprintf("Hello, %s! 👋\n\nI will help you learn German phrases with spaced repetition.\n\n"+
		"Send /learn to get your daily phrases.", message.From.FirstName)
	return b.sendText(message.Chat.ID, text)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) error {
	text := "📖 *Commands*\n\n" +
		"/learn — practice today's due phrases\n" +
		"/progress — your streak and accuracy\n" +
		"/target <n> — set your daily phrase quota\n" +
		"/level <A1-C2> — only practice phrases of that level (or /level off)\n" +
		"/notify <hour> — daily reminder hour (or /notify off)\n" +
		"/help — this message"
	return b.sendText(message.Chat.ID, text)
}

func (b *Bot) handleLearn(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID

	items, err := b.engine.DueItems(ctx, userID, b.config.PhrasesPerBatch)
	if err != nil {
		return fmt.Errorf("failed to select due items: %v", err)
	}
	if len(items) == 0 {
		snap, err := b.engine.Progress(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load progress: %v", err)
		}
		if snap.Completed {
			return b.sendText(message.Chat.ID, "🎉 Daily goal reached! Come back tomorrow.")
		}
		return b.sendText(message.Chat.ID, "Nothing is due right now. Check back later!")
	}

	s := &learningSession{
		Items:     items,
		StartedAt: time.Now(),
	}
	b.setSession(userID, s)
	return b.sendCard(message.Chat.ID, s)
}

func (b *Bot) handleProgress(ctx context.Context, message *tgbotapi.Message) error {
	snap, err := b.engine.Progress(ctx, message.From.ID)
	if err != nil {
		return fmt.Errorf("failed to load progress: %v", err)
	}

	text := fmt.Sprintf("📊 *Your progress*\n\n"+
		"Today: %d/%d phrases\n"+
		"Streak: %d days 🔥\n"+
		"Accuracy: %d%%\n"+
		"Total reviews: %d",
		snap.TodayCompleted, snap.TargetCount, snap.Streak, snap.Accuracy, snap.TotalReviews)
	if snap.Completed {
		text += "\n\n✅ Daily goal reached!"
	}
	return b.sendText(message.Chat.ID, text)
}

func (b *Bot) handleTarget(ctx context.Context, message *tgbotapi.Message) error {
	arg := strings.TrimSpace(message.CommandArguments())
	if arg == "" {
		return b.sendText(message.Chat.ID, "Usage: /target <number of phrases per day>")
	}
	target, err := strconv.Atoi(arg)
	if err != nil || target < 1 || target > 100 {
		return b.sendText(message.Chat.ID, "Please send a number between 1 and 100.")
	}

	user, err := b.userRepo.GetByID(ctx, message.From.ID)
	if err != nil {
		return fmt.Errorf("failed to load user: %v", err)
	}
	if user == nil {
		return b.sendText(message.Chat.ID, "Send /start first.")
	}
	user.DailyTarget = target
	if err := b.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	return b.sendText(message.Chat.ID, fmt.Sprintf("Daily target set to %d phrases. It applies starting tomorrow's quota.", target))
}

var cefrLevels = map[string]bool{"A1": true, "A2": true, "B1": true, "B2": true, "C1": true, "C2": true}

func (b *Bot) handleLevel(ctx context.Context, message *tgbotapi.Message) error {
	arg := strings.ToUpper(strings.TrimSpace(message.CommandArguments()))
	if arg == "" {
		return b.sendText(message.Chat.ID, "Usage: /level <A1-C2> or /level off")
	}

	user, err := b.userRepo.GetByID(ctx, message.From.ID)
	if err != nil {
		return fmt.Errorf("failed to load user: %v", err)
	}
	if user == nil {
		return b.sendText(message.Chat.ID, "Send /start first.")
	}

	if arg == "OFF" {
		user.Level = ""
		if err := b.userRepo.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %v", err)
		}
		return b.sendText(message.Chat.ID, "Level filter removed. You'll see phrases of every level.")
	}

	if !cefrLevels[arg] {
		return b.sendText(message.Chat.ID, "Please pick one of A1, A2, B1, B2, C1, C2 — or off.")
	}
	user.Level = arg
	if err := b.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	return b.sendText(message.Chat.ID, fmt.Sprintf("Got it, focusing on %s phrases.", arg))
}

func (b *Bot) handleNotify(ctx context.Context, message *tgbotapi.Message) error {
	arg := strings.TrimSpace(message.CommandArguments())

	user, err := b.userRepo.GetByID(ctx, message.From.ID)
	if err != nil {
		return fmt.Errorf("failed to load user: %v", err)
	}
	if user == nil {
		return b.sendText(message.Chat.ID, "Send /start first.")
	}

	if strings.EqualFold(arg, "off") {
		user.NotificationEnabled = false
		if err := b.userRepo.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %v", err)
		}
		return b.sendText(message.Chat.ID, "Reminders disabled. 🔕")
	}

	hour, err := strconv.Atoi(arg)
	if err != nil || hour < 0 || hour > 23 {
		return b.sendText(message.Chat.ID, "Usage: /notify <hour 0-23> or /notify off")
	}
	user.NotificationEnabled = true
	user.NotificationHour = hour
	if err := b.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	return b.sendText(message.Chat.ID, fmt.Sprintf("Reminders enabled at %02d:00. 🔔", hour))
}

// submitFunc matches Engine.SubmitReview.
type submitFunc func(context.Context, srs.Review) (*models.MemoryState, error)

// submitWithRetry retries a review that lost an optimistic-concurrency race.
// When every attempt loses, the last error is returned so the caller can
// tell the user instead of advancing past an unsaved review.
func submitWithRetry(ctx context.Context, submit submitFunc, rev srs.Review) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		_, err = submit(ctx, rev)
		if !errors.Is(err, srs.ErrConcurrentModification) {
			break
		}
	}
	return err
}

// HandleCallback routes inline keyboard presses.
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	// Acknowledge immediately so the client stops the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %v", err)
	}

	parts := strings.Split(callback.Data, ":")
	if len(parts) != 3 || parts[0] != "rate" {
		return nil
	}
	itemID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse item id %q: %v", parts[1], err)
	}
	rating, err := strconv.Atoi(parts[2])
	if err != nil {
		return fmt.Errorf("failed to parse rating %q: %v", parts[2], err)
	}
	return b.handleRating(ctx, callback, itemID, srs.Rating(rating))
}

func (b *Bot) handleRating(ctx context.Context, callback *tgbotapi.CallbackQuery, itemID int64, rating srs.Rating) error {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID

	s := b.session(userID)
	if s == nil {
		return b.sendText(chatID, "That session expired. Send /learn to start a new one.")
	}

	responseMs := time.Since(s.PromptedAt).Milliseconds()

	err := submitWithRetry(ctx, b.engine.SubmitReview, srs.Review{
		UserID:     userID,
		ItemID:     itemID,
		Rating:     rating,
		ResponseMs: responseMs,
	})
	if errors.Is(err, srs.ErrConcurrentModification) {
		return b.sendText(chatID, "That rating didn't go through. Please rate the card again.")
	}
	if err != nil {
		return fmt.Errorf("failed to submit review: %v", err)
	}

	// Remove the rating buttons from the answered card.
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.api.Request(edit); err != nil {
		log.Printf("Error clearing keyboard: %v", err)
	}

	s.CurrentIdx++
	if s.CurrentIdx < len(s.Items) {
		return b.sendCard(chatID, s)
	}

	b.setSession(userID, nil)

	snap, err := b.engine.Progress(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load progress: %v", err)
	}
	if snap.Completed {
		return b.sendText(chatID, fmt.Sprintf("🎉 Daily goal reached: %d/%d! Streak: %d days 🔥",
			snap.TodayCompleted, snap.TargetCount, snap.Streak))
	}
	return b.sendText(chatID, fmt.Sprintf("Batch done! %d/%d today. Send /learn for more.",
		snap.TodayCompleted, snap.TargetCount))
}
