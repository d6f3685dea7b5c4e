package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"ai-post-scheduler/internal/apply"
	"ai-post-scheduler/internal/config"
	"ai-post-scheduler/internal/importer"
	"ai-post-scheduler/internal/metrics"
	"ai-post-scheduler/internal/records"
	"ai-post-scheduler/internal/schedule"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API around the scheduling operations.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.Config
	store        records.Store
	runner       *apply.Runner
	mover        *schedule.Mover
	metricsStore *metrics.Store

	// pending holds the last validated preview per chat until the operator
	// confirms or discards it. Callback data is capped at 64 bytes, so the
	// preview itself lives here.
	mu      sync.Mutex
	pending map[int64]*importer.SchedulePreview
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	store records.Store,
	runner *apply.Runner,
	metricsStore *metrics.Store,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		cfg:          cfg,
		store:        store,
		runner:       runner,
		mover:        schedule.NewMover(store),
		metricsStore: metricsStore,
		pending:      make(map[int64]*importer.SchedulePreview),
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		if update.CallbackQuery.From.ID == b.cfg.TelegramAllowUserID {
			b.handleCallbackQuery(update.CallbackQuery)
		}
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.From.ID != b.cfg.TelegramAllowUserID {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)",
			update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	if msg.Document != nil {
		b.handleImportDocument(msg)
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "/plan":
		b.handlePlanCommand(msg, fields[1:])
	case "/move":
		b.handleMoveCommand(msg, fields[1:])
	case "/apply":
		b.applyPending(msg.Chat.ID)
	case "/metrics":
		b.handleMetricsCommand(msg.Chat.ID)
	default:
		b.reply(msg.Chat.ID, "Commands:\n"+
			"/plan <start> <end> <cadence> — generate posting slots\n"+
			"/move <key> <date> — move a committed post\n"+
			"/apply — write the pending preview\n"+
			"/metrics — recent apply runs\n"+
			"Or send a CSV file to import.")
	}
}

// handlePlanCommand builds and renders a plan: /plan 2024-01-01 2024-01-31 3
func (b *Bot) handlePlanCommand(msg *tgbotapi.Message, args []string) {
	if len(args) != 3 {
		b.reply(msg.Chat.ID, "Usage: /plan <start> <end> <posts-per-week>")
		return
	}

	cadence, err := strconv.Atoi(args[2])
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Cadence must be a number, got %q", args[2]))
		return
	}

	plan, err := b.buildPlan(args[0], args[1], cadence)
	if err != nil {
		b.replyError(msg.Chat.ID, "Error building plan", err)
		return
	}

	b.replyMarkdown(msg.Chat.ID, formatPlanMarkdown(plan))
}

// formatPlanMarkdown renders a plan for a Telegram message.
func formatPlanMarkdown(plan *schedule.GeneratedPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓️ *%s*: %d slots\n\n", plan.Platform, plan.TotalSlots)
	for _, slot := range plan.Slots {
		fmt.Fprintf(&sb, "%s  %s  %s\n", slot.Date.Format(schedule.DateLayout), slot.Weekday[:3], slot.PostingTime)
	}
	return sb.String()
}

// handleMoveCommand relocates a post: /move 2024-01-15-instagram 2024-01-20
func (b *Bot) handleMoveCommand(msg *tgbotapi.Message, args []string) {
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /move <record-key> <target-date>")
		return
	}
	b.moveRecord(msg.Chat.ID, args[0], args[1], false)
}

func (b *Bot) moveRecord(chatID int64, key, target string, overwrite bool) {
	targetDate, err := time.ParseInLocation(schedule.DateLayout, target, b.cfg.Timezone)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Invalid target date %q", target))
		return
	}

	result := b.mover.Move(context.Background(), key, targetDate, schedule.MoveOptions{
		Overwrite: overwrite,
		Today:     time.Now().In(b.cfg.Timezone),
	})
	switch {
	case result.Err != nil:
		b.replyError(chatID, "Move failed", result.Err)
	case result.NeedsConfirmOverwrite:
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("♻️ Replace it", "move|"+key+"|"+target),
				tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "cancel"),
			),
		)
		reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("A post already exists on %s. Replace it?", target))
		reply.ReplyMarkup = keyboard
		b.api.Send(reply)
	default:
		b.reply(chatID, fmt.Sprintf("✅ Moved %s to %s.", key, target))
	}
}

// handleImportDocument downloads an attached CSV, validates it against a
// fresh plan, and offers an Apply button. The plan parameters ride in the
// file caption: "<start> <end> <cadence>".
func (b *Bot) handleImportDocument(msg *tgbotapi.Message) {
	params := strings.Fields(msg.Caption)
	if len(params) != 3 {
		b.reply(msg.Chat.ID, "Attach the CSV with a caption: <start> <end> <posts-per-week>")
		return
	}
	cadence, err := strconv.Atoi(params[2])
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Cadence must be a number, got %q", params[2]))
		return
	}

	url, err := b.api.GetFileDirectURL(msg.Document.FileID)
	if err != nil {
		b.replyError(msg.Chat.ID, "Could not fetch the file", err)
		return
	}
	resp, err := http.Get(url)
	if err != nil {
		b.replyError(msg.Chat.ID, "Could not download the file", err)
		return
	}
	defer resp.Body.Close()

	rows, parseErrors := importer.ParseRows(resp.Body)
	if len(parseErrors) > 0 {
		b.replyMarkdown(msg.Chat.ID, "❌ *Parse errors:*\n"+bulletList(parseErrors))
		return
	}

	plan, err := b.buildPlan(params[0], params[1], cadence)
	if err != nil {
		b.replyError(msg.Chat.ID, "Error building plan", err)
		return
	}

	recs, err := b.store.List(context.Background())
	if err != nil {
		b.replyError(msg.Chat.ID, "Error reading committed posts", err)
		return
	}
	blocked := schedule.BlockedFromRecords(recs, b.cfg.DefaultPlatform)

	result := importer.Validate(plan, rows, blocked)
	if !result.Valid {
		b.replyMarkdown(msg.Chat.ID, "❌ *Validation errors:*\n"+bulletList(result.Errors))
		return
	}

	preview := importer.ApplyToPlan(plan, rows)
	b.mu.Lock()
	b.pending[msg.Chat.ID] = preview
	b.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *Preview*: %d dated, %d auto-assigned", preview.ManualDateCount, preview.AutoDateCount)
	if result.SkippedTotal > 0 {
		fmt.Fprintf(&sb, ", %d outside the plan", result.SkippedTotal)
	}
	sb.WriteString("\n\n")
	for _, row := range preview.Rows {
		fmt.Fprintf(&sb, "%s %s — %s\n", row.Date.Format(schedule.DateLayout), row.PostingTime, truncate(row.StarterText, 40))
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Apply", "apply"),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Discard", "discard"),
		),
	)
	reply := tgbotapi.NewMessage(msg.Chat.ID, sb.String())
	reply.ParseMode = "Markdown"
	reply.ReplyMarkup = keyboard
	b.api.Send(reply)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))
	chatID := query.Message.Chat.ID

	switch {
	case query.Data == "apply":
		b.applyPending(chatID)

	case query.Data == "discard":
		b.mu.Lock()
		delete(b.pending, chatID)
		b.mu.Unlock()
		b.reply(chatID, "Preview discarded.")

	case strings.HasPrefix(query.Data, "move|"):
		parts := strings.Split(query.Data, "|")
		if len(parts) == 3 {
			b.moveRecord(chatID, parts[1], parts[2], true)
		}

	case query.Data == "cancel":
		b.reply(chatID, "Move cancelled.")
	}
}

// applyPending writes the chat's pending preview and reports the tally. The
// preview is consumed either way, so a retry needs a fresh import.
func (b *Bot) applyPending(chatID int64) {
	b.mu.Lock()
	preview := b.pending[chatID]
	delete(b.pending, chatID)
	b.mu.Unlock()
	if preview == nil {
		b.reply(chatID, "Nothing pending to apply.")
		return
	}

	summary := b.runner.Apply(context.Background(), preview)
	if b.metricsStore != nil {
		_ = b.metricsStore.Record(context.Background(), metrics.ApplyRunMetric{
			Platform:         preview.Platform,
			Created:          summary.Created,
			Skipped:          summary.Skipped,
			Failed:           summary.Failed,
			CaptionLatencyMS: summary.CaptionLatencyMS,
		})
	}

	text := fmt.Sprintf("✅ Applied: %d created, %d skipped, %d failed.", summary.Created, summary.Skipped, summary.Failed)
	if len(summary.Errors) > 0 {
		text += "\n" + bulletList(summary.Errors)
	}
	b.reply(chatID, text)
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	if b.metricsStore == nil {
		b.reply(chatID, "Metrics require a database-backed store.")
		return
	}
	runs, err := b.metricsStore.Recent(context.Background(), 10)
	if err != nil {
		b.replyError(chatID, "Error loading metrics", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 *Recent apply runs*\n\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%s %s: %d created, %d skipped, %d failed\n",
			r.RanAt.Format("01-02 15:04"), r.Platform, r.Created, r.Skipped, r.Failed)
	}

	dataPath := b.cfg.RecordStorePath
	if dataPath == "" {
		dataPath = filepath.Dir(b.cfg.DatabasePath)
	}
	health := metrics.GetSysHealth(dataPath)
	fmt.Fprintf(&sb, "\n🩺 *Bot health*\nMem: %d MB (sys %d MB), GC: %d\nGoroutines: %d\nData on disk: %s\n",
		health.AllocMB, health.SysMB, health.NumGC, health.Goroutines, health.DataDiskSize)

	b.replyMarkdown(chatID, sb.String())
}

func (b *Bot) buildPlan(start, end string, cadence int) (*schedule.GeneratedPlan, error) {
	startDate, err := time.Parse(schedule.DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endDate, err := time.Parse(schedule.DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}

	recs, err := b.store.List(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to list committed records: %w", err)
	}
	blocked := schedule.BlockedFromRecords(recs, b.cfg.DefaultPlatform)

	return schedule.BuildPlan(startDate, endDate, cadence, b.cfg.DefaultPlatform, blocked)
}

func (b *Bot) reply(chatID int64, text string) {
	b.api.Send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	b.api.Send(msg)
}

func (b *Bot) replyError(chatID int64, prefix string, err error) {
	log.Printf("%s: %v", prefix, err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	b.replyMarkdown(chatID, fmt.Sprintf("❌ *%s:*\n```\n%v\n```", prefix, safeErr))
}

func bulletList(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	return sb.String()
}

func truncate(s string, n int) string {
	// Count runes, not bytes, so multibyte captions are never cut mid-rune.
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
