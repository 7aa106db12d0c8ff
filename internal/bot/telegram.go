// Package bot provides the Telegram front-end for tracking LP portfolios.
//
// telegram.go - command/menu dispatcher and interaction flows
// Users paste dashboard text (or screenshots), the AI extraction cascade
// turns it into structured data, and the result is saved under a 1-10 slot.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/danverbz/lpfolio/internal/config"
	"github.com/danverbz/lpfolio/internal/database"
	"github.com/danverbz/lpfolio/internal/extract"
	"github.com/danverbz/lpfolio/internal/report"
)

// Main menu button labels. Free text matching one of these is treated as a
// menu tap, everything else is routed by session state.
const (
	btnAddAccount    = "➕ Add Account"
	btnMyAccounts    = "📋 My Accounts"
	btnSummary       = "📊 Summary"
	btnAnalyze       = "📈 Analyze"
	btnUpdateHistory = "🕑 Update History"
	btnHelp          = "❓ Help"
	btnDeleteData    = "🗑 Delete All Data"
)

// Bot handles Telegram interactions for the portfolio tracker
type Bot struct {
	api       *tgbotapi.BotAPI
	cfg       *config.Config
	db        *database.Database
	extractor *extract.Client
	sessions  *Sessions
	stopCh    chan struct{}
}

// New creates the Telegram bot front-end
func New(cfg *config.Config, db *database.Database, extractor *extract.Client) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot connected")

	return &Bot{
		api:       api,
		cfg:       cfg,
		db:        db,
		extractor: extractor,
		sessions:  NewSessions(cfg.SessionTTL),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start begins the bot's update listener
func (b *Bot) Start() {
	go b.listenForUpdates()
}

// Stop stops the bot
func (b *Bot) Stop() {
	close(b.stopCh)
}

func (b *Bot) listenForUpdates() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				go b.handleMessage(update.Message)
			}
			if update.CallbackQuery != nil {
				go b.handleCallback(update.CallbackQuery)
			}
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	text := msg.Text

	log.Debug().
		Int64("chat_id", chatID).
		Str("text", text).
		Msg("Received message")

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.sessions.Reset(chatID)
			b.cmdStart(chatID)
		case "help":
			b.cmdHelp(chatID)
		default:
			b.sendText(chatID, "❓ Unknown command. Use /help or the menu below.")
		}
		return
	}

	// Screenshot input while capturing portfolio data
	if len(msg.Photo) > 0 {
		if b.sessions.State(chatID) == StateAwaitingPortfolio {
			b.handlePhoto(chatID, msg.Photo)
		} else {
			b.sendText(chatID, "📷 Tap ➕ Add Account first, then send the screenshot.")
		}
		return
	}

	// Menu buttons work from any state and discard anything pending
	switch text {
	case btnAddAccount:
		b.sessions.StartInput(chatID)
		b.sendMarkdown(chatID, `➕ *Add Account*

Paste your LP dashboard text here, or send a screenshot of it.

I'll extract the balance, points, fees and positions automatically.`)
		return
	case btnMyAccounts:
		b.sessions.Reset(chatID)
		b.cmdMyAccounts(chatID, userID)
		return
	case btnSummary:
		b.sessions.Reset(chatID)
		b.cmdSummary(chatID, userID)
		return
	case btnAnalyze:
		b.sessions.Reset(chatID)
		b.cmdAnalyzeMenu(chatID, userID)
		return
	case btnUpdateHistory:
		b.sessions.Reset(chatID)
		b.cmdUpdateHistory(chatID)
		return
	case btnHelp:
		b.cmdHelp(chatID)
		return
	case btnDeleteData:
		b.sessions.Reset(chatID)
		b.cmdDeleteData(chatID)
		return
	}

	// Free text routed by session state
	switch b.sessions.State(chatID) {
	case StateAwaitingPortfolio:
		b.runExtraction(chatID, text)
	case StateAwaitingManualBalance:
		b.handleManualBalance(chatID, userID, text)
	default:
		b.sendText(chatID, "💡 Use the menu below, or tap ➕ Add Account to paste portfolio data.")
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID
	data := cb.Data

	log.Debug().
		Int64("chat_id", chatID).
		Str("data", data).
		Msg("Received callback")

	b.api.Request(tgbotapi.NewCallback(cb.ID, ""))

	switch {
	case data == "cancel":
		b.sessions.Reset(chatID)
		b.sendText(chatID, "❌ Cancelled.")
	case strings.HasPrefix(data, "slot:"):
		slot, err := strconv.Atoi(strings.TrimPrefix(data, "slot:"))
		if err != nil || slot < 1 || slot > 10 {
			return
		}
		b.handleSlotChoice(chatID, userID, slot)
	case strings.HasPrefix(data, "analyze:"):
		id, err := strconv.ParseUint(strings.TrimPrefix(data, "analyze:"), 10, 64)
		if err != nil {
			return
		}
		b.cmdAnalyze(chatID, userID, uint(id))
	case data == "confirm_delete":
		b.confirmDelete(chatID, userID)
	case data == "cancel_delete":
		b.sendText(chatID, "👍 Nothing was deleted.")
	}
}

// Commands

func (b *Bot) cmdStart(chatID int64) {
	text := `🚀 *Welcome to LPfolio!*

Your liquidity-provider portfolio tracker.

*What I do:*
• 🔎 Read pasted dashboard text or screenshots
• 💾 Track up to 10 accounts per user
• 📊 Show totals across all your accounts
• 📈 Compare today against yesterday's snapshot

*Quick Start:*
1️⃣ Tap ➕ Add Account
2️⃣ Paste your dashboard text (or send a screenshot)
3️⃣ Pick a slot 1-10 to save it

Daily saves build your growth history. 💪`

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = mainMenuKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send start message")
	}
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `📚 *LPfolio Help*

*➕ Add Account* — paste dashboard text or send a screenshot; I extract the data and you pick a slot (1-10) to save it under.

*📋 My Accounts* — balance and points per saved account, with a drill-down into each.

*📊 Summary* — totals across every account.

*📈 Analyze* — one account in detail: day-over-day growth, each position's share and daily earnings estimate, and a claim/hold hint.

*🕑 Update History* — how daily snapshots work.

*🗑 Delete All Data* — wipe everything I stored about you (asks for confirmation).

If extraction misses your balance, I'll simply ask you to type it.`

	b.sendMarkdown(chatID, text)
}

func (b *Bot) cmdUpdateHistory(chatID int64) {
	text := `🕑 *Daily History*

Every save also stores a snapshot of that account for the current day (UTC). One snapshot per account per day — saving again the same day overwrites it.

To build a growth history, save each account once a day:
1️⃣ Open your LP dashboard
2️⃣ Tap ➕ Add Account and paste it
3️⃣ Save to the same slot as before

📈 Analyze then shows the change against the previous day's snapshot.`

	b.sendMarkdown(chatID, text)
}

func (b *Bot) cmdSummary(chatID int64, userID int64) {
	accounts, err := b.db.GetAccounts(userID)
	if err != nil {
		log.Error().Err(err).Int64("owner", userID).Msg("Failed to load accounts")
		b.sendText(chatID, "❌ Could not load your accounts, please try again.")
		return
	}
	b.sendMarkdown(chatID, report.Summary(accounts))
}

func (b *Bot) cmdMyAccounts(chatID int64, userID int64) {
	accounts, err := b.db.GetAccounts(userID)
	if err != nil {
		log.Error().Err(err).Int64("owner", userID).Msg("Failed to load accounts")
		b.sendText(chatID, "❌ Could not load your accounts, please try again.")
		return
	}
	if len(accounts) == 0 {
		b.sendText(chatID, "📋 No accounts yet. Tap ➕ Add Account to save your first one.")
		return
	}

	var lines []string
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range accounts {
		lines = append(lines, report.AccountLine(a))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("📈 Analyze slot %d", a.Slot),
				fmt.Sprintf("analyze:%d", a.ID),
			),
		))
	}

	text := fmt.Sprintf("📋 *My Accounts (%d)*\n\n%s", len(accounts), strings.Join(lines, "\n\n"))
	b.sendMarkdownWithKeyboard(chatID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) cmdAnalyzeMenu(chatID int64, userID int64) {
	accounts, err := b.db.GetAccounts(userID)
	if err != nil {
		log.Error().Err(err).Int64("owner", userID).Msg("Failed to load accounts")
		b.sendText(chatID, "❌ Could not load your accounts, please try again.")
		return
	}
	if len(accounts) == 0 {
		b.sendText(chatID, "📈 No accounts to analyze yet. Tap ➕ Add Account first.")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range accounts {
		label := fmt.Sprintf("Slot %d", a.Slot)
		if a.Name != "" {
			label = fmt.Sprintf("Slot %d — %s", a.Slot, a.Name)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("analyze:%d", a.ID)),
		))
	}

	b.sendMarkdownWithKeyboard(chatID, "📈 *Which account?*", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) cmdAnalyze(chatID int64, userID int64, accountID uint) {
	account, err := b.db.GetAccountByID(userID, accountID)
	if err != nil {
		b.sendText(chatID, "❌ Account not found.")
		return
	}

	positions, err := b.db.GetPositions(account.ID)
	if err != nil {
		log.Error().Err(err).Uint("account", account.ID).Msg("Failed to load positions")
		b.sendText(chatID, "❌ Could not load the account, please try again.")
		return
	}

	today := time.Now().UTC().Format(database.DayFormat)
	prev, err := b.db.GetPreviousSnapshot(account.ID, today)
	if err != nil {
		log.Error().Err(err).Uint("account", account.ID).Msg("Failed to load snapshot")
		b.sendText(chatID, "❌ Could not load the account, please try again.")
		return
	}

	b.sendMarkdown(chatID, report.Analysis(*account, positions, prev, b.cfg.ClaimThreshold))
}

func (b *Bot) cmdDeleteData(chatID int64) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚠️ Yes, delete everything", "confirm_delete"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel_delete"),
		),
	)
	b.sendMarkdownWithKeyboard(chatID,
		"🗑 *Delete All Data*\n\nThis removes every account, position and history row I have for you. It cannot be undone.",
		keyboard)
}

func (b *Bot) confirmDelete(chatID int64, userID int64) {
	if err := b.db.DeleteAllForOwner(userID); err != nil {
		log.Error().Err(err).Int64("owner", userID).Msg("Failed to delete owner data")
		b.sendText(chatID, "❌ Deletion failed, nothing was removed. Please try again.")
		return
	}
	b.sendText(chatID, "🗑 All your data has been deleted.")
}

// Data-input flow

func (b *Bot) runExtraction(chatID int64, text string) {
	b.sendText(chatID, "⏳ Reading your dashboard...")

	rec := b.extractor.ExtractFromText(context.Background(), text)
	b.finishExtraction(chatID, rec)
}

func (b *Bot) handlePhoto(chatID int64, photos []tgbotapi.PhotoSize) {
	b.sendText(chatID, "⏳ Reading your screenshot...")

	// Telegram lists sizes smallest-first; take the largest
	fileID := photos[len(photos)-1].FileID
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve photo URL")
		b.sendText(chatID, "❌ Couldn't download the photo. Try sending it again, or paste the text instead.")
		return
	}

	image, err := downloadFile(url)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to download photo")
		b.sendText(chatID, "❌ Couldn't download the photo. Try sending it again, or paste the text instead.")
		return
	}

	rec := b.extractor.ExtractFromImage(context.Background(), image, "image/jpeg")
	b.finishExtraction(chatID, rec)
}

func (b *Bot) finishExtraction(chatID int64, rec *extract.Record) {
	if rec == nil {
		// Stay in capture mode so the user can retry with cleaner input
		b.sendText(chatID, "❌ I couldn't read that. Try pasting a cleaner copy of the dashboard, or a sharper screenshot.")
		return
	}

	b.sessions.SetPreview(chatID, rec)
	b.sendMarkdownWithKeyboard(chatID, report.Preview(rec), slotKeyboard(rec.SlotHint()))
}

func (b *Bot) handleSlotChoice(chatID int64, userID int64, slot int) {
	rec, _ := b.sessions.Pending(chatID)
	if rec == nil || b.sessions.State(chatID) != StatePreviewing {
		b.sendText(chatID, "⌛ That preview expired. Tap ➕ Add Account to start over.")
		return
	}

	if !rec.HasBalance() {
		b.sessions.AwaitManualBalance(chatID, slot)
		b.sendMarkdown(chatID, fmt.Sprintf(
			"🔢 I couldn't detect a balance for slot %d.\n\nType the account balance as a number (e.g. `640.50`):", slot))
		return
	}

	b.persist(chatID, userID, slot, rec)
}

func (b *Bot) handleManualBalance(chatID int64, userID int64, text string) {
	value, err := parseBalance(text)
	if err != nil {
		// Reprompt in place, no write occurs
		b.sendText(chatID, "⚠️ That doesn't look like a number. Try something like 640.50:")
		return
	}

	rec, slot := b.sessions.Pending(chatID)
	if rec == nil || slot == 0 {
		b.sendText(chatID, "⌛ That session expired. Tap ➕ Add Account to start over.")
		b.sessions.Reset(chatID)
		return
	}

	rec.SetBalance(value)
	b.persist(chatID, userID, slot, rec)
}

func (b *Bot) persist(chatID int64, userID int64, slot int, rec *extract.Record) {
	current, previous, err := b.db.SaveAccount(userID, slot, rec)

	// Either way the interaction is over; never leave a half-saved preview around
	b.sessions.Reset(chatID)

	if err != nil {
		log.Error().Err(err).Int64("owner", userID).Int("slot", slot).Msg("Save failed")
		b.sendText(chatID, "❌ Saving failed, nothing was stored. Please try again.")
		return
	}

	b.sendMarkdown(chatID, report.SaveConfirmation(current, previous))
}

// parseBalance turns a typed balance into a decimal, tolerating thousand
// separators and a leading currency sign. Negative balances are rejected.
func parseBalance(text string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse balance %q: %w", text, err)
	}
	if value.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("balance %q is negative", text)
	}
	return value, nil
}

// Keyboards

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAddAccount),
			tgbotapi.NewKeyboardButton(btnMyAccounts),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSummary),
			tgbotapi.NewKeyboardButton(btnAnalyze),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnUpdateHistory),
			tgbotapi.NewKeyboardButton(btnHelp),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDeleteData),
		),
	)
}

// slotKeyboard lays out the ten save targets in two rows of five, marking the
// slot the extractor detected in the input, plus a cancel row.
func slotKeyboard(hint int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for start := 1; start <= 6; start += 5 {
		var row []tgbotapi.InlineKeyboardButton
		for n := start; n < start+5; n++ {
			label := strconv.Itoa(n)
			if n == hint {
				label = "📌 " + label
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("slot:%d", n)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", "cancel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Helpers

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (b *Bot) sendMarkdownWithKeyboard(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func downloadFile(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 20<<20))
}
