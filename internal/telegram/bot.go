package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"wellness-companion/internal/backend"
	"wellness-companion/internal/chat"
	"wellness-companion/internal/checkin"
	"wellness-companion/internal/config"
	"wellness-companion/internal/orchestrator"
	"wellness-companion/internal/parser"
	"wellness-companion/internal/router"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API and wires chat messages through the intent
// router into the orchestrator, the check-in scheduler, and the backend.
type Bot struct {
	api      *tgbotapi.BotAPI
	cfg      *config.Config
	client   backend.Client
	orch     *orchestrator.Orchestrator
	sched    *checkin.Scheduler
	history  *checkin.History
	chatRepo *chat.Repository

	// inbox serializes message handling: one handler runs to completion
	// before the next buffered message is processed.
	inbox chan *tgbotapi.Message
	done  chan struct{}

	mu         sync.Mutex
	lastChatID int64
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	client backend.Client,
	orch *orchestrator.Orchestrator,
	sched *checkin.Scheduler,
	history *checkin.History,
	chatRepo *chat.Repository,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:      api,
		cfg:      cfg,
		client:   client,
		orch:     orch,
		sched:    sched,
		history:  history,
		chatRepo: chatRepo,
		inbox:    make(chan *tgbotapi.Message, 64),
		done:     make(chan struct{}),
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

// Start launches the single worker that drains the inbox.
func (b *Bot) Start() {
	go b.run()
}

// Stop ends the worker. Buffered messages are dropped.
func (b *Bot) Stop() {
	close(b.done)
}

func (b *Bot) run() {
	for {
		select {
		case msg := <-b.inbox:
			b.processMessage(msg)
		case <-b.done:
			return
		}
	}
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}

	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	select {
	case b.inbox <- update.Message:
	default:
		log.Printf("Inbox full, dropping message from chat %d", update.Message.Chat.ID)
	}
}

// OnCooldownExpired is wired as the scheduler's wake callback: it offers the
// next check-in as soon as the cooldown ends.
func (b *Bot) OnCooldownExpired() {
	b.mu.Lock()
	chatID := b.lastChatID
	b.mu.Unlock()
	if chatID == 0 {
		return
	}
	b.reply(chatID, "I'm ready for your next check-in whenever you are. Just send /checkin 💜")
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	b.mu.Lock()
	b.lastChatID = msg.Chat.ID
	b.mu.Unlock()

	b.record(chat.SenderUser, msg.Text)

	switch msg.Text {
	case "/start":
		b.reply(msg.Chat.ID, "Hi! I'm your wellness companion. 💜\nSend /checkin for a burnout check-in, ask me to *plan* your week, or just tell me how you're doing.")
		return
	case "/checkin":
		b.handleCheckinRequest(msg.Chat.ID)
		return
	case "/cancel":
		b.sendAll(msg.Chat.ID, b.orch.Cancel(context.Background()))
		return
	case "/status":
		b.handleStatus(msg.Chat.ID)
		return
	}

	decision := router.Route(b.orch.Status(), msg.Text)
	switch decision.Branch {
	case router.BranchDayConsent:
		b.sendAll(msg.Chat.ID, b.orch.DecideDay(context.Background(), decision.Consent == router.ConsentAffirmative))
	case router.BranchBatchConsent:
		b.sendAll(msg.Chat.ID, b.orch.DecideBatch(context.Background(), decision.Consent == router.ConsentAffirmative))
	case router.BranchConsentRetry:
		b.reply(msg.Chat.ID, "Please reply yes or no.")
	case router.BranchPlanning:
		b.handlePlanningRequest(msg.Chat.ID)
	case router.BranchSupport:
		if b.tryCheckinAnswer(msg.Chat.ID, msg.Text) {
			return
		}
		b.handleSupportRequest(msg.Chat.ID, msg.Text)
	}
}

func (b *Bot) handleCheckinRequest(chatID int64) {
	if q, ok := b.sched.OpenQuestion(); ok {
		b.reply(chatID, formatQuestion(q))
		return
	}

	now := time.Now()
	if !b.sched.Available(now) {
		remaining := b.sched.CooldownRemaining(now)
		b.reply(chatID, fmt.Sprintf("Next check-in unlocks in about %d min. I'll let you know. 💜", int(remaining.Minutes())+1))
		return
	}

	b.askNextQuestion(chatID)
}

func (b *Bot) askNextQuestion(chatID int64) {
	q, err := b.client.NextQuestion(context.Background())
	if err != nil {
		log.Printf("Failed to fetch next question: %v", err)
		b.reply(chatID, "Sorry, I couldn't fetch the next question. Please try /checkin again in a moment.")
		return
	}

	b.sched.SetOpenQuestion(q.QID, q.Text)
	b.reply(chatID, formatQuestion(checkin.Question{QID: q.QID, Text: q.Text}))
}

// tryCheckinAnswer consumes a bare 1..5 reply when a check-in question is
// open. Returns false when the message is not an answer.
func (b *Bot) tryCheckinAnswer(chatID int64, text string) bool {
	q, ok := b.sched.OpenQuestion()
	if !ok {
		return false
	}

	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return false
	}
	if value < 1 || value > 5 {
		b.reply(chatID, "Please answer with a number from 1 to 5.")
		return true
	}

	res, err := b.client.Answer(context.Background(), q.QID, value)
	if err != nil {
		log.Printf("Failed to record answer: %v", err)
		b.reply(chatID, "Sorry, I couldn't record that answer. Please try again.")
		return true
	}

	score, _ := b.sched.Score()
	if res.BS != nil {
		score = checkin.Clamp(*res.BS * 100)
	}
	now := time.Now()
	cooldown := b.sched.RecordAnswer(score, now)

	if err := b.history.RecordSnapshot(context.Background(), q.QID, value, score); err != nil {
		log.Printf("Warning: failed to persist check-in snapshot: %v", err)
	}

	if cooldown == 0 {
		// Still in the initial assessment: next question follows right away.
		b.reply(chatID, fmt.Sprintf("Recorded. Burnout score: %.0f/100.", score))
		b.askNextQuestion(chatID)
		return true
	}

	b.reply(chatID, fmt.Sprintf("Recorded. Burnout score: %.0f/100.\nNext check-in in about %.0f min. 💜", score, cooldown.Minutes()))
	return true
}

func (b *Bot) handlePlanningRequest(chatID int64) {
	statusMsg := tgbotapi.NewMessage(chatID, "🧘 *Thinking...* \n(Reviewing your calendar for wellbeing slots)")
	statusMsg.ParseMode = "Markdown"
	sent, err := b.api.Send(statusMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx := context.Background()
	b.orch.BeginPlanning()

	res, err := b.client.StartPlanning(ctx, backend.StartPlanningRequest{
		Email: b.cfg.UserEmail,
		User:  b.cfg.UserName,
		Days:  b.cfg.PlanningDays,
	})
	if err != nil {
		log.Printf("Planning call failed: %v", err)
		b.orch.Reset()
		b.edit(chatID, sent.MessageID, "Sorry, I couldn't reach the planner. Please try again in a moment.")
		return
	}

	if res.Finished && res.SessionID == "" {
		b.orch.Reset()
		text := finishedPlanningText(*res)
		b.edit(chatID, sent.MessageID, text)
		b.record(chat.SenderAssistant, text)
		return
	}

	parsed := parser.Parse(res.RawText)
	analysis := parsed.Analysis
	if analysis == "" {
		analysis = "Here's what I found."
	}
	b.edit(chatID, sent.MessageID, analysis)
	b.record(chat.SenderAssistant, analysis)

	if b.cfg.LegacyBatchConsent {
		b.sendAll(chatID, b.orch.StartBatchConsent(parsed.Proposals, res.SessionID))
		return
	}
	b.sendAll(chatID, b.orch.StartReview(parsed.Proposals, res.SessionID))
}

// finishedPlanningText picks the message for a planning run that finished
// without opening a session. The backend may still have written prose into
// the raw planning text even when there is nothing to review.
func finishedPlanningText(res backend.PlanningResult) string {
	if res.LoginURL != "" {
		return fmt.Sprintf("Your calendar isn't connected yet. Authorize here first: %s", res.LoginURL)
	}
	if res.Message != "" {
		return res.Message
	}
	if analysis := parser.Parse(res.RawText).Analysis; analysis != "" {
		return analysis
	}
	return "Nothing to plan right now."
}

func (b *Bot) handleSupportRequest(chatID int64, text string) {
	reply, err := b.client.Support(context.Background(), b.cfg.UserName, text)
	if err != nil {
		log.Printf("Support call failed: %v", err)
		b.reply(chatID, "Sorry, I couldn't process that right now. Please try again in a moment.")
		return
	}
	b.reply(chatID, reply)
}

func (b *Bot) handleStatus(chatID int64) {
	var sb strings.Builder
	sb.WriteString("📊 *Status*\n\n")

	fmt.Fprintf(&sb, "• Review: %s\n", strings.ToLower(string(b.orch.Status())))

	if score, ok := b.sched.Score(); ok {
		fmt.Fprintf(&sb, "• Burnout score: %.0f/100\n", score)
	} else {
		sb.WriteString("• Burnout score: no check-ins yet\n")
	}
	fmt.Fprintf(&sb, "• Check-ins answered: %d\n", b.sched.CompletedCount())

	if remaining := b.sched.CooldownRemaining(time.Now()); remaining > 0 {
		fmt.Fprintf(&sb, "• Next check-in in about %d min\n", int(remaining.Minutes())+1)
	} else {
		sb.WriteString("• Check-in available now\n")
	}

	b.reply(chatID, sb.String())
}

func formatQuestion(q checkin.Question) string {
	return fmt.Sprintf("%s\n\nReply with a number from 1 to 5.", q.Text)
}

// reply sends one assistant message and appends it to the transcript.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
	b.record(chat.SenderAssistant, text)
}

func (b *Bot) sendAll(chatID int64, texts []string) {
	for _, t := range texts {
		b.reply(chatID, t)
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

func (b *Bot) record(sender chat.Sender, text string) {
	if b.chatRepo == nil {
		return
	}
	if err := b.chatRepo.Append(context.Background(), chat.NewMessage(sender, text)); err != nil {
		log.Printf("Warning: failed to persist chat message: %v", err)
	}
}
