/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bot

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Handler answers a single command
type Handler interface {
	Handle(ctx context.Context, cmd Command, senderID int64) Reply
}

// API is the subset of the Telegram client used by the bot.
// *tgbotapi.BotAPI implements it.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	StopReceivingUpdates()
}

// Options configures the bot runtime
type Options struct {
	// HealthAddr is the bind address of the health and metrics server;
	// empty or "0" disables it
	HealthAddr string
	// MaxConcurrent bounds the number of commands handled at once
	MaxConcurrent int
	// PollTimeout is the long polling timeout for getUpdates
	PollTimeout time.Duration
	// Username is the bot's own username; commands addressed to another bot
	// with /command@name are ignored. Empty accepts every addressee.
	Username string
}

// Bot receives commands from Telegram and sends back one reply per command
type Bot struct {
	api     API
	handler Handler
	opts    Options
	log     logr.Logger
	polling atomic.Bool
}

// NewBot creates a new Telegram bot
func NewBot(api API, handler Handler, opts Options, log logr.Logger) *Bot {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 60 * time.Second
	}
	return &Bot{
		api:     api,
		handler: handler,
		opts:    opts,
		log:     log,
	}
}

// Start polls for updates until ctx is cancelled, then waits for in-flight
// commands to finish
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(botCommands()...)); err != nil {
		b.log.Error(err, "Failed to register bot commands (continuing anyway)")
	} else {
		b.log.V(1).Info("Bot commands registered")
	}

	if b.opts.HealthAddr != "" && b.opts.HealthAddr != "0" {
		go b.startHealthServer(ctx)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.opts.PollTimeout / time.Second)
	updates := b.api.GetUpdatesChan(u)
	b.polling.Store(true)

	b.log.Info("Bot started successfully",
		"maxConcurrent", b.opts.MaxConcurrent,
		"pollTimeout", b.opts.PollTimeout.String())

	b.listen(ctx, updates)
	return nil
}

// listen dispatches updates until ctx is cancelled or the channel closes.
// Polling is stopped before waiting for in-flight commands. Updates still
// buffered in the client channel at that point were already confirmed to
// Telegram and are dropped without a reply.
func (b *Bot) listen(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	var g errgroup.Group
	g.SetLimit(b.opts.MaxConcurrent)

	// Commands already accepted run to completion during shutdown
	handlerCtx := context.WithoutCancel(ctx)

	defer func() {
		_ = g.Wait()
	}()
	defer b.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Context cancelled, stopping update loop", "dropped", len(updates))
			return
		case update, ok := <-updates:
			if !ok {
				b.log.Info("Update channel closed, stopping update loop")
				return
			}
			UpdatesTotal.Inc()
			g.Go(func() error {
				b.processUpdate(handlerCtx, update)
				return nil
			})
		}
	}
}

// processUpdate handles one update. Anything that is not a known command
// from a user is ignored.
func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	if !b.addressedToMe(msg.CommandWithAt()) {
		b.log.V(1).Info("Ignoring command for another bot", "command", msg.CommandWithAt(), "chat", msg.Chat.ID)
		return
	}

	cmd, ok := ParseCommand(msg.Command(), msg.CommandArguments())
	if !ok {
		b.log.V(1).Info("Ignoring unknown command", "command", msg.Command(), "chat", msg.Chat.ID)
		return
	}

	log := b.log.WithValues(
		"request", uuid.NewString(),
		"chat", msg.Chat.ID,
		"sender", msg.From.ID,
		"command", msg.Command())
	log.V(1).Info("Command received", "argument", cmd.Argument)

	startTime := time.Now()
	reply := b.handler.Handle(logr.NewContext(ctx, log), cmd, msg.From.ID)

	if _, err := b.api.Send(newMessage(msg.Chat.ID, reply)); err != nil {
		ReplyErrorsTotal.Inc()
		log.Error(err, "Failed to send reply")
		return
	}

	log.V(1).Info("Reply sent", "totalTimeMs", time.Since(startTime).Milliseconds())
}

// addressedToMe reports whether a "command[@name]" token is meant for this
// bot. Telegram usernames are case-insensitive.
func (b *Bot) addressedToMe(commandWithAt string) bool {
	_, name, found := strings.Cut(commandWithAt, "@")
	if !found || b.opts.Username == "" {
		return true
	}
	return strings.EqualFold(name, b.opts.Username)
}

func newMessage(chatID int64, reply Reply) tgbotapi.MessageConfig {
	out := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.HTML {
		out.ParseMode = tgbotapi.ModeHTML
	}
	if len(reply.Keyboard) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(reply.Keyboard))
		for _, text := range reply.Keyboard {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(text)))
		}
		out.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
	}
	return out
}

// Stop stops polling for updates
func (b *Bot) Stop() {
	if b.polling.Swap(false) {
		b.api.StopReceivingUpdates()
		b.log.Info("Stopped receiving updates")
	}
}

// healthHandler serves /healthz, /readyz and /metrics
func (b *Bot) healthHandler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/healthz", http.StripPrefix("/healthz", &healthz.Handler{
		Checks: map[string]healthz.Checker{"ping": healthz.Ping},
	}))
	mux.Handle("/readyz", http.StripPrefix("/readyz", &healthz.Handler{
		Checks: map[string]healthz.Checker{"updates": b.pollingCheck},
	}))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return mux
}

func (b *Bot) pollingCheck(_ *http.Request) error {
	if !b.polling.Load() {
		return errors.New("not polling for updates")
	}
	return nil
}

// startHealthServer starts HTTP server for health checks and metrics
func (b *Bot) startHealthServer(ctx context.Context) {
	server := &http.Server{
		Addr:              b.opts.HealthAddr,
		Handler:           b.healthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	b.log.Info("Starting health check server", "address", b.opts.HealthAddr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			b.log.Error(err, "Failed to shutdown health check server")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		b.log.Error(err, "Health check server failed")
	}
}
