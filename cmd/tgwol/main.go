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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/quagsirus/tgwol/internal/bot"
	"github.com/quagsirus/tgwol/internal/config"
	"github.com/quagsirus/tgwol/internal/device"
	"github.com/quagsirus/tgwol/internal/logging"
	"github.com/quagsirus/tgwol/internal/wol"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version    = "Unknown"
	repository = "https://github.com/quagsirus/tgwol"
)

var (
	setupLog = logf.Log.WithName("setup")
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	var configPath string
	var logLevel string
	var healthAddr string
	var maxConcurrent int
	var pollTimeout time.Duration

	flag.StringVar(&configPath, "config", settings.ConfigPath,
		"Config file, with or without extension (.toml, .yaml, .yml, .json are tried in order)")
	flag.StringVar(&logLevel, "log-level", settings.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&healthAddr, "health-bind-address", settings.HealthAddr,
		"Address for /healthz, /readyz and /metrics; \"0\" disables the server")
	flag.IntVar(&maxConcurrent, "max-concurrent", settings.MaxConcurrent, "Maximum number of commands handled at once")
	flag.DurationVar(&pollTimeout, "poll-timeout", settings.PollTimeout, "Long polling timeout for Telegram updates")

	opts := zap.Options{
		Development: false,
	}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	logger, err := logging.New(logLevel, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logf.SetLogger(logger)

	if maxConcurrent < 1 {
		setupLog.Error(nil, "max-concurrent must be at least 1", "maxConcurrent", maxConcurrent)
		os.Exit(1)
	}

	path, err := config.ResolveFile(configPath)
	if err != nil {
		setupLog.Error(err, "Failed to find configuration file", "config", configPath)
		os.Exit(1)
	}
	source := config.FileSource{Path: path}

	boot, err := config.LoadBootstrap(source)
	if err != nil {
		setupLog.Error(err, "Failed to load configuration", "file", path)
		os.Exit(1)
	}

	sender, err := wol.NewSender(boot.Network, logf.Log.WithName("sender"))
	if err != nil {
		setupLog.Error(err, "Invalid network settings", "file", path)
		os.Exit(1)
	}

	registry := device.NewRegistry(source, logf.Log.WithName("registry"))
	guard := device.NewGuard(registry, logf.Log.WithName("guard"))
	router := bot.NewRouter(guard, boot.Separator, sender, bot.HelpInfo{
		Name:       "tgwol",
		Version:    version,
		Repository: repository,
	}, logf.Log.WithName("router"))

	setupLog.Info("Starting tgwol",
		"version", version,
		"config", path,
		"target", sender.Target(),
		"separator", string(boot.Separator))

	api, err := tgbotapi.NewBotAPI(boot.Token)
	if err != nil {
		setupLog.Error(err, "Failed to connect to Telegram")
		os.Exit(1)
	}
	setupLog.Info("Authorized with Telegram", "account", api.Self.UserName)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	watcher := config.NewWatcher(path, logf.Log.WithName("watcher"))
	go func() {
		if err := watcher.Start(ctx); err != nil {
			setupLog.Error(err, "Config watcher stopped")
		}
	}()

	b := bot.NewBot(api, router, bot.Options{
		HealthAddr:    healthAddr,
		MaxConcurrent: maxConcurrent,
		PollTimeout:   pollTimeout,
		Username:      api.Self.UserName,
	}, logf.Log.WithName("bot"))

	if err := b.Start(ctx); err != nil {
		setupLog.Error(err, "Bot failed")
		os.Exit(1)
	}

	setupLog.Info("Bot stopped gracefully")
}
