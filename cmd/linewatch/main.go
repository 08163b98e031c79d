package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/moonwalker/linewatch/pkg/alerts"
	"github.com/moonwalker/linewatch/pkg/alerts/catalog"
	"github.com/moonwalker/linewatch/pkg/alerts/engine"
	"github.com/moonwalker/linewatch/pkg/archive"
	"github.com/moonwalker/linewatch/pkg/env"
	"github.com/moonwalker/linewatch/pkg/feed"
	"github.com/moonwalker/linewatch/pkg/history"
	"github.com/moonwalker/linewatch/pkg/notify"
	"github.com/moonwalker/linewatch/pkg/runner"
	"github.com/moonwalker/linewatch/pkg/seenstore"
)

var leveler = &slog.LevelVar{}

func main() {
	setupLogging()

	err := run()
	if err != nil {
		slog.Error("linewatch failed", "err", err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := catalog.Register()
	if err != nil {
		return err
	}

	overrides, err := alerts.LoadOverrides(env.Get("LW_OVERRIDES", "alerts.yaml"))
	if err != nil {
		return err
	}

	hist := newHistory()
	eng, err := engine.New(engine.Config{
		Overrides: overrides,
		LogDir:    env.Get("LW_LOG_DIR", "log"),
		Seen: seenstore.Config{
			Backend:     env.Get("LW_SEEN_BACKEND", "file"),
			Dir:         env.Get("LW_SEEN_DIR", "seen"),
			RedisURL:    os.Getenv("LW_REDIS_URL"),
			PostgresURL: os.Getenv("LW_POSTGRES_URL"),
			NatsURL:     os.Getenv("LW_NATS_URL"),
			Bucket:      os.Getenv("LW_SEEN_BUCKET"),
		},
		Notifier: newNotifier(),
		History:  hist,
	})
	if err != nil {
		return err
	}
	defer eng.Close()
	if hist != nil {
		defer hist.Close()
	}

	interval := time.Duration(env.GetInt("LW_STATS_INTERVAL", 300)) * time.Second
	eng.OnStats(interval, func(stats *engine.Stats) {
		slog.Info("engine stats",
			"active", stats.Active,
			"passes", stats.Passes,
			"firings", stats.Firings,
			"deliveries", stats.Deliveries,
			"deliveryFailures", stats.DeliveryFailures,
		)
	})

	archiver := newArchiver()

	// push mode when a subject is configured, scheduled pulls otherwise
	subject := os.Getenv("LW_NATS_SUBJECT")
	if len(subject) > 0 {
		src := feed.NewNatsSource(env.Get("LW_NATS_URL", "nats://127.0.0.1:4222"), subject, env.Get("LW_NATS_QUEUE", "linewatch"))
		user, seed := os.Getenv("LW_NATS_NKEY_USER"), os.Getenv("LW_NATS_NKEY_SEED")
		if len(user) > 0 && len(seed) > 0 {
			src.SetNKeys(user, seed)
		}

		slog.Info("listening for snapshots", "subject", subject)
		err = runner.New(nil, eng, archiver).Listen(ctx, src)
	} else {
		var src feed.Source
		if path := os.Getenv("LW_FEED_FILE"); len(path) > 0 {
			src = &feed.FileSource{Path: path}
		} else {
			src = feed.NewHTTPSource(env.Must("LW_FEED_URL"))
		}

		schedule := os.Getenv("LW_SCHEDULE")
		slog.Info("running passes", "schedule", schedule)
		err = runner.New(src, eng, archiver).Schedule(ctx, schedule)
	}
	if err != nil {
		return err
	}

	stats := eng.Stats()
	slog.Info("shutdown",
		"passes", stats.Passes,
		"firings", stats.Firings,
		"deliveries", stats.Deliveries,
		"deliveryFailures", stats.DeliveryFailures,
	)

	return nil
}

func newNotifier() notify.Notifier {
	token := os.Getenv("LW_TELEGRAM_TOKEN")
	chat := os.Getenv("LW_TELEGRAM_CHAT")
	if len(token) > 0 && len(chat) > 0 {
		return notify.NewTelegram(token, chat)
	}

	slog.Warn("no telegram credentials, alerts go to stdout")
	return notify.NewConsole(os.Stdout)
}

func newHistory() history.Recorder {
	url := os.Getenv("LW_ELASTIC_URL")
	if len(url) == 0 {
		return nil
	}

	rec, err := history.NewElastic(url)
	if err != nil {
		slog.Warn("history disabled, elastic unreachable", "err", err.Error())
		return nil
	}
	return rec
}

func newArchiver() runner.Archiver {
	bucket := os.Getenv("LW_ARCHIVE_BUCKET")
	if len(bucket) == 0 {
		return nil
	}

	a, err := archive.New(archive.Config{
		Endpoint:  os.Getenv("LW_ARCHIVE_ENDPOINT"),
		Region:    os.Getenv("LW_ARCHIVE_REGION"),
		Bucket:    bucket,
		AccessKey: env.Must("LW_ARCHIVE_ACCESS_KEY"),
		SecretKey: env.Must("LW_ARCHIVE_SECRET_KEY"),
	})
	if err != nil {
		slog.Warn("archiver disabled", "err", err.Error())
		return nil
	}
	return a
}

func setupLogging() {
	setLevel(os.Getenv("LOG_LEVEL"))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: leveler})))
}

// set log level, default info
func setLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		leveler.Set(slog.LevelDebug)
	case "INFO", "":
		leveler.Set(slog.LevelInfo)
	case "WARN":
		leveler.Set(slog.LevelWarn)
	case "ERROR":
		leveler.Set(slog.LevelError)
	}
}
