package mylog

import (
	"context"
	"io"
	"log/slog"
	"os"

	"govassist/app/config"

	"github.com/phsym/console-slog"
	"github.com/samber/oops"
	slogmulti "github.com/samber/slog-multi"
	slogtelegram "github.com/samber/slog-telegram/v2"
)

// TelegramKey marks records that must be forwarded to telegram regardless of level.
const TelegramKey = "telegram"

func Preinit() {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	})))
}

func Init(cfg *config.Config) error {
	handler, err := NewHandler(cfg, os.Stderr)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(handler))

	return nil
}

func NewHandler(cfg *config.Config, out io.Writer) (slog.Handler, error) {
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	router := slogmulti.Router()

	if cfg.Log.Format == "json" {
		router = router.Add(slog.NewJSONHandler(out, &slog.HandlerOptions{
			AddSource: true,
			Level:     level,
		}))
	} else {
		router = router.Add(console.NewHandler(out, &console.HandlerOptions{
			AddSource: true,
			Level:     level,
		}))
	}

	if cfg.Log.Telegram.Token != "" {
		router = router.Add(
			slogtelegram.Option{
				Level:     slog.LevelDebug,
				Token:     cfg.Log.Telegram.Token,
				Username:  cfg.Log.Telegram.ChatID,
				AddSource: true,
			}.NewTelegramHandler(),
			func(_ context.Context, r slog.Record) bool {
				return r.Level == slog.LevelError || hasTelegramAttr(r)
			},
		)
	}

	return router.Handler(), nil
}

func hasTelegramAttr(r slog.Record) bool {
	found := false

	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == TelegramKey {
			found = attr.Value.Kind() != slog.KindBool || attr.Value.Bool()
			return false
		}

		return true
	})

	return found
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if value == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(value)); err != nil {
		return level, oops.Errorf("invalid log level %q: %w", value, err)
	}

	return level, nil
}
