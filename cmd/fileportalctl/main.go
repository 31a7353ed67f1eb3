// Утилита оператора File Portal: миграции, заведение пользователей,
// демо-данные, выпуск приглашений и сверка хранилища с БД.
// Использует ту же конфигурацию (FP_*) и ту же БД, что и сервер.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/bigkaa/goartstore/fileportal/internal/config"
)

// command — подкоманда утилиты.
type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"migrate":       {"применить миграции БД", runMigrate},
	"create-user":   {"создать учётную запись", runCreateUser},
	"seed-demo":     {"создать демо-пользователей по ролям и странам", runSeedDemo},
	"list-users":    {"вывести пользователей", runListUsers},
	"issue-invites": {"выпустить коды приглашения", runIssueInvites},
	"list-invites":  {"вывести приглашения", runListInvites},
	"reconcile":     {"сверить хранилище с БД", runReconcile},
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		usage(os.Stdout)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "неизвестная команда %q\n\n", name)
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, logger, os.Stdout)
	defer a.Close()

	err = cmd.run(ctx, a, os.Args[2:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Error("Команда завершилась с ошибкой",
			slog.String("command", name),
			slog.String("error", err.Error()),
		)
		a.Close()
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Использование: fileportalctl <команда> [флаги]")
	fmt.Fprintln(w, "\nКоманды:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w, "\nФлаги команды: fileportalctl <команда> -h")
}
