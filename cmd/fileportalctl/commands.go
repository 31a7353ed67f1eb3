package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bigkaa/goartstore/fileportal/internal/database"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/model"
	"github.com/bigkaa/goartstore/fileportal/internal/domain/rbac"
	"github.com/bigkaa/goartstore/fileportal/internal/service"
)

func runMigrate(_ context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := database.Migrate(a.cfg, a.logger); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Миграции применены")
	return nil
}

func runCreateUser(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	username := fs.String("username", "", "имя пользователя (обязательно)")
	password := fs.String("password", "", "пароль (обязательно)")
	role := fs.String("role", rbac.RoleUser, "роль: super, admin, user, country")
	countries := fs.String("countries", "", "страны через запятую (для роли country)")
	email := fs.String("email", "", "e-mail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return errors.New("флаги -username и -password обязательны")
	}

	users, err := a.users(ctx)
	if err != nil {
		return err
	}
	in := service.CreateUserInput{
		Username:  *username,
		Password:  *password,
		Role:      *role,
		Countries: splitCSV(*countries),
	}
	if *email != "" {
		in.Email = email
	}
	u, err := users.Create(ctx, nil, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Создан пользователь %s (id=%s, role=%s, countries=%s)\n",
		u.Username, u.ID, u.Role, strings.Join(u.Countries, ","))
	return nil
}

func runSeedDemo(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("seed-demo", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	users, err := a.users(ctx)
	if err != nil {
		return err
	}
	for _, in := range demoAccounts(a.cfg.Countries) {
		u, err := users.Create(ctx, nil, in)
		switch {
		case errors.Is(err, service.ErrConflict):
			fmt.Fprintf(a.out, "%-20s пропущен: уже существует\n", in.Username)
		case err != nil:
			return fmt.Errorf("создание %s: %w", in.Username, err)
		default:
			fmt.Fprintf(a.out, "%-20s %-8s пароль %s\n", u.Username, u.Role, in.Password)
		}
	}
	return nil
}

// demoAccounts — демо-учётные записи: по одной на роль
// и по одной роли country на каждую настроенную страну.
func demoAccounts(countries []string) []service.CreateUserInput {
	accounts := []service.CreateUserInput{
		demoAccount("demo_super", "Super", rbac.RoleSuper, nil),
		demoAccount("demo_admin", "Admin", rbac.RoleAdmin, nil),
		demoAccount("demo_editor", "Editor", rbac.RoleUser, nil),
	}
	for _, c := range countries {
		c = strings.ToUpper(c)
		accounts = append(accounts, demoAccount(
			"demo_country_"+strings.ToLower(c), "Country"+c, rbac.RoleCountry, []string{c}))
	}
	return accounts
}

func demoAccount(username, label, role string, countries []string) service.CreateUserInput {
	email := strings.ReplaceAll(username, "_", ".") + "@example.com"
	return service.CreateUserInput{
		Username:  username,
		Password:  "Demo" + label + "!23",
		Email:     &email,
		Role:      role,
		Countries: countries,
	}
}

func runListUsers(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("list-users", flag.ContinueOnError)
	role := fs.String("role", "", "фильтр по роли")
	limit := fs.Int("limit", 1000, "максимум записей")
	if err := fs.Parse(args); err != nil {
		return err
	}

	users, err := a.users(ctx)
	if err != nil {
		return err
	}
	var filters model.UserFilters
	if *role != "" {
		filters.Role = role
	}
	items, total, err := users.List(ctx, nil, filters, *limit, 0)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tCOUNTRIES\tACTIVE\tEMAIL")
	for _, u := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n",
			u.Username, u.Role, orDash(strings.Join(u.Countries, ",")), u.Active, orDash(deref(u.Email)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Всего: %d\n", total)
	return nil
}

func runIssueInvites(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("issue-invites", flag.ContinueOnError)
	count := fs.Int("count", 1, "количество кодов")
	length := fs.Int("length", 6, "длина генерируемого кода")
	country := fs.String("country", "", "страна для роли country (пусто — роль user)")
	code := fs.String("code", "", "явный код (только при -count 1)")
	ttl := fs.String("ttl", "", "срок действия (например 72h, 0 — бессрочно, пусто — по умолчанию)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ttlValue, err := parseOptionalDuration(*ttl)
	if err != nil {
		return err
	}
	in := service.IssueInvitesInput{Count: *count, Length: *length, TTL: ttlValue}
	if *country != "" {
		in.Country = country
	}
	if *code != "" {
		in.Code = code
	}

	invites, err := a.invites(ctx)
	if err != nil {
		return err
	}
	issued, err := invites.Issue(ctx, nil, in)
	if err != nil {
		return err
	}
	for _, inv := range issued {
		expires := "бессрочно"
		if inv.ExpiresAt != nil {
			expires = inv.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", inv.Code, orDash(deref(inv.Country)), expires)
	}
	return nil
}

func runListInvites(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("list-invites", flag.ContinueOnError)
	state := fs.String("state", "", "фильтр: open, used, revoked, expired")
	limit := fs.Int("limit", 100, "максимум записей")
	if err := fs.Parse(args); err != nil {
		return err
	}

	invites, err := a.invites(ctx)
	if err != nil {
		return err
	}
	items, total, err := invites.List(ctx, nil, *state, *limit, 0)
	if err != nil {
		return err
	}

	now := invites.Now()
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCOUNTRY\tSTATE\tCREATED_BY\tUSED_BY")
	for _, inv := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			inv.Code, orDash(deref(inv.Country)), inv.State(now), inv.CreatedBy, orDash(deref(inv.UsedBy)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Всего: %d\n", total)

	open, err := invites.HasOpen(ctx)
	if err != nil {
		return err
	}
	if !open && a.cfg.InviteCode == "" {
		fmt.Fprintln(a.out, "Открытых приглашений нет: саморегистрация сейчас невозможна")
	}
	return nil
}

func runReconcile(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	verify := fs.Bool("verify", false, "пересчитать checksum каждого blob-а")
	if err := fs.Parse(args); err != nil {
		return err
	}

	files, err := a.files(ctx)
	if err != nil {
		return err
	}
	report, err := files.Reconcile(ctx, service.ReconcileOptions{VerifyChecksums: *verify})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Записей в БД: %d\n", report.Records)
	fmt.Fprintf(a.out, "Sidecar перезаписано: %d\n", report.SidecarsWritten)
	printList(a, "Перенесены в область по статусу", report.Relocated)
	printList(a, "Записи без blob-а", report.MissingBlobs)
	printList(a, "Blob-ы без записи", report.OrphanBlobs)
	if *verify {
		printList(a, "Checksum не совпадает", report.ChecksumMismatches)
	}
	return nil
}

func printList(a *app, title string, items []string) {
	fmt.Fprintf(a.out, "%s: %d\n", title, len(items))
	for _, it := range items {
		fmt.Fprintf(a.out, "  %s\n", it)
	}
}

// parseOptionalDuration: пусто — nil (значение по умолчанию), "0" — бессрочно.
func parseOptionalDuration(raw string) (*time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("некорректный -ttl %q: %w", raw, err)
	}
	if d < 0 {
		return nil, fmt.Errorf("некорректный -ttl %q: отрицательная длительность", raw)
	}
	return &d, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
