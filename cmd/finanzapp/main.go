package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"finanzapp/internal/backend"
	"finanzapp/internal/config"
	"finanzapp/internal/core"
	"finanzapp/internal/log"
	"finanzapp/internal/services"
	"finanzapp/internal/session"
)

const usage = `Usage: finanzapp <command> [flags]

Account
  register   -name <n> [-surname <s>] -email <e> [-birthdate yyyy-MM-dd] [-avatar <uri>] [-password <p>]
  login      -email <e> [-password <p>]
  logout
  whoami

Budget
  income add     -name <n> -amount <a> [-fixed] [-date yyyy-MM-dd]
  income list
  income update  -id <id> -name <n> -amount <a> [-fixed]
  income delete  -id <id>
  expense add    -name <n> -amount <a> -day <d> [-fixed]
  expense list
  expense update -id <id> -name <n> -amount <a> -day <d> [-fixed]
  expense delete -id <id>

Wishlist
  goal add      -name <n> -target <a> [-deadline yyyy-MM-dd] [-desc <text>]
  goal list
  goal update   -id <id> -name <n> -target <a> [-deadline yyyy-MM-dd] [-desc <text>]
  goal progress -id <id> -saved <a> [-completed]
  goal delete   -id <id>
  goal plan     -id <id>

Report
  report
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired services for command handlers.
type app struct {
	sessions *session.Manager
	users    *services.UserService
	budget   *services.BudgetService
	wishlist *services.WishlistService
	reports  *services.ReportService

	stdin  io.Reader
	stdout io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}

	// .env is for local development; absence is fine.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).Create(backendCfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	sessions := session.NewManager(res.Store, logger)
	reports := services.NewReportService(res.Store, logger)

	var queue services.SyncPublisher
	if res.Queue != nil {
		queue = res.Queue
	}

	a := &app{
		sessions: sessions,
		users:    services.NewUserService(res.Store, sessions, logger),
		budget:   services.NewBudgetService(res.Store, queue, reports, logger),
		wishlist: services.NewWishlistService(res.Store, logger),
		reports:  reports,
		stdin:    stdin,
		stdout:   stdout,
	}

	ctx := context.Background()
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "register":
		return a.register(ctx, rest, stderr)
	case "login":
		return a.login(ctx, rest, stderr)
	case "logout":
		return a.users.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "income":
		return a.income(ctx, rest, stderr)
	case "expense":
		return a.expense(ctx, rest, stderr)
	case "goal":
		return a.goal(ctx, rest, stderr)
	case "report":
		return a.report(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

/* ---------- account ---------- */

func (a *app) register(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("name", "", "first name")
	surname := fs.String("surname", "", "surname")
	email := fs.String("email", "", "email address")
	birthDate := fs.String("birthdate", "", "birth date (yyyy-MM-dd)")
	avatar := fs.String("avatar", "", "avatar URI")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := a.ensurePassword(*password)
	if err != nil {
		return err
	}

	u, err := a.users.Register(ctx, core.User{
		Name:      *name,
		Surname:   *surname,
		Email:     *email,
		BirthDate: *birthDate,
		Avatar:    *avatar,
	}, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Registered %s (id %d), session started\n", u.Email, u.ID)
	return nil
}

func (a *app) login(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(stderr)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw, err := a.ensurePassword(*password)
	if err != nil {
		return err
	}

	u, err := a.users.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s (id %d)\n", u.Email, u.ID)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	u, err := a.sessions.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s %s <%s> (id %d)\n", u.Name, u.Surname, u.Email, u.ID)
	return nil
}

func (a *app) ensurePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.stdout, "Password: ")
	pw, err := readPassword(a.stdin)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(a.stdout)
	if strings.TrimSpace(pw) == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return pw, nil
}

/* ---------- budget ---------- */

func (a *app) income(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("income: missing subcommand (add, list, update, delete)")
	}
	userID, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "add", "update":
		fs := flag.NewFlagSet("income "+sub, flag.ContinueOnError)
		fs.SetOutput(stderr)
		id := fs.Int64("id", 0, "income id (update only)")
		name := fs.String("name", "", "income name")
		amount := fs.String("amount", "", "amount, e.g. 1200.50")
		fixed := fs.Bool("fixed", false, "recurring income")
		date := fs.String("date", "", "date (yyyy-MM-dd; add defaults to today, update keeps the stored date)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cents, err := core.ParseDecimalToCents(*amount)
		if err != nil {
			return fmt.Errorf("amount %q: %w", *amount, err)
		}
		when, err := lineDate(sub, *date)
		if err != nil {
			return err
		}
		in := core.Income{
			ID:     *id,
			UserID: userID,
			Name:   *name,
			Amount: core.Money{Cents: cents},
			Fixed:  *fixed,
			Date:   when,
		}
		if sub == "add" {
			saved, err := a.budget.AddIncome(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Added income %d: %s %s\n", saved.ID, saved.Name, saved.Amount)
			return nil
		}
		saved, err := a.budget.UpdateIncome(ctx, userID, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Updated income %d: %s %s\n", saved.ID, saved.Name, saved.Amount)
		return nil

	case "list":
		incomes, err := a.budget.ListIncomes(ctx, userID)
		if err != nil {
			return err
		}
		for _, in := range incomes {
			kind := "variable"
			if in.Fixed {
				kind = "fixed"
			}
			fmt.Fprintf(a.stdout, "%4d  %-20s %10s  %s\n", in.ID, in.Name, in.Amount, kind)
		}
		return nil

	case "delete":
		id, err := parseIDFlag("income delete", rest, stderr)
		if err != nil {
			return err
		}
		if err := a.budget.DeleteIncome(ctx, userID, id); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Deleted income %d\n", id)
		return nil

	default:
		return fmt.Errorf("income: unknown subcommand %q", sub)
	}
}

func (a *app) expense(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("expense: missing subcommand (add, list, update, delete)")
	}
	userID, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "add", "update":
		fs := flag.NewFlagSet("expense "+sub, flag.ContinueOnError)
		fs.SetOutput(stderr)
		id := fs.Int64("id", 0, "expense id (update only)")
		name := fs.String("name", "", "expense name")
		amount := fs.String("amount", "", "amount, e.g. 89.90")
		day := fs.Int("day", 1, "day of month the expense falls due")
		fixed := fs.Bool("fixed", false, "recurring expense")
		date := fs.String("date", "", "date (yyyy-MM-dd; add defaults to today, update keeps the stored date)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cents, err := core.ParseDecimalToCents(*amount)
		if err != nil {
			return fmt.Errorf("amount %q: %w", *amount, err)
		}
		when, err := lineDate(sub, *date)
		if err != nil {
			return err
		}
		ex := core.Expense{
			ID:     *id,
			UserID: userID,
			Name:   *name,
			Amount: core.Money{Cents: cents},
			Day:    *day,
			Fixed:  *fixed,
			Date:   when,
		}
		if sub == "add" {
			saved, err := a.budget.AddExpense(ctx, ex)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Added expense %d: %s %s (day %d)\n", saved.ID, saved.Name, saved.Amount, saved.Day)
			return nil
		}
		saved, err := a.budget.UpdateExpense(ctx, userID, ex)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Updated expense %d: %s %s (day %d)\n", saved.ID, saved.Name, saved.Amount, saved.Day)
		return nil

	case "list":
		expenses, err := a.budget.ListExpenses(ctx, userID)
		if err != nil {
			return err
		}
		for _, ex := range expenses {
			kind := "variable"
			if ex.Fixed {
				kind = "fixed"
			}
			fmt.Fprintf(a.stdout, "%4d  %-20s %10s  day %2d  %s\n", ex.ID, ex.Name, ex.Amount, ex.Day, kind)
		}
		return nil

	case "delete":
		id, err := parseIDFlag("expense delete", rest, stderr)
		if err != nil {
			return err
		}
		if err := a.budget.DeleteExpense(ctx, userID, id); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Deleted expense %d\n", id)
		return nil

	default:
		return fmt.Errorf("expense: unknown subcommand %q", sub)
	}
}

/* ---------- wishlist ---------- */

func (a *app) goal(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("goal: missing subcommand (add, list, update, progress, delete, plan)")
	}
	userID, err := a.requireUser(ctx)
	if err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "add", "update":
		fs := flag.NewFlagSet("goal "+sub, flag.ContinueOnError)
		fs.SetOutput(stderr)
		id := fs.Int64("id", 0, "goal id (update only)")
		name := fs.String("name", "", "goal name")
		target := fs.String("target", "", "target amount, e.g. 3000.00")
		deadline := fs.String("deadline", "", "deadline (yyyy-MM-dd, optional)")
		desc := fs.String("desc", "", "description")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		cents, err := core.ParseDecimalToCents(*target)
		if err != nil {
			return fmt.Errorf("target %q: %w", *target, err)
		}
		due, err := core.ParseDate(*deadline)
		if err != nil {
			return fmt.Errorf("deadline %q: %w", *deadline, err)
		}
		g := core.Goal{
			ID:          *id,
			Name:        *name,
			Target:      core.Money{Cents: cents},
			Deadline:    due,
			Description: *desc,
		}
		if sub == "add" {
			saved, err := a.wishlist.AddGoal(ctx, userID, g)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Added goal %d: %s %s\n", saved.ID, saved.Name, saved.Target)
			return nil
		}
		saved, err := a.wishlist.UpdateGoal(ctx, userID, g)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Updated goal %d: %s %s\n", saved.ID, saved.Name, saved.Target)
		return nil

	case "list":
		goals, err := a.wishlist.Goals(ctx, userID)
		if err != nil {
			return err
		}
		total, err := a.wishlist.Total(ctx, userID)
		if err != nil {
			return err
		}
		for _, g := range goals {
			mark := " "
			if g.Completed {
				mark = "x"
			}
			due := g.Deadline.ISO()
			if due == "" {
				due = "open-ended"
			}
			fmt.Fprintf(a.stdout, "[%s] %4d  %-20s %10s saved %10s  due %s\n",
				mark, g.ID, g.Name, g.Target, g.Saved, due)
		}
		fmt.Fprintf(a.stdout, "Total target: %s\n", total)
		return nil

	case "progress":
		fs := flag.NewFlagSet("goal progress", flag.ContinueOnError)
		fs.SetOutput(stderr)
		id := fs.Int64("id", 0, "goal id")
		savedAmt := fs.String("saved", "", "amount saved so far")
		completed := fs.Bool("completed", false, "mark the goal completed")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		var saved core.Money
		if *savedAmt != "" {
			cents, err := core.ParseDecimalToCents(*savedAmt)
			if err != nil {
				return fmt.Errorf("saved %q: %w", *savedAmt, err)
			}
			saved = core.Money{Cents: cents}
		}
		g, err := a.wishlist.UpdateProgress(ctx, userID, *id, saved, *completed)
		if err != nil {
			return err
		}
		state := "in progress"
		if g.Completed {
			state = "completed"
		}
		fmt.Fprintf(a.stdout, "Goal %d: saved %s of %s (%s)\n", g.ID, g.Saved, g.Target, state)
		return nil

	case "delete":
		id, err := parseIDFlag("goal delete", rest, stderr)
		if err != nil {
			return err
		}
		if err := a.wishlist.DeleteGoal(ctx, userID, id); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Deleted goal %d\n", id)
		return nil

	case "plan":
		id, err := parseIDFlag("goal plan", rest, stderr)
		if err != nil {
			return err
		}
		plan, err := a.reports.GoalPlan(ctx, userID, id)
		if err != nil {
			return err
		}
		if plan.Months == 0 {
			fmt.Fprintln(a.stdout, "Goal is already covered, nothing left to save")
			return nil
		}
		fmt.Fprintf(a.stdout, "Remaining %s over %d months: %s per month\n",
			plan.Remaining, plan.Months, plan.MonthlyQuota)
		return nil

	default:
		return fmt.Errorf("goal: unknown subcommand %q", sub)
	}
}

/* ---------- report ---------- */

func (a *app) report(ctx context.Context) error {
	userID, err := a.requireUser(ctx)
	if err != nil {
		return err
	}
	s, err := a.reports.Summary(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Incomes  (%d): %s\n", s.IncomeCount, s.IncomeTotal)
	fmt.Fprintf(a.stdout, "Expenses (%d): %s  (fixed %s, variable %s)\n",
		s.ExpenseCount, s.ExpenseTotal, s.FixedExpenses, s.VariableExpenses)
	fmt.Fprintf(a.stdout, "Balance      : %s\n", s.Balance)
	return nil
}

/* ---------- helpers ---------- */

func (a *app) requireUser(ctx context.Context) (int64, error) {
	id, err := a.sessions.Current(ctx)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("no user is logged in (run 'finanzapp login')")
	}
	return id, nil
}

func parseIDFlag(name string, args []string, stderr io.Writer) (int64, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	id := fs.Int64("id", 0, "record id")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *id == 0 {
		return 0, fmt.Errorf("%s: missing -id", name)
	}
	return *id, nil
}

// lineDate resolves the -date flag for a budget line. On add an omitted
// date means today; on update it stays zero so the stored date is kept.
func lineDate(sub, s string) (time.Time, error) {
	if s == "" {
		if sub == "add" {
			return time.Now(), nil
		}
		return time.Time{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return d.Time, nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal stdin (tests, pipes).
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
