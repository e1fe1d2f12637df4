// Command adduser creates an account directly in the database
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nsvirk/financeapi/internal/auth"
	"github.com/nsvirk/financeapi/internal/config"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/nsvirk/financeapi/internal/repository"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	driver := fs.String("driver", envOr("FIN_API_DB_DRIVER", config.DriverSQLite), "Database driver: postgres or sqlite")
	dsn := fs.String("dsn", os.Getenv("FIN_API_PG_DSN"), "Postgres DSN")
	schema := fs.String("schema", envOr("FIN_API_PG_SCHEMA", "finance"), "Postgres schema")
	dbPath := fs.String("db", envOr("FIN_API_SQLITE_PATH", "finance.db"), "Path to SQLite database file")
	username := fs.String("user", "", "Username")
	email := fs.String("email", "", "Email address")
	firstName := fs.String("first", "", "First name")
	lastName := fs.String("last", "", "Last name")
	bankAccount := fs.String("account", "", "Bank account number (optional)")
	routingNumber := fs.String("routing", "", "Routing number (optional)")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string
	for _, flagValue := range []struct{ name, value string }{
		{"user", *username},
		{"email", *email},
		{"first", *firstName},
		{"last", *lastName},
	} {
		if strings.TrimSpace(flagValue.value) == "" {
			missing = append(missing, flagValue.name)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> -email <email> -first <first name> -last <last name> [-account <n> -routing <n>] [-password <password>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	cfg := &config.Config{
		DBDriver:         *driver,
		PostgresDsn:      *dsn,
		PostgresSchema:   *schema,
		PostgresLogLevel: "silent",
		SQLitePath:       *dbPath,
	}
	if cfg.DBDriver == config.DriverPostgres && cfg.PostgresDsn == "" {
		return fmt.Errorf("-dsn is required for the postgres driver")
	}
	db, err := repository.ConnectDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	exists, err := users.ExistsByUsernameOrEmail(ctx, *username, *email)
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if exists {
		return fmt.Errorf("user %s already exists", *username)
	}
	if account := strings.TrimSpace(*bankAccount); account != "" {
		taken, err := users.BankAccountExists(ctx, account)
		if err != nil {
			return fmt.Errorf("failed to check bank account: %w", err)
		}
		if taken {
			return fmt.Errorf("bank account %s already registered", account)
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:      strings.TrimSpace(*username),
		Email:         strings.TrimSpace(*email),
		PasswordHash:  hash,
		FirstName:     strings.TrimSpace(*firstName),
		LastName:      strings.TrimSpace(*lastName),
		BankAccount:   strings.TrimSpace(*bankAccount),
		RoutingNumber: strings.TrimSpace(*routingNumber),
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s\n", user.Username, user.UserID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
