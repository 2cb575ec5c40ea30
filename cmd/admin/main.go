package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"resumate/internal/auth"
	"resumate/internal/config"
	"resumate/internal/database"
)

type dbOverrides struct {
	host     string
	port     int
	name     string
	user     string
	password string
	sslmode  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var overrides dbOverrides

	root := &cobra.Command{
		Use:           "resumate-admin",
		Short:         "Administrative tasks for the ResuMate database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&overrides.host, "db-host", "", "database host (defaults to DATABASE_HOST)")
	flags.IntVar(&overrides.port, "db-port", 0, "database port (defaults to DATABASE_PORT)")
	flags.StringVar(&overrides.name, "db-name", "", "database name (defaults to POSTGRES_DB)")
	flags.StringVar(&overrides.user, "db-user", "", "database user (defaults to POSTGRES_USER)")
	flags.StringVar(&overrides.password, "db-password", "", "database password (defaults to POSTGRES_PASSWORD)")
	flags.StringVar(&overrides.sslmode, "db-sslmode", "", "database sslmode (defaults to DATABASE_SSLMODE)")

	root.AddCommand(newMigrateCmd(&overrides), newUserCmd(&overrides))
	return root
}

func newMigrateCmd(overrides *dbOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(*overrides)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func newUserCmd(overrides *dbOverrides) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var email, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account with a random password and an empty profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return errors.New("missing required flag: --email")
			}

			db, err := openDatabase(*overrides)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}

			password, err := createUser(db, email, strings.TrimSpace(name))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "account created:")
			fmt.Fprintf(out, "email: %s\n", email)
			fmt.Fprintf(out, "password: %s\n", password)
			fmt.Fprintln(out, "the password is shown only once")
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "account email (required)")
	create.Flags().StringVar(&name, "name", "", "display name")

	userCmd.AddCommand(create)
	return userCmd
}

func createUser(db *gorm.DB, email, name string) (string, error) {
	var existing database.User
	switch err := db.Where("email = ?", email).First(&existing).Error; {
	case err == nil:
		return "", fmt.Errorf("user %q already exists", email)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return "", fmt.Errorf("query user: %w", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		user := database.User{Email: email, Name: name, PasswordHash: hashed}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		profile := database.Profile{UserID: user.ID, FullName: name, Email: email}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return password, nil
}

func openDatabase(overrides dbOverrides) (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.InitDatabase(overrides.apply(cfg.Database), slog.Default())
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return db, nil
}

func (o dbOverrides) apply(cfg config.DatabaseConfig) config.DatabaseConfig {
	if o.host != "" {
		cfg.Host = o.host
	}
	if o.port > 0 {
		cfg.Port = o.port
	}
	if o.name != "" {
		cfg.Name = o.name
	}
	if o.user != "" {
		cfg.User = o.user
	}
	if o.password != "" {
		cfg.Password = o.password
	}
	if o.sslmode != "" {
		cfg.SSLMode = o.sslmode
	}
	return cfg
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
