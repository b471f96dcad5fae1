package cli

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/spf13/viper"
	"golang.org/x/term"

	datasource "github.com/Falven/mssql-data-source"
	"github.com/Falven/mssql-data-source/internal/pool"
)

// endpointConfig builds one side's configuration from viper keys under the
// given prefix ("query" or "mutation"). When only query is configured, the
// mutation side falls back to the query connection.
func endpointConfig(prefix string) (datasource.EndpointConfig, error) {
	sub := viper.Sub(prefix)
	if sub == nil && prefix == "mutation" {
		sub = viper.Sub("query")
	}
	if sub == nil {
		return datasource.EndpointConfig{}, fmt.Errorf("no %q connection configured (set %s.dsn or %s.server in the config file)", prefix, prefix, prefix)
	}

	cfg := pool.Config{
		DSN:      sub.GetString("dsn"),
		Server:   sub.GetString("server"),
		Port:     sub.GetInt("port"),
		Database: sub.GetString("database"),
		User:     sub.GetString("user"),
		Password: sub.GetString("password"),
	}

	if cfg.DSN == "" && cfg.Server == "" {
		return datasource.EndpointConfig{}, fmt.Errorf("no %q connection configured (set %s.dsn or %s.server in the config file)", prefix, prefix, prefix)
	}

	// Structured config with a user but no password: ask for it rather than
	// forcing credentials into the config file.
	if cfg.DSN == "" && cfg.User != "" && cfg.Password == "" {
		pw, err := promptPassword(fmt.Sprintf("Password for %s@%s: ", cfg.User, cfg.Server))
		if err != nil {
			return datasource.EndpointConfig{}, err
		}
		cfg.Password = pw
	}

	return datasource.EndpointConfig{
		Connection: cfg,
		Logger:     newLogger(),
	}, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch viper.GetString("log_level") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password required but stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// newDataSource wires a DataSource from the query and mutation sections of
// the loaded configuration.
func newDataSource() (*datasource.DataSource, error) {
	query, err := endpointConfig("query")
	if err != nil {
		return nil, err
	}
	mutation, err := endpointConfig("mutation")
	if err != nil {
		return nil, err
	}
	return datasource.New(query, mutation), nil
}
