package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/denismitr/rollbook"
	"github.com/denismitr/rollbook/internal/auth"
	"github.com/denismitr/rollbook/internal/config"
	"github.com/denismitr/rollbook/internal/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const skipAuth = "skip-auth"

type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	// global flags
	file     string
	user     string
	logLevel string
	envFile  string

	log     *slog.Logger
	book    *rollbook.Book
	session auth.Session
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: bufio.NewReader(in), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "rollbook",
		Short:         "Manage student records kept in a fixed width record file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipAuth] == "true" {
				return nil
			}
			return a.setup()
		},
	}

	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.file, "file", "", "record file (overrides ROLLBOOK_FILE)")
	pf.StringVar(&a.user, "user", os.Getenv("ROLLBOOK_USER"), "user name to log in with")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (overrides ROLLBOOK_LOG_LEVEL)")
	pf.StringVar(&a.envFile, "env-file", ".env", "optional env file")

	root.AddCommand(
		a.insertCmd(),
		a.listCmd(),
		a.searchCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.sortCmd(),
		a.topCmd(),
		a.statsCmd(),
		a.countCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.hashPasswordCmd(),
	)

	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}

	if a.file != "" {
		cfg.FileName = a.file
	}

	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	a.log = logging.New(a.errOut, cfg.LogLevel, cfg.LogFormat)

	authenticator, err := a.authenticator(cfg)
	if err != nil {
		return err
	}

	password := os.Getenv("ROLLBOOK_PASSWORD")
	if password == "" && len(cfg.Users) > 0 {
		fmt.Fprint(a.errOut, "Password: ")
		if password, err = a.readLine(); err != nil {
			return errors.Wrap(err, "could not read password")
		}
	}

	a.session, err = authenticator.Authenticate(a.user, password)
	if err != nil {
		return err
	}

	a.log.Debug("logged in", slog.String("user", a.session.User), slog.String("role", string(a.session.Role)))

	a.book, err = rollbook.New(rollbook.Config{
		FileName:   cfg.FileName,
		MaxRecords: cfg.MaxRecords,
		NoSync:     cfg.NoSync,
		Logger:     a.log,
	})

	return err
}

func (a *app) authenticator(cfg *config.Config) (auth.Authenticator, error) {
	if len(cfg.Users) == 0 {
		a.log.Warn("no users configured, every caller is treated as admin")
		return auth.Open{}, nil
	}

	ba := auth.NewBcryptAuthenticator()
	for _, u := range cfg.Users {
		role, err := auth.ParseRole(u.Role)
		if err != nil {
			return nil, errors.Wrapf(err, "user %s", u.Name)
		}

		if err := ba.Add(u.Name, role, u.Hash); err != nil {
			return nil, err
		}
	}

	a.log.Debug("users loaded", slog.Int("count", ba.Len()))

	return ba, nil
}

func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// describe turns an error into the message shown to the user.
func describe(err error) string {
	switch {
	case errors.Is(err, rollbook.ErrInvalidInput):
		return "Input error: " + err.Error()
	case errors.Is(err, rollbook.ErrRecordNotFound):
		return "Record not found: " + err.Error()
	case errors.Is(err, rollbook.ErrDuplicateRoll):
		return "Duplicate: " + err.Error()
	case errors.Is(err, rollbook.ErrEmptySnapshot):
		return "No records."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, auth.ErrForbidden):
		return "Permission denied: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
