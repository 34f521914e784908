package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/helpdesk-service/internal/application"
	"github.com/psds-microservice/helpdesk-service/internal/clock"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/identity"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the credential locally",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke and remove the stored credential",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user of the stored credential",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (read from stdin when empty)")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

var openDatabase = application.OpenDatabase

// cliManager builds an identity manager backed by the database and the
// credential file under the user config directory. The returned func
// closes the database and Redis connections.
func cliManager(cfg *config.Config) (*identity.Manager, func(), error) {
	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	store, err := identity.DefaultFileStore()
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	clk := clock.Real()
	var revoker identity.Revoker = identity.NewMemoryRevoker(clk)
	rc := application.ConnectRedis(cfg, slog.Default())
	if rc != nil {
		revoker = identity.NewRedisRevoker(rc, clk)
	}
	m := identity.NewManager(identity.Deps{
		Users:   service.NewUserService(db, clk),
		Codec:   identity.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clk),
		Revoker: revoker,
		Store:   store,
	})
	cleanup := func() {
		if rc != nil {
			_ = rc.Close()
		}
		closeDB()
	}
	return m, cleanup, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if loginUsername == "" {
		return errors.New("login: --username is required")
	}
	if loginPassword == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("login: read password: %w", err)
		}
		loginPassword = strings.TrimRight(line, "\r\n")
	}
	m, cleanup, err := cliManager(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	sess, err := m.Login(cmd.Context(), loginUsername, loginPassword)
	if errors.Is(err, errs.ErrInvalidCredentials) {
		return errors.New("invalid credentials")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s), expires %s\n",
		sess.User.Username, sess.User.Role, sess.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, cleanup, err := cliManager(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := m.Logout(cmd.Context(), ""); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, cleanup, err := cliManager(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	id, err := m.Restore(cmd.Context())
	if err != nil {
		return err
	}
	if id == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s), expires %s\n",
		id.Username, id.Role, id.Department, id.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}
