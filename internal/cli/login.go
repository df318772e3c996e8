package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/store/remote"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the record service",
	Long: `Sign in to the record service and remember the session token for remote mode.

The password is read from --password or TASKFLOW_PASSWORD.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password")
	loginCmd.Flags().String("name", "", "Display name (with --signup)")
	loginCmd.Flags().String("url", "", "Record service URL (overrides remote.url)")
	loginCmd.Flags().Bool("signup", false, "Create the account first")
	_ = loginCmd.MarkFlagRequired("email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	name, _ := cmd.Flags().GetString("name")
	signup, _ := cmd.Flags().GetBool("signup")
	if u, _ := cmd.Flags().GetString("url"); u != "" {
		cfg.Remote.URL = u
	}

	if password == "" {
		password = os.Getenv("TASKFLOW_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required (--password or TASKFLOW_PASSWORD)")
	}
	if strings.TrimSpace(cfg.Remote.URL) == "" {
		return errors.New("no record service URL (set remote.url or pass --url)")
	}

	client := remote.New(cfg.Remote.URL, "")
	var sess *remote.Session
	if signup {
		sess, err = client.Signup(cmd.Context(), email, password, name)
	} else {
		sess, err = client.Login(cmd.Context(), email, password)
	}
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Local.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	if err := database.SetSetting(tokenKey, sess.Token); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("Signed in as %s <%s>\n", sess.User.Name, sess.User.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := db.New(cfg.Local.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	if err := database.SetSetting(tokenKey, ""); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}
