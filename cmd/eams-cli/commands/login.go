package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"eamsassist-backend/internal/api"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/sessionfile"

	"github.com/spf13/cobra"
)

const envPassword = "EAMS_PASSWORD"

var loginPassword string

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "The account password, read from $EAMS_PASSWORD or stdin when empty.")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func readPassword() (string, error) {
	if loginPassword != "" {
		return loginPassword, nil
	}
	if password := os.Getenv(envPassword); password != "" {
		return password, nil
	}
	fmt.Fprint(os.Stderr, "password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var loginCmd = &cobra.Command{
	Use:   "login <student-id> [--password <password>]",
	Short: "Logs into the CAS gateway and saves the session.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID := args[0]
		if !api.ValidStudentID(studentID) {
			return fmt.Errorf("invalid student id %q", studentID)
		}
		password, err := readPassword()
		if err != nil {
			return err
		}

		session, err := deps.flow.Login(cmd.Context(), eams.NewSession(studentID), password)
		if err != nil {
			return err
		}
		if !session.Authenticated {
			return fmt.Errorf("login failed, check the student id and password")
		}
		if err := sessionfile.Save(statePath, session); err != nil {
			return err
		}
		slog.Info("logged in", "student_id", studentID, "state", statePath)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Ends the saved session and forgets it.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := loadSession()
		if err == nil {
			deps.flow.Logout(cmd.Context(), session)
		}
		return sessionfile.Remove(statePath)
	},
}
