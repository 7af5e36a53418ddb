package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"sitesafe-api/config"
	"sitesafe-api/models"
	"sitesafe-api/services"

	"github.com/spf13/cobra"
)

var userInput services.NewUserInput

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a staff or worker account",
	Long: `Create a staff or worker account.

The password comes from --password, then SITESAFE_PASSWORD, then stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := userInput.Password
		if password == "" {
			password = os.Getenv("SITESAFE_PASSWORD")
		}
		if password == "" {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		in := userInput
		in.Password = password

		config.InitDB()
		user, err := services.NewUserService(nil).Create(in)
		if err != nil {
			var verr *services.ValidationError
			if errors.As(err, &verr) {
				for field, msg := range verr.Fields {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
				}
			}
			return err
		}
		fmt.Printf("Created %s account %d for %s\n", user.UserType, user.UserID, user.Email)
		return nil
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userInput.Email, "email", "", "login e-mail address")
	f.StringVar(&userInput.FirstName, "first", "", "first name")
	f.StringVar(&userInput.LastName, "last", "", "last name")
	f.StringVar(&userInput.Password, "password", "", "initial password (visible in shell history)")
	f.StringVar(&userInput.UserType, "type", models.UserTypeStaff, "account type (staff|worker)")
	_ = userCreateCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
