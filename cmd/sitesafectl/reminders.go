package main

import (
	"fmt"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/services"

	"github.com/spf13/cobra"
)

var remindersDryRun bool

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Compliance reminders",
}

var remindersRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reminder sweep",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.InitDB()
		var mailer config.Mailer
		if config.Current.Mail.Host != "" && config.Current.Mail.From != "" {
			mailer = config.NewSMTPMailer(config.Current.Mail)
		}

		sum, err := services.NewReminderService(nil, mailer).Run(cmd.Context(), time.Now().UTC(), remindersDryRun)
		if err != nil {
			return err
		}
		for _, r := range sum.Reminders {
			fmt.Printf("%-12s %-9s %s\n", r.Kind, r.Status, r.SubjectName)
		}
		fmt.Printf("collected=%d new=%d staff=%d worker=%d emailed=%d failures=%d\n",
			sum.Collected, sum.New, sum.StaffNotified, sum.WorkerNotified, sum.Emailed, sum.EmailFailures)
		return nil
	},
}

func init() {
	remindersRunCmd.Flags().BoolVar(&remindersDryRun, "dry-run", false, "report without notifying anyone")
	remindersCmd.AddCommand(remindersRunCmd)
	rootCmd.AddCommand(remindersCmd)
}
