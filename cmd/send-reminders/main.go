// Command send-reminders runs one compliance reminder sweep. It is meant to be
// scheduled from cron once a day.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/services"

	log "github.com/sirupsen/logrus"
)

func main() {
	var (
		dryRun  bool
		verbose bool
	)
	flag.BoolVar(&dryRun, "dry-run", false, "list due reminders without notifying or e-mailing anyone")
	flag.BoolVar(&verbose, "verbose", false, "print every collected reminder")
	flag.Parse()

	if _, err := config.Load(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if logFile, _ := config.InitLogging(); logFile != nil {
		defer logFile.Close()
	}
	config.InitDB()

	var mailer config.Mailer
	if config.Current.Mail.Host != "" && config.Current.Mail.From != "" {
		mailer = config.NewSMTPMailer(config.Current.Mail)
	} else if !dryRun {
		log.Warn("SMTP not configured, the digest e-mail will be skipped")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := services.NewReminderService(nil, mailer).Run(ctx, time.Now().UTC(), dryRun)
	if err != nil {
		log.Fatalf("reminder sweep failed: %v", err)
	}

	if verbose || dryRun {
		for _, r := range sum.Reminders {
			due := "-"
			if r.DueDate != nil {
				due = r.DueDate.Format("02/01/2006")
			}
			fmt.Printf("%-12s %-9s %-30s %s (%s)\n", r.Kind, r.Status, r.SubjectName, r.Detail, due)
		}
	}

	fmt.Printf("Reminders collected: %d, new: %d\n", sum.Collected, sum.New)
	if !dryRun {
		fmt.Printf("Notifications: %d staff, %d worker\n", sum.StaffNotified, sum.WorkerNotified)
		fmt.Printf("E-mails sent: %d (failures: %d)\n", sum.Emailed, sum.EmailFailures)
	}
	if sum.EmailFailures > 0 {
		os.Exit(2)
	}
}
