// Command sitesafectl is the operator CLI: schema migrations, bootstrap
// accounts, QR codes and manual reminder sweeps.
//
//	sitesafectl db migrate
//	sitesafectl user create --email admin@example.com --first Site --last Admin --type staff
//	sitesafectl site qr 3f2a9c1e-5b7d-4e2a-9c1e-5b7d4e2a9c1e --out gate.png
//	sitesafectl reminders run --dry-run
package main

import (
	"fmt"
	"os"

	"sitesafe-api/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "sitesafectl",
	Short:         "Operate a SiteSafe installation",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(); err != nil {
			return err
		}
		level, err := log.ParseLevel(config.Current.Logger.Level)
		if err == nil {
			log.SetLevel(level)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
