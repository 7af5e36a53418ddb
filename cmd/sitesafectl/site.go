package main

import (
	"fmt"
	"os"

	"sitesafe-api/config"
	"sitesafe-api/reports"
	"sitesafe-api/services"

	"github.com/spf13/cobra"
)

var (
	qrOut  string
	qrSize int
)

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Site utilities",
}

var siteQRCmd = &cobra.Command{
	Use:   "qr <site-id>",
	Short: "Write the check-in QR code of a site as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config.InitDB()
		svc := services.NewSiteService(nil)
		site, err := svc.Get(args[0])
		if err != nil {
			return err
		}
		url := svc.CheckinURL(site)
		png, err := reports.QRCodePNG(url, qrSize)
		if err != nil {
			return err
		}

		out := qrOut
		if out == "" {
			out = "site-" + site.SiteID + ".png"
		}
		if err := os.WriteFile(out, png, 0o644); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", url, out)
		return nil
	},
}

func init() {
	siteQRCmd.Flags().StringVarP(&qrOut, "out", "o", "", "output file (default site-<id>.png)")
	siteQRCmd.Flags().IntVar(&qrSize, "size", 1024, "image width in pixels")
	siteCmd.AddCommand(siteQRCmd)
	rootCmd.AddCommand(siteCmd)
}
