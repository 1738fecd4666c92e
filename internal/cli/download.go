package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtga-synergy/internal/gamedata"
)

func (a *app) downloadCmd() *cobra.Command {
	var set, format string

	cmd := &cobra.Command{
		Use:   "download --set SET [--format FORMAT]",
		Short: "Download a 17Lands game data export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == "" {
				format = a.cfg.Dataset.Format
			}
			d, err := gamedata.NewDownloader(gamedata.DownloaderOptions{
				CacheDir: a.cfg.Dataset.CacheDir,
				BaseURL:  a.cfg.Dataset.BaseURL,
				MaxAge:   a.cfg.DatasetMaxAge(),
			})
			if err != nil {
				return err
			}
			path, err := d.Download(cmd.Context(), set, format)
			if err != nil {
				return fmt.Errorf("download %s %s: %w", set, format, err)
			}
			printf(cmd, "%s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "set code, e.g. BLB")
	cmd.Flags().StringVar(&format, "format", "", "event format, e.g. PremierDraft (default from config)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}
