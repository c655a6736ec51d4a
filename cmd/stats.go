package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the master database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, "stats")
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}

		switch statsFormat {
		case "yaml":
			out, err := yaml.Marshal(stats)
			if err != nil {
				return eris.Wrap(err, "stats: marshal yaml")
			}
			_, err = os.Stdout.Write(out)
			return eris.Wrap(err, "stats: write")
		default:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(stats), "stats: encode")
		}
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(statsCmd)
}
