package cmd

import (
	"log"

	"github.com/Elantris/commander/commander"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Starts the Commander bot and status API",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		bot, err := commander.New(cfg)
		if err != nil {
			log.Fatalf("error creating commander: %s", err.Error())
		}

		if err = bot.Run(ctx); err != nil {
			log.Fatalf("error running commander: %s", err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
