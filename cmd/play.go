package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"VoidFM/config"
	"VoidFM/tui"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "在终端中播放",
	Long:  `打开终端播放界面。日志只写入 LOG_FILE，不输出到终端。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg, true)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := newApp(cfg)
		defer a.Close()
		a.startPlayer(ctx)

		return tui.Run(ctx, a.player, a.accentRGB)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}
