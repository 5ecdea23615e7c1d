package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"VoidFM/config"
	"VoidFM/logger"
	"VoidFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 VoidFM 服务器",
	Long:  `启动 HTTP API 与播放器 WebSocket，提供目录查询、播放控制和可视化帧。`,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	initLogger(cfg, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg)
	defer a.Close()
	a.startPlayer(ctx)

	srv := server.New(cfg, a.catalog, a.player, a.accent)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server failed", logger.ErrorField(err))
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
