package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voidfm",
	Short: "VoidFM plays rituals from the void.",
	Long: `VoidFM 是一个音乐发行站点的播放核心：从内容存储读取仪式（发行作品），
播放音频，计算频谱可视化，同步歌词，并通过 HTTP/WebSocket 或终端界面展示。`,
	// 不带子命令时启动服务器
	RunE: runServer,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
