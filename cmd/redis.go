package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"VoidFM/cache"
	"VoidFM/config"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试Redis连接是否成功，并进行基本读写操作。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始测试Redis连接...")

		// 加载配置
		cfg := config.Load()
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		// 连接Redis
		if err := cache.ConnectRedis(cfg); err != nil {
			log.Fatalf("无法连接到Redis: %v", err)
		}
		fmt.Println("Redis连接成功！")

		// 测试Redis基本操作
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fmt.Println("开始测试Redis基本操作...")
		if err := cache.TestRedis(ctx); err != nil {
			log.Fatalf("Redis操作测试失败: %v", err)
		}
		fmt.Println("Redis基本操作测试成功！")

		// 读取播放进度
		if pos, err := cache.NewResumeCache().LoadPosition(ctx); err != nil {
			fmt.Printf("读取播放进度失败: %v\n", err)
		} else if pos != nil {
			fmt.Printf("播放进度: %s @ %.1fs\n", pos.Slug, pos.Time)
		} else {
			fmt.Println("暂无播放进度")
		}

		// 关闭连接
		if err := cache.CloseRedis(); err != nil {
			log.Printf("关闭Redis连接时发生错误: %v", err)
		}
		fmt.Println("Redis测试完成，连接已关闭。")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
