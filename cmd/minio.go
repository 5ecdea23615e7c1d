package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"VoidFM/config"
	"VoidFM/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioDelete    bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理存放音频与封面的MinIO存储桶，支持列出文件、查看统计信息、递归显示目录结构、删除目录等功能。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			log.Fatalf("创建MinIO客户端失败: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := store.Check(ctx); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		// 根据参数执行不同的操作
		if minioDelete {
			fmt.Printf("\n删除目录: %s\n", minioPrefix)
			n, err := store.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				log.Fatalf("删除目录失败: %v", err)
			}
			fmt.Printf("已删除 %d 个对象\n", n)
			return
		}

		objects, stats, err := store.List(ctx, minioPrefix, minioRecursive || minioStats)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}

		if minioStats {
			fmt.Printf("\n=== 存储桶统计信息 ===\n")
			fmt.Printf("存储桶名称: %s\n", store.Bucket())
			fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
			fmt.Printf("对象总数: %d\n", stats.TotalObjects)
			fmt.Printf("最后修改时间: %s\n", stats.LastModified.Format(time.RFC3339))
			fmt.Printf("\n文件类型统计:\n")
			for kind, count := range stats.ByKind {
				fmt.Printf("%s: %d 个文件\n", kind, count)
			}
		}

		if minioRecursive {
			fmt.Printf("\n目录结构 (前缀: %s):\n", minioPrefix)
			storage.PrintTree(os.Stdout, minioPrefix, objects)
		} else if !minioStats {
			fmt.Printf("\n列出存储桶中的文件 (前缀: %s)...\n", minioPrefix)
			for _, o := range objects {
				fmt.Printf("文件名: minio://%s, 大小: %s, 最后修改时间: %s\n",
					o.Key, storage.FormatSize(o.Size), o.LastModified.Format(time.RFC3339))
			}
		}

		fmt.Println("\nMinIO操作完成！")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	// 添加命令行参数
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "递归显示目录结构")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")

	// 添加使用说明
	minioCmd.Example = `  # 列出所有文件
  voidfm minio

  # 按前缀过滤文件
  voidfm minio -p "rituals/"

  # 显示存储桶统计信息
  voidfm minio -s

  # 递归显示目录结构
  voidfm minio -r -p "rituals/"

  # 删除目录及其下的所有文件
  voidfm minio -d -p "rituals/old/"`
}
