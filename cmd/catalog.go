package cmd

import (
	"context"
	"fmt"
	"time"

	"VoidFM/catalog"
	"VoidFM/config"
	"VoidFM/core/lyrics"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var syncPrune bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "目录管理",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出目录中的仪式",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg, false)
		a := newApp(cfg)
		defer a.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rituals := catalog.SafeFetch(ctx, "rituals", a.catalog.Rituals, nil)
		if len(rituals) == 0 {
			color.Yellow("目录为空（未配置内容存储或查询失败）")
			return nil
		}

		dim := color.New(color.FgHiBlack)
		for i, r := range rituals {
			accent := a.accent.Resolve(ctx, &r)
			title := color.RGB(int(accent.R), int(accent.G), int(accent.B)).Add(color.Bold).Sprint(r.Title)

			fmt.Printf("%2d. %s %s\n", i+1, title, dim.Sprint(r.Slug))
			fmt.Printf("    %s  %s  %s\n",
				dim.Sprint(r.ReleaseDate),
				dim.Sprint(r.EmotionalPhase),
				accent.Hex())

			audio := color.RedString("no audio")
			if r.HasAudio() {
				audio = color.GreenString("audio")
			}
			lyric := dim.Sprint("no lyrics")
			if r.HasSyncedLyrics() {
				last := r.SyncedLyrics[len(r.SyncedLyrics)-1]
				lyric = color.CyanString("%d lines → %s", len(r.SyncedLyrics), lyrics.FormatClock(last.Time))
			}
			fmt.Printf("    %s  %s\n", audio, lyric)
		}
		return nil
	},
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "把内容存储中的仪式镜像到数据库",
	Long:  `从 CMS / 本地目录文件读取全部仪式并写入数据库镜像，CMS 不可用时播放器仍可从镜像读取。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg, false)
		a := newApp(cfg)
		defer a.Close()

		if a.repo == nil {
			return fmt.Errorf("database not available (DB_DRIVER=%q)", cfg.DBDriver)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		// 镜像本身不能作为同步源
		source := a.buildCatalog(false)
		rituals, err := source.Rituals(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch rituals: %w", err)
		}

		bar := progressbar.NewOptions(len(rituals),
			progressbar.OptionSetDescription("syncing rituals"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		ids := make([]string, 0, len(rituals))
		failed := 0
		for i := range rituals {
			if err := a.repo.Upsert(ctx, &rituals[i]); err != nil {
				failed++
				color.Red("\n%s: %v", rituals[i].Slug, err)
			} else {
				ids = append(ids, rituals[i].ID)
			}
			bar.Add(1)
		}
		bar.Finish()

		var pruned int64
		if syncPrune && failed == 0 {
			if pruned, err = a.repo.DeleteMissing(ctx, ids); err != nil {
				return fmt.Errorf("failed to prune mirror: %w", err)
			}
		}
		if a.cached != nil {
			a.cached.Invalidate(ctx)
		}

		color.Green("synced %d rituals (%d failed, %d pruned)", len(ids), failed, pruned)
		if failed > 0 {
			return fmt.Errorf("%d rituals failed to sync", failed)
		}
		return nil
	},
}

func init() {
	catalogSyncCmd.Flags().BoolVar(&syncPrune, "prune", false, "删除镜像中已不存在于源的仪式")
	catalogCmd.AddCommand(catalogListCmd, catalogSyncCmd)
	rootCmd.AddCommand(catalogCmd)
}
