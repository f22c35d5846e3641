package main

import (
	"fmt"
	"os"

	_ "TicketSync/internal/adapter/clubstore"
	_ "TicketSync/internal/adapter/marketplace"
	_ "TicketSync/internal/adapter/regional"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ticketsync",
	Short: "票务可售信息采集：俱乐部官网、票务市场、区域票务站点",
	Long: `ticketsync 从多个票务来源抓取赛事与票档，统一规范化后入库，
可作为HTTP服务运行，也可直接在命令行执行查询、导入与统计。`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(searchCommand())
	rootCmd.AddCommand(importCommand())
	rootCmd.AddCommand(detailCommand())
	rootCmd.AddCommand(statsCommand())
	rootCmd.AddCommand(sourcesCommand())
	rootCmd.AddCommand(sweepCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
