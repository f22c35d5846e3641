package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TicketSync/internal/api"
	"TicketSync/internal/model"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// filterFlags 命令行筛选条件
type filterFlags struct {
	from, to                  string
	venue, location, category string
	region, state, comp       string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "起始日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "截止日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&f.venue, "venue", "", "场馆")
	cmd.Flags().StringVar(&f.location, "location", "", "城市/地区")
	cmd.Flags().StringVar(&f.category, "category", "", "分类（football、concert…）")
	cmd.Flags().StringVar(&f.region, "region", "", "区域站点代码（uk、au、nz）")
	cmd.Flags().StringVar(&f.state, "state", "", "州/省")
	cmd.Flags().StringVar(&f.comp, "competition", "", "赛事/联赛")
}

func (f *filterFlags) build() (model.Filters, error) {
	filters := model.Filters{
		Venue:       f.venue,
		Location:    f.location,
		Category:    f.category,
		Region:      f.region,
		State:       f.state,
		Competition: f.comp,
	}
	dates := []struct {
		raw string
		dst **time.Time
	}{{f.from, &filters.DateFrom}, {f.to, &filters.DateTo}}
	for _, d := range dates {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			return filters, fmt.Errorf("日期格式错误 %q: %w", d.raw, err)
		}
		*d.dst = &t
	}
	return filters, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withApp 初始化组件并在命令结束后释放
func withApp(run func(ctx context.Context, a *app) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, a)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP服务",
		RunE: withApp(func(ctx context.Context, a *app) error {
			// 配置Gin运行模式（从配置读取：debug/release）
			gin.SetMode(a.cfg.Server.Mode)
			r := gin.Default()
			// 注册ppof 方便调试和监测性能问题
			pprof.Register(r)
			api.RegisterRoutes(r, api.NewTicketHandler(a.svc, a.logger))

			go a.store.RunCacheJanitor(ctx, a.cfg.Cache.SweepInterval)
			go runDetailJanitor(ctx, a)

			srv := &http.Server{Addr: fmt.Sprintf(":%d", a.cfg.Server.Port), Handler: r}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Infof("服务启动成功，端口：%d", a.cfg.Server.Port)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("启动服务失败: %w", err)
				}
				return nil
			case <-ctx.Done():
			}
			a.logger.Info("收到退出信号，正在关闭服务")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}),
	}
}

func runDetailJanitor(ctx context.Context, a *app) {
	interval := a.cfg.Cache.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweepDetailCaches(a.kit); n > 0 {
				a.logger.WithField("count", n).Debug("已清理过期详情缓存")
			}
		}
	}
}

func searchCommand() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "search <platform> [identifier...]",
		Short: "查询平台赛事（不入库）",
		Args:  cobra.MinimumNArgs(1),
	}
	f.register(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		filters, err := f.build()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			res := a.svc.Search(ctx, model.PlatformType(args[0]), args[1:], filters)
			return printJSON(res)
		})(cmd, args)
	}
	return cmd
}

func importCommand() *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "import <platform> [identifier...]",
		Short: "抓取并入库",
		Args:  cobra.MinimumNArgs(1),
	}
	f.register(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		filters, err := f.build()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			res := a.svc.Import(ctx, model.PlatformType(args[0]), args[1:], filters)
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%s导入失败", args[0])
			}
			return nil
		})(cmd, args)
	}
	return cmd
}

func detailCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detail <platform> <url>",
		Short: "抓取单个赛事详情（含票档）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				f, err := a.svc.GetEventDetails(ctx, model.PlatformType(args[0]), args[1])
				if err != nil {
					return err
				}
				return printJSON(f)
			})(cmd, args)
		},
	}
}

func statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <platform>",
		Short: "平台票务统计",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				stats, err := a.svc.GetStatistics(ctx, model.PlatformType(args[0]))
				if err != nil {
					return err
				}
				return printJSON(stats)
			})(cmd, args)
		},
	}
}

func sourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources [platform]",
		Short: "列出平台下可用的来源；不带参数列出已启用平台",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if len(args) == 0 {
					return printJSON(a.svc.Platforms())
				}
				sources, err := a.svc.GetSupportedSources(model.PlatformType(args[0]))
				if err != nil {
					return err
				}
				return printJSON(sources)
			})(cmd, args)
		},
	}
}

func sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep [platform...]",
		Short: "标记长时间未再观测的记录为过期；不带参数处理全部已启用平台",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				platforms := a.svc.Platforms()
				if len(args) > 0 {
					platforms = make([]model.PlatformType, 0, len(args))
					for _, p := range args {
						platforms = append(platforms, model.PlatformType(p))
					}
				}
				marked := map[model.PlatformType]int64{}
				for _, p := range platforms {
					n, err := a.svc.SweepStale(ctx, p)
					if err != nil {
						return err
					}
					marked[p] = n
				}
				return printJSON(marked)
			})(cmd, args)
		},
	}
}
