// speech-engine 是多服务语音合成的命令行入口。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/iabetor/speech-engine/internal/config"
	"github.com/iabetor/speech-engine/internal/logger"
	"github.com/iabetor/speech-engine/internal/metrics"
)

const defaultEnvFile = ".env"

// app 保存全局参数和加载后的配置，供子命令共享。
type app struct {
	configPath  string
	envFile     string
	provider    string
	voice       string
	speed       float64
	pitch       float64
	metricsAddr string

	cfg           *config.Config
	metricsServer *http.Server
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "speech-engine",
		Short:         "统一的多服务语音合成工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `speech-engine 通过同一套命令调用 Google、Wit.ai、Deepgram、ElevenLabs、
PlayAI、OpenAI、Edge 和腾讯云的语音合成服务：朗读、保存为文件、列出音色。`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "配置文件路径（为空时使用默认配置）")
	flags.StringVar(&a.envFile, "env-file", defaultEnvFile, "启动前加载的 .env 文件")
	flags.StringVarP(&a.provider, "provider", "p", "", "语音服务，覆盖配置中的 provider")
	flags.StringVarP(&a.voice, "voice", "v", "", "音色，覆盖配置中的默认音色")
	flags.Float64Var(&a.speed, "speed", 0, "语速（仅部分服务支持），0 表示使用配置")
	flags.Float64Var(&a.pitch, "pitch", 0, "音调（仅部分服务支持），0 表示使用配置")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "Prometheus 指标监听地址，如 :9090")

	root.AddCommand(
		newSpeakCmd(a),
		newSaveCmd(a),
		newVoicesCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// setup 依次加载 .env、配置文件、日志和指标服务。
func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(a.envFile); err != nil {
		// 默认的 .env 不存在时忽略，显式指定的必须存在
		if cmd.Flags().Changed("env-file") || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("加载 %s 失败: %w", a.envFile, err)
		}
	}

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.provider != "" {
		cfg.Provider = strings.ToLower(a.provider)
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Addr = a.metricsAddr
	}
	a.cfg = cfg

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		a.startMetrics(cfg.Metrics.Addr)
	}
	return nil
}

func (a *app) startMetrics(addr string) {
	metrics.Default()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(prometheus.DefaultGatherer))
	a.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Infof("[main] 指标服务监听 %s", addr)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("[main] 指标服务退出: %v", err)
		}
	}()
}

// teardown 在命令结束后调用，无论成功与否。
func (a *app) teardown() {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.metricsServer.Shutdown(ctx)
	}
	logger.Sync()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := a.rootCmd().ExecuteContext(ctx)
	a.teardown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		stop()
		os.Exit(1)
	}
}
