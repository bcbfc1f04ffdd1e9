// =============================================================================
// truffle 主入口
// =============================================================================
// 命令行工具：列表检测、提示搜索、缓存维护、数据库迁移
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/truffle"
	"github.com/BaSui01/truffle/config"
	"github.com/BaSui01/truffle/internal/server"
	"github.com/BaSui01/truffle/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "truffle",
	Short:         "Adaptive element locator",
	Long:          `truffle finds lists and prompt-described elements on web pages and caches how it found them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level: debug, info, warn, error")
}

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig 加载并验证配置，命令行参数优先
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader().WithValidator((*config.Config).Validate)
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// =============================================================================
// 🔧 运行时装配
// =============================================================================

// runtime 持有一次命令执行所需的全部资源
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	engine  *truffle.Engine
	otel    *telemetry.Providers
	ops     *server.Manager
}

// setup 加载配置并构建 engine；withEngine 为 false 时只初始化日志
func setup(withEngine bool, opts ...truffle.Option) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := initLogger(cfg.Log)
	rt := &runtime{cfg: cfg, logger: logger}
	if !withEngine {
		return rt, nil
	}

	rt.otel, err = telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	opts = append([]truffle.Option{truffle.WithConfig(cfg), truffle.WithLogger(logger)}, opts...)
	rt.engine, err = truffle.New(opts...)
	if err != nil {
		rt.close()
		return nil, err
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		rt.serveMetrics(cfg.Metrics.Addr)
	}
	return rt, nil
}

// serveMetrics 启动 /metrics 与 /healthz；启动失败只记录日志
func (rt *runtime) serveMetrics(addr string) {
	cfg := server.DefaultConfig()
	cfg.Addr = addr
	health := server.PingFunc(func(ctx context.Context) error {
		st, err := rt.engine.Manager().Store()
		if err != nil {
			return err
		}
		return st.Ping(ctx)
	})
	ops := server.NewManager(cfg, nil, health, rt.logger)
	if err := ops.Start(); err != nil {
		rt.logger.Warn("metrics server not started", zap.Error(err))
		return
	}
	rt.ops = ops
}

func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.ops != nil {
		_ = rt.ops.Shutdown(ctx)
	}
	if rt.engine != nil {
		if err := rt.engine.Close(); err != nil {
			rt.logger.Warn("failed to close marker store", zap.Error(err))
		}
	}
	if err := rt.otel.Shutdown(ctx); err != nil {
		rt.logger.Warn("failed to flush telemetry", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		// stdout 留给命令输出
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
