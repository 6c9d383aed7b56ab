package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/netsessionpro/netsessionpro/internal/config"
	"github.com/netsessionpro/netsessionpro/internal/database"
	"github.com/netsessionpro/netsessionpro/internal/service"
	"github.com/netsessionpro/netsessionpro/internal/session"
	"github.com/netsessionpro/netsessionpro/pkg/channel"
	"github.com/netsessionpro/netsessionpro/pkg/logger"
)

// inventory 设备清单文件结构
type inventory struct {
	Devices []service.DeviceRequest `mapstructure:"devices"`
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	inventoryPath := flag.String("inventory", "configs/devices.yaml", "path to device inventory file")
	replayPath := flag.String("replay", "", "replay script for offline runs (skips real connections)")
	interactive := flag.Bool("interactive", false, "ask for transcript files for unscripted replay commands")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 运行记录是尽力而为的，数据库初始化失败不阻塞任务
	if err := database.InitSQLite(cfg.Database.SQLite); err != nil {
		logger.Warn("Database unavailable, run records disabled", "error", err)
	}
	defer database.Close()

	inv, err := loadInventory(*inventoryPath)
	if err != nil {
		logger.Fatal("Failed to load inventory", "error", err)
	}
	if len(inv.Devices) == 0 {
		logger.Fatal("Inventory has no devices", "path", *inventoryPath)
	}

	var newChannel func() session.Channel
	if *replayPath != "" {
		script, err := channel.LoadScript(*replayPath)
		if err != nil {
			logger.Fatal("Failed to load replay script", "error", err)
		}
		newChannel = func() session.Channel {
			rc := channel.NewReplayChannel(script)
			rc.Interactive = *interactive
			return rc
		}
		logger.Info("Running in replay mode", "script", *replayPath)
	}

	store := service.NewArtifactStore(cfg)
	svc := service.NewSessionService(cfg, store, newChannel)

	outcomes := svc.RunBatch(context.Background(), inv.Devices)

	failures := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			logger.Info("Device completed",
				"host", outcome.Host, "hostname", outcome.Hostname,
				"os", outcome.OSFamily, "duration_ms", outcome.DurationMillis)
			continue
		}
		failures++
		logger.Error("Device failed", "host", outcome.Host, "error", outcome.Error)
	}

	logger.Info("Batch finished", "devices", len(outcomes), "failed", failures)
	if failures > 0 {
		os.Exit(1)
	}
}

// loadInventory 用独立的 viper 实例读取设备清单，
// 避免污染全局配置
func loadInventory(path string) (*inventory, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	var inv inventory
	if err := v.Unmarshal(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	return &inv, nil
}
