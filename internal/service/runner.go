package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/netsessionpro/netsessionpro/internal/config"
	"github.com/netsessionpro/netsessionpro/internal/database"
	"github.com/netsessionpro/netsessionpro/internal/model"
	"github.com/netsessionpro/netsessionpro/internal/session"
	"github.com/netsessionpro/netsessionpro/pkg/channel"
	"github.com/netsessionpro/netsessionpro/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DeviceRequest 一台设备的任务描述
type DeviceRequest struct {
	Host       string `json:"host" binding:"required"`
	Port       int    `json:"port"`
	DeviceName string `json:"device_name"`
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	// Commands 要采集输出的命令列表
	Commands []string `json:"commands"`
	// ConfigCommands 要下发的配置命令列表（不含 configure terminal/end）
	ConfigCommands []string `json:"config_commands"`
	// SaveConfig 配置下发成功后是否保存运行配置
	SaveConfig bool `json:"save_config"`
}

// CommandOutcome 单条命令的采集结果
type CommandOutcome struct {
	Command    string `json:"command"`
	OutputPath string `json:"output_path,omitempty"`
	URI        string `json:"uri,omitempty"`
	Error      string `json:"error,omitempty"`
}

// DeviceOutcome 一台设备的整体结果
type DeviceOutcome struct {
	Host           string           `json:"host"`
	Hostname       string           `json:"hostname,omitempty"`
	OSFamily       string           `json:"os_family,omitempty"`
	Success        bool             `json:"success"`
	Error          string           `json:"error,omitempty"`
	Commands       []CommandOutcome `json:"commands,omitempty"`
	ConfigPath     string           `json:"config_path,omitempty"`
	ConfigURI      string           `json:"config_uri,omitempty"`
	DurationMillis int64            `json:"duration_ms"`
}

// SessionService 设备任务编排：为每台设备建立独立会话与通道，
// 逐条执行采集/配置，落盘并归档
type SessionService struct {
	cfg        *config.Config
	store      ArtifactStore
	newChannel func() session.Channel
}

// NewSessionService 创建编排服务；newChannel 为空时使用真实 SSH 通道
func NewSessionService(cfg *config.Config, store ArtifactStore, newChannel func() session.Channel) *SessionService {
	if newChannel == nil {
		newChannel = func() session.Channel {
			ch := channel.NewSSHChannel()
			ch.SetConnectTimeout(cfg.Session.ConnectTimeout)
			return ch
		}
	}
	return &SessionService{cfg: cfg, store: store, newChannel: newChannel}
}

// RunDevice 执行一台设备的完整任务。失败通过 outcome 返回，
// 不中断批量调用方。
func (s *SessionService) RunDevice(ctx context.Context, req DeviceRequest) *DeviceOutcome {
	start := time.Now()
	outcome := &DeviceOutcome{Host: req.Host}
	kind := model.RunKindCapture
	if len(req.ConfigCommands) > 0 {
		kind = model.RunKindConfig
	}
	record := s.startRecord(req, kind, start)

	sess := session.New(s.newChannel(), session.Settings{ModifyTerm: s.cfg.Session.ModifyTerm})

	port := req.Port
	if port <= 0 {
		port = 22
	}
	if err := sess.Connect(ctx, req.Host, port, req.Username, req.Password); err != nil {
		outcome.Error = err.Error()
		s.finishRecord(record, outcome, start)
		return outcome
	}
	defer func() {
		if err := sess.Disconnect(); err != nil {
			logger.Warn("disconnect failed", "host", req.Host, "error", err)
		}
	}()

	profile := sess.Profile()
	outcome.Hostname = profile.Hostname
	outcome.OSFamily = string(profile.OS)
	if record != nil {
		record.Hostname = profile.Hostname
		record.OSFamily = string(profile.OS)
	}

	failed := false
	for _, command := range req.Commands {
		co := CommandOutcome{Command: command}
		path, err := BuildOutputPath(s.cfg.Output, profile.Hostname, command, start)
		if err == nil {
			err = sess.CaptureToFile(command, path)
		}
		if err != nil {
			co.Error = err.Error()
			failed = true
			outcome.Commands = append(outcome.Commands, co)
			// 交互失败后通道状态不可信，放弃该设备的后续命令
			break
		}
		co.OutputPath = path
		co.URI = s.archive(ctx, path)
		outcome.Commands = append(outcome.Commands, co)
	}

	if !failed && len(req.ConfigCommands) > 0 {
		path, err := BuildOutputPath(s.cfg.Output, profile.Hostname, "config-push", start)
		if err == nil {
			err = sess.SendConfig(req.ConfigCommands, path)
		}
		if err == nil && req.SaveConfig {
			err = sess.SaveRunningConfig()
		}
		if err != nil {
			outcome.Error = err.Error()
			failed = true
		} else {
			outcome.ConfigPath = path
			outcome.ConfigURI = s.archive(ctx, path)
		}
	}

	outcome.Success = !failed
	if failed && outcome.Error == "" {
		for _, co := range outcome.Commands {
			if co.Error != "" {
				outcome.Error = fmt.Sprintf("%s: %s", co.Command, co.Error)
				break
			}
		}
	}
	s.finishRecord(record, outcome, start)
	return outcome
}

// RunBatch 并发执行多台设备的任务，受 session.concurrent 限制。
// 每台设备的失败都记录在各自的 outcome 里，批量层不提前终止。
func (s *SessionService) RunBatch(ctx context.Context, reqs []DeviceRequest) []*DeviceOutcome {
	outcomes := make([]*DeviceOutcome, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.Session.Concurrent
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)

	for i, req := range reqs {
		g.Go(func() error {
			outcomes[i] = s.RunDevice(gctx, req)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// archive 把本地输出文件归档到配置的存储后端
func (s *SessionService) archive(ctx context.Context, localPath string) string {
	if s.store == nil {
		return ""
	}
	uri, err := s.store.Store(ctx, localPath, filepath.Base(localPath))
	if err != nil {
		logger.Warn("artifact store failed", "path", localPath, "error", err)
		return ""
	}
	return uri
}

// startRecord 写入运行记录；数据库未初始化时返回 nil，任务照常执行
func (s *SessionService) startRecord(req DeviceRequest, kind string, start time.Time) *model.RunRecord {
	if database.GetDB() == nil {
		return nil
	}
	commands := req.Commands
	if kind == model.RunKindConfig {
		commands = req.ConfigCommands
	}
	record := &model.RunRecord{
		ID:          uuid.NewString(),
		CollectorID: s.cfg.Session.CollectorID,
		Kind:        kind,
		DeviceIP:    req.Host,
		DevicePort:  req.Port,
		Commands:    strings.Join(commands, "\n"),
		Status:      model.RunStatusRunning,
		StartTime:   start,
	}
	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Create(record).Error
	}, 3, 50*time.Millisecond)
	if err != nil {
		logger.Warn("failed to create run record", "error", err)
		return nil
	}
	return record
}

// finishRecord 更新运行记录的终态
func (s *SessionService) finishRecord(record *model.RunRecord, outcome *DeviceOutcome, start time.Time) {
	outcome.DurationMillis = time.Since(start).Milliseconds()
	if record == nil {
		return
	}
	record.Status = model.RunStatusSuccess
	if !outcome.Success && outcome.Error != "" {
		record.Status = model.RunStatusFailed
		record.ErrorMsg = outcome.Error
	} else if !outcome.Success {
		record.Status = model.RunStatusFailed
	}
	if len(outcome.Commands) > 0 {
		record.OutputPath = outcome.Commands[0].OutputPath
	}
	if outcome.ConfigPath != "" {
		record.OutputPath = outcome.ConfigPath
	}
	record.EndTime = time.Now()
	record.Duration = outcome.DurationMillis
	err := database.WithRetry(func(db *gorm.DB) error {
		return db.Save(record).Error
	}, 3, 50*time.Millisecond)
	if err != nil {
		logger.Warn("failed to update run record", "error", err)
	}
}
