package model

import (
	"time"
)

// RunRecord 一次设备会话运行记录：采集或配置下发各生成一条
type RunRecord struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	CollectorID string    `json:"collector_id" gorm:"type:varchar(64);index"`
	Kind        string    `json:"kind" gorm:"type:varchar(16);not null"`
	DeviceIP    string    `json:"device_ip" gorm:"type:varchar(64);not null;index"`
	DevicePort  int       `json:"device_port" gorm:"not null;default:22"`
	Hostname    string    `json:"hostname" gorm:"type:varchar(128)"`
	OSFamily    string    `json:"os_family" gorm:"type:varchar(16)"`
	Commands    string    `json:"commands" gorm:"type:text;not null"`
	OutputPath  string    `json:"output_path" gorm:"type:text"`
	Status      string    `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	ErrorMsg    string    `json:"error_msg" gorm:"type:text"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Duration    int64     `json:"duration"` // 执行时长，毫秒
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 表名
func (RunRecord) TableName() string {
	return "run_records"
}

// 运行记录状态枚举
const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// 运行记录种类枚举
const (
	RunKindCapture = "capture"
	RunKindConfig  = "config"
)
