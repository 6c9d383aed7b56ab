// Package session 实现与网络设备交互式 CLI 会话的核心协议：
// 提示符/OS/终端尺寸发现、分页输出采集、配置下发握手与连接生命周期管理。
package session

import (
	"context"
	"time"

	"github.com/netsessionpro/netsessionpro/pkg/channel"
)

// Channel 会话依赖的模式匹配通道能力。
// 实现方：pkg/channel 的 SSHChannel（真实设备）与 ReplayChannel（离线回放）。
// 通道同一时刻只被一个会话独占，所有交互都是同步的请求/响应。
type Channel interface {
	// Connect 按协议描述建立底层连接
	Connect(ctx context.Context, spec channel.ProtocolSpec) error
	// Send 写入原始文本，不自动追加换行
	Send(text string) error
	// WaitForAny 限时等待任一模式，返回匹配序号；超时返回 channel.MatchTimeout
	WaitForAny(patterns []string, timeout time.Duration) (int, error)
	// ReadUntilAny 限时读取到任一模式之前的文本
	ReadUntilAny(patterns []string, timeout time.Duration) (string, int, error)
	// IsConnected 轻量连通性检查
	IsConnected() bool
	// DisconnectNow 立即强制断开
	DisconnectNow() error
}
