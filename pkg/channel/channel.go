// Package channel 提供面向网络设备 CLI 的阻塞式模式匹配通道实现。
// 核心原语只有三个：发送字节、限时等待若干候选模式之一、限时读取到
// 模式为止。SSH 实现驱动真实设备，Replay 实现用本地脚本文件离线仿真。
package channel

import (
	"fmt"
)

// MatchTimeout 表示在限定时间内没有匹配到任何候选模式
const MatchTimeout = -1

// 协议标识：SSH2 为默认协议，SSH1 表示面向老旧设备的兼容档
// （以旧式密钥交换/加密算法集的形式实现）。
const (
	ProtocolSSH2 = "SSH2"
	ProtocolSSH1 = "SSH1"
)

// ProtocolSpec 连接参数
type ProtocolSpec struct {
	Protocol string `json:"protocol"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Addr 返回 host:port 形式的地址，端口缺省为 22
func (s ProtocolSpec) Addr() string {
	port := s.Port
	if port < 1 || port > 65535 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", s.Host, port)
}
