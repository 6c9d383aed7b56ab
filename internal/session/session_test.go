package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/netsessionpro/netsessionpro/pkg/channel"
	"github.com/stretchr/testify/assert"
)

// TestConnectProtocolFallback SSH2 失败后回退 SSH1，两者都失败返回连接错误
func TestConnectProtocolFallback(t *testing.T) {
	f := newFakeChannel()
	f.connected = false
	f.connectErr = map[string]error{
		channel.ProtocolSSH2: errors.New("kex negotiation failed"),
		channel.ProtocolSSH1: errors.New("connection refused"),
	}
	s := New(f, Settings{})
	s.tm = fastTimeouts()

	err := s.Connect(context.Background(), "10.0.0.1", 22, "admin", "secret")
	assert.Error(t, err)
	var connectErr *ConnectError
	assert.ErrorAs(t, err, &connectErr)
	assert.Equal(t, []string{channel.ProtocolSSH2, channel.ProtocolSSH1}, f.protocols, "应按SSH2→SSH1顺序尝试")
	assert.Equal(t, StateDisconnected, s.State())
}

// TestConnectWhileConnected 已连接时拒绝重连
func TestConnectWhileConnected(t *testing.T) {
	f := newFakeChannel()
	s := New(f, Settings{})
	s.state = StateReady

	err := s.Connect(context.Background(), "10.0.0.1", 22, "admin", "secret")
	assert.Error(t, err)
	var connectErr *ConnectError
	assert.ErrorAs(t, err, &connectErr)
	assert.Empty(t, f.protocols, "已连接时不应再发起连接")
}

// TestBannerSyncRetry 横幅未结束时哨兵以更短间隔重发直到被回显
func TestBannerSyncRetry(t *testing.T) {
	f := newFakeChannel()
	probes := 0
	f.onSend = func(f *fakeChannel, text string) {
		if text == bannerSentinel {
			probes++
			if probes == 3 {
				f.feed("lab-sw-01#" + bannerSentinel)
			}
		}
	}
	s := New(f, Settings{})
	s.tm = fastTimeouts()

	assert.NoError(t, s.bannerSync())
	assert.Equal(t, 3, probes, "第三次探测才应命中")
}

// TestBannerSyncExhausted 重试预算耗尽返回交互失败
func TestBannerSyncExhausted(t *testing.T) {
	f := newFakeChannel()
	s := New(f, Settings{})
	s.tm = fastTimeouts()
	s.tm.maxBannerRetries = 3

	err := s.bannerSync()
	assert.Error(t, err)
	var interaction *InteractionError
	assert.ErrorAs(t, err, &interaction)
	// 首次探测加 3 次重试
	assert.Len(t, f.sent, 4)
}

// TestDisconnectBoundedRetry 设备始终不断开：恰好 10 次强制断开后报错
func TestDisconnectBoundedRetry(t *testing.T) {
	f := newFakeChannel()
	f.stayConnected = true
	f.onSend = func(f *fakeChannel, text string) {
		if text == "exit\n" {
			f.feed("exit\r\n")
		}
	}
	s := New(f, Settings{})
	s.tm = fastTimeouts()
	s.state = StateReady

	err := s.Disconnect()
	assert.Error(t, err)
	var connectErr *ConnectError
	assert.ErrorAs(t, err, &connectErr)
	assert.Contains(t, err.Error(), "unable to disconnect")
	assert.Equal(t, 10, f.disconnects, "强制断开应恰好尝试10次")
}

// TestDisconnectGraceful exit 后设备自行断开，无需强制
func TestDisconnectGraceful(t *testing.T) {
	f := newFakeChannel()
	f.onSend = func(f *fakeChannel, text string) {
		if text == "exit\n" {
			f.feed("exit\r\n")
			f.connected = false
		}
	}
	s := New(f, Settings{})
	s.tm = fastTimeouts()
	s.state = StateReady

	assert.NoError(t, s.Disconnect())
	assert.Zero(t, f.disconnects)
	assert.Equal(t, StateDisconnected, s.State())
}

// TestAttachReplayLifecycle 用回放通道走完整生命周期：
// 接管→发现→采集→配置下发→断开
func TestAttachReplayLifecycle(t *testing.T) {
	rc := channel.NewReplayChannel(channel.Script{
		Prompt:     "lab-sw-01#",
		PagerToken: "--More--",
		Outputs: map[string][]string{
			"show version | i Cisco":   {"Cisco IOS Software, C2960 Software\n"},
			"show terminal | i Length": {"Length: 24 lines, Width: 80 columns\n"},
			"show running-config":      {"interface Gi0/1\n", "interface Gi0/2\n"},
		},
	})
	assert.NoError(t, rc.Connect(context.Background(), channel.ProtocolSpec{}))

	s := New(rc, Settings{ModifyTerm: true})
	s.tm = fastTimeouts()

	assert.NoError(t, s.Attach())
	assert.Equal(t, StateReady, s.State())

	profile := s.Profile()
	assert.Equal(t, OSIOS, profile.OS)
	assert.Equal(t, "lab-sw-01#", profile.Prompt)
	assert.Equal(t, "lab-sw-01", profile.Hostname)
	assert.Equal(t, "24", profile.TermLength)
	assert.Equal(t, "80", profile.TermWidth)

	var sink strings.Builder
	assert.NoError(t, s.Capture("show running-config", &sink))
	assert.Contains(t, sink.String(), "interface Gi0/1")
	assert.Contains(t, sink.String(), "interface Gi0/2")
	assert.NotContains(t, sink.String(), "--More--")

	assert.NoError(t, s.Disconnect())
	assert.Equal(t, StateDisconnected, s.State())
	assert.Empty(t, s.Profile().Prompt, "断开后档案应被清空")
}

// TestAttachRequiresConnectedChannel 未连接的通道无法接管
func TestAttachRequiresConnectedChannel(t *testing.T) {
	f := newFakeChannel()
	f.connected = false
	s := New(f, Settings{})

	err := s.Attach()
	assert.Error(t, err)
	var connectErr *ConnectError
	assert.ErrorAs(t, err, &connectErr)
}
