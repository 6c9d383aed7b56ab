package session

import (
	"context"
	"fmt"
	"time"

	"github.com/netsessionpro/netsessionpro/pkg/channel"
	"github.com/netsessionpro/netsessionpro/pkg/logger"
)

// State 会话状态机
type State string

const (
	StateDisconnected  State = "Disconnected"
	StateConnecting    State = "Connecting"
	StateBannerSync    State = "BannerSync"
	StateDiscovering   State = "Discovering"
	StateReady         State = "Ready"
	StateCapturing     State = "Capturing"
	StateConfigPushing State = "ConfigPushing"
	StateDisconnecting State = "Disconnecting"
)

const lineTerm = "\r\n"

// bannerSentinel 横幅同步哨兵：感叹号加退格，设备回显后紧跟在提示符
// 末字符之后出现，不会在屏幕上留下痕迹
const bannerSentinel = "!\b"

// Settings 会话行为开关（由外部配置层装配，会话内只读）
type Settings struct {
	// ModifyTerm 会话开始时是否关闭分页/换行并在结束时恢复
	ModifyTerm bool
}

// timeouts 各阶段的限时与重试预算。固定常量，不对外暴露配置
type timeouts struct {
	promptWait           time.Duration
	echoWait             time.Duration
	read                 time.Duration
	configAck            time.Duration
	configEnd            time.Duration
	bannerWait           time.Duration
	bannerRetry          time.Duration
	disconnectPause      time.Duration
	disconnectRetryPause time.Duration
	settle               time.Duration
	maxBannerRetries     int
	maxDisconnectRetries int
}

func defaultTimeouts() timeouts {
	return timeouts{
		promptWait:           5 * time.Second,
		echoWait:             30 * time.Second,
		read:                 30 * time.Second,
		configAck:            3 * time.Second,
		configEnd:            10 * time.Second,
		bannerWait:           2 * time.Second,
		bannerRetry:          200 * time.Millisecond,
		disconnectPause:      250 * time.Millisecond,
		disconnectRetryPause: 100 * time.Millisecond,
		settle:               100 * time.Millisecond,
		maxBannerRetries:     25,
		maxDisconnectRetries: 10,
	}
}

// Session 一条设备交互会话：独占一个通道与一份设备档案，
// 整个协议是单线程同步的，不允许并发复用。
type Session struct {
	ch       Channel
	settings Settings
	profile  Profile
	state    State
	tm       timeouts
}

// New 创建会话
func New(ch Channel, settings Settings) *Session {
	return &Session{
		ch:       ch,
		settings: settings,
		profile:  Profile{OS: OSUnknown},
		state:    StateDisconnected,
		tm:       defaultTimeouts(),
	}
}

// Profile 返回当前设备档案的副本
func (s *Session) Profile() Profile { return s.profile }

// State 返回当前状态
func (s *Session) State() State { return s.state }

// Connect 建立连接并完成横幅同步、发现与终端初始化。
// 先尝试 SSH2，失败后回退 SSH1；两者都失败返回 ConnectError。
func (s *Session) Connect(ctx context.Context, host string, port int, username, password string) error {
	if s.state != StateDisconnected {
		return &ConnectError{Message: fmt.Sprintf("already connected to %s", s.profile.Hostname)}
	}
	s.state = StateConnecting

	spec := channel.ProtocolSpec{
		Protocol: channel.ProtocolSSH2,
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
	}
	if err := s.ch.Connect(ctx, spec); err != nil {
		logger.Debug("SSH2 connect failed, falling back to SSH1", "host", host, "error", err)
		spec.Protocol = channel.ProtocolSSH1
		if err2 := s.ch.Connect(ctx, spec); err2 != nil {
			s.state = StateDisconnected
			return &ConnectError{Message: fmt.Sprintf("unable to connect to %s", host), Err: err2}
		}
	}
	logger.Info("connected", "host", host, "port", port)

	return s.setup()
}

// Attach 接管一条已经建立的通道（例如回放通道），
// 只执行横幅同步、发现与终端初始化。
func (s *Session) Attach() error {
	if s.state != StateDisconnected {
		return &ConnectError{Message: "already connected"}
	}
	if !s.ch.IsConnected() {
		return &ConnectError{Message: "channel is not connected"}
	}
	s.state = StateConnecting
	return s.setup()
}

func (s *Session) setup() error {
	s.state = StateBannerSync
	if err := s.bannerSync(); err != nil {
		return err
	}

	s.state = StateDiscovering
	// 横幅同步后给设备一点时间吐完残余输出
	time.Sleep(s.tm.settle)

	if err := s.discoverPrompt(); err != nil {
		return err
	}
	if err := s.discoverOS(); err != nil {
		return err
	}
	if err := s.discoverTerminalSize(); err != nil {
		return err
	}
	if s.settings.ModifyTerm {
		if err := s.normalizeTerminal(); err != nil {
			return err
		}
	}

	s.state = StateReady
	logger.Info("session ready", "hostname", s.profile.Hostname, "os", s.profile.OS)
	return nil
}

// bannerSync 横幅同步：发送哨兵并等待它紧跟提示符末字符出现，
// 超时则以更短的间隔重发，处理登录横幅长度不定与首个探测竞争的情况。
// 重试是有界的，耗尽预算视为交互失败。
func (s *Session) bannerSync() error {
	patterns := []string{"# " + bannerSentinel, "#" + bannerSentinel, ">" + bannerSentinel}

	if err := s.ch.Send(bannerSentinel); err != nil {
		return &ConnectError{Message: "failed to send banner probe", Err: err}
	}
	idx, err := s.ch.WaitForAny(patterns, s.tm.bannerWait)
	if err != nil {
		return &ConnectError{Message: "banner synchronization failed", Err: err}
	}

	for retries := 0; idx == channel.MatchTimeout; retries++ {
		if retries >= s.tm.maxBannerRetries {
			return &InteractionError{Message: "banner synchronization failed: sentinel never echoed"}
		}
		if err := s.ch.Send(bannerSentinel); err != nil {
			return &ConnectError{Message: "failed to send banner probe", Err: err}
		}
		idx, err = s.ch.WaitForAny(patterns, s.tm.bannerRetry)
		if err != nil {
			return &ConnectError{Message: "banner synchronization failed", Err: err}
		}
	}
	return nil
}

// Disconnect 恢复终端状态后优雅退出；设备迟迟不断开时强制断开，
// 最多重试 maxDisconnectRetries 次，超出预算返回 ConnectError。
func (s *Session) Disconnect() error {
	if s.state == StateDisconnected {
		return nil
	}
	s.state = StateDisconnecting

	endErr := s.End()

	if err := s.ch.Send("exit\n"); err != nil {
		logger.Debug("failed to send exit", "error", err)
	} else {
		// 等待回显即可，设备随后会自行关闭连接
		_, _ = s.ch.WaitForAny([]string{"exit"}, s.tm.promptWait)
	}
	time.Sleep(s.tm.disconnectPause)

	for attempt := 0; s.ch.IsConnected(); attempt++ {
		if attempt >= s.tm.maxDisconnectRetries {
			return &ConnectError{Message: "unable to disconnect"}
		}
		_ = s.ch.DisconnectNow()
		time.Sleep(s.tm.disconnectRetryPause)
	}

	s.state = StateDisconnected
	logger.Info("disconnected")
	return endErr
}

// End 恢复终端原始分页/宽度设置并清空设备档案。
// 任何时刻调用都是安全的：未建立提示符时等价于空操作。
func (s *Session) End() error {
	var err error
	if s.profile.Prompt != "" && s.settings.ModifyTerm {
		err = s.restoreTerminal()
	}
	s.profile.reset()
	return err
}
