package channel

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHChannel 基于 SSH PTY Shell 的设备交互通道。
// 底层把 stdout/stderr 的原始字节送入 Buffer，匹配语义由 Buffer 提供。
type SSHChannel struct {
	mu      sync.Mutex
	spec    ProtocolSpec
	timeout time.Duration
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	buf     *Buffer
}

// NewSSHChannel 创建 SSH 通道（未连接）
func NewSSHChannel() *SSHChannel {
	return &SSHChannel{
		timeout: 15 * time.Second,
		buf:     NewBuffer(),
	}
}

// SetConnectTimeout 设置 TCP 拨号与 SSH 握手超时，需在 Connect 前调用
func (c *SSHChannel) SetConnectTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.timeout = d
	}
}

// Connect 建立 SSH 连接并打开交互式 Shell
func (c *SSHChannel) Connect(ctx context.Context, spec ProtocolSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return fmt.Errorf("channel already connected")
	}
	c.spec = spec
	c.buf.Reset()

	sshConfig := &ssh.ClientConfig{
		User:            spec.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.timeout,
		// 支持旧版本主机密钥算法
		HostKeyAlgorithms: []string{
			"ssh-rsa",
			"rsa-sha2-256",
			"rsa-sha2-512",
			"ecdsa-sha2-nistp256",
			"ecdsa-sha2-nistp384",
			"ecdsa-sha2-nistp521",
		},
	}

	if spec.Protocol == ProtocolSSH1 {
		// 旧协议回退档：老旧设备只支持早期算法族
		sshConfig.Config = ssh.Config{
			KeyExchanges: []string{
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group1-sha1",
				"diffie-hellman-group-exchange-sha1",
			},
			Ciphers: []string{
				"aes128-cbc",
				"aes192-cbc",
				"aes256-cbc",
				"3des-cbc",
			},
			MACs: []string{
				"hmac-sha1",
				"hmac-sha1-96",
			},
		}
	} else {
		sshConfig.Config = ssh.Config{
			// 支持旧版本的密钥交换算法
			KeyExchanges: []string{
				"diffie-hellman-group14-sha256",
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group1-sha1",
				"diffie-hellman-group-exchange-sha256",
				"diffie-hellman-group-exchange-sha1",
				"ecdh-sha2-nistp256",
				"ecdh-sha2-nistp384",
				"ecdh-sha2-nistp521",
			},
			// 支持旧版本的加密算法
			Ciphers: []string{
				"aes128-ctr",
				"aes192-ctr",
				"aes256-ctr",
				"aes128-gcm@openssh.com",
				"aes256-gcm@openssh.com",
				"aes128-cbc",
				"aes192-cbc",
				"aes256-cbc",
				"3des-cbc",
			},
			// 支持旧版本的MAC算法
			MACs: []string{
				"hmac-sha2-256-etm@openssh.com",
				"hmac-sha2-256",
				"hmac-sha1",
				"hmac-sha1-96",
			},
		}
	}

	if spec.Password != "" {
		// 同时尝试 password 与 keyboard-interactive，提高与网络设备的兼容性
		sshConfig.Auth = []ssh.AuthMethod{
			ssh.Password(spec.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = spec.Password
				}
				return answers, nil
			}),
		}
	}

	address := spec.Addr()

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, sshConfig)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SSH connection: %w", err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to create session: %w", err)
	}

	// 设置终端模式（启用回显，兼容网络设备CLI），并使用终端类型回退
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	var ptyErr error
	for _, term := range []string{"vt100", "xterm", "ansi", "dumb"} {
		if ptyErr = session.RequestPty(term, 24, 80, modes); ptyErr == nil {
			break
		}
	}
	if ptyErr != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("failed to request pty: %w", ptyErr)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("failed to get stdout: %w", err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("failed to get stderr: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("failed to start shell: %w", err)
	}

	c.client = client
	c.session = session
	c.stdin = stdin

	go c.pump(stdout, true)
	go c.pump(stderr, false)

	return nil
}

// pump 持续读取远端输出并灌入缓冲
func (c *SSHChannel) pump(r io.Reader, primary bool) {
	buf := make([]byte, 2048)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.buf.Feed(buf[:n])
		}
		if err != nil {
			// stderr 关闭不代表会话结束，只有主流 EOF 才标记失败
			if primary {
				c.buf.Fail(fmt.Errorf("channel read failed: %w", err))
			}
			return
		}
	}
}

// Send 向远端写入原始文本（不追加换行）
func (c *SSHChannel) Send(text string) error {
	c.mu.Lock()
	stdin := c.stdin
	c.mu.Unlock()
	if stdin == nil {
		return fmt.Errorf("channel not connected")
	}
	if _, err := stdin.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write to channel: %w", err)
	}
	return nil
}

// WaitForAny 限时等待任一模式出现，返回匹配序号；超时返回 MatchTimeout
func (c *SSHChannel) WaitForAny(patterns []string, timeout time.Duration) (int, error) {
	return c.buf.WaitForAny(patterns, timeout)
}

// ReadUntilAny 限时读取到任一模式之前的文本
func (c *SSHChannel) ReadUntilAny(patterns []string, timeout time.Duration) (string, int, error) {
	return c.buf.ReadUntilAny(patterns, timeout)
}

// IsConnected 轻量级健康检查：发送 keepalive 请求而不创建会话
func (c *SSHChannel) IsConnected() bool {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return false
	}
	_, _, err := client.SendRequest("keepalive@openssh.com", false, nil)
	return err == nil
}

// DisconnectNow 立即关闭底层连接
func (c *SSHChannel) DisconnectNow() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.Close()
		c.session = nil
	}
	c.stdin = nil
	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}
