package channel

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Script 回放脚本：按命令给出分页输出，用于离线调试与集成测试
type Script struct {
	Prompt       string              `mapstructure:"prompt" json:"prompt"`
	ConfigPrompt string              `mapstructure:"config_prompt" json:"config_prompt"`
	PagerToken   string              `mapstructure:"pager_token" json:"pager_token"`
	Outputs      map[string][]string `mapstructure:"outputs" json:"outputs"`
}

// ReplayChannel 脚本回放通道：不依赖真实设备即可演练整个交互流程。
// 交互模式下，未脚本化的命令会在控制台询问一个转录文件路径，
// 用文件内容作为该命令的输出。
type ReplayChannel struct {
	mu          sync.Mutex
	script      Script
	buf         *Buffer
	connected   bool
	configMode  bool
	pending     []string
	Interactive bool
	stdin       *bufio.Reader
}

// NewReplayChannel 创建回放通道
func NewReplayChannel(script Script) *ReplayChannel {
	if script.Prompt == "" {
		script.Prompt = "router#"
	}
	if script.ConfigPrompt == "" {
		base := strings.TrimRight(script.Prompt, "#>")
		script.ConfigPrompt = base + "(config)#"
	}
	if script.PagerToken == "" {
		script.PagerToken = "--More--"
	}
	return &ReplayChannel{
		script: script,
		buf:    NewBuffer(),
		stdin:  bufio.NewReader(os.Stdin),
	}
}

// LoadScript 从 YAML 文件加载回放脚本
func LoadScript(path string) (Script, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Script{}, fmt.Errorf("failed to read replay script: %w", err)
	}
	var s Script
	if err := v.Unmarshal(&s); err != nil {
		return Script{}, fmt.Errorf("failed to parse replay script: %w", err)
	}
	return s, nil
}

// Connect 标记通道就绪（回放模式不需要真实网络）
func (c *ReplayChannel) Connect(ctx context.Context, spec ProtocolSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return fmt.Errorf("channel already connected")
	}
	c.connected = true
	c.configMode = false
	c.pending = nil
	c.buf.Reset()
	return nil
}

// Send 回放一条输入对应的输出
func (c *ReplayChannel) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("channel not connected")
	}

	// 横幅探测：以退格结尾的哨兵直接回显在提示符之后
	if strings.HasSuffix(text, "\b") {
		c.feed(c.prompt() + text)
		return nil
	}

	// 翻页：空格换下一页
	if text == " " {
		c.feedNextPage()
		return nil
	}

	cmd := strings.TrimRight(text, "\r\n")

	// 空命令（提示符探测）：回两个提示符行
	if cmd == "" {
		c.feed("\r\n" + c.script.Prompt + "\r\n" + c.script.Prompt + "\r\n")
		return nil
	}

	switch cmd {
	case "exit":
		c.feed(cmd + "\r\n")
		c.connected = false
		return nil
	case "configure terminal":
		c.configMode = true
		c.feed(cmd + "\r\n" + c.script.ConfigPrompt)
		return nil
	case "end":
		c.configMode = false
		c.feed(cmd + "\r\n" + c.script.Prompt)
		return nil
	}

	if pages, ok := c.script.Outputs[cmd]; ok {
		c.feed(cmd + "\r\n")
		// 空页列表表示设备无响应，用于模拟超时
		if len(pages) == 0 {
			return nil
		}
		c.pending = append([]string(nil), pages...)
		c.feedNextPage()
		return nil
	}

	if c.Interactive {
		return c.feedFromConsole(cmd)
	}

	// 未脚本化命令：回显后直接回提示符
	c.feed(cmd + "\r\n" + c.prompt())
	return nil
}

// feedNextPage 输出下一页；还有后续页时以翻页标记结尾，否则回提示符
func (c *ReplayChannel) feedNextPage() {
	if len(c.pending) == 0 {
		c.feed(c.prompt())
		return
	}
	page := strings.ReplaceAll(c.pending[0], "\n", "\r\n")
	if !strings.HasSuffix(page, "\r\n") {
		page += "\r\n"
	}
	c.pending = c.pending[1:]
	if len(c.pending) > 0 {
		c.feed(page + c.script.PagerToken)
	} else {
		c.feed(page + c.prompt())
	}
}

// feedFromConsole 询问操作员转录文件并回放其内容
func (c *ReplayChannel) feedFromConsole(cmd string) error {
	fmt.Fprintf(os.Stderr, "replay: transcript file for %q (empty to skip): ", cmd)
	line, err := c.stdin.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read transcript path: %w", err)
	}
	path := strings.TrimSpace(line)
	if path == "" {
		c.feed(cmd + "\r\n" + c.prompt())
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	body := strings.ReplaceAll(string(data), "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	if !strings.HasSuffix(body, "\r\n") {
		body += "\r\n"
	}
	c.feed(cmd + "\r\n" + body + c.prompt())
	return nil
}

func (c *ReplayChannel) prompt() string {
	if c.configMode {
		return c.script.ConfigPrompt
	}
	return c.script.Prompt
}

func (c *ReplayChannel) feed(s string) {
	c.buf.Feed([]byte(s))
}

// WaitForAny 见 Buffer.WaitForAny
func (c *ReplayChannel) WaitForAny(patterns []string, timeout time.Duration) (int, error) {
	return c.buf.WaitForAny(patterns, timeout)
}

// ReadUntilAny 见 Buffer.ReadUntilAny
func (c *ReplayChannel) ReadUntilAny(patterns []string, timeout time.Duration) (string, int, error) {
	return c.buf.ReadUntilAny(patterns, timeout)
}

// IsConnected 返回通道是否仍处于连接状态
func (c *ReplayChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// DisconnectNow 立即断开
func (c *ReplayChannel) DisconnectNow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}
