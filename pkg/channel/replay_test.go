package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestReplay() *ReplayChannel {
	return NewReplayChannel(Script{
		Prompt:     "lab-sw-01#",
		PagerToken: "--More--",
		Outputs: map[string][]string{
			"show version": {"Cisco IOS Software, version 15.2\n"},
			"show running-config": {
				"interface Gi0/1\n description uplink\n",
				"interface Gi0/2\n shutdown\n",
			},
			"show clock": {},
		},
	})
}

// TestReplayPromptProbe 空输入应回放两个提示符行
func TestReplayPromptProbe(t *testing.T) {
	c := newTestReplay()
	assert.NoError(t, c.Connect(context.Background(), ProtocolSpec{}))

	assert.NoError(t, c.Send("\r\n\r\n"))
	idx, err := c.WaitForAny([]string{"\n"}, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	text, _, err := c.ReadUntilAny([]string{"\n"}, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "lab-sw-01#\r", text)
}

// TestReplayPagedOutput 多页输出应以翻页标记分隔，空格取下一页
func TestReplayPagedOutput(t *testing.T) {
	c := newTestReplay()
	assert.NoError(t, c.Connect(context.Background(), ProtocolSpec{}))

	assert.NoError(t, c.Send("show running-config\n"))
	idx, err := c.WaitForAny([]string{"show running-config"}, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	var lines []string
	for {
		text, idx, err := c.ReadUntilAny([]string{"\r\n", "--More--", "lab-sw-01#"}, time.Second)
		assert.NoError(t, err)
		if idx == 0 {
			// 回显消费后残留的空行跳过，与采集侧的处理一致
			if text != "" {
				lines = append(lines, text)
			}
			continue
		}
		if idx == 1 {
			assert.NoError(t, c.Send(" "))
			continue
		}
		break
	}
	assert.Equal(t, []string{"interface Gi0/1", " description uplink", "interface Gi0/2", " shutdown"}, lines)
}

// TestReplayNoResponse 空页列表模拟无响应设备
func TestReplayNoResponse(t *testing.T) {
	c := newTestReplay()
	assert.NoError(t, c.Connect(context.Background(), ProtocolSpec{}))

	assert.NoError(t, c.Send("show clock\n"))
	_, err := c.WaitForAny([]string{"show clock"}, time.Second)
	assert.NoError(t, err)

	idx, err := c.WaitForAny([]string{"lab-sw-01#"}, 50*time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, MatchTimeout, idx, "无输出的命令不应出现提示符")
}

// TestReplayConfigMode 配置模式提示符切换与退出
func TestReplayConfigMode(t *testing.T) {
	c := newTestReplay()
	assert.NoError(t, c.Connect(context.Background(), ProtocolSpec{}))

	assert.NoError(t, c.Send("configure terminal\n"))
	idx, err := c.WaitForAny([]string{")#"}, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	assert.NoError(t, c.Send("hostname lab-sw-02\n"))
	idx, err = c.WaitForAny([]string{")#"}, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)

	assert.NoError(t, c.Send("end\n"))
	idx, err = c.WaitForAny([]string{"lab-sw-01#"}, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)
}

// TestReplayExit exit 后通道转为断开
func TestReplayExit(t *testing.T) {
	c := newTestReplay()
	assert.NoError(t, c.Connect(context.Background(), ProtocolSpec{}))
	assert.True(t, c.IsConnected())

	assert.NoError(t, c.Send("exit\n"))
	assert.False(t, c.IsConnected())

	assert.Error(t, c.Send("show version\n"), "断开后发送应报错")
}
