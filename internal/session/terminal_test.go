package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// echoPrompt 任何命令都立即回提示符
func echoPrompt(prompt string) func(f *fakeChannel, text string) {
	return func(f *fakeChannel, text string) {
		f.feed(text + "\r" + prompt)
	}
}

// TestTerminalSymmetry 有保存值时：开始关闭分页，结束恢复原值
func TestTerminalSymmetry(t *testing.T) {
	f := newFakeChannel()
	f.onSend = echoPrompt("lab-sw-01#")
	s := readySession(f)
	s.profile.TermLength = "24"
	s.profile.TermWidth = "80"

	assert.NoError(t, s.normalizeTerminal())
	joined := strings.Join(f.sent, "")
	assert.Contains(t, joined, "term length 0\n")
	assert.Contains(t, joined, "term width 0\n")

	f.sent = nil
	assert.NoError(t, s.restoreTerminal())
	joined = strings.Join(f.sent, "")
	assert.Contains(t, joined, "term length 24\n", "结束时应恢复保存的长度")
	assert.Contains(t, joined, "term width 80\n")
}

// TestTerminalNoSavedLength 未发现长度时不动终端也不恢复
func TestTerminalNoSavedLength(t *testing.T) {
	f := newFakeChannel()
	f.onSend = echoPrompt("lab-sw-01#")
	s := readySession(f)
	s.profile.TermLength = ""
	s.profile.TermWidth = ""

	assert.NoError(t, s.normalizeTerminal())
	assert.Empty(t, f.sent, "IOS无保存长度时不应发送终端命令")

	assert.NoError(t, s.restoreTerminal())
	assert.Empty(t, f.sent, "无保存值时不应发送恢复命令")
}

// TestTerminalNXOS NXOS 不依赖保存值，宽度固定 511
func TestTerminalNXOS(t *testing.T) {
	f := newFakeChannel()
	f.onSend = echoPrompt("lab-n9k-01#")
	s := readySession(f)
	s.profile = Profile{OS: OSNXOS, Prompt: "lab-n9k-01#", Hostname: "lab-n9k-01"}

	assert.NoError(t, s.normalizeTerminal())
	joined := strings.Join(f.sent, "")
	assert.Contains(t, joined, "term length 0\n")
	assert.Contains(t, joined, "term width 511\n")
}

// TestTerminalASA ASA 用 terminal pager，恢复不等提示符
func TestTerminalASA(t *testing.T) {
	f := newFakeChannel()
	f.onSend = echoPrompt("lab-fw-01#")
	s := readySession(f)
	s.profile = Profile{OS: OSASA, Prompt: "lab-fw-01#", Hostname: "lab-fw-01", TermLength: "24"}

	assert.NoError(t, s.normalizeTerminal())
	assert.Contains(t, strings.Join(f.sent, ""), "terminal pager 0\n")

	f.sent = nil
	assert.NoError(t, s.restoreTerminal())
	assert.Equal(t, []string{"terminal pager 24\n"}, f.sent)
}

// TestEndWithoutProfile 从未建立提示符时 End 是空操作
func TestEndWithoutProfile(t *testing.T) {
	f := newFakeChannel()
	s := New(f, Settings{ModifyTerm: true})

	assert.NoError(t, s.End())
	assert.Empty(t, f.sent)
	assert.Equal(t, OSUnknown, s.Profile().OS)
}
