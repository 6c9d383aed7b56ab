package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestValidatePrompt 提示符校验规则
func TestValidatePrompt(t *testing.T) {
	assert.NoError(t, validatePrompt("Router#"))
	assert.NoError(t, validatePrompt("core-sw-01#"))

	err := validatePrompt("Router>")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not in enable mode", "以>结尾应判定为非特权模式")

	err = validatePrompt("Router(config)#")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already in configuration mode")

	err = validatePrompt("Router$")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unable to capture prompt")

	assert.Error(t, validatePrompt(""))
}

// TestClassifyOS 版本串子串匹配的顺序与结果
func TestClassifyOS(t *testing.T) {
	cases := []struct {
		version string
		want    OSFamily
	}{
		{"Cisco IOS XE Software, Version 16.09.04", OSIOS},
		{"Cisco IOS Software, C2960 Software", OSIOS},
		{"Cisco Internetwork Operating System Software", OSIOS},
		{"Cisco Nexus Operating System (NX-OS) Software", OSNXOS},
		{"Cisco Adaptive Security Appliance Software Version 9.8", OSASA},
	}
	for _, c := range cases {
		got, err := classifyOS(c.version)
		assert.NoError(t, err)
		assert.Equal(t, c.want, got, c.version)
	}

	_, err := classifyOS("Arista EOS version 4.24")
	assert.Error(t, err)
	var unsupported *UnsupportedDeviceError
	assert.ErrorAs(t, err, &unsupported)
	assert.Contains(t, unsupported.Version, "Arista")
}

// TestFirstNumber 数字扫描：取第一段连续数字，没有返回空串
func TestFirstNumber(t *testing.T) {
	assert.Equal(t, "24", firstNumber("Length: 24 lines"))
	assert.Equal(t, "511", firstNumber("Width: 511 columns"))
	assert.Equal(t, "0", firstNumber("pager lines 0"))
	assert.Equal(t, "", firstNumber("no digits here"))
	assert.Equal(t, "80", firstNumber("80"))
}

// TestProfileReset 档案清空
func TestProfileReset(t *testing.T) {
	p := Profile{OS: OSIOS, Prompt: "sw#", Hostname: "sw", TermLength: "24", TermWidth: "80"}
	p.reset()
	assert.Equal(t, OSUnknown, p.OS)
	assert.Empty(t, p.Prompt)
	assert.Empty(t, p.Hostname)
	assert.Empty(t, p.TermLength)
	assert.Empty(t, p.TermWidth)
}
