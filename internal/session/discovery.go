package session

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/netsessionpro/netsessionpro/pkg/channel"
	"github.com/netsessionpro/netsessionpro/pkg/logger"
)

// discoverPrompt 提示符发现：连发两个换行迫使设备重新打印提示符，
// 读取下一行并校验是否处于特权模式。
func (s *Session) discoverPrompt() error {
	if err := s.ch.Send(lineTerm + lineTerm); err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed to probe prompt: %v", err)}
	}

	idx, err := s.ch.WaitForAny([]string{"\n"}, s.tm.promptWait)
	if err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed to probe prompt: %v", err)}
	}
	if idx == channel.MatchTimeout {
		return &InteractionError{Message: "unable to capture prompt: no response to probe"}
	}

	text, idx, err := s.ch.ReadUntilAny([]string{"\n"}, s.tm.promptWait)
	if err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed to probe prompt: %v", err)}
	}
	if idx == channel.MatchTimeout {
		return &InteractionError{Message: "unable to capture prompt: no response to probe"}
	}

	prompt := strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	if err := validatePrompt(prompt); err != nil {
		return err
	}

	s.profile.Prompt = prompt
	s.profile.Hostname = prompt[:len(prompt)-1]
	logger.Debug("prompt discovered", "prompt", prompt)
	return nil
}

// validatePrompt 校验提示符：必须以 # 结尾（特权模式），
// 且 # 前不能是括号模式段（已处于配置模式）。
func validatePrompt(prompt string) error {
	if prompt == "" {
		return &InteractionError{Message: "unable to capture prompt"}
	}
	if strings.HasSuffix(prompt, ">") {
		return &InteractionError{Message: "not in enable mode"}
	}
	if len(prompt) >= 2 && prompt[len(prompt)-2] == ')' {
		return &InteractionError{Message: "already in configuration mode"}
	}
	if !strings.HasSuffix(prompt, "#") {
		return &InteractionError{Message: "unable to capture prompt"}
	}
	return nil
}

// discoverOS 通过版本串的有序子串匹配识别 OS 家族。
// 检查顺序是行为的一部分，不要调整。
func (s *Session) discoverOS() error {
	version, err := s.probeOutput("show version | i Cisco")
	if err != nil {
		return err
	}
	os, err := classifyOS(version)
	if err != nil {
		return err
	}
	s.profile.OS = os
	logger.Debug("os discovered", "os", os)
	return nil
}

func classifyOS(version string) (OSFamily, error) {
	switch {
	case strings.Contains(version, "IOS XE"):
		return OSIOS, nil
	case strings.Contains(version, "Cisco IOS Software"),
		strings.Contains(version, "Cisco Internetwork Operating System"):
		return OSIOS, nil
	case strings.Contains(version, "Cisco Nexus Operating System"):
		return OSNXOS, nil
	case strings.Contains(version, "Adaptive Security Appliance"):
		return OSASA, nil
	default:
		return OSUnknown, &UnsupportedDeviceError{Version: version}
	}
}

// discoverTerminalSize 记录修改前的终端长宽，供会话结束时恢复。
// 输出里没有数字只表示无法恢复，不算错误。
func (s *Session) discoverTerminalSize() error {
	switch s.profile.OS {
	case OSASA:
		pager, err := s.probeOutput("show pager")
		if err != nil {
			return err
		}
		s.profile.TermLength = firstNumber(pager)
		term, err := s.probeOutput("show terminal")
		if err != nil {
			return err
		}
		s.profile.TermWidth = firstNumber(term)
	default:
		out, err := s.probeOutput("show terminal | i Length")
		if err != nil {
			return err
		}
		parts := strings.Split(out, ",")
		if len(parts) > 0 {
			s.profile.TermLength = firstNumber(parts[0])
		}
		if len(parts) > 1 {
			s.profile.TermWidth = firstNumber(parts[1])
		}
	}
	logger.Debug("terminal size discovered",
		"length", s.profile.TermLength, "width", s.profile.TermWidth)
	return nil
}

// firstNumber 返回串中第一段连续十进制数字，没有则返回空串
func firstNumber(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}
