package session

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/netsessionpro/netsessionpro/pkg/channel"
	"github.com/netsessionpro/netsessionpro/pkg/logger"
	"github.com/netsessionpro/netsessionpro/pkg/util"
)

// pagerArtifactRE 翻页器擦除痕迹：空格、退格串、空白、退格串，
// 之后才是真正的行内容
var pagerArtifactRE = regexp.MustCompile(`^ \x08+ +\x08+(.*)$`)

// Capture 执行命令并把输出逐行写入 sink，翻页提示被透明吸收。
// 每行输出经 7-bit 清洗后以 CRLF 结尾写出；清洗后为空的行直接丢弃。
func (s *Session) Capture(command string, sink io.Writer) error {
	if s.state != StateReady {
		return &InteractionError{Message: fmt.Sprintf("session not ready for capture, state is %s", s.state)}
	}
	s.state = StateCapturing
	defer func() { s.state = StateReady }()

	if err := s.ch.Send(command + "\n"); err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed to send %q: %v", command, err)}
	}

	// 跳过本地回显；个别设备不回显命令，超时不视为失败
	if _, err := s.ch.WaitForAny([]string{strings.TrimSpace(command)}, s.tm.echoWait); err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed waiting for echo of %q: %v", command, err)}
	}

	patterns := []string{lineTerm, s.profile.OS.pagerToken(), s.profile.Prompt}
	for {
		text, idx, err := s.ch.ReadUntilAny(patterns, s.tm.read)
		if err != nil {
			return &InteractionError{Message: fmt.Sprintf("channel failure while capturing %q: %v", command, err)}
		}
		switch idx {
		case 0:
			line := strings.Trim(text, "\r\n")
			if line == "" {
				continue
			}
			line = stripPagerArtifact(line)
			if line == "" {
				continue
			}
			if _, err := io.WriteString(sink, util.ToASCII(line)+lineTerm); err != nil {
				return fmt.Errorf("failed to write captured line: %w", err)
			}
		case 1:
			// 翻页提示：发一个空格继续，什么都不输出
			if err := s.ch.Send(" "); err != nil {
				return &InteractionError{Message: fmt.Sprintf("failed to acknowledge pager: %v", err)}
			}
		case 2:
			return nil
		default:
			return &InteractionError{Message: fmt.Sprintf("timed out waiting for output of %q", command)}
		}
	}
}

// CaptureToFile 执行命令并把输出写入文件
func (s *Session) CaptureToFile(command, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := s.Capture(command, f); err != nil {
		return err
	}
	logger.Info("output captured", "command", command, "file", path)
	return nil
}

// CommandOutput 执行命令并返回完整输出文本。
// 内部走逐行采集路径落到临时文件再读回，输出再大也不会在
// 匹配缓冲里无界累积。
func (s *Session) CommandOutput(command string) (string, error) {
	f, err := os.CreateTemp("", "netsession-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	captureErr := s.Capture(command, f)
	closeErr := f.Close()
	if captureErr != nil {
		return "", captureErr
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read temp file: %w", err)
	}
	return string(data), nil
}

// probeOutput 小输出的单次采集：等回显后一次读到提示符并返回修剪后的文本。
// 只用于 show version/show terminal 这类保证很短的探测命令。
func (s *Session) probeOutput(command string) (string, error) {
	if err := s.ch.Send(command + "\n"); err != nil {
		return "", &InteractionError{Message: fmt.Sprintf("failed to send %q: %v", command, err)}
	}
	if _, err := s.ch.WaitForAny([]string{strings.TrimSpace(command)}, s.tm.echoWait); err != nil {
		return "", &InteractionError{Message: fmt.Sprintf("failed waiting for echo of %q: %v", command, err)}
	}
	text, idx, err := s.ch.ReadUntilAny([]string{s.profile.Prompt}, s.tm.read)
	if err != nil {
		return "", &InteractionError{Message: fmt.Sprintf("channel failure while probing %q: %v", command, err)}
	}
	if idx == channel.MatchTimeout {
		return "", &InteractionError{Message: fmt.Sprintf("timed out waiting for output of %q", command)}
	}
	return strings.TrimSpace(text), nil
}

// stripPagerArtifact 去除翻页器留下的退格擦除痕迹；干净的行原样返回
func stripPagerArtifact(line string) string {
	if m := pagerArtifactRE.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return line
}
