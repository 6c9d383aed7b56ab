package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/netsessionpro/netsessionpro/pkg/channel"
	"github.com/netsessionpro/netsessionpro/pkg/logger"
	"github.com/netsessionpro/netsessionpro/pkg/util"
)

// SendConfig 在 configure terminal / end 括号内按序下发配置命令。
// 每条命令都必须在短限时内回到配置模式提示符（")#"），否则立即以
// InteractionError 失败并指明出错命令。中途失败不回滚，设备停留在
// 失败命令产生的状态，由调用方自行处置。全部响应拼成一份转录（去掉
// 回车、保留换行）写入 filename。
func (s *Session) SendConfig(commands []string, filename string) error {
	if s.state != StateReady {
		return &InteractionError{Message: fmt.Sprintf("session not ready for config push, state is %s", s.state)}
	}
	for _, cmd := range commands {
		trimmed := strings.TrimSpace(cmd)
		if trimmed == "configure terminal" || trimmed == "end" {
			return &InteractionError{Message: fmt.Sprintf("config command list must not contain %q", trimmed)}
		}
	}

	s.state = StateConfigPushing
	defer func() { s.state = StateReady }()

	var transcript strings.Builder

	list := append([]string{"configure terminal"}, commands...)
	for _, cmd := range list {
		if err := s.ch.Send(cmd + "\n"); err != nil {
			return &InteractionError{Message: fmt.Sprintf("failed to send config command %q: %v", cmd, err)}
		}
		text, idx, err := s.ch.ReadUntilAny([]string{")#"}, s.tm.configAck)
		if err != nil {
			return &InteractionError{Message: fmt.Sprintf("channel failure on config command %q: %v", cmd, err)}
		}
		if idx == channel.MatchTimeout {
			return &InteractionError{Message: fmt.Sprintf("device did not acknowledge config command %q", cmd)}
		}
		// 匹配掉的 ")#" 补回转录，保留每条命令的分隔标记
		transcript.WriteString(text)
		transcript.WriteString(")#")
	}

	if err := s.ch.Send("end\n"); err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed to send end: %v", err)}
	}
	text, idx, err := s.ch.ReadUntilAny([]string{s.profile.Prompt}, s.tm.configEnd)
	if err != nil {
		return &InteractionError{Message: fmt.Sprintf("channel failure leaving config mode: %v", err)}
	}
	if idx == channel.MatchTimeout {
		return &InteractionError{Message: "no prompt after leaving config mode"}
	}
	transcript.WriteString(text)
	transcript.WriteString(s.profile.Prompt)

	// 转录不走 7-bit 清洗，老旧设备的本地化回显先收敛成合法 UTF-8
	body := util.EnsureUTF8(strings.ReplaceAll(transcript.String(), "\r", ""))
	if err := os.WriteFile(filename, []byte(body), 0644); err != nil {
		return fmt.Errorf("failed to write config transcript: %w", err)
	}
	logger.Info("config pushed", "commands", len(commands), "transcript", filename)
	return nil
}

// SaveRunningConfig 将运行配置保存到启动配置。
// IOS/NXOS 用 copy running-config startup-config，目标文件名确认
// 提示直接回车；ASA 用 write memory。
func (s *Session) SaveRunningConfig() error {
	if s.state != StateReady {
		return &InteractionError{Message: fmt.Sprintf("session not ready to save config, state is %s", s.state)}
	}

	command := "copy running-config startup-config"
	if s.profile.OS == OSASA {
		command = "write memory"
	}

	if err := s.ch.Send(command + "\n"); err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed to send %q: %v", command, err)}
	}
	if _, err := s.ch.WaitForAny([]string{strings.TrimSpace(command)}, s.tm.echoWait); err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed waiting for echo of %q: %v", command, err)}
	}

	idx, err := s.ch.WaitForAny([]string{"?", s.profile.Prompt}, s.tm.read)
	if err != nil {
		return &InteractionError{Message: fmt.Sprintf("channel failure while saving config: %v", err)}
	}
	if idx == channel.MatchTimeout {
		return &InteractionError{Message: "timed out saving running config"}
	}
	if idx == 0 {
		// 确认目标文件名
		if err := s.ch.Send("\n"); err != nil {
			return &InteractionError{Message: fmt.Sprintf("failed to confirm save: %v", err)}
		}
		idx, err = s.ch.WaitForAny([]string{s.profile.Prompt}, s.tm.read)
		if err != nil {
			return &InteractionError{Message: fmt.Sprintf("channel failure while saving config: %v", err)}
		}
		if idx == channel.MatchTimeout {
			return &InteractionError{Message: "timed out saving running config"}
		}
	}
	logger.Info("running config saved", "hostname", s.profile.Hostname)
	return nil
}
