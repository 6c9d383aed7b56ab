package session

import (
	"fmt"

	"github.com/netsessionpro/netsessionpro/pkg/channel"
	"github.com/netsessionpro/netsessionpro/pkg/logger"
)

// normalizeTerminal 关闭分页与换行，保证采集输出不被翻页标记打断。
// 每条命令都同步等待提示符，不做流水线。
func (s *Session) normalizeTerminal() error {
	switch s.profile.OS {
	case OSIOS:
		// 只有成功读到原始长度时才动终端，避免无法恢复
		if s.profile.TermLength != "" {
			if err := s.sendAndWaitPrompt("term length 0"); err != nil {
				return err
			}
			if err := s.sendAndWaitPrompt("term width 0"); err != nil {
				return err
			}
		}
	case OSNXOS:
		if err := s.sendAndWaitPrompt("term length 0"); err != nil {
			return err
		}
		if err := s.sendAndWaitPrompt("term width 511"); err != nil {
			return err
		}
	case OSASA:
		if err := s.sendAndWaitPrompt("terminal pager 0"); err != nil {
			return err
		}
	}
	logger.Debug("terminal normalized", "os", s.profile.OS)
	return nil
}

// restoreTerminal 恢复会话开始前保存的终端设置。
// 没有保存值的字段跳过；ASA 的 pager 恢复不等待提示符，
// 因为部分固件在断开前不再回显。
func (s *Session) restoreTerminal() error {
	switch s.profile.OS {
	case OSIOS, OSNXOS:
		if s.profile.TermLength != "" {
			if err := s.sendAndWaitPrompt("term length " + s.profile.TermLength); err != nil {
				return err
			}
		}
		if s.profile.TermWidth != "" {
			if err := s.sendAndWaitPrompt("term width " + s.profile.TermWidth); err != nil {
				return err
			}
		}
	case OSASA:
		if s.profile.TermLength != "" {
			if err := s.ch.Send("terminal pager " + s.profile.TermLength + "\n"); err != nil {
				return &InteractionError{Message: fmt.Sprintf("failed to restore pager: %v", err)}
			}
		}
	}
	logger.Debug("terminal restored", "os", s.profile.OS)
	return nil
}

// sendAndWaitPrompt 发送一条命令并等待提示符重新出现
func (s *Session) sendAndWaitPrompt(command string) error {
	if err := s.ch.Send(command + "\n"); err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed to send %q: %v", command, err)}
	}
	idx, err := s.ch.WaitForAny([]string{s.profile.Prompt}, s.tm.read)
	if err != nil {
		return &InteractionError{Message: fmt.Sprintf("failed waiting for prompt after %q: %v", command, err)}
	}
	if idx == channel.MatchTimeout {
		return &InteractionError{Message: fmt.Sprintf("no prompt after %q", command)}
	}
	return nil
}
