package channel

import (
	"bytes"
	"sync"
	"time"
)

// Buffer 累积通道收到的字节流并提供限时模式匹配。
// 匹配语义：在当前缓冲中找出现位置最早的候选模式，位置相同时序号小的
// 模式优先；匹配成功后消费到模式结尾为止。同一时刻只允许一个等待者，
// 与会话独占通道的约束一致。
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	err    error
	notify chan struct{}
}

// NewBuffer 创建空缓冲
func NewBuffer() *Buffer {
	return &Buffer{notify: make(chan struct{}, 1)}
}

// Feed 追加收到的字节并唤醒等待者
func (b *Buffer) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
	b.wake()
}

// Fail 标记底层读取失败；等待者将收到该错误
func (b *Buffer) Fail(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	if b.err == nil {
		b.err = err
	}
	b.mu.Unlock()
	b.wake()
}

// Reset 清空缓冲与错误状态（重连时使用）
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.data = nil
	b.err = nil
	b.mu.Unlock()
}

func (b *Buffer) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// WaitForAny 等待任一候选模式出现并消费到模式结尾。
// 返回匹配到的模式序号；超时返回 MatchTimeout 且无错误。
func (b *Buffer) WaitForAny(patterns []string, timeout time.Duration) (int, error) {
	_, idx, err := b.match(patterns, timeout)
	return idx, err
}

// ReadUntilAny 读取并返回匹配模式之前的全部文本。
// 超时返回空文本与 MatchTimeout；已读内容保留在缓冲中。
func (b *Buffer) ReadUntilAny(patterns []string, timeout time.Duration) (string, int, error) {
	return b.match(patterns, timeout)
}

func (b *Buffer) match(patterns []string, timeout time.Duration) (string, int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mu.Lock()
		if pos, idx, ok := scan(b.data, patterns); ok {
			text := string(b.data[:pos])
			rest := b.data[pos+len(patterns[idx]):]
			b.data = append([]byte(nil), rest...)
			b.mu.Unlock()
			return text, idx, nil
		}
		err := b.err
		b.mu.Unlock()
		if err != nil {
			return "", MatchTimeout, err
		}

		select {
		case <-b.notify:
		case <-timer.C:
			return "", MatchTimeout, nil
		}
	}
}

// scan 返回最早出现的模式位置与序号
func scan(data []byte, patterns []string) (pos, idx int, ok bool) {
	pos = -1
	for i, p := range patterns {
		if p == "" {
			continue
		}
		at := bytes.Index(data, []byte(p))
		if at < 0 {
			continue
		}
		if pos < 0 || at < pos {
			pos, idx, ok = at, i, true
		}
	}
	return pos, idx, ok
}
