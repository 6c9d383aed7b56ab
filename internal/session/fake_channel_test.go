package session

import (
	"context"
	"time"

	"github.com/netsessionpro/netsessionpro/pkg/channel"
)

// fakeChannel 测试用通道：Send 触发脚本回调向缓冲灌入设备响应
type fakeChannel struct {
	buf           *channel.Buffer
	sent          []string
	protocols     []string
	connectErr    map[string]error
	connected     bool
	stayConnected bool
	disconnects   int
	onSend        func(f *fakeChannel, text string)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		buf:       channel.NewBuffer(),
		connected: true,
	}
}

func (f *fakeChannel) Connect(ctx context.Context, spec channel.ProtocolSpec) error {
	f.protocols = append(f.protocols, spec.Protocol)
	if err := f.connectErr[spec.Protocol]; err != nil {
		return err
	}
	f.connected = true
	return nil
}

func (f *fakeChannel) Send(text string) error {
	f.sent = append(f.sent, text)
	if f.onSend != nil {
		f.onSend(f, text)
	}
	return nil
}

func (f *fakeChannel) WaitForAny(patterns []string, timeout time.Duration) (int, error) {
	return f.buf.WaitForAny(patterns, timeout)
}

func (f *fakeChannel) ReadUntilAny(patterns []string, timeout time.Duration) (string, int, error) {
	return f.buf.ReadUntilAny(patterns, timeout)
}

func (f *fakeChannel) IsConnected() bool { return f.connected }

func (f *fakeChannel) DisconnectNow() error {
	f.disconnects++
	if !f.stayConnected {
		f.connected = false
	}
	return nil
}

func (f *fakeChannel) feed(s string) { f.buf.Feed([]byte(s)) }

// fastTimeouts 缩短限时以便测试超时路径
func fastTimeouts() timeouts {
	tm := defaultTimeouts()
	tm.promptWait = 50 * time.Millisecond
	tm.echoWait = 50 * time.Millisecond
	tm.read = 50 * time.Millisecond
	tm.configAck = 50 * time.Millisecond
	tm.configEnd = 50 * time.Millisecond
	tm.bannerWait = 20 * time.Millisecond
	tm.bannerRetry = 20 * time.Millisecond
	tm.disconnectPause = time.Millisecond
	tm.disconnectRetryPause = time.Millisecond
	tm.settle = time.Millisecond
	return tm
}
