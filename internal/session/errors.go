package session

import "fmt"

// ConnectError 连接建立或拆除失败
type ConnectError struct {
	Message string
	Err     error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConnectError) Unwrap() error { return e.Err }

// InteractionError 设备交互失败：期望的模式在限时内未出现，
// 或设备返回了非预期响应（提示符格式错误、配置命令未确认等）
type InteractionError struct {
	Message string
}

func (e *InteractionError) Error() string { return e.Message }

// UnsupportedDeviceError 版本串未匹配任何已知 OS 签名
type UnsupportedDeviceError struct {
	Version string
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("unsupported device, version string: %s", e.Version)
}
