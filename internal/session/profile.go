package session

// OSFamily 设备操作系统家族
type OSFamily string

const (
	OSUnknown OSFamily = "Unknown"
	OSIOS     OSFamily = "IOS"
	OSNXOS    OSFamily = "NXOS"
	OSASA     OSFamily = "ASA"
)

// pagerToken 返回该 OS 的翻页提示标记
func (os OSFamily) pagerToken() string {
	if os == OSASA {
		return "<--- More --->"
	}
	return "--More--"
}

// Profile 每个连接独占一份的设备档案：由发现阶段填充，
// 其余组件只读，断开时清空。
type Profile struct {
	OS       OSFamily `json:"os"`
	Prompt   string   `json:"prompt"`
	Hostname string   `json:"hostname"`
	// 修改终端前保存的原始值，空串表示未能发现、不做恢复
	TermLength string `json:"term_length"`
	TermWidth  string `json:"term_width"`
}

// reset 清空档案（会话结束时调用）
func (p *Profile) reset() {
	p.OS = OSUnknown
	p.Prompt = ""
	p.Hostname = ""
	p.TermLength = ""
	p.TermWidth = ""
}
