package util

import (
	"bytes"
	"io"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// asciiStripper 移除所有非 7-bit ASCII 字符的转换器
var asciiStripper = runes.Remove(runes.Predicate(func(r rune) bool {
	return r > unicode.MaxASCII
}))

// ToASCII 将行内容收敛为 7-bit ASCII：无法表示的字符直接丢弃。
// 设备输出偶尔混入多字节杂音（常见于 Nexus），写入采集文件前统一清洗。
func ToASCII(s string) string {
	out, _, err := transform.String(asciiStripper, s)
	if err != nil {
		// 转换失败时退化为逐字节过滤
		b := make([]byte, 0, len(s))
		for i := 0; i < len(s); i++ {
			if s[i] <= unicode.MaxASCII {
				b = append(b, s[i])
			}
		}
		return string(b)
	}
	return out
}

// EnsureUTF8Bytes 尝试将非 UTF-8 字节序列按常见编码解码为 UTF-8 字符串。
// 已是合法 UTF-8 时原样返回；全部尝试失败时退回原始字节串。
func EnsureUTF8Bytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}
	encs := []encoding.Encoding{
		simplifiedchinese.GB18030,
		simplifiedchinese.GBK,
		charmap.Windows1252,
		charmap.ISO8859_1,
	}
	for _, enc := range encs {
		if s, ok := tryDecode(enc, b); ok {
			return s
		}
	}
	return string(b)
}

// EnsureUTF8 字符串版本的 EnsureUTF8Bytes
func EnsureUTF8(s string) string {
	return EnsureUTF8Bytes([]byte(s))
}

func tryDecode(enc encoding.Encoding, b []byte) (string, bool) {
	reader := transform.NewReader(bytes.NewReader(b), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", false
	}
	if utf8.Valid(decoded) {
		return string(decoded), true
	}
	return "", false
}
