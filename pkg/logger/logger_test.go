package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// TestEntryKeyValuePairs 消息后的键值对应转成结构化字段
func TestEntryKeyValuePairs(t *testing.T) {
	e, msg := entry([]interface{}{"connected", "host", "10.0.0.1", "port", 22})
	assert.Equal(t, "connected", msg)
	assert.Equal(t, "10.0.0.1", e.Data["host"])
	assert.Equal(t, 22, e.Data["port"])
}

// TestEntryOddTrailingValue 落单的尾参数挂在 extra 上
func TestEntryOddTrailingValue(t *testing.T) {
	e, msg := entry([]interface{}{"oops", "leftover"})
	assert.Equal(t, "oops", msg)
	assert.Equal(t, "leftover", e.Data["extra"])
}

func TestEntryEmpty(t *testing.T) {
	e, msg := entry(nil)
	assert.Equal(t, "", msg)
	assert.Empty(t, e.Data)
}

// TestInfoWritesFields 端到端：字段出现在输出里
func TestInfoWritesFields(t *testing.T) {
	var buf bytes.Buffer
	old := log
	defer func() { log = old }()

	log = logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	Info("session ready", "hostname", "lab-sw-01", "os", "IOS")

	out := buf.String()
	assert.Contains(t, out, `"msg":"session ready"`)
	assert.Contains(t, out, `"hostname":"lab-sw-01"`)
	assert.Contains(t, out, `"os":"IOS"`)
}
