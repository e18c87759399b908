package utils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/RecoveryAshes/wescraper/internal/models"
)

// JSONLinesSink 以JSON Lines格式输出记录,每条记录一行
// 并发写入按调用顺序串行化,单条记录不会与其他记录交错
type JSONLinesSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	count  int
}

// NewJSONLinesSink 包装任意writer
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	s := &JSONLinesSink{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		s.closer = c
	}
	return s
}

// OpenSink path为空时写到stdout,否则创建(截断)文件
func OpenSink(path string) (*JSONLinesSink, error) {
	if path == "" {
		return NewJSONLinesSink(os.Stdout), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建输出文件失败: %w", err)
	}
	Debugf("记录输出到: %s", path)
	return NewJSONLinesSink(f), nil
}

// Write 写入一条记录
// 每条记录写完立即刷新,进程中途退出时已输出的记录是完整的
func (s *JSONLinesSink) Write(rec models.Record) error {
	// 正文是HTML,不转义<>&
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("序列化记录失败: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("写入记录失败: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("刷新输出失败: %w", err)
	}
	s.count++
	return nil
}

// Count 已写入的记录数
func (s *JSONLinesSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close 刷新并关闭底层文件 (stdout不会被关闭)
func (s *JSONLinesSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
