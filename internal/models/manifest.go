package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Manifest 公众号主页内嵌的文章清单 (msgList)
type Manifest struct {
	List []ManifestEntry `json:"list"`
}

// ManifestEntry 清单中的一次推送
type ManifestEntry struct {
	AppMsg  *AppMsgInfo  `json:"app_msg_ext_info"`
	CommMsg *CommMsgInfo `json:"comm_msg_info"`
}

// AppMsgInfo 推送的头条文章,可能附带多图文子列表
type AppMsgInfo struct {
	ContentURL *string        `json:"content_url"`
	Cover      *string        `json:"cover"`
	Digest     *string        `json:"digest"`
	MultiItems []MultiMsgItem `json:"multi_app_msg_item_list"`
}

// MultiMsgItem 多图文中的一篇文章
type MultiMsgItem struct {
	ContentURL *string `json:"content_url"`
	Cover      *string `json:"cover"`
	Digest     *string `json:"digest"`
}

// CommMsgInfo 推送的公共信息
type CommMsgInfo struct {
	Datetime *UnixTime `json:"datetime"`
}

// UnixTime 秒级时间戳,兼容数字和数字字符串两种写法
type UnixTime int64

// UnmarshalJSON 实现json.Unmarshaler
func (u *UnixTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("无效的时间戳 %s: %w", string(data), err)
	}
	*u = UnixTime(v)
	return nil
}

// ManifestItem 展开后的单篇文章条目
type ManifestItem struct {
	ContentURL string
	Cover      string
	Digest     string
	Datetime   int64
}

// FieldError 清单缺少必填字段
type FieldError struct {
	Path string
}

// Error 实现error接口
func (e *FieldError) Error() string {
	return fmt.Sprintf("清单缺少必填字段: %s", e.Path)
}

// ParseManifest 解析清单JSON并校验必填字段
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("解析清单JSON失败: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate 校验每个条目(含多图文子条目)的必填字段
func (m *Manifest) Validate() error {
	for i, entry := range m.List {
		prefix := fmt.Sprintf("list[%d]", i)
		if entry.CommMsg == nil || entry.CommMsg.Datetime == nil {
			return &FieldError{Path: prefix + ".comm_msg_info.datetime"}
		}
		if entry.AppMsg == nil {
			return &FieldError{Path: prefix + ".app_msg_ext_info"}
		}
		app := entry.AppMsg
		if err := requireFields(prefix+".app_msg_ext_info", app.ContentURL, app.Cover, app.Digest); err != nil {
			return err
		}
		for j, item := range app.MultiItems {
			path := fmt.Sprintf("%s.app_msg_ext_info.multi_app_msg_item_list[%d]", prefix, j)
			if err := requireFields(path, item.ContentURL, item.Cover, item.Digest); err != nil {
				return err
			}
		}
	}
	return nil
}

func requireFields(path string, contentURL, cover, digest *string) error {
	switch {
	case contentURL == nil:
		return &FieldError{Path: path + ".content_url"}
	case cover == nil:
		return &FieldError{Path: path + ".cover"}
	case digest == nil:
		return &FieldError{Path: path + ".digest"}
	}
	return nil
}

// Items 按清单顺序展开所有文章,多图文子条目紧跟在所属头条之后
// 调用前必须已通过Validate
func (m *Manifest) Items() []ManifestItem {
	items := make([]ManifestItem, 0, len(m.List))
	for _, entry := range m.List {
		ts := int64(*entry.CommMsg.Datetime)
		app := entry.AppMsg
		items = append(items, ManifestItem{
			ContentURL: *app.ContentURL,
			Cover:      *app.Cover,
			Digest:     *app.Digest,
			Datetime:   ts,
		})
		for _, sub := range app.MultiItems {
			items = append(items, ManifestItem{
				ContentURL: *sub.ContentURL,
				Cover:      *sub.Cover,
				Digest:     *sub.Digest,
				Datetime:   ts,
			})
		}
	}
	return items
}
