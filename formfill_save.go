// Copyright 2025-2026 肖其顿 (XIAO QI DUN)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package formfill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	// FilledSuffix 保存文件名的固定后缀
	FilledSuffix = "-filled"
	// markerPrefix 保存标记前缀
	markerPrefix = "@@"
	// fallbackStem 原文件名为空时使用的名称
	fallbackStem = "Form"
)

// markerPattern 已有的保存标记
var markerPattern = regexp.MustCompile(`@@\d+.*$`)

// record 序列化格式
type record struct {
	ID       string          `json:"id"`
	Type     FieldType       `json:"type"`
	Page     int             `json:"page"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	Content  json.RawMessage `json:"content"`
	FontSize *float64        `json:"fontSize,omitempty"`
	Color    *string         `json:"color,omitempty"`
}

// Marshal 序列化注释集合
// 入参: anns 注释列表
// 返回: []byte JSON数据, error 错误信息
func Marshal(anns []Annotation) ([]byte, error) {
	records := make([]record, 0, len(anns))
	for _, a := range anns {
		if err := a.validate(); err != nil {
			return nil, err
		}
		content, err := encodeContent(a.Content)
		if err != nil {
			return nil, fmt.Errorf("annotation %s: %w", a.ID, err)
		}
		rec := record{
			ID:      a.ID,
			Type:    a.Type,
			Page:    a.Page,
			X:       a.X,
			Y:       a.Y,
			Width:   a.Width,
			Height:  a.Height,
			Content: content,
		}
		if a.FontSize > 0 {
			rec.FontSize = Float(a.FontSize)
		}
		if a.Color != "" {
			rec.Color = String(a.Color)
		}
		records = append(records, rec)
	}
	return json.Marshal(records)
}

// Unmarshal 反序列化注释集合
// 入参: data JSON数据
// 返回: []Annotation 注释列表, error 错误信息
func Unmarshal(data []byte) ([]Annotation, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode annotations: %w", err)
	}
	anns := make([]Annotation, 0, len(records))
	for i, rec := range records {
		t, err := ParseFieldType(string(rec.Type))
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		content, err := decodeContent(t, rec.Content)
		if err != nil {
			return nil, fmt.Errorf("annotation %s: %w", rec.ID, err)
		}
		a := Annotation{
			ID:      rec.ID,
			Type:    t,
			Page:    rec.Page,
			X:       rec.X,
			Y:       rec.Y,
			Width:   rec.Width,
			Height:  rec.Height,
			Content: content,
		}
		if rec.FontSize != nil {
			a.FontSize = *rec.FontSize
		}
		if rec.Color != nil {
			a.Color = *rec.Color
		}
		anns = append(anns, a)
	}
	return anns, nil
}

// encodeContent 按类型编码内容
func encodeContent(c Content) (json.RawMessage, error) {
	switch v := c.(type) {
	case TextContent, DateContent, TimestampContent:
		return json.Marshal(contentText(v))
	case CheckboxContent:
		return json.Marshal(bool(v))
	case SignatureContent:
		if v.Ref == "" {
			return json.RawMessage("null"), nil
		}
		return json.Marshal(v.Ref)
	}
	return nil, ErrContentMismatch
}

// decodeContent 按类型解码内容
// 复选框兼容 "true" 与 1 两种写法
func decodeContent(t FieldType, raw json.RawMessage) (Content, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return emptyContent(t), nil
	}
	switch t {
	case FieldCheckbox:
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return CheckboxContent(b), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return CheckboxContent(strings.EqualFold(s, "true")), nil
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return CheckboxContent(n == 1), nil
		}
		return nil, fmt.Errorf("checkbox content %s: %w", raw, ErrContentMismatch)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s content %s: %w", t, raw, ErrContentMismatch)
	}
	switch t {
	case FieldDate:
		return DateContent(s), nil
	case FieldTimestamp:
		return TimestampContent(s), nil
	case FieldSignature:
		return SignatureContent{Ref: s}, nil
	}
	return TextContent(s), nil
}

// emptyContent 空内容
func emptyContent(t FieldType) Content {
	switch t {
	case FieldDate:
		return DateContent("")
	case FieldTimestamp:
		return TimestampContent("")
	case FieldCheckbox:
		return CheckboxContent(false)
	case FieldSignature:
		return SignatureContent{}
	}
	return TextContent("")
}

// Namer 保存文件名生成器
// 同一实例生成的时间标记严格递增
type Namer struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewNamer 创建文件名生成器
// 入参: now 时钟函数, 为nil时使用 time.Now
// 返回: *Namer 生成器
func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// Next 由原文件名生成新的保存文件名
// 去除目录、扩展名与已有的保存标记, 追加新的时间标记与固定后缀后恢复扩展名
// 入参: original 原文件名
// 返回: string 新文件名
func (n *Namer) Next(original string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := path.Ext(base)
	stem := markerPattern.ReplaceAllString(strings.TrimSuffix(base, ext), "")
	if stem == "" {
		stem = fallbackStem
	}
	n.mu.Lock()
	mark := n.now().UnixMilli()
	if mark <= n.last {
		mark = n.last + 1
	}
	n.last = mark
	n.mu.Unlock()
	return fmt.Sprintf("%s%s%d%s%s", stem, markerPrefix, mark, FilledSuffix, ext)
}

// SaveRequest 交给保存目标的数据
type SaveRequest struct {
	Payload    []byte
	FileName   string
	DocumentID string
}

// SaveResponse 保存目标的返回
type SaveResponse struct {
	Success   bool
	FinalName string
	Error     string
}

// Sink 外部保存/上传目标
type Sink interface {
	Save(ctx context.Context, req SaveRequest) (SaveResponse, error)
}

// SinkFunc 函数形式的 Sink
type SinkFunc func(ctx context.Context, req SaveRequest) (SaveResponse, error)

// Save 调用函数
func (f SinkFunc) Save(ctx context.Context, req SaveRequest) (SaveResponse, error) {
	return f(ctx, req)
}

// SaveResult 保存结果
type SaveResult struct {
	Success   bool
	FinalName string
}

// Saver 持久化适配器
// 同一时间只允许一个保存, 期间的再次触发直接忽略
type Saver struct {
	sink     Sink
	namer    *Namer
	log      zerolog.Logger
	inFlight atomic.Bool
}

// NewSaver 创建持久化适配器
// 入参: sink 保存目标, namer 文件名生成器, log 日志
// 返回: *Saver 适配器
func NewSaver(sink Sink, namer *Namer, log zerolog.Logger) *Saver {
	if namer == nil {
		namer = NewNamer(nil)
	}
	return &Saver{sink: sink, namer: namer, log: log}
}

// InFlight 是否有保存正在进行
func (s *Saver) InFlight() bool {
	return s.inFlight.Load()
}

// Save 序列化注释并交给保存目标
// 不修改传入的注释
// 入参: ctx 上下文, anns 全部注释, documentID 文档ID, original 原文件名
// 返回: SaveResult 保存结果, error 错误信息
func (s *Saver) Save(ctx context.Context, anns []Annotation, documentID, original string) (SaveResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Debug().Str("document", documentID).Msg("save ignored, another save in progress")
		return SaveResult{}, ErrSaveInFlight
	}
	defer s.inFlight.Store(false)
	name := s.namer.Next(original)
	fail := func(err error) (SaveResult, error) {
		s.log.Error().Err(err).Str("document", documentID).Str("name", name).Msg("save failed")
		return SaveResult{FinalName: name}, &SaveError{Name: name, Err: err}
	}
	if s.sink == nil {
		return fail(ErrNoSink)
	}
	payload, err := Marshal(anns)
	if err != nil {
		return fail(err)
	}
	resp, err := s.sink.Save(ctx, SaveRequest{Payload: payload, FileName: name, DocumentID: documentID})
	if err != nil {
		return fail(err)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "save rejected"
		}
		return fail(errors.New(msg))
	}
	final := resp.FinalName
	if final == "" {
		final = name
	}
	s.log.Info().
		Str("document", documentID).
		Str("name", final).
		Int("annotations", len(anns)).
		Msg("annotations saved")
	return SaveResult{Success: true, FinalName: final}, nil
}
