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
	"fmt"
	"time"
)

// FieldType 字段类型
type FieldType string

const (
	// FieldText 多行文本
	FieldText FieldType = "text"
	// FieldDate 日期
	FieldDate FieldType = "date"
	// FieldTimestamp 创建时刻的时间戳
	FieldTimestamp FieldType = "timestamp"
	// FieldCheckbox 复选框
	FieldCheckbox FieldType = "checkbox"
	// FieldSignature 签名图片
	FieldSignature FieldType = "signature"
)

const (
	// DefaultFontSize 默认字号
	DefaultFontSize = 11.0
	// DefaultColor 默认文字颜色
	DefaultColor = "#1e3a8a"
	// DateLayout 日期字段格式
	DateLayout = "01/02/2006"
	// TimestampLayout 时间戳字段格式
	TimestampLayout = "01/02/2006 3:04 PM"
)

// ParseFieldType 解析字段类型名称
// 入参: s 类型名称
// 返回: FieldType 字段类型, error 错误信息
func ParseFieldType(s string) (FieldType, error) {
	switch t := FieldType(s); t {
	case FieldText, FieldDate, FieldTimestamp, FieldCheckbox, FieldSignature:
		return t, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// MinSize 字段最小尺寸
// 返回: float64 最小宽度, float64 最小高度
func (t FieldType) MinSize() (float64, float64) {
	if t == FieldCheckbox {
		return 20, 20
	}
	return 60, 24
}

// DefaultSize 新建字段的初始尺寸
// 返回: float64 宽度, float64 高度
func (t FieldType) DefaultSize() (float64, float64) {
	switch t {
	case FieldText:
		return 160, 24
	case FieldDate:
		return 100, 24
	case FieldTimestamp:
		return 150, 24
	case FieldCheckbox:
		return 20, 20
	case FieldSignature:
		return 180, 60
	}
	return t.MinSize()
}

// HasText 是否为文本类字段
func (t FieldType) HasText() bool {
	return t == FieldText || t == FieldDate || t == FieldTimestamp
}

// editable 是否存在独立的编辑态
func (t FieldType) editable() bool {
	return t == FieldText || t == FieldDate || t == FieldSignature
}

// Content 字段内容
// 仅限本包定义的五种实现, 各实现与字段类型一一对应
type Content interface {
	FieldType() FieldType
	content()
}

// TextContent 文本内容
type TextContent string

// FieldType 对应字段类型
func (TextContent) FieldType() FieldType { return FieldText }
func (TextContent) content()             {}

// DateContent 日期内容
type DateContent string

// FieldType 对应字段类型
func (DateContent) FieldType() FieldType { return FieldDate }
func (DateContent) content()             {}

// TimestampContent 时间戳内容
type TimestampContent string

// FieldType 对应字段类型
func (TimestampContent) FieldType() FieldType { return FieldTimestamp }
func (TimestampContent) content()             {}

// CheckboxContent 复选框内容
type CheckboxContent bool

// FieldType 对应字段类型
func (CheckboxContent) FieldType() FieldType { return FieldCheckbox }
func (CheckboxContent) content()             {}

// SignatureContent 签名内容
// Ref 为图片引用(data URL), 为空表示尚未签名
type SignatureContent struct {
	Ref string
}

// FieldType 对应字段类型
func (SignatureContent) FieldType() FieldType { return FieldSignature }
func (SignatureContent) content()             {}

// Signed 是否已签名
func (s SignatureContent) Signed() bool { return s.Ref != "" }

// initialContent 新建字段的初始内容
// 入参: t 字段类型, now 当前时间
// 返回: Content 内容
func initialContent(t FieldType, now time.Time) Content {
	switch t {
	case FieldDate:
		return DateContent(now.Format(DateLayout))
	case FieldTimestamp:
		return TimestampContent(now.Format(TimestampLayout))
	case FieldCheckbox:
		return CheckboxContent(false)
	case FieldSignature:
		return SignatureContent{}
	}
	return TextContent("")
}

// contentText 文本类内容的显示文字
// 入参: c 内容
// 返回: string 文字
func contentText(c Content) string {
	switch v := c.(type) {
	case TextContent:
		return string(v)
	case DateContent:
		return string(v)
	case TimestampContent:
		return string(v)
	}
	return ""
}

// Annotation 页面上的注释字段
// 坐标与尺寸均为文档空间(缩放比例1.0)
type Annotation struct {
	ID       string
	Type     FieldType
	Page     int
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Content  Content
	FontSize float64
	Color    string
}

// Bounds 文档空间矩形
// 返回: Rect 矩形
func (a Annotation) Bounds() Rect {
	return Rect{X: a.X, Y: a.Y, W: a.Width, H: a.Height}
}

// Text 文本类字段的显示文字
func (a Annotation) Text() string {
	return contentText(a.Content)
}

// Checked 复选框是否勾选
func (a Annotation) Checked() bool {
	v, _ := a.Content.(CheckboxContent)
	return bool(v)
}

// Signature 签名图片引用
func (a Annotation) Signature() string {
	v, _ := a.Content.(SignatureContent)
	return v.Ref
}

// validate 校验内容与类型一致
// 返回: error 错误信息
func (a Annotation) validate() error {
	if _, err := ParseFieldType(string(a.Type)); err != nil {
		return err
	}
	if a.Content == nil || a.Content.FieldType() != a.Type {
		return fmt.Errorf("annotation %s: %w", a.ID, ErrContentMismatch)
	}
	return nil
}

// Patch 字段局部更新
// 为nil的字段保持不变
type Patch struct {
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	Content  Content
	FontSize *float64
	Color    *string
}

// Float 构造浮点指针
// 入参: v 数值
// 返回: *float64 指针
func Float(v float64) *float64 {
	return &v
}

// String 构造字符串指针
// 入参: v 字符串
// 返回: *string 指针
func String(v string) *string {
	return &v
}
