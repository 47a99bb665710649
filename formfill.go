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

// Package formfill 可嵌入的文档表单填写编辑器核心
// 在分页文档上叠加可移动、可缩放的注释字段(文本、日期、时间戳、复选框、签名), 并生成不重名的保存文件
package formfill

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tdewolff/canvas"
)

// Option 编辑器配置选项
type Option func(*Editor)

// New 创建编辑器
// 入参: opts 配置选项
// 返回: *Editor 编辑器实例, error 错误信息
func New(opts ...Option) (*Editor, error) {
	e := &Editor{
		log:           zerolog.Nop(),
		now:           time.Now,
		newID:         uuid.NewString,
		dragThreshold: DefaultDragThreshold,
		activation:    DefaultActivationWindow,
		scale:         1,
	}
	for _, opt := range opts {
		opt(e)
	}
	fields, err := NewFieldRenderer(e.font)
	if err != nil {
		return nil, err
	}
	e.fields = fields
	e.saver = NewSaver(e.sink, NewNamer(e.now), e.log)
	return e, nil
}

// WithLogger 设置日志
// 入参: log 日志实例
// 返回: Option 配置选项
func WithLogger(log zerolog.Logger) Option {
	return func(e *Editor) {
		e.log = log
	}
}

// WithClock 设置时钟, 影响时间戳字段与保存文件名
// 入参: now 时钟函数
// 返回: Option 配置选项
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator 设置注释ID生成器
// 入参: gen ID生成函数
// 返回: Option 配置选项
func WithIDGenerator(gen func() string) Option {
	return func(e *Editor) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithDragThreshold 设置拖动阈值
// 入参: px 屏幕像素
// 返回: Option 配置选项
func WithDragThreshold(px float64) Option {
	return func(e *Editor) {
		if px > 0 {
			e.dragThreshold = px
		}
	}
}

// WithActivationWindow 设置再次点击进入编辑的时间窗口
// 入参: d 时间窗口
// 返回: Option 配置选项
func WithActivationWindow(d time.Duration) Option {
	return func(e *Editor) {
		if d > 0 {
			e.activation = d
		}
	}
}

// WithSuppressor 设置手势期间的环境副作用
// 入参: s 副作用
// 返回: Option 配置选项
func WithSuppressor(s Suppressor) Option {
	return func(e *Editor) {
		e.suppressor = s
	}
}

// WithSignatureCapturer 设置签名采集
// 入参: c 签名采集器
// 返回: Option 配置选项
func WithSignatureCapturer(c SignatureCapturer) Option {
	return func(e *Editor) {
		e.capturer = c
	}
}

// WithSaveSink 设置保存目标
// 入参: s 保存目标
// 返回: Option 配置选项
func WithSaveSink(s Sink) Option {
	return func(e *Editor) {
		e.sink = s
	}
}

// WithSaveHandler 设置快捷键触发的异步保存的结果回调
// 入参: fn 回调函数
// 返回: Option 配置选项
func WithSaveHandler(fn func(SaveResult, error)) Option {
	return func(e *Editor) {
		e.onSave = fn
	}
}

// WithInvalidate 设置注释重绘回调
// 入参: fn 回调函数, 参数为需要重绘的注释ID
// 返回: Option 配置选项
func WithInvalidate(fn func(ids ...string)) Option {
	return func(e *Editor) {
		e.onInvalidate = fn
	}
}

// WithFontFamily 设置字段字体
// 入参: ff 字体族
// 返回: Option 配置选项
func WithFontFamily(ff *canvas.FontFamily) Option {
	return func(e *Editor) {
		e.font = ff
	}
}
