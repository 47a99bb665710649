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
	"errors"
	"fmt"
)

var (
	// ErrNotOpen 尚未打开文档
	ErrNotOpen = errors.New("no document open")
	// ErrSuperseded 渲染结果已被更新的请求取代
	ErrSuperseded = errors.New("render superseded by a newer request")
	// ErrSaveInFlight 已有保存正在进行
	ErrSaveInFlight = errors.New("save already in progress")
	// ErrContentMismatch 内容与字段类型不符
	ErrContentMismatch = errors.New("content does not match field type")
	// ErrPageOutOfRange 页码越界
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrCaptureCancelled 签名采集被取消
	ErrCaptureCancelled = errors.New("signature capture cancelled")
	// ErrDuplicateID 注释ID重复
	ErrDuplicateID = errors.New("duplicate annotation id")
	// ErrNoSink 未配置保存目标
	ErrNoSink = errors.New("no save sink configured")
)

// DocumentLoadError 文档加载失败
// 当前文档不可恢复, 注释集合不会初始化
type DocumentLoadError struct {
	Name string
	Err  error
}

// Error 错误描述
func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("load document %q: %v", e.Name, e.Err)
}

// Unwrap 返回底层错误
func (e *DocumentLoadError) Unwrap() error { return e.Err }

// RenderError 单次页面渲染失败
// 仅影响该页码与缩放比例的请求
type RenderError struct {
	Page  int
	Scale float64
	Err   error
}

// Error 错误描述
func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d at scale %g: %v", e.Page, e.Scale, e.Err)
}

// Unwrap 返回底层错误
func (e *RenderError) Unwrap() error { return e.Err }

// SaveError 保存失败
// 注释集合保持保存前的状态
type SaveError struct {
	Name string
	Err  error
}

// Error 错误描述
func (e *SaveError) Error() string {
	return fmt.Sprintf("save %q: %v", e.Name, e.Err)
}

// Unwrap 返回底层错误
func (e *SaveError) Unwrap() error { return e.Err }
