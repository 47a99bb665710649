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
	"strings"
	"time"
)

// Event 输入事件
type Event interface {
	event()
}

// PointerDown 指针按下
type PointerDown struct {
	At   Point
	Time time.Time
}

// PointerMove 指针移动
type PointerMove struct {
	At   Point
	Time time.Time
}

// PointerUp 指针抬起
type PointerUp struct {
	At   Point
	Time time.Time
}

// PointerCancel 手势被宿主中断
type PointerCancel struct{}

// KeyDown 按键
type KeyDown struct {
	Key  Key
	Ctrl bool
	Meta bool
}

// ValueChange 编辑中的字段内容变化
type ValueChange struct {
	Value Content
}

// Blur 编辑控件失去焦点
type Blur struct{}

func (PointerDown) event()   {}
func (PointerMove) event()   {}
func (PointerUp) event()     {}
func (PointerCancel) event() {}
func (KeyDown) event()       {}
func (ValueChange) event()   {}
func (Blur) event()          {}

// Key 按键名称
type Key string

const (
	// KeyDelete 删除键
	KeyDelete Key = "Delete"
	// KeyEscape 取消键
	KeyEscape Key = "Escape"
)

// IsSaveShortcut 是否为平台保存快捷键(Ctrl+S 或 Cmd+S)
func (k KeyDown) IsSaveShortcut() bool {
	return (k.Ctrl || k.Meta) && strings.EqualFold(string(k.Key), "s")
}

// State 交互状态
type State int

const (
	// StateIdle 空闲
	StateIdle State = iota
	// StateSelected 已选中
	StateSelected
	// StateDragging 拖动中
	StateDragging
	// StateResizing 缩放中
	StateResizing
	// StateEditing 编辑中
	StateEditing
)

// String 状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelected:
		return "selected"
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	case StateEditing:
		return "editing"
	}
	return "unknown"
}
