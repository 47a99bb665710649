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
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultDragThreshold 进入拖动前的最小屏幕位移(像素)
	DefaultDragThreshold = 3.0
	// DefaultActivationWindow 再次点击进入编辑的时间窗口
	DefaultActivationWindow = 400 * time.Millisecond
	// HandleSize 缩放手柄边长(屏幕像素)
	HandleSize = 10.0
)

// Suppressor 手势期间需要持有的宿主环境副作用
// 例如抑制页面文字选择与滚动
type Suppressor interface {
	Suppress() (release func())
}

// SuppressorFunc 函数形式的 Suppressor
type SuppressorFunc func() func()

// Suppress 获取副作用并返回释放函数
func (f SuppressorFunc) Suppress() func() {
	return f()
}

// ControllerConfig 交互控制器配置
type ControllerConfig struct {
	// View 返回当前视图, 每个指针事件都会重新读取
	View func() View
	// Page 返回当前页码
	Page func() int
	// Layout 返回注释在屏幕上的显示区域, 为空时使用存储的几何尺寸
	Layout func(Annotation, View) Rect
	// DragThreshold 拖动阈值(屏幕像素)
	DragThreshold float64
	// ActivationWindow 再次点击进入编辑的时间窗口
	ActivationWindow time.Duration
	// Suppressor 手势期间的环境副作用
	Suppressor Suppressor
	// Invalidate 注释需要重绘时回调
	Invalidate func(ids ...string)
	// Logger 日志
	Logger zerolog.Logger
}

// gesture 进行中的手势
type gesture struct {
	id       string
	tracking bool
	last     Point
	moved    float64
	offset   Point
	anchor   Point
	origW    float64
	origH    float64
}

// hitKind 命中类型
type hitKind int

const (
	hitNone hitKind = iota
	hitBody
	hitHandle
)

// hit 命中结果
type hit struct {
	kind hitKind
	ann  Annotation
}

// Controller 手势状态机
// 将指针与键盘事件转换为注释集合的修改与选择/编辑状态迁移
type Controller struct {
	store     *Store
	cfg       ControllerConfig
	log       zerolog.Logger
	state     State
	g         gesture
	lastUpID  string
	lastUpAt  time.Time
	releaseFn func()
}

// NewController 创建交互控制器
// 入参: store 注释集合, cfg 配置
// 返回: *Controller 控制器
func NewController(store *Store, cfg ControllerConfig) *Controller {
	if cfg.View == nil {
		cfg.View = func() View { return View{Scale: 1} }
	}
	if cfg.Page == nil {
		cfg.Page = func() int { return 1 }
	}
	if cfg.Layout == nil {
		cfg.Layout = func(a Annotation, v View) Rect { return v.RectToScreen(a.Bounds()) }
	}
	if cfg.DragThreshold <= 0 {
		cfg.DragThreshold = DefaultDragThreshold
	}
	if cfg.ActivationWindow <= 0 {
		cfg.ActivationWindow = DefaultActivationWindow
	}
	return &Controller{
		store: store,
		cfg:   cfg,
		log:   cfg.Logger,
		state: StateIdle,
	}
}

// State 当前状态
func (c *Controller) State() State {
	return c.state
}

// Dispatch 处理单个输入事件
// 入参: ev 输入事件
// 返回: error 错误信息(仅内容与类型不符时返回)
func (c *Controller) Dispatch(ev Event) error {
	c.sync()
	prev := c.state
	var err error
	switch e := ev.(type) {
	case PointerDown:
		c.pointerDown(e)
	case PointerMove:
		c.pointerMove(e)
	case PointerUp:
		c.pointerUp(e)
	case PointerCancel:
		c.cancel()
	case KeyDown:
		c.keyDown(e)
	case ValueChange:
		err = c.valueChange(e)
	case Blur:
		c.blur()
	}
	if c.state != prev {
		c.log.Debug().
			Stringer("from", prev).
			Stringer("to", c.state).
			Str("id", c.store.Selected()).
			Msg("interaction transition")
	}
	return err
}

// Reset 结束手势并清除选择, 回到空闲状态
func (c *Controller) Reset() {
	prev := c.store.Selected()
	c.forgetUp()
	c.endGesture()
	c.store.ClearSelection()
	c.state = StateIdle
	c.invalidate(prev)
}

// DeleteSelected 删除选中注释
// 返回: string 被删除的注释ID
func (c *Controller) DeleteSelected() string {
	id := c.store.Selected()
	if id == "" {
		return ""
	}
	c.forgetUp()
	c.endGesture()
	c.store.Remove(id)
	c.state = StateIdle
	c.invalidate(id)
	return id
}

// Close 释放手势期间持有的环境副作用
func (c *Controller) Close() {
	if c.state == StateDragging || c.state == StateResizing {
		c.finishGesture()
	}
	c.endGesture()
}

// HandleRect 选中注释的缩放手柄区域
// 入参: a 注释, v 视图
// 返回: Rect 屏幕区域
func (c *Controller) HandleRect(a Annotation, v View) Rect {
	return handleRect(c.cfg.Layout(a, v))
}

// sync 同步外部对集合的修改
func (c *Controller) sync() {
	if c.state == StateIdle {
		return
	}
	if _, ok := c.store.Get(c.store.Selected()); !ok {
		c.endGesture()
		c.store.ClearSelection()
		c.state = StateIdle
		return
	}
	if c.state == StateEditing && c.store.Editing() == "" {
		c.state = StateSelected
	}
}

// pointerDown 处理指针按下
func (c *Controller) pointerDown(e PointerDown) {
	if c.state == StateDragging || c.state == StateResizing {
		c.finishGesture()
	}
	if c.state == StateEditing {
		if h := c.hitTest(e.At); h.kind == hitBody && h.ann.ID == c.store.Editing() {
			return
		}
		c.blur()
	}
	h := c.hitTest(e.At)
	prev := c.store.Selected()
	switch h.kind {
	case hitNone:
		c.forgetUp()
		c.endGesture()
		c.store.ClearSelection()
		c.state = StateIdle
		c.invalidate(prev)
	case hitHandle:
		a := h.ann
		c.endGesture()
		c.forgetUp()
		c.g = gesture{
			id:     a.ID,
			last:   e.At,
			anchor: c.cfg.View().ToDocument(e.At),
			origW:  a.Width,
			origH:  a.Height,
		}
		c.acquire()
		c.state = StateResizing
	case hitBody:
		a := h.ann
		activate := c.canActivate(a, e.Time)
		c.forgetUp()
		c.endGesture()
		c.store.Select(a.ID)
		doc := c.cfg.View().ToDocument(e.At)
		c.g = gesture{
			id:       a.ID,
			tracking: true,
			last:     e.At,
			offset:   doc.Sub(Point{X: a.X, Y: a.Y}),
		}
		c.acquire()
		c.state = StateSelected
		if activate {
			c.store.SetEditing(a.ID)
			c.state = StateEditing
		}
		c.invalidate(prev, a.ID)
	}
}

// canActivate 按下的是否为已选中的可编辑字段, 且距该字段上一次单击抬起不超过时间窗口
func (c *Controller) canActivate(a Annotation, at time.Time) bool {
	if c.state != StateSelected || c.store.Selected() != a.ID || !a.Type.editable() {
		return false
	}
	if c.lastUpID != a.ID {
		return false
	}
	elapsed := at.Sub(c.lastUpAt)
	return elapsed >= 0 && elapsed <= c.cfg.ActivationWindow
}

// forgetUp 清除上一次单击抬起的记录
func (c *Controller) forgetUp() {
	c.lastUpID = ""
	c.lastUpAt = time.Time{}
}

// pointerMove 处理指针移动
func (c *Controller) pointerMove(e PointerMove) {
	switch c.state {
	case StateSelected, StateEditing:
		if !c.g.tracking {
			return
		}
		c.g.moved += e.At.Dist(c.g.last)
		c.g.last = e.At
		if c.g.moved <= c.cfg.DragThreshold {
			return
		}
		// 按下即进入的编辑在超过阈值后让位于拖动
		if c.state == StateEditing {
			c.store.SetEditing("")
		}
		c.forgetUp()
		c.state = StateDragging
		c.dragTo(e.At)
	case StateDragging:
		c.dragTo(e.At)
	case StateResizing:
		c.resizeTo(e.At)
	}
}

// dragTo 拖动到指针位置, 实时更新
func (c *Controller) dragTo(p Point) {
	a, ok := c.store.Get(c.g.id)
	if !ok {
		c.Reset()
		return
	}
	doc := c.cfg.View().ToDocument(p)
	x, y := doc.X-c.g.offset.X, doc.Y-c.g.offset.Y
	if pw, ph, ok := c.pageBounds(a.Page); ok {
		x = clamp(x, 0, pw-a.Width)
		y = clamp(y, 0, ph-a.Height)
	} else {
		x, y = max(0, x), max(0, y)
	}
	_ = c.store.Update(a.ID, Patch{X: &x, Y: &y})
	c.invalidate(a.ID)
}

// resizeTo 缩放到指针位置, 实时更新
func (c *Controller) resizeTo(p Point) {
	a, ok := c.store.Get(c.g.id)
	if !ok {
		c.Reset()
		return
	}
	doc := c.cfg.View().ToDocument(p)
	minW, minH := a.Type.MinSize()
	w := max(minW, c.g.origW+doc.X-c.g.anchor.X)
	h := max(minH, c.g.origH+doc.Y-c.g.anchor.Y)
	_ = c.store.Update(a.ID, Patch{Width: &w, Height: &h})
	c.invalidate(a.ID)
}

// pointerUp 处理指针抬起
// 未拖动的单击记录抬起时间供下一次按下判断是否进入编辑; 复选框单击切换勾选
func (c *Controller) pointerUp(e PointerUp) {
	switch c.state {
	case StateDragging, StateResizing:
		c.finishGesture()
	case StateEditing:
		if c.g.tracking {
			c.endGesture()
		}
	case StateSelected:
		if !c.g.tracking {
			return
		}
		g := c.g
		c.endGesture()
		c.lastUpID, c.lastUpAt = g.id, e.Time
		if a, ok := c.store.Get(g.id); ok && a.Type == FieldCheckbox {
			_ = c.store.Update(g.id, Patch{Content: CheckboxContent(!a.Checked())})
			c.invalidate(g.id)
		}
	}
}

// finishGesture 结束拖动或缩放, 将结果限制在页面内
func (c *Controller) finishGesture() {
	c.forgetUp()
	id := c.g.id
	resizing := c.state == StateResizing
	if a, ok := c.store.Get(id); ok {
		if pw, ph, ok := c.pageBounds(a.Page); ok {
			b := a
			if resizing {
				minW, minH := b.Type.MinSize()
				b.Width = max(minW, min(b.Width, pw-b.X))
				b.Height = max(minH, min(b.Height, ph-b.Y))
			}
			fitRect(&b, pw, ph)
			if b.Bounds() != a.Bounds() {
				_ = c.store.Update(id, Patch{X: &b.X, Y: &b.Y, Width: &b.Width, Height: &b.Height})
				c.invalidate(id)
			}
		}
		c.state = StateSelected
	} else {
		c.state = StateIdle
	}
	c.endGesture()
}

// cancel 手势被中断
func (c *Controller) cancel() {
	switch c.state {
	case StateDragging, StateResizing:
		c.finishGesture()
	case StateSelected, StateEditing:
		c.forgetUp()
		if c.g.tracking {
			c.endGesture()
		}
	}
}

// keyDown 处理按键
func (c *Controller) keyDown(e KeyDown) {
	switch e.Key {
	case KeyEscape:
		if c.state == StateIdle && c.store.Selected() == "" {
			return
		}
		if c.state == StateDragging || c.state == StateResizing {
			c.finishGesture()
		}
		c.Reset()
	case KeyDelete:
		if c.state == StateSelected {
			c.DeleteSelected()
		}
	}
}

// valueChange 编辑中的内容实时提交
func (c *Controller) valueChange(e ValueChange) error {
	if c.state != StateEditing || e.Value == nil {
		return nil
	}
	id := c.store.Editing()
	if err := c.store.Update(id, Patch{Content: e.Value}); err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

// blur 退出编辑, 内容已由实时更新提交
func (c *Controller) blur() {
	if c.state != StateEditing {
		return
	}
	id := c.store.Editing()
	c.store.SetEditing("")
	c.endGesture()
	c.state = StateSelected
	c.invalidate(id)
}

// hitTest 自上而下查找指针命中的注释
func (c *Controller) hitTest(p Point) hit {
	v := c.cfg.View()
	page := c.cfg.Page()
	if c.state == StateSelected {
		if a, ok := c.store.Get(c.store.Selected()); ok && a.Page == page {
			if c.HandleRect(a, v).Contains(p) {
				return hit{kind: hitHandle, ann: a}
			}
		}
	}
	anns := c.store.ListByPage(page)
	for i := len(anns) - 1; i >= 0; i-- {
		if c.cfg.Layout(anns[i], v).Contains(p) {
			return hit{kind: hitBody, ann: anns[i]}
		}
	}
	return hit{}
}

// pageBounds 查询页面尺寸
func (c *Controller) pageBounds(page int) (float64, float64, bool) {
	if c.store.bounds == nil {
		return 0, 0, false
	}
	return c.store.bounds(page)
}

// acquire 手势开始时获取环境副作用
func (c *Controller) acquire() {
	if c.releaseFn != nil || c.cfg.Suppressor == nil {
		return
	}
	fn := c.cfg.Suppressor.Suppress()
	if fn == nil {
		fn = func() {}
	}
	c.releaseFn = fn
}

// endGesture 结束手势并无条件释放环境副作用
func (c *Controller) endGesture() {
	c.g = gesture{}
	if c.releaseFn != nil {
		fn := c.releaseFn
		c.releaseFn = nil
		fn()
	}
}

// invalidate 通知宿主重绘
func (c *Controller) invalidate(ids ...string) {
	if c.cfg.Invalidate == nil {
		return
	}
	var out []string
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) > 0 {
		c.cfg.Invalidate(out...)
	}
}

// handleRect 显示区域右下角的手柄
// 入参: box 屏幕显示区域
// 返回: Rect 手柄区域
func handleRect(box Rect) Rect {
	return Rect{
		X: box.X + box.W - HandleSize/2,
		Y: box.Y + box.H - HandleSize/2,
		W: HandleSize,
		H: HandleSize,
	}
}
