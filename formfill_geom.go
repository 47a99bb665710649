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

import "math"

// Point 二维坐标点
type Point struct {
	X, Y float64
}

// Sub 向量减法
// 入参: o 减数
// 返回: Point 结果
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Add 向量加法
// 入参: o 加数
// 返回: Point 结果
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Dist 两点间欧氏距离
// 入参: o 另一点
// 返回: float64 距离
func (p Point) Dist(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Rect 矩形区域(左上角原点)
type Rect struct {
	X, Y, W, H float64
}

// Contains 判断点是否落在矩形内
// 入参: p 坐标点
// 返回: bool 是否包含
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Matrix 2D仿射变换矩阵
type Matrix struct {
	a, b, c, d, e, f float64
}

// Apply 对坐标点应用变换
// 入参: p 坐标点
// 返回: Point 变换后坐标
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m.a*p.X + m.c*p.Y + m.e,
		Y: m.b*p.X + m.d*p.Y + m.f,
	}
}

// Invert 求逆矩阵
// 返回: Matrix 逆矩阵, bool 是否可逆
func (m Matrix) Invert() (Matrix, bool) {
	det := m.a*m.d - m.b*m.c
	if math.Abs(det) < 1e-12 {
		return Matrix{}, false
	}
	return Matrix{
		a: m.d / det,
		b: -m.b / det,
		c: -m.c / det,
		d: m.a / det,
		e: (m.c*m.f - m.d*m.e) / det,
		f: (m.b*m.e - m.a*m.f) / det,
	}, true
}

// View 当前视图参数
// Scale 为缩放比例, Origin 为画布左上角在屏幕中的位置
type View struct {
	Scale  float64
	Origin Point
}

// ToDocument 屏幕坐标转文档坐标
// 入参: p 屏幕坐标
// 返回: Point 文档坐标
func (v View) ToDocument(p Point) Point {
	inv, ok := v.Matrix().Invert()
	if !ok {
		return p
	}
	return inv.Apply(p)
}

// ToScreen 文档坐标转屏幕坐标
// 入参: p 文档坐标
// 返回: Point 屏幕坐标
func (v View) ToScreen(p Point) Point {
	return v.Matrix().Apply(p)
}

// RectToScreen 文档矩形转屏幕矩形
// 入参: r 文档矩形
// 返回: Rect 屏幕矩形
func (v View) RectToScreen(r Rect) Rect {
	p := v.ToScreen(Point{X: r.X, Y: r.Y})
	s := v.scale()
	return Rect{X: p.X, Y: p.Y, W: r.W * s, H: r.H * s}
}

// Matrix 文档到屏幕的变换矩阵
// 返回: Matrix 变换矩阵
func (v View) Matrix() Matrix {
	s := v.scale()
	return Matrix{a: s, d: s, e: v.Origin.X, f: v.Origin.Y}
}

// scale 非法缩放比例按1处理
func (v View) scale() float64 {
	if v.Scale <= 0 || math.IsNaN(v.Scale) || math.IsInf(v.Scale, 0) {
		return 1
	}
	return v.Scale
}

// clamp 将数值限制在区间内
// 入参: v 数值, lo 下限, hi 上限
// 返回: float64 结果
func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
