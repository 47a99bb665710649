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

package ofd

import (
	"image/color"
	"math"
	"strconv"
	"strings"
)

// box 矩形区域(毫米, 原点左上)
type box struct {
	X, Y, W, H float64
}

// parseBox 解析 "x y w h"
// 入参: s 字符串
// 返回: box 矩形, bool 是否完整
func parseBox(s string) (box, bool) {
	v := parseFloats(s)
	if len(v) < 4 {
		return box{}, false
	}
	return box{X: v[0], Y: v[1], W: v[2], H: v[3]}, true
}

// matrix 仿射变换 [a b c d e f]
type matrix struct {
	a, b, c, d, e, f float64
}

// identity 单位矩阵
var identity = matrix{a: 1, d: 1}

// parseMatrix 解析CTM, 格式错误时为单位矩阵
func parseMatrix(s string) matrix {
	v := parseFloats(s)
	if len(v) != 6 {
		return identity
	}
	return matrix{a: v[0], b: v[1], c: v[2], d: v[3], e: v[4], f: v[5]}
}

// apply 变换坐标
func (m matrix) apply(x, y float64) (float64, float64) {
	return m.a*x + m.c*y + m.e, m.b*x + m.d*y + m.f
}

// yScale 纵向缩放量, 用于字号
func (m matrix) yScale() float64 {
	return math.Hypot(m.c, m.d)
}

// parseFloats 解析空白或逗号分隔的数值
// 支持 "g n v" 重复写法, 表示 v 重复 n 次
func parseFloats(s string) []float64 {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	out := make([]float64, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		if fields[i] == "g" && i+2 < len(fields) {
			n, err1 := strconv.Atoi(fields[i+1])
			v, err2 := strconv.ParseFloat(fields[i+2], 64)
			i += 2
			if err1 != nil || err2 != nil {
				continue
			}
			for ; n > 0; n-- {
				out = append(out, v)
			}
			continue
		}
		if v, err := strconv.ParseFloat(fields[i], 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// parseColor 解析 "R G B" 颜色
// 入参: c 颜色节点, fallback 缺省颜色
// 返回: color.Color 颜色
func parseColor(c *colorXML, fallback color.Color) color.Color {
	if c == nil {
		return fallback
	}
	v := parseFloats(c.Value)
	if len(v) < 3 {
		return fallback
	}
	alpha := uint8(255)
	if c.Alpha != nil {
		alpha = uint8(max(0, min(255, *c.Alpha)))
	}
	return color.NRGBA{R: uint8(v[0]), G: uint8(v[1]), B: uint8(v[2]), A: alpha}
}
