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
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"

	"github.com/tdewolff/canvas"
	_ "github.com/xiaoqidun/jbig2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const (
	// mmToPt 毫米到磅
	mmToPt = 2.83465
	// defaultTextSize 未声明字号时的文字大小(毫米)
	defaultTextSize = 3.5
	// defaultLineWidth 未声明线宽时的线宽(毫米)
	defaultLineWidth = 0.353
)

// style 图层继承的绘制样式
type style struct {
	fill      color.Color
	stroke    color.Color
	lineWidth float64
}

// drawContent 按模板背景、页面图层、模板前景、印章的顺序绘制
// 调用方需持有 d.mu
func (d *Document) drawContent(ctx *canvas.Context, p *pageXML, pageID string) {
	b := d.pageBox(p)
	ctx.SetFillColor(canvas.White)
	ctx.DrawPath(0, 0, canvas.Rectangle(b.W, b.H))
	for _, t := range p.Template {
		if t.ZOrder != "Foreground" {
			d.drawTemplate(ctx, t.TemplateID, b.H)
		}
	}
	for _, l := range p.Content.Layer {
		d.drawLayer(ctx, l, b.H)
	}
	for _, t := range p.Template {
		if t.ZOrder == "Foreground" {
			d.drawTemplate(ctx, t.TemplateID, b.H)
		}
	}
	for _, s := range d.seals[pageID] {
		d.drawSeal(ctx, s, b.H)
	}
}

// drawTemplate 绘制模板页的图层
func (d *Document) drawTemplate(ctx *canvas.Context, id string, pageH float64) {
	for _, tp := range d.common.TemplatePage {
		if tp.ID != id {
			continue
		}
		var p pageXML
		if err := d.decode(d.resolve(tp.BaseLoc), &p); err != nil {
			d.log.Debug().Err(err).Str("template", id).Msg("skipping template")
			return
		}
		for _, l := range p.Content.Layer {
			d.drawLayer(ctx, l, pageH)
		}
		return
	}
}

// drawLayer 绘制图层, 图层的绘制参数作为对象的缺省样式
func (d *Document) drawLayer(ctx *canvas.Context, l layer, pageH float64) {
	st := d.applyParam(style{}, l.DrawParam)
	for _, obj := range l.ImageObject {
		d.drawImage(ctx, obj, pageH)
	}
	for _, obj := range l.PathObject {
		d.drawPath(ctx, obj, pageH, st)
	}
	for _, obj := range l.TextObject {
		d.drawText(ctx, obj, pageH, st)
	}
}

// applyParam 将绘制参数叠加到样式上
func (d *Document) applyParam(st style, id string) style {
	dp := d.param(id, nil)
	if dp == nil {
		return st
	}
	if dp.LineWidth > 0 {
		st.lineWidth = dp.LineWidth
	}
	st.fill = parseColor(dp.FillColor, st.fill)
	st.stroke = parseColor(dp.StrokeColor, st.stroke)
	return st
}

// param 解析绘制参数及其继承链, 环形引用时停止
func (d *Document) param(id string, seen map[string]bool) *drawParam {
	if id == "" || seen[id] {
		return nil
	}
	dp, ok := d.params[id]
	if !ok {
		return nil
	}
	if dp.Relative == "" {
		return dp
	}
	if seen == nil {
		seen = make(map[string]bool)
	}
	seen[id] = true
	base := d.param(dp.Relative, seen)
	if base == nil {
		return dp
	}
	merged := *base
	merged.ID = dp.ID
	if dp.LineWidth > 0 {
		merged.LineWidth = dp.LineWidth
	}
	if dp.FillColor != nil {
		merged.FillColor = dp.FillColor
	}
	if dp.StrokeColor != nil {
		merged.StrokeColor = dp.StrokeColor
	}
	return &merged
}

// drawImage 绘制图片对象
func (d *Document) drawImage(ctx *canvas.Context, obj imageObject, pageH float64) {
	loc, ok := d.media[obj.ResourceID]
	if !ok {
		return
	}
	data, err := d.readFile(loc)
	if err != nil {
		d.log.Debug().Err(err).Str("resource", obj.ResourceID).Msg("skipping image")
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		d.log.Debug().Err(err).Str("resource", obj.ResourceID).Msg("skipping image")
		return
	}
	bx, _ := parseBox(obj.Boundary)
	iw, ih := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	if iw <= 0 || ih <= 0 {
		return
	}
	m := parseMatrix(obj.CTM)
	if obj.CTM == "" {
		m = matrix{a: bx.W, d: bx.H}
	}
	x, y := m.apply(0, 1)
	ctx.Push()
	ctx.Translate(bx.X+x, pageH-(bx.Y+y))
	ctx.Scale(m.a/iw, m.d/ih)
	ctx.DrawImage(0, 0, img, canvas.DPMM(1.0))
	ctx.Pop()
}

// drawPath 绘制路径对象
// 路径数据为 M/S 起点、L 直线、B 三次曲线、C 闭合
func (d *Document) drawPath(ctx *canvas.Context, obj pathObject, pageH float64, st style) {
	st = d.applyParam(st, obj.DrawParam)
	if obj.LineWidth > 0 {
		st.lineWidth = obj.LineWidth
	}
	st.fill = parseColor(obj.FillColor, st.fill)
	st.stroke = parseColor(obj.StrokeColor, st.stroke)
	if st.stroke == nil {
		st.stroke = canvas.Black
	}
	if st.lineWidth == 0 {
		st.lineWidth = defaultLineWidth
	}
	bx, _ := parseBox(obj.Boundary)
	m := parseMatrix(obj.CTM)
	at := func(tok []string) (float64, float64) {
		x, _ := strconv.ParseFloat(tok[0], 64)
		y, _ := strconv.ParseFloat(tok[1], 64)
		x, y = m.apply(x, y)
		return bx.X + x, pageH - (bx.Y + y)
	}
	p := &canvas.Path{}
	tok := strings.Fields(obj.AbbreviatedData)
	for i := 0; i < len(tok); {
		cmd := tok[i]
		i++
		switch cmd {
		case "M", "S":
			if i+2 <= len(tok) {
				p.MoveTo(at(tok[i:]))
				i += 2
			}
		case "L":
			if i+2 <= len(tok) {
				p.LineTo(at(tok[i:]))
				i += 2
			}
		case "B":
			if i+6 <= len(tok) {
				x1, y1 := at(tok[i:])
				x2, y2 := at(tok[i+2:])
				x3, y3 := at(tok[i+4:])
				p.CubeTo(x1, y1, x2, y2, x3, y3)
				i += 6
			}
		case "C":
			p.Close()
		}
	}
	ctx.Push()
	defer ctx.Pop()
	fill := obj.Fill == nil || *obj.Fill
	if fill && st.fill != nil {
		ctx.SetFillColor(st.fill)
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	if obj.Stroke == nil || *obj.Stroke {
		ctx.SetStrokeColor(st.stroke)
		ctx.SetStrokeWidth(st.lineWidth)
	} else {
		ctx.SetStrokeColor(canvas.Transparent)
	}
	ctx.DrawPath(0, 0, p)
}

// drawText 绘制文本对象, 逐字按 DeltaX/DeltaY 定位
func (d *Document) drawText(ctx *canvas.Context, obj textObject, pageH float64, st style) {
	st = d.applyParam(st, obj.DrawParam)
	fill := parseColor(obj.FillColor, st.fill)
	if fill == nil {
		fill = canvas.Black
	}
	bx, _ := parseBox(obj.Boundary)
	m := parseMatrix(obj.CTM)
	size := obj.Size
	if size == 0 {
		size = defaultTextSize
	}
	if s := m.yScale(); s > 0 {
		size *= s
	}
	fs := canvas.FontRegular
	if obj.Weight >= 700 {
		fs |= canvas.FontBold
	}
	if obj.Italic {
		fs |= canvas.FontItalic
	}
	if f, ok := d.fonts[obj.Font]; ok {
		if f.Bold {
			fs |= canvas.FontBold
		}
		if f.Italic {
			fs |= canvas.FontItalic
		}
	}
	face := d.family(obj.Font).Face(size*mmToPt, fill, fs, canvas.FontNormal)
	underline := strings.Contains(obj.Decoration, "Underline")
	ctx.Push()
	defer ctx.Pop()
	for _, tc := range obj.TextCode {
		dx, dy := parseFloats(tc.DeltaX), parseFloats(tc.DeltaY)
		cx, cy := tc.X, tc.Y
		for i, r := range []rune(tc.Value) {
			s := string(r)
			if i > 0 {
				if i-1 < len(dx) {
					cx += dx[i-1]
				} else {
					cx += face.TextWidth(s)
				}
				if i-1 < len(dy) {
					cy += dy[i-1]
				}
			}
			x, y := m.apply(cx, cy)
			x, y = bx.X+x, pageH-(bx.Y+y)
			ctx.DrawText(x, y, canvas.NewTextLine(face, s, canvas.Left))
			if underline {
				off := size * 0.1
				ctx.SetStrokeColor(fill)
				ctx.SetStrokeWidth(max(0.05, size*0.05))
				ctx.MoveTo(x, y-off)
				ctx.LineTo(x+face.TextWidth(s), y-off)
				ctx.Stroke()
			}
		}
	}
}
