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
	"encoding/asn1"
	"image"
	"path"
	"strings"

	"github.com/tdewolff/canvas"
)

// seal 页面上的电子印章
type seal struct {
	box  box
	kind string
	data []byte
}

// loadSeals 解析签名列表, 收集各页面的印章外观
// 入参: name 签名列表路径
// 返回: error 错误信息
func (d *Document) loadSeals(name string) error {
	var list signaturesXML
	if err := d.decode(name, &list); err != nil {
		return err
	}
	dir := path.Dir(name)
	for _, ref := range list.Signature {
		sigPath := join(dir, ref.BaseLoc)
		var sig signatureXML
		if err := d.decode(sigPath, &sig); err != nil {
			d.log.Debug().Err(err).Str("signature", ref.ID).Msg("skipping signature")
			continue
		}
		value, err := d.readFile(join(path.Dir(sigPath), sig.SignedValue))
		if err != nil {
			d.log.Debug().Err(err).Str("signature", ref.ID).Msg("skipping signed value")
			continue
		}
		kind, data := extractSeal(value)
		for _, annot := range sig.SignedInfo.StampAnnot {
			b, _ := parseBox(annot.Boundary)
			d.seals[annot.PageRef] = append(d.seals[annot.PageRef], seal{box: b, kind: kind, data: data})
		}
	}
	return nil
}

// extractSeal 从签名值的 ASN.1 结构中查找印章图片
// 印章图片为 {类型, 数据, 宽, 高} 四元组
// 入参: der 签名值
// 返回: string 图片类型, []byte 图片数据
func extractSeal(der []byte) (string, []byte) {
	var root asn1.RawValue
	if _, err := asn1.Unmarshal(der, &root); err != nil {
		return "", nil
	}
	var walk func(node asn1.RawValue) (string, []byte, bool)
	walk = func(node asn1.RawValue) (string, []byte, bool) {
		if !node.IsCompound {
			return "", nil, false
		}
		var children []asn1.RawValue
		for rest := node.Bytes; len(rest) > 0; {
			var c asn1.RawValue
			next, err := asn1.Unmarshal(rest, &c)
			if err != nil {
				return "", nil, false
			}
			children = append(children, c)
			rest = next
		}
		if len(children) == 4 && children[1].Tag == asn1.TagOctetString &&
			children[2].Tag == asn1.TagInteger && children[3].Tag == asn1.TagInteger {
			var kind string
			if _, err := asn1.Unmarshal(children[0].FullBytes, &kind); err != nil {
				kind = string(children[0].Bytes)
			}
			kind = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(kind, "\x00", "")))
			if kind == "es" {
				kind = "png"
			}
			return kind, children[1].Bytes, true
		}
		for _, c := range children {
			if kind, data, ok := walk(c); ok {
				return kind, data, true
			}
		}
		return "", nil, false
	}
	kind, data, _ := walk(root)
	return kind, data
}

// drawSeal 绘制印章
// OFD 格式的印章按其首页矢量绘制, 图片印章拉伸到区域, 无法识别时绘制占位框
func (d *Document) drawSeal(ctx *canvas.Context, s seal, pageH float64) {
	x, y := s.box.X, pageH-(s.box.Y+s.box.H)
	if s.kind == "ofd" && len(s.data) > 0 {
		if d.drawOFDSeal(ctx, s, x, y) {
			return
		}
	}
	if len(s.data) > 0 {
		if img, _, err := image.Decode(bytes.NewReader(s.data)); err == nil {
			b := img.Bounds()
			ctx.Push()
			ctx.Translate(x, y)
			ctx.Scale(s.box.W/float64(b.Dx()), s.box.H/float64(b.Dy()))
			ctx.DrawImage(0, 0, img, canvas.DPMM(1.0))
			ctx.Pop()
			return
		}
	}
	ctx.Push()
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(canvas.Red)
	ctx.SetStrokeWidth(0.5)
	ctx.DrawPath(x, y, canvas.Rectangle(s.box.W, s.box.H))
	const size = 3.0
	face := d.fallback.Face(size*mmToPt, canvas.Red, canvas.FontRegular, canvas.FontNormal)
	label := "Signature"
	ctx.DrawText(x+(s.box.W-face.TextWidth(label))/2, y+s.box.H/2-size/2, canvas.NewTextLine(face, label, canvas.Left))
	ctx.Pop()
}

// drawOFDSeal 绘制嵌套的 OFD 印章
func (d *Document) drawOFDSeal(ctx *canvas.Context, s seal, x, y float64) bool {
	inner, err := NewReader(bytes.NewReader(s.data), int64(len(s.data)), WithLogger(d.log))
	if err != nil {
		d.log.Debug().Err(err).Msg("skipping ofd seal")
		return false
	}
	w, h, err := inner.PageSize(1)
	if err != nil || w <= 0 || h <= 0 {
		return false
	}
	ctx.Push()
	defer ctx.Pop()
	ctx.Translate(x, y)
	ctx.Scale(s.box.W/w, s.box.H/h)
	return inner.DrawPage(ctx, 1) == nil
}
