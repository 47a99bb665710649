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
	"fmt"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
)

// Flatten 将文档与注释合并导出为多页PDF
// 画布单位与文档单位一致; 文档来源实现 PageDrawer 时按矢量绘制页面, 否则嵌入光栅
// 入参: ctx 上下文, source 文档来源, fields 字段渲染器, anns 全部注释, w 输出流
// 返回: error 错误信息
func Flatten(ctx context.Context, source DocumentSource, fields *FieldRenderer, anns []Annotation, w io.Writer) error {
	count := source.PageCount()
	if count < 1 {
		return fmt.Errorf("no pages found")
	}
	byPage := make(map[int][]Annotation)
	for _, a := range anns {
		byPage[a.Page] = append(byPage[a.Page], a)
	}
	var p *pdf.PDF
	for page := 1; page <= count; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, err := flattenPage(ctx, source, fields, page, byPage[page])
		if err != nil {
			return fmt.Errorf("export page %d: %w", page, err)
		}
		if p == nil {
			p = pdf.New(w, c.W, c.H, nil)
		} else {
			p.NewPage(c.W, c.H)
		}
		c.RenderTo(p)
	}
	return p.Close()
}

// flattenPage 绘制单页及其注释
func flattenPage(ctx context.Context, source DocumentSource, fields *FieldRenderer, page int, anns []Annotation) (*canvas.Canvas, error) {
	pw, ph, err := source.PageSize(page)
	if err != nil {
		return nil, err
	}
	c := canvas.New(pw, ph)
	cc := canvas.NewContext(c)
	if d, ok := source.(PageDrawer); ok {
		if err := d.DrawPage(cc, page); err != nil {
			return nil, err
		}
	} else {
		img, err := source.RenderPage(ctx, page, 1)
		if err != nil {
			return nil, err
		}
		cc.DrawImage(0, 0, img, canvas.DPMM(1.0))
	}
	fields.Draw(cc, anns, 1, ph, DrawOptions{})
	return c, nil
}

// Export 导出填写后的文档
// 入参: ctx 上下文, w 输出流
// 返回: error 错误信息
func (e *Editor) Export(ctx context.Context, w io.Writer) error {
	e.mu.Lock()
	if err := e.ready(); err != nil {
		e.unlock()
		return err
	}
	source, anns, docID := e.source, e.store.All(), e.documentID
	e.unlock()
	if err := Flatten(ctx, source, e.fields, anns, w); err != nil {
		e.log.Error().Err(err).Str("document", docID).Msg("export failed")
		return err
	}
	e.log.Info().Str("document", docID).Int("annotations", len(anns)).Msg("document exported")
	return nil
}
