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
)

// Issue 校验提示
type Issue struct {
	ID      string
	Page    int
	Message string
}

// Rule 校验规则
// 只产生提示, 不阻止任何编辑或保存操作
type Rule func(a Annotation) (string, bool)

// Required 必填规则
// 入参: ids 必填注释ID, 为空时对全部注释生效
// 返回: Rule 校验规则
func Required(ids ...string) Rule {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(a Annotation) (string, bool) {
		if len(set) > 0 && !set[a.ID] {
			return "", true
		}
		if filled(a) {
			return "", true
		}
		return string(a.Type) + " field is required", false
	}
}

// filled 字段是否已填写
func filled(a Annotation) bool {
	switch a.Type {
	case FieldCheckbox:
		return a.Checked()
	case FieldSignature:
		return a.Signature() != ""
	}
	return strings.TrimSpace(a.Text()) != ""
}

// Validate 按规则检查注释
// 入参: anns 注释列表, rules 校验规则
// 返回: []Issue 校验提示
func Validate(anns []Annotation, rules ...Rule) []Issue {
	var issues []Issue
	for _, a := range anns {
		for _, rule := range rules {
			if msg, ok := rule(a); !ok {
				issues = append(issues, Issue{ID: a.ID, Page: a.Page, Message: msg})
			}
		}
	}
	return issues
}

// Validate 检查全部注释
// 入参: rules 校验规则
// 返回: []Issue 校验提示
func (e *Editor) Validate(rules ...Rule) []Issue {
	return Validate(e.Annotations(), rules...)
}
