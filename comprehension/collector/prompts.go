/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package collector

import (
	"encoding/xml"

	"chainguard.dev/docprobe/agents/promptbuilder"
	"chainguard.dev/docprobe/agents/schema"
	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/question"
)

// Reply is the structured answer a reader must give.
type Reply struct {
	Answer     string `json:"answer" jsonschema:"required,description=The answer as stated in the document"`
	Confidence string `json:"confidence" jsonschema:"required,enum=high,enum=medium,enum=low"`
	Reasoning  string `json:"reasoning" jsonschema:"description=Where in the document the answer comes from"`
}

var replySchema = schema.ForPrompt[Reply]()

var systemPrompt = promptbuilder.MustNewPrompt(`You are reading a technical document so you can answer questions about it.
Use only what the document says. Do not use outside knowledge. If the
document does not answer a question, say "The document does not say." as
the answer.

<document>
{{document}}
</document>`)

// SystemPrompt is the reader.SystemFunc for reader pools. It seeds each
// session with the full document text.
func SystemPrompt(doc *document.Document) (string, error) {
	p, err := systemPrompt.BindText("document", doc.Content)
	if err != nil {
		return "", err
	}
	return p.Build()
}

var sectionPrompt = promptbuilder.MustNewPrompt(`<question>{{question}}</question>

Answer with a JSON object matching this schema:
{{schema}}

Respond with only the JSON object, no additional text.`)

var documentPrompt = promptbuilder.MustNewPrompt(`<question>{{question}}</question>

This question spans several parts of the document:
{{sections}}

<excerpts>
{{excerpts}}
</excerpts>

Answer with a JSON object matching this schema:
{{schema}}

Respond with only the JSON object, no additional text.`)

var strictPrompt = promptbuilder.MustNewPrompt(`Your previous reply was not valid JSON. Extract only the JSON object, matching this schema, with no markdown fences and no commentary:
{{schema}}`)

type sectionRef struct {
	ID     string `xml:"id,attr"`
	Header string `xml:"header,attr,omitempty"`
}

type sectionList struct {
	XMLName  xml.Name     `xml:"sections"`
	Sections []sectionRef `xml:"section"`
}

// request binds one question into a prompt.
type request struct {
	question question.Question
	doc      *document.Document
}

func (r request) template() *promptbuilder.Prompt {
	if r.question.Scope == question.DocumentScope {
		return documentPrompt
	}
	return sectionPrompt
}

// Bind implements promptbuilder.Bindable.
func (r request) Bind(p *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	p, err := p.BindText("question", r.question.Text)
	if err != nil {
		return nil, err
	}
	if r.question.Scope == question.DocumentScope {
		list := sectionList{}
		for _, id := range r.question.TargetSections {
			ref := sectionRef{ID: id}
			if s, ok := r.doc.Section(id); ok {
				ref.Header = s.Header
			}
			list.Sections = append(list.Sections, ref)
		}
		if p, err = p.BindXML("sections", list); err != nil {
			return nil, err
		}
		if p, err = p.BindText("excerpts", r.doc.Excerpt(r.question.TargetSections...)); err != nil {
			return nil, err
		}
	}
	return p.BindJSON("schema", replySchema)
}

func strict() (string, error) {
	p, err := strictPrompt.BindJSON("schema", replySchema)
	if err != nil {
		return "", err
	}
	return p.Build()
}
