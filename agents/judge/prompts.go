/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import "chainguard.dev/docprobe/agents/promptbuilder"

// systemPrompt seeds every judge session.
const systemPrompt = `You are a strict grader. You compare a candidate answer to an expected
answer using only the source excerpt you are given. You never use outside
knowledge, and you always cite the excerpt verbatim.`

var judgePrompt = promptbuilder.MustNewPrompt(`<task>
Grade the candidate answer to a question about a document.
</task>

<context>
{{context}}
</context>

<question>{{question}}</question>

<question_details>
{{details}}
</question_details>

<expected_answer>{{expected_answer}}</expected_answer>

<candidate_answer>{{candidate_answer}}</candidate_answer>

<instructions>
1. Read the source excerpt. It is the only ground truth.
2. Compare the candidate answer to the expected answer and to the excerpt.
3. Choose exactly one score:
   - "correct": the candidate states the same fact as the expected answer. Wording may differ.
   - "partially_correct": the candidate is right but leaves out part of the expected answer.
   - "incorrect": the candidate contradicts the excerpt.
   - "hallucinated": the candidate asserts something the excerpt does not say at all.
   - "unanswerable": the candidate declines to answer, or says the document does not say.
4. Quote the sentence of the excerpt your score rests on, copied verbatim.
   Use an empty string only when the excerpt contains nothing relevant.
5. A question marked false_premise assumes something the document denies;
   the expected answer corrects it, and so must a correct candidate.
</instructions>

<output_format>
Return a JSON object matching this schema:
{{schema}}
</output_format>

Respond with only the JSON object, no additional text.`)

var strictPrompt = promptbuilder.MustNewPrompt(`Your previous reply could not be used. Reply again with only a JSON object matching this schema, with "score" set to one of {{scores}}. No markdown fences, no commentary.
{{schema}}`)

// details is the YAML summary of a question shown to the judge.
type details struct {
	Category        string   `yaml:"category"`
	Scope           string   `yaml:"scope"`
	TargetSections  []string `yaml:"target_sections"`
	AdversarialType string   `yaml:"adversarial_type,omitempty"`
}

// Bind implements promptbuilder.Bindable.
func (r Request) Bind(prompt *promptbuilder.Prompt) (*promptbuilder.Prompt, error) {
	var err error
	for _, b := range []struct {
		name string
		text string
	}{
		{"context", r.Excerpt},
		{"question", r.Question.Text},
		{"expected_answer", r.Question.ExpectedAnswer.Text},
		{"candidate_answer", r.Answer.Text},
	} {
		if prompt, err = prompt.BindText(b.name, b.text); err != nil {
			return nil, err
		}
	}
	if prompt, err = prompt.BindYAML("details", details{
		Category:        string(r.Question.Category),
		Scope:           string(r.Question.Scope),
		TargetSections:  r.Question.TargetSections,
		AdversarialType: r.Question.AdversarialType,
	}); err != nil {
		return nil, err
	}
	return prompt.BindJSON("schema", verdictSchema)
}
