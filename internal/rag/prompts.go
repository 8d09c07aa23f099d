package rag

import (
	"fmt"
	"strings"

	"noteflow/internal/index"
)

const rewriteSystem = `You rewrite the latest user question so it can be understood without the conversation. Resolve pronouns and references using the transcript. Return only the rewritten question, nothing else.`

const answerSystem = `You answer questions about a collection of documents using only the provided context passages.
Each passage is tagged with a source id like [SID:abc]. When a statement relies on a passage, cite it by repeating its tag.
If the context does not contain the answer, say you don't know instead of guessing.
Respond in the language of the question.`

func rewritePrompt(transcript []string, question string) string {
	var sb strings.Builder
	sb.WriteString("Conversation:\n")
	for _, line := range transcript {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\nLatest question: ")
	sb.WriteString(question)
	return sb.String()
}

func contextBlock(hits []index.SearchHit) string {
	var sb strings.Builder
	sb.WriteString("Context passages:\n\n")
	for _, h := range hits {
		sb.WriteString(fmt.Sprintf("[SID:%s]\n%s\n\n", h.Chunk.ID, h.Chunk.Text))
	}
	return sb.String()
}
