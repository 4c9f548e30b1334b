package agent

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

// DefaultSystemPrompt is the system message of the function-calling agent prompt.
const DefaultSystemPrompt = "You are a helpful assistant"

// PromptData is what a system prompt template may reference.
type PromptData struct {
	Tools []ToolInfo
}

type ToolInfo struct {
	Name        string
	Description string
}

// Prompt renders the system message. It is parsed once and rendered per turn.
type Prompt struct {
	tmpl *template.Template
}

// ParsePrompt compiles a system prompt template. The sprig function map is
// available, e.g. {{ now | date "2006-01-02" }} or {{ .Tools | len }}.
func ParsePrompt(text string) (*Prompt, error) {
	if text == "" {
		text = DefaultSystemPrompt
	}
	tmpl, err := template.New("system").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse system prompt template")
	}
	return &Prompt{tmpl: tmpl}, nil
}

func (p *Prompt) Render(data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "failed to render system prompt")
	}
	return buf.String(), nil
}
