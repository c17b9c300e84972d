package relay

import (
	"fmt"
	"strings"
)

type SectionKind int

const (
	SectionFacts SectionKind = iota
	SectionState
	SectionInstructions
)

func (k SectionKind) String() string {
	switch k {
	case SectionFacts:
		return "facts"
	case SectionState:
		return "state"
	case SectionInstructions:
		return "instructions"
	}
	return "unknown"
}

type Section struct {
	Kind  SectionKind
	Title string
	Lines []string
	// Empty is rendered when Lines is empty. A section with neither is
	// dropped from the output.
	Empty string
}

// Prompt is the structured system message of one agent call. Builders fill
// it from live data; Render turns it into text only at the gateway boundary.
type Prompt struct {
	Persona  string
	Sections []Section
}

func NewPrompt(persona string) *Prompt {
	return &Prompt{Persona: strings.TrimSpace(persona)}
}

func (p *Prompt) Facts(title, empty string, lines ...string) *Prompt {
	return p.add(SectionFacts, title, empty, lines)
}

func (p *Prompt) State(title string, lines ...string) *Prompt {
	return p.add(SectionState, title, "", lines)
}

func (p *Prompt) Instructions(lines ...string) *Prompt {
	return p.add(SectionInstructions, "Instructions", "", lines)
}

func (p *Prompt) add(kind SectionKind, title, empty string, lines []string) *Prompt {
	p.Sections = append(p.Sections, Section{Kind: kind, Title: title, Lines: lines, Empty: empty})
	return p
}

// Section returns the first section with the given title.
func (p *Prompt) Section(title string) (Section, bool) {
	for _, s := range p.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return Section{}, false
}

// Render lays sections out grouped by kind: state first, then facts, then
// instructions, each group in insertion order.
func (p *Prompt) Render() string {
	var b strings.Builder
	b.WriteString(p.Persona)

	for _, kind := range []SectionKind{SectionState, SectionFacts, SectionInstructions} {
		for _, s := range p.Sections {
			if s.Kind != kind || (len(s.Lines) == 0 && s.Empty == "") {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "## %s\n", s.Title)
			if len(s.Lines) == 0 {
				b.WriteString(s.Empty)
				continue
			}
			for i, line := range s.Lines {
				if i > 0 {
					b.WriteByte('\n')
				}
				if kind == SectionState {
					b.WriteString(line)
				} else {
					b.WriteString("- " + line)
				}
			}
		}
	}
	return b.String()
}
