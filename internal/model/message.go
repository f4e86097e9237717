package model

import (
	"strings"
)

// Source is the channel an order request arrived on.
type Source string

const (
	SourceEmail    Source = "email"
	SourceWhatsApp Source = "whatsapp"
	SourceAPI      Source = "api"
)

// Attachment is a file sent with a message. Text holds the extracted
// content once attachment processing has run.
type Attachment struct {
	Filename string `json:"filename" yaml:"filename"`
	Path     string `json:"path,omitempty" yaml:"path"`
	Text     string `json:"text,omitempty" yaml:"text"`
}

// Message is one inbound email or chat message.
type Message struct {
	ID          string       `json:"id" yaml:"id"`
	Source      Source       `json:"source" yaml:"source"`
	Subject     string       `json:"subject" yaml:"subject"`
	From        string       `json:"from" yaml:"from"`
	Date        string       `json:"date" yaml:"date"`
	Body        string       `json:"body" yaml:"body"`
	Attachments []Attachment `json:"attachments,omitempty" yaml:"attachments"`
}

// Content renders the message the way it is shown to the language model:
// a header block, the body, then the text of every attachment that has any.
func (m Message) Content() string {
	var sb strings.Builder
	sb.WriteString("SUJET: ")
	sb.WriteString(m.Subject)
	sb.WriteString("\nDE: ")
	sb.WriteString(m.From)
	sb.WriteString("\nDATE: ")
	sb.WriteString(m.Date)
	sb.WriteString("\n\nCONTENU:\n")
	sb.WriteString(m.Body)
	sb.WriteString("\n")

	header := false
	for _, a := range m.Attachments {
		if strings.TrimSpace(a.Text) == "" {
			continue
		}
		if !header {
			sb.WriteString("\nCONTENU DES PIÈCES JOINTES:\n")
			header = true
		}
		sb.WriteString("\n--- ")
		sb.WriteString(a.Filename)
		sb.WriteString(" ---\n")
		sb.WriteString(a.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Truncate returns at most limit runes of s. A non-positive limit returns s.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
