package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/schoolhub/internal/app/system/htmlsanitize"
)

func TestSanitize_Preserved(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"plain", "Sports day moved to Friday."},
		{"formatting", "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{"lists", "<ul><li>Item 1</li><li>Item 2</li></ul>"},
		{"ordered", "<ol><li>First</li><li>Second</li></ol>"},
		{"headings", "<h1>Heading 1</h1><h2>Heading 2</h2>"},
		{"blockquote", "<blockquote>A quote</blockquote>"},
		{"code", "<pre><code>x := 1</code></pre>"},
		{"table", "<table><thead><tr><th>Day</th></tr></thead><tbody><tr><td>Mon</td></tr></tbody></table>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.Sanitize(tt.input); got != tt.input {
				t.Errorf("Sanitize(%q) = %q", tt.input, got)
			}
		})
	}
}

func TestSanitize_RemovesScript(t *testing.T) {
	got := htmlsanitize.Sanitize("<p>Hello</p><script>alert('xss')</script>")
	if got != "<p>Hello</p>" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestSanitize_RemovesDangerousAttributes(t *testing.T) {
	for _, input := range []string{
		`<button onclick="alert('xss')">Click</button>`,
		`<a href="javascript:alert('xss')">Click</a>`,
	} {
		got := htmlsanitize.Sanitize(input)
		if strings.Contains(got, "alert") {
			t.Errorf("Sanitize(%q) = %q, expected handler removed", input, got)
		}
	}
}

func TestSanitize_RemovesIframe(t *testing.T) {
	got := htmlsanitize.Sanitize(`<p>Content</p><iframe src="https://evil.com"></iframe>`)
	if strings.Contains(got, "iframe") {
		t.Error("expected iframe to be removed")
	}
	if !strings.Contains(got, "Content") {
		t.Error("expected safe content to be preserved")
	}
}

func TestSanitize_TableAttributes(t *testing.T) {
	got := htmlsanitize.Sanitize(`<table class="grid"><tr><td colspan="2">Cell</td></tr></table>`)
	if !strings.Contains(got, `class="grid"`) || !strings.Contains(got, `colspan="2"`) {
		t.Errorf("expected table attributes preserved, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("") || !htmlsanitize.IsPlainText("Hello") {
		t.Error("expected plain text")
	}
	if htmlsanitize.IsPlainText("<p>Hello</p>") {
		t.Error("expected markup to be detected")
	}
}
