package security

import (
	"strings"
	"testing"
)

// TestSanitizeHTML_AllowedTags は許可タグが保持されることを検証する。
func TestSanitizeHTML_AllowedTags(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
	}{
		{
			name:         "段落と強調",
			input:        "<p>新アルバムが<strong>本日</strong>リリース</p>",
			wantContains: []string{"<p>", "<strong>本日</strong>", "</p>"},
		},
		{
			name:         "リスト",
			input:        "<ul><li>トラック1</li><li>トラック2</li></ul>",
			wantContains: []string{"<ul>", "<li>トラック1</li>", "</ul>"},
		},
		{
			name:         "コードブロック",
			input:        "<pre><code>func main() {}</code></pre>",
			wantContains: []string{"<pre>", "<code>", "func main() {}", "</code>", "</pre>"},
		},
		{
			name:         "引用",
			input:        "<blockquote>最高のライブだった</blockquote>",
			wantContains: []string{"<blockquote>", "</blockquote>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeHTML(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("SanitizeHTML(%q) = %q, should contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitizeHTML_RemovesDangerousContent は危険なタグ・属性が除去されることを検証する。
func TestSanitizeHTML_RemovesDangerousContent(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name        string
		input       string
		wantExclude []string
	}{
		{
			name:        "scriptタグ",
			input:       `<p>ニュース</p><script>alert('xss')</script>`,
			wantExclude: []string{"<script>", "alert"},
		},
		{
			name:        "iframeタグ",
			input:       `<iframe src="https://evil.example.com"></iframe><p>本文</p>`,
			wantExclude: []string{"<iframe"},
		},
		{
			name:        "styleタグ",
			input:       `<style>body { display: none }</style><p>本文</p>`,
			wantExclude: []string{"<style>", "display"},
		},
		{
			name:        "onclickイベント属性",
			input:       `<p onclick="alert(1)">クリック</p>`,
			wantExclude: []string{"onclick"},
		},
		{
			name:        "onerror付きimg",
			input:       `<img src="https://img.example.com/a.jpg" onerror="alert(1)">`,
			wantExclude: []string{"onerror"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeHTML(tt.input)
			for _, exclude := range tt.wantExclude {
				if strings.Contains(got, exclude) {
					t.Errorf("SanitizeHTML(%q) = %q, should not contain %q", tt.input, got, exclude)
				}
			}
		})
	}
}

// TestSanitizeHTML_ImgSrcHTTPSOnly はimgのsrcがhttpsスキームのみ許可されることを検証する。
func TestSanitizeHTML_ImgSrcHTTPSOnly(t *testing.T) {
	s := NewContentSanitizer()

	got := s.SanitizeHTML(`<img src="https://img.example.com/a.jpg" alt="album art">`)
	if !strings.Contains(got, `src="https://img.example.com/a.jpg"`) {
		t.Errorf("https img should be kept, got %q", got)
	}

	for _, input := range []string{
		`<img src="http://img.example.com/a.jpg">`,
		`<img src="javascript:alert(1)">`,
		`<img src="data:image/png;base64,xxxx">`,
	} {
		got := s.SanitizeHTML(input)
		if strings.Contains(got, "src=") {
			t.Errorf("SanitizeHTML(%q) = %q, src should be removed", input, got)
		}
	}
}

// TestSanitizeHTML_LinkAttributes はaタグにnoopener noreferrerとtarget=_blankが
// 付与されることを検証する。
func TestSanitizeHTML_LinkAttributes(t *testing.T) {
	s := NewContentSanitizer()

	got := s.SanitizeHTML(`<a href="https://news.example.com/article">記事を読む</a>`)

	if !strings.Contains(got, `href="https://news.example.com/article"`) {
		t.Errorf("href should be kept, got %q", got)
	}
	if !strings.Contains(got, "noreferrer") {
		t.Errorf("rel should contain noreferrer, got %q", got)
	}
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("target=_blank should be added, got %q", got)
	}
}

// TestSanitizeHTML_EmptyInput は空入力に空文字列が返ることを検証する。
func TestSanitizeHTML_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()
	if got := s.SanitizeHTML(""); got != "" {
		t.Errorf("SanitizeHTML(\"\") = %q, want \"\"", got)
	}
}

// TestSanitizeHTML_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitizeHTML_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>ニュース<script>x</script></p><a href="https://example.com">link</a>`
	first := s.SanitizeHTML(input)
	second := s.SanitizeHTML(first)
	if first != second {
		t.Errorf("sanitize not idempotent: first = %q, second = %q", first, second)
	}
}

// TestSanitizeText_RemovesAllTags は全てのHTMLタグが除去されることを検証する。
func TestSanitizeText_RemovesAllTags(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "タグなし",
			input: "夜に聴きたい一曲",
			want:  "夜に聴きたい一曲",
		},
		{
			name:  "強調タグを除去",
			input: "<b>最高</b>の曲",
			want:  "最高の曲",
		},
		{
			name:  "scriptタグを内容ごと除去",
			input: "<script>alert(1)</script>いい曲",
			want:  "いい曲",
		},
		{
			name:  "前後の空白をトリム",
			input: "  chill, evening  ",
			want:  "chill, evening",
		},
		{
			name:  "タグのみは空文字列",
			input: "<p></p>",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
