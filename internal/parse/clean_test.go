package parse

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "hello world", "hello world"},
		{"tags", "<p>hello <b>world</b></p>", "hello world"},
		{"cdata", "<![CDATA[wrapped text]]>", "wrapped text"},
		{"script", "before<script>alert(1)</script>after", "beforeafter"},
		{"style", "a<style>p { color: red }</style>b", "ab"},
		{"entities", "fish &amp; chips &lt;now&gt;", "fish & chips <now>"},
		{"nbsp", "one&nbsp;two", "one two"},
		{"curly quotes", "&#8220;quoted&#8221;", "“quoted”"},
		{"numeric leftovers", "text &#12345; more", "text more"},
		{"whitespace collapse", "a \n\t  b   c", "a b c"},
		{"read more trailer", "Interesting article Read More...click", "Interesting article"},
		{"continue reading trailer", "Summary here Continue reading at site", "Summary here"},
		{"bracket ellipsis", "cut short […]", "cut short"},
		{"trailing dots", "teaser text ...", "teaser text"},
		{"leading dash", "- bullet point", "bullet point"},
		{"struct value", "intro StructValue(foo=1) outro", "intro outro"},
		{"object repr", "x <wagtail.core.blocks object at 0xdeadbeef> y", "x y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractImage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no content", "", ""},
		{"no image", "<p>just text</p>", ""},
		{"jpg", `<p><img src="http://example.com/photo.jpg" alt=""></p>`, "http://example.com/photo.jpg"},
		{"query string ext", `<img src='https://cdn.example.com/a.png?w=600'>`, "https://cdn.example.com/a.png?w=600"},
		{"image token", `<img src="https://example.com/images/12345">`, "https://example.com/images/12345"},
		{"not image-like", `<img src="https://example.com/tracking/pixel">`, ""},
		{"first image wins", `<img src="http://a.example/1.png"><img src="http://a.example/2.png">`, "http://a.example/1.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractImage(Entry{Content: tt.content})
			if got != tt.want {
				t.Errorf("ExtractImage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractImageFromSummary(t *testing.T) {
	e := Entry{Summary: `<img src="http://example.com/pic.gif">`}
	if got := ExtractImage(e); got != "http://example.com/pic.gif" {
		t.Errorf("expected summary fallback, got %q", got)
	}
}
