package scan

import "testing"

func TestResolveURL(t *testing.T) {
	const base = "https://jobs.example.com/search?q=go&page=2"

	tests := []struct {
		name, ref, want string
	}{
		{"absolute", "https://other.example.com/jobs/1", "https://other.example.com/jobs/1"},
		{"root relative", "/jobs/42", "https://jobs.example.com/jobs/42"},
		{"relative", "view/42", "https://jobs.example.com/view/42"},
		{"protocol relative", "//cdn.example.com/jobs/7", "https://cdn.example.com/jobs/7"},
		{"query only", "?q=rust", "https://jobs.example.com/search?q=rust"},
		{"fragment dropped", "/jobs/42#apply", "https://jobs.example.com/jobs/42"},
		{"host lowered", "https://Jobs.Example.COM/Jobs/1", "https://jobs.example.com/Jobs/1"},
		{"whitespace", "  /jobs/9 ", "https://jobs.example.com/jobs/9"},
		{"dot segments", "../careers/./5", "https://jobs.example.com/careers/5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(base, tt.ref)
			if err != nil {
				t.Fatalf("ResolveURL(%q) error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolveURL_Deterministic(t *testing.T) {
	a, _ := ResolveURL("https://a.example.com/list", "/jobs/1")
	b, _ := ResolveURL("https://a.example.com/list", "/jobs/1")
	if a != b {
		t.Errorf("resolution not deterministic: %q vs %q", a, b)
	}
}

func TestResolveURL_Rejects(t *testing.T) {
	tests := []struct{ base, ref string }{
		{"https://a.example.com", ""},
		{"https://a.example.com", "mailto:jobs@a.example.com"},
		{"https://a.example.com", "javascript:void(0)"},
		{"", "/jobs/1"},
		{"https://a.example.com", "ftp://files.example.com/job.pdf"},
		{"https://a.example.com", "http://[::1"},
	}
	for _, tt := range tests {
		if got, err := ResolveURL(tt.base, tt.ref); err == nil {
			t.Errorf("ResolveURL(%q, %q) = %q, want error", tt.base, tt.ref, got)
		}
	}
}
