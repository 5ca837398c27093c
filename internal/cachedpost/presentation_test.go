package cachedpost

import (
	"strings"
	"testing"

	"hivebridge/internal/upstream"
)

func TestExtractPresentationTruncatesPreview(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("a", previewLen+50)
	ct := upstream.Content{Title: "hello", Body: body}

	title, preview, _, _ := extractPresentation(ct)
	if title != "hello" {
		t.Fatalf("title=%q want %q", title, "hello")
	}
	if len(preview) != previewLen {
		t.Fatalf("preview len=%d want %d", len(preview), previewLen)
	}
}

func TestExtractPresentationShortBodyUntouched(t *testing.T) {
	t.Parallel()

	ct := upstream.Content{Title: "t", Body: "short body"}
	_, preview, _, _ := extractPresentation(ct)
	if preview != "short body" {
		t.Fatalf("preview=%q want %q", preview, "short body")
	}
}

func TestExtractPresentationNSFWDetection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ct   upstream.Content
		want bool
	}{
		{name: "meta flag", ct: upstream.Content{JSONMetadata: `{"tags":["x"],"nsfw":true}`}, want: true},
		{name: "category", ct: upstream.Content{Category: "nsfw"}, want: true},
		{name: "clean", ct: upstream.Content{JSONMetadata: `{"tags":["x"]}`, Category: "art"}, want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, _, isNSFW := extractPresentation(tc.ct)
			if isNSFW != tc.want {
				t.Fatalf("isNSFW=%v want %v", isNSFW, tc.want)
			}
		})
	}
}
