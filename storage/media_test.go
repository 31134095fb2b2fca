package storage

import (
	"os"
	"testing"
)

func TestResolveAttachmentURL(t *testing.T) {
	os.Unsetenv("CLOUDINARY_CLOUD_NAME")

	// resolution is best-effort: no handle or no configuration yields ""
	if got := ResolveAttachmentURL(""); got != "" {
		t.Fatalf("empty handle resolved to %q", got)
	}
	if got := ResolveAttachmentURL("chat/abc"); got != "" {
		t.Fatalf("unconfigured resolve returned %q", got)
	}

	os.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	defer os.Unsetenv("CLOUDINARY_CLOUD_NAME")

	want := "https://res.cloudinary.com/demo/image/upload/chat/abc"
	if got := ResolveAttachmentURL("chat/abc"); got != want {
		t.Fatalf("resolve = %q, want %q", got, want)
	}

	// legacy rows that stored a full URL pass through untouched
	full := "https://res.cloudinary.com/demo/image/upload/v1/chat/legacy.jpg"
	if got := ResolveAttachmentURL(full); got != full {
		t.Fatalf("absolute handle rewritten to %q", got)
	}
}
