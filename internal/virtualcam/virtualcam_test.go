package virtualcam

import "testing"

func TestSupportsKnownFormat(t *testing.T) {
	if !Supports(1280, 720, 30) {
		t.Fatalf("expected 1280x720@30 to be supported")
	}
}

func TestSupportsRejectsUnknownFormat(t *testing.T) {
	if Supports(1920, 1080, 24) {
		t.Fatalf("expected 1920x1080@24 to be unsupported")
	}
}
