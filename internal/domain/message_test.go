package domain

import "testing"

func TestReadByViewer(t *testing.T) {
	msg := Message{ReadBy: []string{"viewer-a", "viewer-b"}}
	if !msg.ReadByViewer("viewer-a") {
		t.Error("expected viewer-a receipt")
	}
	if msg.ReadByViewer("viewer-c") {
		t.Error("unexpected viewer-c receipt")
	}
}
