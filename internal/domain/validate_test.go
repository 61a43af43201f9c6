package domain

import (
	"strings"
	"testing"
)

func TestValidateRequestInput(t *testing.T) {
	cases := []struct {
		name        string
		title       string
		description string
		priority    RequestPriority
		category    RequestCategory
		tags        []string
		wantFields  []string
	}{
		{
			name:        "valid",
			title:       "printer on fire",
			description: "smoke everywhere",
			priority:    RequestPriorityHigh,
			category:    CategoryTechnical,
			tags:        []string{"hardware", "urgent-ish"},
		},
		{
			name:        "blank title",
			title:       "   ",
			description: "desc",
			wantFields:  []string{"title"},
		},
		{
			name:       "blank description",
			title:      "title",
			wantFields: []string{"description"},
		},
		{
			name:        "unknown priority and category",
			title:       "t",
			description: "d",
			priority:    "SEVERE",
			category:    "OTHER",
			wantFields:  []string{"priority", "category"},
		},
		{
			name:        "too many tags",
			title:       "t",
			description: "d",
			tags:        make([]string, MaxTags+1),
			wantFields:  []string{"tags"},
		},
		{
			name:        "bad tag charset",
			title:       "t",
			description: "d",
			tags:        []string{"ok-tag", "bad!tag"},
			wantFields:  []string{"tags[1]"},
		},
		{
			name:        "tag too long",
			title:       "t",
			description: "d",
			tags:        []string{strings.Repeat("x", MaxTagLength+1)},
			wantFields:  []string{"tags[0]"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateRequestInput(tc.title, tc.description, tc.priority, tc.category, tc.tags)
			if len(tc.wantFields) == 0 {
				if len(errs) != 0 {
					t.Fatalf("expected no field errors, got %v", errs)
				}
				return
			}
			for _, field := range tc.wantFields {
				if _, ok := errs[field]; !ok {
					t.Errorf("expected error on field %q, got %v", field, errs)
				}
			}
		})
	}
}

func TestValidateMessageBody(t *testing.T) {
	if errs := ValidateMessageBody("hello"); len(errs) != 0 {
		t.Fatalf("valid body rejected: %v", errs)
	}
	if errs := ValidateMessageBody("   "); len(errs) == 0 {
		t.Fatal("whitespace-only body accepted")
	}
	if errs := ValidateMessageBody(strings.Repeat("a", MaxMessageBodyLength+1)); len(errs) == 0 {
		t.Fatal("oversized body accepted")
	}
	// Trimming happens before the length check.
	padded := "  " + strings.Repeat("a", MaxMessageBodyLength) + "  "
	if errs := ValidateMessageBody(padded); len(errs) != 0 {
		t.Fatalf("padded max-length body rejected: %v", errs)
	}
}

func TestValidateAttachments(t *testing.T) {
	valid := AttachmentReference{MimeType: "image/png", SizeBytes: 1024}

	if errs := ValidateAttachments([]AttachmentReference{valid}, 0); len(errs) != 0 {
		t.Fatalf("valid attachment rejected: %v", errs)
	}

	tooMany := make([]AttachmentReference, MaxAttachments+1)
	for i := range tooMany {
		tooMany[i] = valid
	}
	if errs := ValidateAttachments(tooMany, 0); len(errs) == 0 {
		t.Fatal("attachment count over limit accepted")
	}

	big := AttachmentReference{MimeType: "application/pdf", SizeBytes: MaxAttachmentBytes + 1}
	if errs := ValidateAttachments([]AttachmentReference{big}, 0); len(errs) == 0 {
		t.Fatal("oversized attachment accepted")
	}

	exe := AttachmentReference{MimeType: "application/x-msdownload", SizeBytes: 100}
	if errs := ValidateAttachments([]AttachmentReference{exe}, 0); len(errs) == 0 {
		t.Fatal("disallowed mime type accepted")
	}

	// Per-request cumulative cap counts bytes already stored.
	if errs := ValidateAttachments([]AttachmentReference{valid}, MaxRequestAttachment); len(errs) == 0 {
		t.Fatal("attachment breaching the per-request total accepted")
	}

	zero := AttachmentReference{MimeType: "text/plain", SizeBytes: 0}
	if errs := ValidateAttachments([]AttachmentReference{zero}, 0); len(errs) == 0 {
		t.Fatal("zero-size attachment accepted")
	}
}
