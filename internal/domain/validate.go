package domain

import (
	"fmt"
	"strings"
)

const (
	MaxTags              = 10
	MaxTagLength         = 50
	MaxMessageBodyLength = 10000
	MaxAttachments       = 5
	MaxAttachmentBytes   = 10 << 20
	MaxRequestAttachment = 50 << 20
)

// allowedMimeTypes is the attachment MIME allow-list.
var allowedMimeTypes = map[string]struct{}{
	"image/png":          {},
	"image/jpeg":         {},
	"image/gif":          {},
	"application/pdf":    {},
	"text/plain":         {},
	"text/csv":           {},
	"application/zip":    {},
	"application/json":   {},
	"video/mp4":          {},
	"application/msword": {},
}

// FieldErrors maps field names to human-readable rejection reasons.
// An empty map means the input passed validation.
type FieldErrors map[string]any

func (f FieldErrors) add(field, reason string) {
	f[field] = reason
}

// ValidateRequestInput checks intake fields before a request is created.
func ValidateRequestInput(title, description string, priority RequestPriority, category RequestCategory, tags []string) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(title) == "" {
		errs.add("title", "title is required")
	}
	if strings.TrimSpace(description) == "" {
		errs.add("description", "description is required")
	}
	if priority != "" && !ValidPriority(priority) {
		errs.add("priority", fmt.Sprintf("unknown priority %q", priority))
	}
	if category != "" && !ValidCategory(category) {
		errs.add("category", fmt.Sprintf("unknown category %q", category))
	}
	for field, reason := range ValidateTags(tags) {
		errs[field] = reason
	}
	return errs
}

// ValidateTags enforces tag count, length and charset limits.
func ValidateTags(tags []string) FieldErrors {
	errs := FieldErrors{}
	if len(tags) > MaxTags {
		errs.add("tags", fmt.Sprintf("at most %d tags allowed", MaxTags))
		return errs
	}
	for i, tag := range tags {
		if tag == "" {
			errs.add(fmt.Sprintf("tags[%d]", i), "tag must not be empty")
			continue
		}
		if len(tag) > MaxTagLength {
			errs.add(fmt.Sprintf("tags[%d]", i), fmt.Sprintf("tag exceeds %d characters", MaxTagLength))
			continue
		}
		if !validTagCharset(tag) {
			errs.add(fmt.Sprintf("tags[%d]", i), "tag may only contain letters, digits, spaces, '-' and '_'")
		}
	}
	return errs
}

func validTagCharset(tag string) bool {
	for _, ch := range tag {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_' || ch == ' ':
		default:
			return false
		}
	}
	return true
}

// ValidateMessageBody enforces trimmed length between 1 and the cap.
func ValidateMessageBody(body string) FieldErrors {
	errs := FieldErrors{}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		errs.add("body", "message body must not be empty")
	} else if len(trimmed) > MaxMessageBodyLength {
		errs.add("body", fmt.Sprintf("message body exceeds %d characters", MaxMessageBodyLength))
	}
	return errs
}

// ValidateAttachments enforces per-message and per-request attachment
// limits. existingBytes is the total size already attached to the request.
func ValidateAttachments(attachments []AttachmentReference, existingBytes int64) FieldErrors {
	errs := FieldErrors{}
	if len(attachments) > MaxAttachments {
		errs.add("attachments", fmt.Sprintf("at most %d attachments per message", MaxAttachments))
		return errs
	}
	total := existingBytes
	for i, att := range attachments {
		field := fmt.Sprintf("attachments[%d]", i)
		if att.SizeBytes <= 0 {
			errs.add(field, "attachment size must be positive")
			continue
		}
		if att.SizeBytes > MaxAttachmentBytes {
			errs.add(field, fmt.Sprintf("attachment exceeds %d bytes", MaxAttachmentBytes))
		}
		if _, ok := allowedMimeTypes[strings.ToLower(att.MimeType)]; !ok {
			errs.add(field, fmt.Sprintf("mime type %q not allowed", att.MimeType))
		}
		total += att.SizeBytes
	}
	if total > MaxRequestAttachment {
		errs.add("attachments", fmt.Sprintf("request attachment total exceeds %d bytes", int64(MaxRequestAttachment)))
	}
	return errs
}
