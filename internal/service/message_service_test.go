package service

import (
	"context"
	"strings"
	"testing"

	"github.com/spec-kit/support-request-service/internal/domain"
)

func TestPostMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	request := env.openRequest(t, customer.ID)
	sender := Sender{ID: customer.ID, Role: domain.SenderRoleCustomer}
	ctx := context.Background()

	_, err := env.messages.PostMessage(ctx, sender, request.ID, "   ", false, nil)
	wantCode(t, err, "VALIDATION_FAILED")

	_, err = env.messages.PostMessage(ctx, sender, request.ID, strings.Repeat("a", domain.MaxMessageBodyLength+1), false, nil)
	wantCode(t, err, "VALIDATION_FAILED")

	_, err = env.messages.PostMessage(ctx, sender, request.ID, "see attachment", false, []MessageAttachmentInput{
		{FileName: "dump.bin", MimeType: "application/octet-stream", SizeBytes: 10},
	})
	wantCode(t, err, "VALIDATION_FAILED")

	_, err = env.messages.PostMessage(ctx, sender, "missing", "hello", false, nil)
	wantCode(t, err, "NOT_FOUND")
}

func TestPostMessageClosedRequest(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	agent := env.createAgent(t, domain.AgentRoleAgent)
	request := env.openRequest(t, customer.ID)
	ctx := context.Background()

	if _, err := env.requests.Close(ctx, agent, request.ID, nil); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := env.messages.PostMessage(ctx, Sender{ID: customer.ID, Role: domain.SenderRoleCustomer}, request.ID, "anyone there?", false, nil)
	wantCode(t, err, "INVALID_TRANSITION")
}

func TestPostMessageCompletedStillAccepts(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	agent := env.createAgent(t, domain.AgentRoleAgent)
	request := env.claimedRequest(t, customer.ID, agent)
	ctx := context.Background()

	if _, err := env.requests.Complete(ctx, agent, request.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.messages.PostMessage(ctx, Sender{ID: customer.ID, Role: domain.SenderRoleCustomer}, request.ID, "thanks, works now", false, nil); err != nil {
		t.Fatalf("post after complete: %v", err)
	}
}

func TestCustomerThreadRestrictions(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createCustomer(t)
	stranger := env.createCustomer(t)
	request := env.openRequest(t, owner.ID)
	ctx := context.Background()

	_, err := env.messages.PostMessage(ctx, Sender{ID: owner.ID, Role: domain.SenderRoleCustomer}, request.ID, "note to self", true, nil)
	wantCode(t, err, "FORBIDDEN")

	_, err = env.messages.PostMessage(ctx, Sender{ID: stranger.ID, Role: domain.SenderRoleCustomer}, request.ID, "let me in", false, nil)
	wantCode(t, err, "FORBIDDEN")
}

func TestThreadVisibilityAcrossPaging(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	agent := env.createAgent(t, domain.AgentRoleAgent)
	request := env.claimedRequest(t, customer.ID, agent)
	ctx := context.Background()

	// Interleave public and internal messages.
	for i := 0; i < 4; i++ {
		agentReply(t, env, agent, request.ID, "public reply")
		if _, err := env.messages.PostMessage(ctx, Sender{ID: agent.ID, Role: domain.SenderRoleAgent}, request.ID, "internal note", true, nil); err != nil {
			t.Fatalf("post internal: %v", err)
		}
	}

	agentPage, err := env.messages.GetThread(ctx, domain.SenderRoleAgent, request.ID, 100, 0)
	if err != nil {
		t.Fatalf("agent thread: %v", err)
	}
	if len(agentPage.Messages) != 8 {
		t.Fatalf("agent sees %d messages, want 8", len(agentPage.Messages))
	}

	// Customers never see internal notes, and paging applies after the
	// visibility filter so offsets line up with the filtered thread.
	first, err := env.messages.GetThread(ctx, domain.SenderRoleCustomer, request.ID, 2, 0)
	if err != nil {
		t.Fatalf("customer page 1: %v", err)
	}
	second, err := env.messages.GetThread(ctx, domain.SenderRoleCustomer, request.ID, 2, 2)
	if err != nil {
		t.Fatalf("customer page 2: %v", err)
	}
	seen := append(append([]domain.Message(nil), first.Messages...), second.Messages...)
	if len(seen) != 4 {
		t.Fatalf("customer sees %d messages across pages, want 4", len(seen))
	}
	for _, msg := range seen {
		if msg.Internal {
			t.Fatal("internal note leaked to customer")
		}
	}
}

func TestThreadOrderingIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	agent := env.createAgent(t, domain.AgentRoleAgent)
	request := env.claimedRequest(t, customer.ID, agent)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		agentReply(t, env, agent, request.ID, "reply")
	}

	page, err := env.messages.GetThread(ctx, domain.SenderRoleAgent, request.ID, 100, 0)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if len(page.Messages) != 20 {
		t.Fatalf("thread has %d messages, want 20", len(page.Messages))
	}
	for i := 1; i < len(page.Messages); i++ {
		if !page.Messages[i].CreatedAt.After(page.Messages[i-1].CreatedAt) {
			t.Fatalf("message %d timestamp %v not after predecessor %v",
				i, page.Messages[i].CreatedAt, page.Messages[i-1].CreatedAt)
		}
	}

	stored, err := env.requests.Get(ctx, request.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if stored.MessageCount != 20 {
		t.Errorf("message_count = %d, want 20", stored.MessageCount)
	}
	last := page.Messages[len(page.Messages)-1].CreatedAt
	if stored.LastMessageAt == nil || !stored.LastMessageAt.Equal(last) {
		t.Errorf("last_message_at = %v, want %v", stored.LastMessageAt, last)
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	agent := env.createAgent(t, domain.AgentRoleAgent)
	request := env.claimedRequest(t, customer.ID, agent)
	ctx := context.Background()

	agentReply(t, env, agent, request.ID, "first")
	agentReply(t, env, agent, request.ID, "second")
	if _, err := env.messages.PostMessage(ctx, Sender{ID: agent.ID, Role: domain.SenderRoleAgent}, request.ID, "internal", true, nil); err != nil {
		t.Fatalf("post internal: %v", err)
	}

	unread, err := env.messages.UnreadCount(ctx, domain.SenderRoleCustomer, request.ID, customer.ID)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if unread != 2 {
		t.Fatalf("customer unread = %d, want 2 (internal excluded)", unread)
	}

	agentUnread, err := env.messages.UnreadCount(ctx, domain.SenderRoleAgent, request.ID, agent.ID)
	if err != nil {
		t.Fatalf("agent unread: %v", err)
	}
	if agentUnread != 3 {
		t.Fatalf("agent unread = %d, want 3", agentUnread)
	}

	// Empty id list marks everything visible.
	if err := env.messages.MarkRead(ctx, request.ID, customer.ID, nil); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err = env.messages.UnreadCount(ctx, domain.SenderRoleCustomer, request.ID, customer.ID)
	if err != nil {
		t.Fatalf("unread after mark: %v", err)
	}
	if unread != 0 {
		t.Fatalf("customer unread after mark = %d, want 0", unread)
	}

	// Marking again changes nothing.
	if err := env.messages.MarkRead(ctx, request.ID, customer.ID, nil); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	unread, err = env.messages.UnreadCount(ctx, domain.SenderRoleCustomer, request.ID, customer.ID)
	if err != nil {
		t.Fatalf("unread after repeat: %v", err)
	}
	if unread != 0 {
		t.Fatalf("unread after repeated mark = %d, want 0", unread)
	}
}

func TestAttachmentTotalsAccumulateAcrossThread(t *testing.T) {
	env := newTestEnv(t)
	customer := env.createCustomer(t)
	request := env.openRequest(t, customer.ID)
	sender := Sender{ID: customer.ID, Role: domain.SenderRoleCustomer}
	ctx := context.Background()

	// Four 10 MB attachments across messages: fine.
	for i := 0; i < 4; i++ {
		if _, err := env.messages.PostMessage(ctx, sender, request.ID, "log attached", false, []MessageAttachmentInput{
			{FileName: "log.txt", MimeType: "text/plain", SizeBytes: domain.MaxAttachmentBytes},
		}); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	// A fifth 10 MB pushes past the 50 MB per-request cap only when it
	// would exceed it; exactly at the cap still passes.
	if _, err := env.messages.PostMessage(ctx, sender, request.ID, "one more", false, []MessageAttachmentInput{
		{FileName: "log.txt", MimeType: "text/plain", SizeBytes: domain.MaxAttachmentBytes},
	}); err != nil {
		t.Fatalf("post at cap: %v", err)
	}

	_, err := env.messages.PostMessage(ctx, sender, request.ID, "too much", false, []MessageAttachmentInput{
		{FileName: "log.txt", MimeType: "text/plain", SizeBytes: 1},
	})
	wantCode(t, err, "VALIDATION_FAILED")
}
