package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/support-request-service/internal/domain"
)

func seedRequest(t *testing.T, store *MemoryStore, status domain.RequestStatus) *domain.Request {
	t.Helper()
	request := &domain.Request{
		ExternalKey: "REQ-TEST",
		CustomerID:  "customer-1",
		Title:       "title",
		Description: "description",
		Status:      domain.RequestStatusOpen,
		Priority:    domain.RequestPriorityMedium,
		Category:    domain.CategoryGeneral,
	}
	if err := store.Create(context.Background(), request); err != nil {
		t.Fatalf("create: %v", err)
	}
	if status != domain.RequestStatusOpen {
		request.Status = status
		if err := store.Update(context.Background(), request, domain.RequestStatusOpen); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	return request
}

func TestClaimAssignCompareAndSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	request := seedRequest(t, store, domain.RequestStatusOpen)

	claimed, err := store.ClaimAssign(ctx, request.ID, "agent-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != domain.RequestStatusInProgress || claimed.AssignedAgentID == nil {
		t.Fatalf("claim did not assign: %+v", claimed)
	}

	// Second claim observes a non-open request and loses.
	if _, err := store.ClaimAssign(ctx, request.ID, "agent-2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second claim err = %v, want ErrConflict", err)
	}
	if _, err := store.ClaimAssign(ctx, "missing", "agent-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing claim err = %v, want ErrNotFound", err)
	}
}

func TestAppendKeepsTimestampsMonotonic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	request := seedRequest(t, store, domain.RequestStatusOpen)

	first := &domain.Message{RequestID: request.ID, SenderID: "a", SenderRole: domain.SenderRoleAgent, Body: "one"}
	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Force a clock collision: pin last_message_at into the future and
	// verify the next append lands strictly after it.
	future := time.Now().Add(time.Hour)
	store.mu.Lock()
	store.requests[request.ID].LastMessageAt = &future
	store.mu.Unlock()

	second := &domain.Message{RequestID: request.ID, SenderID: "a", SenderRole: domain.SenderRoleAgent, Body: "two"}
	if err := store.Append(ctx, second); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !second.CreatedAt.After(future) {
		t.Fatalf("second message at %v, want after pinned %v", second.CreatedAt, future)
	}
	if got := second.CreatedAt.Sub(future); got != time.Microsecond {
		t.Errorf("collision offset = %v, want 1µs", got)
	}

	stored, err := store.GetByID(ctx, request.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.MessageCount != 2 {
		t.Errorf("message_count = %d, want 2", stored.MessageCount)
	}
	if stored.LastMessageAt == nil || !stored.LastMessageAt.Equal(second.CreatedAt) {
		t.Errorf("last_message_at = %v, want %v", stored.LastMessageAt, second.CreatedAt)
	}
}

func TestUpdateGuardsOnExpectedStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	request := seedRequest(t, store, domain.RequestStatusOpen)

	// Move the stored request past the state this copy was read at.
	if _, err := store.ClaimAssign(ctx, request.ID, "agent-1"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	stale := *request
	stale.Status = domain.RequestStatusClosed
	if err := store.Update(ctx, &stale, domain.RequestStatusOpen); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale update err = %v, want ErrConflict", err)
	}

	stored, err := store.GetByID(ctx, request.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.RequestStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS untouched by losing write", stored.Status)
	}

	missing := *request
	missing.ID = "missing"
	if err := store.Update(ctx, &missing, domain.RequestStatusOpen); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing update err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePreservesDerivedFields(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	request := seedRequest(t, store, domain.RequestStatusOpen)

	msg := &domain.Message{RequestID: request.ID, SenderID: "a", SenderRole: domain.SenderRoleAgent, Body: "hello"}
	if err := store.Append(ctx, msg); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A lifecycle write carrying stale derived fields must not clobber
	// what the message path maintains.
	request.MessageCount = 0
	request.LastMessageAt = nil
	request.Status = domain.RequestStatusClosed
	if err := store.Update(ctx, request, domain.RequestStatusOpen); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored, err := store.GetByID(ctx, request.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.MessageCount != 1 || stored.LastMessageAt == nil {
		t.Errorf("derived fields clobbered: count=%d last=%v", stored.MessageCount, stored.LastMessageAt)
	}
	if stored.Status != domain.RequestStatusClosed {
		t.Errorf("status = %s, want CLOSED", stored.Status)
	}
}

func TestListWithFilterPagingAndOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		request := seedRequest(t, store, domain.RequestStatusOpen)
		ids = append(ids, request.ID)
		// Distinct updated_at per request so ordering is deterministic.
		store.mu.Lock()
		store.requests[request.ID].UpdatedAt = time.Now().Add(time.Duration(i) * time.Second)
		store.mu.Unlock()
	}

	page, err := store.ListWithFilter(ctx, RequestFilter{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	// Most recently updated first.
	if page[0].ID != ids[4] || page[1].ID != ids[3] {
		t.Errorf("unexpected order: got %s,%s", page[0].ID, page[1].ID)
	}

	tail, err := store.ListWithFilter(ctx, RequestFilter{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != ids[0] {
		t.Errorf("tail page wrong: %+v", tail)
	}

	beyond, err := store.ListWithFilter(ctx, RequestFilter{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatalf("beyond: %v", err)
	}
	if len(beyond) != 0 {
		t.Errorf("offset past end returned %d rows", len(beyond))
	}
}

func TestListWithFilterSearch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	matching := seedRequest(t, store, domain.RequestStatusOpen)
	matching.Title = "VPN keeps dropping"
	if err := store.Update(ctx, matching, domain.RequestStatusOpen); err != nil {
		t.Fatalf("update: %v", err)
	}
	seedRequest(t, store, domain.RequestStatusOpen)

	term := "vpn"
	found, err := store.ListWithFilter(ctx, RequestFilter{SearchTerm: &term})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].ID != matching.ID {
		t.Errorf("search returned %d rows", len(found))
	}
}
