package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-request-service/internal/domain"
)

// MemoryStore is an in-process implementation of every repository
// interface. It backs the service when POSTGRES_DSN is not configured and
// is what the package tests run against. A single mutex guards all state;
// requests are independent units of concurrency at the service level, but
// serializing here keeps the compare-and-set and per-thread append
// guarantees trivially correct.
type MemoryStore struct {
	mu        sync.Mutex
	requests  map[string]*domain.Request
	messages  map[string][]*domain.Message
	reads     map[string]map[string]struct{}
	agents    map[string]*domain.Agent
	customers map[string]*domain.Customer
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:  make(map[string]*domain.Request),
		messages:  make(map[string][]*domain.Message),
		reads:     make(map[string]map[string]struct{}),
		agents:    make(map[string]*domain.Agent),
		customers: make(map[string]*domain.Customer),
	}
}

var (
	_ RequestRepository  = (*MemoryStore)(nil)
	_ MessageRepository  = (*MemoryStore)(nil)
	_ AgentRepository    = (*memoryAgents)(nil)
	_ CustomerRepository = (*memoryCustomers)(nil)
)

func cloneRequest(r *domain.Request) *domain.Request {
	cp := *r
	cp.Tags = append([]string(nil), r.Tags...)
	return &cp
}

func cloneMessage(m *domain.Message, readers map[string]struct{}) *domain.Message {
	cp := *m
	cp.Attachments = append([]domain.AttachmentReference(nil), m.Attachments...)
	cp.ReadBy = nil
	for viewer := range readers {
		cp.ReadBy = append(cp.ReadBy, viewer)
	}
	sort.Strings(cp.ReadBy)
	return &cp
}

// Create inserts a request.
func (s *MemoryStore) Create(ctx context.Context, request *domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	request.ID = uuid.NewString()
	request.CreatedAt = now
	request.UpdatedAt = now
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

// Update commits a request's mutable fields while the stored status still
// matches what the caller validated against.
func (s *MemoryStore) Update(ctx context.Context, request *domain.Request, expected domain.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[request.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != expected {
		return ErrConflict
	}
	request.UpdatedAt = time.Now()
	request.MessageCount = stored.MessageCount
	request.LastMessageAt = stored.LastMessageAt
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

// GetByID fetches a request copy.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRequest(stored), nil
}

// ClaimAssign implements the compare-and-set claim under the store lock.
func (s *MemoryStore) ClaimAssign(ctx context.Context, requestID, agentID string) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	if stored.Status != domain.RequestStatusOpen || stored.AssignedAgentID != nil {
		return nil, ErrConflict
	}
	assignee := agentID
	stored.AssignedAgentID = &assignee
	stored.Status = domain.RequestStatusInProgress
	stored.UpdatedAt = time.Now()
	return cloneRequest(stored), nil
}

// ListWithFilter applies the same filter semantics as the SQL repository.
func (s *MemoryStore) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.Request
	for _, request := range s.requests {
		if filter.CustomerID != nil && request.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AssigneeID != nil && (request.AssignedAgentID == nil || *request.AssignedAgentID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, request.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, request.Priority) {
			continue
		}
		if len(filter.Categories) > 0 && !containsCategory(filter.Categories, request.Category) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if term != "" &&
				!strings.Contains(strings.ToLower(request.Title), term) &&
				!strings.Contains(strings.ToLower(request.Description), term) {
				continue
			}
		}
		matched = append(matched, request)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	result := make([]domain.Request, 0, end-offset)
	for _, request := range matched[offset:end] {
		result = append(result, *cloneRequest(request))
	}
	return result, nil
}

// CountByStatus tallies requests per status.
func (s *MemoryStore) CountByStatus(ctx context.Context, since *time.Time) (map[domain.RequestStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.RequestStatus]int64)
	for _, request := range s.requests {
		if since != nil && request.CreatedAt.Before(*since) {
			continue
		}
		counts[request.Status]++
	}
	return counts, nil
}

// AvgFirstResponseSeconds averages creation-to-first-public-agent-reply.
func (s *MemoryStore) AvgFirstResponseSeconds(ctx context.Context, since *time.Time) (float64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var totalSeconds float64
	var samples int64
	for id, request := range s.requests {
		if since != nil && request.CreatedAt.Before(*since) {
			continue
		}
		for _, msg := range s.messages[id] {
			if msg.SenderRole == domain.SenderRoleAgent && !msg.Internal {
				totalSeconds += msg.CreatedAt.Sub(request.CreatedAt).Seconds()
				samples++
				break
			}
		}
	}
	if samples == 0 {
		return 0, 0, nil
	}
	return totalSeconds / float64(samples), samples, nil
}

// Append adds a message with monotonic created_at and recomputes the
// owning request's summary under the same lock.
func (s *MemoryStore) Append(ctx context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[msg.RequestID]
	if !ok {
		return ErrNotFound
	}

	createdAt := time.Now()
	if request.LastMessageAt != nil && !createdAt.After(*request.LastMessageAt) {
		createdAt = request.LastMessageAt.Add(time.Microsecond)
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = createdAt
	for i := range msg.Attachments {
		msg.Attachments[i].ID = uuid.NewString()
		msg.Attachments[i].MessageID = msg.ID
		msg.Attachments[i].CreatedAt = createdAt
	}

	stored := *msg
	stored.Attachments = append([]domain.AttachmentReference(nil), msg.Attachments...)
	s.messages[msg.RequestID] = append(s.messages[msg.RequestID], &stored)

	request.MessageCount = len(s.messages[msg.RequestID])
	last := createdAt
	request.LastMessageAt = &last
	request.UpdatedAt = time.Now()
	return nil
}

// ListByRequest returns thread messages honoring visibility and paging.
func (s *MemoryStore) ListByRequest(ctx context.Context, requestID string, includeInternal bool, limit, offset int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var visible []*domain.Message
	for _, msg := range s.messages[requestID] {
		if msg.Internal && !includeInternal {
			continue
		}
		visible = append(visible, msg)
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(visible) {
		return nil, nil
	}
	end := offset + limit
	if end > len(visible) {
		end = len(visible)
	}

	result := make([]domain.Message, 0, end-offset)
	for _, msg := range visible[offset:end] {
		result = append(result, *cloneMessage(msg, s.reads[msg.ID]))
	}
	return result, nil
}

// MarkRead records receipts; repeats are no-ops.
func (s *MemoryStore) MarkRead(ctx context.Context, requestID, viewerID string, messageIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = struct{}{}
	}
	for _, msg := range s.messages[requestID] {
		if len(wanted) > 0 {
			if _, ok := wanted[msg.ID]; !ok {
				continue
			}
		}
		readers, ok := s.reads[msg.ID]
		if !ok {
			readers = make(map[string]struct{})
			s.reads[msg.ID] = readers
		}
		readers[viewerID] = struct{}{}
	}
	return nil
}

// UnreadCount counts visible messages without a receipt for the viewer.
func (s *MemoryStore) UnreadCount(ctx context.Context, requestID, viewerID string, includeInternal bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, msg := range s.messages[requestID] {
		if msg.Internal && !includeInternal {
			continue
		}
		if _, read := s.reads[msg.ID][viewerID]; !read {
			count++
		}
	}
	return count, nil
}

// TotalAttachmentBytes sums attachment sizes across the thread.
func (s *MemoryStore) TotalAttachmentBytes(ctx context.Context, requestID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, msg := range s.messages[requestID] {
		for _, att := range msg.Attachments {
			total += att.SizeBytes
		}
	}
	return total, nil
}

func (s *MemoryStore) createAgent(agent *domain.Agent) {
	now := time.Now()
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	agent.CreatedAt = now
	agent.UpdatedAt = now
	cp := *agent
	s.agents[agent.ID] = &cp
}

// Agents returns an AgentRepository view over the store.
func (s *MemoryStore) Agents() AgentRepository {
	return &memoryAgents{store: s}
}

// Customers returns a CustomerRepository view over the store.
func (s *MemoryStore) Customers() CustomerRepository {
	return &memoryCustomers{store: s}
}

type memoryAgents struct {
	store *MemoryStore
}

func (m *memoryAgents) Create(ctx context.Context, agent *domain.Agent) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, existing := range m.store.agents {
		if existing.Email == agent.Email {
			return fmt.Errorf("agent email %s already registered", agent.Email)
		}
	}
	m.store.createAgent(agent)
	return nil
}

func (m *memoryAgents) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	agent, ok := m.store.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *agent
	return &cp, nil
}

func (m *memoryAgents) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, agent := range m.store.agents {
		if agent.Email == email {
			cp := *agent
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryAgents) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var result []domain.Agent
	for _, agent := range m.store.agents {
		if filter.Role != nil && agent.Role != *filter.Role {
			continue
		}
		if filter.Department != nil && agent.Department != *filter.Department {
			continue
		}
		if filter.Active != nil && agent.Active != *filter.Active {
			continue
		}
		result = append(result, *agent)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *memoryAgents) TouchLastSeen(ctx context.Context, id string, seenAt time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	agent, ok := m.store.agents[id]
	if !ok {
		return ErrNotFound
	}
	agent.LastSeenAt = &seenAt
	return nil
}

type memoryCustomers struct {
	store *MemoryStore
}

func (m *memoryCustomers) Create(ctx context.Context, customer *domain.Customer) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, existing := range m.store.customers {
		if existing.Email == customer.Email {
			return fmt.Errorf("customer email %s already registered", customer.Email)
		}
	}
	now := time.Now()
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	customer.CreatedAt = now
	customer.UpdatedAt = now
	cp := *customer
	m.store.customers[customer.ID] = &cp
	return nil
}

func (m *memoryCustomers) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	customer, ok := m.store.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *customer
	return &cp, nil
}

func (m *memoryCustomers) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, customer := range m.store.customers {
		if customer.Email == email {
			cp := *customer
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func containsStatus(list []domain.RequestStatus, v domain.RequestStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.RequestPriority, v domain.RequestPriority) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsCategory(list []domain.RequestCategory, v domain.RequestCategory) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
