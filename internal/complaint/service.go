package complaint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/redress/internal/events"
)

// Service is the business boundary for complaint lifecycle operations.
// Handlers are stateless; concurrency safety rests on the store's
// atomic-document-replace guarantee.
type Service struct {
	store   Store
	bus     events.Bus
	proofs  ProofStore
	logger  log.Logger
	metrics *Metrics

	// casWrites switches Reassign/Resolve from last-writer-wins to
	// revision-checked puts that fail with ErrConflict on a lost race.
	casWrites bool
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithCASWrites enables compare-and-swap semantics for mutating transitions.
func WithCASWrites() ServiceOption {
	return func(s *Service) { s.casWrites = true }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new complaint service.
func NewService(store Store, bus events.Bus, proofs ProofStore, logger log.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		store:  store,
		bus:    bus,
		proofs: proofs,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a new RAW record and announces it to the analysis worker.
// The caller gets the complaint ID back immediately; classification is
// decoupled and best-effort-eventual.
func (s *Service) Submit(ctx context.Context, ident *Identity, sub Submission) (string, error) {
	if ident == nil {
		return "", ErrForbidden
	}
	if strings.TrimSpace(sub.Title) == "" {
		return "", validationf("title is required")
	}
	if strings.TrimSpace(sub.Description) == "" {
		return "", validationf("description is required")
	}
	if strings.TrimSpace(sub.Location) == "" {
		return "", validationf("location is required")
	}
	if sub.Category != "" && !ValidDepartment(sub.Category) {
		return "", validationf("unknown category %q", sub.Category)
	}
	if sub.Urgency != "" && !ValidUrgency(sub.Urgency) {
		return "", validationf("unknown urgency %q", sub.Urgency)
	}

	id := ulid.Make().String()
	c := &Complaint{
		ID:             id,
		Title:          sub.Title,
		Description:    sub.Description,
		Location:       sub.Location,
		SubmitterID:    ident.UserID,
		SubmitterName:  ident.Name,
		SubmitterEmail: ident.Email,
		Category:       sub.Category,
		Urgency:        sub.Urgency,
		Summary:        sub.Summary,
		Status:         StatusRaw,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.Put(ctx, NamespaceRaw, id, c); err != nil {
		s.metrics.IncSubmit("store_error")
		return "", fmt.Errorf("%w: put raw record: %v", ErrUpstream, err)
	}

	// Publish failure is not fatal: the reprocessor sweep picks up raw
	// records that never got an analyzed counterpart.
	if err := s.bus.Publish(ctx, events.Event{Namespace: NamespaceRaw, ID: id}); err != nil {
		s.logger.Error(ctx, err, "publish raw write event", "complaint_id", id)
		s.metrics.IncSubmit("publish_error")
	} else {
		s.metrics.IncSubmit("accepted")
	}

	return id, nil
}

// Effective returns the read-path view of a complaint: the analyzed record
// when one exists, otherwise the raw record annotated PENDING with a
// MEDIUM urgency placeholder. Side-effect-free.
func (s *Service) Effective(ctx context.Context, id string) (*Complaint, bool, error) {
	c, ok, err := s.store.Get(ctx, NamespaceAnalyzed, id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: get analyzed record: %v", ErrUpstream, err)
	}
	if ok {
		return c, true, nil
	}

	raw, ok, err := s.store.Get(ctx, NamespaceRaw, id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: get raw record: %v", ErrUpstream, err)
	}
	if !ok {
		return nil, false, nil
	}

	cp := *raw
	cp.Status = StatusPending
	if cp.Urgency == "" {
		cp.Urgency = UrgencyMedium
	}
	// No analyzed document yet: a CAS write against the analyzed
	// namespace must expect revision 0 (create).
	cp.Revision = 0
	return &cp, true, nil
}

// Get returns the effective complaint view, enforcing the access policy.
func (s *Service) Get(ctx context.Context, ident *Identity, id string) (*Complaint, error) {
	if ident == nil {
		return nil, ErrForbidden
	}
	c, ok, err := s.Effective(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if !ident.CanView(c) {
		return nil, ErrForbidden
	}
	return c, nil
}

// List returns all complaints visible to the identity, newest first.
// Items are fetched with unbounded fan-out; a single item's absence or
// transient failure is filtered out, never propagated.
func (s *Service) List(ctx context.Context, ident *Identity) ([]*Complaint, error) {
	if ident == nil {
		return nil, ErrForbidden
	}

	ids, err := s.store.ListIDs(ctx, NamespaceRaw, "")
	if err != nil {
		return nil, fmt.Errorf("%w: list raw ids: %v", ErrUpstream, err)
	}

	var (
		mu  sync.Mutex
		out []*Complaint
		wg  sync.WaitGroup
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			c, ok, err := s.Effective(ctx, id)
			if err != nil {
				s.logger.Warn(ctx, "skipping unreadable complaint in listing", "complaint_id", id, "error", err.Error())
				return
			}
			if !ok || !ident.CanView(c) {
				return
			}
			mu.Lock()
			out = append(out, c)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Reassign overwrites the complaint's category on behalf of an
// administrator and stamps the assignment. Status is left untouched.
// Only analyzed records can be reassigned; persisting the PENDING
// read-path annotation would stop the worker from ever classifying
// the record.
func (s *Service) Reassign(ctx context.Context, ident *Identity, id string, category Department) error {
	if ident == nil || !ident.CanReassign() {
		return ErrForbidden
	}
	if !ValidDepartment(category) {
		return validationf("unknown category %q", category)
	}

	c, ok, err := s.analyzed(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	c.Category = category
	c.AssignedBy = ident.Name
	c.AssignedAt = time.Now().UTC()

	if err := s.write(ctx, NamespaceAnalyzed, id, c); err != nil {
		return err
	}
	s.metrics.IncReassign()
	s.logger.Info(ctx, "complaint reassigned", "complaint_id", id, "category", category, "assigned_by", ident.UserID)
	return nil
}

// Resolve closes a complaint on behalf of a department member. The proof
// payload is stored first; the record transitions to RESOLVED only after
// the proof URL exists.
func (s *Service) Resolve(ctx context.Context, ident *Identity, id string, proof []byte, fileName string) (string, error) {
	if ident == nil || ident.Role != RoleDepartment || ident.Department == "" {
		return "", ErrForbidden
	}
	if len(proof) == 0 {
		return "", validationf("proof payload is required")
	}

	// Resolution follows analysis; a record the worker has not produced
	// yet cannot be resolved.
	c, ok, err := s.analyzed(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	if !ident.CanResolve(c) {
		return "", ErrForbidden
	}

	if fileName == "" {
		fileName = "resolution-" + uuid.NewString() + ".jpg"
	}
	key := fmt.Sprintf("proofs/%s_%s", id, sanitizeFileName(fileName))
	proofURL, err := s.proofs.Put(ctx, key, proof, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("%w: store proof: %v", ErrUpstream, err)
	}
	s.metrics.ObserveProofBytes(len(proof))

	c.Status = StatusResolved
	c.ResolvedBy = ident.Name
	c.ResolutionDepartment = ident.Department
	c.ResolvedAt = time.Now().UTC()
	c.ProofURL = proofURL

	if err := s.write(ctx, NamespaceAnalyzed, id, c); err != nil {
		return "", err
	}
	s.metrics.IncResolve()
	s.logger.Info(ctx, "complaint resolved", "complaint_id", id, "department", ident.Department, "resolved_by", ident.UserID)
	return proofURL, nil
}

// analyzed reads the analyzed record for mutating transitions. Unlike
// Effective it never falls back to the raw namespace.
func (s *Service) analyzed(ctx context.Context, id string) (*Complaint, bool, error) {
	c, ok, err := s.store.Get(ctx, NamespaceAnalyzed, id)
	if err != nil {
		return nil, false, fmt.Errorf("%w: get analyzed record: %v", ErrUpstream, err)
	}
	return c, ok, nil
}

// write persists a mutated document, optionally revision-checked.
func (s *Service) write(ctx context.Context, namespace, id string, c *Complaint) error {
	var err error
	if s.casWrites {
		err = s.store.PutRev(ctx, namespace, id, c, c.Revision)
	} else {
		err = s.store.Put(ctx, namespace, id, c)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: put %s record: %v", ErrUpstream, namespace, err)
}

func sanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	// Collapse dot runs: the proof store rejects keys containing "..",
	// and a client's odd filename must not surface as a 5xx.
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	return name
}
