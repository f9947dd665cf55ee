package document

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/events"
	"github.com/noah-isme/backend-billing/internal/obs"
	"github.com/noah-isme/backend-billing/internal/totals"
)

// Service orchestrates document CRUD. It is the recompute authority: every
// create and update reruns the totals engine over the raw inputs and stores
// the engine's derived values, so a stored document always round-trips.
type Service struct {
	store     Store
	bus       *events.Bus
	validate  *validator.Validate
	submitter *SubmissionClient
}

// NewService constructs a document service.
func NewService(store Store, bus *events.Bus, validate *validator.Validate, submitter *SubmissionClient) *Service {
	if validate == nil {
		validate = validator.New()
	}
	return &Service{store: store, bus: bus, validate: validate, submitter: submitter}
}

// recompute flushes item totals and aggregates into the document. Client
// supplied derived values are discarded.
func (s *Service) recompute(doc *Document) {
	start := time.Now()
	summary := totals.Recompute(doc.Items, doc.TaxRate, doc.DiscountRate)
	if obs.TotalsRecomputeDuration != nil {
		obs.TotalsRecomputeDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	doc.Subtotal = summary.Subtotal
	doc.TaxAmount = summary.TaxAmount
	doc.DiscountAmount = summary.DiscountAmount
	doc.GrandTotal = summary.GrandTotal
}

// Create validates, recomputes and persists a new document.
func (s *Service) Create(ctx context.Context, orgID string, doc Document) (Document, error) {
	if s == nil || s.store == nil {
		return Document{}, ErrStoreUnavailable
	}
	if _, ok := ParseType(string(doc.Type)); !ok {
		return Document{}, common.NewAppError("VALIDATION_ERROR", "unknown document type", http.StatusBadRequest, nil)
	}
	doc.OrgID = orgID
	if strings.TrimSpace(doc.Status) == "" {
		doc.Status = DefaultStatus(doc.Type)
	}
	if !ValidStatus(doc.Type, doc.Status) {
		return Document{}, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("status %q is not valid for %s documents", doc.Status, doc.Type), http.StatusBadRequest, nil)
	}
	if err := s.validateDocument(doc); err != nil {
		return Document{}, err
	}
	s.recompute(&doc)

	created, err := s.store.Insert(ctx, doc)
	if err != nil {
		return Document{}, err
	}
	if obs.DocumentsCreatedTotal != nil {
		obs.DocumentsCreatedTotal.WithLabelValues(string(created.Type)).Inc()
	}
	s.emit(ctx, events.TopicDocumentCreated, created)
	return created, nil
}

// Update validates, recomputes and persists changes to an existing document.
func (s *Service) Update(ctx context.Context, orgID, id string, doc Document) (Document, error) {
	if s == nil || s.store == nil {
		return Document{}, ErrStoreUnavailable
	}
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Document{}, common.NewAppError("VALIDATION_ERROR", "invalid document id", http.StatusBadRequest, err)
	}
	existing, err := s.Get(ctx, orgID, id)
	if err != nil {
		return Document{}, err
	}
	doc.ID = docID
	doc.OrgID = orgID
	doc.Type = existing.Type
	if strings.TrimSpace(doc.Status) == "" {
		doc.Status = existing.Status
	}
	if !ValidStatus(doc.Type, doc.Status) {
		return Document{}, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("status %q is not valid for %s documents", doc.Status, doc.Type), http.StatusBadRequest, nil)
	}
	if err := s.validateDocument(doc); err != nil {
		return Document{}, err
	}
	s.recompute(&doc)

	updated, err := s.store.Update(ctx, doc)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, common.NewAppError("NOT_FOUND", "document not found", http.StatusNotFound, err)
		}
		return Document{}, err
	}
	s.emit(ctx, events.TopicDocumentUpdated, updated)
	return updated, nil
}

// Get fetches one document by id.
func (s *Service) Get(ctx context.Context, orgID, id string) (Document, error) {
	if s == nil || s.store == nil {
		return Document{}, ErrStoreUnavailable
	}
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Document{}, common.NewAppError("VALIDATION_ERROR", "invalid document id", http.StatusBadRequest, err)
	}
	doc, err := s.store.Get(ctx, orgID, docID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, common.NewAppError("NOT_FOUND", "document not found", http.StatusNotFound, err)
		}
		return Document{}, err
	}
	return doc, nil
}

// List returns one page of documents plus the filtered total.
func (s *Service) List(ctx context.Context, orgID string, filter ListFilter) ([]Document, int64, error) {
	if s == nil || s.store == nil {
		return nil, 0, ErrStoreUnavailable
	}
	if filter.Status != "" && filter.Type != "" && !ValidStatus(filter.Type, filter.Status) {
		return nil, 0, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("status %q is not valid for %s documents", filter.Status, filter.Type), http.StatusBadRequest, nil)
	}
	docs, err := s.store.List(ctx, orgID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, orgID, filter)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Delete removes a document.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	if s == nil || s.store == nil {
		return ErrStoreUnavailable
	}
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return common.NewAppError("VALIDATION_ERROR", "invalid document id", http.StatusBadRequest, err)
	}
	doc, err := s.store.Get(ctx, orgID, docID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NewAppError("NOT_FOUND", "document not found", http.StatusNotFound, err)
		}
		return err
	}
	if err := s.store.Delete(ctx, orgID, docID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NewAppError("NOT_FOUND", "document not found", http.StatusNotFound, err)
		}
		return err
	}
	s.emit(ctx, events.TopicDocumentDeleted, doc)
	return nil
}

// UpdateStatus moves a document to another lifecycle state.
func (s *Service) UpdateStatus(ctx context.Context, orgID, id, status string) (Document, error) {
	if s == nil || s.store == nil {
		return Document{}, ErrStoreUnavailable
	}
	docID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Document{}, common.NewAppError("VALIDATION_ERROR", "invalid document id", http.StatusBadRequest, err)
	}
	existing, err := s.store.Get(ctx, orgID, docID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, common.NewAppError("NOT_FOUND", "document not found", http.StatusNotFound, err)
		}
		return Document{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !ValidStatus(existing.Type, status) {
		return Document{}, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("status %q is not valid for %s documents", status, existing.Type), http.StatusBadRequest, nil)
	}
	updated, err := s.store.UpdateStatus(ctx, orgID, docID, status)
	if err != nil {
		return Document{}, err
	}
	if obs.DocumentStatusChanges != nil {
		obs.DocumentStatusChanges.WithLabelValues(string(updated.Type), status).Inc()
	}
	s.emit(ctx, events.TopicDocumentStatusChanged, updated)
	return updated, nil
}

// Submit posts the document to the configured remote endpoint.
func (s *Service) Submit(ctx context.Context, orgID, id string) (Document, error) {
	doc, err := s.Get(ctx, orgID, id)
	if err != nil {
		return Document{}, err
	}
	if s.submitter == nil {
		return Document{}, common.NewAppError("NOT_CONFIGURED", "submission endpoint not configured", http.StatusServiceUnavailable, nil)
	}
	if err := s.submitter.Submit(ctx, doc); err != nil {
		if obs.DocumentsSubmittedTotal != nil {
			obs.DocumentsSubmittedTotal.WithLabelValues(string(doc.Type), "error").Inc()
		}
		return Document{}, common.NewAppError("SUBMISSION_FAILED", "remote submission failed", http.StatusBadGateway, err)
	}
	if obs.DocumentsSubmittedTotal != nil {
		obs.DocumentsSubmittedTotal.WithLabelValues(string(doc.Type), "ok").Inc()
	}
	s.emit(ctx, events.TopicDocumentSubmitted, doc)
	return doc, nil
}

func (s *Service) emit(ctx context.Context, topic string, doc Document) {
	if s.bus == nil {
		return
	}
	// Event emission is best effort; CRUD has already committed.
	_, _ = s.bus.Emit(ctx, topic, doc.OrgID, doc.ID, map[string]any{
		"documentId": doc.ID.String(),
		"type":       doc.Type,
		"status":     doc.Status,
		"grandTotal": doc.GrandTotal,
	})
}

// validateDocument applies the form-schema rules: field formats via
// validator tags, plus the item rules the engine itself deliberately does
// not enforce (the engine coerces, the schema rejects).
func (s *Service) validateDocument(doc Document) error {
	if err := s.validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			appErr := common.NewAppError("VALIDATION_ERROR", "invalid document payload", http.StatusBadRequest, err)
			appErr.Details = details
			return appErr
		}
		return common.NewAppError("VALIDATION_ERROR", "invalid document payload", http.StatusBadRequest, err)
	}
	for i, item := range doc.Items {
		if strings.TrimSpace(item.ProductName) == "" && strings.TrimSpace(item.ProductID) == "" {
			return itemError(i, "productName is required")
		}
		if item.Quantity.Float() <= 0 {
			return itemError(i, "quantity must be greater than zero")
		}
		if item.UnitPrice.Float() <= 0 {
			return itemError(i, "unitPrice must be greater than zero")
		}
	}
	return nil
}

func itemError(index int, msg string) error {
	return common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("items[%d]: %s", index, msg), http.StatusBadRequest, nil)
}
