package notary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/frahmantamala/research-vault/internal/core/events"
)

var notarizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notarizations_total",
	Help: "Notarization attempts by transaction type and result.",
}, []string{"type", "result"})

// Subscriber is the side of the event bus the dispatcher registers on.
type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

// Dispatcher turns document events into ledger anchors and records the resulting hashes.
type Dispatcher struct {
	notarizer Notarizer
	repo      Repository
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewDispatcher(notarizer Notarizer, repo Repository, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		notarizer: notarizer,
		repo:      repo,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

func (d *Dispatcher) RegisterEventHandlers(bus Subscriber) {
	bus.Subscribe(events.EventTypeDocumentPublished, d.HandleDocumentPublished)
	bus.Subscribe(events.EventTypeAccessGranted, d.HandleAccessGranted)

	d.logger.Info("notary event handlers registered",
		"handlers", []string{events.EventTypeDocumentPublished, events.EventTypeAccessGranted})
}

func (d *Dispatcher) HandleDocumentPublished(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.DocumentPublishedEvent)
	if !ok {
		return fmt.Errorf("expected DocumentPublishedEvent, got %T", event)
	}
	return d.notarize(ctx, Request{
		DocumentID: ev.DocumentID,
		ContentRef: ev.ContentRef,
		Title:      ev.Title,
		AuthorID:   ev.OwnerID,
		Type:       TxTypeUpload,
	})
}

func (d *Dispatcher) HandleAccessGranted(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.AccessGrantedEvent)
	if !ok {
		return fmt.Errorf("expected AccessGrantedEvent, got %T", event)
	}
	return d.notarize(ctx, Request{
		DocumentID: ev.DocumentID,
		ContentRef: ev.ContentRef,
		Title:      ev.Title,
		AuthorID:   ev.GranteeID,
		Type:       TxTypeGrant,
	})
}

// notarize runs detached from the request that raised the event, bounded by the dispatcher timeout.
func (d *Dispatcher) notarize(ctx context.Context, req Request) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	txHash, err := d.notarizer.Notarize(ctx, req)
	if err != nil {
		notarizationsTotal.WithLabelValues(string(req.Type), "error").Inc()
		return fmt.Errorf("notarize %s for document %s: %w", req.Type, req.DocumentID, err)
	}
	if txHash == "" {
		notarizationsTotal.WithLabelValues(string(req.Type), "skipped").Inc()
		return nil
	}

	rec := &Record{
		ID:         uuid.NewString(),
		DocumentID: req.DocumentID,
		TxType:     req.Type,
		TxHash:     txHash,
		CreatedAt:  d.now().UTC(),
	}
	if err := d.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrDocumentGone) {
			notarizationsTotal.WithLabelValues(string(req.Type), "orphaned").Inc()
			d.logger.Info("document deleted before its anchor was recorded",
				"document_id", req.DocumentID,
				"type", req.Type,
				"tx_hash", txHash)
			return nil
		}
		notarizationsTotal.WithLabelValues(string(req.Type), "error").Inc()
		return fmt.Errorf("save notarization for document %s: %w", req.DocumentID, err)
	}

	notarizationsTotal.WithLabelValues(string(req.Type), "anchored").Inc()
	d.logger.Info("document notarized",
		"document_id", req.DocumentID,
		"type", req.Type,
		"tx_hash", txHash)
	return nil
}
