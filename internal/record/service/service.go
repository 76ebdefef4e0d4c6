// Package service provides the implementation of record-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"html"

	recorderrors "github.com/abgdnv/recordstore/internal/record/errors"
	"github.com/abgdnv/recordstore/internal/record/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RecordService defines the methods for managing records.
// It abstracts the validation rules and the underlying store.
type RecordService interface {
	// ListRecords returns every record grouped by kind, in insertion order.
	// Text fields are HTML escaped.
	ListRecords(ctx context.Context) RecordListDto

	// CreateRecord validates the request, stores a new record and returns it.
	// Returns one of the validation errors from the errors package on bad input.
	CreateRecord(ctx context.Context, req CreateRecordRequest) (*CreatedRecordDto, error)
}

// Service implements RecordService.
type Service struct {
	repository      store.RecordStore
	recordsCreated  metric.Int64Counter
	recordsRejected metric.Int64Counter
}

// NewService creates a new instance of RecordService backed by the provided store.
func NewService(repo store.RecordStore) *Service {
	meter := otel.Meter("record-service")
	recordsCreated, err := meter.Int64Counter("records_created", metric.WithDescription("Total number of created records"))
	if err != nil {
		panic(fmt.Sprintf("failed to create records_created counter: %v", err))
	}
	recordsRejected, err := meter.Int64Counter("records_rejected", metric.WithDescription("Total number of rejected create requests"))
	if err != nil {
		panic(fmt.Sprintf("failed to create records_rejected counter: %v", err))
	}
	return &Service{
		repository:      repo,
		recordsCreated:  recordsCreated,
		recordsRejected: recordsRejected,
	}
}

// CreateRecordRequest carries the untyped create parameters.
type CreateRecordRequest struct {
	Type      Param
	Name      Param
	Price     Param
	Duration  Param
	Frequency Param
}

// RecordListDto groups the display-safe records by kind.
type RecordListDto struct {
	Product      []ProductDto      `json:"product"`
	Service      []ServiceDto      `json:"service"`
	Subscription []SubscriptionDto `json:"subscription"`
}

// ProductDto represents a product in the list response.
type ProductDto struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ServiceDto represents a service in the list response.
type ServiceDto struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

// SubscriptionDto represents a subscription in the list response.
type SubscriptionDto struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Frequency string  `json:"frequency"`
}

// CreatedRecordDto is the create response. It never carries duration or frequency,
// price is set for products and subscriptions only.
type CreatedRecordDto struct {
	ID    int      `json:"id"`
	Type  string   `json:"type"`
	Name  string   `json:"name"`
	Price *float64 `json:"price,omitempty"`
}

// ListRecords returns all records grouped by kind.
func (s *Service) ListRecords(ctx context.Context) RecordListDto {
	all := s.repository.FindAll(ctx)
	list := RecordListDto{
		Product:      make([]ProductDto, 0, len(all[store.KindProduct])),
		Service:      make([]ServiceDto, 0, len(all[store.KindService])),
		Subscription: make([]SubscriptionDto, 0, len(all[store.KindSubscription])),
	}
	for _, kind := range store.Kinds() {
		for _, r := range all[kind] {
			switch rec := r.(type) {
			case store.Product:
				list.Product = append(list.Product, ProductDto{
					ID:    rec.ID,
					Name:  html.EscapeString(rec.Name),
					Price: rec.Price,
				})
			case store.Service:
				list.Service = append(list.Service, ServiceDto{
					ID:       rec.ID,
					Name:     html.EscapeString(rec.Name),
					Duration: rec.Duration,
				})
			case store.Subscription:
				list.Subscription = append(list.Subscription, SubscriptionDto{
					ID:        rec.ID,
					Name:      html.EscapeString(rec.Name),
					Price:     rec.Price,
					Frequency: html.EscapeString(string(rec.Frequency)),
				})
			default:
				panic(fmt.Sprintf("unhandled record type %T", r))
			}
		}
	}
	return list
}

// CreateRecord validates the request and stores the new record.
// Checks run in order name, type, then the kind specific fields; the first failure is returned.
func (s *Service) CreateRecord(ctx context.Context, req CreateRecordRequest) (*CreatedRecordDto, error) {
	name, err := ValidateName(req.Name)
	if err != nil {
		return nil, s.reject(ctx, err)
	}
	kind, err := ValidateKind(req.Type)
	if err != nil {
		return nil, s.reject(ctx, err)
	}
	record, err := newRecord(kind, name, req)
	if err != nil {
		return nil, s.reject(ctx, err)
	}

	created, err := s.repository.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	s.recordsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))

	return toCreatedDto(created)
}

// newRecord runs the kind specific validators and builds the record without an id.
func newRecord(kind store.Kind, name string, req CreateRecordRequest) (store.Record, error) {
	switch kind {
	case store.KindProduct:
		price, err := ValidatePrice(req.Price)
		if err != nil {
			return nil, err
		}
		return store.Product{Name: name, Price: price}, nil
	case store.KindService:
		duration, err := ValidateDuration(req.Duration)
		if err != nil {
			return nil, err
		}
		return store.Service{Name: name, Duration: duration}, nil
	case store.KindSubscription:
		price, err := ValidatePrice(req.Price)
		if err != nil {
			return nil, err
		}
		frequency, err := ValidateFrequency(req.Frequency)
		if err != nil {
			return nil, err
		}
		return store.Subscription{Name: name, Price: price, Frequency: frequency}, nil
	default:
		return nil, recorderrors.ErrInvalidKind
	}
}

// toCreatedDto converts a stored record to the create response.
func toCreatedDto(r store.Record) (*CreatedRecordDto, error) {
	switch rec := r.(type) {
	case store.Product:
		return &CreatedRecordDto{
			ID:    rec.ID,
			Type:  html.EscapeString(string(store.KindProduct)),
			Name:  html.EscapeString(rec.Name),
			Price: &rec.Price,
		}, nil
	case store.Service:
		return &CreatedRecordDto{
			ID:   rec.ID,
			Type: html.EscapeString(string(store.KindService)),
			Name: html.EscapeString(rec.Name),
		}, nil
	case store.Subscription:
		return &CreatedRecordDto{
			ID:    rec.ID,
			Type:  html.EscapeString(string(store.KindSubscription)),
			Name:  html.EscapeString(rec.Name),
			Price: &rec.Price,
		}, nil
	default:
		return nil, fmt.Errorf("created record of type %T: %w", r, recorderrors.ErrUnknownKind)
	}
}

// reject counts the validation failure and returns it unchanged.
func (s *Service) reject(ctx context.Context, err error) error {
	s.recordsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, recorderrors.ErrInvalidName):
		return "name"
	case errors.Is(err, recorderrors.ErrInvalidKind):
		return "type"
	case errors.Is(err, recorderrors.ErrInvalidPrice):
		return "price"
	case errors.Is(err, recorderrors.ErrInvalidDuration):
		return "duration"
	case errors.Is(err, recorderrors.ErrInvalidFrequency):
		return "frequency"
	default:
		return "other"
	}
}
