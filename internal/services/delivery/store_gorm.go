// Package delivery orchestrates the execute-create-label flow on top of
// the framework core (internal/delivery) and persists it through a
// GORM-backed implementation of delivery.Store.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shipfabric/shipfabric/internal/database"
	"github.com/shipfabric/shipfabric/internal/delivery"
	"github.com/shipfabric/shipfabric/internal/models"
	"gorm.io/datatypes"
)

// GormStore is the one concrete delivery.Store implementation this
// repository ships; the framework core never imports it directly, only the
// interface.
type GormStore struct {
	db *database.DB
}

func NewGormStore(db *database.DB) *GormStore {
	return &GormStore{db: db}
}

// SaveParcel persists p, preserving the carrier code already on record for
// an existing parcel and falling back to its shipment's carrier for a new
// one. flow.go always creates the ShipmentRecord before its parcels, so the
// lookup succeeds on first save.
// SaveShipment and MarkShipmentClosed are not part of delivery.Store —
// the framework core has no notion of a shipment record, only flow.go's
// orchestration does — but GormStore implements them so flow.go can use
// them through a local optional interface.
func (s *GormStore) SaveShipment(ctx context.Context, shipment models.ShipmentRecord) error {
	return s.db.WithContext(ctx).Create(&shipment).Error
}

func (s *GormStore) MarkShipmentClosed(ctx context.Context, shipmentID string) error {
	return s.db.WithContext(ctx).Model(&models.ShipmentRecord{}).Where("id = ?", shipmentID).Update("closed", true).Error
}

func (s *GormStore) SaveParcel(ctx context.Context, p delivery.Parcel) error {
	carrierCode, err := s.carrierCodeForParcel(ctx, p.ID, p.ShipmentID)
	if err != nil {
		return err
	}
	record := models.ParcelRecordFromDomain(carrierCode, p)
	return s.db.WithContext(ctx).Save(&record).Error
}

func (s *GormStore) carrierCodeForParcel(ctx context.Context, parcelID, shipmentID string) (string, error) {
	var existing models.ParcelRecord
	err := s.db.WithContext(ctx).Select("carrier_code").First(&existing, "id = ?", parcelID).Error
	if err == nil {
		return existing.CarrierCode, nil
	}
	var shipment models.ShipmentRecord
	if err := s.db.WithContext(ctx).First(&shipment, "id = ?", shipmentID).Error; err != nil {
		return "", fmt.Errorf("delivery store: resolving carrier for shipment %q: %w", shipmentID, err)
	}
	return shipment.CarrierCode, nil
}

func (s *GormStore) UpdateParcelStatus(ctx context.Context, parcelID string, status delivery.ParcelStatus) error {
	return s.db.WithContext(ctx).Model(&models.ParcelRecord{}).Where("id = ?", parcelID).Update("status", status).Error
}

func (s *GormStore) GetParcel(ctx context.Context, parcelID string) (delivery.Parcel, error) {
	var record models.ParcelRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", parcelID).Error; err != nil {
		return delivery.Parcel{}, fmt.Errorf("delivery store: loading parcel %q: %w", parcelID, err)
	}
	return record.ToDomain(), nil
}

func (s *GormStore) ListParcelsByShipment(ctx context.Context, shipmentID string) ([]delivery.Parcel, error) {
	var records []models.ParcelRecord
	if err := s.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("delivery store: listing parcels for shipment %q: %w", shipmentID, err)
	}
	parcels := make([]delivery.Parcel, len(records))
	for i, r := range records {
		parcels[i] = r.ToDomain()
	}
	return parcels, nil
}

func (s *GormStore) SaveCarrierResource(ctx context.Context, r delivery.CarrierResource) error {
	record := models.CarrierResourceRecord{
		ParcelID:       r.ParcelID,
		CarrierID:      r.CarrierID,
		TrackingNumber: r.TrackingNumber,
		HTTPStatus:     r.HTTPStatus,
		Raw:            r.Raw,
	}
	return s.db.WithContext(ctx).
		Where("parcel_id = ?", r.ParcelID).
		Assign(record).
		FirstOrCreate(&record).Error
}

func (s *GormStore) GetCarrierResource(ctx context.Context, parcelID string) (delivery.CarrierResource, error) {
	var record models.CarrierResourceRecord
	if err := s.db.WithContext(ctx).First(&record, "parcel_id = ?", parcelID).Error; err != nil {
		return delivery.CarrierResource{}, fmt.Errorf("delivery store: loading carrier resource for parcel %q: %w", parcelID, err)
	}
	return delivery.CarrierResource{
		ParcelID:       record.ParcelID,
		CarrierID:      record.CarrierID,
		TrackingNumber: record.TrackingNumber,
		HTTPStatus:     record.HTTPStatus,
		Raw:            record.Raw,
	}, nil
}

func (s *GormStore) SaveLabelFile(ctx context.Context, l delivery.LabelFileResource) error {
	pageRangesJSON, err := json.Marshal(l.PageRanges)
	if err != nil {
		return fmt.Errorf("delivery store: marshaling page ranges: %w", err)
	}
	record := models.LabelFileRecord{
		ID:           l.ID,
		ContentType:  l.ContentType,
		Data:         l.Data,
		ParcelIDsCSV: joinCSV(l.ParcelIDs),
		PageRanges:   datatypes.JSON(pageRangesJSON),
	}
	return s.db.WithContext(ctx).Save(&record).Error
}

func (s *GormStore) GetLabelFile(ctx context.Context, id string) (delivery.LabelFileResource, error) {
	var record models.LabelFileRecord
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return delivery.LabelFileResource{}, fmt.Errorf("delivery store: loading label file %q: %w", id, err)
	}
	var pageRanges map[string][2]int
	if err := json.Unmarshal(record.PageRanges, &pageRanges); err != nil {
		return delivery.LabelFileResource{}, fmt.Errorf("delivery store: decoding page ranges: %w", err)
	}
	return delivery.LabelFileResource{
		ID:          record.ID,
		ContentType: record.ContentType,
		Data:        record.Data,
		ParcelIDs:   splitCSV(record.ParcelIDsCSV),
		PageRanges:  pageRanges,
	}, nil
}

func (s *GormStore) AppendTrackingEvents(ctx context.Context, parcelID string, events []delivery.TrackingEvent) error {
	if len(events) == 0 {
		return nil
	}
	var maxSeq int
	s.db.WithContext(ctx).Model(&models.TrackingEventRecord{}).Where("parcel_id = ?", parcelID).Select("COALESCE(MAX(seq_no), 0)").Scan(&maxSeq)

	records := make([]models.TrackingEventRecord, len(events))
	for i, e := range events {
		records[i] = models.TrackingEventRecord{
			ParcelID:    parcelID,
			Timestamp:   e.Timestamp,
			Status:      string(e.Status),
			CarrierCode: e.CarrierCode,
			Description: e.Description,
			Location:    e.Location,
			SeqNo:       maxSeq + i + 1,
		}
	}
	return s.db.WithContext(ctx).Create(&records).Error
}

func (s *GormStore) ListTrackingEvents(ctx context.Context, parcelID string) ([]delivery.TrackingEvent, error) {
	var records []models.TrackingEventRecord
	if err := s.db.WithContext(ctx).Where("parcel_id = ?", parcelID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("delivery store: listing tracking events for parcel %q: %w", parcelID, err)
	}
	// Ordering ties (equal timestamps) break by insertion order, tracked via
	// SeqNo rather than relying on timestamp precision alone.
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].SeqNo < records[j].SeqNo
		}
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	events := make([]delivery.TrackingEvent, len(records))
	for i, r := range records {
		events[i] = delivery.TrackingEvent{
			Timestamp:   r.Timestamp,
			Status:      delivery.TrackingStatus(r.Status),
			CarrierCode: r.CarrierCode,
			Description: r.Description,
			Location:    r.Location,
		}
	}
	return events, nil
}

func joinCSV(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += it
	}
	return out
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}
