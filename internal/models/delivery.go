package models

import (
	"time"

	"github.com/shipfabric/shipfabric/internal/delivery"
	"gorm.io/datatypes"
)

// ShipmentRecord groups one or more ParcelRecords created together, the
// persistence counterpart of a CLOSE_SHIPMENT target.
type ShipmentRecord struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	CarrierCode string    `gorm:"index;not null" json:"carrierCode"`
	Closed      bool      `gorm:"default:false" json:"closed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (ShipmentRecord) TableName() string { return "shipments" }

// ParcelRecord is the persisted form of delivery.Parcel.
type ParcelRecord struct {
	ID            string                `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ShipmentID    string                `gorm:"index;not null" json:"shipmentId"`
	CarrierCode   string                `gorm:"index;not null" json:"carrierCode"`
	Mode          delivery.DeliveryMode `gorm:"column:mode" json:"mode"`
	PickupPointID string                `json:"pickupPointId,omitempty"`
	WeightKG      float64               `json:"weightKg"`
	LengthCM      float64               `json:"lengthCm"`
	WidthCM       float64               `json:"widthCm"`
	HeightCM      float64               `json:"heightCm"`
	Reference     string                `gorm:"index" json:"reference"`
	CODAmount     float64               `json:"codAmount,omitempty"`
	CODCurrency   string                `json:"codCurrency,omitempty"`

	SenderName, SenderCompany, SenderStreet, SenderHouseNo, SenderCity, SenderZIP, SenderCountry, SenderPhone, SenderEmail string

	RecipientName, RecipientCompany, RecipientStreet, RecipientHouseNo, RecipientCity, RecipientZIP, RecipientCountry, RecipientPhone, RecipientEmail string

	Status         delivery.ParcelStatus `gorm:"index" json:"status"`
	CarrierID      string                `gorm:"index" json:"carrierId,omitempty"`
	TrackingNumber string                `gorm:"index" json:"trackingNumber,omitempty"`
	ErrorMessage   string                `gorm:"type:text" json:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ParcelRecord) TableName() string { return "parcels" }

func (r ParcelRecord) ToDomain() delivery.Parcel {
	p := delivery.Parcel{
		ID:            r.ID,
		ShipmentID:    r.ShipmentID,
		Mode:          r.Mode,
		PickupPointID: r.PickupPointID,
		WeightKG:      r.WeightKG,
		Dimensions:    delivery.Dimensions{LengthCM: r.LengthCM, WidthCM: r.WidthCM, HeightCM: r.HeightCM},
		Reference:     r.Reference,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Sender: delivery.Address{
			Name: r.SenderName, Company: r.SenderCompany, Street: r.SenderStreet, HouseNumber: r.SenderHouseNo,
			City: r.SenderCity, ZIPCode: r.SenderZIP, Country: r.SenderCountry, Phone: r.SenderPhone, Email: r.SenderEmail,
		},
		Recipient: delivery.Address{
			Name: r.RecipientName, Company: r.RecipientCompany, Street: r.RecipientStreet, HouseNumber: r.RecipientHouseNo,
			City: r.RecipientCity, ZIPCode: r.RecipientZIP, Country: r.RecipientCountry, Phone: r.RecipientPhone, Email: r.RecipientEmail,
		},
	}
	if r.CODCurrency != "" {
		p.COD = &delivery.Money{Amount: r.CODAmount, Currency: r.CODCurrency}
	}
	return p
}

func ParcelRecordFromDomain(carrierCode string, p delivery.Parcel) ParcelRecord {
	r := ParcelRecord{
		ID:            p.ID,
		ShipmentID:    p.ShipmentID,
		CarrierCode:   carrierCode,
		Mode:          p.Mode,
		PickupPointID: p.PickupPointID,
		WeightKG:      p.WeightKG,
		LengthCM:      p.Dimensions.LengthCM,
		WidthCM:       p.Dimensions.WidthCM,
		HeightCM:      p.Dimensions.HeightCM,
		Reference:     p.Reference,
		Status:        p.Status,
		SenderName:    p.Sender.Name, SenderCompany: p.Sender.Company, SenderStreet: p.Sender.Street, SenderHouseNo: p.Sender.HouseNumber,
		SenderCity: p.Sender.City, SenderZIP: p.Sender.ZIPCode, SenderCountry: p.Sender.Country, SenderPhone: p.Sender.Phone, SenderEmail: p.Sender.Email,
		RecipientName: p.Recipient.Name, RecipientCompany: p.Recipient.Company, RecipientStreet: p.Recipient.Street, RecipientHouseNo: p.Recipient.HouseNumber,
		RecipientCity: p.Recipient.City, RecipientZIP: p.Recipient.ZIPCode, RecipientCountry: p.Recipient.Country, RecipientPhone: p.Recipient.Phone, RecipientEmail: p.Recipient.Email,
	}
	if p.COD != nil {
		r.CODAmount = p.COD.Amount
		r.CODCurrency = p.COD.Currency
	}
	return r
}

// CarrierResourceRecord is the persisted form of delivery.CarrierResource.
type CarrierResourceRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ParcelID       string `gorm:"uniqueIndex;not null" json:"parcelId"`
	CarrierID      string `gorm:"index" json:"carrierId"`
	TrackingNumber string `gorm:"index" json:"trackingNumber"`
	HTTPStatus     int    `json:"httpStatus"`
	Raw            []byte `gorm:"type:bytea" json:"-"`
}

func (CarrierResourceRecord) TableName() string { return "carrier_resources" }

// LabelFileRecord is the persisted form of delivery.LabelFileResource.
type LabelFileRecord struct {
	ID           string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ContentType  string         `gorm:"column:content_type" json:"contentType"`
	Data         []byte         `gorm:"type:bytea" json:"-"`
	ParcelIDsCSV string         `gorm:"type:text" json:"-"`
	PageRanges   datatypes.JSON `gorm:"column:page_ranges;type:jsonb" json:"-"`
}

func (LabelFileRecord) TableName() string { return "label_files" }

// TrackingEventRecord is one persisted delivery.TrackingEvent row.
type TrackingEventRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ParcelID    string    `gorm:"index;not null" json:"parcelId"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	Status      string    `json:"status"`
	CarrierCode string    `json:"carrierCode"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `json:"location"`
	SeqNo       int       `json:"seqNo"`
}

func (TrackingEventRecord) TableName() string { return "tracking_events" }
