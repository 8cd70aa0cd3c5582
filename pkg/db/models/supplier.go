package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// Supplier provides ingredients under fixed lead time and payment terms.
type Supplier struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Name             string                 `gorm:"column:name;not null"`
	ContactName      string                 `gorm:"column:contact_name"`
	Email            string                 `gorm:"column:email"`
	Phone            string                 `gorm:"column:phone"`
	LeadTimeDays     int                    `gorm:"column:lead_time_days;not null"`
	PaymentTermsType enums.PaymentTermsType `gorm:"column:payment_terms_type;type:text;not null"`
	PaymentTermsDays int                    `gorm:"column:payment_terms_days;not null"`
	Active           bool                   `gorm:"column:active;not null"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
