package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ResourceGrant records course access granted by a captured order.
type ResourceGrant struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID  uuid.UUID  `json:"course_id" gorm:"type:uuid;not null;uniqueIndex:idx_grant_course_user"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_grant_course_user"`
	OrderID   int64      `json:"order_id" gorm:"not null;index"`
	GrantedAt time.Time  `json:"granted_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// TableName returns the table name for ResourceGrant.
func (ResourceGrant) TableName() string {
	return "resource_grants"
}

// IsActive reports whether the grant is in effect.
func (g *ResourceGrant) IsActive() bool {
	return g.RevokedAt == nil
}

// ReconciliationIncident records a gateway-approved mutation whose local
// commit failed.
type ReconciliationIncident struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID        int64          `json:"order_id" gorm:"not null;index"`
	RefundID       int64          `json:"refund_id,omitempty"`
	Action         string         `json:"action" gorm:"not null"`
	Gateway        string         `json:"gateway" gorm:"not null"`
	GatewayTransID string         `json:"gateway_trans_id"`
	Amount         int64          `json:"amount"`
	Error          string         `json:"error" gorm:"type:text"`
	GatewayFields  pq.StringArray `json:"gateway_fields" gorm:"type:text[]"`
	RequestID      string         `json:"request_id,omitempty" gorm:"size:128"`
	ActorID        uuid.UUID      `json:"actor_id,omitempty" gorm:"type:uuid"`
	CreatedAt      time.Time      `json:"created_at"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}

// TableName returns the table name for ReconciliationIncident.
func (ReconciliationIncident) TableName() string {
	return "reconciliation_incidents"
}
