package specification

import (
	"knowledge-chat-be/internal/repository/scope"

	"gorm.io/gorm"
)

// ByConvID filters chat events by conversation
type ByConvID struct {
	ConvID int64
}

func (s ByConvID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conv_id = ?", s.ConvID)
}

type ByEventType struct {
	Type string
}

func (s ByEventType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("type = ?", s.Type)
}

// Newest orders by creation time, latest first
type Newest struct{}

func (s Newest) Apply(db *gorm.DB) *gorm.DB {
	return scope.OrderByCreatedDesc(db)
}
