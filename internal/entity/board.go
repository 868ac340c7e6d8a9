package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BoardCategory decides the wording of reply notifications. Values come from
// upstream data, so a Board may carry a category outside the known set.
type BoardCategory string

const (
	CategoryQuestion    BoardCategory = "QUESTION"
	CategoryInspiration BoardCategory = "INSPIRATION"
	CategoryCoworking   BoardCategory = "COWORKING"
)

func (c BoardCategory) Valid() bool {
	switch c {
	case CategoryQuestion, CategoryInspiration, CategoryCoworking:
		return true
	}
	return false
}

type Board struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	WriterID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"writer_id"`
	Writer    User          `gorm:"foreignKey:WriterID;constraint:OnDelete:CASCADE" json:"writer,omitempty"`
	Category  BoardCategory `gorm:"size:30;not null" json:"category"`
	Title     string        `gorm:"size:255;not null" json:"title"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (b *Board) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID, err = uuid.NewV7()
	}
	return
}

type Reply struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BoardID   uuid.UUID `gorm:"type:uuid;not null;index" json:"board_id"`
	Board     Board     `gorm:"constraint:OnDelete:CASCADE" json:"board,omitempty"`
	WriterID  uuid.UUID `gorm:"type:uuid;not null" json:"writer_id"`
	Writer    User      `gorm:"foreignKey:WriterID;constraint:OnDelete:CASCADE" json:"writer,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Reply) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
