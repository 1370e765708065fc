package models

import (
	"errors"
	"time"
)

// TourCategory classifies a tour for commission purposes
type TourCategory string

const (
	TourCategoryPremium   TourCategory = "premium"
	TourCategoryAdventure TourCategory = "adventure"
	TourCategoryCultural  TourCategory = "cultural"
	TourCategoryNature    TourCategory = "nature"
	TourCategoryDefault   TourCategory = "default"
)

// IsValid reports whether the category is a known one
func (c TourCategory) IsValid() bool {
	switch c {
	case TourCategoryPremium, TourCategoryAdventure, TourCategoryCultural, TourCategoryNature, TourCategoryDefault:
		return true
	}
	return false
}

// Tour represents a bookable tour product offered by an operator
type Tour struct {
	ID              string       `json:"id" db:"id"`
	OperatorID      string       `json:"operator_id" db:"operator_id"`
	Name            string       `json:"name" db:"name"`
	Description     *string      `json:"description,omitempty" db:"description"`
	Department      string       `json:"department" db:"department"`
	Category        TourCategory `json:"category" db:"category"`
	PricePerPerson  float64      `json:"price_per_person" db:"price_per_person"`
	Currency        string       `json:"currency" db:"currency"`
	MinParticipants int          `json:"min_participants" db:"min_participants"`
	MaxParticipants int          `json:"max_participants" db:"max_participants"`
	IsActive        bool         `json:"is_active" db:"is_active"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// CreateTourRequest represents the request to create a tour
type CreateTourRequest struct {
	Name            string  `json:"name" binding:"required"`
	Description     *string `json:"description,omitempty"`
	Department      string  `json:"department" binding:"required"`
	Category        string  `json:"category" binding:"required"`
	PricePerPerson  float64 `json:"price_per_person" binding:"required,gt=0"`
	Currency        string  `json:"currency,omitempty"`
	MinParticipants int     `json:"min_participants,omitempty"`
	MaxParticipants int     `json:"max_participants,omitempty"`
}

// Validate validates the create tour request
func (r *CreateTourRequest) Validate() error {
	if !TourCategory(r.Category).IsValid() {
		return errors.New("category must be one of: premium, adventure, cultural, nature, default")
	}

	if r.MinParticipants < 0 || r.MaxParticipants < 0 {
		return errors.New("participant limits cannot be negative")
	}

	if r.MaxParticipants > 0 && r.MinParticipants > r.MaxParticipants {
		return errors.New("min_participants cannot exceed max_participants")
	}

	return nil
}
