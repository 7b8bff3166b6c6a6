package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Money goes over the wire as JSON numbers, matching the public API.
	decimal.MarshalJSONWithoutQuotes = true
}

// MoneyScale is the number of decimal places money columns store.
const MoneyScale = 2

// HasMoneyPrecision reports whether d fits a money column without rounding.
func HasMoneyPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

type IPOStatus string

const (
	IPOStatusUpcoming IPOStatus = "upcoming"
	IPOStatusActive   IPOStatus = "active"
	IPOStatusClosed   IPOStatus = "closed"
	IPOStatusListed   IPOStatus = "listed"
)

// IsValid reports whether s is one of the known IPO statuses.
func (s IPOStatus) IsValid() bool {
	switch s {
	case IPOStatusUpcoming, IPOStatusActive, IPOStatusClosed, IPOStatusListed:
		return true
	}
	return false
}

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

type IPO struct {
	// Primary identification
	ID          uuid.UUID `json:"id"`
	CompanyName string    `json:"companyName"`
	Symbol      string    `json:"symbol"`

	// Pricing
	PriceRange    PriceRange      `json:"priceRange"`
	LotSize       int             `json:"lotSize"`
	TotalShares   int64           `json:"totalShares"`
	MinInvestment decimal.Decimal `json:"minInvestment"`

	// Dates
	OpenDate    time.Time  `json:"openDate"`
	CloseDate   time.Time  `json:"closeDate"`
	ListingDate *time.Time `json:"listingDate,omitempty"`

	Status      IPOStatus `json:"status"`
	Description *string   `json:"description,omitempty"`
	Sector      *string   `json:"sector,omitempty"`

	// Audit fields
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Normalize applies write-time defaults: upper-cased symbol, trimmed name
// and the upcoming status when none was given.
func (i *IPO) Normalize() {
	i.Symbol = strings.ToUpper(strings.TrimSpace(i.Symbol))
	i.CompanyName = strings.TrimSpace(i.CompanyName)
	if i.Status == "" {
		i.Status = IPOStatusUpcoming
	}
}

// IPOPatch carries a partial update. Nil fields are left untouched.
type IPOPatch struct {
	CompanyName   *string          `json:"companyName" validate:"omitempty,min=1,max=255"`
	Symbol        *string          `json:"symbol" validate:"omitempty,min=1,max=20"`
	PriceRange    *PriceRange      `json:"priceRange"`
	LotSize       *int             `json:"lotSize" validate:"omitempty,gt=0"`
	TotalShares   *int64           `json:"totalShares" validate:"omitempty,gt=0"`
	MinInvestment *decimal.Decimal `json:"minInvestment"`
	OpenDate      *time.Time       `json:"openDate"`
	CloseDate     *time.Time       `json:"closeDate"`
	ListingDate   *time.Time       `json:"listingDate"`
	Status        *IPOStatus       `json:"status"`
	Description   *string          `json:"description"`
	Sector        *string          `json:"sector"`
}

// Apply copies every non-nil patch field onto ipo.
func (p IPOPatch) Apply(ipo *IPO) {
	if p.CompanyName != nil {
		ipo.CompanyName = *p.CompanyName
	}
	if p.Symbol != nil {
		ipo.Symbol = *p.Symbol
	}
	if p.PriceRange != nil {
		ipo.PriceRange = *p.PriceRange
	}
	if p.LotSize != nil {
		ipo.LotSize = *p.LotSize
	}
	if p.TotalShares != nil {
		ipo.TotalShares = *p.TotalShares
	}
	if p.MinInvestment != nil {
		ipo.MinInvestment = *p.MinInvestment
	}
	if p.OpenDate != nil {
		ipo.OpenDate = *p.OpenDate
	}
	if p.CloseDate != nil {
		ipo.CloseDate = *p.CloseDate
	}
	if p.ListingDate != nil {
		ipo.ListingDate = p.ListingDate
	}
	if p.Status != nil {
		ipo.Status = *p.Status
	}
	if p.Description != nil {
		ipo.Description = p.Description
	}
	if p.Sector != nil {
		ipo.Sector = p.Sector
	}
}

// IPOSummary is the subset of an IPO embedded in application responses.
type IPOSummary struct {
	ID          uuid.UUID   `json:"id"`
	CompanyName string      `json:"companyName"`
	Symbol      string      `json:"symbol"`
	Status      IPOStatus   `json:"status,omitempty"`
	PriceRange  *PriceRange `json:"priceRange,omitempty"`
}

// IPOFilter selects IPOs for listing.
type IPOFilter struct {
	Status IPOStatus
	Search string
	PageRequest
}

// UpsertResult reports what a bulk upsert changed.
type UpsertResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}
