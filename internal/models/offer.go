package models

import "github.com/shopspring/decimal"

type Ticket struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type BestOffers struct {
	BE *Ticket `json:"be,omitempty"`
	LE *Ticket `json:"le,omitempty"`
	SE *Ticket `json:"se,omitempty"`
}

// Offer is one entry of the NightJet offers feed.
type Offer struct {
	Departure  string     `json:"departure"`
	Arrival    string     `json:"arrival"`
	BestOffers BestOffers `json:"bestOffers"`
}

// HasTickets reports whether at least one ticket class is on sale.
func (o *Offer) HasTickets() bool {
	if o == nil {
		return false
	}
	return o.BestOffers.BE != nil || o.BestOffers.LE != nil || o.BestOffers.SE != nil
}

// OfferQuery identifies one train connection on one departure day.
type OfferQuery struct {
	TrainNumber     string
	From            string
	To              string
	DepartureMillis int64
}
