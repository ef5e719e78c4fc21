package models

import "time"

// Alert is a stored request to be emailed once tickets for a train/route/date show up.
type Alert struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	TrainNumber string    `json:"trainNumber"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	LastChecked time.Time `json:"lastChecked"`
	// Notified is set once an email went out for the current availability state.
	Notified bool `json:"notified"`
}

// AlertInput is the body of a create request.
type AlertInput struct {
	Email       string `json:"email" binding:"required,email"`
	TrainNumber string `json:"trainNumber" binding:"required"`
	From        string `json:"from" binding:"required"`
	To          string `json:"to" binding:"required"`
	Date        string `json:"date" binding:"required,len=8,numeric"`
}

// CheckReport summarises one check cycle.
type CheckReport struct {
	Due      int `json:"due"`
	Checked  int `json:"checked"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}
