package api

import "time"

// Loan is a loan as returned by GET /api/v1/loans/{id}.
type Loan struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	ProductType       string    `json:"productType"`
	Principal         float64   `json:"principal"`
	OutstandingAmount float64   `json:"outstandingAmount"`
	InterestRate      float64   `json:"interestRate"`
	TermMonths        int       `json:"termMonths"`
	NextPaymentAmount float64   `json:"nextPaymentAmount"`
	NextPaymentDate   time.Time `json:"nextPaymentDate"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
