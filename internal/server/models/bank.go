package models

import "time"

// BankAccount is one row of a candidate's bank statement upload.
type BankAccount struct {
	CandidateID   string
	Bank          string
	AccountNumber string
	OpenDate      *time.Time
	CloseDate     *time.Time
	AccountType   string
	Status        string
}
