package dto

type CreatePaymentProfileRequest struct {
	Name          string `json:"name"           validate:"required,min=2,max=60"`
	BankID        string `json:"bank_id"        validate:"required,numeric,len=6"`
	BankName      string `json:"bank_name"      validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=19"`
	AccountHolder string `json:"account_holder" validate:"required,max=50"`
}

type PaymentProfileResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BankID        string `json:"bank_id"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
	Active        bool   `json:"active"`
}
