package mercadopago

// Raw gateway statuses. The reconciliation layer maps these to internal
// order statuses; anything not listed here maps to pending.
const (
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
	StatusPending   = "pending"
	StatusInProcess = "in_process"
)

// PaymentRequest is the charge creation payload.
type PaymentRequest struct {
	TransactionAmount float64 `json:"transaction_amount"` // Major currency units, 2-decimal
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	// Token is the pre-tokenized card reference, required for card charges.
	Token        string `json:"token,omitempty"`
	Installments int    `json:"installments,omitempty"`
	// ExternalReference is echoed back on the payment resource and in
	// webhook re-fetches; it is the reconciliation correlation key.
	ExternalReference string `json:"external_reference"`
	NotificationURL   string `json:"notification_url,omitempty"`
	Payer             Payer  `json:"payer"`
}

// Payer identifies the buyer.
type Payer struct {
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name,omitempty"`
	LastName       string          `json:"last_name,omitempty"`
	Identification *Identification `json:"identification,omitempty"`
}

// Identification is the buyer's tax document (CPF/CNPJ).
type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// Payment is the gateway's payment resource, returned from both the charge
// creation call and the status fetch.
type Payment struct {
	ID                 int64               `json:"id"`
	Status             string              `json:"status"`
	StatusDetail       string              `json:"status_detail,omitempty"`
	TransactionAmount  float64             `json:"transaction_amount"`
	ExternalReference  string              `json:"external_reference"`
	PaymentMethodID    string              `json:"payment_method_id,omitempty"`
	PointOfInteraction *PointOfInteraction `json:"point_of_interaction,omitempty"`
}

// PointOfInteraction carries the PIX payload on pix charges.
type PointOfInteraction struct {
	TransactionData *TransactionData `json:"transaction_data,omitempty"`
}

// TransactionData holds the PIX QR code and copy-paste payload.
type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url"`
}

// apiErrorBody is the gateway's error response shape.
type apiErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}
