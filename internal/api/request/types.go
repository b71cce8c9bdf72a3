package request

// SubmitFields are the identity fields of a check-in submission
type SubmitFields struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	LastName string `json:"lastname" validate:"required,max=100"`
}

// SubmitRequest is the request body for POST /identity/submit
type SubmitRequest struct {
	Fields SubmitFields `json:"fields"`
}

// UpdateKeyRequest is the request body for POST /identity/update-key
type UpdateKeyRequest struct {
	RecordID string `json:"recordId" validate:"required,max=128"`
	KeyField string `json:"keyField" validate:"required"`
	// Status defaults to scanned
	Status string `json:"status"`
}

// RedeemRequest is the request body for POST /identity/redeem
type RedeemRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// CollectKeyRequest is the request body for POST /session/{id}/collect-key
type CollectKeyRequest struct {
	KeyName    string `json:"keyName" validate:"required,max=64"`
	TargetType string `json:"targetType" validate:"max=64"`
	Method     string `json:"method" validate:"max=64"`
}

// InteractionRequest is the request body for POST /session/{id}/interaction
type InteractionRequest struct {
	Type string         `json:"type" validate:"required,max=64"`
	Data map[string]any `json:"data"`
}
