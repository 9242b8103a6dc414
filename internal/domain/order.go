package domain

import "strings"

// PaymentCashOnDelivery is the only payment method the storefront offers. It
// is passed to the backend as-is.
const PaymentCashOnDelivery = "cash_on_delivery"

type ShippingInfo struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// MissingFields lists the required fields that are blank.
func (s ShippingInfo) MissingFields() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"firstName", s.FirstName},
		{"lastName", s.LastName},
		{"phone", s.Phone},
		{"address", s.Address},
		{"city", s.City},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type OrderRequest struct {
	ShippingInfo  ShippingInfo `json:"shippingInfo"`
	PaymentMethod string       `json:"paymentMethod"`
}

type Order struct {
	ID          string  `json:"_id"`
	Status      string  `json:"status,omitempty"`
	TotalAmount float64 `json:"totalAmount,omitempty"`
}
