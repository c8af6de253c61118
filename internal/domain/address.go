package domain

type Address struct {
	ID           string `json:"_id"`
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	Pincode      string `json:"pincode"`
	State        string `json:"state"`
	City         string `json:"city"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	Landmark     string `json:"landmark,omitempty"`
}
