package dto

type SupplierResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SupplierRefreshResponse struct {
	Count int `json:"count"`
}
