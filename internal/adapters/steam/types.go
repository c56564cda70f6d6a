package steam

// types.go — DTOs crudos del Community Market. Se tratan como opacos:
// la normalización a domain vive en mapping.go.

type searchResponse struct {
	Success    bool         `json:"success"`
	Start      int          `json:"start"`
	PageSize   int          `json:"pagesize"`
	TotalCount int          `json:"total_count"`
	Results    []rawListing `json:"results"`
}

type rawListing struct {
	Name         string `json:"name"`
	HashName     string `json:"hash_name"`
	SellListings int    `json:"sell_listings"`
	SellPrice    int64  `json:"sell_price"` // céntimos
	AppName      string `json:"app_name"`

	AssetDescription struct {
		ClassID    string `json:"classid"`
		InstanceID string `json:"instanceid"`
		Type       string `json:"type"`
		Marketable int    `json:"marketable"`
	} `json:"asset_description"`
}

type priceHistoryResponse struct {
	Success bool `json:"success"`
	// Cada punto es [fecha, precio medio, unidades vendidas]:
	// ["Jun 01 2025 01: +0", 1234.5, "57"]
	Prices [][3]any `json:"prices"`
}
