package catalog

import "encoding/json"

// Upstream payloads are loosely typed: ids arrive as strings or numbers,
// prices as numbers, bounds or display strings, categories as plain
// strings or embedded objects. DTOs absorb that variance; normalize.go
// turns them into domain values.

type productListResponse struct {
	Products []productDTO `json:"products"`
	Total    int          `json:"total"`
}

type reviewListResponse struct {
	Reviews []reviewDTO `json:"reviews"`
	Total   int         `json:"total"`
}

type categoryListResponse struct {
	Categories []categoryDTO `json:"categories"`
}

type suggestionListResponse struct {
	Suggestions []string `json:"suggestions"`
}

type productDTO struct {
	ID            flexString      `json:"id"`
	Name          string          `json:"name"`
	Brand         string          `json:"brand"`
	Category      json.RawMessage `json:"category"`
	CategoryID    flexString      `json:"category_id"`
	CategorySlug  string          `json:"category_slug"`
	Price         json.RawMessage `json:"price"`
	PriceMin      *float64        `json:"price_min"`
	PriceMax      *float64        `json:"price_max"`
	AverageRating float64         `json:"average_rating"`
	Rating        float64         `json:"rating"`
	ReviewCount   int             `json:"review_count"`
	Description   string          `json:"description"`
	ImageURL      string          `json:"image_url"`
	CreatedAt     string          `json:"created_at"`
}

type reviewDTO struct {
	ID           flexString `json:"id"`
	Rating       float64    `json:"rating"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Comment      string     `json:"comment"`
	CreatedAt    string     `json:"created_at"`
	ProductID    flexString `json:"product_id"`
	ProductName  string     `json:"product_name"`
	ProductBrand string     `json:"product_brand"`
	Verified     bool       `json:"verified_purchase"`
	HasImages    bool       `json:"has_images"`
	Images       []string   `json:"images"`
}

type categoryDTO struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
	Slug string     `json:"slug"`
}

// flexString accepts JSON strings and numbers alike.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

// categoryObject is the embedded form of a product category.
type categoryObject struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
	Slug string     `json:"slug"`
}