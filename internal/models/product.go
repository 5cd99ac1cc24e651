package models

import "fmt"

// Sentinel values stand in for fields that could not be resolved.
const (
	NameNotFound  = "Unnamed Product"
	PriceNotFound = "Price not found"
	ImageNotFound = "Image not found"

	urlIDPrefix   = "url-"
	errorIDPrefix = "error-"
)

// PreliminaryRecord is what the listing page yields for one product container.
// PagePosition is the 1-based document-order index of the container.
type PreliminaryRecord struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	ImageURL     string `json:"image_url"`
	Price        string `json:"price"`
	PagePosition int    `json:"page_position"`
}

// FinalRecord is a PreliminaryRecord plus the identifier recovered from the detail page.
type FinalRecord struct {
	PreliminaryRecord
	ID string `json:"id"`
}

func UnnamedProduct(position int) string {
	return fmt.Sprintf("%s %d", NameNotFound, position)
}

// URLFallbackID marks an identifier derived from the product URL rather than the page.
func URLFallbackID(segment string) string {
	return urlIDPrefix + segment
}

// ErrorID marks a record whose detail visit failed.
func ErrorID(position int) string {
	return fmt.Sprintf("%s%d", errorIDPrefix, position)
}

// Finalize builds the output record for p with the given identifier.
func (p PreliminaryRecord) Finalize(id string) FinalRecord {
	return FinalRecord{PreliminaryRecord: p, ID: id}
}

// Columns is the fixed export column order.
var Columns = []string{"name", "id", "url", "image_url", "price"}

// Row renders the record in Columns order.
func (r FinalRecord) Row() []string {
	return []string{r.Name, r.ID, r.URL, r.ImageURL, r.Price}
}
