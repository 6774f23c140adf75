// Package domain defines the place record, its metadata layout in the vector
// store, and the validation gate used by the loader and the API.
package domain

// Metadata keys written to the vector store for every place.
const (
	KeyName        = "name"
	KeyCategory    = "category"
	KeyAddress     = "address"
	KeyPhone       = "phone"
	KeyCity        = "city"
	KeyTown        = "town"
	KeyCreatedAt   = "created_at"
	KeyFileName    = "file_name"
	KeyDisplayName = "display_name"
)

// Place is one row of the tourist-site dataset.
type Place struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	City        string `json:"city"`
	Town        string `json:"town"`
	CreatedAt   int64  `json:"created_at"`
	Description string `json:"description"`
	FileName    string `json:"file_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Metadata returns the structured fields stored next to the embedding.
// The description is not included; it is stored as the document body.
func (p Place) Metadata() map[string]any {
	meta := map[string]any{
		KeyName:      p.Name,
		KeyCategory:  p.Category,
		KeyAddress:   p.Address,
		KeyPhone:     p.Phone,
		KeyCity:      p.City,
		KeyTown:      p.Town,
		KeyCreatedAt: p.CreatedAt,
	}
	if p.FileName != "" {
		meta[KeyFileName] = p.FileName
	}
	if p.DisplayName != "" {
		meta[KeyDisplayName] = p.DisplayName
	}
	return meta
}
