// Package modality enumerates the search input methods.
package modality

// Modality is the search input method.
type Modality string

// Search modalities.
const (
	// Text search yields both products and reviews.
	Text Modality = "text"
	// Visual search yields products only and forces the products tab.
	Visual Modality = "visual"
	// Voice search yields both collections plus a derived filter state.
	Voice Modality = "voice"
)

// IsValid checks if the modality is one of the supported values.
func (m Modality) IsValid() bool {
	return m == Text || m == Visual || m == Voice
}

// HasReviews reports whether the modality carries a reviews collection.
func (m Modality) HasReviews() bool {
	return m != Visual
}
