package entity

// Modality is the embedding space a piece of content lives in.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
)

func (m Modality) Valid() bool {
	return m == ModalityText || m == ModalityImage
}

func (m Modality) String() string {
	return string(m)
}
