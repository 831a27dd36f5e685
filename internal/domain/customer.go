package domain

// Customer is copied into the order at checkout; later profile edits do not touch it.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type Driver struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Vehicle string  `json:"vehicle,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
}

type GeoPoint struct {
	Lat     float64       `json:"lat"`
	Lng     float64       `json:"lng"`
	Address LocalizedText `json:"address"`
}

// LocalizedText carries an English and a Nepali rendering of the same message.
type LocalizedText struct {
	EN string `json:"en"`
	NE string `json:"ne"`
}

func (t LocalizedText) IsZero() bool {
	return t.EN == "" && t.NE == ""
}
