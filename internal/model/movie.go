package model

// Movie is a catalog entry that shows are scheduled for.  Presentation
// fields (poster link, casts) are stored verbatim; the booking core only
// ever references a movie by ID.
type Movie struct {
	ID          uint64 `json:"id"`           // movies.id
	Title       string `json:"title"`        // movies.title
	Description string `json:"description"`  // movies.description
	Genre       string `json:"genre"`        // movies.genre
	Casts       string `json:"casts"`        // movies.casts
	ReleaseDate string `json:"release_date"` // movies.release_date (YYYY-MM-DD)
	ImageLink   string `json:"image_link"`   // movies.image_link
}
