package pexels

// searchResponse is the Pexels photo search payload.
type searchResponse struct {
	TotalResults int        `json:"total_results"`
	Page         int        `json:"page"`
	PerPage      int        `json:"per_page"`
	Photos       []apiPhoto `json:"photos"`
}

// apiPhoto represents a single photo in a search response.
type apiPhoto struct {
	ID           int    `json:"id"`
	URL          string `json:"url"`
	Photographer string `json:"photographer"`
	Alt          string `json:"alt"`
	Src          apiSrc `json:"src"`
}

// apiSrc holds the CDN URLs for each rendered size.
type apiSrc struct {
	Original string `json:"original"`
	Large2x  string `json:"large2x"`
	Large    string `json:"large"`
	Medium   string `json:"medium"`
	Small    string `json:"small"`
}
