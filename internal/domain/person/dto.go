package person

type CreatePersonRequest struct {
	Name        string `form:"name" json:"name" binding:"required"`
	Birthdate   string `form:"birthdate" json:"birthdate"`
	Description string `form:"description" json:"description"`
}

type CreateEventRequest struct {
	Title       string `form:"title" json:"title" binding:"required"`
	Date        string `form:"date" json:"date" binding:"required"`
	Description string `form:"description" json:"description"`
}

type PersonResponse struct {
	Person
	ImageURL string `json:"image_url,omitempty"`
}

type PersonDetailsResponse struct {
	PersonResponse
	Events []Event `json:"events"`
}
