package person

import "time"

const DateLayout = "2006-01-02"

// Person is a profile record kept by signed-in users.
type Person struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Birthdate     *time.Time `json:"birthdate,omitempty"`
	Description   string     `json:"description,omitempty"`
	ImageFilename string     `json:"image_filename,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Event is a dated entry on a person's timeline.
type Event struct {
	ID          int64     `json:"id"`
	PersonID    int64     `json:"person_id"`
	Title       string    `json:"title"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
