package person

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CreatePerson(ctx context.Context, p *Person) error
	ListPersons(ctx context.Context) ([]Person, error)
	GetPerson(ctx context.Context, id int64) (*Person, error)
	CreateEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, personID int64) ([]Event, error)
}

type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func Models() []any {
	return []any{&personModel{}, &eventModel{}}
}

type personModel struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	Name          string     `gorm:"column:name;size:200;not null"`
	Birthdate     *time.Time `gorm:"column:birthdate"`
	Description   string     `gorm:"column:description"`
	ImageFilename string     `gorm:"column:image_filename;size:255"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (personModel) TableName() string { return "persons" }

type eventModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	PersonID    int64     `gorm:"column:person_id;not null;index"`
	Title       string    `gorm:"column:title;size:200;not null"`
	Date        time.Time `gorm:"column:date;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (eventModel) TableName() string { return "events" }

func (r *GormRepository) CreatePerson(ctx context.Context, p *Person) error {
	m := personModel{
		Name:          p.Name,
		Birthdate:     p.Birthdate,
		Description:   p.Description,
		ImageFilename: p.ImageFilename,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	p.ID = m.ID
	p.CreatedAt = m.CreatedAt
	return nil
}

func (r *GormRepository) ListPersons(ctx context.Context) ([]Person, error) {
	var rows []personModel
	if err := r.db.WithContext(ctx).Order("name, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Person, 0, len(rows))
	for _, m := range rows {
		out = append(out, toPerson(m))
	}
	return out, nil
}

func (r *GormRepository) GetPerson(ctx context.Context, id int64) (*Person, error) {
	var m personModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}
	p := toPerson(m)
	return &p, nil
}

func (r *GormRepository) CreateEvent(ctx context.Context, e *Event) error {
	m := eventModel{
		PersonID:    e.PersonID,
		Title:       e.Title,
		Date:        e.Date,
		Description: e.Description,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	e.ID = m.ID
	e.CreatedAt = m.CreatedAt
	return nil
}

func (r *GormRepository) ListEvents(ctx context.Context, personID int64) ([]Event, error) {
	var rows []eventModel
	err := r.db.WithContext(ctx).
		Where("person_id = ?", personID).
		Order("date, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, m := range rows {
		out = append(out, Event{
			ID:          m.ID,
			PersonID:    m.PersonID,
			Title:       m.Title,
			Date:        m.Date,
			Description: m.Description,
			CreatedAt:   m.CreatedAt,
		})
	}
	return out, nil
}

func toPerson(m personModel) Person {
	return Person{
		ID:            m.ID,
		Name:          m.Name,
		Birthdate:     m.Birthdate,
		Description:   m.Description,
		ImageFilename: m.ImageFilename,
		CreatedAt:     m.CreatedAt,
	}
}
