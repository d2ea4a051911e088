package person

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"vivwendy/internal/pkg/validator"
)

// ImageStore persists uploaded photos and maps stored names to URLs.
type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	URL(filename string) string
}

// Image is an optional photo attached to a new person.
type Image struct {
	Filename string
	Content  io.Reader
}

type CreatePersonInput struct {
	Name        string `validate:"required,max=200"`
	Birthdate   string `validate:"omitempty,datetime=2006-01-02"`
	Description string `validate:"max=5000"`
}

type CreateEventInput struct {
	Title       string `validate:"required,max=200"`
	Date        string `validate:"required,datetime=2006-01-02"`
	Description string `validate:"max=5000"`
}

// PersonDetails is a person together with its timeline.
type PersonDetails struct {
	Person
	Events []Event `json:"events"`
}

type Service struct {
	repo   Repository
	images ImageStore
	log    *zap.Logger
}

func NewService(repo Repository, images ImageStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, images: images, log: log}
}

func (s *Service) CreatePerson(ctx context.Context, in CreatePersonInput, img *Image) (*Person, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Birthdate = strings.TrimSpace(in.Birthdate)
	if fields := validator.Validate(&in); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	p := &Person{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
	}
	if in.Birthdate != "" {
		d, err := time.Parse(DateLayout, in.Birthdate)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"Birthdate": "datetime"}}
		}
		p.Birthdate = &d
	}

	if img != nil && img.Content != nil && s.images != nil {
		name, err := s.images.Save(ctx, img.Filename, img.Content)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		p.ImageFilename = name
	}

	if err := s.repo.CreatePerson(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("person created", zap.Int64("person_id", p.ID), zap.Bool("has_image", p.ImageFilename != ""))
	return p, nil
}

func (s *Service) ListPersons(ctx context.Context) ([]Person, error) {
	return s.repo.ListPersons(ctx)
}

func (s *Service) GetPerson(ctx context.Context, id int64) (*PersonDetails, error) {
	p, err := s.repo.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PersonDetails{Person: *p, Events: events}, nil
}

func (s *Service) CreateEvent(ctx context.Context, personID int64, in CreateEventInput) (*Event, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Date = strings.TrimSpace(in.Date)
	if fields := validator.Validate(&in); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	if _, err := s.repo.GetPerson(ctx, personID); err != nil {
		return nil, err
	}

	date, err := time.Parse(DateLayout, in.Date)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"Date": "datetime"}}
	}

	e := &Event{
		PersonID:    personID,
		Title:       in.Title,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.repo.CreateEvent(ctx, e); err != nil {
		return nil, err
	}

	s.log.Info("event created", zap.Int64("person_id", personID), zap.Int64("event_id", e.ID))
	return e, nil
}

// ImageURL returns the public path of a stored photo, or "".
func (s *Service) ImageURL(filename string) string {
	if filename == "" || s.images == nil {
		return ""
	}
	return s.images.URL(filename)
}
