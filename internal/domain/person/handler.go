package person

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vivwendy/internal/domain/upload"
	"vivwendy/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListPersons(c *gin.Context) {
	persons, err := h.service.ListPersons(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]PersonResponse, 0, len(persons))
	for _, p := range persons {
		out = append(out, h.toResponse(p))
	}
	response.Success(c, http.StatusOK, gin.H{"persons": out, "total": len(out)})
}

// CreatePerson accepts multipart form data with an optional "image" file.
func (h *Handler) CreatePerson(c *gin.Context) {
	var req CreatePersonRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name is required")
		return
	}

	var img *Image
	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file")
			return
		}
		defer f.Close()
		img = &Image{Filename: fh.Filename, Content: f}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		response.Error(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file")
		return
	}

	p, err := h.service.CreatePerson(c.Request.Context(), CreatePersonInput{
		Name:        req.Name,
		Birthdate:   req.Birthdate,
		Description: req.Description,
	}, img)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"person": h.toResponse(*p)})
}

func (h *Handler) GetPerson(c *gin.Context) {
	id, ok := personIDParam(c)
	if !ok {
		return
	}

	details, err := h.service.GetPerson(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"person": PersonDetailsResponse{
		PersonResponse: h.toResponse(details.Person),
		Events:         details.Events,
	}})
}

func (h *Handler) CreateEvent(c *gin.Context) {
	id, ok := personIDParam(c)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Title and date are required")
		return
	}

	e, err := h.service.CreateEvent(c.Request.Context(), id, CreateEventInput{
		Title:       req.Title,
		Date:        req.Date,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"event": e})
}

func (h *Handler) toResponse(p Person) PersonResponse {
	return PersonResponse{Person: p, ImageURL: h.service.ImageURL(p.ImageFilename)}
}

func personIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid person ID")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", verr.Fields)
	case errors.Is(err, ErrPersonNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Person not found")
	case errors.Is(err, upload.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Image is too large")
	case errors.Is(err, upload.ErrInvalidMimeType), errors.Is(err, upload.ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, "INVALID_FILE", "Only image files are allowed")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
