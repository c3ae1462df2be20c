package service

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tallyup/tallyup/internal/middleware"
	"github.com/tallyup/tallyup/internal/models"
	"github.com/tallyup/tallyup/internal/storage"
)

// ContactService handles the saved address book used to pre-fill
// participants on new bills.
type ContactService struct {
	store storage.Store
}

// NewContactService creates a new ContactService with the given storage
// backend.
func NewContactService(store storage.Store) *ContactService {
	return &ContactService{store: store}
}

type contactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type contactResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// List returns the caller's saved contacts ordered by name.
func (s *ContactService) List(c *gin.Context) {
	contacts, err := s.store.ListContactsByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		slog.Error("ListContacts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contacts"})
		return
	}

	out := make([]contactResponse, len(contacts))
	for i, contact := range contacts {
		out[i] = contactResponse{ID: contact.ID, Name: contact.Name, Email: contact.Email}
	}
	c.JSON(http.StatusOK, gin.H{"contacts": out})
}

// Create saves a contact. Re-saving an existing owner+email pair is a
// no-op, so clients can offer contacts after every bill save.
func (s *ContactService) Create(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if req.Name == "" || req.Email == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "name and email are required"})
		return
	}

	contact := &models.Contact{
		OwnerID: middleware.UserID(c),
		Name:    req.Name,
		Email:   req.Email,
	}
	if err := s.store.CreateContact(c.Request.Context(), contact); err != nil {
		slog.Error("CreateContact failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save contact"})
		return
	}

	c.JSON(http.StatusCreated, contactResponse{ID: contact.ID, Name: contact.Name, Email: contact.Email})
}

// Delete removes one of the caller's contacts.
func (s *ContactService) Delete(c *gin.Context) {
	err := s.store.DeleteContact(c.Request.Context(), middleware.UserID(c), c.Param("contactID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contact not found"})
			return
		}
		slog.Error("DeleteContact failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete contact"})
		return
	}
	c.Status(http.StatusNoContent)
}
