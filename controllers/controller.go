package controllers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/CUknot/grammable/metrics"
	"github.com/CUknot/grammable/middleware"
	"github.com/CUknot/grammable/models"
	"github.com/CUknot/grammable/storage"
	"github.com/CUknot/grammable/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Publisher receives an event after every successful gram mutation
type Publisher interface {
	Publish(eventType string, payload interface{})
}

// GramController serves both the HTML pages and the JSON API for grams
type GramController struct {
	DB    *gorm.DB
	Store storage.Store
	Feed  Publisher
}

// findGram loads a gram with its owner. Ids that are not positive integers
// cannot exist and are reported as not found.
func findGram(ctx context.Context, db *gorm.DB, param string) (*models.Gram, error) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil || id == 0 {
		return nil, models.ErrGramNotFound
	}

	var gram models.Gram
	if err := db.WithContext(ctx).Preload("User").First(&gram, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrGramNotFound
		}
		return nil, fmt.Errorf("find gram %d: %w", id, err)
	}
	return &gram, nil
}

// authorizeOwner allows only the gram's owner through
func authorizeOwner(user *models.User, gram *models.Gram) error {
	if user == nil {
		return models.ErrUnauthenticated
	}
	if !gram.OwnedBy(user) {
		return models.ErrForbidden
	}
	return nil
}

// uploadedPicture returns the picture part of the form, or nil when none was sent.
// A body cut off by the size limit is reported as a validation error.
func uploadedPicture(c *gin.Context) (*multipart.FileHeader, error) {
	header, err := c.FormFile("picture")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, models.ValidationErrors{"Picture is too large"}
		}
		return nil, nil
	}
	return header, nil
}

func pictureError(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return models.ValidationErrors{"Picture must be a JPEG, PNG, GIF or WebP image"}
	case errors.Is(err, storage.ErrTooLarge):
		return models.ValidationErrors{"Picture is too large"}
	}
	return fmt.Errorf("store picture: %w", err)
}

func (gc *GramController) listGrams(ctx context.Context) ([]models.Gram, error) {
	var grams []models.Gram
	if err := gc.DB.WithContext(ctx).Preload("User").Order("created_at DESC, id DESC").Find(&grams).Error; err != nil {
		return nil, fmt.Errorf("list grams: %w", err)
	}
	return grams, nil
}

// createGram validates, stores the picture and persists a gram owned by user
func (gc *GramController) createGram(ctx context.Context, user *models.User, message string, picture *multipart.FileHeader) (*models.Gram, error) {
	gram := &models.Gram{Message: message, UserID: user.ID}

	candidate := *gram
	if picture != nil {
		candidate.Picture = picture.Filename
	}
	if err := candidate.Validate(); err != nil {
		return gram, err
	}

	name, err := gc.Store.Save(ctx, picture)
	if err != nil {
		return gram, pictureError(err)
	}
	gram.Picture = name

	if err := gc.DB.WithContext(ctx).Omit(clause.Associations).Create(gram).Error; err != nil {
		gc.removePicture(ctx, name)
		return gram, fmt.Errorf("create gram: %w", err)
	}
	gram.User = *user

	gc.publish(websocket.GramCreated, gram)
	metrics.RecordGramMutation("create")
	return gram, nil
}

// updateGram applies the submitted fields. On failure the stored record is untouched.
func (gc *GramController) updateGram(ctx context.Context, gram *models.Gram, message *string, picture *multipart.FileHeader) error {
	candidate := *gram
	if message != nil {
		candidate.Message = *message
	}
	if picture != nil {
		candidate.Picture = picture.Filename
	}
	if err := candidate.Validate(); err != nil {
		return err
	}

	oldPicture := gram.Picture
	newPicture := ""
	if picture != nil {
		name, err := gc.Store.Save(ctx, picture)
		if err != nil {
			return pictureError(err)
		}
		newPicture = name
	}

	updated := *gram
	updated.Message = candidate.Message
	if newPicture != "" {
		updated.Picture = newPicture
	}

	if err := gc.DB.WithContext(ctx).Omit(clause.Associations).Save(&updated).Error; err != nil {
		gc.removePicture(ctx, newPicture)
		return fmt.Errorf("update gram %d: %w", gram.ID, err)
	}
	*gram = updated

	if newPicture != "" {
		gc.removePicture(ctx, oldPicture)
	}

	gc.publish(websocket.GramUpdated, gram)
	metrics.RecordGramMutation("update")
	return nil
}

func (gc *GramController) deleteGram(ctx context.Context, gram *models.Gram) error {
	if err := gc.DB.WithContext(ctx).Delete(&models.Gram{}, gram.ID).Error; err != nil {
		return fmt.Errorf("delete gram %d: %w", gram.ID, err)
	}
	gc.removePicture(ctx, gram.Picture)

	gc.publish(websocket.GramDeleted, gin.H{"id": gram.ID})
	metrics.RecordGramMutation("delete")
	return nil
}

func (gc *GramController) publish(eventType string, payload interface{}) {
	if gc.Feed != nil {
		gc.Feed.Publish(eventType, payload)
	}
}

func (gc *GramController) removePicture(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := gc.Store.Delete(ctx, name); err != nil {
		logrus.WithError(err).WithField("picture", name).Warn("Failed to remove picture")
	}
}

// page adds the values every layout needs to a template's data
func page(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	if user := middleware.CurrentUserFrom(c); user != nil {
		data["CurrentUser"] = user
	}
	return data
}

// renderError maps an error from the lookup or authorization policy to a response
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		c.Redirect(http.StatusFound, middleware.LoginPath)
	case errors.Is(err, models.ErrGramNotFound):
		c.HTML(http.StatusNotFound, "error", page(c, gin.H{"Status": http.StatusNotFound, "Error": "Gram not found"}))
	case errors.Is(err, models.ErrForbidden):
		c.HTML(http.StatusForbidden, "error", page(c, gin.H{"Status": http.StatusForbidden, "Error": "You can only change your own grams"}))
	default:
		c.Error(err)
		c.HTML(http.StatusInternalServerError, "error", page(c, gin.H{"Status": http.StatusInternalServerError, "Error": "Something went wrong"}))
	}
}

// jsonError is the API counterpart of renderError
func jsonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
	case errors.Is(err, models.ErrGramNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Gram not found"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only change your own grams"})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Validation failed", "errors": models.Messages(err)})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
