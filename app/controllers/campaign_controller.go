package controllers

import (
	"bytes"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adgen"
	"github.com/ManuelReschke/AdGenie/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/AdGenie/internal/pkg/preview"
	"github.com/ManuelReschke/AdGenie/internal/pkg/storage"
	"github.com/ManuelReschke/AdGenie/internal/pkg/upload"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

// CampaignController covers the creative workflow: upload, generate,
// preview and save.
type CampaignController struct {
	campaigns repository.CampaignRepository
	generator *adgen.Generator
	backend   storage.Backend
	counters  *counter.Counter
	now       func() time.Time
}

func NewCampaignController(campaigns repository.CampaignRepository, generator *adgen.Generator, backend storage.Backend, counters *counter.Counter) *CampaignController {
	return &CampaignController{
		campaigns: campaigns,
		generator: generator,
		backend:   backend,
		counters:  counters,
		now:       time.Now,
	}
}

// HandleUploadImage stores a product image below the user's prefix.
func (cc *CampaignController) HandleUploadImage(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	fh, err := c.FormFile("file")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "file is required")
	}
	if fh.Size > upload.MaxImageSize {
		return apiError(c, fiber.StatusRequestEntityTooLarge, "too_large", upload.ErrTooLarge.Error())
	}

	f, err := fh.Open()
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "cannot read file")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	mime, err := upload.ValidateImageBySniff(fh.Filename, head[:n])
	if err != nil {
		return apiError(c, fiber.StatusUnsupportedMediaType, "unsupported_media_type", err.Error())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return apiErrorFrom(c, err)
	}

	key := storage.ProductImageKey(uc.UserID, cc.now(), upload.ExtensionFor(mime))
	if err := cc.backend.Put(c.UserContext(), key, f, fh.Size, mime); err != nil {
		log.Errorf("[CampaignController] store %s on %s: %v", key, cc.backend.Name(), err)
		return apiError(c, fiber.StatusInternalServerError, "internal_server_error", "could not store image")
	}
	log.Infof("[CampaignController] user=%d uploaded %s (%d bytes)", uc.UserID, key, fh.Size)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"path": key,
		"url":  cc.backend.URL(key),
	})
}

type generateRequest struct {
	Platform string `json:"platform"`
}

// HandleGenerate returns the ad copy for a platform.
func (cc *CampaignController) HandleGenerate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		return apiErrorFrom(c, err)
	}

	content, err := cc.generator.Generate(c.UserContext(), platform)
	if err != nil {
		return apiErrorFrom(c, err)
	}
	cc.counters.Generated(c.UserContext(), platform)
	return c.JSON(fiber.Map{
		"platform":   platform,
		"ad_content": content,
	})
}

// HandlePreview renders one of the user's images in the platform frame.
func (cc *CampaignController) HandlePreview(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	platform, err := models.ParsePlatform(c.Params("platform"))
	if err != nil {
		return apiErrorFrom(c, err)
	}
	key := c.Query("path")
	if !storage.OwnedBy(key, uc.UserID) {
		return apiErrorFrom(c, storage.ErrNotFound)
	}

	src, err := cc.backend.Open(c.UserContext(), key)
	if err != nil {
		return apiErrorFrom(c, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	if err := preview.Render(src, platform, &buf); err != nil {
		log.Warnf("[CampaignController] preview %s for %s: %v", key, platform, err)
		return apiError(c, fiber.StatusUnprocessableEntity, "unprocessable_entity", "image could not be rendered")
	}

	c.Set(fiber.HeaderContentType, "image/webp")
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.Send(buf.Bytes())
}

type createCampaignRequest struct {
	Platform  string           `json:"platform"`
	ImagePath string           `json:"image_path" validate:"required"`
	AdContent models.AdContent `json:"ad_content"`
}

func (cc *CampaignController) HandleCreate(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	var req createCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		return apiErrorFrom(c, err)
	}
	if err := validate.Struct(req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	if !storage.OwnedBy(req.ImagePath, uc.UserID) {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "image_path does not belong to you")
	}

	campaign := &models.AdCampaign{
		UserID:    uc.UserID,
		Platform:  platform,
		ImagePath: req.ImagePath,
		AdContent: req.AdContent,
	}
	if err := cc.campaigns.Create(campaign); err != nil {
		return apiErrorFrom(c, err)
	}
	log.Infof("[CampaignController] user=%d saved %s campaign %s", uc.UserID, platform, campaign.ID)
	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (cc *CampaignController) HandleList(c *fiber.Ctx) error {
	campaigns, err := cc.campaigns.ListByUserID(usercontext.GetUserID(c))
	if err != nil {
		return apiErrorFrom(c, err)
	}
	return c.JSON(fiber.Map{"campaigns": campaigns})
}

func (cc *CampaignController) HandleGet(c *fiber.Ctx) error {
	campaign, err := cc.ownCampaign(c)
	if err != nil {
		return apiErrorFrom(c, err)
	}
	return c.JSON(campaign)
}

func (cc *CampaignController) HandleDelete(c *fiber.Ctx) error {
	campaign, err := cc.ownCampaign(c)
	if err != nil {
		return apiErrorFrom(c, err)
	}
	if err := cc.campaigns.Delete(campaign.ID); err != nil {
		return apiErrorFrom(c, err)
	}
	cc.removeUnusedImage(c, campaign)
	return c.SendStatus(fiber.StatusNoContent)
}

// removeUnusedImage deletes the campaign's product image once no other
// campaign of the owner refers to it. Failures only leave an orphaned object.
func (cc *CampaignController) removeUnusedImage(c *fiber.Ctx, deleted *models.AdCampaign) {
	remaining, err := cc.campaigns.ListByUserID(deleted.UserID)
	if err != nil {
		log.Warnf("[CampaignController] keep %s, listing campaigns failed: %v", deleted.ImagePath, err)
		return
	}
	for _, other := range remaining {
		if other.ImagePath == deleted.ImagePath {
			return
		}
	}
	if err := cc.backend.Delete(c.UserContext(), deleted.ImagePath); err != nil {
		log.Warnf("[CampaignController] delete %s on %s: %v", deleted.ImagePath, cc.backend.Name(), err)
		return
	}
	log.Infof("[CampaignController] user=%d removed image %s", deleted.UserID, deleted.ImagePath)
}

func (cc *CampaignController) ownCampaign(c *fiber.Ctx) (*models.AdCampaign, error) {
	campaign, err := cc.campaigns.GetByID(c.Params("id"))
	if err != nil {
		return nil, err
	}
	if campaign.UserID != usercontext.GetUserID(c) {
		return nil, gorm.ErrRecordNotFound
	}
	return campaign, nil
}
