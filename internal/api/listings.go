package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fliplister/internal/model"
)

// createListingRequest 创建 listing 的请求参数。
type createListingRequest struct {
	ItemName      string `json:"item_name" binding:"required"`
	Category      string `json:"category"`
	Brand         string `json:"brand"`
	Condition     string `json:"condition"`
	Description   string `json:"description"`
	AskingPrice   string `json:"asking_price"`
	PurchasePrice string `json:"purchase_price"`
}

type updateListingRequest struct {
	ItemName      *string `json:"item_name"`
	Category      *string `json:"category"`
	Brand         *string `json:"brand"`
	Condition     *string `json:"condition"`
	Description   *string `json:"description"`
	AskingPrice   *string `json:"asking_price"`
	PurchasePrice *string `json:"purchase_price"`
	Status        *string `json:"status"`
}

var validConditions = map[string]bool{
	"new": true, "like-new": true, "good": true, "fair": true, "poor": true,
}

func (s *Server) handleCreateListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Condition == "" {
		req.Condition = "good"
	}
	if !validConditions[req.Condition] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition"})
		return
	}

	l := &model.Listing{
		ID:            uuid.NewString(),
		ItemName:      req.ItemName,
		Category:      req.Category,
		Brand:         req.Brand,
		Condition:     req.Condition,
		Description:   req.Description,
		AskingPrice:   req.AskingPrice,
		PurchasePrice: req.PurchasePrice,
		Images:        datatypes.JSON("[]"),
		Status:        "draft",
	}

	if err := s.store.Create(c.Request.Context(), l); err != nil {
		s.logger.Error("create listing failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create listing failed"})
		return
	}

	c.JSON(http.StatusCreated, l)
}

func (s *Server) handleGetListing(c *gin.Context) {
	l, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load listing failed"})
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) handleListListings(c *gin.Context) {
	status := c.Query("status")
	if status != "" && !model.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	listings, total, err := s.store.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		s.logger.Error("list listings failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list listings failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"listings": listings,
	})
}

func (s *Server) handleUpdateListing(c *gin.Context) {
	l, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load listing failed"})
		return
	}

	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ItemName != nil {
		l.ItemName = *req.ItemName
	}
	if req.Category != nil {
		l.Category = *req.Category
	}
	if req.Brand != nil {
		l.Brand = *req.Brand
	}
	if req.Condition != nil {
		if !validConditions[*req.Condition] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid condition"})
			return
		}
		l.Condition = *req.Condition
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.AskingPrice != nil {
		l.AskingPrice = *req.AskingPrice
	}
	if req.PurchasePrice != nil {
		l.PurchasePrice = *req.PurchasePrice
	}
	if req.Status != nil {
		if !model.ValidStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		l.Status = *req.Status
	}

	if err := s.store.Update(c.Request.Context(), l); err != nil {
		s.logger.Error("update listing failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update listing failed"})
		return
	}

	c.JSON(http.StatusOK, l)
}

func (s *Server) handleDeleteListing(c *gin.Context) {
	id := c.Param("id")
	l, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load listing failed"})
		return
	}

	// 先删图片文件，失败只记日志，不阻塞删除
	var imageURLs []string
	if len(l.Images) > 0 {
		if err := json.Unmarshal(l.Images, &imageURLs); err == nil {
			for _, u := range imageURLs {
				if err := s.uploads.Delete(u); err != nil {
					s.logger.Warn("delete image failed",
						slog.String("url", u),
						slog.String("error", err.Error()))
				}
			}
		}
	}

	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.logger.Error("delete listing failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete listing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// handleUploadImage 接收 multipart 图片并追加到 listing 的图片列表。
func (s *Server) handleUploadImage(c *gin.Context) {
	l, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load listing failed"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open upload failed"})
		return
	}
	defer f.Close()

	url, err := s.uploads.Save(fh.Filename, f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var imageURLs []string
	if len(l.Images) > 0 {
		_ = json.Unmarshal(l.Images, &imageURLs)
	}
	imageURLs = append(imageURLs, url)

	data, err := json.Marshal(imageURLs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode images failed"})
		return
	}
	l.Images = data

	if err := s.store.Update(c.Request.Context(), l); err != nil {
		s.logger.Error("update listing images failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update listing failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url, "images": imageURLs})
}
