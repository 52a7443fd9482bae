package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	VisitorPhotoFolder = "visitors"
	photoUploadTimeout = 10 * time.Second
)

// PhotoStore keeps visitor photos and returns a URL that can be stored on the record.
type PhotoStore interface {
	UploadPhoto(ctx context.Context, photo io.Reader) (string, error)
}

type CloudinaryService struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryService(cloudName, apiKey, apiSecret string) (*CloudinaryService, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &CloudinaryService{
		cld:    cld,
		folder: VisitorPhotoFolder,
	}, nil
}

// UploadPhoto uploads an image into the visitors folder and returns its secure URL.
func (s *CloudinaryService) UploadPhoto(ctx context.Context, photo io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, photoUploadTimeout)
	defer cancel()

	fileBytes, err := io.ReadAll(photo)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	uploadResult, err := s.cld.Upload.Upload(ctx, fileBytes, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "image",
	})
	if err != nil {
		return "", apperrors.TransientIO("failed to upload photo", err)
	}
	if uploadResult.Error.Message != "" {
		return "", apperrors.TransientIO("failed to upload photo", fmt.Errorf("cloudinary: %s", uploadResult.Error.Message))
	}
	if uploadResult.SecureURL == "" {
		return "", apperrors.TransientIO("failed to upload photo", fmt.Errorf("cloudinary returned no URL"))
	}

	return uploadResult.SecureURL, nil
}
