package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/workflow"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Object is a stored file.
type Object struct {
	URL          string
	PublicID     string
	ResourceType string
	Bytes        int
}

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// CloudinaryStore keeps KYC documents as authenticated Cloudinary assets.
type CloudinaryStore struct {
	uploader uploadAPI
	folder   string
}

func NewCloudinaryStore(cfg configs.CloudinaryConfig) (*CloudinaryStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("CLOUDINARY_URL is not set")
	}
	cld, err := cloudinary.NewFromURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &CloudinaryStore{uploader: &cld.Upload, folder: cfg.Folder}, nil
}

func (s *CloudinaryStore) Upload(ctx context.Context, name string, r io.Reader) (*Object, error) {
	res, err := s.uploader.Upload(ctx, r, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     name,
		ResourceType: "auto",
		Type:         api.Authenticated,
	})
	if err != nil {
		return nil, &workflow.ExternalProviderError{Provider: "cloudinary", Op: "upload", Retryable: true, Err: err}
	}
	if res.Error.Message != "" {
		return nil, &workflow.ExternalProviderError{Provider: "cloudinary", Op: "upload", Err: errors.New(res.Error.Message)}
	}
	return &Object{URL: res.SecureURL, PublicID: res.PublicID, ResourceType: res.ResourceType, Bytes: res.Bytes}, nil
}

// Delete removes an uploaded object. A missing object is not an error.
func (s *CloudinaryStore) Delete(ctx context.Context, obj *Object) error {
	rt := obj.ResourceType
	if rt == "" {
		rt = "image"
	}
	res, err := s.uploader.Destroy(ctx, uploader.DestroyParams{
		PublicID:     obj.PublicID,
		Type:         api.Authenticated,
		ResourceType: rt,
	})
	if err != nil {
		return &workflow.ExternalProviderError{Provider: "cloudinary", Op: "destroy", Retryable: true, Err: err}
	}
	if res.Error.Message != "" {
		return &workflow.ExternalProviderError{Provider: "cloudinary", Op: "destroy", Err: errors.New(res.Error.Message)}
	}
	return nil
}

// ErrNotConfigured is returned by a Disabled store.
var ErrNotConfigured = errors.New("document storage is not configured")

// Disabled rejects every upload. It stands in when no Cloudinary account is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, io.Reader) (*Object, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Delete(context.Context, *Object) error { return ErrNotConfigured }
