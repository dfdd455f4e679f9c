package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// rawResource keeps the extension in the public id and accepts any file type
const rawResource = "raw"

// Uploader is the part of the cloudinary upload API the store uses
type Uploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores blobs as raw cloudinary assets whose public id is the key
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	upload Uploader
}

// NewCloudinary connects with account credentials
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld, upload: &cld.Upload}, nil
}

// WithUploader replaces the upload API, for tests
func (c *Cloudinary) WithUploader(u Uploader) *Cloudinary {
	c.upload = u
	return c
}

// Put uploads r under key
func (c *Cloudinary) Put(ctx context.Context, key string, r io.Reader) error {
	res, err := c.upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:       key,
		ResourceType:   rawResource,
		Overwrite:      api.Bool(true),
		UniqueFilename: api.Bool(false),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("upload %s: %s", key, res.Error.Message)
	}
	return nil
}

// Delete destroys the asset
func (c *Cloudinary) Delete(ctx context.Context, key string) error {
	res, err := c.upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     key,
		ResourceType: rawResource,
	})
	if err != nil {
		return fmt.Errorf("destroy %s: %w", key, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("destroy %s: %s", key, res.Error.Message)
	}
	return nil
}

// URL builds the delivery URL of key without calling the API
func (c *Cloudinary) URL(ctx context.Context, key string) (string, error) {
	asset, err := c.cld.File(key)
	if err != nil {
		return "", err
	}
	return asset.String()
}
