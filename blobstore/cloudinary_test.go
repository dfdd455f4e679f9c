package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	uploaded  map[string]string
	destroyed []string
	uploadErr error
	apiError  string
}

func (f *fakeUploader) Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(file.(io.Reader))
	if err != nil {
		return nil, err
	}
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[params.PublicID+"|"+params.ResourceType] = string(data)
	return &uploader.UploadResult{PublicID: params.PublicID, Error: api.ErrorResp{Message: f.apiError}}, nil
}

func (f *fakeUploader) Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error) {
	f.destroyed = append(f.destroyed, params.PublicID)
	return &uploader.DestroyResult{Result: "ok"}, nil
}

func newTestCloudinary(t *testing.T, up Uploader) *Cloudinary {
	t.Helper()
	c, err := NewCloudinary("demo", "key", "secret")
	require.NoError(t, err)
	return c.WithUploader(up)
}

func TestCloudinaryPutAndDelete(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	c := newTestCloudinary(t, up)

	key := "CASE-1234-A/1700000000000-xray.png"
	require.NoError(t, c.Put(ctx, key, strings.NewReader("png")))
	assert.Equal(t, "png", up.uploaded[key+"|raw"])

	require.NoError(t, c.Delete(ctx, key))
	assert.Equal(t, []string{key}, up.destroyed)
}

func TestCloudinaryPutErrors(t *testing.T) {
	ctx := context.Background()

	c := newTestCloudinary(t, &fakeUploader{uploadErr: errors.New("timeout")})
	assert.ErrorContains(t, c.Put(ctx, "k.pdf", strings.NewReader("x")), "timeout")

	c = newTestCloudinary(t, &fakeUploader{apiError: "Invalid Signature"})
	assert.ErrorContains(t, c.Put(ctx, "k.pdf", strings.NewReader("x")), "Invalid Signature")
}

func TestCloudinaryURL(t *testing.T) {
	c := newTestCloudinary(t, &fakeUploader{})

	url, err := c.URL(context.Background(), "CASE-1234-A/1700000000000-xray.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://res.cloudinary.com/demo/raw/upload/"), url)
	assert.True(t, strings.HasSuffix(url, "CASE-1234-A/1700000000000-xray.png"), url)
}
