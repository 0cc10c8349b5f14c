package service

import (
	"bitwise74/szoniska-api/internal/model"
	"bitwise74/szoniska-api/pkg/validators"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStore is the part of the bucket client the uploader needs
type ObjectStore interface {
	MediaRemover
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	URL(key string) string
}

type Uploader struct {
	Store   ObjectStore
	MaxSize int64
}

func NewUploader(store ObjectStore, maxSize int64) *Uploader {
	return &Uploader{
		Store:   store,
		MaxSize: maxSize,
	}
}

// UploadError carries the HTTP status the media validator picked
type UploadError struct {
	Status int
	Err    error
}

func (e *UploadError) Error() string {
	return e.Err.Error()
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

type UploadedMedia struct {
	URL   string `json:"url"`
	Type  string `json:"type"`
	Video bool   `json:"video"`
	Size  int64  `json:"size"`
}

// Do checks and uploads a single post attachment owned by u. The object key
// is posts/<userID>/<uuid><ext>.
func (up *Uploader) Do(ctx context.Context, u *model.User, fh *multipart.FileHeader) (*UploadedMedia, error) {
	if err := CheckContentAccess(u); err != nil {
		return nil, err
	}

	status, f, mime, err := validators.MediaValidator(fh, up.MaxSize)
	if err != nil {
		return nil, &UploadError{Status: status, Err: err}
	}
	defer f.Close()

	key := fmt.Sprintf("posts/%s/%s%s", u.ID, uuid.NewString(), mime.Extension())

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := up.Store.Put(ctx, key, f, fh.Size, mime.String()); err != nil {
		return nil, err
	}

	zap.L().Debug("Media uploaded", zap.String("userID", u.ID), zap.String("key", key))

	return &UploadedMedia{
		URL:   up.Store.URL(key),
		Type:  mime.String(),
		Video: validators.IsVideo(mime),
		Size:  fh.Size,
	}, nil
}
