package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileTypeUnsupported = errors.New("unsupported file type")
	ErrNoFile              = errors.New("no file provided")
)

var allowedMedia = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "video/mp4"}

// MediaValidator checks the size and the real content type of an uploaded
// file. On success the returned file is rewound and must be closed by the caller.
func MediaValidator(fh *multipart.FileHeader, maxSize int64) (int, multipart.File, *mimetype.MIME, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, nil, ErrNoFile
	}

	if fh.Size > maxSize {
		return http.StatusRequestEntityTooLarge, nil, nil, ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, nil, err
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, nil, err
	}

	if !slices.ContainsFunc(allowedMedia, mime.Is) {
		f.Close()
		return http.StatusBadRequest, nil, nil, ErrFileTypeUnsupported
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, nil, err
	}

	return 0, f, mime, nil
}

// IsVideo reports whether mime is one of the accepted video types
func IsVideo(mime *mimetype.MIME) bool {
	return mime != nil && mime.Is("video/mp4")
}
