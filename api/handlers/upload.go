package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/config"
)

// maxUploadSize caps photo uploads at 5MB
const maxUploadSize = 5 << 20

// Uploader stores complaint and profile photos. Cloudinary when
// configured, local disk otherwise. Cloudinary yields an absolute URL,
// local storage a bare filename; callers resolve the difference.
type Uploader struct {
	cld    *cloudinary.Cloudinary
	folder string
	dir    string
}

// NewUploader builds the photo uploader from config
func NewUploader(conf *config.Config) (*Uploader, error) {
	dir := conf.UploadsDir
	if dir == "" {
		dir = "uploads"
	}
	u := &Uploader{folder: conf.CloudinaryFolder, dir: dir}
	if conf.CloudinaryCloudName != "" {
		cld, err := cloudinary.NewFromParams(conf.CloudinaryCloudName, conf.CloudinaryAPIKey, conf.CloudinaryAPISecret)
		if err != nil {
			return nil, err
		}
		u.cld = cld
	}
	return u, nil
}

// PhotoFromRequest extracts the "photo" multipart file if present and
// stores it. Returns the photo reference to persist, or "" when the
// request carries no photo.
func (u *Uploader) PhotoFromRequest(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return "", fmt.Errorf("failed to parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		return "", fmt.Errorf("photo exceeds the %d byte limit", maxUploadSize)
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return "", fmt.Errorf("only image files are allowed")
	}

	if u.cld != nil {
		return u.uploadCloudinary(r, file)
	}
	return u.saveLocal(file, header)
}

func (u *Uploader) uploadCloudinary(r *http.Request, file multipart.File) (string, error) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	resp, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{Folder: u.folder})
	if err != nil {
		zap.S().Errorw("cloudinary upload failed", "error", err)
		return "", err
	}
	return resp.SecureURL, nil
}

func (u *Uploader) saveLocal(file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + filepath.Ext(header.Filename)
	dst, err := os.Create(filepath.Join(u.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return name, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
