// Package media stores gallery images on Cloudinary.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// uploadAPI is the part of the Cloudinary SDK the host uses.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

type Cloudinary struct {
	api    uploadAPI
	folder string
	logger *zerolog.Logger
}

func NewCloudinary(cfg config.MediaConfig, logger *zerolog.Logger) (*Cloudinary, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if cfg.CloudinaryURL != "" {
		cld, err = cloudinary.NewFromURL(cfg.CloudinaryURL)
	} else {
		cld, err = cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true

	return &Cloudinary{api: &cld.Upload, folder: cfg.Folder, logger: logger}, nil
}

// Upload stores the image under a fresh public id and returns its https URL.
func (c *Cloudinary) Upload(ctx context.Context, file io.Reader) (string, error) {
	res, err := c.api.Upload(ctx, file, uploader.UploadParams{
		PublicID:     uuid.NewString(),
		Folder:       c.folder,
		ResourceType: "image",
		Overwrite:    api.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}

	c.logger.Info().Str("public_id", res.PublicID).Msg("Image uploaded")
	return res.SecureURL, nil
}

// Destroy removes the remote object. An object that is already gone counts
// as destroyed.
func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, Invalidate: api.Bool(true)})
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy %s: %s", publicID, res.Error.Message)
	}

	switch res.Result {
	case "ok":
		c.logger.Info().Str("public_id", publicID).Msg("Image destroyed")
		return nil
	case "not found":
		c.logger.Warn().Str("public_id", publicID).Msg("Image already absent on media host")
		return nil
	default:
		return fmt.Errorf("cloudinary destroy %s: unexpected result %q", publicID, res.Result)
	}
}

// PublicIDFromURL derives the public id of a delivery URL.
func (c *Cloudinary) PublicIDFromURL(url string) string {
	return PublicIDFromURL(url, c.folder)
}

var versionSegment = regexp.MustCompile(`^v[0-9]+$`)

// PublicIDFromURL returns the path after the version segment of a Cloudinary
// delivery URL (.../upload/v<version>/<folder>/<name>.<ext>) without the
// extension, so the folder the image was uploaded to is kept even if the
// configured folder has changed since. URLs without an upload version fall
// back to folder plus the file name.
func PublicIDFromURL(url, folder string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}

	if i := strings.Index(url, "/upload/"); i >= 0 {
		segments := strings.Split(url[i+len("/upload/"):], "/")
		for j, seg := range segments {
			if versionSegment.MatchString(seg) && j+1 < len(segments) {
				id := strings.Join(segments[j+1:], "/")
				return strings.TrimSuffix(id, path.Ext(id))
			}
		}
	}

	base := path.Base(url)
	if base == "." || base == "/" {
		return ""
	}
	id := strings.TrimSuffix(base, path.Ext(base))
	if folder == "" {
		return id
	}
	return strings.Trim(folder, "/") + "/" + id
}
