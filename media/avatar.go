package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	avatarFolder         = "studx/avatars"
	avatarTransformation = "c_limit,w_400,h_400,q_auto"
)

var ErrNotConfigured = errors.New("media storage is not configured")

// CloudinaryUploader stores profile pictures in Cloudinary.
type CloudinaryUploader struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryUploader returns ErrNotConfigured when url is empty.
func NewCloudinaryUploader(url string) (*CloudinaryUploader, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config: %w", err)
	}
	return &CloudinaryUploader{cld: cld}, nil
}

// UploadAvatar uploads file under the user's id and returns its HTTPS URL.
// file may be anything the Cloudinary SDK accepts (io.Reader, path or URL).
func (u *CloudinaryUploader) UploadAvatar(ctx context.Context, userID string, file interface{}) (string, error) {
	res, err := u.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         avatarFolder,
		PublicID:       userID,
		Transformation: avatarTransformation,
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload avatar: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
