// Package storage wraps Cloudinary for prescription documents and product
// images. Prescriptions are uploaded as private assets and are only readable
// through short-lived signed download links.
package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const downloadEndpoint = "https://api.cloudinary.com/v1_1"

// SignedURLTTL is how long a prescription download link stays valid.
const SignedURLTTL = 120 * time.Second

type Service struct {
	cld *cloudinary.Cloudinary
}

func New(cloudinaryURL string) (*Service, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("storage: cloudinary URL is required")
	}

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("storage: cloudinary init failed: %w", err)
	}

	return &Service{cld: cld}, nil
}

// UploadPrescription stores a prescription document as a private asset and
// returns its public ID for the prescription row.
func (s *Service) UploadPrescription(ctx context.Context, r io.Reader, filename string) (string, error) {
	publicID := fmt.Sprintf("prescriptions/%s", uuid.NewString())

	result, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		Type:         "private",
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("storage: prescription upload failed: %w", err)
	}

	return result.PublicID, nil
}

// UploadImage stores a public product image and returns its delivery URL.
func (s *Service) UploadImage(ctx context.Context, r io.Reader, filename string) (string, error) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	publicID := fmt.Sprintf("products/%s_%d", base, time.Now().UnixNano())

	result, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("storage: image upload failed: %w", err)
	}

	url := result.SecureURL
	if url == "" {
		url = result.URL
	}
	return url, nil
}

func (s *Service) Delete(ctx context.Context, publicID string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("storage: delete failed: %w", err)
	}
	return nil
}

// SignedURL issues a time-bounded private download link for a stored
// prescription. Cloudinary's download endpoint authenticates the request by a
// SHA1 over the sorted parameters plus the API secret.
func (s *Service) SignedURL(publicID string, ttl time.Duration) (string, error) {
	cloud := s.cld.Config.Cloud
	if cloud.APISecret == "" {
		return "", fmt.Errorf("storage: missing API secret")
	}

	now := time.Now()
	params := []string{
		fmt.Sprintf("expires_at=%d", now.Add(ttl).Unix()),
		fmt.Sprintf("public_id=%s", publicID),
		fmt.Sprintf("timestamp=%d", now.Unix()),
	}

	h := sha1.New()
	h.Write([]byte(strings.Join(params, "&") + cloud.APISecret))
	signature := hex.EncodeToString(h.Sum(nil))

	return fmt.Sprintf(
		"%s/%s/image/download?%s&api_key=%s&signature=%s",
		downloadEndpoint, cloud.CloudName, strings.Join(params, "&"), cloud.APIKey, signature,
	), nil
}
