package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/yishak-cs/themenu/internal/models"
)

const photoPrefix = "dish-photos/"

// S3Config holds the bucket dish photos go to
type S3Config struct {
	Bucket    string
	Region    string
	PublicURL string
}

// Enabled reports whether a bucket is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// PhotoStore persists an image and returns the URL it is served from
type PhotoStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ObjectPutter is the part of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3PhotoStore uploads photos to an S3 bucket as public-read objects
type S3PhotoStore struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

// NewS3PhotoStore loads the default AWS credential chain for cfg.Region.
func NewS3PhotoStore(ctx context.Context, cfg S3Config) (*S3PhotoStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config for S3: %w", err)
	}
	return NewS3PhotoStoreWithClient(s3.NewFromConfig(awsCfg), cfg), nil
}

// NewS3PhotoStoreWithClient wraps an existing client.
func NewS3PhotoStoreWithClient(client ObjectPutter, cfg S3Config) *S3PhotoStore {
	public := strings.TrimSuffix(cfg.PublicURL, "/")
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3PhotoStore{client: client, bucket: cfg.Bucket, publicURL: public}
}

// Put uploads data under key.
func (s *S3PhotoStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.publicURL + "/" + key, nil
}

// PhotoService attaches uploaded photos to dishes
type PhotoService struct {
	store  PhotoStore
	dishes *DishService
}

// NewPhotoService creates a photo service. store may be nil, in which case uploads are unavailable.
func NewPhotoService(store PhotoStore, dishes *DishService) *PhotoService {
	return &PhotoService{store: store, dishes: dishes}
}

// PhotoInput carries an image as a data URL ("data:image/jpeg;base64,...")
type PhotoInput struct {
	Image string `json:"image" binding:"required"`
}

// Upload stores the image and saves its URL on the dish.
func (s *PhotoService) Upload(ctx context.Context, user *models.User, dishID uint, dataURL string) (*models.Dish, error) {
	if s.store == nil {
		return nil, fmt.Errorf("photo storage: %w", ErrUnavailable)
	}
	dish, err := s.dishes.Get(ctx, dishID)
	if err != nil {
		return nil, err
	}
	if !canEditDish(user, dish) {
		return nil, fmt.Errorf("dish %d belongs to another team: %w", dishID, ErrForbidden)
	}

	contentType, data, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s%d-%s%s", photoPrefix, dishID, uuid.NewString(), imageExt(contentType))
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, err
	}
	return s.dishes.SetPhoto(ctx, user, dishID, url)
}

// DecodeDataURL splits a base64 image data URL into its content type and bytes.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	meta, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return "", nil, invalidf("image must be a base64 data URL")
	}
	contentType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, invalidf("unsupported content type %q", contentType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, invalidf("failed to decode image: %v", err)
	}
	if len(data) == 0 {
		return "", nil, invalidf("image is empty")
	}
	return contentType, data, nil
}

func imageExt(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	if _, sub, ok := strings.Cut(contentType, "/"); ok {
		return "." + sub
	}
	return ""
}
