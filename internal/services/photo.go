package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"daily-diet-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const photoUploadExpiry = 5 * time.Minute

// Presigner signs S3 uploads; *s3.PresignClient satisfies it
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PhotoService hands out pre-signed upload URLs for meal photos
type PhotoService struct {
	meals     MealStore
	presigner Presigner
	bucket    string
	publicURL string
}

// NewPhotoService builds the S3 client from cfg. With no bucket configured the
// service is returned disabled.
func NewPhotoService(meals MealStore, cfg config.AWSConfig) (*PhotoService, error) {
	if cfg.S3Bucket == "" {
		return &PhotoService{meals: meals}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.Region)
	}

	return NewPhotoServiceWithPresigner(meals, s3.NewPresignClient(client), cfg.S3Bucket, publicURL), nil
}

// NewPhotoServiceWithPresigner creates a photo service around an existing presigner
func NewPhotoServiceWithPresigner(meals MealStore, presigner Presigner, bucket, publicURL string) *PhotoService {
	return &PhotoService{
		meals:     meals,
		presigner: presigner,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// UploadResponse is the pre-signed upload for a meal photo
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	PhotoURL  string `json:"photo_url"`
	ExpiresIn int    `json:"expires_in"`
}

// CreateUploadURL pre-signs a PUT for a new photo of an owned meal and records
// the photo URL on the meal.
func (s *PhotoService) CreateUploadURL(ctx context.Context, userID, mealID, contentType, ext string) (*UploadResponse, error) {
	if s.presigner == nil {
		return nil, ErrPhotoUploadDisabled
	}

	if _, err := s.meals.GetByID(ctx, userID, mealID); err != nil {
		return nil, mapMealErr(err)
	}

	key := fmt.Sprintf("meals/%s/%s/%s.%s", userID, mealID, uuid.New().String(), ext)

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = photoUploadExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	photoURL := s.publicURL + "/" + key
	if err := s.meals.SetPhotoURL(ctx, userID, mealID, photoURL, time.Now().UTC()); err != nil {
		return nil, mapMealErr(err)
	}

	return &UploadResponse{
		UploadURL: request.URL,
		PhotoURL:  photoURL,
		ExpiresIn: int(photoUploadExpiry.Seconds()),
	}, nil
}
