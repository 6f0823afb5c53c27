package services

import (
	"context"
	"fmt"
	"time"

	"paeshift-backend/internal/models"
	"paeshift-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// AttachmentService handles job-image uploads via pre-signed S3 URLs
type AttachmentService struct {
	attachmentRepo *repository.AttachmentRepository
	jobRepo        *repository.JobRepository
	s3Client       *s3.Client
	s3Bucket       string
	region         string
}

// NewAttachmentService creates a new attachment service
func NewAttachmentService(
	attachmentRepo *repository.AttachmentRepository,
	jobRepo *repository.JobRepository,
	awsRegion, s3Bucket, endpoint string,
) (*AttachmentService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		jobRepo:        jobRepo,
		s3Client:       s3Client,
		s3Bucket:       s3Bucket,
		region:         awsRegion,
	}, nil
}

// UploadResponse carries a pre-signed PUT URL for the client
type UploadResponse struct {
	UploadURL    string `json:"upload_url"`
	AttachmentID string `json:"attachment_id"`
	ExpiresIn    int    `json:"expires_in"`
}

// GetPreSignedURL generates a pre-signed URL for uploading a job image.
// Only the job owner may attach images, and only before completion.
func (s *AttachmentService) GetPreSignedURL(ctx context.Context, userID, jobID, contentType string) (*UploadResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("job not found: %w", err)
	}
	if job.OwnerID != userID {
		return nil, fmt.Errorf("only the job owner can attach images")
	}
	if job.Status == models.JobStatusCompleted {
		return nil, fmt.Errorf("job is completed")
	}

	attachmentID := uuid.New().String()
	s3Key := fmt.Sprintf("%s/%s.jpg", jobID, attachmentID)

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Bucket),
		Key:         aws.String(s3Key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = 5 * time.Minute
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	s3URL := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.s3Bucket, s.region, s3Key)
	att := &models.Attachment{
		ID:        attachmentID,
		JobID:     jobID,
		UserID:    userID,
		S3URL:     s3URL,
		CreatedAt: time.Now(),
	}
	if err := s.attachmentRepo.Create(ctx, att); err != nil {
		return nil, fmt.Errorf("failed to create attachment record: %w", err)
	}

	return &UploadResponse{
		UploadURL:    request.URL,
		AttachmentID: attachmentID,
		ExpiresIn:    300,
	}, nil
}

// ConfirmUpload updates the attachment URL after a completed upload
func (s *AttachmentService) ConfirmUpload(ctx context.Context, attachmentID, s3URL string) error {
	return s.attachmentRepo.UpdateS3URL(ctx, attachmentID, s3URL)
}

// ListByJob retrieves a job's attachments
func (s *AttachmentService) ListByJob(ctx context.Context, jobID string) ([]*models.Attachment, error) {
	attachments, err := s.attachmentRepo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if attachments == nil {
		attachments = []*models.Attachment{}
	}
	return attachments, nil
}
