package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekognitiontypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/johnrirwin/fieldreport/internal/models"
)

// labelFloor is the lowest confidence requested from Rekognition. Anything
// under it cannot affect a decision and only bloats the response.
const labelFloor = 50

// AWSDetector calls Rekognition with byte payloads.
type AWSDetector struct {
	client        *rekognition.Client
	minConfidence float32
}

// NewAWSDetector creates a detector that uses ambient AWS credentials/profile.
func NewAWSDetector(ctx context.Context, region string, rejectConfidence float64) (*AWSDetector, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{}
	if trimmedRegion := strings.TrimSpace(region); trimmedRegion != "" {
		loadOptions = append(loadOptions, awsconfig.WithRegion(trimmedRegion))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	minConfidence := float32(labelFloor)
	if rejectConfidence > 0 && rejectConfidence < labelFloor {
		minConfidence = float32(rejectConfidence)
	}

	return &AWSDetector{
		client:        rekognition.NewFromConfig(cfg),
		minConfidence: minConfidence,
	}, nil
}

// DetectModerationLabels calls Rekognition DetectModerationLabels with raw image bytes.
func (d *AWSDetector) DetectModerationLabels(ctx context.Context, imageBytes []byte) ([]models.ModerationLabel, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image bytes are required")
	}

	output, err := d.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image:         &rekognitiontypes.Image{Bytes: imageBytes},
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("rekognition detect moderation labels: %w", err)
	}

	return toLabels(output.ModerationLabels), nil
}

func toLabels(in []rekognitiontypes.ModerationLabel) []models.ModerationLabel {
	labels := make([]models.ModerationLabel, 0, len(in))
	for _, label := range in {
		labels = append(labels, models.ModerationLabel{
			Name:       aws.ToString(label.Name),
			ParentName: aws.ToString(label.ParentName),
			Confidence: float64(aws.ToFloat32(label.Confidence)),
		})
	}
	return labels
}
