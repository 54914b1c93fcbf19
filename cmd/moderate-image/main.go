// Command moderate-image runs one local photo through the same Rekognition
// moderation used when a report photo is acquired.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/johnrirwin/fieldreport/internal/config"
	"github.com/johnrirwin/fieldreport/internal/images"
	"github.com/johnrirwin/fieldreport/internal/moderation"
)

func main() {
	_ = godotenv.Load()

	imagePath := flag.String("image", os.Getenv("IMAGE"), "path to local image file")
	region := flag.String("region", os.Getenv("AWS_REGION"), "AWS region for Rekognition")
	timeout := flag.Duration("timeout", 5*time.Second, "moderation call timeout")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "image path is required (pass -image or IMAGE env var)")
		os.Exit(1)
	}

	imageBytes, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read image: %v\n", err)
		os.Exit(1)
	}
	if contentType, ok := images.DetectContentType(imageBytes); !ok {
		fmt.Fprintf(os.Stderr, "unsupported image type %q\n", contentType)
		os.Exit(1)
	}

	cfg := config.ModerationConfig{
		Enabled:          true,
		AWSRegion:        *region,
		RejectConfidence: 70,
	}
	if raw := os.Getenv("MODERATION_REJECT_CONFIDENCE"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			cfg.RejectConfidence = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	moderator, err := moderation.NewFromConfig(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize rekognition: %v\n", err)
		os.Exit(1)
	}

	decision, err := moderator.ModerateImageBytes(ctx, imageBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rekognition call failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Status: %s\n", decision.Status)
	if decision.Reason != "" {
		fmt.Printf("Reason: %s\n", decision.Reason)
	}
	fmt.Printf("MaxConfidence: %.2f\n", decision.MaxConfidence)
	for _, label := range decision.Labels {
		if label.ParentName != "" {
			fmt.Printf("  - %s (%s): %.2f\n", label.Name, label.ParentName, label.Confidence)
		} else {
			fmt.Printf("  - %s: %.2f\n", label.Name, label.Confidence)
		}
	}
}
