// Package upload stores crop photos and asks the vision model what they show.
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"farmwise-api-server/internal/storage"

	"golang.org/x/sync/errgroup"
)

// UnidentifiedText stands in for the identification when the vision call
// failed.
const UnidentifiedText = "Unable to identify crop from image due to processing error."

// Identifier names the crop in a base64 encoded photo.
type Identifier interface {
	IdentifyCrop(ctx context.Context, imageBase64 string) (string, error)
}

// File is one uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result of an upload. When identification failed the image is still stored
// and IdentifyError says why.
type Result struct {
	ImageURL       string `json:"image_url"`
	Filename       string `json:"filename"`
	FileSize       int    `json:"file_size"`
	ContentType    string `json:"content_type"`
	Identification string `json:"crop_identification,omitempty"`
	IdentifyError  string `json:"error,omitempty"`

	identifyErr error
}

// IdentifyErr is the identification failure behind IdentifyError.
func (r Result) IdentifyErr() error { return r.identifyErr }

type Service struct {
	store      storage.ImageStore
	identifier Identifier
	maxBytes   int64
	prefix     string
}

func NewService(store storage.ImageStore, identifier Identifier, maxBytes int64) *Service {
	return &Service{store: store, identifier: identifier, maxBytes: maxBytes, prefix: "crops"}
}

// Upload validates and stores an image.
func (s *Service) Upload(ctx context.Context, f File) (Result, error) {
	contentType, err := storage.ValidateImage(f.Data, s.maxBytes)
	if err != nil {
		return Result{}, err
	}
	return s.save(ctx, f, contentType)
}

// UploadAndIdentify stores the image and identifies it. The two calls do not
// depend on each other: a storage failure fails the whole flow, while an
// identification failure is only reported in the result.
func (s *Service) UploadAndIdentify(ctx context.Context, f File) (Result, error) {
	contentType, err := storage.ValidateImage(f.Data, s.maxBytes)
	if err != nil {
		return Result{}, err
	}

	var (
		stored         Result
		identification string
		identifyErr    error
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		stored, err = s.save(ctx, f, contentType)
		return err
	})
	g.Go(func() error {
		identification, identifyErr = s.identify(ctx, f.Data)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	stored.Identification = identification
	if identifyErr != nil {
		stored.Identification = UnidentifiedText
		log.Printf("upload: identification failed for %s: %v", stored.ImageURL, identifyErr)
		stored.IdentifyError = fmt.Sprintf("Image uploaded but AI identification failed: %v", identifyErr)
		stored.identifyErr = identifyErr
	}
	return stored, nil
}

func (s *Service) save(ctx context.Context, f File, contentType string) (Result, error) {
	key := storage.NewObjectKey(s.prefix, contentType)
	url, err := s.store.Save(ctx, key, contentType, f.Data)
	if err != nil {
		return Result{}, err
	}
	return Result{
		ImageURL:    url,
		Filename:    f.Name,
		FileSize:    len(f.Data),
		ContentType: contentType,
	}, nil
}

func (s *Service) identify(ctx context.Context, data []byte) (string, error) {
	if s.identifier == nil {
		return "", fmt.Errorf("crop identification is not available")
	}
	return s.identifier.IdentifyCrop(ctx, base64.StdEncoding.EncodeToString(data))
}
