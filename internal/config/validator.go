package config

import (
	"errors"
	"fmt"
)

// Validate checks every rule in the configuration and returns a single
// aggregated error naming every violation, not just the first — an operator
// fixing a config file wants the whole list in one pass.
func Validate(c *Config) error {
	var errs []error

	if c.Video.BufferSeconds <= 0 {
		errs = append(errs, fmt.Errorf("[VIDEO] BUFFER_SECONDS must be greater than 0"))
	}
	if c.Video.SaveSeconds <= 0 {
		errs = append(errs, fmt.Errorf("[VIDEO] SAVE_SECONDS must be greater than 0"))
	}
	if c.Video.SaveSeconds > c.Video.BufferSeconds {
		errs = append(errs, fmt.Errorf("[VIDEO] SAVE_SECONDS must be <= BUFFER_SECONDS"))
	}
	if c.Video.Source == "" {
		errs = append(errs, fmt.Errorf("[VIDEO] SOURCE is required"))
	}

	if c.Webhook.URL == "" {
		errs = append(errs, fmt.Errorf("[WEBHOOK] URL is required"))
	}

	if c.B2.KeyID == "" {
		errs = append(errs, fmt.Errorf("[BACKBLAZE_B2] KEY_ID is required"))
	} else if c.B2.KeyID == placeholderKeyID {
		errs = append(errs, fmt.Errorf("[BACKBLAZE_B2] KEY_ID still has the placeholder value %q", placeholderKeyID))
	}
	if c.B2.ApplicationKey == "" {
		errs = append(errs, fmt.Errorf("[BACKBLAZE_B2] APPLICATION_KEY is required"))
	}
	if c.B2.BucketName == "" {
		errs = append(errs, fmt.Errorf("[BACKBLAZE_B2] BUCKET_NAME is required"))
	}

	if c.Server.Host == "" {
		errs = append(errs, fmt.Errorf("[SERVER] HOST is required"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("[SERVER] PORT must be in [1,65535], got %d", c.Server.Port))
	}

	if c.Encoding.Codec == "" {
		errs = append(errs, fmt.Errorf("[VIDEO_ENCODING] CODEC is required"))
	}
	if c.Encoding.AudioCodec == "" {
		errs = append(errs, fmt.Errorf("[VIDEO_ENCODING] AUDIO_CODEC is required"))
	}
	if c.Encoding.Preset == "" {
		errs = append(errs, fmt.Errorf("[VIDEO_ENCODING] PRESET is required"))
	}
	if c.Encoding.PixelFormat == "" {
		errs = append(errs, fmt.Errorf("[VIDEO_ENCODING] PIXEL_FORMAT is required"))
	}
	if c.Encoding.CRF < 0 || c.Encoding.CRF > 51 {
		errs = append(errs, fmt.Errorf("[VIDEO_ENCODING] CRF must be in [0,51], got %d", c.Encoding.CRF))
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Violations: errs}
}

// ValidationError aggregates every configuration rule a Validate pass found
// broken, satisfying the ConfigInvalid error kind.
type ValidationError struct {
	Violations []error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config invalid: %d violation(s): %s", len(e.Violations), errors.Join(e.Violations...))
}

func (e *ValidationError) Unwrap() []error {
	return e.Violations
}
