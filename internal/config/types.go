// Package config loads and validates the daemon's INI configuration file.
package config

// Config is the root configuration, one struct per INI section.
type Config struct {
	Video    Video
	Webhook  Webhook
	B2       ObjectStore
	Server   Server
	Encoding Encoding
}

// Video holds the [VIDEO] section.
type Video struct {
	Source        string `ini:"SOURCE"` // device index ("0") or a URL; kept as string, parsed by the capture source
	BufferSeconds int    `ini:"BUFFER_SECONDS"`
	SaveSeconds   int    `ini:"SAVE_SECONDS"`
	ForceFPS      int    `ini:"FORCE_FPS"` // default 24
	MaxWidth      int    `ini:"MAX_WIDTH"` // default 1280
	MaxHeight     int    `ini:"MAX_HEIGHT"` // default 720
}

// Webhook holds the [WEBHOOK] section.
type Webhook struct {
	URL string `ini:"URL"`
}

// ObjectStore holds the [BACKBLAZE_B2] section.
type ObjectStore struct {
	KeyID          string `ini:"KEY_ID"`
	ApplicationKey string `ini:"APPLICATION_KEY"`
	BucketName     string `ini:"BUCKET_NAME"`
}

// Server holds the [SERVER] section.
type Server struct {
	Host        string `ini:"HOST"`
	Port        int    `ini:"PORT"`
	Debug       bool   `ini:"DEBUG"`
	EnableMDNS  bool   `ini:"ENABLE_MDNS"`
	ServiceName string `ini:"SERVICE_NAME"`
	Threads     int    `ini:"THREADS"`
}

// Encoding holds the [VIDEO_ENCODING] section.
type Encoding struct {
	Codec       string `ini:"CODEC"`
	AudioCodec  string `ini:"AUDIO_CODEC"`
	Preset      string `ini:"PRESET"`
	CRF         int    `ini:"CRF"`
	PixelFormat string `ini:"PIXEL_FORMAT"`
	Tune        string `ini:"TUNE"`
	Threads     int    `ini:"THREADS"`
	UseGPU      bool   `ini:"USE_GPU"`
}

// DefaultVideo returns the [VIDEO] defaults for optional keys.
func DefaultVideo() Video {
	return Video{
		ForceFPS:  24,
		MaxWidth:  1280,
		MaxHeight: 720,
	}
}

// DefaultServer returns the [SERVER] defaults for optional keys.
func DefaultServer() Server {
	return Server{
		Threads: 1,
	}
}

// placeholderKeyID is the example credential shipped in the sample config;
// a config still carrying it has never been configured for a real bucket.
const placeholderKeyID = "your_key_id_here"
